package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/advisor-match/internal/identity"
)

func newChatRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t)
	r := chi.NewRouter()
	r.Route("/chats", NewHandler(svc, nil).Routes)
	return r, svc
}

func do(router http.Handler, method, path, body string, who *identity.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if who != nil {
		req = req.WithContext(identity.WithIdentity(req.Context(), *who))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatHandlerFlow(t *testing.T) {
	router, svc := newChatRouter(t)
	c, err := svc.FindOrCreate(context.Background(), "con-1", "adv-1")
	require.NoError(t, err)

	rec := do(router, http.MethodPost, "/chats/"+c.ID+"/messages", `{"body":"hello"}`, &consumer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(router, http.MethodGet, "/chats/"+c.ID, "", &advisor)
	require.Equal(t, http.StatusOK, rec.Code)
	var thread Thread
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thread))
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, "hello", thread.Messages[0].Body)

	rec = do(router, http.MethodGet, "/chats", "", &consumer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), c.ID)
}

func TestChatHandlerErrors(t *testing.T) {
	router, svc := newChatRouter(t)
	c, err := svc.FindOrCreate(context.Background(), "con-1", "adv-1")
	require.NoError(t, err)

	rec := do(router, http.MethodGet, "/chats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(router, http.MethodGet, "/chats/"+c.ID, "", &stranger)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPost, "/chats/"+c.ID+"/messages", `{"body":""}`, &consumer)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(router, http.MethodPost, "/chats/"+c.ID+"/messages", `{"text":"hi"}`, &consumer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
