package booking

import (
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

func newBookingRouter(t *testing.T) http.Handler {
	t.Helper()
	h := NewHandler(newFixture(t).service, nil)
	r := chi.NewRouter()
	r.Post("/advisors/{advisorID}/bookings", h.Book)
	r.Post("/advisors/{advisorID}/chat", h.MessageAdvisor)
	return r
}

func post(router http.Handler, path, body string, who *identity.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if who != nil {
		req = req.WithContext(identity.WithIdentity(req.Context(), *who))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBookHandler(t *testing.T) {
	router := newBookingRouter(t)

	rec := post(router, "/advisors/adv-1/bookings", `{"date":"2026-03-02","slot":"9:00 AM - 10:00 AM"}`, consumerID("con-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "/consumer/schedule", res.Redirect)
	assert.Equal(t, "09:00", res.Appointment.StartTime)

	rec = post(router, "/advisors/adv-1/bookings", `{"date":"2026-03-02","slot":"9:00 AM - 10:00 AM"}`, consumerID("con-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(router, "/advisors/adv-1/bookings", `{"date":"2026-03-02","slot":""}`, consumerID("con-1"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "select a time slot")

	rec = post(router, "/advisors/adv-1/bookings", `{"date":"2026-03-02","slot":"9:00 AM - 10:00 AM"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMessageAdvisorHandler(t *testing.T) {
	router := newBookingRouter(t)

	rec := post(router, "/advisors/adv-1/chat", "", consumerID("con-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res ChatResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, strings.HasPrefix(res.Redirect, "/chat/"))

	rec = post(router, "/advisors/adv-404/chat", "", consumerID("con-1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
