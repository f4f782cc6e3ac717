package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/advisor-match/internal/identity"
)

// asUser stands in for the auth middleware, reading the user from a header.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := r.Header.Get("X-Test-User"); uid != "" {
			r = r.WithContext(identity.WithIdentity(r.Context(), identity.Identity{UserID: uid, Type: identity.Consumer}))
		}
		next.ServeHTTP(w, r)
	})
}

func dial(t *testing.T, srv *httptest.Server, userID, topics string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/realtime?topics=" + topics
	header := http.Header{}
	header.Set("X-Test-User", userID)
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil, nil)
	mux := http.NewServeMux()
	mux.Handle("/realtime", asUser(http.HandlerFunc(hub.ServeWS)))
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func TestPublishReachesOnlyParticipants(t *testing.T) {
	hub, srv := newTestServer(t)
	consumer := dial(t, srv, "con-1", "appointments")
	advisor := dial(t, srv, "adv-1", "appointments,chat_messages")
	outsider := dial(t, srv, "con-2", "appointments")

	require.Equal(t, 1, hub.Subscribers(TopicAppointments, "con-1"))
	require.Equal(t, 1, hub.Subscribers(TopicChatMessages, "adv-1"))

	hub.Publish(TopicAppointments, "UPDATE", map[string]string{"id": "appt-1", "status": "confirmed"}, "con-1", "adv-1", "con-1")

	for _, conn := range []*websocket.Conn{consumer, advisor} {
		env := readEnvelope(t, conn)
		assert.Equal(t, TopicAppointments, env.Topic)
		assert.Equal(t, "UPDATE", env.Type)
		assert.JSONEq(t, `{"id":"appt-1","status":"confirmed"}`, string(env.Record))
	}

	require.NoError(t, outsider.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := outsider.ReadMessage()
	assert.Error(t, err, "non-participant must not receive the event")
}

func TestTopicFiltering(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv, "con-1", "chat_messages")

	hub.Publish(TopicAppointments, "INSERT", map[string]string{"id": "appt-1"}, "con-1")
	hub.Publish(TopicChatMessages, "INSERT", map[string]string{"id": "msg-1"}, "con-1")

	env := readEnvelope(t, conn)
	assert.Equal(t, TopicChatMessages, env.Topic)
	assert.JSONEq(t, `{"id":"msg-1"}`, string(env.Record))
}

func TestServeWSRequiresIdentity(t *testing.T) {
	_, srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/realtime"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestParseTopics(t *testing.T) {
	assert.Equal(t, []string{TopicAppointments, TopicChatMessages, TopicNotifications}, ParseTopics(""))
	assert.Equal(t, []string{TopicChatMessages}, ParseTopics(" Chat_Messages ,bogus,chat_messages"))
}

func TestCloseRejectsNewClients(t *testing.T) {
	hub, srv := newTestServer(t)
	hub.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/realtime"
	header := http.Header{}
	header.Set("X-Test-User", "con-1")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
