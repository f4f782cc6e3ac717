// Package realtime pushes record changes to signed-in users over websockets.
package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/advisor-match/internal/http/respond"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// Topics clients may subscribe to.
const (
	TopicAppointments  = "appointments"
	TopicChatMessages  = "chat_messages"
	TopicNotifications = "notifications"
)

var knownTopics = map[string]bool{
	TopicAppointments:  true,
	TopicChatMessages:  true,
	TopicNotifications: true,
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Envelope is the JSON frame sent to clients.
type Envelope struct {
	Topic  string          `json:"topic"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

type subscription struct {
	topic  string
	userID string
}

type client struct {
	userID string
	topics []string
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks websocket connections per (topic, user) and fans out events.
type Hub struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	subs   map[subscription]map[*client]struct{}
	closed bool
}

// NewHub builds a hub. allowedOrigins empty accepts any origin.
func NewHub(logger *logging.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Hub{
		logger: logger,
		subs:   make(map[subscription]map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.TrimRight(origin, "/")]
	}
}

// ParseTopics reads a comma separated topic list, defaulting to every topic.
func ParseTopics(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(strings.ToLower(t))
		if knownTopics[t] && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []string{TopicAppointments, TopicChatMessages, TopicNotifications}
	}
	return out
}

// ServeWS handles GET /realtime?topics=appointments,chat_messages. Each
// connection only receives events that list the caller as a participant.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	who, ok := identity.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "sign in required")
		return
	}
	c := &client{
		userID: who.UserID,
		topics: ParseTopics(r.URL.Query().Get("topics")),
		send:   make(chan []byte, sendBuffer),
	}
	// Register before the handshake completes so nothing published after the
	// client sees the upgrade response is missed.
	if !h.register(c) {
		respond.Error(w, http.StatusServiceUnavailable, "shutting down")
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.unregister(c)
		h.logger.Warn("websocket upgrade failed", "user_id", who.UserID, "error", err)
		return
	}
	h.logger.Debug("realtime client connected", "user_id", who.UserID, "topics", strings.Join(c.topics, ","))

	go h.writePump(conn, c)
	h.readPump(conn, c)
}

// readPump discards client frames and unregisters once the socket closes.
func (h *Hub) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		h.unregister(c)
		_ = conn.Close()
	}()
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("realtime read failed", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	for _, t := range c.topics {
		key := subscription{topic: t, userID: c.userID}
		if h.subs[key] == nil {
			h.subs[key] = make(map[*client]struct{})
		}
		h.subs[key][c] = struct{}{}
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	for _, t := range c.topics {
		key := subscription{topic: t, userID: c.userID}
		delete(h.subs[key], c)
		if len(h.subs[key]) == 0 {
			delete(h.subs, key)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Publish sends record to every connection of userIDs subscribed to topic.
// Slow clients whose buffer is full are disconnected.
func (h *Hub) Publish(topic, eventType string, record any, userIDs ...string) {
	raw, err := json.Marshal(record)
	if err != nil {
		h.logger.Error("realtime: marshal record", "topic", topic, "error", err)
		return
	}
	frame, err := json.Marshal(Envelope{Topic: topic, Type: eventType, Record: raw})
	if err != nil {
		h.logger.Error("realtime: marshal envelope", "topic", topic, "error", err)
		return
	}

	var slow []*client
	seen := make(map[string]bool, len(userIDs))
	h.mu.RLock()
	for _, uid := range userIDs {
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		for c := range h.subs[subscription{topic: topic, userID: uid}] {
			select {
			case c.send <- frame:
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("realtime client too slow, disconnecting", "user_id", c.userID, "topic", topic)
		h.unregister(c)
	}
}

// Subscribers reports how many connections listen on (topic, userID).
func (h *Hub) Subscribers(topic, userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[subscription{topic: topic, userID: userID}])
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	seen := map[*client]bool{}
	for _, set := range h.subs {
		for c := range set {
			if !seen[c] {
				seen[c] = true
				all = append(all, c)
			}
		}
	}
	h.subs = make(map[subscription]map[*client]struct{})
	h.mu.Unlock()
	for _, c := range all {
		c.close()
	}
}
