package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// Hub delivers change events to connected owners over websockets. It is the
// delivery end of the change notifier: sends are best-effort with a short
// write deadline, and a slow or dead client only loses its own messages.
type Hub struct {
	mu           sync.Mutex
	conns        map[string]map[*websocket.Conn]struct{}
	log          zerolog.Logger
	writeTimeout time.Duration
}

// NewHub creates an empty websocket hub
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		conns:        make(map[string]map[*websocket.Conn]struct{}),
		log:          log.With().Str("component", "ws_hub").Logger(),
		writeTimeout: 5 * time.Second,
	}
}

// HandleWS upgrades the connection and parks it in the hub until the client
// disconnects. The owner is identified the same way as the REST surface.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		http.Error(w, "missing user id", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS policy is enforced by the router
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}

	h.register(userID, conn)
	h.log.Info().Str("user_id", userID).Msg("Websocket client connected")

	// Hold the connection open; the read loop only exists to observe the
	// close. Anything the client sends is discarded. The request context is
	// not used here: the router's timeout middleware would cancel it and
	// drop long-lived feeds.
	ctx := context.Background()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	h.unregister(userID, conn)
	conn.Close(websocket.StatusNormalClosure, "")
	h.log.Info().Str("user_id", userID).Msg("Websocket client disconnected")
}

// Send pushes one serialized event to every connection of the owner.
// Implements the notifier sink; failures are logged and dropped.
func (h *Hub) Send(userID string, data []byte) {
	h.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(h.conns[userID]))
	for conn := range h.conns[userID] {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.log.Debug().Err(err).Str("user_id", userID).Msg("Websocket send failed")
			h.unregister(userID, conn)
			conn.Close(websocket.StatusPolicyViolation, "write timeout")
		}
	}
}

func (h *Hub) register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

func (h *Hub) unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], conn)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}
