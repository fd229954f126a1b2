package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventMessageCreated   = "message.created"
	EventConversationRead = "conversation.read"
)

// Envelope is one realtime event addressed to a set of members.
type Envelope struct {
	Type       string          `json:"type"`
	Recipients []string        `json:"recipients"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope encodes data for recipients.
func NewEnvelope(eventType string, recipients []string, data any) (Envelope, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	return Envelope{Type: eventType, Recipients: recipients, Data: b}, nil
}

// frame is what a socket receives.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub tracks at most one live socket per member on this instance.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]*Connection // profileID -> connection
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// Attach registers conn, replacing and closing any previous socket of the same member.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	previous := h.conns[conn.ProfileID]
	h.conns[conn.ProfileID] = conn
	h.mu.Unlock()

	conn.Start()
	if previous != nil {
		previous.Close(4001, "session replaced")
	}
}

// Detach forgets conn if it is still the member's current socket.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	if h.conns[conn.ProfileID] == conn {
		delete(h.conns, conn.ProfileID)
	}
	h.mu.Unlock()
}

func (h *Hub) Online(profileID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[profileID]
	return ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// NotifyUser writes payload to the member's socket, if connected here.
func (h *Hub) NotifyUser(profileID string, payload []byte) bool {
	h.mu.RLock()
	conn := h.conns[profileID]
	h.mu.RUnlock()
	if conn == nil {
		return false
	}
	if err := conn.Send(payload); err != nil {
		h.logger.Warn("dropping realtime connection", zap.String("profile_id", profileID), zap.Error(err))
		h.Detach(conn)
		return false
	}
	return true
}

// Deliver fans an envelope out to every recipient connected to this instance.
func (h *Hub) Deliver(env Envelope) int {
	payload, err := json.Marshal(frame{Type: env.Type, Data: env.Data})
	if err != nil {
		h.logger.Error("encode realtime frame failed", zap.Error(err))
		return 0
	}
	delivered := 0
	for _, id := range env.Recipients {
		if h.NotifyUser(id, payload) {
			delivered++
		}
	}
	return delivered
}

// Serve upgrades the request and blocks until the socket closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, profileID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade failed: %w", err)
	}
	conn := NewConnection(profileID, ws)
	h.Attach(conn)
	h.logger.Debug("realtime connected", zap.String("profile_id", profileID), zap.String("conn_id", conn.ID))

	readErr := conn.readLoop()
	h.Detach(conn)
	conn.Close(websocket.CloseNormalClosure, "")
	conn.Wait()

	if websocket.IsUnexpectedCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.logger.Debug("realtime disconnected", zap.String("profile_id", profileID), zap.Error(readErr))
	}
	return nil
}

// Close drops every socket.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]*Connection)
	h.mu.Unlock()

	for _, c := range conns {
		c.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

// Broadcaster publishes envelopes to every instance's hub.
type Broadcaster interface {
	Publish(ctx context.Context, env Envelope) error
}

// LocalBroadcaster delivers in-process only; used without Redis.
type LocalBroadcaster struct {
	hub *Hub
}

func NewLocalBroadcaster(hub *Hub) *LocalBroadcaster {
	return &LocalBroadcaster{hub: hub}
}

func (b *LocalBroadcaster) Publish(_ context.Context, env Envelope) error {
	b.hub.Deliver(env)
	return nil
}
