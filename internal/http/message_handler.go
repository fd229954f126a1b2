package httpapi

import (
	"net/http"
	"time"

	"memberhub/internal/domain"
	"memberhub/internal/realtime"
	"memberhub/internal/service"

	"go.uber.org/zap"
)

// MessageHandler serves conversations and the realtime socket.
type MessageHandler struct {
	messages service.MessageService
	hub      *realtime.Hub
	sessions *Sessions
	logger   *zap.Logger
}

func NewMessageHandler(messages service.MessageService, hub *realtime.Hub, sessions *Sessions, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		hub:      hub,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *MessageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := ViewerFrom(ctx)
	parts := splitPath(r.URL.Path, "/api/v1/conversations")

	switch {
	// /api/v1/conversations
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			items, err := h.messages.ListConversations(ctx, viewer)
			if err != nil {
				h.logger.Error("ListConversations failed", zap.Error(err))
				writeError(w, err)
				return
			}
			unread := 0
			for _, c := range items {
				unread += c.UnreadCount
			}
			writeJSON(w, http.StatusOK, Ok(map[string]any{
				"items":        items,
				"unread_total": unread,
			}))
		case http.MethodPost:
			var body struct {
				RecipientID string `json:"recipient_id"`
			}
			if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
				writeError(w, err)
				return
			}
			c, err := h.messages.StartConversation(ctx, viewer, body.RecipientID)
			if err != nil {
				h.logger.Error("StartConversation failed", zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(c))
		default:
			methodNotAllowed(w)
		}

	// /api/v1/conversations/{id}/messages
	case len(parts) == 2 && parts[1] == "messages":
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			req := service.ListMessagesRequest{
				BeforeID: r.URL.Query().Get("before_id"),
				Limit:    parseInt(r.URL.Query().Get("limit"), 0),
			}
			if raw := r.URL.Query().Get("before"); raw != "" {
				before, err := time.Parse(time.RFC3339Nano, raw)
				if err != nil {
					writeJSON(w, http.StatusOK, Fail("before must be an RFC 3339 timestamp"))
					return
				}
				req.Before = before
			}
			resp, err := h.messages.ListMessages(ctx, viewer, id, req)
			if err != nil {
				h.logger.Error("ListMessages failed", zap.String("conversation_id", id), zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(resp))
		case http.MethodPost:
			var body struct {
				Body string `json:"body"`
			}
			if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
				writeError(w, err)
				return
			}
			msg, err := h.messages.Send(ctx, viewer, id, body.Body)
			if err != nil {
				h.logger.Error("SendMessage failed", zap.String("conversation_id", id), zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(msg))
		default:
			methodNotAllowed(w)
		}

	// /api/v1/conversations/{id}/read
	case len(parts) == 2 && parts[1] == "read":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if err := h.messages.MarkRead(ctx, viewer, parts[0]); err != nil {
			h.logger.Error("MarkRead failed", zap.String("conversation_id", parts[0]), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"read": true}))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Realtime upgrades to a websocket. Browsers cannot set headers on the
// handshake, so ?token= is accepted alongside the cookie.
func (h *MessageHandler) Realtime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	token := h.sessions.Token(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	r, err := h.sessions.authenticate(r, token)
	if err != nil {
		writeError(w, domain.ErrUnauthorized)
		return
	}
	viewer := ViewerFrom(r.Context())
	if err := h.hub.Serve(w, r, viewer.ID); err != nil {
		h.logger.Warn("Realtime failed", zap.String("profile_id", viewer.ID), zap.Error(err))
	}
}
