package httpapi

import (
	"net/http"

	"memberhub/internal/service"

	"go.uber.org/zap"
)

// EventHandler serves /api/v1/events/*.
type EventHandler struct {
	events service.EventService
	logger *zap.Logger
}

func NewEventHandler(events service.EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := ViewerFrom(ctx)
	parts := splitPath(r.URL.Path, "/api/v1/events")

	switch {
	case len(parts) == 0:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		items, err := h.events.List(ctx, viewer, r.URL.Query().Get("scope"))
		if err != nil {
			h.logger.Error("ListEvents failed", zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(items))

	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		v, err := h.events.Get(ctx, viewer, parts[0])
		if err != nil {
			h.logger.Error("GetEvent failed", zap.String("event_id", parts[0]), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(v))

	// /api/v1/events/{id}/rsvp
	case len(parts) == 2 && parts[1] == "rsvp":
		id := parts[0]
		switch r.Method {
		case http.MethodPost:
			var body struct {
				Status string `json:"status"`
			}
			if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
				writeError(w, err)
				return
			}
			v, err := h.events.RSVP(ctx, viewer, id, body.Status)
			if err != nil {
				h.logger.Error("RSVP failed", zap.String("event_id", id), zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(v))
		case http.MethodDelete:
			if err := h.events.CancelRSVP(ctx, viewer, id); err != nil {
				h.logger.Error("CancelRSVP failed", zap.String("event_id", id), zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(map[string]any{"cancelled": true}))
		default:
			methodNotAllowed(w)
		}

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
