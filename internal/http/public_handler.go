package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"memberhub/internal/domain"
	"memberhub/internal/icon"
	"memberhub/internal/service"

	"go.uber.org/zap"
)

// HealthCheck checks one dependency for /healthz.
type HealthCheck func(ctx context.Context) error

// PublicHandler serves routes that need no session.
type PublicHandler struct {
	dashboard service.DashboardService
	members   service.MemberService
	checks    map[string]HealthCheck
	logger    *zap.Logger
}

func NewPublicHandler(dashboard service.DashboardService, members service.MemberService, checks map[string]HealthCheck, logger *zap.Logger) *PublicHandler {
	return &PublicHandler{
		dashboard: dashboard,
		members:   members,
		checks:    checks,
		logger:    logger,
	}
}

func (h *PublicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	switch r.URL.Path {
	case "/api/v1/public/overview":
		resp, err := h.dashboard.Overview(r.Context())
		if err != nil {
			h.logger.Error("Overview failed", zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(resp))
	case "/api/v1/public/tiers":
		writeJSON(w, http.StatusOK, Ok(h.dashboard.Tiers()))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// SiteIcon: GET /icon.png?size=
func (h *PublicHandler) SiteIcon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	data, err := icon.SiteIcon(icon.ParseSize(r.URL.Query().Get("size")))
	if err != nil {
		h.logger.Error("SiteIcon failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writePNG(w, data)
}

// Avatar: GET /api/v1/avatars/{profileID}.png?size=
func (h *PublicHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	parts := splitPath(r.URL.Path, "/api/v1/avatars/")
	if len(parts) != 1 || !strings.HasSuffix(parts[0], ".png") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := strings.TrimSuffix(parts[0], ".png")

	card, err := h.members.Get(r.Context(), nil, id)
	if err != nil {
		if !isNotFound(err) {
			h.logger.Error("Avatar lookup failed", zap.String("profile_id", id), zap.Error(err))
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}
	data, err := icon.Avatar(card.Initials, card.ID, icon.ParseSize(r.URL.Query().Get("size")))
	if err != nil {
		h.logger.Error("Avatar failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writePNG(w, data)
}

// Health reports each dependency check; any failure answers 503.
func (h *PublicHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	result := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			result[name] = err.Error()
			continue
		}
		result[name] = "ok"
	}
	if status != http.StatusOK {
		writeJSON(w, status, Result[map[string]string]{Code: ResultError, Type: "error", Message: "unhealthy", Result: result})
		return
	}
	writeJSON(w, status, Ok(result))
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
