package httpapi

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router wraps http.ServeMux with request logging.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	r.mux.ServeHTTP(rec, req)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)),
		zap.String("ip_address", getClientIP(req)),
	}
	if rec.status >= http.StatusInternalServerError {
		r.logger.Error("HTTP request", fields...)
		return
	}
	r.logger.Debug("HTTP request", fields...)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RegisterAuthRoutes: sign-up, login, logout, current member.
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("/auth/api/v1/", h.ServeHTTP)
}

// RegisterPublicRoutes: marketing data, icons and health; no session required.
func (r *Router) RegisterPublicRoutes(h *PublicHandler) {
	r.Handle("/api/v1/public/", h.ServeHTTP)
	r.Handle("/api/v1/avatars/", h.Avatar)
	r.Handle("/icon.png", h.SiteIcon)
	r.Handle("/healthz", h.Health)
}

// RegisterMemberRoutes: everything behind a member session.
func (r *Router) RegisterMemberRoutes(s *Sessions, m *MemberHandler, sp *SpaceHandler, msg *MessageHandler, ev *EventHandler, p *PartnerHandler) {
	r.Handle("/api/v1/dashboard", s.Require(m.Dashboard))
	r.Handle("/api/v1/members", s.Require(m.ServeHTTP))
	r.Handle("/api/v1/members/", s.Require(m.ServeHTTP))
	r.Handle("/api/v1/settings/", s.Require(m.Settings))

	r.Handle("/api/v1/spaces", s.Require(sp.ServeHTTP))
	r.Handle("/api/v1/spaces/", s.Require(sp.ServeHTTP))
	r.Handle("/api/v1/posts/", s.Require(sp.Posts))

	r.Handle("/api/v1/partners", s.Require(p.List))

	r.Handle("/api/v1/conversations", s.Require(msg.ServeHTTP))
	r.Handle("/api/v1/conversations/", s.Require(msg.ServeHTTP))
	r.Handle("/api/v1/realtime", msg.Realtime)

	r.Handle("/api/v1/events", s.Require(ev.ServeHTTP))
	r.Handle("/api/v1/events/", s.Require(ev.ServeHTTP))
}

// RegisterAdminRoutes: admin panel; non-admins get 403.
func (r *Router) RegisterAdminRoutes(s *Sessions, h *AdminHandler) {
	r.Handle("/admin/api/v1/", s.RequireAdmin(h.ServeHTTP))
}
