package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"memberhub/internal/domain"
	"memberhub/internal/service"

	"go.uber.org/zap"
)

type ctxKey int

const (
	viewerKey ctxKey = iota
	tokenKey
)

// ViewerFrom returns the authenticated member stored by the session middleware.
func ViewerFrom(ctx context.Context) *domain.Profile {
	p, _ := ctx.Value(viewerKey).(*domain.Profile)
	return p
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// Sessions resolves the session cookie (or a Bearer token) into the viewer.
type Sessions struct {
	auth       service.AuthService
	cookieName string
	logger     *zap.Logger
}

func NewSessions(auth service.AuthService, cookieName string, logger *zap.Logger) *Sessions {
	return &Sessions{auth: auth, cookieName: cookieName, logger: logger}
}

// Token extracts the session token; the cookie wins over the header.
func (s *Sessions) Token(r *http.Request) string {
	if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (s *Sessions) SetCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) authenticate(r *http.Request, token string) (*http.Request, error) {
	if token == "" {
		return r, domain.ErrUnauthorized
	}
	viewer, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		return r, err
	}
	ctx := context.WithValue(r.Context(), viewerKey, viewer)
	ctx = context.WithValue(ctx, tokenKey, token)
	return r.WithContext(ctx), nil
}

// Require rejects requests without a live session with 401/60401.
func (s *Sessions) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, err := s.authenticate(r, s.Token(r))
		if errors.Is(err, domain.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, Unauthorized("session expired or missing"))
			return
		}
		if err != nil {
			s.logger.Error("Authenticate failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("failed to resolve session"))
			return
		}
		next(w, r)
	}
}

// RequireAdmin additionally answers 403 for members without the admin role.
func (s *Sessions) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.Require(func(w http.ResponseWriter, r *http.Request) {
		viewer := ViewerFrom(r.Context())
		if !viewer.IsAdmin() {
			s.logger.Warn("Admin route denied",
				zap.String("profile_id", viewer.ID),
				zap.String("path", r.URL.Path),
			)
			writeJSON(w, http.StatusForbidden, Fail("admin only"))
			return
		}
		next(w, r)
	})
}
