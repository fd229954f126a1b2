package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"memberhub/internal/service"

	"go.uber.org/zap"
)

// AuthHandler serves /auth/api/v1/*. Form posts redirect; JSON calls get the result envelope.
type AuthHandler struct {
	authService service.AuthService
	sessions    *Sessions
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, sessions *Sessions, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		logger:      logger,
	}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/api/v1/signup":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.SignUp(w, r)
	case "/auth/api/v1/login":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Login(w, r)
	case "/auth/api/v1/logout":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Logout(w, r)
	case "/auth/api/v1/me":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.sessions.Require(h.Me)(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// redirectTarget only follows same-site relative paths.
func redirectTarget(next, def string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return def
}

func redirectWithError(w http.ResponseWriter, r *http.Request, page string, err error) {
	http.Redirect(w, r, page+"?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Next     string `json:"next"`
}

func (h *AuthHandler) readCredentials(w http.ResponseWriter, r *http.Request) (credentialsBody, error) {
	var body credentialsBody
	if isForm(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return body, err
		}
		body.Email = r.PostForm.Get("email")
		body.Password = r.PostForm.Get("password")
		body.FullName = r.PostForm.Get("full_name")
		body.Next = r.PostForm.Get("next")
		return body, nil
	}
	err := readBodyJSON(r, maxBodyBytes, &body)
	return body, err
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	form := isForm(r)
	body, err := h.readCredentials(w, r)
	if err == nil {
		var resp *service.AuthResponse
		resp, err = h.authService.SignUp(r.Context(), service.SignUpRequest{
			Email:    body.Email,
			Password: body.Password,
			FullName: body.FullName,
		})
		if err == nil {
			h.sessions.SetCookie(w, r, resp.Token, resp.ExpiresAt)
			if form {
				http.Redirect(w, r, redirectTarget(body.Next, "/dashboard"), http.StatusSeeOther)
				return
			}
			writeJSON(w, http.StatusOK, Ok(resp))
			return
		}
	}

	h.logger.Error("SignUp failed", zap.Error(err))
	if form {
		redirectWithError(w, r, "/signup", err)
		return
	}
	writeJSON(w, http.StatusOK, Fail(err.Error()))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := isForm(r)
	body, err := h.readCredentials(w, r)
	if err == nil {
		var resp *service.AuthResponse
		resp, err = h.authService.Login(r.Context(), service.LoginRequest{
			Email:     body.Email,
			Password:  body.Password,
			IPAddress: getClientIP(r),
			UserAgent: r.UserAgent(),
		})
		if err == nil {
			h.sessions.SetCookie(w, r, resp.Token, resp.ExpiresAt)
			if form {
				http.Redirect(w, r, redirectTarget(body.Next, "/dashboard"), http.StatusSeeOther)
				return
			}
			writeJSON(w, http.StatusOK, Ok(resp))
			return
		}
	}

	h.logger.Error("Login failed", zap.Error(err))
	if form {
		redirectWithError(w, r, "/login", err)
		return
	}
	writeError(w, err)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessions.Token(r); token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			h.logger.Error("Logout failed", zap.Error(err))
			writeJSON(w, http.StatusOK, Fail(err.Error()))
			return
		}
	}
	h.sessions.ClearCookie(w)
	if isForm(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"logged_out": true}))
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFrom(r.Context())
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"profile": viewer.Card(),
		"email":   viewer.Email,
		"role":    viewer.Role,
	}))
}
