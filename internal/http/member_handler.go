package httpapi

import (
	"net/http"

	"memberhub/internal/service"

	"go.uber.org/zap"
)

// MemberHandler serves the directory, the dashboard and /api/v1/settings/*.
type MemberHandler struct {
	members     service.MemberService
	auth        service.AuthService
	dashboard   service.DashboardService
	preferences service.PreferencesService
	logger      *zap.Logger
}

func NewMemberHandler(
	members service.MemberService,
	auth service.AuthService,
	dashboard service.DashboardService,
	preferences service.PreferencesService,
	logger *zap.Logger,
) *MemberHandler {
	return &MemberHandler{
		members:     members,
		auth:        auth,
		dashboard:   dashboard,
		preferences: preferences,
		logger:      logger,
	}
}

func membersQuery(r *http.Request) service.ListMembersRequest {
	q := r.URL.Query()
	return service.ListMembersRequest{
		Query:    q.Get("q"),
		Tier:     q.Get("tier"),
		Location: q.Get("location"),
		Interest: q.Get("interest"),
		Page:     parseInt(q.Get("page"), 1),
		Size:     parseInt(q.Get("size"), 0),
	}
}

// ServeHTTP: GET /api/v1/members, GET /api/v1/members/{id}
func (h *MemberHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	viewer := ViewerFrom(r.Context())
	parts := splitPath(r.URL.Path, "/api/v1/members")

	switch len(parts) {
	case 0:
		resp, err := h.members.List(r.Context(), viewer, membersQuery(r))
		if err != nil {
			h.logger.Error("ListMembers failed", zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(resp))
	case 1:
		card, err := h.members.Get(r.Context(), viewer, parts[0])
		if err != nil {
			h.logger.Error("GetMember failed", zap.String("profile_id", parts[0]), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(card))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *MemberHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	resp, err := h.dashboard.Dashboard(r.Context(), ViewerFrom(r.Context()))
	if err != nil {
		h.logger.Error("Dashboard failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Settings: GET|PUT profile, PUT password, GET|PUT preferences.
func (h *MemberHandler) Settings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := ViewerFrom(ctx)

	switch r.URL.Path {
	case "/api/v1/settings/profile":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, Ok(map[string]any{
				"profile": viewer.Card(),
				"email":   viewer.Email,
			}))
		case http.MethodPut:
			var req service.UpdateProfileRequest
			if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
				writeError(w, err)
				return
			}
			p, err := h.members.UpdateProfile(ctx, viewer.ID, req)
			if err != nil {
				h.logger.Error("UpdateProfile failed", zap.String("profile_id", viewer.ID), zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(map[string]any{
				"profile": p.Card(),
				"email":   p.Email,
			}))
		default:
			methodNotAllowed(w)
		}

	case "/api/v1/settings/password":
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		var body struct {
			CurrentPassword string `json:"current_password"`
			NewPassword     string `json:"new_password"`
		}
		if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
			writeError(w, err)
			return
		}
		err := h.auth.ChangePassword(ctx, service.ChangePasswordRequest{
			ProfileID:       viewer.ID,
			CurrentPassword: body.CurrentPassword,
			NewPassword:     body.NewPassword,
		})
		if err != nil {
			h.logger.Error("ChangePassword failed", zap.String("profile_id", viewer.ID), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"changed": true}))

	case "/api/v1/settings/preferences":
		switch r.Method {
		case http.MethodGet:
			prefs, err := h.preferences.Get(ctx, viewer)
			if err != nil {
				h.logger.Error("GetPreferences failed", zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(prefs))
		case http.MethodPut:
			var req service.UpdatePreferencesRequest
			if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
				writeError(w, err)
				return
			}
			prefs, err := h.preferences.Update(ctx, viewer, req)
			if err != nil {
				h.logger.Error("UpdatePreferences failed", zap.Error(err))
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(prefs))
		default:
			methodNotAllowed(w)
		}

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
