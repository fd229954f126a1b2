package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"memberhub/internal/service"

	"go.uber.org/zap"
)

// AdminHandler serves /admin/api/v1/*. The router has already checked the admin role.
type AdminHandler struct {
	admin    service.AdminService
	spaces   service.SpaceService
	events   service.EventService
	partners service.PartnerService
	logger   *zap.Logger
}

func NewAdminHandler(
	admin service.AdminService,
	spaces service.SpaceService,
	events service.EventService,
	partners service.PartnerService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		admin:    admin,
		spaces:   spaces,
		events:   events,
		partners: partners,
		logger:   logger,
	}
}

func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/admin/api/v1")
	if len(parts) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch parts[0] {
	case "stats":
		h.Stats(w, r, parts[1:])
	case "members":
		h.Members(w, r, parts[1:])
	case "spaces":
		h.Spaces(w, r, parts[1:])
	case "events":
		h.Events(w, r, parts[1:])
	case "partners":
		h.Partners(w, r, parts[1:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) != 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		h.logger.Error("Stats failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

func (h *AdminHandler) Members(w http.ResponseWriter, r *http.Request, rest []string) {
	ctx := r.Context()
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		resp, err := h.admin.ListMembers(ctx, membersQuery(r))
		if err != nil {
			h.logger.Error("AdminListMembers failed", zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(resp))

	case len(rest) == 1 && rest[0] == "export":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		data, err := h.admin.ExportMembers(ctx, membersQuery(r))
		if err != nil {
			h.logger.Error("ExportMembers failed", zap.Error(err))
			writeError(w, err)
			return
		}
		filename := fmt.Sprintf("members-%s.xlsx", time.Now().UTC().Format("20060102"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+filename)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)

	case len(rest) == 1:
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		var req service.UpdateMemberRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, err)
			return
		}
		m, err := h.admin.UpdateMember(ctx, ViewerFrom(ctx), rest[0], req)
		if err != nil {
			h.logger.Error("UpdateMember failed", zap.String("profile_id", rest[0]), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(m))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AdminHandler) Spaces(w http.ResponseWriter, r *http.Request, rest []string) {
	ctx := r.Context()
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		var req service.SpaceRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, err)
			return
		}
		s, err := h.spaces.CreateSpace(ctx, ViewerFrom(ctx), req)
		if err != nil {
			h.logger.Error("CreateSpace failed", zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(s))
	case len(rest) == 1 && r.Method == http.MethodPut:
		var req service.SpaceRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, err)
			return
		}
		s, err := h.spaces.UpdateSpace(ctx, rest[0], req)
		if err != nil {
			h.logger.Error("UpdateSpace failed", zap.String("slug", rest[0]), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(s))
	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := h.spaces.DeleteSpace(ctx, rest[0]); err != nil {
			h.logger.Error("DeleteSpace failed", zap.String("slug", rest[0]), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))
	case len(rest) <= 1:
		methodNotAllowed(w)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request, rest []string) {
	ctx := r.Context()
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		var req service.EventRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, err)
			return
		}
		e, err := h.events.CreateEvent(ctx, ViewerFrom(ctx), req)
		if err != nil {
			h.logger.Error("CreateEvent failed", zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(e))
	case len(rest) == 1 && r.Method == http.MethodPut:
		var req service.EventRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, err)
			return
		}
		e, err := h.events.UpdateEvent(ctx, rest[0], req)
		if err != nil {
			h.logger.Error("UpdateEvent failed", zap.String("event_id", rest[0]), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(e))
	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := h.events.DeleteEvent(ctx, rest[0]); err != nil {
			h.logger.Error("DeleteEvent failed", zap.String("event_id", rest[0]), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))
	case len(rest) <= 1:
		methodNotAllowed(w)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AdminHandler) Partners(w http.ResponseWriter, r *http.Request, rest []string) {
	ctx := r.Context()
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		var req service.PartnerRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, err)
			return
		}
		p, err := h.partners.Create(ctx, req)
		if err != nil {
			h.logger.Error("CreatePartner failed", zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(p))
	case len(rest) == 1 && r.Method == http.MethodPut:
		var req service.PartnerRequest
		if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
			writeError(w, err)
			return
		}
		p, err := h.partners.Update(ctx, rest[0], req)
		if err != nil {
			h.logger.Error("UpdatePartner failed", zap.String("partner_id", rest[0]), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(p))
	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := h.partners.Delete(ctx, rest[0]); err != nil {
			h.logger.Error("DeletePartner failed", zap.String("partner_id", rest[0]), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": true}))
	case len(rest) <= 1:
		methodNotAllowed(w)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
