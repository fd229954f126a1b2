package httpapi

import (
	"net/http"

	"memberhub/internal/service"

	"go.uber.org/zap"
)

type PartnerHandler struct {
	partners service.PartnerService
	logger   *zap.Logger
}

func NewPartnerHandler(partners service.PartnerService, logger *zap.Logger) *PartnerHandler {
	return &PartnerHandler{partners: partners, logger: logger}
}

// List: GET /api/v1/partners?category=
func (h *PartnerHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := h.partners.List(r.Context(), ViewerFrom(r.Context()), r.URL.Query().Get("category"))
	if err != nil {
		h.logger.Error("ListPartners failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(items))
}
