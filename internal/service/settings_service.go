package service

import (
	"context"
	"strings"

	"memberhub/internal/domain"
	"memberhub/internal/store"

	"go.uber.org/zap"
)

// PreferencesService reads and writes per-member UI settings.
type PreferencesService interface {
	Get(ctx context.Context, viewer *domain.Profile) (domain.Preferences, error)
	Update(ctx context.Context, viewer *domain.Profile, req UpdatePreferencesRequest) (domain.Preferences, error)
}

type preferencesService struct {
	prefs  *store.Preferences
	logger *zap.Logger
}

func NewPreferencesService(prefs *store.Preferences, logger *zap.Logger) PreferencesService {
	return &preferencesService{prefs: prefs, logger: logger}
}

// UpdatePreferencesRequest is a partial update; nil fields keep their stored value.
type UpdatePreferencesRequest struct {
	SidebarCollapsed *bool   `json:"sidebar_collapsed"`
	Theme            *string `json:"theme"`
}

func (s *preferencesService) Get(ctx context.Context, viewer *domain.Profile) (domain.Preferences, error) {
	return s.prefs.Get(ctx, viewer.ID)
}

func (s *preferencesService) Update(ctx context.Context, viewer *domain.Profile, req UpdatePreferencesRequest) (domain.Preferences, error) {
	current, err := s.prefs.Get(ctx, viewer.ID)
	if err != nil {
		return current, err
	}
	if req.SidebarCollapsed != nil {
		current.SidebarCollapsed = *req.SidebarCollapsed
	}
	if req.Theme != nil {
		current.Theme = strings.ToLower(strings.TrimSpace(*req.Theme))
	}
	if err := s.prefs.Save(ctx, viewer.ID, current); err != nil {
		return current, err
	}
	s.logger.Debug("Preferences saved",
		zap.String("profile_id", viewer.ID),
		zap.Bool("sidebar_collapsed", current.SidebarCollapsed),
	)
	return current, nil
}
