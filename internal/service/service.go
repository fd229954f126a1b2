package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"memberhub/internal/domain"
	"memberhub/internal/mqtt"

	"go.uber.org/zap"
)

// Route cache tags revalidated by mutations.
const (
	TagSpaces   = "spaces"
	TagPartners = "partners"
	TagOverview = "overview"
)

func SpaceTag(slug string) string {
	return "space:" + slug
}

const (
	defaultPageSize = 24
	maxPageSize     = 100
)

func clampPage(page, size, def int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// requireActive rejects anonymous and suspended viewers.
func requireActive(viewer *domain.Profile) error {
	if viewer == nil {
		return domain.ErrUnauthorized
	}
	if !viewer.IsActive() {
		return fmt.Errorf("%w: account suspended", domain.ErrForbidden)
	}
	return nil
}

func requireAdmin(viewer *domain.Profile) error {
	if err := requireActive(viewer); err != nil {
		return err
	}
	if !viewer.IsAdmin() {
		return fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}
	return nil
}

// limitText trims s and checks its length in runes.
func limitText(field, s string, max int, required bool) (string, error) {
	s = strings.TrimSpace(s)
	if required && s == "" {
		return "", fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, field)
	}
	if utf8.RuneCountInString(s) > max {
		return "", fmt.Errorf("%w: %s exceeds %d characters", domain.ErrInvalidInput, field, max)
	}
	return s, nil
}

// publish sends activity to the bridge; failures are logged, never returned.
func publish(ctx context.Context, p mqtt.ActivityPublisher, logger *zap.Logger, a domain.Activity) {
	if p == nil {
		return
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, a); err != nil {
		logger.Warn("activity publish failed", zap.String("kind", string(a.Kind)), zap.Error(err))
	}
}
