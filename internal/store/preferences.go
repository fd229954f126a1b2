package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"memberhub/internal/domain"
)

// Preferences persists per-member UI settings (sidebar state, theme)
// under prefs:<profileID> with no expiry.
type Preferences struct {
	kv KV
}

func NewPreferences(kv KV) *Preferences {
	return &Preferences{kv: kv}
}

func prefsKey(profileID string) string {
	return "prefs:" + profileID
}

// Get returns the stored preferences, or the defaults when none were saved.
func (p *Preferences) Get(ctx context.Context, profileID string) (domain.Preferences, error) {
	raw, err := p.kv.Get(ctx, prefsKey(profileID))
	if errors.Is(err, ErrMiss) {
		return domain.DefaultPreferences(), nil
	}
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("failed to read preferences: %w", err)
	}
	prefs := domain.DefaultPreferences()
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return domain.DefaultPreferences(), nil
	}
	if prefs.Validate() != nil {
		prefs.Theme = domain.ThemeSystem
	}
	return prefs, nil
}

func (p *Preferences) Save(ctx context.Context, profileID string, prefs domain.Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := p.kv.Set(ctx, prefsKey(profileID), string(b), 0); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
