package domain

import "fmt"

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Preferences are per-member UI settings persisted server side.
type Preferences struct {
	SidebarCollapsed bool   `json:"sidebar_collapsed"`
	Theme            string `json:"theme"`
}

func DefaultPreferences() Preferences {
	return Preferences{SidebarCollapsed: false, Theme: ThemeSystem}
}

func (p Preferences) Validate() error {
	switch p.Theme {
	case ThemeLight, ThemeDark, ThemeSystem:
		return nil
	default:
		return fmt.Errorf("%w: unknown theme %q", ErrInvalidInput, p.Theme)
	}
}
