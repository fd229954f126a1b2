package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Space is a community sub-forum.
type Space struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MinTier     Tier      `json:"min_tier"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	MemberCount int       `json:"member_count"`
}

// SpaceView is a space as seen by one member.
type SpaceView struct {
	Space
	Joined bool `json:"joined"`
	Locked bool `json:"locked"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidSlug reports whether s is lowercase words joined by single hyphens.
func ValidSlug(s string) bool {
	return len(s) <= 64 && slugPattern.MatchString(s)
}

// Slugify turns a display name into a slug. Non-alphanumerics collapse into one hyphen.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	s := b.String()
	if len(s) > 64 {
		s = strings.TrimRight(s[:64], "-")
	}
	return s
}

// SpaceInput is the admin payload for creating or updating a space.
type SpaceInput struct {
	Slug        string
	Name        string
	Description string
	MinTier     Tier
}
