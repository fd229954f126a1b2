package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

type ProfileStatus string

const (
	StatusActive    ProfileStatus = "active"
	StatusSuspended ProfileStatus = "suspended"
)

func (s ProfileStatus) Valid() bool {
	return s == StatusActive || s == StatusSuspended
}

// MaxInterests caps the interests list stored on a profile.
const MaxInterests = 20

// Profile is a community member (profiles table).
type Profile struct {
	ID           string
	Email        string
	PasswordHash []byte
	FullName     string
	Headline     string
	Bio          string
	Location     string
	Company      string
	AvatarURL    string
	Tier         Tier
	Role         Role
	Status       ProfileStatus
	Interests    []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

func (p *Profile) IsActive() bool {
	return p != nil && p.Status == StatusActive
}

// CanAccess reports whether the member may see content gated at required.
// Admins see everything.
func (p *Profile) CanAccess(required Tier) bool {
	if p == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	return p.Tier.Allows(required)
}

// ProfileCard is the directory representation of a profile.
type ProfileCard struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Initials  string    `json:"initials"`
	Headline  string    `json:"headline,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Location  string    `json:"location,omitempty"`
	Company   string    `json:"company,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Tier      Tier      `json:"tier"`
	Interests []string  `json:"interests"`
	JoinedAt  time.Time `json:"joined_at"`
}

func (p *Profile) Card() ProfileCard {
	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}
	return ProfileCard{
		ID:        p.ID,
		FullName:  p.FullName,
		Initials:  Initials(p.FullName),
		Headline:  p.Headline,
		Bio:       p.Bio,
		Location:  p.Location,
		Company:   p.Company,
		AvatarURL: p.AvatarURL,
		Tier:      p.Tier,
		Interests: interests,
		JoinedAt:  p.CreatedAt,
	}
}

// Initials derives up to two uppercase letters from a display name:
// first letter of the first and last words, or the first letter of a single word.
// Names without letters or digits yield "?".
func Initials(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '.'
	})
	firsts := make([]rune, 0, len(words))
	for _, w := range words {
		for _, r := range w {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				firsts = append(firsts, unicode.ToUpper(r))
				break
			}
		}
	}
	switch len(firsts) {
	case 0:
		return "?"
	case 1:
		return string(firsts[0])
	default:
		return string([]rune{firsts[0], firsts[len(firsts)-1]})
	}
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail is a shape check only: one @, non-empty local part, dotted domain.
func ValidEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at != strings.LastIndexByte(email, '@') {
		return false
	}
	host := email[at+1:]
	dot := strings.LastIndexByte(host, '.')
	return dot > 0 && dot < len(host)-1 && !strings.ContainsAny(email, " \t\r\n")
}

// NormalizeInterests trims, lowercases and deduplicates, keeping first-seen order.
func NormalizeInterests(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || utf8.RuneCountInString(s) > 40 {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == MaxInterests {
			break
		}
	}
	return out
}

// ProfileFilter narrows directory queries.
type ProfileFilter struct {
	Query            string
	Tier             Tier
	Location         string
	Interest         string
	IncludeSuspended bool
}

// ProfilePatch carries optional profile updates; nil fields are left alone.
type ProfilePatch struct {
	FullName  *string
	Headline  *string
	Bio       *string
	Location  *string
	Company   *string
	AvatarURL *string
	Interests []string
}
