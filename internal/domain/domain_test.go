package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ada Lovelace", "AL"},
		{"ada", "A"},
		{"Grace Brewster Murray Hopper", "GH"},
		{"  jean-luc   picard ", "JP"},
		{"élodie durand", "ÉD"},
		{"", "?"},
		{"   ", "?"},
		{"!!! ???", "?"},
		{"3M Partners", "3P"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Initials(tt.name))
		})
	}
}

func TestTierOrdering(t *testing.T) {
	assert.True(t, TierDiamond.Allows(TierSilver))
	assert.True(t, TierGold.Allows(TierGold))
	assert.False(t, TierSilver.Allows(TierGold))
	assert.False(t, TierPlatinum.Allows(TierDiamond))
	assert.True(t, TierSilver.Allows(""))
	assert.False(t, Tier("bronze").Allows(TierSilver))

	tiers := Tiers()
	for i := 1; i < len(tiers); i++ {
		assert.Less(t, tiers[i-1].Rank(), tiers[i].Rank())
	}
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" Platinum ")
	require.NoError(t, err)
	assert.Equal(t, TierPlatinum, tier)

	_, err = ParseTier("bronze")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestTierCatalogMatchesTiers(t *testing.T) {
	catalog := TierCatalog()
	got := make([]Tier, 0, len(catalog))
	for _, info := range catalog {
		got = append(got, info.Tier)
		assert.Equal(t, info.Tier.Rank(), info.Rank)
		assert.NotEmpty(t, info.Features)
	}
	if diff := cmp.Diff(Tiers(), got); diff != "" {
		t.Errorf("catalog tiers mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileCanAccess(t *testing.T) {
	member := &Profile{Tier: TierGold, Role: RoleMember}
	admin := &Profile{Tier: TierSilver, Role: RoleAdmin}

	assert.True(t, member.CanAccess(TierGold))
	assert.False(t, member.CanAccess(TierPlatinum))
	assert.True(t, admin.CanAccess(TierDiamond))

	var nobody *Profile
	assert.False(t, nobody.CanAccess(TierSilver))
}

func TestProfileCardNeverNilInterests(t *testing.T) {
	p := &Profile{ID: "p1", FullName: "Katherine Johnson", Tier: TierGold}
	card := p.Card()
	assert.Equal(t, "KJ", card.Initials)
	assert.NotNil(t, card.Interests)
	assert.Empty(t, card.Interests)
}

func TestNormalizeInterests(t *testing.T) {
	in := []string{" Go ", "go", "", "Distributed Systems", strings.Repeat("x", 41)}
	got := NormalizeInterests(in)
	if diff := cmp.Diff([]string{"go", "distributed systems"}, got); diff != "" {
		t.Errorf("NormalizeInterests mismatch (-want +got):\n%s", diff)
	}

	many := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		many = append(many, string(rune('a'+i%26))+strings.Repeat("z", i/26))
	}
	assert.Len(t, NormalizeInterests(many), MaxInterests)
}

func TestEmailHelpers(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
	assert.True(t, ValidEmail("ada@example.com"))
	assert.False(t, ValidEmail("ada.example.com"))
	assert.False(t, ValidEmail("@example.com"))
	assert.False(t, ValidEmail("ada@example"))
	assert.False(t, ValidEmail("ada@@example.com"))
	assert.False(t, ValidEmail("ada lovelace@example.com"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "founders-circle", Slugify("Founders' Circle"))
	assert.Equal(t, "ai-ml", Slugify("  AI / ML  "))
	assert.Equal(t, "", Slugify("!!!"))
	assert.True(t, ValidSlug(Slugify("Growth & Marketing 2026")))
	assert.False(t, ValidSlug("Bad Slug"))
	assert.False(t, ValidSlug("trailing-"))
	assert.LessOrEqual(t, len(Slugify(strings.Repeat("word ", 40))), 64)
}

func TestNewPost(t *testing.T) {
	p, err := NewPost("s1", "a1", "  Hello ", "  body text ")
	require.NoError(t, err)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, "body text", p.Body)

	_, err = NewPost("s1", "a1", "title", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewPost("s1", "a1", strings.Repeat("t", MaxPostTitle+1), "body")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewMessage(t *testing.T) {
	m, err := NewMessage("c1", "p1", "  hi there ")
	require.NoError(t, err)
	assert.Equal(t, "hi there", m.Body)
	assert.False(t, m.CreatedAt.IsZero())

	_, err = NewMessage("c1", "p1", " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewMessage("", "p1", "hello")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewMessage("c1", "p1", strings.Repeat("m", MaxMessageBody+1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConversationParticipants(t *testing.T) {
	c := &Conversation{ParticipantIDs: []string{"a", "b"}}
	assert.True(t, c.HasParticipant("a"))
	assert.False(t, c.HasParticipant("z"))
	assert.Equal(t, "b", c.OtherParticipant("a"))
}

func TestEventInputValidate(t *testing.T) {
	start := time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC)

	in := EventInput{Title: " Meetup ", StartsAt: start}
	require.NoError(t, in.Validate())
	assert.Equal(t, "Meetup", in.Title)
	assert.Equal(t, start, in.EndsAt)
	assert.Equal(t, TierSilver, in.MinTier)

	bad := EventInput{Title: "x", StartsAt: start, EndsAt: start.Add(-time.Hour)}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = EventInput{Title: "x", StartsAt: start, Capacity: -1}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = EventInput{StartsAt: start}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)
}

func TestEventCapacity(t *testing.T) {
	e := &Event{Capacity: 2, GoingCount: 2}
	assert.True(t, e.IsFull())
	e.Capacity = 0
	assert.False(t, e.IsFull())
}

func TestParseRSVPStatus(t *testing.T) {
	st, err := ParseRSVPStatus("")
	require.NoError(t, err)
	assert.Equal(t, RSVPGoing, st)

	st, err = ParseRSVPStatus("Interested")
	require.NoError(t, err)
	assert.Equal(t, RSVPInterested, st)

	_, err = ParseRSVPStatus("maybe")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPreferencesValidate(t *testing.T) {
	assert.NoError(t, DefaultPreferences().Validate())
	assert.ErrorIs(t, Preferences{Theme: "neon"}.Validate(), ErrInvalidInput)
}
