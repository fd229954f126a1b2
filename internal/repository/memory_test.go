package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"memberhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMember(t *testing.T, repo *MemoryProfilesRepository, email, name string, tier domain.Tier, interests ...string) *domain.Profile {
	t.Helper()
	p, err := repo.CreateProfile(context.Background(), &domain.Profile{
		Email: email, FullName: name, Tier: tier, Role: domain.RoleMember,
		Status: domain.StatusActive, Interests: interests,
	})
	require.NoError(t, err)
	return p
}

func TestMemoryProfiles_UniqueEmail(t *testing.T) {
	repo := NewMemoryProfilesRepository()
	newMember(t, repo, "ada@example.com", "Ada", domain.TierSilver)

	_, err := repo.CreateProfile(context.Background(), &domain.Profile{Email: "ada@example.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestMemoryProfiles_ListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProfilesRepository()
	newMember(t, repo, "c@example.com", "Cleo", domain.TierGold, "design")
	newMember(t, repo, "a@example.com", "alan", domain.TierGold, "math")
	newMember(t, repo, "b@example.com", "Beth", domain.TierSilver, "math")
	suspended := newMember(t, repo, "d@example.com", "Dan", domain.TierGold, "math")
	_, err := repo.UpdateMembership(ctx, suspended.ID, domain.TierGold, domain.RoleMember, domain.StatusSuspended)
	require.NoError(t, err)

	all, total, err := repo.ListProfiles(ctx, domain.ProfileFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 2)
	assert.Equal(t, "alan", all[0].FullName)
	assert.Equal(t, "Beth", all[1].FullName)

	gold, total, err := repo.ListProfiles(ctx, domain.ProfileFilter{Tier: domain.TierGold, Interest: "MATH"}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "alan", gold[0].FullName)

	past, total, err := repo.ListProfiles(ctx, domain.ProfileFilter{}, 9, 24)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, past)
}

func TestMemoryProfiles_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProfilesRepository()
	p := newMember(t, repo, "a@example.com", "Ada", domain.TierSilver, "math")

	p.Interests[0] = "mutated"
	got, err := repo.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"math"}, got.Interests)
}

func TestMemorySpaces_MembershipIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySpacesRepository()
	s, err := repo.CreateSpace(ctx, &domain.Space{Slug: "founders", Name: "Founders", MinTier: domain.TierGold})
	require.NoError(t, err)

	added, err := repo.AddMember(ctx, s.ID, profileID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.AddMember(ctx, s.ID, profileID)
	require.NoError(t, err)
	assert.False(t, added)

	got, err := repo.GetSpaceBySlug(ctx, "founders")
	require.NoError(t, err)
	assert.Equal(t, 1, got.MemberCount)

	_, err = repo.CreateSpace(ctx, &domain.Space{Slug: "founders", Name: "Again"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestMemoryPosts_PinnedFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPostsRepository()
	base := time.Now()
	_, _ = repo.CreatePost(ctx, &domain.Post{SpaceID: "s", Body: "old pinned", Pinned: true, CreatedAt: base.Add(-time.Hour)})
	_, _ = repo.CreatePost(ctx, &domain.Post{SpaceID: "s", Body: "new", CreatedAt: base})
	_, _ = repo.CreatePost(ctx, &domain.Post{SpaceID: "other", Body: "elsewhere", CreatedAt: base})

	posts, total, err := repo.ListPosts(ctx, "s", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "old pinned", posts[0].Body)
	assert.Equal(t, "new", posts[1].Body)
}

func TestMemoryConversations_UnreadAndInbox(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationsRepository()
	c, err := repo.CreateConversation(ctx, []string{profileID, otherID})
	require.NoError(t, err)

	found, err := repo.FindDirectConversation(ctx, otherID, profileID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	t0 := time.Now().UTC()
	_, err = repo.CreateMessage(ctx, &domain.Message{ConversationID: c.ID, SenderID: otherID, Body: "hi", CreatedAt: t0})
	require.NoError(t, err)
	_, err = repo.CreateMessage(ctx, &domain.Message{ConversationID: c.ID, SenderID: otherID, Body: "there", CreatedAt: t0.Add(time.Second)})
	require.NoError(t, err)

	n, err := repo.CountUnread(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = repo.CountUnread(ctx, otherID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	inbox, err := repo.ListInbox(ctx, profileID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "there", inbox[0].LastMessage.Body)
	assert.Equal(t, otherID, inbox[0].OtherID)

	require.NoError(t, repo.MarkRead(ctx, c.ID, profileID, t0.Add(time.Second)))
	n, err = repo.CountUnread(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	msgs, err := repo.ListMessages(ctx, c.ID, domain.MessageCursor{Before: t0.Add(time.Second)}, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Body)
}

func TestMemoryConversations_TiedTimestampsPageByID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationsRepository()
	c, err := repo.CreateConversation(ctx, []string{profileID, otherID})
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, body := range []string{"a", "b", "c"} {
		_, err := repo.CreateMessage(ctx, &domain.Message{ConversationID: c.ID, SenderID: profileID, Body: body, CreatedAt: at})
		require.NoError(t, err)
	}

	first, err := repo.ListMessages(ctx, c.ID, domain.MessageCursor{}, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Greater(t, first[0].ID, first[1].ID)

	edge := first[1]
	rest, err := repo.ListMessages(ctx, c.ID, domain.MessageCursor{Before: edge.CreatedAt, BeforeID: edge.ID}, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Less(t, rest[0].ID, edge.ID)
}

func TestMemoryConversations_OneThreadPerPair(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationsRepository()

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pair := []string{profileID, otherID}
			if i%2 == 1 {
				pair = []string{otherID, profileID}
			}
			c, err := repo.CreateConversation(ctx, pair)
			if assert.NoError(t, err) {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestMemoryEvents_CapacityAndScopes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventsRepository()
	now := time.Now()
	e, err := repo.CreateEvent(ctx, &domain.Event{Title: "Dinner", StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour), Capacity: 1})
	require.NoError(t, err)
	_, err = repo.CreateEvent(ctx, &domain.Event{Title: "Retro", StartsAt: now.Add(-time.Hour), EndsAt: now.Add(-time.Minute)})
	require.NoError(t, err)

	require.NoError(t, repo.UpsertRSVP(ctx, &domain.RSVP{EventID: e.ID, ProfileID: profileID, Status: domain.RSVPGoing}))
	// re-affirming an existing seat never trips capacity
	require.NoError(t, repo.UpsertRSVP(ctx, &domain.RSVP{EventID: e.ID, ProfileID: profileID, Status: domain.RSVPGoing}))

	err = repo.UpsertRSVP(ctx, &domain.RSVP{EventID: e.ID, ProfileID: otherID, Status: domain.RSVPGoing})
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, repo.UpsertRSVP(ctx, &domain.RSVP{EventID: e.ID, ProfileID: otherID, Status: domain.RSVPInterested}))

	upcoming, err := repo.ListEvents(ctx, domain.ScopeUpcoming, now, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, 1, upcoming[0].GoingCount)

	past, err := repo.ListEvents(ctx, domain.ScopePast, now, 0)
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.Equal(t, "Retro", past[0].Title)

	rsvps, err := repo.ListRSVPsForProfile(ctx, otherID)
	require.NoError(t, err)
	assert.Equal(t, domain.RSVPInterested, rsvps[e.ID])
}
