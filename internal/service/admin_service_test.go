package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"memberhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAdmin_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	a := f.member(t, domain.TierGold)
	b := f.member(t, domain.TierSilver)

	space, err := f.svc.Spaces.CreateSpace(ctx, admin, SpaceRequest{Name: "General"})
	require.NoError(t, err)
	_, err = f.svc.Spaces.CreatePost(ctx, admin, space.Slug, CreatePostRequest{Title: "Hello", Body: "World"})
	require.NoError(t, err)
	createEvent(t, f, admin, EventRequest{Title: "Next", StartsAt: time.Now().Add(time.Hour)})
	conv, err := f.svc.Messages.StartConversation(ctx, a, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Messages.Send(ctx, a, conv.ID, "hi")
	require.NoError(t, err)
	_, err = f.repos.Profiles.UpdateMembership(ctx, b.ID, domain.TierSilver, domain.RoleMember, domain.StatusSuspended)
	require.NoError(t, err)

	stats, err := f.svc.Admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Members.Total)
	assert.Equal(t, 2, stats.Members.Active)
	assert.Equal(t, 1, stats.Members.Suspended)
	assert.Equal(t, 1, stats.Members.ByTier[domain.TierGold])
	assert.Equal(t, 1, stats.Spaces)
	assert.Equal(t, 1, stats.Posts)
	assert.Equal(t, 1, stats.UpcomingEvents)
	assert.Equal(t, 1, stats.MessagesLast7d)
}

func TestAdmin_UpdateMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	m := f.member(t, domain.TierSilver)

	updated, err := f.svc.Admin.UpdateMember(ctx, admin, m.ID, UpdateMemberRequest{Tier: "Platinum"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierPlatinum, updated.Tier)
	assert.Equal(t, domain.RoleMember, updated.Role)

	updated, err = f.svc.Admin.UpdateMember(ctx, admin, m.ID, UpdateMemberRequest{Status: "suspended"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuspended, updated.Status)

	list, err := f.svc.Admin.ListMembers(ctx, ListMembersRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	_, err = f.svc.Admin.UpdateMember(ctx, admin, admin.ID, UpdateMemberRequest{Role: "member"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Admin.UpdateMember(ctx, admin, admin.ID, UpdateMemberRequest{Status: "suspended"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	// changing their own tier is allowed
	_, err = f.svc.Admin.UpdateMember(ctx, admin, admin.ID, UpdateMemberRequest{Tier: "gold"})
	assert.NoError(t, err)

	_, err = f.svc.Admin.UpdateMember(ctx, admin, m.ID, UpdateMemberRequest{Role: "owner"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAdmin_ExportMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.admin(t)
	f.member(t, domain.TierGold)
	f.member(t, domain.TierSilver)

	data, err := f.svc.Admin.ExportMembers(ctx, ListMembersRequest{})
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{memberSheet}, book.GetSheetList())
	rows, err := book.GetRows(memberSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, MemberExportHeader(), rows[0])

	gold, err := f.svc.Admin.ExportMembers(ctx, ListMembersRequest{Tier: "gold"})
	require.NoError(t, err)
	book2, err := excelize.OpenReader(bytes.NewReader(gold))
	require.NoError(t, err)
	defer book2.Close()
	rows, err = book2.GetRows(memberSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "gold", rows[1][2])
}

func TestDashboard_LoadsViewerData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	m := f.member(t, domain.TierGold)
	other := f.member(t, domain.TierSilver)

	joined, err := f.svc.Spaces.CreateSpace(ctx, admin, SpaceRequest{Name: "Joined"})
	require.NoError(t, err)
	_, err = f.svc.Spaces.CreateSpace(ctx, admin, SpaceRequest{Name: "Not joined"})
	require.NoError(t, err)
	_, err = f.svc.Spaces.Join(ctx, m, joined.Slug)
	require.NoError(t, err)

	going := createEvent(t, f, admin, EventRequest{Title: "Going", StartsAt: time.Now().Add(time.Hour)})
	createEvent(t, f, admin, EventRequest{Title: "Skipped", StartsAt: time.Now().Add(2 * time.Hour)})
	_, err = f.svc.Events.RSVP(ctx, m, going.ID, "going")
	require.NoError(t, err)

	conv, err := f.svc.Messages.StartConversation(ctx, other, m.ID)
	require.NoError(t, err)
	_, err = f.svc.Messages.Send(ctx, other, conv.ID, "ping")
	require.NoError(t, err)

	collapsed := true
	_, err = f.svc.Preferences.Update(ctx, m, UpdatePreferencesRequest{SidebarCollapsed: &collapsed})
	require.NoError(t, err)

	d, err := f.svc.Dashboard.Dashboard(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, m.ID, d.Profile.ID)
	require.Len(t, d.Spaces, 1)
	assert.Equal(t, "joined", d.Spaces[0].Slug)
	require.Len(t, d.UpcomingEvents, 1)
	assert.Equal(t, "Going", d.UpcomingEvents[0].Title)
	assert.Equal(t, 1, d.UnreadMessages)
	assert.True(t, d.Preferences.SidebarCollapsed)
}

func TestDashboard_OverviewCachedUntilRevalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)

	for i := 0; i < 4; i++ {
		createEvent(t, f, admin, EventRequest{Title: "E", StartsAt: time.Now().Add(time.Duration(i+1) * time.Hour)})
	}
	o, err := f.svc.Dashboard.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, o.MemberCount)
	assert.Len(t, o.UpcomingEvents, overviewEventCount)
	assert.Len(t, o.Tiers, 4)

	// a member written straight to the repository is invisible until revalidation
	f.member(t, domain.TierSilver)
	o, err = f.svc.Dashboard.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, o.MemberCount)

	_, err = f.svc.Auth.SignUp(ctx, SignUpRequest{Email: "new@example.com", Password: "longenough", FullName: "New Member"})
	require.NoError(t, err)
	o, err = f.svc.Dashboard.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, o.MemberCount)
}

func TestPreferences_PartialUpdatePersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, domain.TierSilver)

	prefs, err := f.svc.Preferences.Get(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPreferences(), prefs)

	dark := "Dark"
	_, err = f.svc.Preferences.Update(ctx, m, UpdatePreferencesRequest{Theme: &dark})
	require.NoError(t, err)
	collapsed := true
	_, err = f.svc.Preferences.Update(ctx, m, UpdatePreferencesRequest{SidebarCollapsed: &collapsed})
	require.NoError(t, err)

	prefs, err = f.svc.Preferences.Get(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, domain.Preferences{SidebarCollapsed: true, Theme: domain.ThemeDark}, prefs)

	neon := "neon"
	_, err = f.svc.Preferences.Update(ctx, m, UpdatePreferencesRequest{Theme: &neon})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
