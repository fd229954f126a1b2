package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"memberhub/internal/domain"
	"memberhub/internal/notify"
	"memberhub/internal/realtime"
	"memberhub/internal/repository"
	"memberhub/internal/store"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type recordingBroadcaster struct {
	mu        sync.Mutex
	envelopes []realtime.Envelope
}

func (b *recordingBroadcaster) Publish(_ context.Context, env realtime.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envelopes = append(b.envelopes, env)
	return nil
}

func (b *recordingBroadcaster) sent() []realtime.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.Envelope(nil), b.envelopes...)
}

type scheduledReminder struct {
	EventID   string
	ProfileID string
	StartsAt  time.Time
}

type recordingScheduler struct {
	mu    sync.Mutex
	calls []scheduledReminder
	err   error
}

func (s *recordingScheduler) ScheduleReminder(_ context.Context, eventID, profileID string, startsAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, scheduledReminder{eventID, profileID, startsAt})
	return s.err
}

func (s *recordingScheduler) Close() error { return nil }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

type fixture struct {
	svc         *Services
	repos       *repository.Repositories
	kv          *store.MemoryKV
	broadcaster *recordingBroadcaster
	scheduler   *recordingScheduler
	notifier    *recordingNotifier
	seq         atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repos:       repository.NewMemoryRepositories(),
		kv:          store.NewMemoryKV(),
		broadcaster: &recordingBroadcaster{},
		scheduler:   &recordingScheduler{},
		notifier:    &recordingNotifier{},
	}
	f.svc = New(Deps{
		Repos:       f.repos,
		KV:          f.kv,
		SessionTTL:  time.Hour,
		CacheTTL:    time.Minute,
		Notifier:    f.notifier,
		Broadcaster: f.broadcaster,
		Scheduler:   f.scheduler,
		Logger:      zap.NewNop(),
	})
	f.svc.Auth.(*authService).cost = bcrypt.MinCost
	return f
}

// member stores an active profile directly in the repository.
func (f *fixture) member(t *testing.T, tier domain.Tier) *domain.Profile {
	t.Helper()
	n := f.seq.Add(1)
	p, err := f.repos.Profiles.CreateProfile(context.Background(), &domain.Profile{
		Email:     fmt.Sprintf("%s-%d@example.com", strings.ToLower(gofakeit.Username()), n),
		FullName:  gofakeit.Name(),
		Tier:      tier,
		Role:      domain.RoleMember,
		Status:    domain.StatusActive,
		Interests: []string{},
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) admin(t *testing.T) *domain.Profile {
	t.Helper()
	p := f.member(t, domain.TierDiamond)
	p, err := f.repos.Profiles.UpdateMembership(context.Background(), p.ID, domain.TierDiamond, domain.RoleAdmin, domain.StatusActive)
	require.NoError(t, err)
	return p
}

func TestSignUp_CreatesSilverMemberAndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Auth.SignUp(ctx, SignUpRequest{
		Email:    "  Ada@Example.com ",
		Password: "correct horse",
		FullName: "Ada Lovelace",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, domain.TierSilver, resp.Profile.Tier)
	assert.Equal(t, "AL", resp.Profile.Initials)
	assert.Equal(t, domain.RoleMember, resp.Role)

	viewer, err := f.svc.Auth.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", viewer.Email)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notify.KindMemberSignedUp, f.notifier.sent[0].Kind)
}

func TestSignUp_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  SignUpRequest
	}{
		{"bad email", SignUpRequest{Email: "nope", Password: "longenough", FullName: "A"}},
		{"short password", SignUpRequest{Email: "a@example.com", Password: "short", FullName: "A"}},
		{"long password", SignUpRequest{Email: "a@example.com", Password: strings.Repeat("x", 73), FullName: "A"}},
		{"missing name", SignUpRequest{Email: "a@example.com", Password: "longenough", FullName: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Auth.SignUp(ctx, tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := SignUpRequest{Email: "dup@example.com", Password: "longenough", FullName: "Dup"}

	_, err := f.svc.Auth.SignUp(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.Auth.SignUp(ctx, req)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Auth.SignUp(ctx, SignUpRequest{Email: "grace@example.com", Password: "longenough", FullName: "Grace Hopper"})
	require.NoError(t, err)

	resp, err := f.svc.Auth.Login(ctx, LoginRequest{Email: "GRACE@example.com", Password: "longenough"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = f.svc.Auth.Login(ctx, LoginRequest{Email: "grace@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.Auth.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_SuspendedMemberRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Auth.SignUp(ctx, SignUpRequest{Email: "s@example.com", Password: "longenough", FullName: "Sus Pended"})
	require.NoError(t, err)

	_, err = f.repos.Profiles.UpdateMembership(ctx, resp.Profile.ID, domain.TierSilver, domain.RoleMember, domain.StatusSuspended)
	require.NoError(t, err)

	_, err = f.svc.Auth.Login(ctx, LoginRequest{Email: "s@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// the existing session is revoked on next use
	_, err = f.svc.Auth.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Auth.SignUp(ctx, SignUpRequest{Email: "l@example.com", Password: "longenough", FullName: "Log Out"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Auth.Logout(ctx, resp.Token))
	_, err = f.svc.Auth.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Auth.SignUp(ctx, SignUpRequest{Email: "c@example.com", Password: "first-password", FullName: "Change Me"})
	require.NoError(t, err)

	err = f.svc.Auth.ChangePassword(ctx, ChangePasswordRequest{ProfileID: resp.Profile.ID, CurrentPassword: "wrong", NewPassword: "second-password"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = f.svc.Auth.ChangePassword(ctx, ChangePasswordRequest{ProfileID: resp.Profile.ID, CurrentPassword: "first-password", NewPassword: "second-password"})
	require.NoError(t, err)

	_, err = f.svc.Auth.Login(ctx, LoginRequest{Email: "c@example.com", Password: "second-password"})
	assert.NoError(t, err)
}

func TestEnsureAdmin_CreatesThenPromotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, created, err := f.svc.Auth.EnsureAdmin(ctx, "root@example.com", "admin-password")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, p.IsAdmin())

	p, created, err = f.svc.Auth.EnsureAdmin(ctx, "root@example.com", "admin-password")
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, p.IsAdmin())

	m := f.member(t, domain.TierSilver)
	p, created, err = f.svc.Auth.EnsureAdmin(ctx, m.Email, "ignored-password")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.Equal(t, domain.TierDiamond, p.Tier)
}

func TestMembers_ListHidesSuspendedFromMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	viewer := f.member(t, domain.TierGold)
	other := f.member(t, domain.TierSilver)
	_, err := f.repos.Profiles.UpdateMembership(ctx, other.ID, domain.TierSilver, domain.RoleMember, domain.StatusSuspended)
	require.NoError(t, err)

	resp, err := f.svc.Members.List(ctx, viewer, ListMembersRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)

	_, err = f.svc.Members.Get(ctx, viewer, other.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	admin := f.admin(t)
	resp, err = f.svc.Members.List(ctx, admin, ListMembersRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)

	_, err = f.svc.Members.List(ctx, viewer, ListMembersRequest{Tier: "bronze"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMembers_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.member(t, domain.TierSilver)

	headline := "Builder"
	updated, err := f.svc.Members.UpdateProfile(ctx, m.ID, UpdateProfileRequest{
		Headline:  &headline,
		Interests: []string{"Go", " go ", "Chess"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Builder", updated.Headline)
	assert.Equal(t, m.FullName, updated.FullName)
	assert.Len(t, updated.Interests, 2)

	bad := "ftp://example.com/me.png"
	_, err = f.svc.Members.UpdateProfile(ctx, m.ID, UpdateProfileRequest{AvatarURL: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	empty := " "
	_, err = f.svc.Members.UpdateProfile(ctx, m.ID, UpdateProfileRequest{FullName: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
