package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"memberhub/internal/domain"
	"memberhub/internal/notify"
	"memberhub/internal/repository"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

type fixture struct {
	events   *repository.MemoryEventsRepository
	profiles *repository.MemoryProfilesRepository
	notifier *recordingNotifier
	handler  *ReminderHandler
	event    *domain.Event
	member   *domain.Profile
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		events:   repository.NewMemoryEventsRepository(),
		profiles: repository.NewMemoryProfilesRepository(),
		notifier: &recordingNotifier{},
	}
	f.handler = NewReminderHandler(f.events, f.profiles, f.notifier, zap.NewNop())

	var err error
	f.member, err = f.profiles.CreateProfile(ctx, &domain.Profile{
		Email: "ada@example.com", FullName: "Ada", Tier: domain.TierGold, Role: domain.RoleMember, Status: domain.StatusActive,
	})
	require.NoError(t, err)
	start := time.Now().Add(2 * time.Hour)
	f.event, err = f.events.CreateEvent(ctx, &domain.Event{Title: "Founders dinner", StartsAt: start, EndsAt: start.Add(time.Hour)})
	require.NoError(t, err)
	return f
}

func reminderTask(t *testing.T, eventID, profileID string) *asynq.Task {
	return reminderTaskFor(t, ReminderPayload{EventID: eventID, ProfileID: profileID})
}

func reminderTaskFor(t *testing.T, p ReminderPayload) *asynq.Task {
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask(TypeEventReminder, b)
}

func TestReminderHandler_NotifiesGoingMember(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.events.UpsertRSVP(ctx, &domain.RSVP{EventID: f.event.ID, ProfileID: f.member.ID, Status: domain.RSVPGoing}))

	require.NoError(t, f.handler.ProcessTask(ctx, reminderTask(t, f.event.ID, f.member.ID)))
	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, notify.KindEventReminder, n.Kind)
	assert.Equal(t, "ada@example.com", n.Email)
	assert.Contains(t, n.Subject, "Founders dinner")
}

func TestReminderHandler_SkipsWithdrawnRSVP(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.events.UpsertRSVP(ctx, &domain.RSVP{EventID: f.event.ID, ProfileID: f.member.ID, Status: domain.RSVPInterested}))

	require.NoError(t, f.handler.ProcessTask(ctx, reminderTask(t, f.event.ID, f.member.ID)))
	require.NoError(t, f.handler.ProcessTask(ctx, reminderTask(t, "gone", f.member.ID)))
	assert.Empty(t, f.notifier.sent)
}

func TestReminderHandler_SkipsTaskForOldStartTime(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.events.UpsertRSVP(ctx, &domain.RSVP{EventID: f.event.ID, ProfileID: f.member.ID, Status: domain.RSVPGoing}))

	oldStart := f.event.StartsAt
	newStart := oldStart.Add(24 * time.Hour)
	_, err := f.events.UpdateEvent(ctx, f.event.ID, domain.EventInput{
		Title: f.event.Title, StartsAt: newStart, EndsAt: newStart.Add(time.Hour),
	})
	require.NoError(t, err)

	stale := reminderTaskFor(t, ReminderPayload{EventID: f.event.ID, ProfileID: f.member.ID, StartsAt: oldStart})
	require.NoError(t, f.handler.ProcessTask(ctx, stale))
	assert.Empty(t, f.notifier.sent)

	current := reminderTaskFor(t, ReminderPayload{EventID: f.event.ID, ProfileID: f.member.ID, StartsAt: newStart})
	require.NoError(t, f.handler.ProcessTask(ctx, current))
	assert.Len(t, f.notifier.sent, 1)
}

func TestReminderHandler_BadPayloadSkipsRetry(t *testing.T) {
	f := setup(t)
	err := f.handler.ProcessTask(context.Background(), asynq.NewTask(TypeEventReminder, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewReminderTask_ClampsToNow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	task, opts, err := NewReminderTask("e1", "p1", now.Add(time.Hour), 24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, TypeEventReminder, task.Type())

	var processAt time.Time
	for _, o := range opts {
		if o.Type() == asynq.ProcessAtOpt {
			processAt = o.Value().(time.Time)
		}
	}
	assert.Equal(t, now, processAt)

	var p ReminderPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "e1", p.EventID)
	assert.Equal(t, "p1", p.ProfileID)
	assert.True(t, p.StartsAt.Equal(now.Add(time.Hour)))
}

func taskID(opts []asynq.Option) string {
	for _, o := range opts {
		if o.Type() == asynq.TaskIDOpt {
			return o.Value().(string)
		}
	}
	return ""
}

func TestNewReminderTask_IDTracksStartTime(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	_, first, err := NewReminderTask("e1", "p1", now.Add(48*time.Hour), 24*time.Hour, now)
	require.NoError(t, err)
	_, again, err := NewReminderTask("e1", "p1", now.Add(48*time.Hour), 24*time.Hour, now.Add(time.Minute))
	require.NoError(t, err)
	_, moved, err := NewReminderTask("e1", "p1", now.Add(72*time.Hour), 24*time.Hour, now)
	require.NoError(t, err)

	assert.Equal(t, taskID(first), taskID(again))
	assert.NotEqual(t, taskID(first), taskID(moved))
}
