package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"memberhub/internal/config"
	"memberhub/internal/domain"
	"memberhub/internal/notify"
	"memberhub/internal/repository"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeEventReminder = "event:reminder"

// ReminderPayload carries the start time the reminder was scheduled for;
// a task whose event has since moved is dropped by the handler.
type ReminderPayload struct {
	EventID   string    `json:"event_id"`
	ProfileID string    `json:"profile_id"`
	StartsAt  time.Time `json:"starts_at"`
}

// Scheduler queues reminders for members who RSVP'd "going".
type Scheduler interface {
	ScheduleReminder(ctx context.Context, eventID, profileID string, startsAt time.Time) error
	Close() error
}

// Noop is used when background jobs are disabled.
type Noop struct{}

func (Noop) ScheduleReminder(context.Context, string, string, time.Time) error { return nil }
func (Noop) Close() error                                                      { return nil }

func RedisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

type AsynqScheduler struct {
	client *asynq.Client
	lead   time.Duration
	now    func() time.Time
}

func NewAsynqScheduler(opt asynq.RedisConnOpt, lead time.Duration) *AsynqScheduler {
	return &AsynqScheduler{client: asynq.NewClient(opt), lead: lead, now: time.Now}
}

var _ Scheduler = (*AsynqScheduler)(nil)

func reminderTaskID(eventID, profileID string, startsAt time.Time) string {
	return "reminder:" + eventID + ":" + profileID + ":" + strconv.FormatInt(startsAt.Unix(), 10)
}

// NewReminderTask builds the task and its options; a reminder whose lead
// time has already passed is processed immediately.
func NewReminderTask(eventID, profileID string, startsAt time.Time, lead time.Duration, now time.Time) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(ReminderPayload{EventID: eventID, ProfileID: profileID, StartsAt: startsAt.UTC()})
	if err != nil {
		return nil, nil, err
	}
	at := startsAt.Add(-lead)
	if at.Before(now) {
		at = now
	}
	opts := []asynq.Option{
		asynq.TaskID(reminderTaskID(eventID, profileID, startsAt)),
		asynq.ProcessAt(at),
		asynq.MaxRetry(5),
		asynq.Deadline(startsAt),
	}
	return asynq.NewTask(TypeEventReminder, payload), opts, nil
}

func (s *AsynqScheduler) ScheduleReminder(ctx context.Context, eventID, profileID string, startsAt time.Time) error {
	now := s.now()
	if !startsAt.After(now) {
		return nil
	}
	task, opts, err := NewReminderTask(eventID, profileID, startsAt, s.lead, now)
	if err != nil {
		return fmt.Errorf("failed to build reminder: %w", err)
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}
	return nil
}

func (s *AsynqScheduler) Close() error {
	return s.client.Close()
}

// ReminderHandler delivers event:reminder tasks through the notifier.
type ReminderHandler struct {
	events   repository.EventsRepository
	profiles repository.ProfilesRepository
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewReminderHandler(events repository.EventsRepository, profiles repository.ProfilesRepository, notifier notify.Notifier, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{events: events, profiles: profiles, notifier: notifier, logger: logger, now: time.Now}
}

func (h *ReminderHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ReminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("bad reminder payload: %v: %w", err, asynq.SkipRetry)
	}

	event, err := h.events.GetEvent(ctx, p.EventID)
	if errors.Is(err, domain.ErrNotFound) {
		h.logger.Info("reminder skipped, event gone", zap.String("event_id", p.EventID))
		return nil
	}
	if err != nil {
		return err
	}
	if event.HasStarted(h.now()) {
		return nil
	}
	if !p.StartsAt.IsZero() && !event.StartsAt.Equal(p.StartsAt) {
		h.logger.Info("reminder skipped, event rescheduled",
			zap.String("event_id", p.EventID), zap.Time("scheduled_for", p.StartsAt), zap.Time("starts_at", event.StartsAt))
		return nil
	}

	rsvp, err := h.events.GetRSVP(ctx, p.EventID, p.ProfileID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && rsvp.Status != domain.RSVPGoing) {
		h.logger.Info("reminder skipped, rsvp withdrawn",
			zap.String("event_id", p.EventID), zap.String("profile_id", p.ProfileID))
		return nil
	}
	if err != nil {
		return err
	}

	profile, err := h.profiles.GetProfile(ctx, p.ProfileID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return h.notifier.Notify(ctx, notify.Notification{
		Kind:      notify.KindEventReminder,
		ProfileID: profile.ID,
		Email:     profile.Email,
		Subject:   fmt.Sprintf("Reminder: %s", event.Title),
		Data: map[string]any{
			"event_id":  event.ID,
			"title":     event.Title,
			"location":  event.Location,
			"starts_at": event.StartsAt,
		},
	})
}

// Worker runs the asynq server for background tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

func NewWorker(opt asynq.RedisConnOpt, reminders *ReminderHandler, logger *zap.Logger) *Worker {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{"default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
	mux := asynq.NewServeMux()
	mux.Handle(TypeEventReminder, reminders)
	return &Worker{server: srv, mux: mux, logger: logger}
}

func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start job worker: %w", err)
	}
	w.logger.Info("job worker started")
	return nil
}

func (w *Worker) Stop() {
	w.server.Shutdown()
}
