package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memberhub/internal/domain"
	"memberhub/internal/jobs"
	"memberhub/internal/mqtt"
	"memberhub/internal/repository"
	"memberhub/internal/store"

	"go.uber.org/zap"
)

// EventService lists events, takes RSVPs and manages the calendar for admins.
type EventService interface {
	List(ctx context.Context, viewer *domain.Profile, scope string) ([]domain.EventView, error)
	Get(ctx context.Context, viewer *domain.Profile, id string) (*domain.EventView, error)
	RSVP(ctx context.Context, viewer *domain.Profile, id, status string) (*domain.EventView, error)
	CancelRSVP(ctx context.Context, viewer *domain.Profile, id string) error

	CreateEvent(ctx context.Context, admin *domain.Profile, req EventRequest) (*domain.Event, error)
	UpdateEvent(ctx context.Context, id string, req EventRequest) (*domain.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

type eventService struct {
	events    repository.EventsRepository
	scheduler jobs.Scheduler
	cache     *store.RouteCache
	activity  mqtt.ActivityPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewEventService(
	events repository.EventsRepository,
	scheduler jobs.Scheduler,
	cache *store.RouteCache,
	activity mqtt.ActivityPublisher,
	logger *zap.Logger,
) EventService {
	if scheduler == nil {
		scheduler = jobs.Noop{}
	}
	return &eventService{
		events:    events,
		scheduler: scheduler,
		cache:     cache,
		activity:  activity,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type EventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	MinTier     string    `json:"min_tier"`
	Capacity    int       `json:"capacity"`
}

func (r EventRequest) input() (domain.EventInput, error) {
	in := domain.EventInput{
		Title:    r.Title,
		StartsAt: r.StartsAt.UTC(),
		EndsAt:   r.EndsAt.UTC(),
		Capacity: r.Capacity,
	}
	var err error
	if in.Location, err = limitText("location", r.Location, 200, false); err != nil {
		return in, err
	}
	if in.Description, err = limitText("description", r.Description, 4000, false); err != nil {
		return in, err
	}
	if r.MinTier != "" {
		if in.MinTier, err = domain.ParseTier(r.MinTier); err != nil {
			return in, err
		}
	}
	if err := in.Validate(); err != nil {
		return in, err
	}
	if _, err := limitText("title", in.Title, 160, true); err != nil {
		return in, err
	}
	return in, nil
}

func parseScope(s string) (domain.EventScope, error) {
	switch domain.EventScope(s) {
	case "", domain.ScopeUpcoming:
		return domain.ScopeUpcoming, nil
	case domain.ScopePast:
		return domain.ScopePast, nil
	default:
		return "", fmt.Errorf("%w: scope must be upcoming or past", domain.ErrInvalidInput)
	}
}

func (s *eventService) view(viewer *domain.Profile, e *domain.Event, rsvp domain.RSVPStatus) domain.EventView {
	return domain.EventView{
		Event:  *e,
		RSVP:   rsvp,
		Locked: !viewer.CanAccess(e.MinTier),
	}
}

func (s *eventService) List(ctx context.Context, viewer *domain.Profile, scope string) ([]domain.EventView, error) {
	sc, err := parseScope(scope)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListEvents(ctx, sc, s.now(), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	rsvps, err := s.events.ListRSVPsForProfile(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}

	views := make([]domain.EventView, 0, len(events))
	for _, e := range events {
		views = append(views, s.view(viewer, e, rsvps[e.ID]))
	}
	return views, nil
}

func (s *eventService) Get(ctx context.Context, viewer *domain.Profile, id string) (*domain.EventView, error) {
	e, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	var status domain.RSVPStatus
	r, err := s.events.GetRSVP(ctx, id, viewer.ID)
	switch {
	case err == nil:
		status = r.Status
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to load rsvp: %w", err)
	}
	v := s.view(viewer, e, status)
	return &v, nil
}

func (s *eventService) RSVP(ctx context.Context, viewer *domain.Profile, id, status string) (*domain.EventView, error) {
	st, err := domain.ParseRSVPStatus(status)
	if err != nil {
		return nil, err
	}
	e, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.HasStarted(s.now()) {
		return nil, fmt.Errorf("%w: event has already started", domain.ErrInvalidInput)
	}
	if !viewer.CanAccess(e.MinTier) {
		return nil, fmt.Errorf("%w: %s membership required", domain.ErrTierRequired, e.MinTier)
	}

	err = s.events.UpsertRSVP(ctx, &domain.RSVP{
		EventID:   e.ID,
		ProfileID: viewer.ID,
		Status:    st,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.cache.Revalidate(ctx, TagOverview)

	if st == domain.RSVPGoing {
		if err := s.scheduler.ScheduleReminder(ctx, e.ID, viewer.ID, e.StartsAt); err != nil {
			// the RSVP stands without a reminder
			s.logger.Warn("schedule reminder failed",
				zap.String("event_id", e.ID),
				zap.String("profile_id", viewer.ID),
				zap.Error(err),
			)
		}
	}
	return s.Get(ctx, viewer, id)
}

func (s *eventService) CancelRSVP(ctx context.Context, viewer *domain.Profile, id string) error {
	if err := s.events.DeleteRSVP(ctx, id, viewer.ID); err != nil {
		return err
	}
	s.cache.Revalidate(ctx, TagOverview)
	return nil
}

func (s *eventService) CreateEvent(ctx context.Context, admin *domain.Profile, req EventRequest) (*domain.Event, error) {
	in, err := req.input()
	if err != nil {
		return nil, err
	}
	created, err := s.events.CreateEvent(ctx, &domain.Event{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		MinTier:     in.MinTier,
		Capacity:    in.Capacity,
		CreatedBy:   admin.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	s.logger.Info("Event created", zap.String("event_id", created.ID), zap.String("admin_id", admin.ID))
	s.cache.Revalidate(ctx, TagOverview)
	publish(ctx, s.activity, s.logger, domain.Activity{
		Kind:       domain.ActivityEventCreated,
		ActorID:    admin.ID,
		SubjectID:  created.ID,
		Attributes: map[string]string{"title": created.Title, "starts_at": created.StartsAt.Format(time.RFC3339)},
	})
	return created, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, id string, req EventRequest) (*domain.Event, error) {
	in, err := req.input()
	if err != nil {
		return nil, err
	}
	before, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.events.UpdateEvent(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.cache.Revalidate(ctx, TagOverview)
	if !updated.StartsAt.Equal(before.StartsAt) {
		s.rescheduleReminders(ctx, updated)
	}
	return updated, nil
}

// rescheduleReminders queues reminders at the new start time; tasks queued
// for the old time are dropped by the worker.
func (s *eventService) rescheduleReminders(ctx context.Context, e *domain.Event) {
	ids, err := s.events.ListGoingProfileIDs(ctx, e.ID)
	if err != nil {
		s.logger.Warn("list attendees failed", zap.String("event_id", e.ID), zap.Error(err))
		return
	}
	for _, pid := range ids {
		if err := s.scheduler.ScheduleReminder(ctx, e.ID, pid, e.StartsAt); err != nil {
			s.logger.Warn("reschedule reminder failed",
				zap.String("event_id", e.ID),
				zap.String("profile_id", pid),
				zap.Error(err),
			)
		}
	}
}

func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	if err := s.events.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Event deleted", zap.String("event_id", id))
	s.cache.Revalidate(ctx, TagOverview)
	return nil
}
