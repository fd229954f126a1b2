package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"memberhub/internal/domain"

	"github.com/google/uuid"
)

// MemoryEventsRepository keeps events and RSVPs in process.
type MemoryEventsRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.Event
	rsvps  map[string]map[string]*domain.RSVP // eventID -> profileID -> rsvp
}

func NewMemoryEventsRepository() *MemoryEventsRepository {
	return &MemoryEventsRepository{
		events: map[string]*domain.Event{},
		rsvps:  map[string]map[string]*domain.RSVP{},
	}
}

var _ EventsRepository = (*MemoryEventsRepository)(nil)

func (r *MemoryEventsRepository) goingCount(eventID, except string) int {
	n := 0
	for pid, rsvp := range r.rsvps[eventID] {
		if pid != except && rsvp.Status == domain.RSVPGoing {
			n++
		}
	}
	return n
}

func (r *MemoryEventsRepository) view(e *domain.Event) *domain.Event {
	c := *e
	c.GoingCount = r.goingCount(e.ID, "")
	return &c
}

func (r *MemoryEventsRepository) ListEvents(_ context.Context, scope domain.EventScope, now time.Time, limit int) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	past := scope == domain.ScopePast
	out := []*domain.Event{}
	for _, e := range r.events {
		if e.StartsAt.Before(now) == past {
			out = append(out, r.view(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if past {
			return out[i].StartsAt.After(out[j].StartsAt)
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryEventsRepository) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[id]
	if !ok {
		return nil, notFound("event")
	}
	return r.view(e), nil
}

func (r *MemoryEventsRepository) CreateEvent(_ context.Context, e *domain.Event) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *e
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	r.events[c.ID] = &c
	return r.view(&c), nil
}

func (r *MemoryEventsRepository) UpdateEvent(_ context.Context, id string, in domain.EventInput) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, notFound("event")
	}
	e.Title, e.Description, e.Location = in.Title, in.Description, in.Location
	e.StartsAt, e.EndsAt, e.MinTier, e.Capacity = in.StartsAt, in.EndsAt, in.MinTier, in.Capacity
	return r.view(e), nil
}

func (r *MemoryEventsRepository) DeleteEvent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return notFound("event")
	}
	delete(r.events, id)
	delete(r.rsvps, id)
	return nil
}

func (r *MemoryEventsRepository) GetRSVP(_ context.Context, eventID, profileID string) (*domain.RSVP, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rsvp, ok := r.rsvps[eventID][profileID]
	if !ok {
		return nil, notFound("rsvp")
	}
	c := *rsvp
	return &c, nil
}

func (r *MemoryEventsRepository) UpsertRSVP(_ context.Context, rsvp *domain.RSVP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[rsvp.EventID]
	if !ok {
		return notFound("event")
	}
	if rsvp.Status == domain.RSVPGoing && e.Capacity > 0 && r.goingCount(e.ID, rsvp.ProfileID) >= e.Capacity {
		return fmt.Errorf("event is full: %w", domain.ErrConflict)
	}
	m := r.rsvps[e.ID]
	if m == nil {
		m = map[string]*domain.RSVP{}
		r.rsvps[e.ID] = m
	}
	if existing, ok := m[rsvp.ProfileID]; ok {
		existing.Status = rsvp.Status
		return nil
	}
	c := *rsvp
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m[rsvp.ProfileID] = &c
	return nil
}

func (r *MemoryEventsRepository) DeleteRSVP(_ context.Context, eventID, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rsvps[eventID][profileID]; !ok {
		return notFound("rsvp")
	}
	delete(r.rsvps[eventID], profileID)
	return nil
}

func (r *MemoryEventsRepository) ListRSVPsForProfile(_ context.Context, profileID string) (map[string]domain.RSVPStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[string]domain.RSVPStatus{}
	for eventID, m := range r.rsvps {
		if rsvp, ok := m[profileID]; ok {
			out[eventID] = rsvp.Status
		}
	}
	return out, nil
}

func (r *MemoryEventsRepository) ListGoingProfileIDs(_ context.Context, eventID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []string{}
	for pid, rsvp := range r.rsvps[eventID] {
		if rsvp.Status == domain.RSVPGoing {
			out = append(out, pid)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryEventsRepository) CountUpcoming(_ context.Context, now time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.events {
		if !e.StartsAt.Before(now) {
			n++
		}
	}
	return n, nil
}
