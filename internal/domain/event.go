package domain

import (
	"fmt"
	"strings"
	"time"
)

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	MinTier     Tier      `json:"min_tier"`
	Capacity    int       `json:"capacity"` // 0 = unlimited
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	GoingCount  int       `json:"going_count"`
}

func (e *Event) HasStarted(now time.Time) bool {
	return !e.StartsAt.After(now)
}

func (e *Event) IsFull() bool {
	return e.Capacity > 0 && e.GoingCount >= e.Capacity
}

// EventView is an event as seen by one member.
type EventView struct {
	Event
	RSVP   RSVPStatus `json:"rsvp,omitempty"`
	Locked bool       `json:"locked"`
}

type RSVPStatus string

const (
	RSVPGoing      RSVPStatus = "going"
	RSVPInterested RSVPStatus = "interested"
)

func ParseRSVPStatus(s string) (RSVPStatus, error) {
	switch st := RSVPStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case RSVPGoing, RSVPInterested:
		return st, nil
	case "":
		return RSVPGoing, nil
	default:
		return "", fmt.Errorf("%w: unknown rsvp status %q", ErrInvalidInput, s)
	}
}

type RSVP struct {
	EventID   string     `json:"event_id"`
	ProfileID string     `json:"profile_id"`
	Status    RSVPStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

type EventScope string

const (
	ScopeUpcoming EventScope = "upcoming"
	ScopePast     EventScope = "past"
)

type EventInput struct {
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      time.Time
	MinTier     Tier
	Capacity    int
}

// Validate checks an admin event payload.
func (in *EventInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.StartsAt.IsZero() {
		return fmt.Errorf("%w: starts_at is required", ErrInvalidInput)
	}
	if in.EndsAt.IsZero() {
		in.EndsAt = in.StartsAt
	}
	if in.EndsAt.Before(in.StartsAt) {
		return fmt.Errorf("%w: ends_at must not be before starts_at", ErrInvalidInput)
	}
	if in.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidInput)
	}
	if in.MinTier == "" {
		in.MinTier = TierSilver
	}
	if !in.MinTier.Valid() {
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, in.MinTier)
	}
	return nil
}
