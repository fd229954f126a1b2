package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"memberhub/internal/domain"
)

// PostgresEventsRepository implements EventsRepository on events + event_rsvps.
type PostgresEventsRepository struct {
	db *sql.DB
}

func NewPostgresEventsRepository(db *sql.DB) *PostgresEventsRepository {
	return &PostgresEventsRepository{db: db}
}

var _ EventsRepository = (*PostgresEventsRepository)(nil)

const eventSelect = `
	SELECT e.id::text, e.title, e.description, e.location, e.starts_at, e.ends_at,
	       e.min_tier, e.capacity, COALESCE(e.created_by::text, ''), e.created_at,
	       (SELECT COUNT(*) FROM event_rsvps r WHERE r.event_id = e.id AND r.status = 'going') AS going_count
	FROM events e`

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	var tier string
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
		&tier, &e.Capacity, &e.CreatedBy, &e.CreatedAt, &e.GoingCount); err != nil {
		return nil, err
	}
	e.MinTier = domain.Tier(tier)
	return &e, nil
}

func (r *PostgresEventsRepository) ListEvents(ctx context.Context, scope domain.EventScope, now time.Time, limit int) ([]*domain.Event, error) {
	query := eventSelect + ` WHERE e.starts_at >= $1 ORDER BY e.starts_at ASC, e.id`
	if scope == domain.ScopePast {
		query = eventSelect + ` WHERE e.starts_at < $1 ORDER BY e.starts_at DESC, e.id`
	}
	args := []any{now}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func (r *PostgresEventsRepository) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	if !validUUID(id) {
		return nil, notFound("event")
	}
	e, err := scanEvent(r.db.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, translateError(err, "event")
	}
	return e, nil
}

func (r *PostgresEventsRepository) CreateEvent(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	var createdBy any
	if validUUID(e.CreatedBy) {
		createdBy = e.CreatedBy
	}
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO events (title, description, location, starts_at, ends_at, min_tier, capacity, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text`,
		e.Title, e.Description, e.Location, e.StartsAt, e.EndsAt, string(e.MinTier), e.Capacity, createdBy,
	).Scan(&id)
	if err != nil {
		return nil, translateError(err, "event")
	}
	return r.GetEvent(ctx, id)
}

func (r *PostgresEventsRepository) UpdateEvent(ctx context.Context, id string, in domain.EventInput) (*domain.Event, error) {
	if !validUUID(id) {
		return nil, notFound("event")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET title = $1, description = $2, location = $3, starts_at = $4, ends_at = $5, min_tier = $6, capacity = $7
		WHERE id = $8`,
		in.Title, in.Description, in.Location, in.StartsAt, in.EndsAt, string(in.MinTier), in.Capacity, id,
	)
	if err != nil {
		return nil, translateError(err, "event")
	}
	if err := expectAffected(res, "event"); err != nil {
		return nil, err
	}
	return r.GetEvent(ctx, id)
}

func (r *PostgresEventsRepository) DeleteEvent(ctx context.Context, id string) error {
	if !validUUID(id) {
		return notFound("event")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return translateError(err, "event")
	}
	return expectAffected(res, "event")
}

func (r *PostgresEventsRepository) GetRSVP(ctx context.Context, eventID, profileID string) (*domain.RSVP, error) {
	if !validUUID(eventID) || !validUUID(profileID) {
		return nil, notFound("rsvp")
	}
	var rsvp domain.RSVP
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT event_id::text, profile_id::text, status, created_at
		FROM event_rsvps WHERE event_id = $1 AND profile_id = $2`,
		eventID, profileID,
	).Scan(&rsvp.EventID, &rsvp.ProfileID, &status, &rsvp.CreatedAt)
	if err != nil {
		return nil, translateError(err, "rsvp")
	}
	rsvp.Status = domain.RSVPStatus(status)
	return &rsvp, nil
}

// UpsertRSVP locks the event row so concurrent "going" RSVPs cannot
// overshoot capacity.
func (r *PostgresEventsRepository) UpsertRSVP(ctx context.Context, rsvp *domain.RSVP) error {
	if !validUUID(rsvp.EventID) || !validUUID(rsvp.ProfileID) {
		return notFound("event")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var capacity int
	err = tx.QueryRowContext(ctx, `SELECT capacity FROM events WHERE id = $1 FOR UPDATE`, rsvp.EventID).Scan(&capacity)
	if err != nil {
		return translateError(err, "event")
	}

	if rsvp.Status == domain.RSVPGoing && capacity > 0 {
		var going int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM event_rsvps
			WHERE event_id = $1 AND status = 'going' AND profile_id <> $2`,
			rsvp.EventID, rsvp.ProfileID,
		).Scan(&going)
		if err != nil {
			return fmt.Errorf("failed to count rsvps: %w", err)
		}
		if going >= capacity {
			return fmt.Errorf("event is full: %w", domain.ErrConflict)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO event_rsvps (event_id, profile_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, profile_id) DO UPDATE SET status = EXCLUDED.status`,
		rsvp.EventID, rsvp.ProfileID, string(rsvp.Status),
	); err != nil {
		return translateError(err, "rsvp")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rsvp: %w", err)
	}
	return nil
}

func (r *PostgresEventsRepository) DeleteRSVP(ctx context.Context, eventID, profileID string) error {
	if !validUUID(eventID) || !validUUID(profileID) {
		return notFound("rsvp")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM event_rsvps WHERE event_id = $1 AND profile_id = $2`, eventID, profileID)
	if err != nil {
		return translateError(err, "rsvp")
	}
	return expectAffected(res, "rsvp")
}

func (r *PostgresEventsRepository) ListRSVPsForProfile(ctx context.Context, profileID string) (map[string]domain.RSVPStatus, error) {
	out := map[string]domain.RSVPStatus{}
	if !validUUID(profileID) {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT event_id::text, status FROM event_rsvps WHERE profile_id = $1`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var eventID, status string
		if err := rows.Scan(&eventID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		out[eventID] = domain.RSVPStatus(status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rsvps: %w", err)
	}
	return out, nil
}

func (r *PostgresEventsRepository) ListGoingProfileIDs(ctx context.Context, eventID string) ([]string, error) {
	out := []string{}
	if !validUUID(eventID) {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT profile_id::text FROM event_rsvps
		WHERE event_id = $1 AND status = 'going'
		ORDER BY profile_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendees: %w", err)
	}
	return out, nil
}

func (r *PostgresEventsRepository) CountUpcoming(ctx context.Context, now time.Time) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE starts_at >= $1`, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}
