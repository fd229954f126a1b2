package repository

import (
	"context"
	"database/sql"
	"fmt"

	"memberhub/internal/domain"
)

// PostgresSpacesRepository implements SpacesRepository on spaces + space_members.
type PostgresSpacesRepository struct {
	db *sql.DB
}

func NewPostgresSpacesRepository(db *sql.DB) *PostgresSpacesRepository {
	return &PostgresSpacesRepository{db: db}
}

var _ SpacesRepository = (*PostgresSpacesRepository)(nil)

const spaceSelect = `
	SELECT s.id::text, s.slug, s.name, s.description, s.min_tier,
	       COALESCE(s.created_by::text, ''), s.created_at,
	       (SELECT COUNT(*) FROM space_members m WHERE m.space_id = s.id) AS member_count
	FROM spaces s`

func scanSpace(row rowScanner) (*domain.Space, error) {
	var s domain.Space
	var tier string
	if err := row.Scan(&s.ID, &s.Slug, &s.Name, &s.Description, &tier, &s.CreatedBy, &s.CreatedAt, &s.MemberCount); err != nil {
		return nil, err
	}
	s.MinTier = domain.Tier(tier)
	return &s, nil
}

func (r *PostgresSpacesRepository) ListSpaces(ctx context.Context) ([]*domain.Space, error) {
	rows, err := r.db.QueryContext(ctx, spaceSelect+` ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer rows.Close()

	spaces := []*domain.Space{}
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}
		spaces = append(spaces, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate spaces: %w", err)
	}
	return spaces, nil
}

func (r *PostgresSpacesRepository) GetSpaceBySlug(ctx context.Context, slug string) (*domain.Space, error) {
	if slug == "" {
		return nil, notFound("space")
	}
	s, err := scanSpace(r.db.QueryRowContext(ctx, spaceSelect+` WHERE s.slug = $1`, slug))
	if err != nil {
		return nil, translateError(err, "space")
	}
	return s, nil
}

func (r *PostgresSpacesRepository) CreateSpace(ctx context.Context, s *domain.Space) (*domain.Space, error) {
	var createdBy any
	if validUUID(s.CreatedBy) {
		createdBy = s.CreatedBy
	}
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO spaces (slug, name, description, min_tier, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text`,
		s.Slug, s.Name, s.Description, string(s.MinTier), createdBy,
	).Scan(&id)
	if err != nil {
		return nil, translateError(err, "space")
	}
	return r.GetSpaceBySlug(ctx, s.Slug)
}

func (r *PostgresSpacesRepository) UpdateSpace(ctx context.Context, slug string, in domain.SpaceInput) (*domain.Space, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE spaces SET slug = $1, name = $2, description = $3, min_tier = $4
		WHERE slug = $5`,
		in.Slug, in.Name, in.Description, string(in.MinTier), slug,
	)
	if err != nil {
		return nil, translateError(err, "space")
	}
	if err := expectAffected(res, "space"); err != nil {
		return nil, err
	}
	return r.GetSpaceBySlug(ctx, in.Slug)
}

func (r *PostgresSpacesRepository) DeleteSpace(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM spaces WHERE slug = $1`, slug)
	if err != nil {
		return translateError(err, "space")
	}
	return expectAffected(res, "space")
}

func (r *PostgresSpacesRepository) AddMember(ctx context.Context, spaceID, profileID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO space_members (space_id, profile_id)
		VALUES ($1, $2)
		ON CONFLICT (space_id, profile_id) DO NOTHING`,
		spaceID, profileID,
	)
	if err != nil {
		return false, translateError(err, "space membership")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("space membership rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresSpacesRepository) RemoveMember(ctx context.Context, spaceID, profileID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM space_members WHERE space_id = $1 AND profile_id = $2`, spaceID, profileID)
	if err != nil {
		return translateError(err, "space membership")
	}
	return nil
}

func (r *PostgresSpacesRepository) IsMember(ctx context.Context, spaceID, profileID string) (bool, error) {
	if !validUUID(spaceID) || !validUUID(profileID) {
		return false, nil
	}
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM space_members WHERE space_id = $1 AND profile_id = $2)`,
		spaceID, profileID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check space membership: %w", err)
	}
	return ok, nil
}

func (r *PostgresSpacesRepository) ListMemberSpaceIDs(ctx context.Context, profileID string) ([]string, error) {
	ids := []string{}
	if !validUUID(profileID) {
		return ids, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT space_id::text FROM space_members WHERE profile_id = $1 ORDER BY joined_at`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}
	return ids, nil
}
