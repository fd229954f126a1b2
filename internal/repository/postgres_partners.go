package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"memberhub/internal/domain"
)

// PostgresPartnersRepository implements PartnersRepository on the partners table.
type PostgresPartnersRepository struct {
	db *sql.DB
}

func NewPostgresPartnersRepository(db *sql.DB) *PostgresPartnersRepository {
	return &PostgresPartnersRepository{db: db}
}

var _ PartnersRepository = (*PostgresPartnersRepository)(nil)

const partnerColumns = `id::text, name, category, description, website, perk, min_tier, logo_url, created_at`

func scanPartner(row rowScanner) (*domain.Partner, error) {
	var p domain.Partner
	var tier string
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.Website, &p.Perk, &tier, &p.LogoURL, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.MinTier = domain.Tier(tier)
	return &p, nil
}

func (r *PostgresPartnersRepository) ListPartners(ctx context.Context, category string) ([]*domain.Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners`
	args := []any{}
	if c := strings.TrimSpace(category); c != "" {
		query += ` WHERE lower(category) = lower($1)`
		args = append(args, c)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}
	defer rows.Close()

	partners := []*domain.Partner{}
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate partners: %w", err)
	}
	return partners, nil
}

func (r *PostgresPartnersRepository) GetPartner(ctx context.Context, id string) (*domain.Partner, error) {
	if !validUUID(id) {
		return nil, notFound("partner")
	}
	p, err := scanPartner(r.db.QueryRowContext(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1`, id))
	if err != nil {
		return nil, translateError(err, "partner")
	}
	return p, nil
}

func (r *PostgresPartnersRepository) CreatePartner(ctx context.Context, p *domain.Partner) (*domain.Partner, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO partners (name, category, description, website, perk, min_tier, logo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+partnerColumns,
		p.Name, p.Category, p.Description, p.Website, p.Perk, string(p.MinTier), p.LogoURL,
	)
	created, err := scanPartner(row)
	if err != nil {
		return nil, translateError(err, "partner")
	}
	return created, nil
}

func (r *PostgresPartnersRepository) UpdatePartner(ctx context.Context, id string, in domain.PartnerInput) (*domain.Partner, error) {
	if !validUUID(id) {
		return nil, notFound("partner")
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE partners
		SET name = $1, category = $2, description = $3, website = $4, perk = $5, min_tier = $6, logo_url = $7
		WHERE id = $8
		RETURNING `+partnerColumns,
		in.Name, in.Category, in.Description, in.Website, in.Perk, string(in.MinTier), in.LogoURL, id,
	)
	p, err := scanPartner(row)
	if err != nil {
		return nil, translateError(err, "partner")
	}
	return p, nil
}

func (r *PostgresPartnersRepository) DeletePartner(ctx context.Context, id string) error {
	if !validUUID(id) {
		return notFound("partner")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM partners WHERE id = $1`, id)
	if err != nil {
		return translateError(err, "partner")
	}
	return expectAffected(res, "partner")
}
