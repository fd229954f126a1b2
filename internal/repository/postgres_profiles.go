package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"memberhub/internal/domain"

	"github.com/lib/pq"
)

// PostgresProfilesRepository implements ProfilesRepository on the profiles table.
type PostgresProfilesRepository struct {
	db *sql.DB
}

func NewPostgresProfilesRepository(db *sql.DB) *PostgresProfilesRepository {
	return &PostgresProfilesRepository{db: db}
}

var _ ProfilesRepository = (*PostgresProfilesRepository)(nil)

const profileColumns = `
	id::text, email, password_hash, full_name, headline, bio, location, company,
	avatar_url, tier, role, status, interests, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var (
		p         domain.Profile
		tier      string
		role      string
		status    string
		interests pq.StringArray
	)
	err := row.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.FullName, &p.Headline, &p.Bio, &p.Location, &p.Company,
		&p.AvatarURL, &tier, &role, &status, &interests, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Tier = domain.Tier(tier)
	p.Role = domain.Role(role)
	p.Status = domain.ProfileStatus(status)
	p.Interests = []string(interests)
	if p.Interests == nil {
		p.Interests = []string{}
	}
	return &p, nil
}

func (r *PostgresProfilesRepository) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	if p == nil || p.Email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	query := `
		INSERT INTO profiles (email, password_hash, full_name, headline, bio, location, company,
		                      avatar_url, tier, role, status, interests)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + profileColumns

	row := r.db.QueryRowContext(ctx, query,
		p.Email, p.PasswordHash, p.FullName, p.Headline, p.Bio, p.Location, p.Company,
		p.AvatarURL, string(p.Tier), string(p.Role), string(p.Status), pq.Array(nonNil(p.Interests)),
	)
	created, err := scanProfile(row)
	if err != nil {
		return nil, translateError(err, "profile")
	}
	return created, nil
}

func (r *PostgresProfilesRepository) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	if !validUUID(id) {
		return nil, notFound("profile")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		return nil, translateError(err, "profile")
	}
	return p, nil
}

func (r *PostgresProfilesRepository) GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	if email == "" {
		return nil, notFound("profile")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
	p, err := scanProfile(row)
	if err != nil {
		return nil, translateError(err, "profile")
	}
	return p, nil
}

func (r *PostgresProfilesRepository) GetProfiles(ctx context.Context, ids []string) (map[string]*domain.Profile, error) {
	out := make(map[string]*domain.Profile, len(ids))
	ids = filterUUIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return nil, translateError(err, "profile")
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s literally anywhere, like strings.Contains.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (r *PostgresProfilesRepository) ListProfiles(ctx context.Context, filter domain.ProfileFilter, page, size int) ([]*domain.Profile, int, error) {
	page, size = normalizePage(page, size, 24)

	where := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if !filter.IncludeSuspended {
		where = append(where, "status = 'active'")
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, fmt.Sprintf(
			`(full_name ILIKE $%d ESCAPE '\' OR headline ILIKE $%d ESCAPE '\' OR company ILIKE $%d ESCAPE '\' OR bio ILIKE $%d ESCAPE '\')`,
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, containsPattern(q))
		argIdx++
	}
	if filter.Tier != "" {
		where = append(where, fmt.Sprintf("tier = $%d", argIdx))
		args = append(args, string(filter.Tier))
		argIdx++
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		where = append(where, fmt.Sprintf(`location ILIKE $%d ESCAPE '\'`, argIdx))
		args = append(args, containsPattern(loc))
		argIdx++
	}
	if interest := strings.ToLower(strings.TrimSpace(filter.Interest)); interest != "" {
		where = append(where, fmt.Sprintf("$%d = ANY(interests)", argIdx))
		args = append(args, interest)
		argIdx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM profiles WHERE %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count profiles: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM profiles
		WHERE %s
		ORDER BY lower(full_name), id
		LIMIT $%d OFFSET $%d
	`, profileColumns, whereClause, argIdx, argIdx+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []*domain.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, total, nil
}

func (r *PostgresProfilesRepository) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Profile, error) {
	if !validUUID(id) {
		return nil, notFound("profile")
	}
	sets := []string{}
	args := []any{}
	argIdx := 1
	add := func(column string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, v)
		argIdx++
	}

	if patch.FullName != nil {
		add("full_name", *patch.FullName)
	}
	if patch.Headline != nil {
		add("headline", *patch.Headline)
	}
	if patch.Bio != nil {
		add("bio", *patch.Bio)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.Company != nil {
		add("company", *patch.Company)
	}
	if patch.AvatarURL != nil {
		add("avatar_url", *patch.AvatarURL)
	}
	if patch.Interests != nil {
		add("interests", pq.Array(patch.Interests))
	}
	if len(sets) == 0 {
		return r.GetProfile(ctx, id)
	}
	sets = append(sets, "updated_at = now()")

	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argIdx, profileColumns)
	args = append(args, id)

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translateError(err, "profile")
	}
	return p, nil
}

func (r *PostgresProfilesRepository) UpdateMembership(ctx context.Context, id string, tier domain.Tier, role domain.Role, status domain.ProfileStatus) (*domain.Profile, error) {
	if !validUUID(id) {
		return nil, notFound("profile")
	}
	query := `
		UPDATE profiles
		SET tier = $1, role = $2, status = $3, updated_at = now()
		WHERE id = $4
		RETURNING ` + profileColumns
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, string(tier), string(role), string(status), id))
	if err != nil {
		return nil, translateError(err, "profile")
	}
	return p, nil
}

func (r *PostgresProfilesRepository) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	if !validUUID(id) {
		return notFound("profile")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id)
	if err != nil {
		return translateError(err, "profile")
	}
	return expectAffected(res, "profile")
}

func (r *PostgresProfilesRepository) CountProfiles(ctx context.Context) (*ProfileCounts, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tier, status, COUNT(*) FROM profiles GROUP BY tier, status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}
	defer rows.Close()

	counts := &ProfileCounts{ByTier: map[domain.Tier]int{}}
	for _, t := range domain.Tiers() {
		counts.ByTier[t] = 0
	}
	for rows.Next() {
		var tier, status string
		var n int
		if err := rows.Scan(&tier, &status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan profile counts: %w", err)
		}
		counts.Total += n
		counts.ByTier[domain.Tier(tier)] += n
		if domain.ProfileStatus(status) == domain.StatusSuspended {
			counts.Suspended += n
		} else {
			counts.Active += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profile counts: %w", err)
	}
	return counts, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
