package repository

import (
	"context"
	"database/sql"
	"fmt"

	"memberhub/internal/domain"
)

// PostgresPostsRepository implements PostsRepository on the posts table.
type PostgresPostsRepository struct {
	db *sql.DB
}

func NewPostgresPostsRepository(db *sql.DB) *PostgresPostsRepository {
	return &PostgresPostsRepository{db: db}
}

var _ PostsRepository = (*PostgresPostsRepository)(nil)

const postColumns = `id::text, space_id::text, author_id::text, title, body, pinned, created_at, updated_at`

func scanPost(row rowScanner) (*domain.Post, error) {
	var p domain.Post
	if err := row.Scan(&p.ID, &p.SpaceID, &p.AuthorID, &p.Title, &p.Body, &p.Pinned, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPostsRepository) CreatePost(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO posts (space_id, author_id, title, body, pinned)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+postColumns,
		p.SpaceID, p.AuthorID, p.Title, p.Body, p.Pinned,
	)
	created, err := scanPost(row)
	if err != nil {
		return nil, translateError(err, "post")
	}
	return created, nil
}

func (r *PostgresPostsRepository) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	if !validUUID(id) {
		return nil, notFound("post")
	}
	p, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		return nil, translateError(err, "post")
	}
	return p, nil
}

func (r *PostgresPostsRepository) ListPosts(ctx context.Context, spaceID string, page, size int) ([]*domain.Post, int, error) {
	page, size = normalizePage(page, size, 20)
	posts := []*domain.Post{}
	if !validUUID(spaceID) {
		return posts, 0, nil
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE space_id = $1`, spaceID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE space_id = $1
		ORDER BY pinned DESC, created_at DESC, id
		LIMIT $2 OFFSET $3`,
		spaceID, size, (page-1)*size,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, total, nil
}

func (r *PostgresPostsRepository) DeletePost(ctx context.Context, id string) error {
	if !validUUID(id) {
		return notFound("post")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return translateError(err, "post")
	}
	return expectAffected(res, "post")
}

func (r *PostgresPostsRepository) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}
