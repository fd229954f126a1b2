package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"memberhub/internal/domain"

	"github.com/lib/pq"
)

// PostgresConversationsRepository implements ConversationsRepository on
// conversations, conversation_participants and messages.
type PostgresConversationsRepository struct {
	db *sql.DB
}

func NewPostgresConversationsRepository(db *sql.DB) *PostgresConversationsRepository {
	return &PostgresConversationsRepository{db: db}
}

var _ ConversationsRepository = (*PostgresConversationsRepository)(nil)

func (r *PostgresConversationsRepository) FindDirectConversation(ctx context.Context, a, b string) (*domain.Conversation, error) {
	if !validUUID(a) || !validUUID(b) {
		return nil, notFound("conversation")
	}
	return r.byPairKey(ctx, domain.DirectPairKey(a, b))
}

func (r *PostgresConversationsRepository) byPairKey(ctx context.Context, key string) (*domain.Conversation, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id::text FROM conversations WHERE pair_key = $1`, key).Scan(&id)
	if err != nil {
		return nil, translateError(err, "conversation")
	}
	return r.GetConversation(ctx, id)
}

// CreateConversation inserts the thread and its participants in one transaction.
// Two-member threads carry a unique pair_key, so a concurrent start for the
// same pair returns the thread that won.
func (r *PostgresConversationsRepository) CreateConversation(ctx context.Context, participantIDs []string) (*domain.Conversation, error) {
	var pairKey sql.NullString
	if len(participantIDs) == 2 {
		pairKey = sql.NullString{String: domain.DirectPairKey(participantIDs[0], participantIDs[1]), Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	c := domain.Conversation{ParticipantIDs: append([]string(nil), participantIDs...)}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO conversations (pair_key) VALUES ($1)
		ON CONFLICT (pair_key) DO NOTHING
		RETURNING id::text, created_at, last_activity_at`,
		pairKey,
	).Scan(&c.ID, &c.CreatedAt, &c.LastActivityAt)
	if errors.Is(err, sql.ErrNoRows) && pairKey.Valid {
		_ = tx.Rollback()
		return r.byPairKey(ctx, pairKey.String)
	}
	if err != nil {
		return nil, translateError(err, "conversation")
	}

	for _, pid := range participantIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversation_participants (conversation_id, profile_id) VALUES ($1, $2)`,
			c.ID, pid,
		); err != nil {
			return nil, translateError(err, "conversation participant")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit conversation: %w", err)
	}
	return &c, nil
}

func (r *PostgresConversationsRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	if !validUUID(id) {
		return nil, notFound("conversation")
	}
	var c domain.Conversation
	var participants pq.StringArray
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id::text, c.created_at, c.last_activity_at,
		       ARRAY(SELECT p.profile_id::text FROM conversation_participants p
		             WHERE p.conversation_id = c.id ORDER BY p.profile_id)
		FROM conversations c
		WHERE c.id = $1`,
		id,
	).Scan(&c.ID, &c.CreatedAt, &c.LastActivityAt, &participants)
	if err != nil {
		return nil, translateError(err, "conversation")
	}
	c.ParticipantIDs = []string(participants)
	return &c, nil
}

func (r *PostgresConversationsRepository) ListInbox(ctx context.Context, profileID string) ([]domain.InboxRow, error) {
	out := []domain.InboxRow{}
	if !validUUID(profileID) {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id::text,
		       c.last_activity_at,
		       COALESCE((SELECT o.profile_id::text FROM conversation_participants o
		                 WHERE o.conversation_id = c.id AND o.profile_id <> $1 LIMIT 1), ''),
		       lm.id::text, lm.sender_id::text, lm.body, lm.created_at,
		       (SELECT COUNT(*) FROM messages m
		         WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND m.created_at > me.last_read_at)
		FROM conversation_participants me
		JOIN conversations c ON c.id = me.conversation_id
		LEFT JOIN LATERAL (
			SELECT id, sender_id, body, created_at FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY created_at DESC
			LIMIT 1
		) lm ON true
		WHERE me.profile_id = $1
		ORDER BY c.last_activity_at DESC, c.id`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			row                 domain.InboxRow
			msgID, sender, body sql.NullString
			msgAt               sql.NullTime
		)
		if err := rows.Scan(&row.ConversationID, &row.LastActivityAt, &row.OtherID,
			&msgID, &sender, &body, &msgAt, &row.UnreadCount); err != nil {
			return nil, fmt.Errorf("failed to scan inbox row: %w", err)
		}
		if msgID.Valid {
			row.LastMessage = &domain.Message{
				ID:             msgID.String,
				ConversationID: row.ConversationID,
				SenderID:       sender.String,
				Body:           body.String,
				CreatedAt:      msgAt.Time,
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inbox: %w", err)
	}
	return out, nil
}

func (r *PostgresConversationsRepository) ListMessages(ctx context.Context, conversationID string, cursor domain.MessageCursor, limit int) ([]*domain.Message, error) {
	msgs := []*domain.Message{}
	if !validUUID(conversationID) || (cursor.BeforeID != "" && !validUUID(cursor.BeforeID)) {
		return msgs, nil
	}
	if limit <= 0 {
		limit = 50
	}

	where := "conversation_id = $1"
	args := []any{conversationID}
	switch {
	case cursor.IsZero():
	case cursor.BeforeID != "":
		where += " AND (created_at, id) < ($2, $3::uuid)"
		args = append(args, cursor.Before, cursor.BeforeID)
	default:
		where += " AND created_at < $2"
		args = append(args, cursor.Before)
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id::text, conversation_id::text, sender_id::text, body, created_at
		FROM messages
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`, where, len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, nil
}

func (r *PostgresConversationsRepository) CreateMessage(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := *m
	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at`,
		m.ConversationID, m.SenderID, m.Body, m.CreatedAt,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, translateError(err, "message")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_activity_at = $1 WHERE id = $2`,
		created.CreatedAt, m.ConversationID,
	); err != nil {
		return nil, translateError(err, "conversation")
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return &created, nil
}

func (r *PostgresConversationsRepository) MarkRead(ctx context.Context, conversationID, profileID string, at time.Time) error {
	if !validUUID(conversationID) || !validUUID(profileID) {
		return notFound("conversation participant")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversation_participants SET last_read_at = GREATEST(last_read_at, $1)
		WHERE conversation_id = $2 AND profile_id = $3`,
		at, conversationID, profileID,
	)
	if err != nil {
		return translateError(err, "conversation participant")
	}
	return expectAffected(res, "conversation participant")
}

func (r *PostgresConversationsRepository) CountUnread(ctx context.Context, profileID string) (int, error) {
	if !validUUID(profileID) {
		return 0, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversation_participants me ON me.conversation_id = m.conversation_id AND me.profile_id = $1
		WHERE m.sender_id <> $1 AND m.created_at > me.last_read_at`,
		profileID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}

func (r *PostgresConversationsRepository) CountMessagesSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE created_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}
