package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"memberhub/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// translateError maps driver errors onto domain sentinels.
// what names the entity ("profile", "space", ...).
func translateError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %w", what, domain.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%s already exists: %w", what, domain.ErrConflict)
	}
	return fmt.Errorf("%s query failed: %w", what, err)
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, domain.ErrNotFound)
}

// expectAffected turns a zero-row UPDATE/DELETE into ErrNotFound.
func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return notFound(what)
	}
	return nil
}

// validUUID guards uuid columns so malformed ids read as "not found"
// instead of a driver syntax error.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func filterUUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if validUUID(id) {
			out = append(out, id)
		}
	}
	return out
}
