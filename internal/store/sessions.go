package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNoSession = errors.New("session not found")

// Sessions maps opaque tokens to profile ids with a fixed TTL.
type Sessions struct {
	kv  KV
	ttl time.Duration
}

func NewSessions(kv KV, ttl time.Duration) *Sessions {
	return &Sessions{kv: kv, ttl: ttl}
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

func sessionKey(token string) string {
	return "session:" + token
}

func (s *Sessions) Create(ctx context.Context, profileID string) (string, error) {
	token := uuid.NewString()
	if err := s.kv.Set(ctx, sessionKey(token), profileID, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Resolve returns the profile id behind token, or ErrNoSession.
func (s *Sessions) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}
	id, err := s.kv.Get(ctx, sessionKey(token))
	if errors.Is(err, ErrMiss) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	return id, nil
}

func (s *Sessions) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.kv.Delete(ctx, sessionKey(token))
}
