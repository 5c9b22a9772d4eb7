package auth

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

// PasswordReset is a pending reset. Only the token hash is stored.
type PasswordReset struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// ResetStore keeps reset tokens until they are used or expire.
type ResetStore interface {
	Save(ctx context.Context, reset PasswordReset) error
	// Consume marks the token used and returns its user, or ErrInvalidResetToken.
	Consume(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

type MemoryResetStore struct {
	mu     sync.Mutex
	resets map[string]PasswordReset
}

func NewMemoryResetStore() *MemoryResetStore {
	return &MemoryResetStore{resets: make(map[string]PasswordReset)}
}

func (s *MemoryResetStore) Save(ctx context.Context, reset PasswordReset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.resets[reset.TokenHash] = reset
	s.mu.Unlock()
	return nil
}

func (s *MemoryResetStore) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reset, ok := s.resets[tokenHash]
	if !ok {
		return "", ErrInvalidResetToken
	}
	delete(s.resets, tokenHash)
	if now.After(reset.ExpiresAt) {
		return "", ErrInvalidResetToken
	}
	return reset.UserID, nil
}

type PGResetStore struct {
	DB *sql.DB
}

func (s *PGResetStore) Save(ctx context.Context, reset PasswordReset) error {
	const query = `
INSERT INTO password_resets (token_hash, user_id, expires_at, created_at)
VALUES ($1, $2, $3, now())`
	_, err := s.DB.ExecContext(ctx, query, reset.TokenHash, reset.UserID, reset.ExpiresAt)
	return err
}

func (s *PGResetStore) Consume(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	const query = `
UPDATE password_resets
SET used_at = $2
WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
RETURNING user_id`
	var userID string
	err := s.DB.QueryRowContext(ctx, query, tokenHash, now).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidResetToken
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
