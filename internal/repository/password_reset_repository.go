package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, userID, token string, expiresAt time.Time) error
	// Consume marks an unexpired, unused token as used and returns its user.
	Consume(ctx context.Context, token string) (string, error)
}

type passwordResetRepository struct {
	db *sql.DB
}

func NewPasswordResetRepository(db *sql.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

// Only a digest of the token is stored.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *passwordResetRepository) Create(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leaflens.password_resets (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)`, hashToken(token), userID, expiresAt)
	return err
}

func (r *passwordResetRepository) Consume(ctx context.Context, token string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx, `
		UPDATE leaflens.password_resets
		SET used_at = now()
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
		RETURNING user_id`, hashToken(token)).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrResetTokenInvalid
		}
		return "", err
	}
	return userID, nil
}
