package repository

import (
	"context"
	"database/sql"

	"github.com/leaflens/leaflens-host/internal/models"
)

type PushTokenRepository interface {
	SaveToken(ctx context.Context, token models.PushToken) error
	ListByUser(ctx context.Context, userID string) ([]models.PushToken, error)
	DeleteToken(ctx context.Context, token string) error
}

type pushTokenRepository struct {
	db *sql.DB
}

func NewPushTokenRepository(db *sql.DB) PushTokenRepository {
	return &pushTokenRepository{db: db}
}

// SaveToken registers a device token, moving it to the given user if another
// account held it before.
func (r *pushTokenRepository) SaveToken(ctx context.Context, token models.PushToken) error {
	const query = `
		INSERT INTO leaflens.push_tokens (token, user_id, device_info)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, device_info = EXCLUDED.device_info, updated_at = now()`
	_, err := r.db.ExecContext(ctx, query, token.Token, token.UserID, token.DeviceInfo)
	return err
}

func (r *pushTokenRepository) ListByUser(ctx context.Context, userID string) ([]models.PushToken, error) {
	const query = `
		SELECT user_id, token, device_info, created_at, updated_at
		FROM leaflens.push_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := make([]models.PushToken, 0)
	for rows.Next() {
		var t models.PushToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.DeviceInfo, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *pushTokenRepository) DeleteToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM leaflens.push_tokens WHERE token = $1`, token)
	return err
}
