package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/leaflens/leaflens-host/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, email, password, displayName string) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpsertGoogleUser(ctx context.Context, subject, email, displayName string) (models.User, error)
	UpdatePassword(ctx context.Context, userID, password string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, display_name, COALESCE(password_hash, ''), provider, is_active, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.Provider,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *userRepository) CreateUser(ctx context.Context, email, password, displayName string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	query := `
		INSERT INTO leaflens.users (email, display_name, password_hash, provider)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	user, err := scanUser(u.db.QueryRowContext(ctx, query, normalizeEmail(email), strings.TrimSpace(displayName), string(hash), models.AuthProviderPassword))
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

func (u *userRepository) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	user, err := u.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if !user.IsActive {
		return models.User{}, ErrUserInactive
	}
	if user.PasswordHash == "" {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (u *userRepository) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM leaflens.users WHERE id = $1`
	return scanUser(u.db.QueryRowContext(ctx, query, userID))
}

func (u *userRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM leaflens.users WHERE lower(email) = $1`
	return scanUser(u.db.QueryRowContext(ctx, query, normalizeEmail(email)))
}

// UpsertGoogleUser finds the user linked to a Google subject, links an
// existing account with the same email, or creates a new one.
func (u *userRepository) UpsertGoogleUser(ctx context.Context, subject, email, displayName string) (models.User, error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, err
	}
	defer tx.Rollback()

	user, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM leaflens.users WHERE google_sub = $1`, subject))
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		user, err = scanUser(tx.QueryRowContext(ctx, `
			UPDATE leaflens.users
			SET google_sub = $2, updated_at = now()
			WHERE lower(email) = $1
			RETURNING `+userColumns, normalizeEmail(email), subject))
		if errors.Is(err, ErrNotFound) {
			user, err = scanUser(tx.QueryRowContext(ctx, `
				INSERT INTO leaflens.users (email, display_name, provider, google_sub)
				VALUES ($1, $2, $3, $4)
				RETURNING `+userColumns, normalizeEmail(email), strings.TrimSpace(displayName), models.AuthProviderGoogle, subject))
		}
		if err != nil {
			return models.User{}, err
		}
	default:
		return models.User{}, err
	}

	if !user.IsActive {
		return models.User{}, ErrUserInactive
	}
	if err := tx.Commit(); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (u *userRepository) UpdatePassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	result, err := u.db.ExecContext(ctx, `
		UPDATE leaflens.users
		SET password_hash = $2, updated_at = now()
		WHERE id = $1`, userID, string(hash))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
