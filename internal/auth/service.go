// Package auth implements account sign-up, sign-in, password reset and
// Google federation on top of the user repository.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/mailer"
	"github.com/leaflens/leaflens-host/internal/models"
	"github.com/leaflens/leaflens-host/internal/repository"
)

// MinPasswordLength matches the identity provider the mobile app used.
const MinPasswordLength = 6

var (
	ErrInvalidEmail = errors.New("a valid email address is required")
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// Result is what every successful sign-in flow returns.
type Result struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type Service struct {
	users    repository.UserRepository
	resets   repository.PasswordResetRepository
	mailer   mailer.PasswordResetMailer
	tokens   *TokenIssuer
	google   *GoogleVerifier
	resetTTL time.Duration
	resetURL string
	logger   zerolog.Logger
	now      func() time.Time
}

type ServiceConfig struct {
	ResetTTL         time.Duration
	ResetURLTemplate string
}

func NewService(
	users repository.UserRepository,
	resets repository.PasswordResetRepository,
	resetMailer mailer.PasswordResetMailer,
	tokens *TokenIssuer,
	google *GoogleVerifier,
	cfg ServiceConfig,
	logger zerolog.Logger,
) *Service {
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	return &Service{
		users:    users,
		resets:   resets,
		mailer:   resetMailer,
		tokens:   tokens,
		google:   google,
		resetTTL: cfg.ResetTTL,
		resetURL: cfg.ResetURLTemplate,
		logger:   logger.With().Str("component", "auth").Logger(),
		now:      time.Now,
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	return err == nil && addr.Address == strings.TrimSpace(email)
}

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Result, error) {
	if !validEmail(email) {
		return Result{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return Result{}, ErrWeakPassword
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = strings.SplitN(strings.TrimSpace(email), "@", 2)[0]
	}

	user, err := s.users.CreateUser(ctx, email, password, displayName)
	if err != nil {
		return Result{}, err
	}
	return s.issue(user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Result, error) {
	user, err := s.users.AuthenticateUser(ctx, email, password)
	if err != nil {
		return Result{}, err
	}
	return s.issue(user)
}

func (s *Service) SignInWithGoogle(ctx context.Context, idToken string) (Result, error) {
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return Result{}, err
	}
	user, err := s.users.UpsertGoogleUser(ctx, identity.Subject, identity.Email, identity.Name)
	if err != nil {
		return Result{}, err
	}
	return s.issue(user)
}

// RequestPasswordReset mails a reset link. Unknown addresses succeed silently
// so the endpoint cannot be used to probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if !validEmail(email) {
		return ErrInvalidEmail
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Debug().Msg("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := generateResetToken()
	if err != nil {
		return err
	}
	if err := s.resets.Create(ctx, user.ID, token, s.now().Add(s.resetTTL)); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}
	resetURL := fmt.Sprintf(s.resetURL, token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.DisplayName, resetURL); err != nil {
		return fmt.Errorf("sending reset email: %w", err)
	}
	s.logger.Info().Str("user_id", user.ID).Msg("password reset email sent")
	return nil
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	userID, err := s.resets.Consume(ctx, strings.TrimSpace(token))
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, newPassword)
}

// User loads the account behind a verified token subject.
func (s *Service) User(ctx context.Context, userID string) (models.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

func (s *Service) issue(user models.User) (Result, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return Result{}, fmt.Errorf("signing token: %w", err)
	}
	return Result{User: user, Token: token}, nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
