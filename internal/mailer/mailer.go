// Package mailer delivers account emails.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/resend/resend-go/v3"
	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/config"
)

// PasswordResetMailer sends the link that lets a user choose a new password.
type PasswordResetMailer interface {
	SendPasswordReset(ctx context.Context, recipientEmail, displayName, resetURL string) error
}

// New picks Resend when an API key is configured, SMTP when a host is, and a
// logging mailer otherwise.
func New(cfg config.EmailConfig, logger zerolog.Logger) (PasswordResetMailer, error) {
	switch {
	case strings.TrimSpace(cfg.ResendAPIKey) != "":
		return NewResendMailer(cfg)
	case strings.TrimSpace(cfg.SMTPHost) != "":
		return NewSMTPMailer(cfg)
	default:
		logger.Warn().Msg("no email transport configured, password reset links will only be logged")
		return NewLogMailer(logger), nil
	}
}

func resetSubject() string {
	return "Reset your LeafLens password"
}

func resetTextBody(displayName, resetURL string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "there"
	}
	body := strings.Builder{}
	body.WriteString(fmt.Sprintf("Hi %s,\n\n", name))
	body.WriteString("We received a request to reset the password for your LeafLens account.\n")
	body.WriteString("Open the link below to choose a new password:\n\n")
	body.WriteString(resetURL + "\n\n")
	body.WriteString("The link expires soon. If you did not ask for a reset, you can ignore this email.\n\n")
	body.WriteString("Happy growing,\nThe LeafLens Team\n")
	return body.String()
}

// SMTPMailer sends plain-text mail through an SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp_host is required")
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("email from address is required")
	}

	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		send:     smtp.SendMail,
	}, nil
}

func (m *SMTPMailer) SendPasswordReset(_ context.Context, recipientEmail, displayName, resetURL string) error {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		m.from, recipientEmail, resetSubject())
	message := []byte(headers + resetTextBody(displayName, resetURL))

	var auth smtp.Auth
	if strings.TrimSpace(m.username) != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	return m.send(fmt.Sprintf("%s:%d", m.host, m.port), auth, m.from, []string{recipientEmail}, message)
}

// ResendMailer sends HTML mail through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(cfg config.EmailConfig) (*ResendMailer, error) {
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("email from address is required")
	}
	return &ResendMailer{client: resend.NewClient(cfg.ResendAPIKey), from: cfg.From}, nil
}

func (m *ResendMailer) SendPasswordReset(ctx context.Context, recipientEmail, displayName, resetURL string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("LeafLens <%s>", m.from),
		To:      []string{recipientEmail},
		Subject: resetSubject(),
		Html:    resetHTMLBody(displayName, resetURL),
		Text:    resetTextBody(displayName, resetURL),
	}
	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("sending password reset via resend: %w", err)
	}
	return nil
}

func resetHTMLBody(displayName, resetURL string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #1f2937; max-width: 560px; margin: 0 auto; padding: 20px;">
	<div style="background: #16a34a; padding: 24px; text-align: center; border-radius: 10px 10px 0 0;">
		<h1 style="color: #ffffff; margin: 0;">LeafLens</h1>
	</div>
	<div style="background: #ffffff; padding: 24px; border: 1px solid #e5e7eb; border-top: none; border-radius: 0 0 10px 10px;">
		<p>Hi %s,</p>
		<p>We received a request to reset the password for your LeafLens account.</p>
		<p style="text-align: center; margin: 28px 0;">
			<a href="%s" style="background: #16a34a; color: #ffffff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">Choose a new password</a>
		</p>
		<p style="font-size: 13px; color: #6b7280;">If you did not ask for a reset, you can ignore this email.</p>
	</div>
</body>
</html>`, name, resetURL)
}

// LogMailer writes the reset link to the log. Used in development when no
// transport is configured.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, recipientEmail, _ string, resetURL string) error {
	m.logger.Info().Str("to", recipientEmail).Str("reset_url", resetURL).Msg("password reset requested")
	return nil
}
