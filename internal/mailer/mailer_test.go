package mailer

import (
	"bytes"
	"context"
	"net/smtp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaflens/leaflens-host/internal/config"
)

func TestNewPicksTransport(t *testing.T) {
	m, err := New(config.EmailConfig{ResendAPIKey: "re_123", From: "noreply@leaflens.test"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &ResendMailer{}, m)

	m, err = New(config.EmailConfig{SMTPHost: "smtp.leaflens.test", From: "noreply@leaflens.test"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	m, err = New(config.EmailConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	_, err = New(config.EmailConfig{SMTPHost: "smtp.leaflens.test"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSMTPMailerSendPasswordReset(t *testing.T) {
	m, err := NewSMTPMailer(config.EmailConfig{SMTPHost: "smtp.leaflens.test", From: "noreply@leaflens.test", Username: "u", Password: "p"})
	require.NoError(t, err)

	var (
		gotAddr string
		gotAuth smtp.Auth
		gotTo   []string
		gotMsg  []byte
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, msg
		return nil
	}

	require.NoError(t, m.SendPasswordReset(context.Background(), "fern@leaflens.test", "Fern", "https://app.test/reset?token=abc"))
	assert.Equal(t, "smtp.leaflens.test:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"fern@leaflens.test"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Reset your LeafLens password\r\n")
	assert.Contains(t, string(gotMsg), "Hi Fern,")
	assert.Contains(t, string(gotMsg), "https://app.test/reset?token=abc")
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(zerolog.New(&buf))

	require.NoError(t, m.SendPasswordReset(context.Background(), "fern@leaflens.test", "", "https://app.test/reset?token=abc"))
	assert.Contains(t, buf.String(), "reset?token=abc")
}

func TestResetBodiesGreetAnonymousUsers(t *testing.T) {
	assert.Contains(t, resetTextBody("  ", "u"), "Hi there,")
	assert.Contains(t, resetHTMLBody("", "https://x"), `href="https://x"`)
}
