package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var (
	ErrGoogleNotConfigured = errors.New("google sign-in is not configured")
	ErrGoogleTokenInvalid  = errors.New("google ID token rejected")
)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleIdentity is the verified subset of a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifier checks ID tokens against Google's tokeninfo endpoint.
type GoogleVerifier struct {
	clientID     string
	tokenInfoURL string
	client       *http.Client
}

func NewGoogleVerifier(clientID, tokenInfoURL string) *GoogleVerifier {
	if tokenInfoURL == "" {
		tokenInfoURL = DefaultTokenInfoURL
	}
	return &GoogleVerifier{
		clientID:     strings.TrimSpace(clientID),
		tokenInfoURL: tokenInfoURL,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *GoogleVerifier) Configured() bool {
	return g != nil && g.clientID != ""
}

type tokenInfo struct {
	Audience      string `json:"aud"`
	Issuer        string `json:"iss"`
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
}

func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (GoogleIdentity, error) {
	if !g.Configured() {
		return GoogleIdentity{}, ErrGoogleNotConfigured
	}
	if strings.TrimSpace(idToken) == "" {
		return GoogleIdentity{}, ErrGoogleTokenInvalid
	}

	endpoint := g.tokenInfoURL + "?" + url.Values{"id_token": {idToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return GoogleIdentity{}, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("calling tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GoogleIdentity{}, ErrGoogleTokenInvalid
	}
	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return GoogleIdentity{}, fmt.Errorf("decoding tokeninfo: %w", err)
	}

	switch {
	case info.Audience != g.clientID:
		return GoogleIdentity{}, fmt.Errorf("%w: audience mismatch", ErrGoogleTokenInvalid)
	case !googleIssuers[info.Issuer]:
		return GoogleIdentity{}, fmt.Errorf("%w: unexpected issuer %q", ErrGoogleTokenInvalid, info.Issuer)
	case info.Subject == "" || info.Email == "":
		return GoogleIdentity{}, fmt.Errorf("%w: missing subject or email", ErrGoogleTokenInvalid)
	case info.EmailVerified != "true":
		return GoogleIdentity{}, fmt.Errorf("%w: email not verified", ErrGoogleTokenInvalid)
	}
	return GoogleIdentity{Subject: info.Subject, Email: info.Email, Name: info.Name}, nil
}
