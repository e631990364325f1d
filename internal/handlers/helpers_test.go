package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/leaflens/leaflens-host/internal/authz"
	"github.com/leaflens/leaflens-host/internal/cache"
	"github.com/leaflens/leaflens-host/internal/models"
	"github.com/leaflens/leaflens-host/internal/session"
	"github.com/leaflens/leaflens-host/internal/weather"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Close() error { return nil }

type stubProvider struct{}

func (stubProvider) Current(context.Context, models.Coordinate) (weather.Reading, error) {
	return weather.Reading{Condition: "Rain", Temperature: 12.6, Humidity: 88, WindSpeed: 5.1, IconCode: "10d", Location: "Leiden"}, nil
}

// newSessions returns a session manager whose pollers never reach a real
// provider and whose loops are stopped when the test ends.
func newSessions(t *testing.T) *session.Manager {
	t.Helper()
	m := session.NewManager(&memStore{data: map[string]string{}}, stubProvider{}, nil, nil, session.Config{
		Poller: weather.PollerConfig{Interval: time.Hour, LocateTimeout: 20 * time.Millisecond},
	}, zerolog.Nop())
	t.Cleanup(m.CloseAll)
	return m
}

// settledSession opens a session, waits for its first weather cycle and
// stops the poller so later assertions see no background notifications.
func settledSession(t *testing.T, sessions *session.Manager, userID string) *session.Session {
	t.Helper()
	sess := sessions.Open(context.Background(), userID, "")
	require.Eventually(t, func() bool {
		return sess.Poller.State() == weather.StateNotified
	}, 2*time.Second, 5*time.Millisecond)
	sess.Poller.Stop()
	return sess
}

func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(authz.WithIdentity(r.Context(), userID, userID+"@leaflens.test"))
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}
