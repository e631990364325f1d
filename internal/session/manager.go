// Package session owns the per-user composition of notification registry,
// weather poller and push bridge.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/cache"
	"github.com/leaflens/leaflens-host/internal/notification"
	"github.com/leaflens/leaflens-host/internal/push"
	"github.com/leaflens/leaflens-host/internal/weather"
)

const DefaultLocationMaxAge = 5 * time.Minute

type Config struct {
	VAPIDKey       string
	LocationMaxAge time.Duration
	Poller         weather.PollerConfig
}

// Session is everything that lives while one user is signed in.
type Session struct {
	UserID   string
	Registry *notification.Registry
	Poller   *weather.Poller
	Push     *push.Bridge
	Relay    *push.RelayChannel
	Locator  *weather.ReportedLocator

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	chatModel string
}

// EnablePush runs the push bridge initialisation again, for instance after
// the user granted permission from the settings screen.
func (s *Session) EnablePush(ctx context.Context) error {
	return s.Push.Init(ctx)
}

// ChatModel returns the chat model the user picked, or "" for the default.
func (s *Session) ChatModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatModel
}

func (s *Session) SetChatModel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatModel = id
}

type Manager struct {
	store    cache.Store
	provider weather.Provider
	history  weather.HistoryStore
	tokens   push.TokenStore
	cfg      Config
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	opening  map[string]chan struct{}
}

func NewManager(store cache.Store, provider weather.Provider, history weather.HistoryStore, tokens push.TokenStore, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.LocationMaxAge <= 0 {
		cfg.LocationMaxAge = DefaultLocationMaxAge
	}
	return &Manager{
		store:    store,
		provider: provider,
		history:  history,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger.With().Str("component", "session_manager").Logger(),
		sessions: make(map[string]*Session),
		opening:  make(map[string]chan struct{}),
	}
}

// Open starts the session of userID, or returns the one already running.
// The registry is scoped to the user and the remote weather history is
// replayed before Open returns; locating and push setup continue in the
// background. Concurrent calls for the same user wait for the first one.
func (m *Manager) Open(ctx context.Context, userID, deviceInfo string) *Session {
	for {
		m.mu.Lock()
		if s, ok := m.sessions[userID]; ok {
			m.mu.Unlock()
			return s
		}
		if wait, ok := m.opening[userID]; ok {
			m.mu.Unlock()
			<-wait
			continue
		}
		done := make(chan struct{})
		m.opening[userID] = done
		m.mu.Unlock()

		s := m.build(ctx, userID, deviceInfo)

		m.mu.Lock()
		m.sessions[userID] = s
		delete(m.opening, userID)
		close(done)
		m.mu.Unlock()

		m.logger.Info().Str("user_id", userID).Msg("session opened")
		return s
	}
}

// build runs without m.mu held: SubscribeToRemote queries the history store.
func (m *Manager) build(ctx context.Context, userID, deviceInfo string) *Session {
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	logger := m.logger.With().Str("user_id", userID).Logger()

	relay := push.NewRelayChannel()
	registry := notification.NewRegistry(sctx, m.store, logger, notification.WithPermissionRequester(relay))
	registry.SetUser(sctx, userID)

	locator := weather.NewReportedLocator(m.cfg.LocationMaxAge)
	poller := weather.NewPoller(m.provider, locator, registry, m.history, logger, m.cfg.Poller)
	if err := poller.SubscribeToRemote(sctx, userID); err != nil {
		logger.Warn().Err(err).Msg("continuing without weather history replay")
	}

	s := &Session{
		UserID:   userID,
		Registry: registry,
		Poller:   poller,
		Push:     push.NewBridge(userID, m.cfg.VAPIDKey, deviceInfo, registry, relay, m.tokens, logger),
		Relay:    relay,
		Locator:  locator,
		cancel:   cancel,
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		poller.Init(sctx)
	}()
	go func() {
		defer s.wg.Done()
		if err := s.Push.Init(sctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Info().Err(err).Msg("push notifications not enabled")
		}
	}()
	return s
}

func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Close stops the user's poller and push bridge and returns the registry to
// the guest scope. It reports whether a session was open.
func (m *Manager) Close(userID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.shutdown(s)
	return true
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		m.shutdown(s)
	}
}

func (m *Manager) shutdown(s *Session) {
	s.cancel()
	s.wg.Wait()
	s.Poller.Stop()
	s.Push.Close()
	s.Registry.SetUser(context.Background(), "")
	m.logger.Info().Str("user_id", s.UserID).Msg("session closed")
}
