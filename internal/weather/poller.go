package weather

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/models"
)

const (
	DefaultInterval      = 30 * time.Minute
	DefaultLocateTimeout = 10 * time.Second
)

type State int

const (
	StateIdle State = iota
	StateLocating
	StateFetching
	StateNotified
)

func (s State) String() string {
	switch s {
	case StateLocating:
		return "locating"
	case StateFetching:
		return "fetching"
	case StateNotified:
		return "notified"
	default:
		return "idle"
	}
}

// Notifier receives the notifications the poller produces.
type Notifier interface {
	AddNotification(ctx context.Context, in models.NotificationInput) (*models.Notification, error)
}

type PollerConfig struct {
	Interval      time.Duration
	LocateTimeout time.Duration
	Now           func() time.Time
}

// Poller emits one weather notification per cycle: once right after Init and
// then every Interval until Stop.
type Poller struct {
	provider Provider
	locator  Locator
	notifier Notifier
	history  HistoryStore
	logger   zerolog.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	// lifeMu serialises Init, SetLocation and Stop so halt and start pair up.
	lifeMu  sync.Mutex
	cycleMu sync.Mutex

	mu         sync.Mutex
	state      State
	location   *models.Coordinate
	manual     bool
	isDefault  bool
	userID     string
	cancel     context.CancelFunc
	done       chan struct{}
	stopRemote func()
}

func NewPoller(provider Provider, locator Locator, notifier Notifier, history HistoryStore, logger zerolog.Logger, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.LocateTimeout <= 0 {
		cfg.LocateTimeout = DefaultLocateTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Poller{
		provider: provider,
		locator:  locator,
		notifier: notifier,
		history:  history,
		logger:   logger.With().Str("component", "weather_poller").Logger(),
		interval: cfg.Interval,
		timeout:  cfg.LocateTimeout,
		now:      cfg.Now,
	}
}

// Init resolves the location and starts the update loop. Calling Init again
// restarts the loop.
func (p *Poller) Init(ctx context.Context) {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()

	p.halt()
	p.setState(StateLocating)
	p.locate(ctx)
	p.start(ctx)
}

// Stop cancels the update loop and the remote history subscription.
func (p *Poller) Stop() {
	p.lifeMu.Lock()
	p.halt()
	p.lifeMu.Unlock()

	p.unsubscribeRemote()
	p.setState(StateIdle)
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Location returns the coordinate in use and whether it is the fallback.
func (p *Poller) Location() (models.Coordinate, bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.location == nil {
		return models.Coordinate{}, false, false
	}
	return *p.location, p.isDefault, true
}

// SetLocation overrides the device location and, if the loop is running,
// restarts it so the next cycle runs immediately.
func (p *Poller) SetLocation(ctx context.Context, lat, lon float64) {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()

	p.mu.Lock()
	p.location = &models.Coordinate{Lat: lat, Lon: lon}
	p.manual = true
	p.isDefault = false
	running := p.cancel != nil
	p.mu.Unlock()

	if running {
		p.halt()
		p.start(ctx)
	}
}

// Refresh runs one cycle synchronously: locate if needed, fetch, notify and
// record the reading in the user's history.
func (p *Poller) Refresh(ctx context.Context) (models.WeatherSnapshot, error) {
	return p.refresh(ctx, false)
}

// refresh retries the locator when relocate is set and the poller is on the
// fallback location.
func (p *Poller) refresh(ctx context.Context, relocate bool) (models.WeatherSnapshot, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	p.mu.Lock()
	needsLocation := p.location == nil || (relocate && p.isDefault && !p.manual)
	previous := p.state
	p.mu.Unlock()
	if needsLocation {
		p.setState(StateLocating)
		p.locate(ctx)
	}

	p.mu.Lock()
	coord, isDefault := *p.location, p.isDefault
	p.state = StateFetching
	p.mu.Unlock()

	reading, err := p.provider.Current(ctx, coord)
	if err != nil {
		p.setState(previous)
		return models.WeatherSnapshot{}, errors.Wrap(err, "fetching current weather")
	}

	snapshot := snapshotFrom(reading, coord, isDefault, p.now())
	p.emit(ctx, snapshot)
	p.setState(StateNotified)
	return snapshot, nil
}

// SubscribeToRemote replays the user's remote history into the notifier and
// keeps following it. An empty userID only cancels the current subscription.
func (p *Poller) SubscribeToRemote(ctx context.Context, userID string) error {
	p.unsubscribeRemote()

	p.mu.Lock()
	p.userID = userID
	p.mu.Unlock()

	if userID == "" || p.history == nil {
		return nil
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop, err := p.history.Watch(watchCtx, userID, HistoryLimit, func(batch []models.WeatherHistoryEntry) {
		p.replay(watchCtx, batch)
	})
	if err != nil {
		cancel()
		p.logger.Error().Err(err).Str("user_id", userID).Msg("failed to subscribe to weather history")
		return errors.Wrap(err, "watching weather history")
	}

	p.mu.Lock()
	p.stopRemote = func() {
		stop()
		cancel()
	}
	p.mu.Unlock()
	return nil
}

// replay adds the batch oldest first so the newest entry ends up on top.
func (p *Poller) replay(ctx context.Context, batch []models.WeatherHistoryEntry) {
	for i := len(batch) - 1; i >= 0; i-- {
		if _, err := p.notifier.AddNotification(ctx, NotificationFor(batch[i].Snapshot())); err != nil {
			p.logger.Warn().Err(err).Str("key", batch[i].DedupeKey).Msg("failed to replay weather entry")
		}
	}
}

func (p *Poller) emit(ctx context.Context, s models.WeatherSnapshot) {
	added, err := p.notifier.AddNotification(ctx, NotificationFor(s))
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to add weather notification")
		return
	}
	if added == nil {
		return
	}

	p.mu.Lock()
	userID := p.userID
	p.mu.Unlock()
	if userID == "" || p.history == nil {
		return
	}
	if err := p.history.Append(ctx, models.HistoryEntryFromSnapshot(userID, s)); err != nil {
		p.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to store weather history")
	}
}

func (p *Poller) locate(ctx context.Context) {
	p.mu.Lock()
	if p.manual && p.location != nil {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	coord, isDefault := DefaultLocation, true
	if p.locator != nil {
		lctx, cancel := context.WithTimeout(ctx, p.timeout)
		c, err := p.locator.Locate(lctx)
		cancel()
		if err != nil {
			p.logger.Info().Err(err).Msg("location unavailable, using default location")
		} else {
			coord, isDefault = c, false
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.manual {
		return
	}
	if isDefault && p.location != nil && !p.isDefault {
		// keep the last known position over the fallback
		return
	}
	p.location = &coord
	p.isDefault = isDefault
}

func (p *Poller) start(parent context.Context) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		p.cycle(ctx, false)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.cycle(ctx, true)
			}
		}
	}()
}

func (p *Poller) cycle(ctx context.Context, relocate bool) {
	if _, err := p.refresh(ctx, relocate); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error().Err(err).Msg("weather update failed")
	}
}

func (p *Poller) halt() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *Poller) unsubscribeRemote() {
	p.mu.Lock()
	stop := p.stopRemote
	p.stopRemote = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}
