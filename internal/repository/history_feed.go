package repository

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// WeatherHistoryChannel is the NOTIFY channel fed by the weather_history
// insert trigger.
const WeatherHistoryChannel = "weather_history"

type historyEvent struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// HistoryFeed fans weather_history notifications out to per-user watchers
// over a single LISTEN connection.
type HistoryFeed struct {
	logger   zerolog.Logger
	listener *pq.Listener
	done     chan struct{}

	mu       sync.Mutex
	nextID   int
	watchers map[string]map[int]chan string
}

// NewHistoryFeed opens a LISTEN connection on dsn and starts dispatching.
func NewHistoryFeed(dsn string, logger zerolog.Logger) (*HistoryFeed, error) {
	f := newHistoryFeed(logger)
	f.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			f.logger.Warn().Err(err).Int("event", int(ev)).Msg("weather history listener event")
		}
	})
	if err := f.listener.Listen(WeatherHistoryChannel); err != nil {
		f.listener.Close()
		return nil, err
	}
	go f.run()
	return f, nil
}

func newHistoryFeed(logger zerolog.Logger) *HistoryFeed {
	return &HistoryFeed{
		logger:   logger.With().Str("component", "weather_history_feed").Logger(),
		done:     make(chan struct{}),
		watchers: make(map[string]map[int]chan string),
	}
}

func (f *HistoryFeed) run() {
	for {
		select {
		case <-f.done:
			return
		case n, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect; entries inserted while disconnected are
			// not replayed
			if n == nil {
				f.logger.Info().Msg("weather history listener reconnected")
				continue
			}
			f.dispatch(n.Extra)
		case <-time.After(90 * time.Second):
			go func() {
				if err := f.listener.Ping(); err != nil {
					f.logger.Warn().Err(err).Msg("weather history listener ping failed")
				}
			}()
		}
	}
}

func (f *HistoryFeed) dispatch(payload string) {
	var ev historyEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.ID == "" || ev.UserID == "" {
		f.logger.Warn().Str("payload", payload).Msg("ignoring malformed weather history notification")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.watchers[ev.UserID] {
		select {
		case ch <- ev.ID:
		default:
			f.logger.Warn().Str("user_id", ev.UserID).Str("id", ev.ID).Msg("weather history watcher is lagging, dropping entry")
		}
	}
}

// subscribe returns a channel of new entry IDs for userID.
func (f *HistoryFeed) subscribe(userID string) (<-chan string, func()) {
	ch := make(chan string, 16)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	if f.watchers[userID] == nil {
		f.watchers[userID] = make(map[int]chan string)
	}
	f.watchers[userID][id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.watchers[userID], id)
			if len(f.watchers[userID]) == 0 {
				delete(f.watchers, userID)
			}
		})
	}
}

func (f *HistoryFeed) Close() error {
	close(f.done)
	if f.listener == nil {
		return nil
	}
	return f.listener.Close()
}
