package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/models"
)

type WeatherHistoryRepository interface {
	Append(ctx context.Context, entry models.WeatherHistoryEntry) error
	Recent(ctx context.Context, userID string, limit int) ([]models.WeatherHistoryEntry, error)
	Get(ctx context.Context, id string) (models.WeatherHistoryEntry, error)
	Watch(ctx context.Context, userID string, limit int, fn func([]models.WeatherHistoryEntry)) (func(), error)
}

type weatherHistoryRepository struct {
	db     *sql.DB
	feed   *HistoryFeed
	logger zerolog.Logger
}

// NewWeatherHistoryRepository builds the repository. Without a feed, Watch
// only delivers the initial batch.
func NewWeatherHistoryRepository(db *sql.DB, feed *HistoryFeed, logger zerolog.Logger) WeatherHistoryRepository {
	return &weatherHistoryRepository{
		db:     db,
		feed:   feed,
		logger: logger.With().Str("component", "weather_history_repository").Logger(),
	}
}

const historyColumns = `id, user_id, dedupe_key, condition, temperature, humidity, wind_speed, location, is_default_location, created_at`

func scanHistoryEntry(row rowScanner) (models.WeatherHistoryEntry, error) {
	var e models.WeatherHistoryEntry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.DedupeKey,
		&e.Condition,
		&e.Temperature,
		&e.Humidity,
		&e.WindSpeed,
		&e.Location,
		&e.IsDefaultLocation,
		&e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WeatherHistoryEntry{}, ErrNotFound
	}
	return e, err
}

func (r *weatherHistoryRepository) Append(ctx context.Context, e models.WeatherHistoryEntry) error {
	const query = `
		INSERT INTO leaflens.weather_history
			(user_id, dedupe_key, condition, temperature, humidity, wind_speed, location, is_default_location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		e.UserID, e.DedupeKey, e.Condition, e.Temperature, e.Humidity, e.WindSpeed, e.Location, e.IsDefaultLocation)
	return errors.Wrap(err, "failed to append weather history")
}

func (r *weatherHistoryRepository) Recent(ctx context.Context, userID string, limit int) ([]models.WeatherHistoryEntry, error) {
	query := `SELECT ` + historyColumns + `
		FROM leaflens.weather_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.WeatherHistoryEntry, 0, limit)
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *weatherHistoryRepository) Get(ctx context.Context, id string) (models.WeatherHistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM leaflens.weather_history WHERE id = $1`
	return scanHistoryEntry(r.db.QueryRowContext(ctx, query, id))
}

// Watch delivers the newest limit entries, then every entry appended later,
// until stop is called or ctx is done.
func (r *weatherHistoryRepository) Watch(ctx context.Context, userID string, limit int, fn func([]models.WeatherHistoryEntry)) (func(), error) {
	var (
		ids         <-chan string
		unsubscribe = func() {}
	)
	if r.feed != nil {
		ids, unsubscribe = r.feed.subscribe(userID)
	}

	initial, err := r.Recent(ctx, userID, limit)
	if err != nil {
		unsubscribe()
		return nil, errors.Wrap(err, "failed to query weather history")
	}
	if len(initial) > 0 {
		fn(initial)
	}
	if ids == nil {
		return unsubscribe, nil
	}

	seen := make(map[string]struct{}, len(initial))
	for _, e := range initial {
		seen[e.ID] = struct{}{}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	go r.follow(watchCtx, ids, seen, fn)

	return func() {
		unsubscribe()
		cancel()
	}, nil
}

func (r *weatherHistoryRepository) follow(ctx context.Context, ids <-chan string, seen map[string]struct{}, fn func([]models.WeatherHistoryEntry)) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-ids:
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			e, err := r.Get(ctx, id)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Warn().Err(err).Str("id", id).Msg("failed to load weather history entry")
				}
				continue
			}
			fn([]models.WeatherHistoryEntry{e})
		}
	}
}
