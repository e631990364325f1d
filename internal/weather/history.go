package weather

import (
	"context"

	"github.com/leaflens/leaflens-host/internal/models"
)

// HistoryLimit caps how many of the newest entries a watch replays first.
const HistoryLimit = 20

// HistoryStore keeps the per-user remote weather history.
//
// Watch delivers the newest entries (up to limit, newest first) as one batch,
// then each entry appended afterwards as its own batch, until the returned
// stop function is called or ctx is done.
type HistoryStore interface {
	Append(ctx context.Context, entry models.WeatherHistoryEntry) error
	Watch(ctx context.Context, userID string, limit int, fn func([]models.WeatherHistoryEntry)) (stop func(), err error)
}
