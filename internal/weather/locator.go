package weather

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/leaflens/leaflens-host/internal/models"
)

var ErrLocationUnavailable = errors.New("location unavailable")

// Locator resolves the device position. Implementations should honour ctx
// for the bounded wait.
type Locator interface {
	Locate(ctx context.Context) (models.Coordinate, error)
}

// ReportedLocator serves positions reported by the device. A report older
// than maxAge is stale, and Locate waits for a fresh one until ctx is done.
type ReportedLocator struct {
	maxAge time.Duration
	now    func() time.Time

	mu       sync.Mutex
	last     *models.Coordinate
	at       time.Time
	denied   bool
	reported chan struct{}
}

func NewReportedLocator(maxAge time.Duration) *ReportedLocator {
	return &ReportedLocator{
		maxAge:   maxAge,
		now:      time.Now,
		reported: make(chan struct{}),
	}
}

// Report records a position from the device.
func (l *ReportedLocator) Report(c models.Coordinate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = &c
	l.at = l.now()
	l.denied = false
	close(l.reported)
	l.reported = make(chan struct{})
}

// Deny records that the device refused geolocation. Locate fails fast until
// the next Report.
func (l *ReportedLocator) Deny() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.denied = true
	close(l.reported)
	l.reported = make(chan struct{})
}

func (l *ReportedLocator) Locate(ctx context.Context) (models.Coordinate, error) {
	for {
		l.mu.Lock()
		if l.denied {
			l.mu.Unlock()
			return models.Coordinate{}, ErrLocationUnavailable
		}
		if l.last != nil && (l.maxAge <= 0 || l.now().Sub(l.at) <= l.maxAge) {
			c := *l.last
			l.mu.Unlock()
			return c, nil
		}
		wait := l.reported
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return models.Coordinate{}, errors.Join(ErrLocationUnavailable, ctx.Err())
		case <-wait:
		}
	}
}
