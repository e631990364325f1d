// Package cache provides the per-user key/value blob store the notification
// registry persists into.
package cache

import (
	"context"
	"errors"
)

// ErrMiss is returned by Get when nothing is stored under the key.
var ErrMiss = errors.New("cache: key not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}
