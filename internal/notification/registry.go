// Package notification holds the per-user notification registry: an ordered,
// de-duplicated list that is persisted to the local cache and broadcast to
// subscribers after every change.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/cache"
	"github.com/leaflens/leaflens-host/internal/models"
)

const (
	// GuestScope is the scope used when no user is signed in.
	GuestScope = "guest"
	// ToastDuration is how long a toast stays visible.
	ToastDuration = 5 * time.Second
)

var ErrInvalidNotification = errors.New("invalid notification")

// PermissionRequester asks the platform for permission to deliver push
// notifications.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) (bool, error)
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(r *Registry) { r.newID = newID }
}

func WithPermissionRequester(p PermissionRequester) Option {
	return func(r *Registry) { r.permissions = p }
}

// Registry is the authoritative in-process list of notifications for exactly
// one scope at a time. Records are kept newest-first in insertion order.
//
// Subscriber callbacks run outside the state lock but are serialised, so
// every subscriber observes broadcasts in mutation order. A callback must not
// call a mutating Registry method synchronously.
type Registry struct {
	store       cache.Store
	permissions PermissionRequester
	logger      zerolog.Logger
	now         func() time.Time
	newID       func() string

	mu            sync.Mutex
	scope         string
	notifications []models.Notification

	broadcastMu sync.Mutex

	subsMu      sync.Mutex
	nextSubID   int
	subscribers map[int]func([]models.Notification)
	toastSubs   map[int]func(models.Toast)
}

// NewRegistry builds a registry scoped to the guest user, loading whatever
// the cache holds for that scope.
func NewRegistry(ctx context.Context, store cache.Store, logger zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		store:       store,
		logger:      logger.With().Str("component", "notification_registry").Logger(),
		now:         time.Now,
		newID:       uuid.NewString,
		scope:       GuestScope,
		subscribers: make(map[int]func([]models.Notification)),
		toastSubs:   make(map[int]func(models.Toast)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.notifications = r.load(ctx, r.scope)
	return r
}

func storageKey(scope string) string {
	return "notifications:" + scope
}

// SetUser switches the registry to userID ("" selects the guest scope) and
// replaces the in-memory list with that scope's persisted list.
func (r *Registry) SetUser(ctx context.Context, userID string) {
	scope := strings.TrimSpace(userID)
	if scope == "" {
		scope = GuestScope
	}
	loaded := r.load(ctx, scope)

	r.mu.Lock()
	r.scope = scope
	r.notifications = loaded
	r.publishAndUnlock()
}

// Scope returns the active scope.
func (r *Registry) Scope() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scope
}

// Clear drops every record of the active scope.
func (r *Registry) Clear(ctx context.Context) {
	r.mu.Lock()
	r.notifications = nil
	r.persistLocked(ctx)
	r.publishAndUnlock()
}

// AddNotification inserts a notification. It returns (nil, nil) when the
// input duplicates a held record by key, title and message, and for toasts,
// which are displayed but never stored.
func (r *Registry) AddNotification(ctx context.Context, in models.NotificationInput) (*models.Notification, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if in.Key != "" && r.containsLocked(in.Key, in.Title, in.Message) {
		r.mu.Unlock()
		r.logger.Debug().Str("key", in.Key).Msg("duplicate notification suppressed")
		return nil, nil
	}

	icon := in.Icon
	if icon == "" {
		icon = in.Category.DefaultIcon()
	}
	n := models.Notification{
		ID:        r.newID(),
		Type:      in.Type,
		Category:  in.Category,
		Title:     in.Title,
		Message:   in.Message,
		Icon:      icon,
		Timestamp: r.now(),
		Key:       in.Key,
		Data:      in.Data,
	}

	if !in.Type.Stored() {
		r.mu.Unlock()
		r.showToast(n)
		return nil, nil
	}

	r.notifications = append([]models.Notification{n}, r.notifications...)
	r.persistLocked(ctx)
	r.publishAndUnlock()
	return &n, nil
}

// PlantSaved records that a plant was added to the user's favorites.
func (r *Registry) PlantSaved(ctx context.Context, plantName string) (*models.Notification, error) {
	return r.AddNotification(ctx, models.NotificationInput{
		Type:     models.NotificationTypeInApp,
		Category: models.NotificationCategoryPlant,
		Title:    "Plant Saved",
		Message:  fmt.Sprintf("%s has been added to your favorites", plantName),
		Icon:     "🌿",
	})
}

// Notifications returns a copy of the list, newest first.
func (r *Registry) Notifications() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) ByCategory(category models.NotificationCategory) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	filtered := make([]models.Notification, 0)
	for _, n := range r.notifications {
		if n.Category == category {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

func (r *Registry) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, n := range r.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkAsRead flags the record with the given id as read. It reports whether
// the id was found; an unknown id changes nothing and broadcasts nothing.
func (r *Registry) MarkAsRead(ctx context.Context, id string) bool {
	r.mu.Lock()
	for i := range r.notifications {
		if r.notifications[i].ID == id {
			r.notifications[i].Read = true
			r.persistLocked(ctx)
			r.publishAndUnlock()
			return true
		}
	}
	r.mu.Unlock()
	return false
}

// MarkAllAsRead flags every record as read and always broadcasts.
func (r *Registry) MarkAllAsRead(ctx context.Context) {
	r.mu.Lock()
	for i := range r.notifications {
		r.notifications[i].Read = true
	}
	r.persistLocked(ctx)
	r.publishAndUnlock()
}

// Subscribe registers fn to receive the full list after every change.
func (r *Registry) Subscribe(fn func([]models.Notification)) (unsubscribe func()) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = fn
	return func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		delete(r.subscribers, id)
	}
}

// SubscribeToasts registers fn to receive transient toast events.
func (r *Registry) SubscribeToasts(fn func(models.Toast)) (unsubscribe func()) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	r.toastSubs[id] = fn
	return func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		delete(r.toastSubs, id)
	}
}

// RequestPushPermission never fails: any error is reported as a denial.
func (r *Registry) RequestPushPermission(ctx context.Context) (granted bool) {
	if r.permissions == nil {
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Msg("push permission request panicked")
			granted = false
		}
	}()

	granted, err := r.permissions.RequestPermission(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("error requesting notification permission")
		return false
	}
	return granted
}

func validate(in models.NotificationInput) error {
	switch {
	case !in.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, in.Type)
	case !in.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidNotification, in.Category)
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidNotification)
	case strings.TrimSpace(in.Message) == "":
		return fmt.Errorf("%w: message is required", ErrInvalidNotification)
	}
	return nil
}

func (r *Registry) containsLocked(key, title, message string) bool {
	for _, n := range r.notifications {
		if n.Key == key && n.Title == title && n.Message == message {
			return true
		}
	}
	return false
}

func (r *Registry) snapshotLocked() []models.Notification {
	out := make([]models.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

func (r *Registry) load(ctx context.Context, scope string) []models.Notification {
	if r.store == nil {
		return nil
	}
	raw, err := r.store.Get(ctx, storageKey(scope))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			r.logger.Warn().Err(err).Str("scope", scope).Msg("failed to load notifications")
		}
		return nil
	}
	var list []models.Notification
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		r.logger.Warn().Err(err).Str("scope", scope).Msg("discarding unreadable notification cache")
		return nil
	}
	return list
}

// persistLocked is best effort; the in-memory list stays authoritative.
func (r *Registry) persistLocked(ctx context.Context) {
	if r.store == nil {
		return
	}
	list := r.notifications
	if list == nil {
		list = []models.Notification{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		r.logger.Warn().Err(err).Str("scope", r.scope).Msg("failed to encode notifications")
		return
	}
	if err := r.store.Set(ctx, storageKey(r.scope), string(raw)); err != nil {
		r.logger.Warn().Err(err).Str("scope", r.scope).Msg("failed to persist notifications")
	}
}

// publishAndUnlock must be called with r.mu held. It hands over to the
// broadcast lock before releasing the state lock so broadcasts keep
// mutation order.
func (r *Registry) publishAndUnlock() {
	snapshot := r.snapshotLocked()
	r.broadcastMu.Lock()
	r.mu.Unlock()
	defer r.broadcastMu.Unlock()

	r.subsMu.Lock()
	subs := make([]func([]models.Notification), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subs = append(subs, fn)
	}
	r.subsMu.Unlock()

	for _, fn := range subs {
		list := make([]models.Notification, len(snapshot))
		copy(list, snapshot)
		r.deliver(func() { fn(list) })
	}
}

func (r *Registry) showToast(n models.Notification) {
	toast := models.Toast{
		ID:       n.ID,
		Category: n.Category,
		Title:    n.Title,
		Message:  n.Message,
		Icon:     n.Icon,
		Duration: ToastDuration,
		ShownAt:  n.Timestamp,
	}

	r.subsMu.Lock()
	subs := make([]func(models.Toast), 0, len(r.toastSubs))
	for _, fn := range r.toastSubs {
		subs = append(subs, fn)
	}
	r.subsMu.Unlock()

	for _, fn := range subs {
		r.deliver(func() { fn(toast) })
	}
}

func (r *Registry) deliver(call func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Interface("panic", rec).Msg("notification subscriber panicked")
		}
	}()
	call()
}
