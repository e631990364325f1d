// Package push forwards messages from the device push channel into the
// notification registry.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/models"
)

const tokenTimeout = 30 * time.Second

var ErrPermissionDenied = errors.New("push permission denied")

// Message is a foreground message as delivered by the push channel.
type Message struct {
	Title    string                      `json:"title"`
	Body     string                      `json:"body"`
	Icon     string                      `json:"icon,omitempty"`
	Category models.NotificationCategory `json:"category,omitempty"`
	Data     json.RawMessage             `json:"data,omitempty"`
}

type Channel interface {
	Token(ctx context.Context, vapidKey string) (string, error)
	OnMessage(fn func(Message)) (stop func())
}

type TokenStore interface {
	SaveToken(ctx context.Context, token models.PushToken) error
}

// Registry is the part of the notification registry the bridge needs.
type Registry interface {
	AddNotification(ctx context.Context, in models.NotificationInput) (*models.Notification, error)
	RequestPushPermission(ctx context.Context) bool
}

type Bridge struct {
	userID     string
	vapidKey   string
	deviceInfo string
	registry   Registry
	channel    Channel
	tokens     TokenStore
	logger     zerolog.Logger

	initMu sync.Mutex

	mu          sync.Mutex
	initialized bool
	token       string
	stop        func()
}

func NewBridge(userID, vapidKey, deviceInfo string, registry Registry, channel Channel, tokens TokenStore, logger zerolog.Logger) *Bridge {
	return &Bridge{
		userID:     userID,
		vapidKey:   vapidKey,
		deviceInfo: deviceInfo,
		registry:   registry,
		channel:    channel,
		tokens:     tokens,
		logger:     logger.With().Str("component", "push_bridge").Str("user_id", userID).Logger(),
	}
}

// Init asks for permission, registers the device token and starts
// forwarding messages. It runs once; later calls are no-ops. Token failures
// are logged and do not prevent message forwarding.
func (b *Bridge) Init(ctx context.Context) error {
	b.initMu.Lock()
	defer b.initMu.Unlock()
	if b.Initialized() {
		return nil
	}

	if !b.registry.RequestPushPermission(ctx) {
		return ErrPermissionDenied
	}

	if err := b.updateToken(ctx); err != nil {
		b.logger.Error().Err(err).Msg("error getting push token")
	}

	stop := b.channel.OnMessage(b.forward)
	b.mu.Lock()
	b.stop = stop
	b.initialized = true
	b.mu.Unlock()
	return nil
}

func (b *Bridge) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

func (b *Bridge) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// Close stops forwarding messages.
func (b *Bridge) Close() {
	b.initMu.Lock()
	defer b.initMu.Unlock()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stop != nil {
		b.stop()
		b.stop = nil
	}
	b.initialized = false
}

func (b *Bridge) updateToken(ctx context.Context) error {
	key, err := ValidVAPIDKey(b.vapidKey)
	if err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(ctx, tokenTimeout)
	defer cancel()
	token, err := b.channel.Token(tctx, key)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.token = token
	b.mu.Unlock()

	if b.tokens == nil || b.userID == "" {
		return nil
	}
	return b.tokens.SaveToken(ctx, models.PushToken{
		UserID:     b.userID,
		Token:      token,
		DeviceInfo: b.deviceInfo,
	})
}

func (b *Bridge) forward(msg Message) {
	category := msg.Category
	if !category.Valid() {
		category = models.NotificationCategorySystem
	}
	icon := msg.Icon
	if icon == "" {
		icon = "🔔"
	}

	_, err := b.registry.AddNotification(context.Background(), models.NotificationInput{
		Type:     models.NotificationTypePush,
		Category: category,
		Title:    msg.Title,
		Message:  msg.Body,
		Icon:     icon,
		Data:     msg.Data,
	})
	if err != nil {
		b.logger.Warn().Err(err).Str("title", msg.Title).Msg("dropping push message")
	}
}
