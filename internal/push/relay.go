package push

import (
	"context"
	"errors"
	"sync"
)

var ErrNoToken = errors.New("no registration token available")

// RelayChannel is a push channel whose device side lives in the web shell.
// The shell reports the permission decision, the issued token and every
// foreground message over HTTP; the bridge consumes them here.
type RelayChannel struct {
	mu         sync.Mutex
	permission *bool
	token      string
	changed    chan struct{}
	nextID     int
	listeners  map[int]func(Message)
}

func NewRelayChannel() *RelayChannel {
	return &RelayChannel{
		changed:   make(chan struct{}),
		listeners: make(map[int]func(Message)),
	}
}

// RequestPermission waits for the device to report its decision.
func (c *RelayChannel) RequestPermission(ctx context.Context) (bool, error) {
	for {
		c.mu.Lock()
		if c.permission != nil {
			granted := *c.permission
			c.mu.Unlock()
			return granted, nil
		}
		wait := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-wait:
		}
	}
}

// Token waits for the device to report a registration token issued for
// vapidKey.
func (c *RelayChannel) Token(ctx context.Context, vapidKey string) (string, error) {
	for {
		c.mu.Lock()
		if c.permission != nil && !*c.permission {
			c.mu.Unlock()
			return "", ErrNoToken
		}
		if c.token != "" {
			token := c.token
			c.mu.Unlock()
			return token, nil
		}
		wait := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", errors.Join(ErrNoToken, ctx.Err())
		case <-wait:
		}
	}
}

func (c *RelayChannel) OnMessage(fn func(Message)) (stop func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *RelayChannel) ReportPermission(granted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permission = &granted
	c.wakeLocked()
}

func (c *RelayChannel) ReportToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.wakeLocked()
}

// Deliver hands a device-received message to every listener. It returns
// the number of listeners reached.
func (c *RelayChannel) Deliver(msg Message) int {
	c.mu.Lock()
	fns := make([]func(Message), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(msg)
	}
	return len(fns)
}

func (c *RelayChannel) wakeLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}
