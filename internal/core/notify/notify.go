// Package notify carries toast-style notifications from services to the view
// that triggered them. A Collector is attached to each request context and
// drained into the response envelope.
package notify

import (
	"context"
	"sync"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Action is an optional call to action rendered next to the message.
type Action struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

type Notification struct {
	Level   Level   `json:"level"`
	Message string  `json:"message"`
	Action  *Action `json:"action,omitempty"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Collector accumulates notifications for one request or one websocket frame.
type Collector struct {
	mu    sync.Mutex
	items []Notification
}

func (c *Collector) add(n Notification) {
	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()
}

// Drain returns the collected notifications and empties the collector.
func (c *Collector) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.items
	c.items = nil
	return out
}

type collectorKey struct{}

// WithCollector returns a context carrying a fresh Collector.
func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

// FromContext returns the Collector attached to ctx, if any.
func FromContext(ctx context.Context) (*Collector, bool) {
	c, ok := ctx.Value(collectorKey{}).(*Collector)
	return c, ok
}

// ContextNotifier delivers notifications to the Collector found in the
// context. Notifications raised outside a request are dropped.
type ContextNotifier struct{}

func (ContextNotifier) Notify(ctx context.Context, n Notification) {
	if c, ok := FromContext(ctx); ok {
		c.add(n)
	}
}

func Success(ctx context.Context, to Notifier, msg string) {
	to.Notify(ctx, Notification{Level: LevelSuccess, Message: msg})
}

func Error(ctx context.Context, to Notifier, msg string, action *Action) {
	to.Notify(ctx, Notification{Level: LevelError, Message: msg, Action: action})
}
