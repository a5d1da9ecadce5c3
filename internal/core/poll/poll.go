// Package poll runs a task on a fixed interval for as long as its subscriber
// lives. The storefront uses it in place of push notifications for chat.
package poll

import (
	"context"
	"sync"
	"time"
)

// Task is one polling tick. An error is reported to the Handle's OnError
// callback and does not stop the loop.
type Task func(ctx context.Context) error

// Handle controls a running poll loop.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Options tunes a poll loop.
type Options struct {
	// OnError is called with every failed tick.
	OnError func(error)
}

// Start runs task immediately and then every interval until ctx is done or
// Stop is called. Ticks never overlap: a slow tick delays the next one.
func Start(ctx context.Context, interval time.Duration, task Task, opts Options) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)

		run := func() {
			if err := task(ctx); err != nil && ctx.Err() == nil && opts.OnError != nil {
				opts.OnError(err)
			}
		}
		run()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				run()
			}
		}
	}()
	return h
}

// Stop cancels the loop and waits for the in-progress tick, if any, to return.
// It is safe to call more than once.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
