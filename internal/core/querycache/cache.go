package querycache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/pkg/metrics"
)

const (
	defaultSize         = 2048
	defaultFetchTimeout = 30 * time.Second
)

type entry struct {
	key       Key
	value     any
	fetchedAt time.Time
}

// invalidation is one Invalidate call, remembered for as long as a fetch
// started before it could still be running.
type invalidation struct {
	seq      uint64
	at       time.Time
	patterns []Pattern
}

// Cache is the process-wide server-state cache.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *entry]
	// seq numbers invalidations. A fetch started at seq n is not stored when
	// a later invalidation in recent matches its key.
	seq    uint64
	recent []invalidation
	group  singleflight.Group

	notifier     notify.Notifier
	log          zerolog.Logger
	now          func() time.Time
	fetchTimeout time.Duration
}

// Option customises a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithFetchTimeout bounds every backend fetch issued by the cache.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// New creates a cache holding at most size entries.
func New(size int, notifier notify.Notifier, log zerolog.Logger, opts ...Option) (*Cache, error) {
	if size <= 0 {
		size = defaultSize
	}
	entries, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, fmt.Errorf("querycache: %w", err)
	}
	if notifier == nil {
		notifier = notify.ContextNotifier{}
	}
	c := &Cache{
		entries:      entries,
		notifier:     notifier,
		log:          log,
		now:          time.Now,
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetcher loads the remote value for a key.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Query returns the value for key, fetching it when absent or stale.
func Query[T any](ctx context.Context, c *Cache, key Key, p Policy, fetch Fetcher[T]) (T, error) {
	if e, ok := c.lookup(key); ok {
		age := c.now().Sub(e.fetchedAt)
		if age < p.StaleTime {
			metrics.CacheRequestsTotal.WithLabelValues(key.Resource, "hit").Inc()
			v, _ := e.value.(T)
			return v, nil
		}
		if p.Background {
			metrics.CacheRequestsTotal.WithLabelValues(key.Resource, "stale").Inc()
			c.refreshAsync(ctx, key, erase(fetch))
			v, _ := e.value.(T)
			return v, nil
		}
	}

	metrics.CacheRequestsTotal.WithLabelValues(key.Resource, "miss").Inc()
	return load(ctx, c, key, fetch)
}

// Refresh refetches key regardless of freshness. Concurrent refreshes of the
// same key still share one backend call.
func Refresh[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T]) (T, error) {
	metrics.CacheRequestsTotal.WithLabelValues(key.Resource, "refresh").Inc()
	return load(ctx, c, key, fetch)
}

func load[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T]) (T, error) {
	var zero T
	v, err := c.load(ctx, key, erase(fetch))
	if err != nil {
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

func erase[T any](fetch Fetcher[T]) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

// load runs fetch at most once per key between two invalidations of that
// key. The fetch is detached from the caller's cancellation: a caller that
// goes away stops waiting, but the response still lands in the cache.
func (c *Cache) load(ctx context.Context, key Key, fetch func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	started := c.seq
	flight := key.String() + "#" + strconv.FormatUint(c.lastInvalidation(key), 10)
	c.mu.Unlock()

	ch := c.group.DoChan(flight, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		c.store(key, v, started)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) refreshAsync(ctx context.Context, key Key, fetch func(context.Context) (any, error)) {
	go func() {
		if _, err := c.load(context.WithoutCancel(ctx), key, fetch); err != nil {
			c.log.Warn().Err(err).Str("key", key.String()).Msg("background refresh failed")
		}
	}()
}

func (c *Cache) lookup(key Key) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(key.String())
}

func (c *Cache) store(key Key, v any, started uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastInvalidation(key) > started {
		c.log.Debug().Str("key", key.String()).Msg("discarding fetch superseded by invalidation")
		return
	}
	c.entries.Add(key.String(), &entry{key: key, value: v, fetchedAt: c.now()})
}

// lastInvalidation returns the seq of the newest remembered invalidation
// matching key, or 0. Must be called with mu held.
func (c *Cache) lastInvalidation(key Key) uint64 {
	for i := len(c.recent) - 1; i >= 0; i-- {
		for _, p := range c.recent[i].patterns {
			if p.Matches(key) {
				return c.recent[i].seq
			}
		}
	}
	return 0
}

// remember records an invalidation and forgets those no running fetch can
// predate. Must be called with mu held.
func (c *Cache) remember(patterns []Pattern) {
	now := c.now()
	horizon := now.Add(-2 * c.fetchTimeout)
	keep := c.recent[:0]
	for _, inv := range c.recent {
		if inv.at.After(horizon) {
			keep = append(keep, inv)
		}
	}
	c.seq++
	c.recent = append(keep, invalidation{seq: c.seq, at: now, patterns: append([]Pattern(nil), patterns...)})
}

// Invalidate drops every entry matched by any of the patterns and returns the
// number of entries removed.
func (c *Cache) Invalidate(patterns ...Pattern) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remember(patterns)
	removed := 0
	for _, k := range c.entries.Keys() {
		e, ok := c.entries.Peek(k)
		if !ok {
			continue
		}
		for _, p := range patterns {
			if p.Matches(e.key) {
				c.entries.Remove(k)
				metrics.CacheInvalidationsTotal.WithLabelValues(e.key.Resource).Inc()
				removed++
				break
			}
		}
	}
	return removed
}

// Contains reports whether key currently has an entry, fresh or not.
func (c *Cache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Contains(key.String())
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
