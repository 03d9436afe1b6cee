// Package snapshot holds the last good result of an upstream feed and decides
// when to refresh it, when to keep serving it, and when to fall back to
// curated data.
package snapshot

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/sitrep-feeds/internal/observability"
)

// Provenance tells the consumer where a snapshot came from.
type Provenance string

const (
	// Live items were fetched by this call (or the refresh it joined).
	Live Provenance = "live"
	// Cached items are younger than the TTL and were served without fetching.
	Cached Provenance = "cached"
	// Stale items outlived the TTL and the refresh failed or came back empty.
	Stale Provenance = "stale"
	// Fallback items are curated data; no fetch has ever succeeded.
	Fallback Provenance = "fallback"
)

// Snapshot is what a caller receives. FetchedAt is zero for fallback data.
type Snapshot[T any] struct {
	Items      []T
	FetchedAt  time.Time
	Provenance Provenance
}

// Fetcher loads the current items from upstream. A nil error with no items
// means the upstream answered but had nothing; an error means it failed.
type Fetcher[T any] interface {
	Fetch(ctx context.Context) ([]T, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

func (f FetchFunc[T]) Fetch(ctx context.Context) ([]T, error) { return f(ctx) }

// RefreshHook observes every successful, non-empty refresh.
type RefreshHook[T any] func(ctx context.Context, s Snapshot[T])

type entry[T any] struct {
	items     []T
	fetchedAt time.Time
}

// Cache is a TTL cache with stale-on-error and a static fallback.
//
// The snapshot is replaced with a single pointer swap at the end of a
// successful non-empty fetch, so readers see either the old or the new list.
// Concurrent refreshes are collapsed into one upstream call.
type Cache[T any] struct {
	name     string
	ttl      time.Duration
	fetcher  Fetcher[T]
	fallback func(now time.Time) []T

	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	hooks   []RefreshHook[T]

	current atomic.Pointer[entry[T]]
	group   singleflight.Group
}

// Option configures a Cache.
type Option[T any] func(*Cache[T])

// WithClock sets the time source. Defaults to the real clock.
func WithClock[T any](clock clockwork.Clock) Option[T] {
	return func(c *Cache[T]) { c.clock = clock }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(c *Cache[T]) { c.logger = logger }
}

// WithMetrics enables cache lookup and provenance counters.
func WithMetrics[T any](m *observability.Metrics) Option[T] {
	return func(c *Cache[T]) { c.metrics = m }
}

// WithRefreshHook registers a hook run after each live refresh. Hooks run on
// the refreshing goroutine and delay the callers waiting on that refresh.
func WithRefreshHook[T any](hook RefreshHook[T]) Option[T] {
	return func(c *Cache[T]) { c.hooks = append(c.hooks, hook) }
}

// New creates an empty cache. name labels logs and metrics; fallback builds
// the curated list served until the first successful fetch.
func New[T any](name string, ttl time.Duration, fetcher Fetcher[T], fallback func(now time.Time) []T, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		name:     name,
		ttl:      ttl,
		fetcher:  fetcher,
		fallback: fallback,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("source", name)
	return c
}

// Name returns the source label the cache was created with.
func (c *Cache[T]) Name() string { return c.name }

// HasLive reports whether any fetch has ever succeeded.
func (c *Cache[T]) HasLive() bool { return c.current.Load() != nil }

// Get returns fresh cached items, or refreshes. It never fails: a failed or
// empty refresh yields the last good items, or the fallback when there are none.
//
// A caller whose context ends while a refresh is in flight gets the degraded
// answer immediately; the refresh itself carries on for the other waiters.
func (c *Cache[T]) Get(ctx context.Context) Snapshot[T] {
	now := c.clock.Now()
	if snap, ok := c.fresh(now); ok {
		c.lookup("fresh")
		return c.serve(snap)
	}
	if c.HasLive() {
		c.lookup("stale")
	} else {
		c.lookup("empty")
	}

	ch := c.group.DoChan(c.name, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		return c.serve(res.Val.(Snapshot[T]))
	case <-ctx.Done():
		return c.serve(c.degraded(now))
	}
}

// Refresh forces an upstream fetch regardless of age, joining any refresh
// already in flight.
func (c *Cache[T]) Refresh(ctx context.Context) Snapshot[T] {
	v, _, _ := c.group.Do(c.name, func() (any, error) {
		return c.fetchAndStore(ctx), nil
	})
	return v.(Snapshot[T])
}

// Warm forces a refresh and reports only where the result came from.
func (c *Cache[T]) Warm(ctx context.Context) Provenance {
	return c.Refresh(ctx).Provenance
}

func (c *Cache[T]) fresh(now time.Time) (Snapshot[T], bool) {
	e := c.current.Load()
	if e == nil || now.Sub(e.fetchedAt) >= c.ttl {
		return Snapshot[T]{}, false
	}
	return Snapshot[T]{Items: e.items, FetchedAt: e.fetchedAt, Provenance: Cached}, true
}

// refresh re-checks freshness first: a caller that queued behind a finished
// refresh must not trigger another upstream call.
func (c *Cache[T]) refresh(ctx context.Context) Snapshot[T] {
	if snap, ok := c.fresh(c.clock.Now()); ok {
		return snap
	}
	return c.fetchAndStore(ctx)
}

func (c *Cache[T]) fetchAndStore(ctx context.Context) Snapshot[T] {
	start := c.clock.Now()
	items, err := c.fetcher.Fetch(ctx)
	switch {
	case err != nil:
		c.logger.Warn("refresh failed", "error", err, "has_cache", c.HasLive())
		return c.degraded(start)
	case len(items) == 0:
		c.logger.Info("refresh returned no items", "has_cache", c.HasLive())
		return c.degraded(start)
	}

	c.current.Store(&entry[T]{items: items, fetchedAt: start})
	snap := Snapshot[T]{Items: items, FetchedAt: start, Provenance: Live}
	c.logger.Debug("refreshed", "items", len(items))
	for _, hook := range c.hooks {
		hook(ctx, snap)
	}
	return snap
}

func (c *Cache[T]) degraded(now time.Time) Snapshot[T] {
	if e := c.current.Load(); e != nil {
		return Snapshot[T]{Items: e.items, FetchedAt: e.fetchedAt, Provenance: Stale}
	}
	if c.fallback == nil {
		return Snapshot[T]{Provenance: Fallback}
	}
	return Snapshot[T]{Items: c.fallback(now), Provenance: Fallback}
}

func (c *Cache[T]) serve(s Snapshot[T]) Snapshot[T] {
	if c.metrics != nil {
		c.metrics.SnapshotsServed.WithLabelValues(c.name, string(s.Provenance)).Inc()
	}
	return s
}

func (c *Cache[T]) lookup(result string) {
	if c.metrics != nil {
		c.metrics.CacheLookups.WithLabelValues(c.name, result).Inc()
	}
}
