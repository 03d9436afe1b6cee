package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/sitrep-feeds/internal/observability"
	"github.com/couchcryptid/sitrep-feeds/internal/snapshot"
)

// Target is a cache the warmer can refresh without knowing its item type.
// *snapshot.Cache[T] implements it.
type Target interface {
	Name() string
	HasLive() bool
	Warm(ctx context.Context) snapshot.Provenance
}

// initialBackoff is the first retry delay for a target that did not produce
// live data.
const initialBackoff = time.Second

// Warmer refreshes every target on an interval so requests are served from a
// warm cache. Live refreshes also run the caches' hooks, which is how
// snapshots reach Kafka.
type Warmer struct {
	targets  []Target
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewWarmer creates a warmer refreshing targets every interval.
func NewWarmer(targets []Target, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Warmer {
	return &Warmer{
		targets:  targets,
		interval: interval,
		logger:   logger.With("component", "warmer"),
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once every target has fetched live data at least
// once, or an error naming the ones that have not.
func (w *Warmer) CheckReadiness(_ context.Context) error {
	var pending []string
	for _, t := range w.targets {
		if !t.HasLive() {
			pending = append(pending, t.Name())
		}
	}
	if len(pending) > 0 {
		return fmt.Errorf("no live data yet from: %s", strings.Join(pending, ", "))
	}
	return nil
}

// schedule tracks when one target is next due and how long to back off if
// it comes back degraded again.
type schedule struct {
	target  Target
	due     time.Time
	backoff time.Duration
}

// Run refreshes all targets until the context is cancelled. Each target keeps
// its own schedule: a live refresh makes it due again after the interval, a
// degraded one after an exponential backoff capped at the interval.
func (w *Warmer) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return errors.New("warmer interval must be positive")
	}
	w.logger.Info("warmer started", "interval", w.interval, "targets", len(w.targets))
	w.metrics.WarmerRunning.Set(1)
	defer w.metrics.WarmerRunning.Set(0)

	resetBackoff := min(initialBackoff, w.interval)
	schedules := make([]schedule, len(w.targets))
	for i, t := range w.targets {
		schedules[i] = schedule{target: t, backoff: resetBackoff}
	}

	for {
		for i := range schedules {
			s := &schedules[i]
			if time.Now().Before(s.due) {
				continue
			}
			live := w.warm(ctx, s.target)
			if ctx.Err() != nil {
				w.logger.Info("warmer stopping", "reason", ctx.Err())
				return nil
			}
			if live {
				s.backoff = resetBackoff
				s.due = time.Now().Add(w.interval)
			} else {
				s.due = time.Now().Add(s.backoff)
				s.backoff = sharedretry.NextBackoff(s.backoff, w.interval)
			}
		}

		if !sharedretry.SleepWithContext(ctx, time.Until(nextDue(schedules, w.interval))) {
			w.logger.Info("warmer stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func nextDue(schedules []schedule, interval time.Duration) time.Time {
	next := time.Now().Add(interval)
	for _, s := range schedules {
		if s.due.Before(next) {
			next = s.due
		}
	}
	return next
}

// warm refreshes one target and reports whether it produced live data.
func (w *Warmer) warm(ctx context.Context, t Target) bool {
	start := time.Now()
	p := t.Warm(ctx)
	if p != snapshot.Live {
		w.logger.Warn("warm refresh degraded", "source", t.Name(), "provenance", p)
		return false
	}
	w.logger.Debug("warm refresh", "source", t.Name(), "duration", time.Since(start))
	return true
}

// AlwaysReady is the readiness checker used when no warmer runs: caches fill
// on demand, so there is nothing to wait for.
type AlwaysReady struct{}

// CheckReadiness always returns nil.
func (AlwaysReady) CheckReadiness(context.Context) error { return nil }
