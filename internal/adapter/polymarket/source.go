// Package polymarket turns open Polymarket events into conflict-relevant
// predictions, optionally backed by a persisted probability history.
package polymarket

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sitrep-feeds/internal/domain"
	"github.com/couchcryptid/sitrep-feeds/internal/observability"
)

// SourceName labels predictions in logs, metrics and downstream messages.
const SourceName = "predictions"

// changeWindow is how far back the previous probability is looked up.
const changeWindow = 24 * time.Hour

// EventLister returns the currently open events.
type EventLister interface {
	ActiveEvents(ctx context.Context) (ActiveEvents, error)
}

// History persists observed probabilities so changes can be measured instead
// of synthesized.
type History interface {
	Record(ctx context.Context, marketID string, at time.Time, probability float64) error
	PreviousProbability(ctx context.Context, marketID string, at time.Time) (float64, bool, error)
	Trail(ctx context.Context, marketID string, n int) ([]float64, error)
}

// Source filters, ranks and shapes open events.
type Source struct {
	client  EventLister
	rules   domain.MarketRules
	history History
	jitter  func() float64
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// SourceOptions configures a Source. Zero values select the defaults.
type SourceOptions struct {
	// History is optional; without it every change is synthetic.
	History History
	// Jitter returns values in [0,1). Defaults to math/rand/v2.
	Jitter func() float64
	Clock  clockwork.Clock
}

// NewSource creates a prediction source.
func NewSource(client EventLister, rules domain.MarketRules, opts SourceOptions, logger *slog.Logger, metrics *observability.Metrics) *Source {
	if opts.Jitter == nil {
		opts.Jitter = rand.Float64
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Source{
		client:  client,
		rules:   rules,
		history: opts.History,
		jitter:  opts.Jitter,
		clock:   opts.Clock,
		logger:  logger.With("source", SourceName),
		metrics: metrics,
	}
}

// Fetch returns at most MaxResults relevant predictions in feed order.
func (s *Source) Fetch(ctx context.Context) ([]domain.NormalizedPrediction, error) {
	start := s.clock.Now()
	page, err := s.client.ActiveEvents(ctx)
	s.metrics.UpstreamDuration.WithLabelValues(SourceName).Observe(s.clock.Since(start).Seconds())
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrRateLimited) {
			outcome = "rate_limited"
		}
		s.metrics.UpstreamRequests.WithLabelValues(SourceName, outcome).Inc()
		return nil, err
	}
	if len(page.Events) == 0 {
		s.metrics.UpstreamRequests.WithLabelValues(SourceName, "empty").Inc()
	} else {
		s.metrics.UpstreamRequests.WithLabelValues(SourceName, "success").Inc()
	}
	if page.Skipped > 0 {
		s.metrics.RecordsSkipped.WithLabelValues(SourceName, "malformed").Add(float64(page.Skipped))
		s.logger.Warn("skipped malformed events", "count", page.Skipped)
	}

	limit := s.rules.MaxResults
	if limit <= 0 {
		limit = 15
	}
	now := s.clock.Now().UTC()
	out := make([]domain.NormalizedPrediction, 0, limit)
	for _, ev := range page.Events {
		if len(out) == limit {
			break
		}
		if !s.rules.IsConflictRelevant(ev.Title, ev.Description) {
			s.metrics.RecordsSkipped.WithLabelValues(SourceName, "filtered").Inc()
			continue
		}
		p := s.rules.BuildPrediction(ev, s.trail(ctx, ev.ID, now), s.jitter)
		s.record(ctx, p, now)
		out = append(out, p)
	}
	s.metrics.RecordsEmitted.WithLabelValues(SourceName).Add(float64(len(out)))
	return out, nil
}

// trail looks up what the history knows. Lookup errors degrade to synthetic
// values rather than failing the fetch.
func (s *Source) trail(ctx context.Context, marketID string, now time.Time) domain.ProbabilityTrail {
	if s.history == nil {
		return domain.ProbabilityTrail{}
	}
	var trail domain.ProbabilityTrail
	prev, ok, err := s.history.PreviousProbability(ctx, marketID, now.Add(-changeWindow))
	if err != nil {
		s.logger.Warn("history lookup failed", "market_id", marketID, "error", err)
		return domain.ProbabilityTrail{}
	}
	if ok {
		trail.Previous = &prev
	}
	n := s.rules.SparklineLen - 1
	if n < 1 {
		n = 11
	}
	points, err := s.history.Trail(ctx, marketID, n)
	if err != nil {
		s.logger.Warn("history trail failed", "market_id", marketID, "error", err)
		return trail
	}
	trail.Points = points
	return trail
}

func (s *Source) record(ctx context.Context, p domain.NormalizedPrediction, now time.Time) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, p.ID, now, p.Probability); err != nil {
		s.logger.Warn("history record failed", "market_id", p.ID, "error", err)
	}
}
