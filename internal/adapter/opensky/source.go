// Package opensky polls the OpenSky Network for transponder state vectors over
// a fixed list of hotspot regions and classifies them into flights of interest.
package opensky

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sitrep-feeds/internal/domain"
	"github.com/couchcryptid/sitrep-feeds/internal/observability"
)

// SourceName labels flights in logs, metrics and downstream messages.
const SourceName = "flights"

// RegionFetcher returns the state vectors inside one region.
type RegionFetcher interface {
	FetchRegion(ctx context.Context, r Region) (RegionStates, error)
}

// Source walks the hotspot regions one at a time, spaced by a fixed delay to
// stay under the upstream rate limit, and merges the results into one batch.
type Source struct {
	client     RegionFetcher
	classifier *domain.AircraftClassifier
	regions    []Region
	delay      time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// SourceOptions configures a Source. Zero values select the defaults.
type SourceOptions struct {
	Regions     []Region
	RegionDelay time.Duration // pause between region requests; <= 0 disables it
	Clock       clockwork.Clock
}

// NewSource creates a flight source.
func NewSource(client RegionFetcher, classifier *domain.AircraftClassifier, opts SourceOptions, logger *slog.Logger, metrics *observability.Metrics) *Source {
	regions := opts.Regions
	if len(regions) == 0 {
		regions = HotspotRegions()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Source{
		client:     client,
		classifier: classifier,
		regions:    regions,
		delay:      opts.RegionDelay,
		clock:      clock,
		logger:     logger.With("source", SourceName),
		metrics:    metrics,
	}
}

// Fetch queries every region in order. A region that fails is logged and
// skipped; Fetch only fails when every region failed or ctx ended.
func (s *Source) Fetch(ctx context.Context) ([]domain.NormalizedFlight, error) {
	start := s.clock.Now()
	defer func() {
		s.metrics.UpstreamDuration.WithLabelValues(SourceName).Observe(s.clock.Since(start).Seconds())
	}()

	batch := s.classifier.NewBatch(s.clock.Now().UTC())
	var errs []error
	for i, region := range s.regions {
		if i > 0 {
			if err := s.pause(ctx); err != nil {
				return nil, fmt.Errorf("wait for %s: %w", region.Name, err)
			}
		}

		states, err := s.client.FetchRegion(ctx, region)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.recordFailure(region, err)
			errs = append(errs, err)
			continue
		}

		added := 0
		for _, st := range states.States {
			if batch.Add(st) {
				added++
			}
		}
		s.recordSuccess(region, states, added)
	}

	if len(errs) == len(s.regions) {
		return nil, errors.Join(errs...)
	}
	s.metrics.RecordsEmitted.WithLabelValues(SourceName).Add(float64(batch.Len()))
	return batch.Flights(), nil
}

// pause waits out the region delay, counted from the previous response.
func (s *Source) pause(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(s.delay):
		return nil
	}
}

func (s *Source) recordFailure(region Region, err error) {
	outcome := "error"
	if errors.Is(err, ErrRateLimited) {
		outcome = "rate_limited"
	}
	s.metrics.UpstreamRequests.WithLabelValues(SourceName, outcome).Inc()
	s.logger.Warn("region fetch failed", "region", region.Name, "error", err)
}

func (s *Source) recordSuccess(region Region, states RegionStates, added int) {
	outcome := "success"
	if len(states.States) == 0 {
		outcome = "empty"
	}
	s.metrics.UpstreamRequests.WithLabelValues(SourceName, outcome).Inc()
	if states.Skipped > 0 {
		s.metrics.RecordsSkipped.WithLabelValues(SourceName, "malformed").Add(float64(states.Skipped))
	}
	if filtered := len(states.States) - added; filtered > 0 {
		s.metrics.RecordsSkipped.WithLabelValues(SourceName, "filtered").Add(float64(filtered))
	}
	s.logger.Debug("region fetched",
		"region", region.Name,
		"states", len(states.States),
		"skipped", states.Skipped,
		"kept", added,
	)
}
