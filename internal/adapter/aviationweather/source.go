// Package aviationweather turns SIGMETs from aviationweather.gov into
// plain-language weather alerts.
package aviationweather

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sitrep-feeds/internal/domain"
	"github.com/couchcryptid/sitrep-feeds/internal/observability"
)

// SourceName labels weather alerts in logs, metrics and downstream messages.
const SourceName = "weather"

// DefaultMaxAlerts is how many reports one poll keeps.
const DefaultMaxAlerts = 10

// ReportLister returns the currently valid hazard reports.
type ReportLister interface {
	SIGMETs(ctx context.Context) (Reports, error)
}

// Source translates hazard reports into alerts.
type Source struct {
	client    ReportLister
	maxAlerts int
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// SourceOptions configures a Source. Zero values select the defaults.
type SourceOptions struct {
	// MaxAlerts caps the reports kept per poll. Values below one select
	// DefaultMaxAlerts.
	MaxAlerts int
	Clock     clockwork.Clock
}

// NewSource creates a weather source.
func NewSource(client ReportLister, opts SourceOptions, logger *slog.Logger, metrics *observability.Metrics) *Source {
	if opts.MaxAlerts < 1 {
		opts.MaxAlerts = DefaultMaxAlerts
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Source{
		client:    client,
		maxAlerts: opts.MaxAlerts,
		clock:     opts.Clock,
		logger:    logger.With("source", SourceName),
		metrics:   metrics,
	}
}

// Fetch returns the first reports of the feed translated into alerts.
func (s *Source) Fetch(ctx context.Context) ([]domain.NormalizedWeatherAlert, error) {
	start := s.clock.Now()
	page, err := s.client.SIGMETs(ctx)
	s.metrics.UpstreamDuration.WithLabelValues(SourceName).Observe(s.clock.Since(start).Seconds())
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrRateLimited) {
			outcome = "rate_limited"
		}
		s.metrics.UpstreamRequests.WithLabelValues(SourceName, outcome).Inc()
		return nil, err
	}
	if len(page.Reports) == 0 {
		s.metrics.UpstreamRequests.WithLabelValues(SourceName, "empty").Inc()
	} else {
		s.metrics.UpstreamRequests.WithLabelValues(SourceName, "success").Inc()
	}
	if page.Skipped > 0 {
		s.metrics.RecordsSkipped.WithLabelValues(SourceName, "malformed").Add(float64(page.Skipped))
		s.logger.Warn("skipped malformed reports", "count", page.Skipped)
	}

	reports := page.Reports
	if len(reports) > s.maxAlerts {
		reports = reports[:s.maxAlerts]
	}
	alerts := make([]domain.NormalizedWeatherAlert, 0, len(reports))
	for _, r := range reports {
		alerts = append(alerts, domain.TranslateHazard(r))
	}
	s.metrics.RecordsEmitted.WithLabelValues(SourceName).Add(float64(len(alerts)))
	return alerts, nil
}
