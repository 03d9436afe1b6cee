package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the feed adapters.
type Metrics struct {
	// Upstream fetch metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: source={flights,predictions,weather}, outcome={success,error,empty,rate_limited}
	UpstreamDuration *prometheus.HistogramVec // labels: source

	// Normalization metrics.
	RecordsEmitted *prometheus.CounterVec // labels: source
	RecordsSkipped *prometheus.CounterVec // labels: source, reason={malformed,filtered}

	// Snapshot cache metrics.
	CacheLookups    *prometheus.CounterVec // labels: source, result={fresh,stale,empty}
	SnapshotsServed *prometheus.CounterVec // labels: source, provenance={live,cached,stale,fallback}

	// Downstream metrics.
	SnapshotsPublished *prometheus.CounterVec // labels: source, outcome={success,error}
	WarmerRunning      prometheus.Gauge
	HistoryEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all feed metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.RecordsEmitted,
		m.RecordsSkipped,
		m.CacheLookups,
		m.SnapshotsServed,
		m.SnapshotsPublished,
		m.WarmerRunning,
		m.HistoryEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitrep",
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sitrep",
			Name:      "upstream_duration_seconds",
			Help:      "Duration of one complete upstream fetch, including throttling.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"source"}),
		RecordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitrep",
			Name:      "records_emitted_total",
			Help:      "Normalized records produced by successful fetches.",
		}, []string{"source"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitrep",
			Name:      "records_skipped_total",
			Help:      "Upstream rows dropped during normalization.",
		}, []string{"source", "reason"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitrep",
			Name:      "cache_lookups_total",
			Help:      "Snapshot cache lookups by source and result.",
		}, []string{"source", "result"}),
		SnapshotsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitrep",
			Name:      "snapshots_served_total",
			Help:      "Snapshots returned to callers by source and provenance.",
		}, []string{"source", "provenance"}),
		SnapshotsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitrep",
			Name:      "snapshots_published_total",
			Help:      "Live snapshots written to Kafka by source and outcome.",
		}, []string{"source", "outcome"}),
		WarmerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sitrep",
			Name:      "warmer_running",
			Help:      "1 when the background cache warmer is active, 0 otherwise.",
		}),
		HistoryEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sitrep",
			Name:      "history_enabled",
			Help:      "1 when probability history is persisted, 0 otherwise.",
		}),
	}
}
