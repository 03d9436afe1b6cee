package aviationweather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sitrep-feeds/internal/domain"
	"github.com/couchcryptid/sitrep-feeds/internal/observability"
)

type fakeLister struct {
	page Reports
	err  error
}

func (f *fakeLister) SIGMETs(context.Context) (Reports, error) { return f.page, f.err }

func intPtr(v int) *int { return &v }

func testSource(lister ReportLister, maxAlerts int) (*Source, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewSource(lister, SourceOptions{MaxAlerts: maxAlerts}, slog.New(slog.NewTextHandler(io.Discard, nil)), m), m
}

func TestSource_Fetch_Translates(t *testing.T) {
	from := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	to := from.Add(6 * time.Hour)
	lister := &fakeLister{page: Reports{Reports: []domain.RawHazardReport{{
		ID:        "8841",
		StationID: "LTBA",
		Hazard:    "TURB",
		Severity:  "SEV",
		ValidFrom: from,
		ValidTo:   to,
		AltLow:    intPtr(250),
		AltHigh:   intPtr(400),
		Coords:    "41.2N 29.1E",
		RawText:   "LTBA SIGMET 2 SEV TURB FCST",
		Type:      domain.AlertSIGMET,
	}}}}
	s, m := testSource(lister, 0)

	got, err := s.Fetch(context.Background())

	require.NoError(t, err)
	want := []domain.NormalizedWeatherAlert{{
		ID:                 "sigmet-8841",
		Type:               domain.AlertSIGMET,
		Title:              "Turbulence - LTBA",
		Description:        "LTBA SIGMET 2 SEV TURB FCST",
		LaymansDescription: domain.LaymansDescription("TURB", "SEV"),
		Severity:           domain.SeverityWarning,
		Location:           domain.GeoLocation{Lat: 41.2, Lng: 29.1, Region: "Southern Europe"},
		AffectedAltitude:   &domain.AltitudeBand{Min: 25000, Max: 40000},
		ValidFrom:          from,
		ValidTo:            to,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("alerts mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(m.RecordsEmitted.WithLabelValues(SourceName)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues(SourceName, "success")), 0)
}

func TestSource_Fetch_KeepsFirstReports(t *testing.T) {
	reports := make([]domain.RawHazardReport, 0, 14)
	for i := range 14 {
		reports = append(reports, domain.RawHazardReport{ID: fmt.Sprint(i), StationID: "EGRR", Hazard: "ICE"})
	}
	s, _ := testSource(&fakeLister{page: Reports{Reports: reports, Skipped: 3}}, 0)

	got, err := s.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, got, DefaultMaxAlerts)
	assert.Equal(t, "sigmet-0", got[0].ID)
	assert.Equal(t, "sigmet-9", got[9].ID)
	assert.Equal(t, "Northern Europe", got[0].Location.Region)
}

func TestSource_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome string
	}{
		{"rate limited", ErrRateLimited, "rate_limited"},
		{"transport", errors.New("no route to host"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := testSource(&fakeLister{err: tt.err}, 0)

			got, err := s.Fetch(context.Background())

			require.ErrorIs(t, err, tt.err)
			assert.Nil(t, got)
			assert.InDelta(t, 1, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues(SourceName, tt.outcome)), 0)
		})
	}
}

func TestSource_Fetch_Empty(t *testing.T) {
	s, m := testSource(&fakeLister{}, 5)

	got, err := s.Fetch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.InDelta(t, 1, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues(SourceName, "empty")), 0)
}

// slowLister moves a fake clock forward while it answers.
type slowLister struct {
	clock *clockwork.FakeClock
	took  time.Duration
}

func (f *slowLister) SIGMETs(context.Context) (Reports, error) {
	f.clock.Advance(f.took)
	return Reports{}, nil
}

func TestSource_Fetch_TimesUpstreamWithInjectedClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := observability.NewMetricsForTesting()
	s := NewSource(&slowLister{clock: clock, took: 2 * time.Second}, SourceOptions{Clock: clock},
		slog.New(slog.NewTextHandler(io.Discard, nil)), m)

	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	want := `
# HELP sitrep_upstream_duration_seconds Duration of one complete upstream fetch, including throttling.
# TYPE sitrep_upstream_duration_seconds histogram
sitrep_upstream_duration_seconds_bucket{source="weather",le="0.05"} 0
sitrep_upstream_duration_seconds_bucket{source="weather",le="0.1"} 0
sitrep_upstream_duration_seconds_bucket{source="weather",le="0.25"} 0
sitrep_upstream_duration_seconds_bucket{source="weather",le="0.5"} 0
sitrep_upstream_duration_seconds_bucket{source="weather",le="1"} 0
sitrep_upstream_duration_seconds_bucket{source="weather",le="2.5"} 1
sitrep_upstream_duration_seconds_bucket{source="weather",le="5"} 1
sitrep_upstream_duration_seconds_bucket{source="weather",le="10"} 1
sitrep_upstream_duration_seconds_bucket{source="weather",le="20"} 1
sitrep_upstream_duration_seconds_bucket{source="weather",le="30"} 1
sitrep_upstream_duration_seconds_bucket{source="weather",le="+Inf"} 1
sitrep_upstream_duration_seconds_sum{source="weather"} 2
sitrep_upstream_duration_seconds_count{source="weather"} 1
`
	require.NoError(t, testutil.CollectAndCompare(m.UpstreamDuration, strings.NewReader(want)))
}
