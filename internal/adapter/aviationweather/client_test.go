package aviationweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sitrep-feeds/internal/domain"
)

const sampleSIGMETs = `[
	{"airSigmetId":8841,"icaoId":"LTBA","hazard":"TURB","severity":"SEV","validTimeFrom":"2026-03-01T06:00:00Z","validTimeTo":"2026-03-01T12:00:00Z","altLow":250,"altHigh":400,"coords":"41.2N 29.1E","rawAirSigmet":"LTBA SIGMET 2 VALID 010600/011200 SEV TURB FCST"},
	{"airSigmetId":"OKBK-1","icaoId":"OKBK","hazard":"CONVECTIVE","severity":2,"validTimeFrom":1772344800,"validTimeTo":1772352000,"coords":[{"lat":29,"lon":48}],"rawAirSigmet":""}
]`

func TestClient_SIGMETs_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sigmet", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "sigmet", q.Get("type"))
		assert.Equal(t, "convective,turb,ice,ash", q.Get("hazard"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleSIGMETs))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, 5*time.Second).SIGMETs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, got.Skipped)
	require.Len(t, got.Reports, 2)

	first := got.Reports[0]
	assert.Equal(t, "8841", first.ID)
	assert.Equal(t, "LTBA", first.StationID)
	assert.Equal(t, "TURB", first.Hazard)
	assert.Equal(t, "SEV", first.Severity)
	assert.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), first.ValidFrom)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), first.ValidTo)
	require.NotNil(t, first.AltLow)
	require.NotNil(t, first.AltHigh)
	assert.Equal(t, 250, *first.AltLow)
	assert.Equal(t, 400, *first.AltHigh)
	assert.Equal(t, "41.2N 29.1E", first.Coords)
	assert.Equal(t, domain.AlertSIGMET, first.Type)

	second := got.Reports[1]
	assert.Equal(t, "OKBK-1", second.ID)
	assert.Equal(t, "2", second.Severity)
	assert.Equal(t, time.Unix(1772344800, 0).UTC(), second.ValidFrom)
	assert.Nil(t, second.AltLow)
	assert.Empty(t, second.Coords)
}

func TestDecodeReports_SkipsMalformedRows(t *testing.T) {
	got, err := DecodeReports([]byte(`[
		42,
		{"icaoId":"KKCI","hazard":"ICE"},
		{"airSigmetId":1,"validTimeFrom":"yesterday"},
		{"airSigmetId":2,"altLow":"FL250"},
		{"airSigmetId":3,"icaoId":"EGRR","hazard":"ICE","severity":"MOD"}
	]`))

	require.NoError(t, err)
	assert.Equal(t, 4, got.Skipped)
	require.Len(t, got.Reports, 1)
	assert.Equal(t, "3", got.Reports[0].ID)
	assert.True(t, got.Reports[0].ValidFrom.IsZero())
}

func TestClient_SIGMETs_RateLimitedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 5*time.Second).SIGMETs(context.Background())

	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_SIGMETs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: "status 500",
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			want: "decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, 5*time.Second).SIGMETs(context.Background())
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
