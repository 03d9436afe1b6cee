package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func TestClient_ActiveEvents_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("active"))
		assert.Equal(t, "false", q.Get("closed"))
		assert.Equal(t, "50", q.Get("limit"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[
			{"id":"512","title":"Russia x Ukraine ceasefire?","description":"d","outcomePrices":"[\"0.23\",\"0.77\"]","volume":"125000.5","liquidity":900,"endDate":"2026-12-31T00:00:00Z"},
			{"id":9001,"title":"Iran strike?","volume":42,"markets":[{"outcomePrices":"[\"0.6\",\"0.4\"]"}]},
			{"id":"77","title":"Gaza deal?","outcomePrices":[0.1,0.9]}
		]`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, 5*time.Second).ActiveEvents(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, got.Skipped)
	require.Len(t, got.Events, 3)

	first := got.Events[0]
	assert.Equal(t, "512", first.ID)
	assert.Equal(t, "Russia x Ukraine ceasefire?", first.Title)
	assert.Equal(t, "d", first.Description)
	assert.Equal(t, `["0.23","0.77"]`, first.OutcomePrices)
	assert.InDelta(t, 125000.5, first.Volume, 1e-9)
	assert.InDelta(t, 900, first.Liquidity, 1e-9)
	assert.Equal(t, "2026-12-31T00:00:00Z", first.EndDate)

	second := got.Events[1]
	assert.Equal(t, "9001", second.ID)
	assert.Equal(t, `["0.6","0.4"]`, second.OutcomePrices)
	assert.InDelta(t, 42, second.Volume, 1e-9)

	assert.Equal(t, "[0.1,0.9]", got.Events[2].OutcomePrices)
}

func TestClient_ActiveEvents_SkipsMalformedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			"not-an-object",
			{"title":"no id"},
			{"id":"1","title":"   "},
			{"id":{"nested":true},"title":"bad id"},
			{"id":"2","title":"War?"}
		]`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, 5*time.Second).ActiveEvents(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, got.Skipped)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "2", got.Events[0].ID)
}

func TestClient_ActiveEvents_RateLimitedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 5*time.Second).ActiveEvents(context.Background())

	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ActiveEvents_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"1","title":"NATO?"}]`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, 5*time.Second).ActiveEvents(context.Background())

	require.NoError(t, err)
	assert.Len(t, got.Events, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ActiveEvents_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "persistent server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
			want: "status 502",
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", http.StatusNotFound)
			},
			want: "status 404",
		},
		{
			name: "object instead of array",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"events":[]}`))
			},
			want: "decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, 5*time.Second).ActiveEvents(context.Background())
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
