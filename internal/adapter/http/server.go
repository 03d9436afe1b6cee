package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/sitrep-feeds/internal/domain"
	"github.com/couchcryptid/sitrep-feeds/internal/snapshot"
)

// Response headers describing where the served items came from.
const (
	HeaderProvenance = "X-Data-Provenance"
	HeaderFetchedAt  = "X-Data-Fetched-At"
)

// FeedService serves the normalized feeds.
type FeedService interface {
	Flights(ctx context.Context) snapshot.Snapshot[domain.NormalizedFlight]
	Predictions(ctx context.Context) snapshot.Snapshot[domain.NormalizedPrediction]
	WeatherAlerts(ctx context.Context) snapshot.Snapshot[domain.NormalizedWeatherAlert]
}

// Server exposes the feed, health, readiness, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /api/flights, /api/predictions,
// /api/weather, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, feeds FeedService, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/flights", func(w http.ResponseWriter, req *http.Request) {
			writeSnapshot(w, feeds.Flights(req.Context()))
		})
		r.Get("/predictions", func(w http.ResponseWriter, req *http.Request) {
			writeSnapshot(w, feeds.Predictions(req.Context()))
		})
		r.Get("/weather", func(w http.ResponseWriter, req *http.Request) {
			writeSnapshot(w, feeds.WeatherAlerts(req.Context()))
		})
	})

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// writeSnapshot writes the items as a bare JSON array. Provenance travels in
// headers so the body stays a plain list.
func writeSnapshot[T any](w http.ResponseWriter, snap snapshot.Snapshot[T]) {
	w.Header().Set(HeaderProvenance, string(snap.Provenance))
	if !snap.FetchedAt.IsZero() {
		w.Header().Set(HeaderFetchedAt, snap.FetchedAt.UTC().Format(time.RFC3339))
	}
	items := snap.Items
	if items == nil {
		items = []T{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()),
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
