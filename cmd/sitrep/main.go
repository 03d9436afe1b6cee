package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/sitrep-feeds/internal/adapter/aviationweather"
	httpadapter "github.com/couchcryptid/sitrep-feeds/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/sitrep-feeds/internal/adapter/kafka"
	"github.com/couchcryptid/sitrep-feeds/internal/adapter/opensky"
	"github.com/couchcryptid/sitrep-feeds/internal/adapter/polymarket"
	"github.com/couchcryptid/sitrep-feeds/internal/adapter/sqlite"
	"github.com/couchcryptid/sitrep-feeds/internal/config"
	"github.com/couchcryptid/sitrep-feeds/internal/domain"
	"github.com/couchcryptid/sitrep-feeds/internal/observability"
	"github.com/couchcryptid/sitrep-feeds/internal/pipeline"
	"github.com/couchcryptid/sitrep-feeds/internal/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Probability history (feature-flagged via HISTORY_DB_PATH).
	var history polymarket.History
	if cfg.HistoryDBPath != "" {
		store, err := sqlite.Open(ctx, cfg.HistoryDBPath, cfg.HistoryRetention)
		if err != nil {
			logger.Error("failed to open history db", "error", err, "path", cfg.HistoryDBPath)
			os.Exit(1)
		}
		defer store.Close()
		history = store
		metrics.HistoryEnabled.Set(1)
		logger.Info("probability history enabled", "path", cfg.HistoryDBPath, "retention", cfg.HistoryRetention)
	} else {
		logger.Info("probability history disabled, 24h changes are synthetic")
	}

	// Snapshot publishing (feature-flagged via KAFKA_ENABLED).
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger, metrics)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	classifier := domain.NewAircraftClassifier(cfg.Rules.Aircraft, domain.NewGeofence(cfg.Rules.Geofence))
	flightSource := opensky.NewSource(
		opensky.NewClient(cfg.OpenSkyBaseURL, cfg.OpenSkyTimeout),
		classifier,
		opensky.SourceOptions{Regions: cfg.Rules.Regions, RegionDelay: cfg.OpenSkyRegionDelay},
		logger, metrics)
	predictionSource := polymarket.NewSource(
		polymarket.NewClient(cfg.PolymarketBaseURL, cfg.PolymarketTimeout),
		cfg.Rules.Markets,
		polymarket.SourceOptions{History: history},
		logger, metrics)
	weatherSource := aviationweather.NewSource(
		aviationweather.NewClient(cfg.AviationWeatherBaseURL, cfg.AviationWeatherTimeout),
		aviationweather.SourceOptions{},
		logger, metrics)

	svc := pipeline.NewService(
		snapshot.New(opensky.SourceName, cfg.FlightsTTL, flightSource, domain.FallbackFlights,
			cacheOptions[domain.NormalizedFlight](opensky.SourceName, logger, metrics, publisher)...),
		snapshot.New(polymarket.SourceName, cfg.PredictionsTTL, predictionSource, domain.FallbackPredictions,
			cacheOptions[domain.NormalizedPrediction](polymarket.SourceName, logger, metrics, publisher)...),
		snapshot.New(aviationweather.SourceName, cfg.WeatherTTL, weatherSource, domain.FallbackWeatherAlerts,
			cacheOptions[domain.NormalizedWeatherAlert](aviationweather.SourceName, logger, metrics, publisher)...),
	)

	var ready sharedobs.ReadinessChecker = pipeline.AlwaysReady{}
	var warmer *pipeline.Warmer
	if cfg.WarmInterval > 0 {
		warmer = pipeline.NewWarmer(svc.Targets(), cfg.WarmInterval, logger, metrics)
		ready = warmer
	} else {
		logger.Info("background warming disabled, caches fill on demand")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, ready, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start cache warmer.
	if warmer != nil {
		go func() {
			if err := warmer.Run(ctx); err != nil {
				logger.Error("warmer error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// cacheOptions wires logging, metrics and, when enabled, Kafka publishing
// into one source's cache.
func cacheOptions[T kafkaadapter.Record](source string, logger *slog.Logger, metrics *observability.Metrics, publisher *kafkaadapter.Publisher) []snapshot.Option[T] {
	opts := []snapshot.Option[T]{
		snapshot.WithLogger[T](logger),
		snapshot.WithMetrics[T](metrics),
	}
	if publisher != nil {
		opts = append(opts, snapshot.WithRefreshHook(kafkaadapter.Hook[T](publisher, source)))
	}
	return opts
}
