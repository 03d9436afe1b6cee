package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream sources.
	OpenSkyBaseURL         string
	OpenSkyTimeout         time.Duration
	OpenSkyRegionDelay     time.Duration
	PolymarketBaseURL      string
	PolymarketTimeout      time.Duration
	AviationWeatherBaseURL string
	AviationWeatherTimeout time.Duration

	// Cache lifetimes.
	FlightsTTL     time.Duration
	PredictionsTTL time.Duration
	WeatherTTL     time.Duration

	// Probability history; an empty path keeps deltas synthetic.
	HistoryDBPath    string
	HistoryRetention time.Duration

	// RulesFile optionally overrides the compiled-in classification tables.
	RulesFile string
	Rules     Rules

	// Kafka snapshot publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// WarmInterval enables background refresh when positive.
	WarmInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:               sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:               sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:              sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:        shutdownTimeout,
		OpenSkyBaseURL:         sharedcfg.EnvOrDefault("OPENSKY_BASE_URL", "https://opensky-network.org/api"),
		PolymarketBaseURL:      sharedcfg.EnvOrDefault("POLYMARKET_BASE_URL", "https://gamma-api.polymarket.com"),
		AviationWeatherBaseURL: sharedcfg.EnvOrDefault("AVIATIONWEATHER_BASE_URL", "https://aviationweather.gov/api/data"),
		HistoryDBPath:          os.Getenv("HISTORY_DB_PATH"),
		RulesFile:              os.Getenv("RULES_FILE"),
		KafkaEnabled:           sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false") == "true",
		KafkaBrokers:           sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:             sharedcfg.EnvOrDefault("KAFKA_TOPIC", "sitrep-snapshots"),
	}

	durations := []struct {
		key       string
		def       string
		allowZero bool
		dst       *time.Duration
	}{
		{"OPENSKY_TIMEOUT", "15s", false, &cfg.OpenSkyTimeout},
		{"OPENSKY_REGION_DELAY", "300ms", true, &cfg.OpenSkyRegionDelay},
		{"POLYMARKET_TIMEOUT", "10s", false, &cfg.PolymarketTimeout},
		{"AVIATIONWEATHER_TIMEOUT", "10s", false, &cfg.AviationWeatherTimeout},
		{"FLIGHTS_TTL", "30s", false, &cfg.FlightsTTL},
		{"PREDICTIONS_TTL", "30s", false, &cfg.PredictionsTTL},
		{"WEATHER_TTL", "5m", false, &cfg.WeatherTTL},
		{"HISTORY_RETENTION", "48h", false, &cfg.HistoryRetention},
		{"WARM_INTERVAL", "0s", true, &cfg.WarmInterval},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.def, d.allowZero)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	cfg.Rules = DefaultRules()
	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}
	if cfg.HistoryRetention < 24*time.Hour {
		return nil, errors.New("invalid HISTORY_RETENTION: must be at least 24h")
	}

	return cfg, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		if allowZero {
			return 0, fmt.Errorf("invalid %s: must be a non-negative duration", key)
		}
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}
