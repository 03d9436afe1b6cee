// Command normalize runs a captured upstream payload through the same
// sources the service uses and prints the normalized records. It is used to
// inspect classifier changes against real traffic and to produce fixtures.
//
// Usage:
//
//	go run ./cmd/normalize -source opensky -in states.json
//	go run ./cmd/normalize -source polymarket -in events.json -rules rules.toml
//	curl -s 'https://aviationweather.gov/api/data/sigmet?format=json' | go run ./cmd/normalize -source sigmet
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sitrep-feeds/internal/adapter/aviationweather"
	"github.com/couchcryptid/sitrep-feeds/internal/adapter/opensky"
	"github.com/couchcryptid/sitrep-feeds/internal/adapter/polymarket"
	"github.com/couchcryptid/sitrep-feeds/internal/config"
	"github.com/couchcryptid/sitrep-feeds/internal/domain"
	"github.com/couchcryptid/sitrep-feeds/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	source := flag.String("source", "", "payload kind: opensky, polymarket or sigmet")
	in := flag.String("in", "-", "captured payload path, - for stdin")
	out := flag.String("out", "-", "output path, - for stdout")
	rulesFile := flag.String("rules", "", "optional TOML rules file")
	at := flag.String("at", "", "observation time (RFC 3339), defaults to now")
	flag.Parse()

	body, err := readInput(*in)
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}

	rules := config.DefaultRules()
	if *rulesFile != "" {
		if rules, err = config.LoadRules(*rulesFile); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	if *at != "" {
		if now, err = time.Parse(time.RFC3339, *at); err != nil {
			return fmt.Errorf("invalid -at: %w", err)
		}
	}
	// A fixed clock and jitter make repeated runs byte-identical.
	clock := clockwork.NewFakeClockAt(now)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()
	ctx := context.Background()

	var records any
	var counts map[string]int
	switch *source {
	case "opensky":
		states, err := opensky.DecodeResponse(body)
		if err != nil {
			return err
		}
		classifier := domain.NewAircraftClassifier(rules.Aircraft, domain.NewGeofence(rules.Geofence))
		src := opensky.NewSource(capturedStates(states), classifier, opensky.SourceOptions{
			Regions: []opensky.Region{{Name: "capture"}},
			Clock:   clock,
		}, logger, metrics)
		flights, err := src.Fetch(ctx)
		if err != nil {
			return err
		}
		log.Printf("opensky: %d rows, %d skipped, %d retained", len(states.States)+states.Skipped, states.Skipped, len(flights))
		records, counts = flights, countBy(flights, func(f domain.NormalizedFlight) string { return string(f.Category) })

	case "polymarket":
		events, err := polymarket.DecodeEvents(body)
		if err != nil {
			return err
		}
		src := polymarket.NewSource(capturedEvents(events), rules.Markets, polymarket.SourceOptions{
			Jitter: func() float64 { return 0.5 },
			Clock:  clock,
		}, logger, metrics)
		predictions, err := src.Fetch(ctx)
		if err != nil {
			return err
		}
		log.Printf("polymarket: %d events, %d skipped, %d relevant", len(events.Events)+events.Skipped, events.Skipped, len(predictions))
		records, counts = predictions, countBy(predictions, func(p domain.NormalizedPrediction) string { return string(p.Category) })

	case "sigmet":
		reports, err := aviationweather.DecodeReports(body)
		if err != nil {
			return err
		}
		src := aviationweather.NewSource(capturedReports(reports), aviationweather.SourceOptions{Clock: clock}, logger, metrics)
		alerts, err := src.Fetch(ctx)
		if err != nil {
			return err
		}
		log.Printf("sigmet: %d reports, %d skipped, %d alerts", len(reports.Reports)+reports.Skipped, reports.Skipped, len(alerts))
		records, counts = alerts, countBy(alerts, func(a domain.NormalizedWeatherAlert) string { return string(a.Severity) })

	default:
		flag.Usage()
		return fmt.Errorf("unknown -source %q: want opensky, polymarket or sigmet", *source)
	}

	if err := writeJSON(*out, records); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	printCounts(counts)
	return nil
}

// Captured payloads stand in for the live clients.

type capturedStates opensky.RegionStates

func (c capturedStates) FetchRegion(context.Context, opensky.Region) (opensky.RegionStates, error) {
	return opensky.RegionStates(c), nil
}

type capturedEvents polymarket.ActiveEvents

func (c capturedEvents) ActiveEvents(context.Context) (polymarket.ActiveEvents, error) {
	return polymarket.ActiveEvents(c), nil
}

type capturedReports aviationweather.Reports

func (c capturedReports) SIGMETs(context.Context) (aviationweather.Reports, error) {
	return aviationweather.Reports(c), nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func countBy[T any](items []T, key func(T) string) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[key(item)]++
	}
	return counts
}

func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.Printf("  %-14s %d", k, counts[k])
	}
}
