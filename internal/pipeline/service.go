// Package pipeline ties the per-source caches together: a Service answering
// feed requests and a Warmer keeping the caches fresh in the background.
package pipeline

import (
	"context"

	"github.com/couchcryptid/sitrep-feeds/internal/domain"
	"github.com/couchcryptid/sitrep-feeds/internal/snapshot"
)

// Service serves the three normalized feeds from their caches.
type Service struct {
	flights     *snapshot.Cache[domain.NormalizedFlight]
	predictions *snapshot.Cache[domain.NormalizedPrediction]
	weather     *snapshot.Cache[domain.NormalizedWeatherAlert]
}

// NewService creates a Service over one cache per source.
func NewService(
	flights *snapshot.Cache[domain.NormalizedFlight],
	predictions *snapshot.Cache[domain.NormalizedPrediction],
	weather *snapshot.Cache[domain.NormalizedWeatherAlert],
) *Service {
	return &Service{flights: flights, predictions: predictions, weather: weather}
}

// Flights returns classified military and government aircraft.
func (s *Service) Flights(ctx context.Context) snapshot.Snapshot[domain.NormalizedFlight] {
	return s.flights.Get(ctx)
}

// Predictions returns conflict-relevant prediction markets.
func (s *Service) Predictions(ctx context.Context) snapshot.Snapshot[domain.NormalizedPrediction] {
	return s.predictions.Get(ctx)
}

// WeatherAlerts returns translated aviation weather hazards.
func (s *Service) WeatherAlerts(ctx context.Context) snapshot.Snapshot[domain.NormalizedWeatherAlert] {
	return s.weather.Get(ctx)
}

// Targets lists the caches for a Warmer.
func (s *Service) Targets() []Target {
	return []Target{s.flights, s.predictions, s.weather}
}
