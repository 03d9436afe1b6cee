package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbacks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("flights", func(t *testing.T) {
		flights := FallbackFlights(now)
		require.Len(t, flights, 8)
		ids := map[string]bool{}
		for _, f := range flights {
			assert.True(t, f.Category.Valid())
			assert.NotEqual(t, CategoryCivil, f.Category)
			assert.Equal(t, now, f.Timestamp)
			ids[f.ID] = true
		}
		assert.Len(t, ids, 8)
	})

	t.Run("predictions", func(t *testing.T) {
		preds := FallbackPredictions(now)
		require.Len(t, preds, 1)
		assert.Equal(t, 50.0, preds[0].Probability)
		require.NotNil(t, preds[0].ResolutionDate)
		assert.Equal(t, now.Add(30*24*time.Hour), *preds[0].ResolutionDate)
	})

	t.Run("weather", func(t *testing.T) {
		alerts := FallbackWeatherAlerts(now)
		require.Len(t, alerts, 2)
		assert.Equal(t, now.Add(6*time.Hour), alerts[0].ValidTo)
		assert.Equal(t, AlertAIRMET, alerts[1].Type)
	})
}
