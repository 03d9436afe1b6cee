package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedJitter returns the same value on every call.
func fixedJitter(v float64) func() float64 {
	return func() float64 { return v }
}

func TestIsConflictRelevant(t *testing.T) {
	rules := DefaultMarketRules()

	tests := []struct {
		name        string
		title       string
		description string
		want        bool
	}{
		{"single keyword in title", "Will Ukraine join the EU by 2027?", "", true},
		{"keyword only in description", "Winter outcome", "Resolves on a ceasefire announcement.", true},
		{"multi-word keyword", "Shipping through the Red Sea resumes?", "", true},
		{"case insensitive", "NATO summit attendance", "", true},
		{"no keyword despite long description", "Will the Lakers win?", "A very long description about basketball playoffs and season records that keeps going without mentioning anything else at all.", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.IsConflictRelevant(tt.title, tt.description))
		})
	}
}

func TestCategorize(t *testing.T) {
	rules := DefaultMarketRules()

	tests := []struct {
		title string
		want  PredictionCategory
	}{
		{"Will Russia strike Kyiv this month?", TopicMilitary},
		{"New sanctions on Iran before July?", TopicEconomic},
		{"Major cyber attack on NATO?", TopicMilitary},
		{"Will a state-backed hack hit Taiwan?", TopicCyber},
		{"Trade deal between US and China?", TopicEconomic},
		{"Will Israel hold elections?", TopicPolitical},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.Categorize(tt.title))
		})
	}
}

func TestParseOutcomeProbability(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"string prices", `["0.35","0.65"]`, 35},
		{"numeric prices", `[0.8, 0.2]`, 80},
		{"certain", `["1"]`, 100},
		{"over one clamps", `["1.7"]`, 100},
		{"negative clamps", `["-0.2"]`, 0},
		{"empty array", `[]`, 50},
		{"empty string", ``, 50},
		{"not json", `not-json`, 50},
		{"unparseable element", `["abc"]`, 50},
		{"object element", `[{"p":1}]`, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseOutcomeProbability(tt.input), 1e-9)
		})
	}
}

func TestBuildPrediction_SyntheticChange(t *testing.T) {
	rules := DefaultMarketRules()
	ev := RawMarketEvent{
		ID:            "512",
		Title:         "Russia x Ukraine ceasefire in 2026?",
		OutcomePrices: `["0.235","0.765"]`,
		Volume:        0,
		Liquidity:     125000.6,
		EndDate:       "2026-12-31T12:00:00Z",
	}

	// jitter 0.9 => previous = p - (9 - 5) = p - 4
	p := rules.BuildPrediction(ev, ProbabilityTrail{}, fixedJitter(0.9))

	assert.Equal(t, "512", p.ID)
	assert.Equal(t, ev.Title, p.Question)
	assert.InDelta(t, 23.5, p.Probability, 1e-9)
	assert.InDelta(t, 19.5, p.PreviousProbability, 1e-9)
	assert.InDelta(t, 4.0, p.Change24h, 1e-9)
	assert.True(t, p.ChangeSynthetic)
	assert.Equal(t, int64(125001), p.Volume)
	assert.Equal(t, SourcePolymarket, p.Source)
	assert.Equal(t, TopicPolitical, p.Category)
	require.NotNil(t, p.ResolutionDate)
	assert.Equal(t, time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC), *p.ResolutionDate)

	require.Len(t, p.SparklineData, 12)
	for _, v := range p.SparklineData {
		assert.GreaterOrEqual(t, v, p.Probability-10)
		assert.LessOrEqual(t, v, p.Probability+10)
	}
}

func TestBuildPrediction_ObservedHistory(t *testing.T) {
	rules := DefaultMarketRules()
	ev := RawMarketEvent{ID: "7", Title: "Iran nuclear deal?", OutcomePrices: `["0.6","0.4"]`, Volume: 900}
	prev := 52.04
	trail := ProbabilityTrail{Previous: &prev, Points: []float64{52.04, 55}}

	p := rules.BuildPrediction(ev, trail, func() float64 {
		t.Fatal("jitter must not be used when history is available")
		return 0
	})

	assert.InDelta(t, 60, p.Probability, 1e-9)
	assert.InDelta(t, 52, p.PreviousProbability, 1e-9)
	assert.InDelta(t, 8, p.Change24h, 1e-9)
	assert.False(t, p.ChangeSynthetic)
	assert.Equal(t, []float64{52, 55, 60}, p.SparklineData)
	assert.Nil(t, p.ResolutionDate)
}

func TestBuildPrediction_SparklineKeepsLastPoints(t *testing.T) {
	rules := DefaultMarketRules()
	rules.SparklineLen = 3
	prev := 10.0
	trail := ProbabilityTrail{Previous: &prev, Points: []float64{10, 20, 30, 40}}

	p := rules.BuildPrediction(RawMarketEvent{ID: "s", Title: "Gaza?", OutcomePrices: `["0.5"]`}, trail, fixedJitter(0))

	assert.Equal(t, []float64{30, 40, 50}, p.SparklineData)
}

func TestBuildPrediction_ClampsSyntheticPrevious(t *testing.T) {
	rules := DefaultMarketRules()
	ev := RawMarketEvent{ID: "1", Title: "War ends?", OutcomePrices: `["0.99"]`}

	// jitter 0 => previous = p + 5, above 100 before clamping
	p := rules.BuildPrediction(ev, ProbabilityTrail{}, fixedJitter(0))

	assert.InDelta(t, 99, p.Probability, 1e-9)
	assert.InDelta(t, 100, p.PreviousProbability, 1e-9)
	assert.InDelta(t, -1, p.Change24h, 1e-9)
	for _, v := range p.SparklineData {
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestBuildPrediction_UnparseablePriceIsFifty(t *testing.T) {
	rules := DefaultMarketRules()
	p := rules.BuildPrediction(RawMarketEvent{ID: "x", Title: "Taiwan?", OutcomePrices: "garbage"}, ProbabilityTrail{}, fixedJitter(0.5))

	assert.Equal(t, 50.0, p.Probability)
	assert.Equal(t, 50.0, p.PreviousProbability)
	assert.Equal(t, 0.0, p.Change24h)
}
