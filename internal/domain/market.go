package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// PredictionCategory is the topic bucket of a market question.
type PredictionCategory string

const (
	TopicMilitary  PredictionCategory = "military"
	TopicPolitical PredictionCategory = "political"
	TopicEconomic  PredictionCategory = "economic"
	TopicCyber     PredictionCategory = "cyber"
	TopicSocial    PredictionCategory = "social"
)

// Valid reports whether c is one of the five known topics.
func (c PredictionCategory) Valid() bool {
	switch c {
	case TopicMilitary, TopicPolitical, TopicEconomic, TopicCyber, TopicSocial:
		return true
	}
	return false
}

// SourcePolymarket tags predictions built from Polymarket events.
const SourcePolymarket = "polymarket"

// defaultProbability is used whenever the outcome prices cannot be read.
const defaultProbability = 50.0

// RawMarketEvent is one event from the prediction-market feed.
type RawMarketEvent struct {
	ID            string
	Title         string
	Description   string
	OutcomePrices string // JSON-encoded array, e.g. `["0.35","0.65"]`
	Volume        float64
	Liquidity     float64
	EndDate       string
}

// NormalizedPrediction is a conflict-relevant market ready for display.
//
// ChangeSynthetic is true when PreviousProbability was not observed but
// jittered around the current value because no earlier observation exists.
// Consumers must not read Change24h as a real move in that case.
type NormalizedPrediction struct {
	ID                  string             `json:"id"`
	Question            string             `json:"question"`
	Probability         float64            `json:"probability"`
	PreviousProbability float64            `json:"previousProbability"`
	Change24h           float64            `json:"change24h"`
	ChangeSynthetic     bool               `json:"changeSynthetic"`
	Volume              int64              `json:"volume"`
	Source              string             `json:"source"`
	Category            PredictionCategory `json:"category"`
	ResolutionDate      *time.Time         `json:"resolutionDate,omitempty"`
	SparklineData       []float64          `json:"sparklineData"`
}

// RecordKey identifies the prediction when a snapshot is published downstream.
func (p NormalizedPrediction) RecordKey() string { return p.ID }

// KeywordGroup assigns Category to text containing any of Keywords.
type KeywordGroup struct {
	Category PredictionCategory `toml:"category"`
	Keywords []string           `toml:"keywords"`
}

// MarketRules drives the relevance filter and topic bucketing.
type MarketRules struct {
	Keywords       []string       `toml:"keywords"`
	CategoryGroups []KeywordGroup `toml:"category_groups"`
	MaxResults     int            `toml:"max_results"`
	SparklineLen   int            `toml:"sparkline_len"`
}

// DefaultMarketRules returns the compiled-in keyword lists.
func DefaultMarketRules() MarketRules {
	return MarketRules{
		Keywords: []string{
			"war", "conflict", "military", "ukraine", "russia", "china", "taiwan",
			"iran", "israel", "gaza", "hamas", "hezbollah", "nato", "missile",
			"nuclear", "attack", "invasion", "strike", "troops", "defense",
			"sanctions", "escalation", "ceasefire", "peace", "korea", "yemen",
			"houthi", "red sea", "middle east", "syria", "lebanon",
		},
		CategoryGroups: []KeywordGroup{
			{Category: TopicMilitary, Keywords: []string{"war", "military", "attack", "strike"}},
			{Category: TopicEconomic, Keywords: []string{"sanction", "trade", "economy"}},
			{Category: TopicCyber, Keywords: []string{"hack", "cyber"}},
		},
		MaxResults:   15,
		SparklineLen: 12,
	}
}

// IsConflictRelevant reports whether title or description mention any keyword.
func (r MarketRules) IsConflictRelevant(title, description string) bool {
	return containsAny(strings.ToLower(title+" "+description), r.Keywords)
}

// Categorize buckets a market by its title; unmatched titles are political.
func (r MarketRules) Categorize(title string) PredictionCategory {
	lower := strings.ToLower(title)
	for _, g := range r.CategoryGroups {
		if containsAny(lower, g.Keywords) {
			return g.Category
		}
	}
	return TopicPolitical
}

// ParseOutcomeProbability reads the first outcome price and scales it to
// 0-100. Anything unreadable yields 50.
func ParseOutcomeProbability(outcomePrices string) float64 {
	var prices []json.RawMessage
	if err := json.Unmarshal([]byte(outcomePrices), &prices); err != nil || len(prices) == 0 {
		return defaultProbability
	}

	var f float64
	var s string
	switch {
	case json.Unmarshal(prices[0], &s) == nil:
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return defaultProbability
		}
		f = v
	case json.Unmarshal(prices[0], &f) == nil:
	default:
		return defaultProbability
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultProbability
	}
	return clampPercent(f * 100)
}

// ProbabilityTrail is what is known about a market's past. Previous is nil
// when nothing was observed before the current poll. Points are earlier
// observations, oldest first, excluding the current poll.
type ProbabilityTrail struct {
	Previous *float64
	Points   []float64
}

// BuildPrediction shapes a relevant market event. jitter returns values in
// [0,1) and is only consulted for the parts the trail cannot supply.
func (r MarketRules) BuildPrediction(ev RawMarketEvent, trail ProbabilityTrail, jitter func() float64) NormalizedPrediction {
	probability := round1(ParseOutcomeProbability(ev.OutcomePrices))

	var previous float64
	synthetic := trail.Previous == nil
	if synthetic {
		previous = round1(clampPercent(probability - (jitter()*10 - 5)))
	} else {
		previous = round1(clampPercent(*trail.Previous))
	}

	volume := ev.Volume
	if volume == 0 {
		volume = ev.Liquidity
	}

	p := NormalizedPrediction{
		ID:                  ev.ID,
		Question:            ev.Title,
		Probability:         probability,
		PreviousProbability: previous,
		Change24h:           round1(probability - previous),
		ChangeSynthetic:     synthetic,
		Volume:              int64(math.Round(volume)),
		Source:              SourcePolymarket,
		Category:            r.Categorize(ev.Title),
		SparklineData:       r.sparkline(probability, trail.Points, jitter),
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(ev.EndDate)); err == nil {
		t = t.UTC()
		p.ResolutionDate = &t
	}
	return p
}

// sparkline plots earlier observations followed by the current value, keeping
// the last SparklineLen points. With no history it draws SparklineLen values
// within ten points of the current probability.
func (r MarketRules) sparkline(probability float64, observed []float64, jitter func() float64) []float64 {
	n := r.SparklineLen
	if n <= 0 {
		n = 12
	}
	if len(observed) > 0 {
		out := make([]float64, 0, len(observed)+1)
		for _, v := range observed {
			out = append(out, round1(clampPercent(v)))
		}
		out = append(out, probability)
		if len(out) > n {
			out = out[len(out)-n:]
		}
		return out
	}
	lo, hi := probability-10, probability+10
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Round(clampPercent(jitter()*(hi-lo) + lo))
	}
	return out
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
