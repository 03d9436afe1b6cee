package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/couchcryptid/sitrep-feeds/internal/adapter/flexjson"
	"github.com/couchcryptid/sitrep-feeds/internal/domain"
)

// ErrRateLimited is returned when the API answers 429. Rate-limited requests
// are not retried.
var ErrRateLimited = errors.New("polymarket: rate limited")

// DefaultEventLimit is how many active events one poll asks for.
const DefaultEventLimit = 50

// Client queries the Polymarket gamma API.
type Client struct {
	http  *resty.Client
	limit int
}

// NewClient creates a Polymarket client. Transport errors and 5xx answers are
// retried twice; everything else fails fast.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryable)
	return &Client{http: c, limit: DefaultEventLimit}
}

func retryable(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return r.StatusCode() >= http.StatusInternalServerError
}

// ActiveEvents is one decoded page of open events. Skipped counts rows that
// could not be read.
type ActiveEvents struct {
	Events  []domain.RawMarketEvent
	Skipped int
}

// ActiveEvents returns currently open events, newest first as the API orders them.
func (c *Client) ActiveEvents(ctx context.Context) (ActiveEvents, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"active": "true",
			"closed": "false",
			"limit":  strconv.Itoa(c.limit),
		}).
		Get("/events")
	if err != nil {
		return ActiveEvents{}, fmt.Errorf("polymarket request: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return ActiveEvents{}, ErrRateLimited
	case resp.IsError():
		return ActiveEvents{}, fmt.Errorf("polymarket API error: status %d", resp.StatusCode())
	}

	return DecodeEvents(resp.Body())
}

// DecodeEvents parses an /events listing as served by the API.
func DecodeEvents(body []byte) (ActiveEvents, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return ActiveEvents{}, fmt.Errorf("decode response: %w", err)
	}
	return decodeEvents(rows), nil
}

// Polymarket API response types.

type eventWire struct {
	ID            json.RawMessage `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`
	Volume        json.RawMessage `json:"volume"`
	Liquidity     json.RawMessage `json:"liquidity"`
	EndDate       string          `json:"endDate"`
	Markets       []marketWire    `json:"markets"`
}

type marketWire struct {
	OutcomePrices json.RawMessage `json:"outcomePrices"`
}

func decodeEvents(rows []json.RawMessage) ActiveEvents {
	out := ActiveEvents{Events: make([]domain.RawMarketEvent, 0, len(rows))}
	for _, raw := range rows {
		ev, ok := decodeEvent(raw)
		if !ok {
			out.Skipped++
			continue
		}
		out.Events = append(out.Events, ev)
	}
	return out
}

func decodeEvent(raw json.RawMessage) (domain.RawMarketEvent, bool) {
	var w eventWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.RawMarketEvent{}, false
	}
	id, ok := flexjson.String(w.ID)
	if !ok || id == "" || strings.TrimSpace(w.Title) == "" {
		return domain.RawMarketEvent{}, false
	}
	volume, _ := flexjson.Float(w.Volume)
	liquidity, _ := flexjson.Float(w.Liquidity)

	// Events without their own prices take the first market's.
	prices := pricesText(w.OutcomePrices)
	if prices == "" {
		for _, m := range w.Markets {
			if prices = pricesText(m.OutcomePrices); prices != "" {
				break
			}
		}
	}

	return domain.RawMarketEvent{
		ID:            id,
		Title:         w.Title,
		Description:   w.Description,
		OutcomePrices: prices,
		Volume:        volume,
		Liquidity:     liquidity,
		EndDate:       w.EndDate,
	}, true
}

// pricesText unwraps the string-encoded price array. A bare array is passed
// through unchanged.
func pricesText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}
