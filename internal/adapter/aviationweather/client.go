package aviationweather

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

// ErrRateLimited is returned when the API answers 429.
var ErrRateLimited = errors.New("aviationweather: rate limited")

// DefaultHazards is the hazard filter sent with every SIGMET query.
const DefaultHazards = "convective,turb,ice,ash"

// Client queries the aviationweather.gov data API.
type Client struct {
	http    *resty.Client
	hazards string
}

// NewClient creates an aviation weather client. Transport errors and 5xx
// answers are retried twice.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{http: c, hazards: DefaultHazards}
}

// Reports is one decoded SIGMET listing. Skipped counts unreadable rows.
type Reports struct {
	Reports []domain.RawHazardReport
	Skipped int
}

// SIGMETs returns the currently valid SIGMETs in feed order.
func (c *Client) SIGMETs(ctx context.Context) (Reports, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "json",
			"type":   "sigmet",
			"hazard": c.hazards,
		}).
		Get("/sigmet")
	if err != nil {
		return Reports{}, fmt.Errorf("aviationweather request: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return Reports{}, ErrRateLimited
	case resp.IsError():
		return Reports{}, fmt.Errorf("aviationweather API error: status %d", resp.StatusCode())
	}

	return DecodeReports(resp.Body())
}

// DecodeReports parses a SIGMET listing as served by the API.
func DecodeReports(body []byte) (Reports, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return Reports{}, fmt.Errorf("decode response: %w", err)
	}
	out := Reports{Reports: make([]domain.RawHazardReport, 0, len(rows))}
	for _, raw := range rows {
		r, ok := decodeReport(raw)
		if !ok {
			out.Skipped++
			continue
		}
		out.Reports = append(out.Reports, r)
	}
	return out, nil
}

// aviationweather.gov API response types.

type sigmetWire struct {
	ID            json.RawMessage `json:"airSigmetId"`
	ICAO          string          `json:"icaoId"`
	Hazard        string          `json:"hazard"`
	Severity      json.RawMessage `json:"severity"`
	ValidTimeFrom json.RawMessage `json:"validTimeFrom"`
	ValidTimeTo   json.RawMessage `json:"validTimeTo"`
	AltLow        json.RawMessage `json:"altLow"`
	AltHigh       json.RawMessage `json:"altHigh"`
	Coords        json.RawMessage `json:"coords"`
	RawAirSigmet  string          `json:"rawAirSigmet"`
}

func decodeReport(raw json.RawMessage) (domain.RawHazardReport, bool) {
	var w sigmetWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.RawHazardReport{}, false
	}
	id, ok := flexjson.String(w.ID)
	if !ok || id == "" {
		return domain.RawHazardReport{}, false
	}
	severity, ok := flexjson.String(w.Severity)
	if !ok {
		return domain.RawHazardReport{}, false
	}
	from, ok := parseTime(w.ValidTimeFrom)
	if !ok {
		return domain.RawHazardReport{}, false
	}
	to, ok := parseTime(w.ValidTimeTo)
	if !ok {
		return domain.RawHazardReport{}, false
	}
	low, ok := flexjson.OptionalInt(w.AltLow)
	if !ok {
		return domain.RawHazardReport{}, false
	}
	high, ok := flexjson.OptionalInt(w.AltHigh)
	if !ok {
		return domain.RawHazardReport{}, false
	}
	// Coordinates arrive either as text or as a list of points; only text
	// is understood, anything else resolves to the regional centre.
	coords, _ := flexjson.String(w.Coords)

	return domain.RawHazardReport{
		ID:        id,
		StationID: strings.TrimSpace(w.ICAO),
		Hazard:    w.Hazard,
		Severity:  severity,
		ValidFrom: from,
		ValidTo:   to,
		AltLow:    low,
		AltHigh:   high,
		Coords:    coords,
		RawText:   w.RawAirSigmet,
		Type:      domain.AlertSIGMET,
	}, true
}

// parseTime accepts RFC 3339 text or unix seconds. Absent values are zero.
func parseTime(raw json.RawMessage) (time.Time, bool) {
	s, ok := flexjson.String(raw)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}
