package opensky

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/sitrep-feeds/internal/domain"
)

// ErrRateLimited is returned when the API answers 429.
var ErrRateLimited = errors.New("opensky: rate limited")

// Region is a named bounding box queried as one request.
type Region struct {
	Name   string  `toml:"name"`
	LatMin float64 `toml:"lat_min"`
	LatMax float64 `toml:"lat_max"`
	LngMin float64 `toml:"lng_min"`
	LngMax float64 `toml:"lng_max"`
}

// HotspotRegions returns the default query boxes, in query order.
func HotspotRegions() []Region {
	return []Region{
		{Name: "Ukraine/Black Sea", LatMin: 40, LatMax: 52, LngMin: 25, LngMax: 42},
		{Name: "Eastern Mediterranean", LatMin: 30, LatMax: 40, LngMin: 28, LngMax: 40},
		{Name: "Israel/Lebanon", LatMin: 28, LatMax: 36, LngMin: 32, LngMax: 38},
		{Name: "Taiwan Strait", LatMin: 20, LatMax: 30, LngMin: 115, LngMax: 128},
		{Name: "Red Sea", LatMin: 10, LatMax: 22, LngMin: 38, LngMax: 55},
		{Name: "Baltic Region", LatMin: 52, LatMax: 66, LngMin: 10, LngMax: 32},
		{Name: "Persian Gulf", LatMin: 22, LatMax: 32, LngMin: 45, LngMax: 60},
		{Name: "Korea Peninsula", LatMin: 33, LatMax: 43, LngMin: 123, LngMax: 132},
		{Name: "Central Europe", LatMin: 45, LatMax: 55, LngMin: 5, LngMax: 25},
	}
}

// Client queries the OpenSky Network state-vector API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an OpenSky client. timeout bounds each region request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// RegionStates is the decoded answer for one region. Skipped counts rows that
// could not be read.
type RegionStates struct {
	States  []domain.RawAircraftState
	Skipped int
}

// FetchRegion returns the state vectors currently inside r.
func (c *Client) FetchRegion(ctx context.Context, r Region) (RegionStates, error) {
	params := url.Values{
		"lamin": {formatCoord(r.LatMin)},
		"lamax": {formatCoord(r.LatMax)},
		"lomin": {formatCoord(r.LngMin)},
		"lomax": {formatCoord(r.LngMax)},
	}
	fullURL := c.baseURL + "/states/all?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return RegionStates{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RegionStates{}, fmt.Errorf("opensky request %s: %w", r.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return RegionStates{}, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return RegionStates{}, fmt.Errorf("opensky API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return RegionStates{}, fmt.Errorf("decode response: %w", err)
	}
	return decodeStates(payload.States), nil
}

// DecodeResponse parses a captured /states/all payload.
func DecodeResponse(body []byte) (RegionStates, error) {
	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return RegionStates{}, fmt.Errorf("decode response: %w", err)
	}
	return decodeStates(payload.States), nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// OpenSky API response types.

type response struct {
	Time   int64             `json:"time"`
	States []json.RawMessage `json:"states"` // null when the box is empty
}

// State vector column indexes.
const (
	colICAO24        = 0
	colCallsign      = 1
	colOriginCountry = 2
	colLongitude     = 5
	colLatitude      = 6
	colBaroAltitude  = 7
	colOnGround      = 8
	colVelocity      = 9
	colTrueTrack     = 10
	minColumns       = 11
)

// decodeStates reads each row independently so one bad row only costs itself.
func decodeStates(rows []json.RawMessage) RegionStates {
	out := RegionStates{States: make([]domain.RawAircraftState, 0, len(rows))}
	for _, raw := range rows {
		state, ok := decodeState(raw)
		if !ok {
			out.Skipped++
			continue
		}
		out.States = append(out.States, state)
	}
	return out
}

func decodeState(raw json.RawMessage) (domain.RawAircraftState, bool) {
	var row []any
	if err := json.Unmarshal(raw, &row); err != nil || len(row) < minColumns {
		return domain.RawAircraftState{}, false
	}
	icao, ok := row[colICAO24].(string)
	if !ok || icao == "" {
		return domain.RawAircraftState{}, false
	}

	state := domain.RawAircraftState{ICAO24: icao}
	state.Callsign, _ = row[colCallsign].(string)
	state.OriginCountry, _ = row[colOriginCountry].(string)
	state.OnGround, _ = row[colOnGround].(bool)
	state.Longitude = floatAt(row, colLongitude)
	state.Latitude = floatAt(row, colLatitude)
	state.BaroAltitude = floatAt(row, colBaroAltitude)
	state.Velocity = floatAt(row, colVelocity)
	state.TrueTrack = floatAt(row, colTrueTrack)
	return state, true
}

func floatAt(row []any, i int) *float64 {
	if v, ok := row[i].(float64); ok {
		return &v
	}
	return nil
}
