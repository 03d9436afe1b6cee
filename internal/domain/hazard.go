package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SeverityTier is the closed set of alert severities shown to users.
type SeverityTier string

const (
	SeverityWarning  SeverityTier = "warning"
	SeverityWatch    SeverityTier = "watch"
	SeverityAdvisory SeverityTier = "advisory"
	SeverityInfo     SeverityTier = "info"
)

// AlertType tags the kind of advisory an alert came from.
type AlertType string

const (
	AlertSIGMET AlertType = "SIGMET"
	AlertAIRMET AlertType = "AIRMET"
	AlertMETAR  AlertType = "METAR"
	AlertTAF    AlertType = "TAF"
	AlertPIREP  AlertType = "PIREP"
)

const maxAlertDescription = 200

// RawHazardReport is one advisory from the aviation weather feed.
type RawHazardReport struct {
	ID        string
	StationID string // ICAO identifier of the issuing station
	Hazard    string // e.g. "TURB", "CONVECTIVE"
	Severity  string // e.g. "SEV", "MOD", "LGT"
	ValidFrom time.Time
	ValidTo   time.Time
	AltLow    *int // hundreds of feet
	AltHigh   *int // hundreds of feet
	Coords    string
	RawText   string
	Type      AlertType
}

// AltitudeBand is an inclusive altitude range in feet.
type AltitudeBand struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// NormalizedWeatherAlert is an aviation hazard explained for non-pilots.
type NormalizedWeatherAlert struct {
	ID                 string        `json:"id"`
	Type               AlertType     `json:"type"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	LaymansDescription string        `json:"laymansDescription"`
	Severity           SeverityTier  `json:"severity"`
	Location           GeoLocation   `json:"location"`
	AffectedAltitude   *AltitudeBand `json:"affectedAltitude,omitempty"`
	ValidFrom          time.Time     `json:"validFrom"`
	ValidTo            time.Time     `json:"validTo"`
}

// RecordKey identifies the alert when a snapshot is published downstream.
func (a NormalizedWeatherAlert) RecordKey() string { return a.ID }

var severityTiers = map[string]SeverityTier{
	"SEV": SeverityWarning,
	"MOD": SeverityWatch,
	"LGT": SeverityAdvisory,
}

// SeverityFor maps a raw severity code to a tier. Unknown codes are advisories.
func SeverityFor(code string) SeverityTier {
	if tier, ok := severityTiers[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return tier
	}
	return SeverityAdvisory
}

var hazardNames = map[string]string{
	"TS":         "Thunderstorm",
	"TURB":       "Turbulence",
	"ICE":        "Icing",
	"MTN OBSCN":  "Mountain Obscuration",
	"IFR":        "Instrument Flight Rules",
	"LLWS":       "Low Level Wind Shear",
	"ASH":        "Volcanic Ash",
	"SFC WND":    "Surface Winds",
	"CONVECTIVE": "Convective Activity",
}

// HazardName returns the display name of a hazard code. Unknown codes are
// shown as-is.
func HazardName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Weather Hazard"
	}
	if name, ok := hazardNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

const (
	laymanThunderstorm = "Severe thunderstorms in the area. Expect turbulence, lightning, and potential hail. Aircraft should avoid this region."
	laymanSevereTurb   = "Extremely rough air. Flights may experience violent shaking. Secure all loose items and fasten seatbelts."
	laymanTurbulence   = "Bumpy conditions expected. Minor discomfort for passengers but safe for operations."
	laymanIcing        = "Freezing conditions that can cause ice buildup on aircraft. Anti-icing systems required for flight through this area."
	laymanAsh          = "Volcanic ash detected in atmosphere. Extremely hazardous to aircraft engines. All flights should avoid this area."
	laymanWind         = "Strong surface winds making takeoffs and landings challenging. Crosswind limits may apply."
	laymanGeneric      = "Aviation hazard reported in this area. Pilots should exercise caution and check current NOTAMs."
)

// LaymansDescription explains a hazard in plain language. Families are tried
// in order by substring; turbulence reads differently when severe.
func LaymansDescription(hazard, severity string) string {
	h := strings.ToLower(hazard)
	switch {
	case strings.Contains(h, "ts"), strings.Contains(h, "convective"):
		return laymanThunderstorm
	case strings.Contains(h, "turb"):
		if strings.EqualFold(strings.TrimSpace(severity), "SEV") {
			return laymanSevereTurb
		}
		return laymanTurbulence
	case strings.Contains(h, "ice"):
		return laymanIcing
	case strings.Contains(h, "ash"):
		return laymanAsh
	case strings.Contains(h, "sfc wnd"), strings.Contains(h, "wind"):
		return laymanWind
	}
	return laymanGeneric
}

var coordRe = regexp.MustCompile(`(?i)(\d+\.?\d*)([NS])\s*(\d+\.?\d*)([EW])`)

// ParseCoordinates reads the first "<deg><N|S> <deg><E|W>" pair in s.
// South and west hemispheres are negative.
func ParseCoordinates(s string) (lat, lng float64, ok bool) {
	m := coordRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, 0, false
	}
	if strings.EqualFold(m[2], "S") {
		lat = -lat
	}
	if strings.EqualFold(m[4], "W") {
		lng = -lng
	}
	return lat, lng, true
}

type latLng struct{ lat, lng float64 }

var regionalCenters = map[byte]latLng{
	'K': {40, -100},
	'E': {50, 10},
	'L': {45, 10},
	'U': {55, 40},
	'O': {30, 45},
	'Z': {35, 120},
}

var icaoRegions = map[byte]string{
	'K': "North America",
	'E': "Northern Europe",
	'L': "Southern Europe",
	'U': "Eastern Europe",
	'O': "Middle East",
	'Z': "Asia Pacific",
	'V': "South Asia",
}

func icaoPrefix(station string) byte {
	station = strings.TrimSpace(station)
	if station == "" {
		return 0
	}
	c := station[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return c
}

// RegionalCenter approximates a position from the first letter of the
// station identifier.
func RegionalCenter(station string) (lat, lng float64) {
	if c, ok := regionalCenters[icaoPrefix(station)]; ok {
		return c.lat, c.lng
	}
	return 40, 0
}

// RegionForStation labels the macro-region of an ICAO station.
func RegionForStation(station string) string {
	if r, ok := icaoRegions[icaoPrefix(station)]; ok {
		return r
	}
	return "Global"
}

// TranslateHazard shapes a raw report into an alert. The region label always
// comes from the station, even when coordinates were parsed from the report.
func TranslateHazard(r RawHazardReport) NormalizedWeatherAlert {
	lat, lng, ok := ParseCoordinates(r.Coords)
	if !ok {
		lat, lng = RegionalCenter(r.StationID)
	}

	typ := r.Type
	if typ == "" {
		typ = AlertSIGMET
	}

	description := truncateRunes(strings.TrimSpace(r.RawText), maxAlertDescription)
	if description == "" {
		description = "Aviation weather alert"
	}

	alert := NormalizedWeatherAlert{
		ID:                 fmt.Sprintf("sigmet-%s", r.ID),
		Type:               typ,
		Title:              fmt.Sprintf("%s - %s", HazardName(r.Hazard), r.StationID),
		Description:        description,
		LaymansDescription: LaymansDescription(r.Hazard, r.Severity),
		Severity:           SeverityFor(r.Severity),
		Location: GeoLocation{
			Lat:    lat,
			Lng:    lng,
			Region: RegionForStation(r.StationID),
		},
		ValidFrom: r.ValidFrom,
		ValidTo:   r.ValidTo,
	}
	if r.AltLow != nil && r.AltHigh != nil && *r.AltLow != 0 && *r.AltHigh != 0 {
		alert.AffectedAltitude = &AltitudeBand{Min: *r.AltLow * 100, Max: *r.AltHigh * 100}
	}
	return alert
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
