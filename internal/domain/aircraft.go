package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

const (
	feetPerMeter        = 3.28084
	knotsPerMeterPerSec = 1.944
)

// squawkLikeRe matches scheduled-style designators: 2-4 letters then 2-4 digits.
var squawkLikeRe = regexp.MustCompile(`^[A-Z]{2,4}\d{2,4}$`)

// CallsignRule assigns Category to any callsign starting with one of Prefixes.
type CallsignRule struct {
	Prefixes []string         `toml:"prefixes"`
	Category AircraftCategory `toml:"category"`
}

// Match reports whether the upper-cased callsign starts with one of the rule's prefixes.
func (r CallsignRule) Match(callsign string) bool {
	return hasAnyPrefix(callsign, r.Prefixes)
}

// TypeName maps a callsign prefix to the airframe that usually flies it.
type TypeName struct {
	Prefix string `toml:"prefix"`
	Name   string `toml:"name"`
}

// AircraftRules is the data that drives classification. Every list is
// evaluated in order, first match wins.
type AircraftRules struct {
	MilitaryPrefixes []string                    `toml:"military_prefixes"`
	WatchCountries   []string                    `toml:"watch_countries"`
	CategoryRules    []CallsignRule              `toml:"category_rules"`
	TypeNames        []TypeName                  `toml:"type_names"`
	CategoryLabels   map[AircraftCategory]string `toml:"category_labels"`

	// WatchAltitudeFt admits watch-listed traffic above this altitude even
	// without a squawk-like callsign.
	WatchAltitudeFt int `toml:"watch_altitude_ft"`
	// RegistrationAltitudeFt admits N-registered civil aircraft above this
	// altitude, which sits over normal airline cruise levels.
	RegistrationAltitudeFt int `toml:"registration_altitude_ft"`
}

// DefaultAircraftRules returns the compiled-in registries.
func DefaultAircraftRules() AircraftRules {
	return AircraftRules{
		MilitaryPrefixes: []string{
			"RRR", "FORTE", "LAGR", "DUKE", "VIPER", "JAKE", "REDEYE", "RCH",
			"REACH", "NCHO", "SPAR", "SAM", "NAVY", "USAF", "RAF", "GAF",
			"IAF", "PLN", "CHAOS", "OMNI", "EVAC", "JUDGE", "HOMER", "EVIL",
			"DOOM", "BATT", "BOXER", "CODY", "COBRA", "DARK", "DEMON", "EAGLE",
			"GIANT", "HAWK", "IRON", "LANCE", "MAGMA", "NIGHT", "ORCA", "PANTH",
			"QUID", "RAZOR", "SLAM", "SWORD", "TIGER", "VENOM", "WOLF", "ZERO",
			"MMF", "RFF", "IAM", "CNV", "CFC", "AIO",
		},
		WatchCountries: []string{
			"United States", "Russia", "China", "United Kingdom", "France",
			"Germany", "Israel", "Ukraine", "Poland", "Turkey", "Japan",
			"South Korea", "Australia", "Canada", "Italy", "Spain", "Netherlands",
			"Belgium", "Norway", "Sweden", "Finland", "Romania", "Greece",
		},
		CategoryRules: []CallsignRule{
			{Prefixes: []string{"FORTE", "RQ", "MQ"}, Category: CategoryDrone},
			{Prefixes: []string{"RRR", "JAKE", "REDEYE", "DUKE", "NCHO"}, Category: CategorySurveillance},
			{Prefixes: []string{"LAGR", "HOMER", "SHELL", "TEXAN"}, Category: CategoryTanker},
			{Prefixes: []string{"RCH", "REACH", "GIANT"}, Category: CategoryTransport},
			{Prefixes: []string{"SAM", "EXEC", "AF1", "AF2"}, Category: CategoryGovernment},
			{Prefixes: []string{"VIPER", "EAGLE", "COBRA", "DEMON"}, Category: CategoryFighter},
			{Prefixes: []string{"DOOM", "DARK", "NIGHT"}, Category: CategoryBomber},
		},
		TypeNames: []TypeName{
			{Prefix: "RRR", Name: "Boeing RC-135 Rivet Joint"},
			{Prefix: "FORTE", Name: "RQ-4B Global Hawk"},
			{Prefix: "LAGR", Name: "KC-135 Stratotanker"},
			{Prefix: "DUKE", Name: "E-3 Sentry AWACS"},
			{Prefix: "JAKE", Name: "P-8A Poseidon"},
			{Prefix: "REDEYE", Name: "E-8C JSTARS"},
			{Prefix: "RCH", Name: "C-17 Globemaster III"},
			{Prefix: "REACH", Name: "C-17 Globemaster III"},
			{Prefix: "HOMER", Name: "KC-10 Extender"},
			{Prefix: "NCHO", Name: "E-6B Mercury"},
		},
		CategoryLabels: map[AircraftCategory]string{
			CategorySurveillance: "Reconnaissance Aircraft",
			CategoryTanker:       "Aerial Refueling Tanker",
			CategoryTransport:    "Military Transport",
			CategoryGovernment:   "Government VIP Aircraft",
			CategoryFighter:      "Fighter Aircraft",
			CategoryBomber:       "Strategic Bomber",
			CategoryHelicopter:   "Military Helicopter",
			CategoryDrone:        "Unmanned Aerial Vehicle",
			CategoryMilitary:     "Military Aircraft",
		},
		WatchAltitudeFt:        35000,
		RegistrationAltitudeFt: 40000,
	}
}

// Retention says which filter step let a state vector through.
type Retention string

const (
	RetainNone                     Retention = ""
	RetainMilitaryCallsign         Retention = "military_callsign"
	RetainWatchedCountry           Retention = "watched_country"
	RetainHighAltitudeRegistration Retention = "high_altitude_registration"
)

// AircraftClassifier filters and labels transponder state vectors.
// It is immutable after construction and safe for concurrent use.
type AircraftClassifier struct {
	rules    AircraftRules
	military []string
	watch    map[string]struct{}
	geofence *Geofence
}

// NewAircraftClassifier builds a classifier. A nil geofence uses DefaultBoxes.
func NewAircraftClassifier(rules AircraftRules, geofence *Geofence) *AircraftClassifier {
	if geofence == nil {
		geofence = defaultGeofence
	}
	c := &AircraftClassifier{
		rules:    rules,
		military: upperAll(rules.MilitaryPrefixes),
		watch:    make(map[string]struct{}, len(rules.WatchCountries)),
		geofence: geofence,
	}
	for _, country := range rules.WatchCountries {
		c.watch[strings.ToLower(strings.TrimSpace(country))] = struct{}{}
	}
	c.rules.CategoryRules = make([]CallsignRule, len(rules.CategoryRules))
	for i, rule := range rules.CategoryRules {
		c.rules.CategoryRules[i] = CallsignRule{Prefixes: upperAll(rule.Prefixes), Category: rule.Category}
	}
	return c
}

// IsMilitaryCallsign reports whether the callsign carries a registry prefix.
func (c *AircraftClassifier) IsMilitaryCallsign(callsign string) bool {
	callsign = normalizeCallsign(callsign)
	if callsign == "" {
		return false
	}
	return hasAnyPrefix(callsign, c.military)
}

// IsWatchedCountry reports whether the feed-supplied origin country is on the watch-list.
func (c *AircraftClassifier) IsWatchedCountry(country string) bool {
	_, ok := c.watch[strings.ToLower(strings.TrimSpace(country))]
	return ok
}

// Retain runs the admission filter:
//   - a military registry prefix always passes
//   - a watch-listed country passes with a squawk-like callsign or above WatchAltitudeFt
//   - an N-registration of at most six characters passes above RegistrationAltitudeFt
func (c *AircraftClassifier) Retain(callsign, country string, altitudeFt int) Retention {
	callsign = normalizeCallsign(callsign)
	if callsign == "" {
		return RetainNone
	}
	if hasAnyPrefix(callsign, c.military) {
		return RetainMilitaryCallsign
	}
	if c.IsWatchedCountry(country) {
		if squawkLikeRe.MatchString(callsign) || altitudeFt > c.rules.WatchAltitudeFt {
			return RetainWatchedCountry
		}
	}
	if strings.HasPrefix(callsign, "N") && len(callsign) <= 6 && altitudeFt > c.rules.RegistrationAltitudeFt {
		return RetainHighAltitudeRegistration
	}
	return RetainNone
}

// Category walks the ordered prefix rules. Callsigns no rule claims become
// military when they carry a registry prefix and fly for a watch-listed
// country, civil otherwise.
func (c *AircraftClassifier) Category(callsign, country string) AircraftCategory {
	callsign = normalizeCallsign(callsign)
	if callsign == "" {
		return CategoryCivil
	}
	for _, rule := range c.rules.CategoryRules {
		if rule.Match(callsign) {
			return rule.Category
		}
	}
	if c.IsWatchedCountry(country) && hasAnyPrefix(callsign, c.military) {
		return CategoryMilitary
	}
	return CategoryCivil
}

// AircraftType resolves a display name: the curated airframe for the prefix,
// then the generic label for the category, then "Aircraft".
func (c *AircraftClassifier) AircraftType(callsign string, category AircraftCategory) string {
	callsign = normalizeCallsign(callsign)
	for _, tn := range c.rules.TypeNames {
		if tn.Prefix != "" && strings.HasPrefix(callsign, strings.ToUpper(tn.Prefix)) {
			return tn.Name
		}
	}
	if label, ok := c.rules.CategoryLabels[category]; ok && label != "" {
		return label
	}
	return "Aircraft"
}

// Classify turns one state vector into a flight, or reports false when the
// vector has no position, is on the ground, fails admission, or resolves to civil.
func (c *AircraftClassifier) Classify(state RawAircraftState, observed time.Time) (NormalizedFlight, bool) {
	if state.Latitude == nil || state.Longitude == nil || state.OnGround {
		return NormalizedFlight{}, false
	}
	icao := strings.ToLower(strings.TrimSpace(state.ICAO24))
	if icao == "" {
		return NormalizedFlight{}, false
	}

	callsign := normalizeCallsign(state.Callsign)
	altitudeFt := metersToFeet(state.BaroAltitude)

	if c.Retain(callsign, state.OriginCountry, altitudeFt) == RetainNone {
		return NormalizedFlight{}, false
	}
	category := c.Category(callsign, state.OriginCountry)
	if category == CategoryCivil {
		return NormalizedFlight{}, false
	}

	lat, lng := *state.Latitude, *state.Longitude
	place := c.geofence.Resolve(lat, lng)

	return NormalizedFlight{
		ID:           fmt.Sprintf("opensky-%s", icao),
		Callsign:     displayCallsign(callsign, icao),
		AircraftType: c.AircraftType(callsign, category),
		Category:     category,
		Location: GeoLocation{
			Lat:     lat,
			Lng:     lng,
			Region:  place.Region,
			Country: place.Country,
		},
		Altitude:  altitudeFt,
		Speed:     msToKnots(state.Velocity),
		Heading:   roundOrZero(state.TrueTrack),
		Timestamp: observed,
	}, true
}

// FlightBatch collects one poll cycle. The first emitted flight for an
// ICAO24 address wins; later rows for the same address are dropped.
type FlightBatch struct {
	classifier *AircraftClassifier
	observed   time.Time
	seen       map[string]struct{}
	flights    []NormalizedFlight
}

// NewBatch starts a poll cycle stamped with the observation time.
func (c *AircraftClassifier) NewBatch(observed time.Time) *FlightBatch {
	return &FlightBatch{
		classifier: c,
		observed:   observed,
		seen:       make(map[string]struct{}),
	}
}

// Add classifies the state and keeps it when it qualifies and is not a repeat.
func (b *FlightBatch) Add(state RawAircraftState) bool {
	key := strings.ToLower(strings.TrimSpace(state.ICAO24))
	if _, dup := b.seen[key]; dup {
		return false
	}
	flight, ok := b.classifier.Classify(state, b.observed)
	if !ok {
		return false
	}
	b.seen[key] = struct{}{}
	b.flights = append(b.flights, flight)
	return true
}

// Flights returns the flights collected so far in arrival order.
func (b *FlightBatch) Flights() []NormalizedFlight {
	return b.flights
}

// Len returns the number of flights collected so far.
func (b *FlightBatch) Len() int { return len(b.flights) }

func metersToFeet(m *float64) int {
	if m == nil {
		return 0
	}
	return int(math.Round(*m * feetPerMeter))
}

func msToKnots(v *float64) int {
	if v == nil {
		return 0
	}
	return int(math.Round(*v * knotsPerMeterPerSec))
}

func roundOrZero(v *float64) int {
	if v == nil {
		return 0
	}
	return int(math.Round(*v))
}

// displayCallsign falls back to the upper-cased ICAO24 address when the
// transponder sent no callsign.
func displayCallsign(callsign, icao string) string {
	if callsign != "" {
		return callsign
	}
	return strings.ToUpper(icao)
}

func normalizeCallsign(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToUpper(strings.TrimSpace(s)))
	}
	return out
}
