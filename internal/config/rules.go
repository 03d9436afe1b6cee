package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/couchcryptid/sitrep-feeds/internal/adapter/opensky"
	"github.com/couchcryptid/sitrep-feeds/internal/domain"
)

// Rules are the classification tables. Every key a RULES_FILE sets replaces
// the compiled-in value as a whole, lists and maps included; keys it does not
// set keep their defaults.
type Rules struct {
	Aircraft domain.AircraftRules `toml:"aircraft"`
	Markets  domain.MarketRules   `toml:"markets"`
	Geofence []domain.BoundingBox `toml:"geofence"`
	Regions  []opensky.Region     `toml:"regions"`
}

// DefaultRules returns the compiled-in tables.
func DefaultRules() Rules {
	return Rules{
		Aircraft: domain.DefaultAircraftRules(),
		Markets:  domain.DefaultMarketRules(),
		Geofence: domain.DefaultBoxes(),
		Regions:  opensky.HotspotRegions(),
	}
}

// LoadRules reads a TOML rules file over the defaults. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadRules(path string) (Rules, error) {
	var file Rules
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return Rules{}, fmt.Errorf("read RULES_FILE: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Rules{}, fmt.Errorf("RULES_FILE: unknown keys: %s", strings.Join(keys, ", "))
	}

	rules := DefaultRules()
	for _, o := range overrides(&rules, &file) {
		if md.IsDefined(o.key...) {
			o.apply()
		}
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("RULES_FILE: %w", err)
	}
	return rules, nil
}

// override copies one key from the decoded file into the defaults. The file
// is decoded into an empty Rules first: decoding straight over the defaults
// would merge maps and fill array-of-table entries from the default at the
// same index.
type override struct {
	key   []string
	apply func()
}

func overrides(dst, src *Rules) []override {
	return []override{
		{[]string{"aircraft", "military_prefixes"}, func() { dst.Aircraft.MilitaryPrefixes = src.Aircraft.MilitaryPrefixes }},
		{[]string{"aircraft", "watch_countries"}, func() { dst.Aircraft.WatchCountries = src.Aircraft.WatchCountries }},
		{[]string{"aircraft", "category_rules"}, func() { dst.Aircraft.CategoryRules = src.Aircraft.CategoryRules }},
		{[]string{"aircraft", "type_names"}, func() { dst.Aircraft.TypeNames = src.Aircraft.TypeNames }},
		{[]string{"aircraft", "category_labels"}, func() { dst.Aircraft.CategoryLabels = src.Aircraft.CategoryLabels }},
		{[]string{"aircraft", "watch_altitude_ft"}, func() { dst.Aircraft.WatchAltitudeFt = src.Aircraft.WatchAltitudeFt }},
		{[]string{"aircraft", "registration_altitude_ft"}, func() { dst.Aircraft.RegistrationAltitudeFt = src.Aircraft.RegistrationAltitudeFt }},
		{[]string{"markets", "keywords"}, func() { dst.Markets.Keywords = src.Markets.Keywords }},
		{[]string{"markets", "category_groups"}, func() { dst.Markets.CategoryGroups = src.Markets.CategoryGroups }},
		{[]string{"markets", "max_results"}, func() { dst.Markets.MaxResults = src.Markets.MaxResults }},
		{[]string{"markets", "sparkline_len"}, func() { dst.Markets.SparklineLen = src.Markets.SparklineLen }},
		{[]string{"geofence"}, func() { dst.Geofence = src.Geofence }},
		{[]string{"regions"}, func() { dst.Regions = src.Regions }},
	}
}

// Validate checks the tables for values the classifiers cannot use.
func (r Rules) Validate() error {
	var errs []error
	for i, rule := range r.Aircraft.CategoryRules {
		if !rule.Category.Valid() {
			errs = append(errs, fmt.Errorf("aircraft.category_rules[%d]: unknown category %q", i, rule.Category))
		}
		if len(rule.Prefixes) == 0 {
			errs = append(errs, fmt.Errorf("aircraft.category_rules[%d]: no prefixes", i))
		}
	}
	for i, g := range r.Markets.CategoryGroups {
		if !g.Category.Valid() {
			errs = append(errs, fmt.Errorf("markets.category_groups[%d]: unknown category %q", i, g.Category))
		}
	}
	if len(r.Markets.Keywords) == 0 {
		errs = append(errs, errors.New("markets.keywords: empty"))
	}
	if r.Markets.MaxResults < 1 {
		errs = append(errs, errors.New("markets.max_results: must be positive"))
	}
	if r.Markets.SparklineLen < 2 {
		errs = append(errs, errors.New("markets.sparkline_len: must be at least 2"))
	}
	for i, b := range r.Geofence {
		if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
			errs = append(errs, fmt.Errorf("geofence[%d]: min exceeds max", i))
		}
	}
	if len(r.Regions) == 0 {
		errs = append(errs, errors.New("regions: empty"))
	}
	for i, reg := range r.Regions {
		if reg.LatMin > reg.LatMax || reg.LngMin > reg.LngMax {
			errs = append(errs, fmt.Errorf("regions[%d] %q: min exceeds max", i, reg.Name))
		}
	}
	return errors.Join(errs...)
}
