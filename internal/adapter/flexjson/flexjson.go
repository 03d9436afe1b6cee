// Package flexjson reads JSON scalars that upstream APIs encode
// inconsistently, such as ids that are sometimes numbers and sometimes strings.
package flexjson

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// String reads a string or number. null and absent values are "".
func String(raw json.RawMessage) (string, bool) {
	v, ok := scalar(raw)
	if !ok {
		return "", false
	}
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

// Float reads a number or numeric string. null, absent and "" are 0.
func Float(raw json.RawMessage) (float64, bool) {
	v, ok := scalar(raw)
	if !ok {
		return 0, false
	}
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, true
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// OptionalInt reads a number or numeric string, rounded. null, absent and ""
// are reported as nil.
func OptionalInt(raw json.RawMessage) (*int, bool) {
	if isNull(raw) {
		return nil, true
	}
	if s, ok := String(raw); ok && strings.TrimSpace(s) == "" {
		return nil, true
	}
	f, ok := Float(raw)
	if !ok {
		return nil, false
	}
	n := int(math.Round(f))
	return &n, true
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func scalar(raw json.RawMessage) (any, bool) {
	if isNull(raw) {
		return nil, true
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return nil, false
	}
	return v, true
}
