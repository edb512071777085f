// internal/data/parser.go
package data

import (
	"math"
	"strconv"
	"time"
)

// Field looks up a key in a decoded JSON payload. Returns false when the
// payload is not an object or the key is missing or null.
func Field(payload any, key string) (any, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Float coerces a JSON value to float64. Device firmware sometimes sends
// coordinates as strings, so both numbers and numeric strings are accepted.
// NaN and infinities are rejected.
func Float(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
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

// Int coerces a JSON value to int, truncating fractional parts.
func Int(v any) (int, bool) {
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// String returns a non-empty string value.
func String(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Timestamp interprets a payload timestamp. Numbers are epoch milliseconds
// (epoch seconds when the magnitude says so); strings are RFC3339.
func Timestamp(v any) (time.Time, bool) {
	switch val := v.(type) {
	case float64:
		if val <= 0 {
			return time.Time{}, false
		}
		ms := int64(val)
		if ms < 1e12 { // epoch seconds
			return time.Unix(ms, 0), true
		}
		return time.UnixMilli(ms), true
	case string:
		if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
