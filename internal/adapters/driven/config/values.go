// Package config holds the value conversions shared by the ConfigStore
// adapters. Values arrive either from TOML decoding (int64, float64, []any)
// or from Set calls with plain Go types.
package config

import "math"

// AsString returns v if it is a string.
func AsString(v any) string {
	s, _ := v.(string)
	return s
}

// AsInt converts integer values. Floats are accepted only when integral,
// so "workers = 4.0" reads as 4 and "workers = 4.5" reads as 0.
func AsInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	}
	return 0
}

// AsFloat converts any numeric value. TOML integers are accepted so
// "requests_per_second = 2" and "requests_per_second = 2.0" read the same.
func AsFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

// AsBool returns v if it is a bool.
func AsBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// AsStringSlice converts string arrays. Non-string items of a TOML
// array are skipped.
func AsStringSlice(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
