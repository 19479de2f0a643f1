package util

import (
	"encoding/json"
	"math"
)

// SafeStringFromMap returns the string at key, or "" if missing or not a string.
func SafeStringFromMap(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// SafeNumberFromMap returns the number at key, or nil if missing, null,
// non-numeric or not finite. Decoders hand numbers over as float64 (JSON),
// int64 (Firestore) or json.Number; all are accepted.
func SafeNumberFromMap(m map[string]interface{}, key string) *float64 {
	if m == nil {
		return nil
	}
	var f float64
	switch v := m[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
