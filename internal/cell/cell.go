// Package cell classifies individual cell values. Every stage of the cleaning
// pipeline uses IsMissing and ParseNumber so "absent" and "numeric" mean the
// same thing everywhere.
package cell

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// IsMissing reports whether v is nil or a string that is empty after trimming
// whitespace. Zero, false and sentinel strings such as "N/A" are present.
func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []byte:
		return strings.TrimSpace(string(t)) == ""
	default:
		return false
	}
}

// ParseNumber returns v as a finite float64.
//
// Strings must parse in full after trimming ("12abc" is not a number).
// Booleans are never numbers. NaN and infinities are rejected.
func ParseNumber(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err = strconv.ParseFloat(s, 64)
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		f, err = cast.ToFloat64E(t)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NumberOrZero is ParseNumber with 0 as the fallback.
func NumberOrZero(v any) float64 {
	f, _ := ParseNumber(v)
	return f
}

// Round2 rounds to two decimals, halves away from zero. Negative zero is
// normalized to 0.
func Round2(f float64) float64 {
	r := math.Round(f*100) / 100
	if r == 0 {
		return 0
	}
	return r
}
