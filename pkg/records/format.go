package records

import (
	"encoding/json"
	"math"
	"strconv"
)

// FormatValue renders a cell as display text: nil is "", numbers use the
// shortest round-trip form, and nested values are JSON encoded.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case Row:
		b, err := t.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	// encoding/json already picks the ES6 number form (1e+21, 1e-7, 2.5).
	b, _ := json.Marshal(f)
	return string(b)
}
