package schema

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"dataprep/pkg/records"
)

var isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T|$)`)

// InferType maps a sample value to a ColumnType.
//
//	nil                         VARCHAR
//	bool                        BOOLEAN
//	integral number             INTEGER
//	other number                DECIMAL
//	"YYYY-MM-DD" or "...T..."   TIMESTAMP
//	canonical UUID string       UUID
//	array or object             JSON
//	any other string            VARCHAR
func InferType(v any) ColumnType {
	switch t := v.(type) {
	case nil:
		return TypeVarchar
	case bool:
		return TypeBoolean
	case float64:
		return numberType(t)
	case float32:
		return numberType(float64(t))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return numberType(f)
		}
		return TypeVarchar
	case string:
		return stringType(t)
	case []any, records.Row, map[string]any:
		return TypeJSON
	default:
		return TypeVarchar
	}
}

func numberType(f float64) ColumnType {
	if !math.IsInf(f, 0) && f == math.Trunc(f) {
		return TypeInteger
	}
	return TypeDecimal
}

func stringType(s string) ColumnType {
	if isoDatePrefix.MatchString(s) {
		return TypeTimestamp
	}
	if isCanonicalUUID(s) {
		return TypeUUID
	}
	return TypeVarchar
}

// isCanonicalUUID accepts only the 8-4-4-4-12 hex form; uuid.Parse alone
// also takes urn: and braced variants.
func isCanonicalUUID(s string) bool {
	if len(s) != 36 || strings.Count(s, "-") != 4 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
