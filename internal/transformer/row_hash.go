// Package transformer derives values from whole rows: structural row keys and
// field hashes, plus column-pair transforms.
package transformer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dataprep/pkg/records"
)

// StructuralKey returns the dedupe key for r: the hex SHA-256 of the row's
// JSON serialization in key order. Two rows share a key iff they hold the
// same keys in the same order with identically serialized values.
func StructuralKey(r records.Row) (string, error) {
	b, err := r.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("structural key: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// HashSpec computes a deterministic SHA-256 over selected fields and writes it
// into TargetField.
//
// Loaders use it to give exported rows a stable, always-non-null key so that
// re-running a job does not insert the same row twice.
//
// Canonicalization:
//   - Fields are concatenated in the given order using Separator.
//   - Missing or nil values are encoded as a single NUL byte so missing
//     differs from empty-string.
//   - time.Time values are encoded as RFC3339Nano in UTC.
//   - Output is a lowercase hex string (length 64).
type HashSpec struct {
	// Fields is the ordered list of input fields used to compute the hash.
	Fields []string

	// TargetField is where the computed hash is stored.
	TargetField string

	// IncludeFieldNames includes "field=value" in the canonical form.
	IncludeFieldNames bool

	// Separator between field components. Defaults to ASCII Unit Separator.
	Separator string

	// Overwrite replaces an existing TargetField value.
	Overwrite bool

	// TrimSpace trims string values before hashing.
	TrimSpace bool
}

// Apply returns copies of rows with TargetField set. Inputs are not modified.
func (h HashSpec) Apply(rows []records.Row) []records.Row {
	out := records.CloneRows(rows)
	if h.TargetField == "" || len(h.Fields) == 0 {
		return out
	}
	for i := range out {
		if !h.Overwrite && out[i].Has(h.TargetField) {
			continue
		}
		out[i].Set(h.TargetField, h.Sum(out[i]))
	}
	return out
}

// Sum returns the hex hash of r without modifying it.
func (h HashSpec) Sum(r records.Row) string {
	sep := h.Separator
	if sep == "" {
		sep = "\x1f"
	}

	var b strings.Builder
	b.Grow(len(h.Fields) * 20)

	for i, f := range h.Fields {
		if i > 0 {
			b.WriteString(sep)
		}
		if h.IncludeFieldNames {
			b.WriteString(f)
			b.WriteByte('=')
		}
		v, ok := r.Get(f)
		if !ok || v == nil {
			b.WriteByte('\x00')
			continue
		}
		appendCanonicalValue(&b, v, h.TrimSpace)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func appendCanonicalValue(b *strings.Builder, v any, trimSpace bool) {
	switch t := v.(type) {
	case nil:
		b.WriteByte('\x00')

	case string:
		if trimSpace && HasEdgeSpace(t) {
			t = strings.TrimSpace(t)
		}
		b.WriteString(t)

	case bool:
		b.WriteString(strconv.FormatBool(t))

	case int:
		b.WriteString(strconv.Itoa(t))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))

	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))

	case time.Time:
		tt := t
		if !tt.IsZero() {
			tt = tt.UTC()
		}
		b.WriteString(tt.Format(time.RFC3339Nano))

	default:
		b.WriteString(records.FormatValue(t))
	}
}

// HasEdgeSpace reports whether s starts or ends with an ASCII space or tab.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == ' ' || s[len(s)-1] == ' ' || s[0] == '\t' || s[len(s)-1] == '\t'
}
