// Package cleaning implements the tabular cleaning pipeline: deduplication,
// whitespace trimming, type inference, missing-value imputation and IQR
// outlier removal, plus the orchestrator that composes them.
//
// Every function is pure. Inputs are never modified and each call returns
// freshly allocated rows, so callers may share a dataset across goroutines.
package cleaning

import (
	"strings"

	"dataprep/internal/cell"
	"dataprep/internal/transformer"
	"dataprep/pkg/records"
)

// DedupeResult is the outcome of Dedupe.
type DedupeResult struct {
	Rows    []records.Row
	Removed int
}

// Dedupe keeps the first occurrence of every structurally distinct row.
// Rows with equal content but a different key order are distinct.
func Dedupe(rows []records.Row) (DedupeResult, error) {
	seen := make(map[string]struct{}, len(rows))
	kept := make([]records.Row, 0, len(rows))
	for _, r := range rows {
		key, err := transformer.StructuralKey(r)
		if err != nil {
			return DedupeResult{}, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r.Clone())
	}
	return DedupeResult{Rows: kept, Removed: len(rows) - len(kept)}, nil
}

// Trim returns rows with every string cell whitespace-trimmed.
func Trim(rows []records.Row) []records.Row {
	return mapCells(rows, func(v any) any {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
		return v
	})
}

// InferTypes reclassifies string cells: missing becomes nil, "true"/"false"
// become booleans and fully numeric strings become float64. Anything else,
// including non-string cells, passes through.
func InferTypes(rows []records.Row) []records.Row {
	return mapCells(rows, inferCell)
}

func inferCell(v any) any {
	if cell.IsMissing(v) {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if f, ok := cell.ParseNumber(s); ok {
		return f
	}
	return v
}

func mapCells(rows []records.Row, fn func(any) any) []records.Row {
	out := make([]records.Row, len(rows))
	for i, r := range rows {
		var nr records.Row
		r.Range(func(k string, v any) bool {
			nr.Set(k, fn(v))
			return true
		})
		out[i] = nr
	}
	return out
}
