package schema

import (
	"sort"
	"strings"

	"dataprep/pkg/records"
)

// JSONToMetadata infers table metadata from a decoded JSON document, which
// must be a non-empty array of objects. Objects are records.Row values as
// produced by records.DecodeJSON; plain map[string]any elements are accepted
// with their keys sorted.
func JSONToMetadata(doc any) (Metadata, error) {
	arr, ok := doc.([]any)
	if !ok {
		return Metadata{}, invalidInput("expected a JSON array of objects, got %s", jsonKind(doc))
	}
	if len(arr) == 0 {
		return Metadata{}, invalidInput("JSON array is empty")
	}
	rows := make([]records.Row, len(arr))
	for i, el := range arr {
		switch t := el.(type) {
		case records.Row:
			rows[i] = t
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			var r records.Row
			for _, k := range keys {
				r.Set(k, t[k])
			}
			rows[i] = r
		default:
			return Metadata{}, invalidInput("element %d is %s, not an object", i, jsonKind(el))
		}
	}
	return RowsToMetadata(rows, DefaultTableName)
}

// RowsToMetadata infers metadata from rows. Columns are the union of row
// keys in first-seen order. fallbackName names the table when no id-like
// column does.
func RowsToMetadata(rows []records.Row, fallbackName string) (Metadata, error) {
	if len(rows) == 0 {
		return Metadata{}, invalidInput("no rows to infer from")
	}
	keys := records.HeadersFromRows(rows)
	meta := Metadata{
		TableName: InferTableName(keys, fallbackName),
		Columns:   make([]ColumnMetadata, 0, len(keys)),
		RowCount:  len(rows),
	}
	for _, k := range keys {
		values := make([]any, len(rows))
		present := make([]bool, len(rows))
		for i, r := range rows {
			v, ok := r.Get(k)
			values[i], present[i] = v, ok && v != nil
		}
		meta.Columns = append(meta.Columns, inferColumn(k, values, present))
	}
	return meta, nil
}

// inferColumn builds ColumnMetadata from one value per row; present[i] is
// false where the row lacks the key or holds nil.
func inferColumn(name string, values []any, present []bool) ColumnMetadata {
	col := ColumnMetadata{Name: name, Type: TypeVarchar, SampleValues: []any{}}

	distinct := make(map[string]struct{}, len(values))
	nonNull := 0
	typed := false
	for i, v := range values {
		if !present[i] {
			col.Nullable = true
			continue
		}
		nonNull++
		if !typed {
			col.Type = InferType(v)
			typed = true
		}
		if len(col.SampleValues) < MaxSampleValues {
			col.SampleValues = append(col.SampleValues, v)
		}
		distinct[records.FormatValue(v)] = struct{}{}
	}

	col.Unique = nonNull == len(values) && len(distinct) == nonNull
	col.PrimaryKey = isPrimaryKey(name, col.Type, col.Unique)
	return col
}

func isPrimaryKey(name string, t ColumnType, unique bool) bool {
	lower := strings.ToLower(name)
	switch {
	case lower == "id", strings.HasSuffix(lower, "_id"):
		return true
	case unique && t == TypeUUID:
		return true
	case unique && t == TypeInteger && strings.Contains(lower, "id"):
		return true
	}
	return false
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case records.Row, map[string]any:
		return "an object"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case float64:
		return "a number"
	default:
		return "an unsupported value"
	}
}
