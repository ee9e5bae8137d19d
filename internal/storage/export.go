package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cast"

	"dataprep/internal/schema"
	"dataprep/internal/transformer"
	"dataprep/pkg/records"
)

// Plan maps a dataset onto a table: which source field feeds which column,
// how values are converted, and the row hash used to skip rows already
// exported.
type Plan struct {
	Table      TableSpec
	Sources    []string
	Types      []schema.ColumnType
	HashColumn string
}

// NewPlan infers the table for rows. Column types are widened so every
// value in the column fits: INTEGER mixed with DECIMAL becomes DECIMAL and
// any other mix becomes VARCHAR. Whole numbers outside the int64 range are
// DECIMAL.
func NewPlan(rows []records.Row, table string, d Dialect) (Plan, error) {
	meta, err := schema.RowsToMetadata(rows, schema.DefaultTableName)
	if err != nil {
		return Plan{}, fmt.Errorf("infer table: %w", err)
	}
	for i, c := range meta.Columns {
		meta.Columns[i].Type = widenType(c.Name, rows)
	}

	spec, err := TableSpecFromMetadata(meta, table, d)
	if err != nil {
		return Plan{}, err
	}
	// The row hash carries identity; source keys may repeat across runs.
	spec.PrimaryKey = nil

	p := Plan{
		Sources:    make([]string, len(meta.Columns)),
		Types:      make([]schema.ColumnType, len(meta.Columns)),
		HashColumn: RowHashColumn,
	}
	for i, c := range meta.Columns {
		p.Sources[i] = c.Name
		p.Types[i] = c.Type
		if spec.Columns[i].Name == RowHashColumn {
			p.HashColumn = fallbackRowHashColumn
		}
	}

	notNull := false
	spec.Columns = append(spec.Columns, ColumnSpec{Name: p.HashColumn, Type: d.HashType, Nullable: &notNull})
	spec.Constraints = append(spec.Constraints, ConstraintSpec{Kind: "unique", Columns: []string{p.HashColumn}})
	p.Table = spec
	return p, nil
}

// Columns returns the insert column list, hash column last.
func (p Plan) Columns() []string {
	out := make([]string, len(p.Table.Columns))
	for i, c := range p.Table.Columns {
		out[i] = c.Name
	}
	return out
}

// Values converts rows into insert tuples aligned with Columns.
func (p Plan) Values(rows []records.Row) ([][]any, error) {
	hash := transformer.HashSpec{Fields: p.Sources, IncludeFieldNames: true}
	out := make([][]any, len(rows))
	for i, r := range rows {
		tuple := make([]any, 0, len(p.Sources)+1)
		for j, src := range p.Sources {
			v, err := convertValue(r.Value(src), p.Types[j])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, src, err)
			}
			tuple = append(tuple, v)
		}
		out[i] = append(tuple, hash.Sum(r))
	}
	return out, nil
}

// ExportResult reports what Export did.
type ExportResult struct {
	Table    string
	Inserted int64
	Skipped  int64
}

// Export writes rows to the table named table (or an inferred name) in the
// backend selected by cfg, creating the table if needed. Rows already
// present, by row hash, are skipped.
func Export(ctx context.Context, cfg Config, table string, rows []records.Row) (ExportResult, error) {
	b, err := Lookup(cfg.Kind)
	if err != nil {
		return ExportResult{}, err
	}
	plan, err := NewPlan(rows, table, b.Dialect)
	if err != nil {
		return ExportResult{}, err
	}
	values, err := plan.Values(rows)
	if err != nil {
		return ExportResult{}, err
	}

	repo, err := b.Open(ctx, cfg)
	if err != nil {
		return ExportResult{}, fmt.Errorf("open %s: %w", cfg.Kind, err)
	}
	defer repo.Close()

	res := ExportResult{Table: plan.Table.Name}
	if err := repo.EnsureTable(ctx, plan.Table); err != nil {
		return res, fmt.Errorf("ensure table %s: %w", plan.Table.Name, err)
	}

	cols := plan.Columns()
	conflict := []string{plan.HashColumn}
	step := b.Dialect.BatchRows(len(cols))
	for start := 0; start < len(values); start += step {
		end := min(start+step, len(values))
		n, err := repo.InsertRows(ctx, plan.Table.Name, cols, values[start:end], conflict)
		if err != nil {
			return res, fmt.Errorf("insert into %s: %w", plan.Table.Name, err)
		}
		res.Inserted += n
	}
	res.Skipped = int64(len(values)) - res.Inserted
	return res, nil
}

// widenType returns the narrowest type that holds every non-nil value of
// column name.
func widenType(name string, rows []records.Row) schema.ColumnType {
	var out schema.ColumnType
	for _, r := range rows {
		v := r.Value(name)
		if v == nil {
			continue
		}
		t := schema.InferType(v)
		if f, ok := floatValue(v); ok && t == schema.TypeInteger && !inInt64Range(f) {
			t = schema.TypeDecimal
		}
		switch {
		case out == "", out == t:
			out = t
		case isNumeric(out) && isNumeric(t):
			out = schema.TypeDecimal
		default:
			return schema.TypeVarchar
		}
	}
	if out == "" {
		return schema.TypeVarchar
	}
	return out
}

func isNumeric(t schema.ColumnType) bool {
	return t == schema.TypeInteger || t == schema.TypeDecimal
}

// convertValue turns a cell into a driver value for a column of type t.
func convertValue(v any, t schema.ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case schema.TypeInteger:
		if f, ok := floatValue(v); ok {
			if !inInt64Range(f) {
				return nil, fmt.Errorf("%v is out of range for INTEGER", v)
			}
			return int64(f), nil
		}
		return cast.ToInt64E(v)
	case schema.TypeDecimal:
		return cast.ToFloat64E(v)
	case schema.TypeBoolean:
		return cast.ToBoolE(v)
	case schema.TypeJSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	default:
		return records.FormatValue(v), nil
	}
}

func floatValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	return 0, false
}

// inInt64Range is false for NaN as well.
func inInt64Range(f float64) bool {
	return f >= math.MinInt64 && f < -math.MinInt64
}
