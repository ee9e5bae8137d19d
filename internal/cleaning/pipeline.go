package cleaning

import (
	"fmt"

	"dataprep/internal/cell"
	"dataprep/pkg/records"
)

// Options configures RunCleanPipeline.
type Options struct {
	// Fill is applied in plan order. Columns not in the dataset headers are
	// skipped.
	Fill FillPlan `json:"fill,omitempty"`

	// OutlierColumns are processed in order. Columns not in the dataset
	// headers are skipped.
	OutlierColumns []string `json:"outlierColumns,omitempty"`

	// OutlierThreshold defaults to DefaultOutlierThreshold when nil.
	OutlierThreshold *float64 `json:"outlierThreshold,omitempty"`
}

// Stats counts what the pipeline changed.
type Stats struct {
	RowsIn            int
	RowsOut           int
	DuplicatesRemoved int
	CellsFilled       int
	OutliersRemoved   int
}

// Result is the pipeline output. Summary lines are stable, user-facing text.
type Result struct {
	Data    records.Dataset `json:"data"`
	Summary []string        `json:"summary"`
	Stats   Stats           `json:"-"`
}

// RunCleanPipeline runs dedupe, trim, fill and outlier removal in that order,
// each stage feeding the next. Headers are copied through unchanged.
func RunCleanPipeline(data records.Dataset, opts Options) (Result, error) {
	headers := make([]string, len(data.Headers))
	copy(headers, data.Headers)

	res := Result{Summary: []string{}}
	res.Stats.RowsIn = len(data.Rows)

	dd, err := Dedupe(data.Rows)
	if err != nil {
		return Result{}, fmt.Errorf("dedupe: %w", err)
	}
	rows := dd.Rows
	res.Stats.DuplicatesRemoved = dd.Removed
	if dd.Removed > 0 {
		res.Summary = append(res.Summary, fmt.Sprintf("Removed %d duplicates", dd.Removed))
	}

	rows = Trim(rows)
	res.Summary = append(res.Summary, "Trimmed whitespace")

	for _, cf := range opts.Fill {
		if !data.HasHeader(cf.Column) {
			continue
		}
		before := countMissing(rows, cf.Column)
		rows, err = FillMissing(rows, cf.Column, cf.Strategy)
		if err != nil {
			return Result{}, fmt.Errorf("fill %q: %w", cf.Column, err)
		}
		res.Stats.CellsFilled += before - countMissing(rows, cf.Column)
		res.Summary = append(res.Summary, fmt.Sprintf("Filled missing in %s with %s", cf.Column, cf.Strategy))
	}

	threshold := DefaultOutlierThreshold
	if opts.OutlierThreshold != nil {
		threshold = *opts.OutlierThreshold
	}
	for _, col := range opts.OutlierColumns {
		if !data.HasHeader(col) {
			continue
		}
		or := RemoveOutliers(rows, col, threshold)
		rows = or.Rows
		res.Stats.OutliersRemoved += or.Removed
		if or.Removed > 0 {
			res.Summary = append(res.Summary, fmt.Sprintf("Removed %d outliers from %s", or.Removed, col))
		}
	}

	res.Data = records.Dataset{Headers: headers, Rows: rows}
	res.Stats.RowsOut = len(rows)
	return res, nil
}

func countMissing(rows []records.Row, col string) int {
	n := 0
	for _, r := range rows {
		if cell.IsMissing(r.Value(col)) {
			n++
		}
	}
	return n
}
