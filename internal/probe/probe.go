// Package probe samples an input file and reports what it contains: the
// detected format, inferred table metadata and per-column uniqueness.
//
// Sampling is bounded. CSV input is cut to MaxBytes at the last complete
// line; formats that cannot be parsed from a byte prefix (JSON documents,
// workbooks, HTML) are parsed whole and then capped at MaxRows.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"dataprep/internal/cleaning"
	"dataprep/internal/config"
	"dataprep/internal/parser"
	"dataprep/internal/schema"
	"dataprep/pkg/records"
)

const (
	DefaultMaxBytes = 1 << 20
	DefaultMaxRows  = 10000

	// distinctCapPerColumn bounds distinct tracking per column.
	distinctCapPerColumn = 10000
)

// Options control sampling.
type Options struct {
	// Path of the file to sample.
	Path string

	// Format overrides detection when not empty or auto.
	Format parser.Format

	// Parse holds parser options (delimiter, sheet, selector, ...).
	Parse config.Options

	// MaxBytes bounds the CSV sample. Zero means DefaultMaxBytes.
	MaxBytes int

	// MaxRows caps sampled rows. Zero means DefaultMaxRows.
	MaxRows int

	// Name is the table name used when no id-like column names one.
	Name string

	// InferTypes converts numeric and boolean text before inferring
	// metadata. Delimited and workbook input is all text otherwise.
	InferTypes bool
}

// Result is what Probe found.
type Result struct {
	Format     parser.Format
	Dataset    records.Dataset
	Metadata   schema.Metadata
	Uniqueness Uniqueness

	// Truncated reports that the sample does not cover the whole file.
	Truncated bool
}

// Probe samples opt.Path and infers its shape.
func Probe(ctx context.Context, opt Options) (Result, error) {
	if opt.Path == "" {
		return Result{}, fmt.Errorf("probe: path is empty")
	}
	maxBytes := opt.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	name := opt.Name
	if name == "" {
		name = schema.DefaultTableName
	}

	f, err := os.Open(opt.Path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, int64(maxBytes)+1))
	if err != nil {
		return Result{}, fmt.Errorf("probe: read sample: %w", err)
	}
	truncated := len(head) > maxBytes

	format := opt.Format
	if format == "" || format == parser.FormatAuto {
		format = parser.DetectFormat(opt.Path, head)
	}

	var src io.Reader
	if format == parser.FormatCSV {
		if truncated {
			head = cutToLastNewline(head[:maxBytes])
		}
		src = bytes.NewReader(head)
	} else {
		// Prefix already read; continue with the rest of the file.
		src = io.MultiReader(bytes.NewReader(head), f)
		truncated = false
	}

	ds, err := parser.Read(ctx, src, opt.Path, format, parser.PathOptions(opt.Path, opt.Parse))
	if err != nil {
		return Result{}, err
	}
	if len(ds.Rows) > maxRows {
		ds.Rows = ds.Rows[:maxRows]
		truncated = true
	}

	if opt.InferTypes {
		ds.Rows = cleaning.InferTypes(ds.Rows)
	}

	res := Result{Format: format, Dataset: ds, Truncated: truncated}
	if len(ds.Rows) == 0 {
		return res, fmt.Errorf("probe: %s has no data rows", opt.Path)
	}
	res.Metadata, err = schema.RowsToMetadata(ds.Rows, name)
	if err != nil {
		return res, err
	}
	res.Uniqueness = ComputeUniqueness(ds.Rows, ds.Headers)
	return res, nil
}

// cutToLastNewline drops a trailing partial line.
func cutToLastNewline(b []byte) []byte {
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return b[:i+1]
	}
	return b
}

// Uniqueness holds bounded distinct-count stats for a sample.
//
// Ratios use PerColumnTotal, the rows where the column had a value, not
// TotalRows.
type Uniqueness struct {
	TotalRows         int
	PerColumnTotal    map[string]int
	PerColumnDistinct map[string]int
	PerColumnCapped   map[string]bool
	ColumnOrder       []string
}

// ComputeUniqueness counts per-column values and distinct values over rows.
// nil and blank values are missing. Distinct tracking stops at
// distinctCapPerColumn per column.
func ComputeUniqueness(rows []records.Row, columns []string) Uniqueness {
	stats := Uniqueness{
		PerColumnTotal:    make(map[string]int, len(columns)),
		PerColumnDistinct: make(map[string]int, len(columns)),
		PerColumnCapped:   make(map[string]bool, len(columns)),
		ColumnOrder:       append([]string(nil), columns...),
	}
	if len(rows) == 0 || len(columns) == 0 {
		return stats
	}

	sets := make(map[string]map[string]struct{}, len(columns))
	for _, c := range columns {
		sets[c] = make(map[string]struct{})
	}

	for _, r := range rows {
		stats.TotalRows++
		for _, c := range columns {
			v, ok := r.Get(c)
			if !ok || v == nil {
				continue
			}
			s := strings.TrimSpace(records.FormatValue(v))
			if s == "" {
				continue
			}
			stats.PerColumnTotal[c]++

			if stats.PerColumnCapped[c] {
				continue
			}
			sets[c][s] = struct{}{}
			if len(sets[c]) >= distinctCapPerColumn {
				stats.PerColumnCapped[c] = true
				delete(sets, c)
			}
		}
	}

	for _, c := range columns {
		if stats.PerColumnCapped[c] {
			stats.PerColumnDistinct[c] = distinctCapPerColumn
			continue
		}
		stats.PerColumnDistinct[c] = len(sets[c])
	}
	return stats
}

// Ratio returns distinct/total for col, and false when col had no values.
func (u Uniqueness) Ratio(col string) (float64, bool) {
	den := u.PerColumnTotal[col]
	if den <= 0 {
		return 0, false
	}
	return float64(u.PerColumnDistinct[col]) / float64(den), true
}

// Categorical returns up to limit low-cardinality columns, least unique
// first. Columns above 90% unique and the row hash column are skipped.
func (u Uniqueness) Categorical(limit int) []string {
	type cand struct {
		col   string
		ratio float64
	}
	cands := make([]cand, 0, len(u.ColumnOrder))
	for _, col := range u.ColumnOrder {
		if col == "row_hash" {
			continue
		}
		r, ok := u.Ratio(col)
		if !ok || r > 0.90 {
			continue
		}
		cands = append(cands, cand{col: col, ratio: r})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].ratio == cands[j].ratio {
			return cands[i].col < cands[j].col
		}
		return cands[i].ratio < cands[j].ratio
	})

	out := make([]string, 0, min(limit, len(cands)))
	for _, c := range cands {
		if len(out) >= limit {
			break
		}
		out = append(out, c.col)
	}
	return out
}

// Report renders a tab-separated uniqueness table, least unique first.
func (u Uniqueness) Report() string {
	if u.TotalRows <= 0 {
		return "uniqueness: no rows sampled"
	}

	type row struct {
		col    string
		dist   int
		den    int
		ratio  float64
		capped bool
	}
	rows := make([]row, 0, len(u.ColumnOrder))
	for _, col := range u.ColumnOrder {
		r, ok := u.Ratio(col)
		if !ok {
			continue
		}
		rows = append(rows, row{
			col:    col,
			dist:   u.PerColumnDistinct[col],
			den:    u.PerColumnTotal[col],
			ratio:  r,
			capped: u.PerColumnCapped[col],
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ratio == rows[j].ratio {
			return rows[i].col < rows[j].col
		}
		return rows[i].ratio < rows[j].ratio
	})

	var b strings.Builder
	fmt.Fprintf(&b, "uniqueness report:\tsampled_rows=%d\n", u.TotalRows)
	fmt.Fprintf(&b, "%-15s\t%-7s\t%-7s\tratio\tcapped\n", "col", "unique", "rows")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-15s\t%-7d\t%d\t%.1f%%\t%t\n", r.col, r.dist, r.den, r.ratio*100, r.capped)
	}
	return strings.TrimRight(b.String(), "\n")
}
