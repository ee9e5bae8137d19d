// Package xlsx reads and writes Excel workbooks as records.Dataset values.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"dataprep/internal/config"
	"dataprep/pkg/records"
)

// DefaultSheet names the sheet written by Write when none is given.
const DefaultSheet = "Data"

// ReadRows loads one sheet of the workbook in r.
//
// Options:
//   - sheet: sheet name, default the first sheet
//   - has_header: first row names the columns, default true
//   - skip_rows: leading rows to ignore before the header, default 0
//
// Cells are returned as the formatted strings Excel would display. Short
// rows are padded with nil.
func ReadRows(ctx context.Context, r io.Reader, opts config.Options) (records.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return records.Dataset{}, fmt.Errorf("xlsx: open: %w", err)
	}
	defer f.Close()

	sheet := opts.String("sheet", "")
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return records.Dataset{}, fmt.Errorf("xlsx: sheet %q not found", sheet)
	}

	grid, err := f.GetRows(sheet)
	if err != nil {
		return records.Dataset{}, fmt.Errorf("xlsx: read sheet %q: %w", sheet, err)
	}
	if err := ctx.Err(); err != nil {
		return records.Dataset{}, err
	}
	if skip := opts.Int("skip_rows", 0); skip > 0 {
		grid = grid[min(skip, len(grid)):]
	}

	ds := records.Dataset{Headers: []string{}, Rows: []records.Row{}}
	if len(grid) == 0 {
		return ds, nil
	}

	if opts.Bool("has_header", true) {
		ds.Headers = records.UniqueHeaders(grid[0])
		grid = grid[1:]
	} else {
		width := 0
		for _, g := range grid {
			width = max(width, len(g))
		}
		for i := 0; i < width; i++ {
			ds.Headers = append(ds.Headers, "column_"+strconv.Itoa(i+1))
		}
	}

	for _, g := range grid {
		var row records.Row
		for i, h := range ds.Headers {
			if i < len(g) {
				row.Set(h, g[i])
			} else {
				row.Set(h, nil)
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// Write renders ds as a single-sheet workbook. Numbers and booleans keep
// their cell type; nested values are written as JSON text.
func Write(w io.Writer, ds records.Dataset, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("xlsx: name sheet: %w", err)
	}

	header := make([]any, len(ds.Headers))
	for i, h := range ds.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: write header: %w", err)
	}

	for ri, r := range ds.Rows {
		vals := make([]any, len(ds.Headers))
		for ci, h := range ds.Headers {
			vals[ci] = cellValue(r.Value(h))
		}
		cell, err := excelize.CoordinatesToCellName(1, ri+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", ri, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return t
	default:
		return records.FormatValue(v)
	}
}
