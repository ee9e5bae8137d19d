// Package html loads tabular data from HTML documents.
//
// Two modes are supported. Table mode (the default) reads a <table> chosen
// by CSS selector. Record mode is enabled by the record_selector option:
// every matched element becomes one row and the mappings option lists how
// to pull each column out of it.
package html

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dataprep/internal/config"
	"dataprep/pkg/records"
)

// Mapping extracts one column in record mode.
type Mapping struct {
	Column   string
	Selector string
	Extract  string // "text" (default) or "attr"
	Attr     string
	Match    string // optional regex; group 1 wins when present
}

// ReadRows parses r.
//
// Table mode options:
//   - selector: CSS selector for the table, default "table"
//   - table_index: which match to use, default 0
//   - has_header: first row holds column names, default true; <th> cells in
//     the first row always count as a header
//
// Record mode options:
//   - record_selector: CSS selector for record containers
//   - mappings: list of {column, selector, extract, attr, match}
func ReadRows(ctx context.Context, r io.Reader, opts config.Options) (records.Dataset, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return records.Dataset{}, fmt.Errorf("parse html: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return records.Dataset{}, err
	}
	if sel := strings.TrimSpace(opts.String("record_selector", "")); sel != "" {
		mappings, err := mappingsFromOptions(opts.Any("mappings"))
		if err != nil {
			return records.Dataset{}, err
		}
		return extractRecords(doc, sel, mappings)
	}
	return readTable(doc, opts)
}

func readTable(doc *goquery.Document, opts config.Options) (records.Dataset, error) {
	selector := opts.String("selector", "table")
	idx := opts.Int("table_index", 0)

	tables := doc.Find(selector)
	if idx < 0 || idx >= tables.Length() {
		return records.Dataset{}, fmt.Errorf("html: no table %d for selector %q (found %d)", idx, selector, tables.Length())
	}
	table := tables.Eq(idx)

	var grid [][]string
	var headerRow bool
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		// Skip rows that belong to a nested table.
		if tr.Closest("table").Get(0) != table.Get(0) {
			return
		}
		cells := tr.ChildrenFiltered("th,td")
		if cells.Length() == 0 {
			return
		}
		if len(grid) == 0 && cells.Filter("td").Length() == 0 {
			headerRow = true
		}
		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, c *goquery.Selection) {
			row = append(row, strings.TrimSpace(c.Text()))
		})
		grid = append(grid, row)
	})

	ds := records.Dataset{Headers: []string{}, Rows: []records.Row{}}
	if len(grid) == 0 {
		return ds, nil
	}

	if headerRow || opts.Bool("has_header", true) {
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

// extractRecords builds one row per element matched by recordSelector, with
// columns in mapping order. A mapping that finds nothing yields nil.
func extractRecords(doc *goquery.Document, recordSelector string, mappings []Mapping) (records.Dataset, error) {
	res := make([]*regexp.Regexp, len(mappings))
	headers := make([]string, len(mappings))
	for i, m := range mappings {
		re, err := compileOptionalRegex(m.Match, m.Column)
		if err != nil {
			return records.Dataset{}, err
		}
		res[i] = re
		headers[i] = m.Column
	}

	ds := records.Dataset{Headers: headers, Rows: []records.Row{}}
	doc.Find(recordSelector).Each(func(_ int, rec *goquery.Selection) {
		var row records.Row
		for i, m := range mappings {
			sel := rec
			if m.Selector != "" {
				sel = rec.Find(m.Selector).First()
			}
			var v any
			if sel.Length() > 0 {
				if s := applyRegexFilter(extractOne(sel, m), res[i]); s != "" {
					v = s
				}
			}
			row.Set(m.Column, v)
		}
		ds.Rows = append(ds.Rows, row)
	})
	return ds, nil
}

func extractOne(sel *goquery.Selection, m Mapping) string {
	switch m.Extract {
	case "", "text":
		return strings.TrimSpace(sel.Text())
	case "attr":
		if m.Attr == "" {
			return ""
		}
		if v, ok := sel.Attr(m.Attr); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func mappingsFromOptions(raw any) ([]Mapping, error) {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("html: record_selector needs a non-empty mappings list")
	}
	out := make([]Mapping, 0, len(list))
	for i, it := range list {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("html: mappings[%d] is not an object", i)
		}
		o := config.Options(m)
		mp := Mapping{
			Column:   o.String("column", ""),
			Selector: o.String("selector", ""),
			Extract:  o.String("extract", "text"),
			Attr:     o.String("attr", ""),
			Match:    o.String("match", ""),
		}
		if mp.Column == "" {
			return nil, fmt.Errorf("html: mappings[%d].column is required", i)
		}
		out = append(out, mp)
	}
	return out, nil
}

// compileOptionalRegex returns nil for an empty pattern.
func compileOptionalRegex(pattern, column string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex for column=%q: %w", column, err)
	}
	return re, nil
}

// applyRegexFilter returns "" when re does not match, group 1 when the
// pattern has groups, otherwise the whole match.
func applyRegexFilter(value string, re *regexp.Regexp) string {
	if value == "" || re == nil {
		return value
	}
	sm := re.FindStringSubmatch(value)
	if len(sm) == 0 {
		return ""
	}
	if len(sm) > 1 {
		return sm[1]
	}
	return sm[0]
}
