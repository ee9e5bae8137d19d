// Package csv loads delimited text into a records.Dataset. Cells stay
// strings; typing is left to the cleaning stage.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"dataprep/internal/config"
	"dataprep/internal/transformer"
	"dataprep/pkg/records"
)

// ReadRows reads the whole of src.
//
// Options:
//   - delimiter (or comma): field separator, default ','; "\t" and "tab" mean TAB
//   - has_header: first record names the columns, default true
//   - encoding: source charset label (e.g. "windows-1250", "latin1"), default utf-8
//   - header_map: rename source headers
//   - normalize_headers: lower-case headers and replace spaces with '_'
//   - trim_space: trim cell values while reading, default false
//   - lazy_quotes, fields_per_record: passed to encoding/csv
//
// Malformed records are reported to onErr with their line number and
// skipped. With a nil onErr the first malformed record aborts the read.
func ReadRows(ctx context.Context, src io.Reader, opt config.Options, onErr func(line int, err error)) (records.Dataset, error) {
	r, err := decodeCharset(src, opt.String("encoding", ""))
	if err != nil {
		return records.Dataset{}, err
	}

	comma := opt.Rune("delimiter", opt.Rune("comma", ','))
	hasHeader := opt.Bool("has_header", true)
	trim := opt.Bool("trim_space", false)
	normalize := opt.Bool("normalize_headers", false)
	hm := opt.StringMap("header_map")

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	if n := opt.Int("fields_per_record", 0); n != 0 {
		cr.FieldsPerRecord = n
	} else {
		cr.FieldsPerRecord = -1
	}

	var line int
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	var headers []string
	var first []string
	if hasHeader {
		hdr, err := readRec()
		if errors.Is(err, io.EOF) {
			return records.Dataset{Headers: []string{}, Rows: []records.Row{}}, nil
		}
		if err != nil {
			return records.Dataset{}, fmt.Errorf("csv: read header: %w", err)
		}
		headers = headerNames(hdr, hm, normalize)
	} else {
		rec, err := readRec()
		if errors.Is(err, io.EOF) {
			return records.Dataset{Headers: []string{}, Rows: []records.Row{}}, nil
		}
		if err != nil {
			return records.Dataset{}, fmt.Errorf("csv: read line %d: %w", line, err)
		}
		first = append([]string(nil), rec...)
		headers = make([]string, len(rec))
		for i := range rec {
			headers[i] = "column_" + strconv.Itoa(i+1)
		}
	}

	ds := records.Dataset{Headers: headers, Rows: []records.Row{}}
	emit := func(rec []string) {
		row := records.NewRow()
		for i, h := range headers {
			if i >= len(rec) {
				row.Set(h, nil)
				continue
			}
			v := rec[i]
			if trim && transformer.HasEdgeSpace(v) {
				v = strings.TrimSpace(v)
			}
			row.Set(h, v)
		}
		ds.Rows = append(ds.Rows, row)
	}
	if first != nil {
		emit(first)
	}

	for {
		if err := ctx.Err(); err != nil {
			return records.Dataset{}, err
		}
		rec, err := readRec()
		if errors.Is(err, io.EOF) {
			return ds, nil
		}
		if err != nil {
			if onErr == nil {
				return records.Dataset{}, fmt.Errorf("csv: line %d: %w", line, err)
			}
			onErr(line, fmt.Errorf("csv read: %w", err))
			continue
		}
		emit(rec)
	}
}

// headerNames cleans raw header cells: trims edge space, strips a UTF-8 BOM
// from the first cell, applies header_map, and disambiguates repeats and
// blanks so every column has a distinct key.
func headerNames(hdr []string, hm map[string]string, normalize bool) []string {
	out := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if transformer.HasEdgeSpace(h) {
			h = strings.TrimSpace(h)
		}
		if mapped, ok := hm[h]; ok {
			h = mapped
		} else if normalize {
			h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
		}
		out[i] = h
	}
	return records.UniqueHeaders(out)
}

// decodeCharset wraps r so it yields UTF-8. Empty and utf-8 labels return r
// unchanged.
func decodeCharset(r io.Reader, label string) (io.Reader, error) {
	label = strings.TrimSpace(label)
	switch strings.ToLower(label) {
	case "", "utf-8", "utf8":
		return r, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("csv: unknown encoding %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(r), nil
}
