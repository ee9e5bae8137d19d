// Package parser turns input files into records.Dataset values. Format
// specific readers live in the csv, json, xlsx, html and xml subpackages.
package parser

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dataprep/internal/config"
	csvparser "dataprep/internal/parser/csv"
	htmlparser "dataprep/internal/parser/html"
	jsonparser "dataprep/internal/parser/json"
	xlsxparser "dataprep/internal/parser/xlsx"
	xmlparser "dataprep/internal/parser/xml"
	"dataprep/pkg/records"
)

// Format names an input encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
	FormatXML  Format = "xml"
)

// sniffBytes is how much of a file DetectFormat looks at.
const sniffBytes = 512

// xlsxMagic is the zip local-file header every workbook starts with.
var xlsxMagic = []byte("PK\x03\x04")

// DetectFormat picks a format from the file extension, falling back to the
// leading bytes of the content.
func DetectFormat(path string, sample []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	case ".json", ".ndjson", ".jsonl":
		return FormatJSON
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".html", ".htm":
		return FormatHTML
	case ".xml":
		return FormatXML
	}
	return Sniff(sample)
}

// Sniff guesses the format from content alone. Markup with an XML
// declaration is XML, other markup is HTML. Anything that is not markup,
// JSON or a zip archive is treated as CSV.
func Sniff(sample []byte) Format {
	if bytes.HasPrefix(sample, xlsxMagic) {
		return FormatXLSX
	}
	trim := bytes.TrimSpace(bytes.TrimPrefix(sample, []byte("\xEF\xBB\xBF")))
	if len(trim) == 0 {
		return FormatCSV
	}
	switch trim[0] {
	case '<':
		if bytes.HasPrefix(trim, []byte("<?xml")) {
			return FormatXML
		}
		return FormatHTML
	case '{', '[':
		return FormatJSON
	}
	return FormatCSV
}

// ReadFile opens path and reads it with the given format. FormatAuto and ""
// detect the format first. TSV files default to a TAB delimiter.
func ReadFile(ctx context.Context, path string, format Format, opts config.Options) (records.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return records.Dataset{}, err
	}
	defer f.Close()

	return Read(ctx, f, path, format, PathOptions(path, opts))
}

// PathOptions adds defaults implied by path: TSV files get a TAB delimiter
// unless one is set.
func PathOptions(path string, opts config.Options) config.Options {
	if strings.EqualFold(filepath.Ext(path), ".tsv") && opts.Any("delimiter") == nil {
		return withOption(opts, "delimiter", "\t")
	}
	return opts
}

// Read reads a dataset from r. name is only used for format detection.
func Read(ctx context.Context, r io.Reader, name string, format Format, opts config.Options) (records.Dataset, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	if format == "" || format == FormatAuto {
		sample, _ := br.Peek(sniffBytes)
		format = DetectFormat(name, sample)
	}

	var (
		ds  records.Dataset
		err error
	)
	switch format {
	case FormatCSV:
		ds, err = csvparser.ReadRows(ctx, br, opts, nil)
	case FormatJSON:
		ds, err = jsonparser.ReadRows(ctx, br, opts)
	case FormatXLSX:
		ds, err = xlsxparser.ReadRows(ctx, br, opts)
	case FormatHTML:
		ds, err = htmlparser.ReadRows(ctx, br, opts)
	case FormatXML:
		ds, err = xmlparser.ReadRows(ctx, br, opts)
	default:
		return records.Dataset{}, fmt.Errorf("parser: unsupported format %q", format)
	}
	if err != nil {
		return records.Dataset{}, fmt.Errorf("parse %s: %w", format, err)
	}
	return ds, nil
}

func withOption(opts config.Options, key string, v any) config.Options {
	out := make(config.Options, len(opts)+1)
	for k, val := range opts {
		out[k] = val
	}
	out[key] = v
	return out
}
