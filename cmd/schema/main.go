// Command schema infers a table schema from a data file and prints it as a
// visual schema, raw metadata, CREATE TABLE statements or a starter job.
//
// JSON documents (an array of objects) and XML documents (rows under the
// root element) go through the document inferencer. Tabular input (CSV, TSV,
// XLSX, HTML tables) is sampled with the probe package and typed from its
// text before inference.
//
// With -report the command prints a per-column uniqueness report instead,
// which helps pick categorical and key columns.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dataprep/internal/config"
	"dataprep/internal/parser"
	"dataprep/internal/probe"
	"dataprep/internal/schema"
	"dataprep/internal/storage"

	_ "dataprep/internal/storage/all"
)

// Output modes for -format.
const (
	modeVisual   = "visual"
	modeMetadata = "metadata"
	modeDDL      = "ddl"
	modeJob      = "job"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

type options struct {
	in          string
	mode        string
	kind        string
	table       string
	inputFormat string
	maxBytes    int
	maxRows     int
	report      bool
	store       bool
	pretty      bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.in, "in", "", "input file (.json, .xml, .csv, .tsv, .xlsx, .html)")
	fs.StringVar(&o.mode, "format", modeVisual, "output: visual|metadata|ddl|job")
	fs.StringVar(&o.kind, "ddl", "postgres", "SQL dialect for -format ddl and -store: "+strings.Join(storage.Kinds(), "|"))
	fs.StringVar(&o.table, "table", "", "table name; inferred when empty")
	fs.StringVar(&o.inputFormat, "input-format", "auto", "tabular input format: auto|csv|json|xlsx|html|xml")
	fs.IntVar(&o.maxBytes, "max-bytes", probe.DefaultMaxBytes, "bytes sampled from delimited input")
	fs.IntVar(&o.maxRows, "max-rows", probe.DefaultMaxRows, "rows sampled from tabular input")
	fs.BoolVar(&o.report, "report", false, "print a uniqueness report instead of a schema")
	fs.BoolVar(&o.store, "store", false, "with -format job, add a storage section for -ddl")
	fs.BoolVar(&o.pretty, "pretty", true, "indent JSON output")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(o.in) == "" {
		fmt.Fprintln(stderr, "usage: schema -in <file> [-format visual|metadata|ddl|job] [-ddl postgres|sqlite|mssql] [-report]")
		return 2
	}
	switch o.mode {
	case modeVisual, modeMetadata, modeDDL, modeJob:
	default:
		fmt.Fprintf(stderr, "unknown -format %q (want visual|metadata|ddl|job)\n", o.mode)
		return 2
	}

	if o.report {
		if err := writeReport(ctx, stdout, o); err != nil {
			fmt.Fprintf(stderr, "report: %v\n", err)
			return 1
		}
		return 0
	}

	meta, err := inferMetadata(ctx, o)
	if err != nil {
		fmt.Fprintf(stderr, "infer: %v\n", err)
		return 1
	}

	if err := write(stdout, o, meta); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", o.mode, err)
		return 1
	}
	return 0
}

// isDocument reports whether path is handled by the JSON/XML inferencer.
func isDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".js", ".xml":
		return true
	}
	return false
}

func inferMetadata(ctx context.Context, o options) (schema.Metadata, error) {
	if isDocument(o.in) && (o.inputFormat == "" || o.inputFormat == "auto") {
		content, err := os.ReadFile(o.in)
		if err != nil {
			return schema.Metadata{}, err
		}
		return schema.AutoConvertToMetadata(content, filepath.Base(o.in))
	}
	res, err := sample(ctx, o)
	if err != nil {
		return schema.Metadata{}, err
	}
	return res.Metadata, nil
}

func sample(ctx context.Context, o options) (probe.Result, error) {
	return probe.Probe(ctx, probe.Options{
		Path:       o.in,
		Format:     parser.Format(strings.ToLower(o.inputFormat)),
		MaxBytes:   o.maxBytes,
		MaxRows:    o.maxRows,
		Name:       tableFromPath(o.in),
		InferTypes: true,
	})
}

// tableFromPath names a table after the file, e.g. "sales-2024.csv" becomes
// "Sales2024".
func tableFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if n := schema.PascalCase(base); n != "" {
		return n
	}
	return schema.DefaultTableName
}

func write(w io.Writer, o options, meta schema.Metadata) error {
	if o.table != "" && o.mode != modeDDL {
		meta.TableName = o.table
	}
	switch o.mode {
	case modeMetadata:
		return writeJSON(w, meta, o.pretty)
	case modeDDL:
		stmts, err := storage.DDL(o.kind, meta, o.table)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, strings.Join(stmts, "\n"))
		return err
	case modeJob:
		return writeJSON(w, starterJob(o, meta), o.pretty)
	default:
		return writeJSON(w, schema.MetadataToSchema(meta), o.pretty)
	}
}

// starterJob builds a runnable job for the sampled file with auto fill and
// type inference on.
func starterJob(o options, meta schema.Metadata) config.Job {
	format := strings.ToLower(o.inputFormat)
	if format == "" {
		format = string(parser.FormatAuto)
	}
	j := config.Job{
		Name:   storage.TableName("", meta.TableName),
		Input:  config.Input{Path: o.in, Format: format},
		Clean:  config.Clean{AutoFill: true, InferTypes: true},
		Output: config.Output{Format: "json", Pretty: true},
	}
	if o.store {
		j.Storage = config.Storage{
			Kind:  o.kind,
			DSN:   "${" + config.EnvPrefix + "_DSN}",
			Table: storage.TableName(o.table, meta.TableName),
		}
	}
	return j
}

func writeReport(ctx context.Context, w io.Writer, o options) error {
	res, err := sample(ctx, o)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, res.Uniqueness.Report()); err != nil {
		return err
	}
	if cats := res.Uniqueness.Categorical(10); len(cats) > 0 {
		if _, err := fmt.Fprintf(w, "categorical candidates: %s\n", strings.Join(cats, ", ")); err != nil {
			return err
		}
	}
	if res.Truncated {
		_, err = fmt.Fprintln(w, "note: sample does not cover the whole file")
	}
	return err
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
