package runner

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dataprep/internal/cleaning"
	"dataprep/internal/config"
	"dataprep/internal/parser/xlsx"
	"dataprep/pkg/records"
)

// Output formats.
const (
	OutputJSON = "json"
	OutputCSV  = "csv"
	OutputXLSX = "xlsx"
)

var stdoutMu sync.Mutex

// OutputFormat resolves o.Format, falling back to the path extension and
// then JSON.
func OutputFormat(o config.Output) string {
	if o.Format != "" {
		return strings.ToLower(o.Format)
	}
	switch strings.ToLower(filepath.Ext(o.Path)) {
	case ".csv":
		return OutputCSV
	case ".xlsx":
		return OutputXLSX
	}
	return OutputJSON
}

// writeOutput renders res and writes it to o.Path, or to r.Stdout when the
// path is empty. It returns where the output went.
func (r *Runner) writeOutput(o config.Output, res cleaning.Result) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, OutputFormat(o), res, o.Pretty); err != nil {
		return "", err
	}

	if o.Path == "" {
		stdoutMu.Lock()
		defer stdoutMu.Unlock()
		if _, err := r.Stdout.Write(buf.Bytes()); err != nil {
			return "", err
		}
		return "stdout", nil
	}

	if dir := filepath.Dir(o.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(o.Path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return o.Path, nil
}

// Encode writes res in format. JSON keeps the {"data":...,"summary":...}
// shape; CSV and XLSX carry only the data.
func Encode(buf *bytes.Buffer, format string, res cleaning.Result, pretty bool) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if pretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(res)
	case OutputCSV:
		return writeCSV(buf, res.Data)
	case OutputXLSX:
		return xlsx.Write(buf, res.Data, xlsx.DefaultSheet)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func writeCSV(buf *bytes.Buffer, ds records.Dataset) error {
	w := csv.NewWriter(buf)
	if err := w.Write(ds.Headers); err != nil {
		return err
	}
	rec := make([]string, len(ds.Headers))
	for _, row := range ds.Rows {
		for i, h := range ds.Headers {
			rec[i] = records.FormatValue(row.Value(h))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
