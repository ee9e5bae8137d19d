// Package config loads and validates cleaning job files and the process
// environment.
//
// Job files are JSON or YAML. YAML is converted to JSON before decoding so
// both formats share one set of struct tags and keep the member order of
// clean.fill.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"dataprep/internal/cleaning"
	"dataprep/internal/transformer"
	"dataprep/pkg/records"
)

// Job is one cleaning run: where to read, how to clean, where to write.
type Job struct {
	Name       string             `json:"job" validate:"required"`
	Input      Input              `json:"input"`
	Clean      Clean              `json:"clean"`
	Transforms []transformer.Spec `json:"transforms" validate:"dive"`
	Output     Output             `json:"output"`
	Storage    Storage            `json:"storage"`
}

// Input names the source file and how to parse it.
type Input struct {
	Path   string `json:"path" validate:"required"`
	Format string `json:"format" validate:"omitempty,oneof=auto csv json xlsx html xml"`

	// Options are parser specific: delimiter, encoding, has_header (csv),
	// sheet (xlsx), selector (html), header_map (csv, json, xml).
	Options Options `json:"options"`
}

// Clean configures the cleaning pipeline.
type Clean struct {
	Fill             cleaning.FillPlan `json:"fill"`
	AutoFill         bool              `json:"auto_fill"`
	InferTypes       bool              `json:"infer_types"`
	OutlierColumns   []string          `json:"outlier_columns"`
	OutlierThreshold *float64          `json:"outlier_threshold" validate:"omitempty,gte=0"`
}

// PipelineOptions converts c into cleaning.Options.
func (c Clean) PipelineOptions() cleaning.Options {
	return cleaning.Options{
		Fill:             c.Fill,
		OutlierColumns:   c.OutlierColumns,
		OutlierThreshold: c.OutlierThreshold,
	}
}

// Output selects the result file. An empty Path writes to stdout.
type Output struct {
	Path   string `json:"path"`
	Format string `json:"format" validate:"omitempty,oneof=json csv xlsx"`
	Pretty bool   `json:"pretty"`
}

// Storage optionally exports the cleaned rows to a database table.
type Storage struct {
	Kind  string `json:"kind" validate:"omitempty,oneof=postgres sqlite mssql"`
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

// Enabled reports whether a storage export is configured.
func (s Storage) Enabled() bool { return s.Kind != "" }

// jobFile accepts either a single job or {"jobs": [...]}.
type jobFile struct {
	Jobs []Job `json:"jobs"`
}

// LoadJobs reads path and decodes one or more jobs. The format follows the
// extension: .yaml/.yml is YAML, anything else JSON.
func LoadJobs(path string) ([]Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	return ParseJobs(raw, filepath.Ext(path))
}

// ParseJobs decodes job file content. ext selects YAML (".yaml", ".yml")
// or JSON (anything else).
func ParseJobs(raw []byte, ext string) ([]Job, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		j, err := yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		raw = j
	}

	raw = bytes.TrimSpace(raw)
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parse job file: %w", err)
	}

	if _, ok := probe["jobs"]; ok {
		var f jobFile
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse jobs: %w", err)
		}
		return f.Jobs, nil
	}

	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("parse job: %w", err)
	}
	return []Job{j}, nil
}

// yamlToJSON re-encodes a YAML document as JSON, keeping mapping order.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	v, err := fromYAML(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func fromYAML(v any) (any, error) {
	switch t := v.(type) {
	case yaml.MapSlice:
		var r records.Row
		for _, it := range t {
			k, err := yamlKey(it.Key)
			if err != nil {
				return nil, err
			}
			val, err := fromYAML(it.Value)
			if err != nil {
				return nil, err
			}
			r.Set(k, val)
		}
		return r, nil
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			ks, err := yamlKey(k)
			if err != nil {
				return nil, err
			}
			if m[ks], err = fromYAML(val); err != nil {
				return nil, err
			}
		}
		return m, nil
	case []any:
		out := make([]any, len(t))
		for i, it := range t {
			val, err := fromYAML(it)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	default:
		return t, nil
	}
}

func yamlKey(k any) (string, error) {
	switch t := k.(type) {
	case string:
		return t, nil
	case int, int64, float64, bool:
		return fmt.Sprint(t), nil
	default:
		return "", fmt.Errorf("unsupported yaml key type %T", k)
	}
}
