// Package xml loads record-shaped XML documents into a records.Dataset.
// Each child of the root element is a record and its sub-elements are the
// fields. Cell values are the trimmed element text.
package xml

import (
	"context"
	"fmt"
	"io"

	"dataprep/internal/config"
	"dataprep/internal/schema"
	"dataprep/pkg/records"
)

// ReadRows reads the whole document from r.
//
// Options:
//   - header_map: rename element names (original -> new)
func ReadRows(ctx context.Context, r io.Reader, opts config.Options) (records.Dataset, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return records.Dataset{}, fmt.Errorf("xml: read: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return records.Dataset{}, err
	}

	ds, err := schema.XMLRows(content)
	if err != nil {
		return records.Dataset{}, fmt.Errorf("xml: %w", err)
	}

	hm := opts.StringMap("header_map")
	if len(hm) == 0 {
		return ds, nil
	}
	rows := make([]records.Row, len(ds.Rows))
	for i, src := range ds.Rows {
		var row records.Row
		src.Range(func(k string, v any) bool {
			if to, ok := hm[k]; ok && to != "" {
				k = to
			}
			row.Set(k, v)
			return true
		})
		rows[i] = row
	}
	return records.Dataset{Headers: records.HeadersFromRows(rows), Rows: rows}, nil
}
