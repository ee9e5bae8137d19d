// Package json loads JSON record collections into a records.Dataset.
//
// Accepted shapes:
//   - a root array of objects
//   - an envelope object whose first array-of-objects member holds the records
//   - a single object (one record)
//   - any of the above followed by newline-delimited objects (NDJSON)
//
// Objects keep their member order and numbers decode as float64.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"dataprep/internal/config"
	"dataprep/pkg/records"
)

// ReadRows decodes every record in r.
//
// Options:
//   - header_map: rename source keys (original -> new)
//   - flatten_arrays: join arrays of strings into one string cell
//   - array_join_separator: separator used by flatten_arrays, default ","
//
// Headers are the union of record keys in first-seen order.
func ReadRows(ctx context.Context, r io.Reader, opts config.Options) (records.Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	hm := opts.StringMap("header_map")
	flatten := opts.Bool("flatten_arrays", false)
	sep := opts.String("array_join_separator", ",")
	if sep == "" {
		sep = ","
	}

	rows := []records.Row{}
	emit := func(obj records.Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows = append(rows, remap(obj, hm, flatten, sep))
		return nil
	}

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return records.Dataset{Headers: []string{}, Rows: rows}, nil
	}
	if err != nil {
		return records.Dataset{}, fmt.Errorf("json: read first token: %w", err)
	}

	switch tok {
	case json.Delim('['):
		if err := emitArray(dec, emit); err != nil {
			return records.Dataset{}, err
		}
	case json.Delim('{'):
		if err := emitEnvelopeOrSingle(dec, emit); err != nil {
			return records.Dataset{}, err
		}
	default:
		return records.Dataset{}, fmt.Errorf("json: unsupported root token %v (want object or array)", tok)
	}

	if err := emitTrailingObjects(dec, emit); err != nil {
		return records.Dataset{}, err
	}
	return records.Dataset{Headers: records.HeadersFromRows(rows), Rows: rows}, nil
}

// emitArray emits each element of the array whose '[' was just consumed,
// including the closing ']'. null elements are skipped.
func emitArray(dec *json.Decoder, emit func(records.Row) error) error {
	for i := 0; dec.More(); i++ {
		v, err := records.DecodeNext(dec)
		if err != nil {
			return fmt.Errorf("json: decode array element %d: %w", i, err)
		}
		if v == nil {
			continue
		}
		obj, ok := v.(records.Row)
		if !ok {
			return fmt.Errorf("json: array element %d not an object (got %T)", i, v)
		}
		if err := emit(obj); err != nil {
			return err
		}
	}
	return expectDelim(dec, ']')
}

// emitEnvelopeOrSingle walks a root object after '{'. The first member
// holding a non-empty array of objects is emitted as the record set; if no
// such member exists the object itself is the single record.
func emitEnvelopeOrSingle(dec *json.Decoder, emit func(records.Row) error) error {
	var single records.Row
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: read object key: %w", err)
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("json: object key not a string (got %T)", kt)
		}
		val, err := records.DecodeNext(dec)
		if err != nil {
			return fmt.Errorf("json: decode %q: %w", key, err)
		}
		if objs, ok := objectArray(val); ok {
			for dec.More() {
				if _, err := dec.Token(); err != nil {
					return fmt.Errorf("json: skip envelope key: %w", err)
				}
				if err := skipNextValue(dec); err != nil {
					return err
				}
			}
			if err := expectDelim(dec, '}'); err != nil {
				return err
			}
			for _, o := range objs {
				if err := emit(o); err != nil {
					return err
				}
			}
			return nil
		}
		single.Set(key, val)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	return emit(single)
}

func emitTrailingObjects(dec *json.Decoder, emit func(records.Row) error) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("json: read trailing object: %w", err)
		}
		if tok != json.Delim('{') {
			return fmt.Errorf("json: trailing value %v is not an object", tok)
		}
		v, err := records.DecodeFromToken(dec, tok)
		if err != nil {
			return fmt.Errorf("json: decode trailing object: %w", err)
		}
		if err := emit(v.(records.Row)); err != nil {
			return err
		}
	}
}

// objectArray reports whether v is a non-empty array whose elements are all
// objects or null. nulls are dropped.
func objectArray(v any) ([]records.Row, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	out := make([]records.Row, 0, len(arr))
	for _, it := range arr {
		if it == nil {
			continue
		}
		r, ok := it.(records.Row)
		if !ok {
			return nil, false
		}
		out = append(out, r)
	}
	return out, len(out) > 0
}

func remap(obj records.Row, hm map[string]string, flatten bool, sep string) records.Row {
	if len(hm) == 0 && !flatten {
		return obj
	}
	var out records.Row
	obj.Range(func(k string, v any) bool {
		if mapped, ok := hm[k]; ok && mapped != "" {
			k = mapped
		}
		if flatten {
			v = joinStrings(v, sep)
		}
		out.Set(k, v)
		return true
	})
	return out
}

// joinStrings flattens an array of strings to one string. Mixed arrays are
// returned unchanged.
func joinStrings(v any, sep string) any {
	arr, ok := v.([]any)
	if !ok {
		return v
	}
	ss := make([]string, 0, len(arr))
	for _, it := range arr {
		if it == nil {
			continue
		}
		s, ok := it.(string)
		if !ok {
			return v
		}
		ss = append(ss, s)
	}
	return strings.Join(ss, sep)
}

// skipNextValue skips the next JSON value without materializing it.
func skipNextValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: skip value token: %w", err)
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	switch d {
	case '{':
		for dec.More() {
			if _, err := dec.Token(); err != nil {
				return fmt.Errorf("json: skip object key: %w", err)
			}
			if err := skipNextValue(dec); err != nil {
				return err
			}
		}
		return expectDelim(dec, '}')
	case '[':
		for dec.More() {
			if err := skipNextValue(dec); err != nil {
				return err
			}
		}
		return expectDelim(dec, ']')
	default:
		return fmt.Errorf("json: unexpected delimiter %q", d)
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	end, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: read %q: %w", want, err)
	}
	if end != want {
		return fmt.Errorf("json: expected %q, got %v", want, end)
	}
	return nil
}
