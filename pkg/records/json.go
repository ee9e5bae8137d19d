package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// MarshalJSON writes the row as a JSON object with keys in insertion order.
// Non-finite numbers are written as null.
func (r Row) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		if err := appendJSONValue(&b, r.vals[k]); err != nil {
			return nil, fmt.Errorf("records: marshal %q: %w", k, err)
		}
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// EncodeValue renders v exactly as Row.MarshalJSON renders a cell: both
// signed zeros are 0, and NaN and the infinities are null.
func EncodeValue(v any) ([]byte, error) {
	var b bytes.Buffer
	if err := appendJSONValue(&b, v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func appendJSONValue(b *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
		return nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			b.WriteString("null")
			return nil
		}
		if t == 0 {
			b.WriteString("0")
			return nil
		}
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			b.WriteString("null")
			return nil
		}
	case []any:
		b.WriteByte('[')
		for i, it := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := appendJSONValue(b, it); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.Write(raw)
	return nil
}

// UnmarshalJSON decodes a JSON object, preserving key order. Nested objects
// become Row values and numbers become float64.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("records: read row: %w", err)
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("records: row must be a JSON object, got %v", tok)
	}
	row, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// DecodeJSON decodes a single JSON document. Objects become Row values (key
// order preserved), arrays become []any and numbers become float64.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := DecodeNext(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("records: trailing data after JSON value")
	}
	return v, nil
}

// DecodeNext reads the next complete value from dec.
func DecodeNext(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return DecodeFromToken(dec, tok)
}

// DecodeFromToken materializes the value whose first token has already been
// read from dec.
func DecodeFromToken(dec *json.Decoder, tok json.Token) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		if n, ok := tok.(json.Number); ok {
			return strconv.ParseFloat(string(n), 64)
		}
		return tok, nil
	}
	switch d {
	case '{':
		return decodeObject(dec)
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := DecodeNext(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("records: unexpected delimiter %q", d)
	}
}

// decodeObject reads members after '{' has been consumed, including the
// closing '}'.
func decodeObject(dec *json.Decoder) (Row, error) {
	row := Row{vals: map[string]any{}}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return Row{}, fmt.Errorf("records: read key: %w", err)
		}
		k, ok := kt.(string)
		if !ok {
			return Row{}, fmt.Errorf("records: object key not a string (got %T)", kt)
		}
		v, err := DecodeNext(dec)
		if err != nil {
			return Row{}, err
		}
		row.Set(k, v)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return Row{}, err
	}
	return row, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	end, err := dec.Token()
	if err != nil {
		return fmt.Errorf("records: read %q: %w", want, err)
	}
	if end != want {
		return fmt.Errorf("records: expected %q, got %v", want, end)
	}
	return nil
}
