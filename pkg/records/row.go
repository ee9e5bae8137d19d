// Package records defines the in-memory tabular model shared by the parsers,
// the cleaning pipeline and the loaders.
//
// A Row remembers the order in which its keys were first set. That order is
// observable: it drives JSON serialization, the structural dedupe key and the
// first-seen column order used by schema inference.
package records

import "strconv"

// Row is an ordered mapping from column name to cell value.
//
// Cell values are nil, string, float64, bool, or (for JSON input) nested
// []any / Row values. The zero Row is empty and ready to use.
//
// Rows returned by the cleaning functions are always fresh copies; callers may
// keep using the inputs after a call.
type Row struct {
	keys []string
	vals map[string]any
}

// NewRow builds a Row from alternating key/value arguments:
//
//	records.NewRow("id", 1.0, "name", "Ann")
//
// A non-string key panics; NewRow is meant for literals.
func NewRow(kv ...any) Row {
	if len(kv)%2 != 0 {
		panic("records: NewRow expects key/value pairs")
	}
	r := Row{}
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("records: NewRow key is not a string")
		}
		r.Set(k, kv[i+1])
	}
	return r
}

// Len returns the number of keys.
func (r Row) Len() int { return len(r.keys) }

// Keys returns the keys in insertion order. The slice is a copy.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Has reports whether key is present (even with a nil value).
func (r Row) Has(key string) bool {
	_, ok := r.vals[key]
	return ok
}

// Get returns the value for key and whether it was present.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Value returns the value for key, or nil when absent.
func (r Row) Value(key string) any {
	return r.vals[key]
}

// Set stores v under key. New keys are appended; existing keys keep their
// position.
func (r *Row) Set(key string, v any) {
	if r.vals == nil {
		r.vals = make(map[string]any)
	}
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
}

// Range calls fn for each key/value in order until fn returns false.
func (r Row) Range(fn func(key string, v any) bool) {
	for _, k := range r.keys {
		if !fn(k, r.vals[k]) {
			return
		}
	}
}

// Clone returns a copy that shares no key or map storage with r.
// Cell values are copied shallowly.
func (r Row) Clone() Row {
	out := Row{
		keys: make([]string, len(r.keys)),
		vals: make(map[string]any, len(r.vals)),
	}
	copy(out.keys, r.keys)
	for k, v := range r.vals {
		out.vals[k] = v
	}
	return out
}

// Equal reports whether both rows hold the same keys in the same order with
// identically serialized values.
func (r Row) Equal(o Row) bool {
	if len(r.keys) != len(o.keys) {
		return false
	}
	for i, k := range r.keys {
		if o.keys[i] != k {
			return false
		}
	}
	a, errA := r.MarshalJSON()
	b, errB := o.MarshalJSON()
	return errA == nil && errB == nil && string(a) == string(b)
}

// CloneRows copies every row in rows.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i := range rows {
		out[i] = rows[i].Clone()
	}
	return out
}

// Dataset is a header list plus the rows it describes. Row order is
// meaningful.
type Dataset struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// HasHeader reports whether name is one of d.Headers.
func (d Dataset) HasHeader(name string) bool {
	for _, h := range d.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Clone copies headers and rows.
func (d Dataset) Clone() Dataset {
	h := make([]string, len(d.Headers))
	copy(h, d.Headers)
	return Dataset{Headers: h, Rows: CloneRows(d.Rows)}
}

// HeadersFromRows returns the union of row keys in first-seen order.
func HeadersFromRows(rows []Row) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		for _, k := range r.keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// UniqueHeaders makes raw header cells usable as column keys. A blank cell
// becomes "column_N" (N is its 1-based position). A repeat gets the first
// "_2", "_3", ... suffix that is neither already taken nor one of the raw
// names, so a later real header keeps its own name.
func UniqueHeaders(raw []string) []string {
	reserved := make(map[string]bool, len(raw))
	for _, h := range raw {
		if h != "" {
			reserved[h] = true
		}
	}
	used := make(map[string]bool, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		name := h
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		// A placeholder must not take a name a real header owns.
		if used[name] || (h == "" && reserved[name]) {
			base := name
			for n := 2; ; n++ {
				name = base + "_" + strconv.Itoa(n)
				if !used[name] && !reserved[name] {
					break
				}
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}
