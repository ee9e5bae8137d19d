package cleaning

import (
	"bytes"
	"errors"
	"fmt"

	"dataprep/internal/cell"
	"dataprep/internal/stats"
	"dataprep/pkg/records"
)

// FillStrategy selects how FillMissing computes replacement values.
type FillStrategy string

const (
	FillMean     FillStrategy = "mean"
	FillMedian   FillStrategy = "median"
	FillMode     FillStrategy = "mode"
	FillForward  FillStrategy = "forward"
	FillBackward FillStrategy = "backward"
)

// ErrUnknownStrategy is returned for a FillStrategy outside the set above.
var ErrUnknownStrategy = errors.New("unknown fill strategy")

// Valid reports whether s is a supported strategy.
func (s FillStrategy) Valid() bool {
	switch s {
	case FillMean, FillMedian, FillMode, FillForward, FillBackward:
		return true
	}
	return false
}

// FillMissing returns rows with missing cells in col replaced according to
// strategy. Cells that are not missing are never changed, so sentinels such
// as "N/A" survive every strategy.
//
// forward and backward leave leading (resp. trailing) gaps alone. mean and
// median use only the numeric cells; mode counts every present cell. When no
// fill value exists the missing cells are left as they were.
func FillMissing(rows []records.Row, col string, strategy FillStrategy) ([]records.Row, error) {
	switch strategy {
	case FillForward:
		return fillForward(rows, col), nil
	case FillBackward:
		return fillBackward(rows, col), nil
	case FillMean, FillMedian, FillMode:
		v, ok := fillValue(rows, col, strategy)
		out := records.CloneRows(rows)
		if !ok {
			return out, nil
		}
		for i := range out {
			if cell.IsMissing(out[i].Value(col)) {
				out[i].Set(col, v)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

func fillForward(rows []records.Row, col string) []records.Row {
	out := records.CloneRows(rows)
	var (
		last    any
		hasLast bool
	)
	for i := range out {
		v := out[i].Value(col)
		if !cell.IsMissing(v) {
			last, hasLast = v, true
			continue
		}
		if hasLast {
			out[i].Set(col, last)
		}
	}
	return out
}

func fillBackward(rows []records.Row, col string) []records.Row {
	out := records.CloneRows(rows)
	var (
		next    any
		hasNext bool
	)
	for i := len(out) - 1; i >= 0; i-- {
		v := out[i].Value(col)
		if !cell.IsMissing(v) {
			next, hasNext = v, true
			continue
		}
		if hasNext {
			out[i].Set(col, next)
		}
	}
	return out
}

func fillValue(rows []records.Row, col string, strategy FillStrategy) (any, bool) {
	if strategy == FillMode {
		return modeOf(rows, col)
	}
	nums := numericValues(rows, col)
	if len(nums) == 0 {
		return nil, false
	}
	if strategy == FillMean {
		return stats.Mean(nums), true
	}
	return stats.Median(nums), true
}

func numericValues(rows []records.Row, col string) []float64 {
	var nums []float64
	for _, r := range rows {
		v := r.Value(col)
		if cell.IsMissing(v) {
			continue
		}
		if f, ok := cell.ParseNumber(v); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

// modeOf returns the most frequent present value. Values are compared by
// their JSON text, so 1 and "1" are different values. Ties go to the value
// seen first.
func modeOf(rows []records.Row, col string) (any, bool) {
	type bucket struct {
		first any
		count int
	}
	var (
		order   []string
		buckets = map[string]*bucket{}
	)
	for _, r := range rows {
		v := r.Value(col)
		if cell.IsMissing(v) {
			continue
		}
		key := valueKey(v)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{first: v}
			buckets[key] = b
			order = append(order, key)
		}
		b.count++
	}
	if len(order) == 0 {
		return nil, false
	}
	best := buckets[order[0]]
	for _, k := range order[1:] {
		if b := buckets[k]; b.count > best.count {
			best = b
		}
	}
	return best.first, true
}

// valueKey is v's cell JSON, the same text the dedupe key is built from.
func valueKey(v any) string {
	raw, err := records.EncodeValue(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(raw)
}

// ColumnFill pairs a column with its fill strategy.
type ColumnFill struct {
	Column   string
	Strategy FillStrategy
}

// FillPlan is an ordered list of column fills. Its JSON form is an object
// whose member order is the plan order.
type FillPlan []ColumnFill

// Strategy returns the strategy planned for col.
func (p FillPlan) Strategy(col string) (FillStrategy, bool) {
	for _, cf := range p {
		if cf.Column == col {
			return cf.Strategy, true
		}
	}
	return "", false
}

// MarshalJSON writes {"col":"strategy",...} in plan order.
func (p FillPlan) MarshalJSON() ([]byte, error) {
	var r records.Row
	for _, cf := range p {
		r.Set(cf.Column, string(cf.Strategy))
	}
	return r.MarshalJSON()
}

// UnmarshalJSON reads an object of column to strategy, keeping member order.
func (p *FillPlan) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*p = nil
		return nil
	}
	var r records.Row
	if err := r.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("fill plan: %w", err)
	}
	plan := make(FillPlan, 0, r.Len())
	var err error
	r.Range(func(k string, v any) bool {
		s, ok := v.(string)
		if !ok {
			err = fmt.Errorf("fill plan: strategy for %q must be a string, got %T", k, v)
			return false
		}
		plan = append(plan, ColumnFill{Column: k, Strategy: FillStrategy(s)})
		return true
	})
	if err != nil {
		return err
	}
	*p = plan
	return nil
}

// GetAutoFillOptions recommends a strategy for every header that has at least
// one missing cell: median when the column holds any numeric value, mode
// otherwise. Columns without gaps are omitted. Order follows headers.
func GetAutoFillOptions(rows []records.Row, headers []string) FillPlan {
	plan := FillPlan{}
	for _, h := range headers {
		var missing, numeric bool
		for _, r := range rows {
			v := r.Value(h)
			if cell.IsMissing(v) {
				missing = true
				continue
			}
			if _, ok := cell.ParseNumber(v); ok {
				numeric = true
			}
		}
		if !missing {
			continue
		}
		strategy := FillMode
		if numeric {
			strategy = FillMedian
		}
		plan = append(plan, ColumnFill{Column: h, Strategy: strategy})
	}
	return plan
}
