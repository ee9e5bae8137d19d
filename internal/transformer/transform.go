package transformer

import (
	"errors"
	"fmt"

	"dataprep/internal/cell"
	"dataprep/pkg/records"
)

// Operation names a column-pair transform.
type Operation string

const (
	OpConcat     Operation = "concat"
	OpAdd        Operation = "add"
	OpSubtract   Operation = "subtract"
	OpMultiply   Operation = "multiply"
	OpDivide     Operation = "divide"
	OpPercentage Operation = "percentage"
)

// DefaultSeparator joins concat operands when Spec.Separator is nil.
const DefaultSeparator = " "

// ErrUnknownOperation is returned for an Operation outside the set above.
var ErrUnknownOperation = errors.New("unknown transform operation")

// Valid reports whether op is a supported operation.
func (op Operation) Valid() bool {
	switch op {
	case OpConcat, OpAdd, OpSubtract, OpMultiply, OpDivide, OpPercentage:
		return true
	}
	return false
}

// Spec describes one derived column.
type Spec struct {
	ColumnA   string    `json:"column_a" yaml:"column_a" validate:"required"`
	ColumnB   string    `json:"column_b" yaml:"column_b" validate:"required"`
	Op        Operation `json:"op" yaml:"op" validate:"required"`
	NewColumn string    `json:"new_column" yaml:"new_column" validate:"required"`

	// Separator for concat; nil means DefaultSeparator. An explicit empty
	// string joins without a separator.
	Separator *string `json:"separator,omitempty" yaml:"separator,omitempty"`
}

// ApplyTransform returns copies of rows with spec.NewColumn set on each row.
//
// concat joins the display text of both operands (nil as ""). Arithmetic
// operations coerce unparsable or missing operands to 0, return 0 when
// dividing by exactly 0, and round results to two decimals. An existing
// column named NewColumn is overwritten in place.
func ApplyTransform(rows []records.Row, spec Spec) ([]records.Row, error) {
	if !spec.Op.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, spec.Op)
	}

	sep := DefaultSeparator
	if spec.Separator != nil {
		sep = *spec.Separator
	}

	out := make([]records.Row, len(rows))
	for i, r := range rows {
		nr := r.Clone()
		a, b := r.Value(spec.ColumnA), r.Value(spec.ColumnB)
		if spec.Op == OpConcat {
			nr.Set(spec.NewColumn, records.FormatValue(a)+sep+records.FormatValue(b))
		} else {
			nr.Set(spec.NewColumn, arithmetic(spec.Op, cell.NumberOrZero(a), cell.NumberOrZero(b)))
		}
		out[i] = nr
	}
	return out, nil
}

func arithmetic(op Operation, a, b float64) float64 {
	var v float64
	switch op {
	case OpAdd:
		v = a + b
	case OpSubtract:
		v = a - b
	case OpMultiply:
		v = a * b
	case OpDivide:
		if b == 0 {
			return 0
		}
		v = a / b
	case OpPercentage:
		if b == 0 {
			return 0
		}
		v = a / b * 100
	}
	return cell.Round2(v)
}
