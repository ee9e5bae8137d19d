package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput matches every *InvalidInputError via errors.Is.
	ErrInvalidInput = errors.New("invalid schema input")

	// ErrUnsupportedFormat matches every *UnsupportedFormatError via errors.Is.
	ErrUnsupportedFormat = errors.New("unsupported schema format")
)

// InvalidInputError reports input that cannot describe rows: an empty or
// non-array JSON document, non-object elements, or XML without a root or
// without row elements.
type InvalidInputError struct {
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Reason, e.Err)
	}
	return "invalid input: " + e.Reason
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// UnsupportedFormatError reports content that parses as neither JSON nor XML.
type UnsupportedFormatError struct {
	Filename string
	JSONErr  error
	XMLErr   error
}

func (e *UnsupportedFormatError) Error() string {
	name := e.Filename
	if name == "" {
		name = "input"
	}
	return fmt.Sprintf("unsupported format for %s: not JSON (%v) and not XML (%v)", name, e.JSONErr, e.XMLErr)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

func invalidInput(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}
