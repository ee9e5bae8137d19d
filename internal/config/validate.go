package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Severity classifies a validation Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path uses the job file's JSON names,
// e.g. "job.input.path".
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateJob checks struct constraints and the cross-field rules the tags
// cannot express. It never stops at the first problem.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if err := validate.Struct(j); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     lowerFirst(fe.Namespace()),
					Message:  describe(fe),
				})
			}
		} else {
			issues = append(issues, Issue{Severity: SeverityError, Path: "job", Message: err.Error()})
		}
	}

	for i, cf := range j.Clean.Fill {
		if !cf.Strategy.Valid() {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("job.clean.fill.%s", cf.Column),
				Message:  fmt.Sprintf("unknown strategy %q (want mean|median|mode|forward|backward)", cf.Strategy),
			})
		}
		for _, prev := range j.Clean.Fill[:i] {
			if prev.Column == cf.Column {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     fmt.Sprintf("job.clean.fill.%s", cf.Column),
					Message:  "column listed more than once",
				})
				break
			}
		}
	}
	if j.Clean.AutoFill && len(j.Clean.Fill) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job.clean.auto_fill",
			Message:  "ignored because clean.fill is set",
		})
	}

	for i, t := range j.Transforms {
		if t.Op != "" && !t.Op.Valid() {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("job.transforms[%d].op", i),
				Message:  fmt.Sprintf("unknown operation %q (want concat|add|subtract|multiply|divide|percentage)", t.Op),
			})
		}
	}

	if j.Output.Format == "xlsx" && j.Output.Path == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job.output.path",
			Message:  "xlsx output needs a file path",
		})
	}

	if j.Storage.Enabled() && strings.TrimSpace(j.Storage.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job.storage.dsn",
			Message:  "empty; DATAPREP_DSN must be set",
		})
	}

	return issues
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
