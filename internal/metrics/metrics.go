// Package metrics is the process-wide metrics seam. Callers record through
// the package functions; cmd wires a concrete backend with SetBackend.
// Until then every call goes to a no-op backend.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metric names recorded by the runner.
const (
	RowsTotal           = "dataprep_rows_total"
	StepTotal           = "dataprep_step_total"
	StepDurationSeconds = "dataprep_step_duration_seconds"
	JobsTotal           = "dataprep_jobs_total"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric events. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

type holder struct{ b Backend }

var current atomic.Pointer[holder]

func init() {
	current.Store(&holder{b: nopBackend{}})
}

// SetBackend installs b. A nil b restores the no-op backend.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	current.Store(&holder{b: b})
}

// Current returns the installed backend.
func Current() Backend { return current.Load().b }

// IncCounter adds delta to a counter.
func IncCounter(name string, delta float64, labels Labels) {
	current.Load().b.IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample.
func ObserveHistogram(name string, value float64, labels Labels) {
	current.Load().b.ObserveHistogram(name, value, labels)
}

// Flush pushes buffered metrics, if the backend buffers.
func Flush() error { return current.Load().b.Flush() }

// RecordStep counts one execution of a pipeline step and its duration.
func RecordStep(job, step, status string, d time.Duration) {
	l := Labels{"job": job, "step": step, "status": status}
	IncCounter(StepTotal, 1, l)
	ObserveHistogram(StepDurationSeconds, d.Seconds(), l)
}

// RecordRows adds n to the row counter for kind (in, out, duplicates,
// outliers, filled, stored).
func RecordRows(job, kind string, n int) {
	if n <= 0 {
		return
	}
	IncCounter(RowsTotal, float64(n), Labels{"job": job, "kind": kind})
}
