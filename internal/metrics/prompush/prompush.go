// Package prompush implements a metrics.Backend that pushes to a Prometheus
// Pushgateway. Metrics accumulate in a private registry; Flush pushes the
// whole registry under the grouping job=<JobName>.
package prompush

import (
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"dataprep/internal/metrics"
)

// pusher is the part of *push.Pusher used by Backend. Tests replace it.
type pusher interface {
	Push() error
}

// Backend implements metrics.Backend on a Prometheus registry.
type Backend struct {
	reg    *prometheus.Registry
	pusher pusher

	rows     *prometheus.CounterVec
	steps    *prometheus.CounterVec
	jobs     *prometheus.CounterVec
	duration *prometheus.HistogramVec

	mu sync.Mutex // serializes pushes
}

// NewBackend builds a backend pushing to gatewayURL as job jobName.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if strings.TrimSpace(gatewayURL) == "" {
		return nil, fmt.Errorf("prompush: empty pushgateway url")
	}
	if strings.TrimSpace(jobName) == "" {
		jobName = "dataprep"
	}
	b, err := newBackend()
	if err != nil {
		return nil, err
	}
	b.pusher = push.New(gatewayURL, jobName).Gatherer(b.reg)
	return b, nil
}

func newBackend() (*Backend, error) {
	b := &Backend{
		reg: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows seen by the cleaning pipeline, by kind (in, out, duplicates, outliers, filled, stored).",
		}, []string{"pipeline", "kind"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline step executions by outcome.",
		}, []string{"pipeline", "step", "status"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.JobsTotal,
			Help: "Completed jobs by outcome.",
		}, []string{"pipeline", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.StepDurationSeconds,
			Help:    "Pipeline step duration.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"pipeline", "step", "status"}),
	}
	for _, c := range []prometheus.Collector{b.rows, b.steps, b.jobs, b.duration} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register: %w", err)
		}
	}
	return b, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	switch name {
	case metrics.RowsTotal:
		if labels["kind"] == "" {
			return
		}
		b.rows.WithLabelValues(labels["job"], labels["kind"]).Add(delta)
	case metrics.StepTotal:
		b.steps.WithLabelValues(labels["job"], labels["step"], orUnknown(labels["status"])).Add(delta)
	case metrics.JobsTotal:
		b.jobs.WithLabelValues(labels["job"], orUnknown(labels["status"])).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 || name != metrics.StepDurationSeconds {
		return
	}
	b.duration.WithLabelValues(labels["job"], labels["step"], orUnknown(labels["status"])).Observe(value)
}

// Flush pushes the registry, replacing the previous push for this job.
func (b *Backend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}

// Close performs a final Flush.
func (b *Backend) Close() error { return b.Flush() }

// Gatherer exposes the registry.
func (b *Backend) Gatherer() prometheus.Gatherer { return b.reg }

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

var _ metrics.Backend = (*Backend)(nil)
