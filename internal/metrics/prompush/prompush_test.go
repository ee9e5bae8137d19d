package prompush

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataprep/internal/metrics"
)

type fakePusher struct {
	calls int
	err   error
}

func (f *fakePusher) Push() error {
	f.calls++
	return f.err
}

func newTestBackend(t *testing.T) (*Backend, *fakePusher) {
	t.Helper()
	b, err := newBackend()
	require.NoError(t, err)
	fp := &fakePusher{}
	b.pusher = fp
	return b, fp
}

func TestNewBackend_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewBackend("job", "  ")
	assert.Error(t, err)

	b, err := NewBackend("", "http://localhost:9091")
	require.NoError(t, err)
	assert.NotNil(t, b.pusher)
}

func TestBackend_RecordsAndPushes(t *testing.T) {
	t.Parallel()

	b, fp := newTestBackend(t)
	b.IncCounter(metrics.RowsTotal, 4, metrics.Labels{"job": "orders", "kind": "in"})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"job": "orders", "kind": "in"})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"job": "orders"})
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"job": "orders", "step": "clean"})
	b.IncCounter(metrics.JobsTotal, 0, metrics.Labels{"job": "orders"})
	b.IncCounter("other_total", 1, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.2, metrics.Labels{"job": "orders", "step": "clean", "status": "ok"})
	b.ObserveHistogram(metrics.StepDurationSeconds, -1, nil)

	assert.Equal(t, 5.0, testutil.ToFloat64(b.rows.WithLabelValues("orders", "in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.steps.WithLabelValues("orders", "clean", "unknown")))
	assert.Equal(t, 1, testutil.CollectAndCount(b.rows))
	assert.Equal(t, 0, testutil.CollectAndCount(b.jobs))
	assert.Equal(t, 1, testutil.CollectAndCount(b.duration))

	require.NoError(t, b.Flush())
	require.NoError(t, b.Close())
	assert.Equal(t, 2, fp.calls)
}

func TestBackend_PushError(t *testing.T) {
	t.Parallel()

	b, fp := newTestBackend(t)
	fp.err = errors.New("connection refused")
	err := b.Flush()
	assert.ErrorContains(t, err, "prompush: push")
	assert.ErrorIs(t, err, fp.err)
}
