package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	samples  map[string][]float64
	flushes  int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{counters: map[string]float64{}, samples: map[string][]float64{}}
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name+"/"+labels["kind"]+labels["step"]] += delta
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[name] = append(r.samples[name], value)
}

func (r *recordingBackend) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return nil
}

// Tests in this file swap the process-wide backend, so they do not run in
// parallel.

func TestDefaultBackendIsNop(t *testing.T) {
	SetBackend(nil)
	IncCounter(RowsTotal, 1, nil)
	ObserveHistogram(StepDurationSeconds, 1, nil)
	assert.NoError(t, Flush())
	assert.IsType(t, nopBackend{}, Current())
}

func TestRecordHelpers(t *testing.T) {
	b := newRecordingBackend()
	SetBackend(b)
	t.Cleanup(func() { SetBackend(nil) })

	RecordRows("j", "in", 3)
	RecordRows("j", "in", 2)
	RecordRows("j", "outliers", 0)
	RecordStep("j", "clean", "ok", 1500*time.Millisecond)
	assert.NoError(t, Flush())

	assert.Equal(t, 5.0, b.counters[RowsTotal+"/in"])
	_, ok := b.counters[RowsTotal+"/outliers"]
	assert.False(t, ok, "zero row counts are not recorded")
	assert.Equal(t, 1.0, b.counters[StepTotal+"/clean"])
	assert.Equal(t, []float64{1.5}, b.samples[StepDurationSeconds])
	assert.Equal(t, 1, b.flushes)
}
