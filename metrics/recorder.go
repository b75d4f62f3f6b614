package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Observer receives named numeric observations. Wiring one in decouples
// the recorder from any particular monitoring backend: PrometheusSink is
// one implementation, tests supply their own. With no observer configured,
// observations live only in process.
type Observer interface {
	Observe(name string, value float64)
}

// LatencySummary aggregates the attempt durations of one parser stage.
type LatencySummary struct {
	Count uint64        `json:"count"`
	Sum   time.Duration `json:"sum"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// Snapshot is a read-only view of the recorder's state, recomputed on
// demand. It is never persisted.
type Snapshot struct {
	Counters  map[string]uint64         `json:"counters"`
	Reasons   map[string]uint64         `json:"reasons"`
	Latencies map[string]LatencySummary `json:"latencies"`
}

// Recorder keeps thread-safe counters, per-stage latency aggregates and a
// failure-reason histogram. The mutation lock is scoped strictly to
// counter updates; it is a different lock from the one guarding lazy
// construction of the package-level Default instance, so singleton
// creation contention never blocks steady-state updates.
type Recorder struct {
	mu        sync.Mutex
	counters  map[string]uint64
	reasons   map[string]uint64
	latencies map[string]*LatencySummary

	observer Observer
}

// Option configures a Recorder at construction time.
type Option func(*Recorder)

// WithObserver attaches an external observation sink.
func WithObserver(o Observer) Option {
	return func(r *Recorder) { r.observer = o }
}

// NewRecorder builds an empty recorder.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		counters:  make(map[string]uint64),
		reasons:   make(map[string]uint64),
		latencies: make(map[string]*LatencySummary),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultInstance atomic.Pointer[Recorder]
	defaultInitMu   sync.Mutex
)

// Default returns the process-wide recorder, constructing it on first use
// under double-checked locking: check without the lock, then lock and
// recheck before constructing.
func Default() *Recorder {
	if r := defaultInstance.Load(); r != nil {
		return r
	}
	defaultInitMu.Lock()
	defer defaultInitMu.Unlock()
	if r := defaultInstance.Load(); r != nil {
		return r
	}
	r := NewRecorder()
	defaultInstance.Store(r)
	return r
}

// Increment bumps a named counter by one.
func (r *Recorder) Increment(name string) {
	r.mu.Lock()
	r.counters[name]++
	r.mu.Unlock()

	r.observe(name, 1)
}

// RecordLatency folds one stage attempt's duration into that stage's
// summary. Durations are recorded whether or not the attempt succeeded.
func (r *Recorder) RecordLatency(stage string, d time.Duration) {
	r.mu.Lock()
	s, ok := r.latencies[stage]
	if !ok {
		s = &LatencySummary{Min: d, Max: d}
		r.latencies[stage] = s
	}
	s.Count++
	s.Sum += d
	if d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	r.mu.Unlock()

	r.observe(stage+"_latency_seconds", d.Seconds())
}

// RecordReason bumps the histogram bucket for a reason code.
func (r *Recorder) RecordReason(reason string) {
	r.mu.Lock()
	r.reasons[reason]++
	r.mu.Unlock()

	r.observe("reason_"+reason, 1)
}

// Snapshot copies the live counters into an independent view.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Counters:  make(map[string]uint64, len(r.counters)),
		Reasons:   make(map[string]uint64, len(r.reasons)),
		Latencies: make(map[string]LatencySummary, len(r.latencies)),
	}
	for k, v := range r.counters {
		snap.Counters[k] = v
	}
	for k, v := range r.reasons {
		snap.Reasons[k] = v
	}
	for k, v := range r.latencies {
		snap.Latencies[k] = *v
	}
	return snap
}

// observe runs outside the mutation lock so a slow sink cannot stall
// concurrent parse bookkeeping.
func (r *Recorder) observe(name string, value float64) {
	if r.observer != nil {
		r.observer.Observe(name, value)
	}
}
