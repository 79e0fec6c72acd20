// Package telemetry fans engine.Sample values out to consumers — CSV
// logging, CAN broadcast, Prometheus metrics, a console trace — and
// tracks basic throughput stats. Where the teacher's logger polled a
// serial ECU on a ticker, an ECU's own firmware pushes one sample per
// SERIAL_OUT cycle, so Recorder is driven by Engine.OnSample rather than
// running its own poll loop.
package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kbuckham/gx35ecu/internal/engine"
)

// SampleCallback is called once per recorded sample.
type SampleCallback func(sample engine.Sample)

// ErrorCallback is called when a downstream consumer (a CSV writer, a CAN
// broadcaster) fails to handle a sample.
type ErrorCallback func(err error)

// Stats holds runtime throughput statistics for the recorder.
type Stats struct {
	SampleCount   uint64  `json:"sampleCount"`
	CurrentHz     float64 `json:"currentHz"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Recorder is the fan-out point for engine samples. Record is safe to
// call from the engine's driving goroutine; registered callbacks run
// synchronously on that same call, so a slow consumer (a blocking serial
// write, say) will back-pressure the caller — callers needing
// asynchrony should buffer internally.
type Recorder struct {
	mu          sync.Mutex
	callbacks   []SampleCallback
	errCbs      []ErrorCallback
	sampleCount uint64
	startTime   time.Time
	lastSample  engine.Sample
	haveSample  bool
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

// OnSample registers a callback invoked for every recorded sample.
func (r *Recorder) OnSample(cb SampleCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// OnError registers a callback invoked whenever a registered
// ErrWrappingCallback (see WrapErr) reports a failure.
func (r *Recorder) OnError(cb ErrorCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errCbs = append(r.errCbs, cb)
}

// WrapErr adapts a fallible consumer (func(Sample) error, e.g.
// CSVWriter.WriteSample) into a SampleCallback that reports failures
// through the Recorder's error callbacks instead of panicking or being
// silently dropped.
func (r *Recorder) WrapErr(fn func(engine.Sample) error) SampleCallback {
	return func(s engine.Sample) {
		if err := fn(s); err != nil {
			r.mu.Lock()
			errCbs := append([]ErrorCallback(nil), r.errCbs...)
			r.mu.Unlock()
			for _, cb := range errCbs {
				cb(err)
			}
		}
	}
}

// Record fans sample out to every registered callback and updates
// throughput stats. It is the sole write path into Recorder's state.
func (r *Recorder) Record(sample engine.Sample) {
	r.mu.Lock()
	if r.sampleCount == 0 {
		r.startTime = time.Now()
	}
	r.sampleCount++
	r.lastSample = sample
	r.haveSample = true
	callbacks := append([]SampleCallback(nil), r.callbacks...)
	r.mu.Unlock()

	for _, cb := range callbacks {
		cb(sample)
	}
}

// Stats returns current throughput statistics.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	var hz, uptime float64
	if !r.startTime.IsZero() {
		uptime = time.Since(r.startTime).Seconds()
		if uptime > 0 {
			hz = float64(r.sampleCount) / uptime
		}
	}
	return Stats{
		SampleCount:   r.sampleCount,
		CurrentHz:     hz,
		UptimeSeconds: uptime,
	}
}

// LastSample returns the most recently recorded sample and whether one
// has ever been recorded.
func (r *Recorder) LastSample() (engine.Sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSample, r.haveSample
}

// LogDisconnect is a convenience ErrorCallback consumers can register to
// log every consumer error as a warning. It keeps no count and applies no
// threshold.
func LogDisconnect(err error) {
	slog.Warn("telemetry consumer error", "err", err)
}
