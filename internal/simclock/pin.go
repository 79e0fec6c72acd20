package simclock

// Edge records a single level change of a TrackedPin, timestamped against
// the Clock that drives it.
type Edge struct {
	TimeUS int64
	High   bool
}

// TrackedPin satisfies ignition.Pin while recording every level change it
// sees; History exposes the recorded trace for inspection without real
// hardware. Not safe for concurrent use — the same single-goroutine
// discipline as the rest of this package applies.
type TrackedPin struct {
	clock   *Clock
	high    bool
	history []Edge
}

// NewTrackedPin returns a pin starting low, timestamped against clock.
func NewTrackedPin(clock *Clock) *TrackedPin {
	return &TrackedPin{clock: clock}
}

func (p *TrackedPin) SetHigh() { p.set(true) }
func (p *TrackedPin) SetLow()  { p.set(false) }

func (p *TrackedPin) set(high bool) {
	if p.high == high {
		return
	}
	p.high = high
	p.history = append(p.history, Edge{TimeUS: p.clock.Now(), High: high})
}

// High reports the pin's current level.
func (p *TrackedPin) High() bool { return p.high }

// History returns every recorded level change, oldest first.
func (p *TrackedPin) History() []Edge {
	return append([]Edge(nil), p.history...)
}
