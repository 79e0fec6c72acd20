package simclock

// TachSource is the subset of Engine a CrankSim drives: exactly the
// tach-edge ISR entry point. Kept minimal and local so this package never
// needs to import internal/engine — any type with this method works,
// Engine included.
type TachSource interface {
	HandleTachEdge(nowUS int64)
}

// CrankSim turns a target RPM into a stream of tach edges against a
// Clock, advancing the clock between edges so any timers armed by the
// engine's response to one edge get to fire before the next edge lands —
// the same ordering a real single-toothed crank would produce.
type CrankSim struct {
	Clock  *Clock
	Engine TachSource
}

// NewCrankSim returns a CrankSim bound to clock and engine.
func NewCrankSim(clock *Clock, engine TachSource) *CrankSim {
	return &CrankSim{Clock: clock, Engine: engine}
}

// microsPerRevolution is the tach-edge period, in µs, implied by rpm
// under the single-toothed-crank assumption (one edge per revolution).
func microsPerRevolution(rpm float64) int64 {
	return int64(60_000_000.0 / rpm)
}

// Spin delivers n evenly-spaced tach edges at a constant rpm, advancing
// the clock fully between edges so every timer fire the previous edge
// triggered is resolved first. Returns the clock time of the final edge.
func (c *CrankSim) Spin(rpm float64, n int) int64 {
	period := microsPerRevolution(rpm)
	for i := 0; i < n; i++ {
		c.Clock.Advance(c.Clock.Now() + period)
		c.Engine.HandleTachEdge(c.Clock.Now())
	}
	return c.Clock.Now()
}

// Ramp walks rpm linearly from start to end in steps equal intervals,
// delivering one tach edge at each of the steps+1 rpm values (both start
// and end included); useful for rev-limiter hysteresis scenarios.
func (c *CrankSim) Ramp(start, end float64, steps int) int64 {
	if steps < 1 {
		return c.Clock.Now()
	}
	for i := 0; i <= steps; i++ {
		frac := float64(i) / float64(steps)
		rpm := start + frac*(end-start)
		period := microsPerRevolution(rpm)
		c.Clock.Advance(c.Clock.Now() + period)
		c.Engine.HandleTachEdge(c.Clock.Now())
	}
	return c.Clock.Now()
}
