// Package simclock is a deterministic, single-goroutine crank/timer
// simulator: it stands in for both the crankshaft (via CrankSim) and the
// four hardware timers (via Timer) so `ecufw run` and every automated
// test can drive an Engine through a scenario without a real clock or
// real hardware. Everything here runs on one goroutine's call stack —
// there is no background ticking — matching spec.md §5's model of a
// single driving context calling into ISR-equivalent handlers one at a
// time.
package simclock

// Clock is a virtual microsecond timeline. Advance moves it forward,
// firing any pending Timer in the interval in fire-order; nothing moves
// on its own.
type Clock struct {
	now    int64
	timers []*Timer
}

// New returns a Clock starting at time 0.
func New() *Clock {
	return &Clock{}
}

// Now returns the current simulated time in microseconds. Suitable as an
// engine.Engine's Now field directly.
func (c *Clock) Now() int64 {
	return c.now
}

// NewTimer returns a scheduler.Timer/ignition.Timer-shaped handle bound
// to this clock.
func (c *Clock) NewTimer() *Timer {
	return &Timer{clock: c}
}

func (c *Clock) schedule(t *Timer) {
	c.timers = append(c.timers, t)
}

// Advance moves the clock forward to target, firing every still-armed
// timer due at or before target, earliest first. A timer's own fire
// callback may arm further timers (e.g. SPARK_CHARGE arming
// SPARK_DISCHARGE) — those are picked up by the same loop since they're
// appended to c.timers before the next earliest-pending scan.
func (c *Clock) Advance(target int64) {
	for {
		idx, fireAt := c.earliestArmed()
		if idx < 0 || fireAt > target {
			break
		}
		c.now = fireAt
		t := c.timers[idx]
		t.armed = false
		c.timers = append(c.timers[:idx], c.timers[idx+1:]...)
		if t.cb != nil {
			t.cb()
		}
	}
	if target > c.now {
		c.now = target
	}
}

func (c *Clock) earliestArmed() (idx int, fireAt int64) {
	idx = -1
	for i, t := range c.timers {
		if !t.armed {
			continue
		}
		if idx == -1 || t.fireAt < fireAt {
			idx = i
			fireAt = t.fireAt
		}
	}
	return idx, fireAt
}
