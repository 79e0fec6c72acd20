// Package safety implements the killswitch latch and rev-limit hysteresis
// supervisor (C8). The killswitch is level-triggered: its ISR latches the
// pin level into SupervisorState, and the main loop consults that latch
// (never the raw pin) when deciding whether CRANKING/RUNNING may be
// entered. Rev-limit hysteresis lives here too since both are "is it safe
// to fire this cycle" questions the rest of the engine asks before arming
// anything.
package safety

import "sync"

// SupervisorState is the C8 shared state block. OnKillswitchEdge is its
// only writer for the killswitch field; EvaluateRevLimit is its only
// writer for the rev-limit field. Both are read by the main loop through
// the accessor methods.
type SupervisorState struct {
	mu sync.Mutex

	killswitch bool // true = engine permitted to run
	revLimit   bool // true = rev-limiter latched
}

// New returns a SupervisorState with the killswitch initially false and
// rev-limit initially clear — the safe startup posture: no cranking or
// running is permitted until a killswitch edge says otherwise.
func New() *SupervisorState {
	return &SupervisorState{}
}

// OnKillswitchEdge is the killswitch ISR handler: it latches the current
// pin level. high reports the new permitted-to-run bit.
func (s *SupervisorState) OnKillswitchEdge(high bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killswitch = high
}

// Killswitch returns the latched killswitch level.
func (s *SupervisorState) Killswitch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killswitch
}

// RevLimit returns whether the rev limiter is currently latched.
func (s *SupervisorState) RevLimit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revLimit
}

// EvaluateRevLimit updates the rev-limit latch for the current RPM
// reading and returns its new value. Hysteresis: once rpm >= upperLimit
// the latch sets and fuel/spark stop being armed; it clears only once rpm
// drops below lowerLimit on a later evaluation (spec.md §4.8). Called
// once per CALIBRATION cycle, before the mode machine's own decision
// table runs (modestate.Machine.DecideCalibration takes the resulting
// bool as an argument rather than reaching into this package itself, so
// the two packages stay decoupled).
func (s *SupervisorState) EvaluateRevLimit(rpm, upperLimit, lowerLimit float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.revLimit && rpm >= upperLimit:
		s.revLimit = true
	case s.revLimit && rpm < lowerLimit:
		s.revLimit = false
	}
	return s.revLimit
}

// MayRun reports whether CRANKING or RUNNING may be entered: the
// killswitch must be latched high. Rev-limit alone does not forbid
// running — REV_LIMITER is itself a mode the machine can be in — but a
// low killswitch forbids both, per spec.md §4.8's "must not enter CRANKING
// or RUNNING" rule.
func (s *SupervisorState) MayRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killswitch
}
