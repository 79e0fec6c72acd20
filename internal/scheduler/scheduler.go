// Package scheduler arms the fuel and spark timers so their events land at
// target crankshaft angles. It owns the SchedulingState block (the angles
// and duration computed each cycle, for diagnostics) and a bank of four
// Timer handles; it never touches sensor or mode state directly — those
// values arrive as arguments from the main loop, which has already decided
// what mode it is in.
package scheduler

import "sync"

// TDC is top dead center in the scheduler's angle coordinate: 360 degrees.
const TDC = 360.0

// Timer is the abstraction over a single hardware (or simulated) timer
// channel: arm it to fire after a delay, cancel it, or attach the callback
// that runs when it fires. Implementations live in internal/simclock (for
// tests and `ecufw run`) and internal/bridge (for real hardware).
type Timer interface {
	Start(us float64)
	Stop()
	AttachInterrupt(cb func())
}

// TimerBank names the four timer channels the scheduler arms each cycle.
type TimerBank struct {
	FuelStart      Timer
	FuelStop       Timer
	SparkCharge    Timer
	SparkDischarge Timer
}

// SchedulingState is the C5 shared state block: the angles and duration
// computed on the most recent cycle, kept for diagnostics and telemetry.
// Scheduler.ArmCycle is its only writer.
type SchedulingState struct {
	mu sync.Mutex

	sparkDischargeAngle float64
	sparkChargeAngle    float64
	fuelStartAngle      float64
	fuelDuration        float64
}

func (s *SchedulingState) setSpark(discharge, charge float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sparkDischargeAngle = discharge
	s.sparkChargeAngle = charge
}

func (s *SchedulingState) setFuel(startAngle, duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fuelStartAngle = startAngle
	s.fuelDuration = duration
}

// SparkDischargeAngle returns the angle the most recent cycle armed spark
// discharge for.
func (s *SchedulingState) SparkDischargeAngle() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sparkDischargeAngle
}

// SparkChargeAngle returns the angle the most recent cycle armed spark
// charge for.
func (s *SchedulingState) SparkChargeAngle() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sparkChargeAngle
}

// FuelStartAngle returns the angle the most recent cycle armed fuel start
// for (meaningless if the cycle wasn't a fuel cycle — callers should check
// fuelCycle themselves, scheduler doesn't remember it).
func (s *SchedulingState) FuelStartAngle() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fuelStartAngle
}

// FuelDuration returns the pulse width, in µs, computed for the most
// recent fuel cycle.
func (s *SchedulingState) FuelDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fuelDuration
}

// Scheduler arms the fuel and spark timers each CRANKING/RUNNING cycle,
// per the four-step order in spec.md §4.5: fuel first (if this is a fuel
// cycle), then spark discharge angle, then spark charge angle, re-reading
// the current crank angle immediately before each arming call since it has
// moved since the cycle started.
type Scheduler struct {
	State        *SchedulingState
	Timers       TimerBank
	MinLatchTime float64 // µs; events armed for less than this are skipped
}

// New returns a Scheduler with a fresh SchedulingState and the given
// timers and minimum latch time.
func New(timers TimerBank, minLatchTime float64) *Scheduler {
	return &Scheduler{
		State:        &SchedulingState{},
		Timers:       timers,
		MinLatchTime: minLatchTime,
	}
}

// ArmCycle runs one CRANKING/RUNNING scheduling cycle. thetaNow is called
// fresh immediately before each arming computation (the spec requires
// re-reading the angle, since it has advanced since fuelCycle/omega were
// captured). sparkDischargeAngle is supplied by the caller already resolved
// for the current mode (TDC-SA(rpm,MAP) in RUNNING, TDC-CRANK_SPARK_ADV in
// CRANKING) — which table or constant feeds it is a mode-state decision,
// not a scheduler one.
//
// It returns whether the fuel and spark events were actually armed this
// cycle (false means skipped per the past-due/min-latch policy) so callers
// can verify the "pin does not toggle this cycle" property.
func (sch *Scheduler) ArmCycle(
	thetaNow func() float64,
	omega float64,
	fuelCycle bool,
	pulseWidthUS float64,
	sparkDischargeAngle float64,
	dwellTimeUS float64,
	fuelEndAngle float64,
) (fuelArmed, sparkArmed bool) {
	if fuelCycle {
		fuelStartAngle := fuelEndAngle - pulseWidthUS*omega
		theta := thetaNow()
		dt := (fuelStartAngle - theta) / omega
		if due(dt, sch.MinLatchTime) {
			sch.Timers.FuelStart.Start(dt)
			fuelArmed = true
		}
		sch.State.setFuel(fuelStartAngle, pulseWidthUS)
	}

	sparkChargeAngle := sparkDischargeAngle - dwellTimeUS*omega
	theta := thetaNow()
	dt := (sparkChargeAngle - theta) / omega
	if due(dt, sch.MinLatchTime) {
		sch.Timers.SparkCharge.Start(dt)
		sparkArmed = true
	}
	sch.State.setSpark(sparkDischargeAngle, sparkChargeAngle)

	return fuelArmed, sparkArmed
}

// due reports whether a computed arming delay should actually be armed:
// not already past (dt < 0) and not inside the timer-overhead dead zone.
// Missing a cycle is the safe failure mode; nothing here retroactively
// fires a late event.
func due(dt, minLatchTime float64) bool {
	return dt >= 0 && dt >= minLatchTime
}
