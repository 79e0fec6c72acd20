// Package ignition drives the two hardware output pipelines — spark and
// fuel injection — each a small two-state machine advanced by timer fire
// callbacks. Per spec.md §4.6 the two pipelines are mutually asynchronous
// and each is non-reentrant with respect to itself; neither ever touches
// mode state, only pins and its own timer.
package ignition

// Pin is the hardware (or simulated) output the pipelines drive.
type Pin interface {
	SetHigh()
	SetLow()
}

// Timer is the narrow timer contract the pipelines need: arm a one-shot
// delay and stop it early. It is the subset of scheduler.Timer without
// AttachInterrupt, so any scheduler.Timer satisfies it and neither package
// needs to import the other.
type Timer interface {
	Start(us float64)
	Stop()
}

// SparkPipeline implements the spark charge/discharge state machine.
// SPARK_CHARGE fires: stop the charge timer, drive the pin HIGH (coil
// begins charging), arm the discharge timer for exactly DwellTimeUS.
// SPARK_DISCHARGE fires: drive the pin LOW (spark occurs), stop the
// discharge timer.
type SparkPipeline struct {
	Pin            Pin
	ChargeTimer    Timer
	DischargeTimer Timer
	DwellTimeUS    float64
}

// OnChargeFire is the SPARK_CHARGE timer's fire callback.
func (p *SparkPipeline) OnChargeFire() {
	p.ChargeTimer.Stop()
	p.Pin.SetHigh()
	p.DischargeTimer.Start(p.DwellTimeUS)
}

// OnDischargeFire is the SPARK_DISCHARGE timer's fire callback.
func (p *SparkPipeline) OnDischargeFire() {
	p.Pin.SetLow()
	p.DischargeTimer.Stop()
}

// FuelPipeline implements the fuel start/stop state machine. FUEL_START
// fires: stop the start timer, drive the pin HIGH, arm the stop timer for
// the cycle's computed fuelDuration. FUEL_STOP fires: drive the pin LOW,
// stop the stop timer.
type FuelPipeline struct {
	Pin        Pin
	StartTimer Timer
	StopTimer  Timer
}

// OnStartFire is the FUEL_START timer's fire callback. durationUS is the
// pulse width computed for this cycle (internal/fueling.PulseWidth).
func (p *FuelPipeline) OnStartFire(durationUS float64) {
	p.StartTimer.Stop()
	p.Pin.SetHigh()
	p.StopTimer.Start(durationUS)
}

// OnStopFire is the FUEL_STOP timer's fire callback.
func (p *FuelPipeline) OnStopFire() {
	p.Pin.SetLow()
	p.StopTimer.Stop()
}

// DriveLow forces both pins LOW. Engine.Run calls it once at startup,
// before its main loop. A killswitch drop does not call it: pulses already
// in flight finish on their own stop timers, and callers keep new pulses
// from starting by not arming the start timers again, not by anything in
// this package.
func DriveLow(spark, fuel Pin) {
	spark.SetLow()
	fuel.SetLow()
}
