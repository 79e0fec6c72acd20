// Package engine is the composition root: it owns one instance each of
// the three shared-state blocks (kinematics, scheduling, supervisor) and
// all eight components, and exposes the ISR-equivalent handler methods a
// driving clock (internal/simclock for tests and `ecufw run`, or
// internal/bridge for real hardware) calls into, plus Step for one
// main-loop iteration and Run for the long-lived main-loop goroutine.
package engine

import (
	"context"
	"log/slog"

	"github.com/kbuckham/gx35ecu/internal/config"
	"github.com/kbuckham/gx35ecu/internal/fueling"
	"github.com/kbuckham/gx35ecu/internal/ignition"
	"github.com/kbuckham/gx35ecu/internal/kinematics"
	"github.com/kbuckham/gx35ecu/internal/modestate"
	"github.com/kbuckham/gx35ecu/internal/safety"
	"github.com/kbuckham/gx35ecu/internal/scheduler"
)

// Engine wires C1-C8 together. Exactly one goroutine is expected to call
// the ISR-equivalent Handle* methods at a time (spec.md §5's "no nested
// interrupts" rule) — that discipline is the driving clock's
// responsibility, not Engine's; Engine only guarantees each state block
// serializes its own writer internally via its own mutex.
type Engine struct {
	Config *config.EngineConfig

	Kinematics *kinematics.State
	Scheduler  *scheduler.Scheduler
	Mode       *modestate.Machine
	Supervisor *safety.SupervisorState

	Spark *ignition.SparkPipeline
	Fuel  *ignition.FuelPipeline

	SparkPin ignition.Pin
	FuelPin  ignition.Pin

	Sensors Sensors
	cache   reading

	// Now returns the current simulated or real time in microseconds.
	// Required — Engine has no clock of its own, since a clock is exactly
	// what distinguishes simclock from bridge.
	Now func() int64

	// OnSample, if set, is called once per SERIAL_OUT transition with the
	// cycle's diagnostic snapshot. internal/telemetry and
	// internal/cantelemetry both hang a consumer off this.
	OnSample func(Sample)
}

// New wires a fresh Engine: kinematics, scheduler, mode machine, and
// supervisor state are all created fresh; timers are attached to the
// ignition pipelines and their fire interrupts wired to Engine's handler
// methods.
func New(cfg *config.EngineConfig, timers scheduler.TimerBank, sparkPin, fuelPin ignition.Pin, sensors Sensors, now func() int64) *Engine {
	e := &Engine{
		Config:     cfg,
		Kinematics: kinematics.New(),
		Scheduler:  scheduler.New(timers, cfg.MinLatchTime),
		Mode:       modestate.New(),
		Supervisor: safety.New(),
		SparkPin:   sparkPin,
		FuelPin:    fuelPin,
		Sensors:    sensors,
		Now:        now,
	}

	e.Spark = &ignition.SparkPipeline{
		Pin:            sparkPin,
		ChargeTimer:    timers.SparkCharge,
		DischargeTimer: timers.SparkDischarge,
		DwellTimeUS:    cfg.DwellTime,
	}
	e.Fuel = &ignition.FuelPipeline{
		Pin:        fuelPin,
		StartTimer: timers.FuelStart,
		StopTimer:  timers.FuelStop,
	}

	timers.SparkCharge.AttachInterrupt(e.HandleSparkChargeFire)
	timers.SparkDischarge.AttachInterrupt(e.HandleSparkDischargeFire)
	timers.FuelStart.AttachInterrupt(e.HandleFuelStartFire)
	timers.FuelStop.AttachInterrupt(e.HandleFuelStopFire)

	return e
}

// HandleTachEdge is the tach-edge ISR: the sole entry point that advances
// kinematic state and unconditionally forces CALIBRATION, preempting
// whatever the main loop was doing.
func (e *Engine) HandleTachEdge(nowUS int64) {
	e.Kinematics.OnTachEdge(nowUS)
	e.Mode.ForceCalibration()
}

// HandleKillswitchEdge is the killswitch ISR: it only latches the level.
// Whether CRANKING/RUNNING may still be entered is decided on the next
// CALIBRATION cycle by Step, not here — pending timer pulses are allowed
// to finish (spec.md §4.8).
func (e *Engine) HandleKillswitchEdge(high bool) {
	e.Supervisor.OnKillswitchEdge(high)
}

// HandleSparkChargeFire is the SPARK_CHARGE timer's fire callback.
func (e *Engine) HandleSparkChargeFire() {
	e.Spark.OnChargeFire()
}

// HandleSparkDischargeFire is the SPARK_DISCHARGE timer's fire callback.
func (e *Engine) HandleSparkDischargeFire() {
	e.Spark.OnDischargeFire()
}

// HandleFuelStartFire is the FUEL_START timer's fire callback.
func (e *Engine) HandleFuelStartFire() {
	e.Fuel.OnStartFire(e.Scheduler.State.FuelDuration())
}

// HandleFuelStopFire is the FUEL_STOP timer's fire callback.
func (e *Engine) HandleFuelStopFire() {
	e.Fuel.OnStopFire()
}

// Step runs one main-loop iteration: it refreshes sensors while idle, and
// runs a full CALIBRATION cycle (classify regime, compute fueling/spark,
// arm timers, maybe emit a diagnostic sample) whenever the tach ISR has
// forced CALIBRATION since the last Step.
func (e *Engine) Step() {
	switch e.Mode.Current() {
	case modestate.ReadSensors:
		e.refreshSensors()
	case modestate.Calibration:
		e.runCalibrationCycle()
	}
}

func (e *Engine) runCalibrationCycle() {
	omega := e.Kinematics.AngularSpeed()
	rpm := RPMFromOmega(omega)
	mapKPa, iatK, _, _ := e.cache.get()

	revLimit := e.Supervisor.EvaluateRevLimit(rpm, e.Config.UpperRevLimit, e.Config.LowerRevLimit)
	next := e.Mode.DecideCalibration(e.Supervisor.Killswitch(), revLimit, rpm, modestate.Thresholds{
		EngageSpeed:   e.Config.EngageSpeed,
		CrankingSpeed: e.Config.CrankingSpeed,
		UpperRevLimit: e.Config.UpperRevLimit,
		LowerRevLimit: e.Config.LowerRevLimit,
	})

	var ve, sa, pulseWidthUS float64

	switch next {
	case modestate.Cranking:
		ve = e.Config.CrankVolEff
		pulseWidthUS = e.computeFuelPulse(fueling.AirVolumeCranking(e.Config.CrankVolEff, e.Config.Displacement), mapKPa, iatK)
		sparkDischarge := scheduler.TDC - e.Config.CrankSparkAdv
		e.arm(omega, pulseWidthUS, sparkDischarge)
	case modestate.Running:
		ve = e.Config.VE.Lookup(rpm, mapKPa)
		sa = e.Config.SA.Lookup(rpm, mapKPa)
		pulseWidthUS = e.computeFuelPulse(fueling.AirVolumeRunning(ve, e.Config.Displacement), mapKPa, iatK)
		sparkDischarge := scheduler.TDC - sa
		e.arm(omega, pulseWidthUS, sparkDischarge)
	case modestate.RevLimiter:
		slog.Debug("rev limiter active, no events armed", "rpm", rpm)
	case modestate.ReadSensors:
		// below engagement speed or killswitch open: nothing to arm
	}

	if e.Kinematics.SerialPrintDue() {
		e.Mode.EnterSerialOut()
		e.emitSample(rpm, mapKPa, iatK, ve, sa, pulseWidthUS, revLimit)
	}
	e.Mode.ReturnFromCycle()
}

func (e *Engine) computeFuelPulse(airVolumeM3, mapKPa, iatK float64) float64 {
	return fueling.PulseWidth(airVolumeM3, mapKPa, iatK, fueling.Params{
		AirFuelRatio: e.Config.AirFuelRatio,
		MassFlowRate: e.Config.MassFlowRate,
		Displacement: e.Config.Displacement,
		CrankVolEff:  e.Config.CrankVolEff,
	})
}

func (e *Engine) arm(omega, pulseWidthUS, sparkDischargeAngle float64) {
	fuelCycle := e.Kinematics.FuelCycle()
	thetaNow := func() float64 {
		return e.Kinematics.CurrentAngle(e.Now(), e.Config.CalibAngle)
	}
	e.Scheduler.ArmCycle(thetaNow, omega, fuelCycle, pulseWidthUS, sparkDischargeAngle, e.Config.DwellTime, e.Config.FuelEndAngle)
}

func (e *Engine) emitSample(rpm, mapKPa, iatK, ve, sa, pulseWidthUS float64, revLimit bool) {
	sample := Sample{
		TimeUS:           e.Now(),
		RPM:              rpm,
		MAP:              mapKPa,
		IAT:              iatK,
		VE:               ve,
		SA:               sa,
		FuelPulseWidthUS: pulseWidthUS,
		CrankAngle:       e.Kinematics.CurrentAngle(e.Now(), e.Config.CalibAngle),
		Mode:             e.Mode.Current(),
		RevLimit:         revLimit,
		Killswitch:       e.Supervisor.Killswitch(),
	}
	if e.OnSample != nil {
		e.OnSample(sample)
	}
}

// Run drives Step in a cooperative loop until ctx is canceled — the Go
// stand-in for the firmware's main `for(;;)`. Interrupts (tach, killswitch,
// timer fires) arrive from a separate goroutine (simclock or bridge)
// calling the Handle* methods directly; Run never blocks, matching
// spec.md §5's "main loop never blocks" rule.
func (e *Engine) Run(ctx context.Context) {
	ignition.DriveLow(e.SparkPin, e.FuelPin)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			e.Step()
		}
	}
}
