package engine

import (
	"log/slog"
	"sync"

	"github.com/kbuckham/gx35ecu/internal/sensorcal"
)

// Sensors bundles the ADC channel assignments and calibration curves
// needed to turn raw counts into physical units. A nil ADC is valid — in
// that configuration callers must drive readings directly via
// Engine.SetSensors, which is how `ecufw run` (internal/cli) and this
// package's tests exercise scenarios without wiring a fake ADC.
type Sensors struct {
	ADC sensorcal.ADC

	MAPChannel int
	IATChannel int
	TPSChannel int
	O2Channel  int

	TPS sensorcal.TPSCal
	IAT sensorcal.ThermistorCal
}

// reading is the cached, physical-unit snapshot of the last sensor poll.
// Only the main-loop goroutine (via Engine.refreshSensors/SetSensors)
// writes it; Engine.runCalibrationCycle reads it under the same mutex as
// a matter of hygiene, even though in practice only one goroutine ever
// touches sensor state.
type reading struct {
	mu                    sync.Mutex
	mapKPa, iatK, tps, o2 float64
}

func (r *reading) set(mapKPa, iatK, tps, o2 float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mapKPa, r.iatK, r.tps, r.o2 = mapKPa, iatK, tps, o2
}

func (r *reading) get() (mapKPa, iatK, tps, o2 float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mapKPa, r.iatK, r.tps, r.o2
}

// refreshSensors polls the ADC (when one is configured) and converts each
// channel's raw count to physical units, caching the result. Safe to call
// from READ_SENSORS; a no-op when Sensors.ADC is nil.
func (e *Engine) refreshSensors() {
	if e.Sensors.ADC == nil {
		return
	}

	mapCount, err := e.Sensors.ADC.ReadChannel(e.Sensors.MAPChannel)
	if err != nil {
		slog.Warn("MAP channel read failed", "err", err)
		return
	}
	iatCount, err := e.Sensors.ADC.ReadChannel(e.Sensors.IATChannel)
	if err != nil {
		slog.Warn("IAT channel read failed", "err", err)
		return
	}
	tpsCount, err := e.Sensors.ADC.ReadChannel(e.Sensors.TPSChannel)
	if err != nil {
		slog.Warn("TPS channel read failed", "err", err)
		return
	}
	o2Count, err := e.Sensors.ADC.ReadChannel(e.Sensors.O2Channel)
	if err != nil {
		slog.Warn("O2 channel read failed", "err", err)
		return
	}

	mapKPa := sensorcal.MAP(sensorcal.CountsToVolts(mapCount))
	iatK := e.Sensors.IAT.TemperatureK(sensorcal.CountsToVolts(iatCount))
	tps := e.Sensors.TPS.TPS(sensorcal.CountsToVolts(tpsCount))
	o2 := sensorcal.O2(sensorcal.CountsToVolts(o2Count))

	e.cache.set(mapKPa, iatK, tps, o2)
}

// SetSensors overrides the cached sensor snapshot directly, bypassing the
// ADC entirely. `ecufw run` and the engine tests use this to drive
// deterministic scenarios; `ecufw bench` does not — it always goes through
// the bridge's ADC via refreshSensors.
func (e *Engine) SetSensors(mapKPa, iatK, tps, o2 float64) {
	e.cache.set(mapKPa, iatK, tps, o2)
}
