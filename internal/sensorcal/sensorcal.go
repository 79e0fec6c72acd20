// Package sensorcal converts calibrated sensor voltages into the physical
// units the fueling and scheduling math needs (kPa, K, fraction). Every
// function here is a pure, saturating conversion — ported in spirit from
// the teacher's fAIRT/fCOOL/fBATT-style `func(raw) value` conversions, but
// operating on the GX35's channels (MAP, TPS, ECT, IAT, O2) instead of the
// 1G DSM's.
package sensorcal

import "math"

const (
	// VPerBit is the ADC volts-per-count step for a 5V-referenced 12-bit
	// converter (the out-of-scope SPI-ADC transport already does the
	// count->volts step; these constants document that assumption for
	// anything still working in raw counts).
	VPerBit = 5.0 / 4096.0

	mapMinV   = 0.5
	mapMaxV   = 4.9
	mapMinKPa = 20.0
	mapMaxKPa = 103.0
	mapSlope  = 18.86
	mapOffset = 10.57

	kelvinOffset = 273.0

	o2Slope  = 3.008
	o2Offset = 7.35
)

// ADC is the sampling contract Engine.refreshSensors polls against: read
// one channel, get back a raw count (or an error if the transport — SPI,
// serial-bridge request/response, whatever — failed). internal/bridge
// implements this over a real rig; tests and `ecufw run` bypass it
// entirely via Engine.SetSensors.
type ADC interface {
	ReadChannel(channel int) (uint16, error)
}

// CountsToVolts converts a raw 12-bit ADC count to volts, given a 5V
// reference (the ADC contract in spec.md §6 is agnostic to reference
// voltage; GX35 ECU boards use 5V logic throughout).
func CountsToVolts(count uint16) float64 {
	return float64(count) * VPerBit
}

// MAP converts manifold absolute pressure sensor voltage to kPa, clamping
// to the documented endpoints outside the linear region.
func MAP(volts float64) float64 {
	switch {
	case volts < mapMinV:
		return mapMinKPa
	case volts > mapMaxV:
		return mapMaxKPa
	default:
		return volts*mapSlope + mapOffset
	}
}

// TPSCal holds the two calibration endpoints (closed throttle / wide open
// throttle) of a throttle position sensor. Min is the voltage at closed
// throttle, Max the voltage at wide open throttle; Min < Max is
// assumed (inverted sensors are a board-config concern, not a core one).
type TPSCal struct {
	Min, Max float64
}

// TPS converts throttle position sensor voltage to a fraction in [0,1],
// clamped at both ends.
func (c TPSCal) TPS(volts float64) float64 {
	switch {
	case volts < c.Min:
		return 0.0
	case volts > c.Max:
		return 1.0
	default:
		return (volts - c.Min) / (c.Max - c.Min)
	}
}

// ThermistorCal describes a two-point thermistor linearization: it maps a
// divider voltage to a resistance (via the divider equation) and then
// interpolates temperature linearly in log-resistance between two
// calibrated (resistance, temperature) endpoints. This stands in for the
// out-of-scope Steinhart-style calibration curve named in spec.md §4.2 — the core only
// needs the curve's *output*, but a concrete monotonic implementation is
// supplied here so the engine can be exercised end-to-end without a real
// thermistor attached.
type ThermistorCal struct {
	VDiv    float64 // divider supply voltage
	RSeries float64 // series resistor, ohms

	R1, T1C float64 // first calibration point: resistance (ohms), temp (°C)
	R2, T2C float64 // second calibration point
}

// resistance computes thermistor resistance from the divider output
// voltage (thermistor to ground, series resistor to VDiv).
func (c ThermistorCal) resistance(volts float64) float64 {
	if volts <= 0 {
		volts = 1e-6
	}
	if volts >= c.VDiv {
		volts = c.VDiv - 1e-6
	}
	return c.RSeries * volts / (c.VDiv - volts)
}

// TemperatureK converts a thermistor divider voltage to Kelvin via linear
// interpolation in log-resistance space between the two calibration
// points, clamped beyond either endpoint — a single-segment stand-in for
// full Steinhart-Hart. With the thermistor on the low side of the divider,
// a higher voltage means a higher resistance and so a lower temperature.
func (c ThermistorCal) TemperatureK(volts float64) float64 {
	r := c.resistance(volts)

	lr1, lr2 := logf(c.R1), logf(c.R2)
	lr := logf(r)

	var frac float64
	if lr2 != lr1 {
		frac = (lr - lr1) / (lr2 - lr1)
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	tempC := c.T1C + frac*(c.T2C-c.T1C)
	return tempC + kelvinOffset
}

// O2 converts a wideband/narrowband oxygen sensor voltage to AFR-by-mass
// (kg/kg). Present only "when wired" per spec.md §4.2 — the fueling model
// never requires it; it exists for diagnostic telemetry.
func O2(volts float64) float64 {
	return volts*o2Slope + o2Offset
}

func logf(x float64) float64 {
	if x <= 0 {
		x = 1e-9
	}
	return math.Log(x)
}
