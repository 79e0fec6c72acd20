// Package fueling implements the gas-law air-mass fueling model: given an
// air volume, manifold pressure, and intake air temperature, it computes
// the injector pulse width. Every function is pure and saturating per
// spec.md §4.4 — it never returns an error, and never divides by zero as
// long as IAT > 0 K and MassFlowRate > 0 (both configuration-time
// guarantees, not runtime checks).
package fueling

// GasConstant is R, J/(mol*K).
const GasConstant = 8.314

// MolarMassAir is the molar mass of air, g/mol.
const MolarMassAir = 28.97

// Params bundles the per-engine fueling constants that spec.md §4.4 treats
// as compile-time constants on the original firmware; here they are
// loaded at boot from internal/config so a given engine's injector and
// displacement can be tuned without recompiling.
type Params struct {
	AirFuelRatio   float64 // stoichiometric AFR by mass, e.g. 14.7
	MassFlowRate   float64 // injector nominal flow, g/s
	Displacement   float64 // engine displacement, m^3
	CrankVolEff    float64 // fixed volumetric efficiency used while cranking
}

// AirVolumeRunning returns the air volume ingested per fueling event while
// RUNNING: VE(rpm, MAP) * displacement.
func AirVolumeRunning(ve float64, displacement float64) float64 {
	return ve * displacement
}

// AirVolumeCranking returns the air volume ingested per fueling event
// while CRANKING: a fixed volumetric efficiency times displacement (no
// table lookup — the engine is too slow and irregular for the VE surface
// to be meaningful yet).
func AirVolumeCranking(crankVolEff, displacement float64) float64 {
	return crankVolEff * displacement
}

// PulseWidth computes the injector open time in microseconds from air
// volume (m^3), manifold pressure (kPa), and intake air temperature (K).
//
//  1. moles of air:  n = airVolume * (MAP*1000 Pa) / (R * IAT)
//  2. fuel mass:     m_f = n * MolarMassAir / AirFuelRatio          (grams)
//  3. pulse width:   t = m_f / MassFlowRate                       (seconds,
//     since both are grams and grams/second), scaled to µs
func PulseWidth(airVolumeM3, mapKPa, iatK float64, p Params) float64 {
	pressurePa := mapKPa * 1000.0
	molesAir := airVolumeM3 * pressurePa / (GasConstant * iatK)
	fuelMassG := molesAir * MolarMassAir / p.AirFuelRatio
	seconds := fuelMassG / p.MassFlowRate
	return seconds * 1e6
}
