package engine

import "github.com/kbuckham/gx35ecu/internal/modestate"

// Sample is one diagnostic snapshot of engine state, emitted once every
// ten tach edges (the SERIAL_OUT trigger) — the Go stand-in for the
// diagnostic serial line spec.md §6 describes, and the unit internal/
// telemetry and internal/cantelemetry both consume.
type Sample struct {
	TimeUS int64

	RPM              float64
	MAP              float64
	IAT              float64
	VE               float64
	SA               float64
	FuelPulseWidthUS float64
	CrankAngle       float64

	Mode       modestate.Mode
	RevLimit   bool
	Killswitch bool
}
