package telemetry

import (
	"fmt"

	"github.com/kbuckham/gx35ecu/internal/engine"
)

// DiagnosticLine renders a sample as the one-line serial diagnostic
// output emitted at SERIAL_OUT, spec.md §4.7's human-readable tap on the
// firmware's state. Compact by design — this is a println-over-UART
// format, not a structured log record.
func DiagnosticLine(s engine.Sample) string {
	killswitch := "OPEN"
	if s.Killswitch {
		killswitch = "CLOSED"
	}
	rev := ""
	if s.RevLimit {
		rev = " REVLIMIT"
	}
	return fmt.Sprintf(
		"t=%dus mode=%s rpm=%.0f map=%.1fkPa iat=%.1fK ve=%.3f sa=%.1f fuel=%.1fus angle=%.1f killswitch=%s%s",
		s.TimeUS, s.Mode, s.RPM, s.MAP, s.IAT, s.VE, s.SA, s.FuelPulseWidthUS, s.CrankAngle, killswitch, rev,
	)
}
