package version

const (
	Version     = "0.1.0"
	Name        = "gx35ecu"
	Description = "Real-time scheduler firmware for a single-cylinder Honda GX35-class engine ECU: table-driven fueling and spark timing, rev-limit and killswitch safety, serial/CAN telemetry"
	Copyright   = "© 2026 Kevin Buckham"
	Developers  = "Kevin Buckham"
	License     = "GPL-2.0-or-later"
	Attribution = "Scheduling model and table conventions carried over from the author's 1G DSM MMCD datalogger project"
	URL         = "https://github.com/kbuckham/gx35ecu"
)

// Injected at build time via -ldflags
var (
	GitHash   = "dev"
	BuildTime = "unknown"
)

// FullVersion returns version string with git hash and build time.
func FullVersion() string {
	return Version + " (" + GitHash + ") built " + BuildTime
}
