// Package modestate implements the top-level mode state machine:
// READ_SENSORS -> CALIBRATION -> {CRANKING, RUNNING, REV_LIMITER} ->
// SERIAL_OUT. Every transition except the forced entry into CALIBRATION
// is driven by the main loop; CALIBRATION entry is forced unconditionally
// by the tach ISR, overriding whatever the main loop was doing (spec.md
// §4.7, §9) — that is why ForceCalibration takes no lock shared with the
// rest of the machine's methods beyond the single mutex below.
package modestate

import "sync"

// Mode is one state of the machine.
type Mode int

const (
	ReadSensors Mode = iota
	Calibration
	Cranking
	Running
	RevLimiter
	SerialOut
)

func (m Mode) String() string {
	switch m {
	case ReadSensors:
		return "READ_SENSORS"
	case Calibration:
		return "CALIBRATION"
	case Cranking:
		return "CRANKING"
	case Running:
		return "RUNNING"
	case RevLimiter:
		return "REV_LIMITER"
	case SerialOut:
		return "SERIAL_OUT"
	default:
		return "UNKNOWN"
	}
}

// Thresholds bundles the RPM boundaries that drive the CALIBRATION
// decision table, loaded from internal/config at boot.
type Thresholds struct {
	EngageSpeed   float64
	CrankingSpeed float64
	UpperRevLimit float64
	LowerRevLimit float64
}

// Machine holds the single authoritative current state. ForceCalibration
// is the only method called from outside the main loop (from the tach
// ISR); every other method is called only from the main loop goroutine.
type Machine struct {
	mu    sync.Mutex
	state Mode
}

// New returns a Machine starting in READ_SENSORS.
func New() *Machine {
	return &Machine{state: ReadSensors}
}

// Current returns the machine's current state.
func (m *Machine) Current() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ForceCalibration unconditionally transitions into CALIBRATION,
// regardless of what state the main loop last left the machine in. Called
// only by the tach-edge ISR handler.
func (m *Machine) ForceCalibration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Calibration
}

// set moves the machine into a new state from the main loop.
func (m *Machine) set(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = mode
}

// DecideCalibration runs the CALIBRATION decision table against the
// current killswitch level, rev-limit latch, and filtered RPM, and
// transitions the machine accordingly. It returns the mode it transitioned
// to, so callers can act on it in the same main-loop iteration rather than
// re-reading Current().
//
// Decision order, exactly as spec.md §4.7 states it:
//  1. killswitch == false -> READ_SENSORS, unconditionally.
//  2. revLimit latched -> stay limited until rpm < LowerRevLimit, then
//     clear and go RUNNING.
//  3. Otherwise partition by rpm against EngageSpeed/CrankingSpeed/
//     UpperRevLimit.
func (m *Machine) DecideCalibration(killswitch bool, revLimit bool, rpm float64, th Thresholds) Mode {
	var next Mode

	switch {
	case !killswitch:
		next = ReadSensors
	case revLimit:
		if rpm < th.LowerRevLimit {
			next = Running
		} else {
			next = RevLimiter
		}
	case rpm < th.EngageSpeed:
		next = ReadSensors
	case rpm < th.CrankingSpeed:
		next = Cranking
	case rpm < th.UpperRevLimit:
		next = Running
	default:
		next = RevLimiter
	}

	m.set(next)
	return next
}

// EnterSerialOut transitions into SERIAL_OUT. Callers check the kinematic
// state's print-due flag before calling this.
func (m *Machine) EnterSerialOut() {
	m.set(SerialOut)
}

// ReturnFromCycle transitions CRANKING/RUNNING/SERIAL_OUT back to
// READ_SENSORS once a cycle's work (or a diagnostic print) is done, ready
// for the next tach edge to force CALIBRATION again.
func (m *Machine) ReturnFromCycle() {
	m.set(ReadSensors)
}
