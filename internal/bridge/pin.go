package bridge

import "fmt"

// Pin drives one of the rig's two output pins (spark or fuel) over the
// serial link with a single-byte command per edge. Satisfies
// ignition.Pin structurally.
type Pin struct {
	conn Transport
	name byte // 'S' (spark) or 'F' (fuel)
}

// NewSparkPin returns a Pin wired to the rig's spark output.
func NewSparkPin(conn Transport) *Pin { return &Pin{conn: conn, name: 'S'} }

// NewFuelPin returns a Pin wired to the rig's fuel injector output.
func NewFuelPin(conn Transport) *Pin { return &Pin{conn: conn, name: 'F'} }

// SetHigh drives the pin high.
func (p *Pin) SetHigh() { p.send(1) }

// SetLow drives the pin low.
func (p *Pin) SetLow() { p.send(0) }

func (p *Pin) send(level byte) {
	cmd := []byte{p.name, level, '\n'}
	if _, err := p.conn.Send(cmd); err != nil {
		// Pin writes happen from a timer-fire callback with no error
		// return path (ignition.Pin has none); surface failures the only
		// way available to a fire-and-forget hardware write.
		logBridgeErr(fmt.Errorf("pin %c write: %w", p.name, err))
	}
}
