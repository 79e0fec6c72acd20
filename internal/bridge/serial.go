// Package bridge drives a real GX35 ECU rig over a serial link: a
// request/response ADC, two output pins, and four timers, all riding the
// same connection the teacher's protocol package used for the 1G DSM
// datalogger — opened the same way, with the same reconnect posture, just
// carrying a different wire format (single-byte commands instead of the
// MMCD PalmOS protocol).
package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the bridge rig's fixed rate; unlike the DSM
	// datalogger it never varies by model year, so it is not a flag.
	DefaultBaudRate = 115200
	DefaultDataBits = 8

	readTimeout = 200 * time.Millisecond

	// readRetryBudget bounds how long ADC.ReadChannel will keep retrying
	// a single channel read before giving up and reporting the sensor as
	// unavailable for this cycle.
	readRetryBudget = 750 * time.Millisecond
)

// Transport is the byte-level contract Pin and ADC need: send a command,
// receive a response. *Conn satisfies it against the real rig; tests
// substitute an in-memory fake.
type Transport interface {
	Send(data []byte) (int, error)
	Receive(buf []byte) (int, error)
}

// Conn wraps a serial port connection to the ECU rig. It is opened and
// closed explicitly rather than on first use, so a caller can probe
// ListPorts, pick one, and retry Open under backoff (see reconnect.go)
// before handing the Conn to Pin/ADC.
type Conn struct {
	mu       sync.Mutex
	port     serial.Port
	portName string
	baudRate int
}

// NewConn creates a connection (not yet opened) against portName.
func NewConn(portName string, baudRate int) *Conn {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	return &Conn{portName: portName, baudRate: baudRate}
}

// Open opens the serial port (8N1, no flow control) and arms the
// per-read timeout every ADC request/response round trip relies on.
func (c *Conn) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		return nil
	}

	port, err := serial.Open(c.portName, &serial.Mode{
		BaudRate: c.baudRate,
		DataBits: DefaultDataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	})
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", c.portName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("set read timeout: %w", err)
	}

	c.port = port
	slog.Info("bridge serial port opened", "port", c.portName, "baud", c.baudRate)
	return nil
}

// Close closes the port. Safe to call on an already-closed Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	slog.Info("bridge serial port closed", "port", c.portName)
	return err
}

// IsOpen reports whether the port is currently open.
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil
}

// Send writes data to the port.
func (c *Conn) Send(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return 0, fmt.Errorf("bridge: %s not open", c.portName)
	}
	return c.port.Write(data)
}

// Receive reads into buf.
func (c *Conn) Receive(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return 0, fmt.Errorf("bridge: %s not open", c.portName)
	}
	return c.port.Read(buf)
}

// Flush drains stale bytes left over from a prior command's response
// before the next request is sent, so a slow or partial read never
// bleeds into the following channel's reply.
func (c *Conn) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return nil
	}
	return c.port.ResetInputBuffer()
}

// PortName returns the configured port path.
func (c *Conn) PortName() string { return c.portName }

// ListPorts returns available serial ports on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
