// Package cantelemetry re-publishes engine samples as CAN frames over
// SocketCAN, grounded on the same go.einride.tech/can dial/transmit
// pattern the pack's CAN-bus dashboard driver uses — broadcast-only here,
// since an ECU publishing its own state has no UDS request/response
// dialogue to conduct.
package cantelemetry

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kbuckham/gx35ecu/internal/engine"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// Frame IDs the broadcaster uses, one per logical group of fields so a
// bus listener can filter cheaply without decoding everything.
const (
	FrameRPM    uint32 = 0x500 // uint16 RPM
	FrameMAPIAT uint32 = 0x501 // uint16 MAP centi-kPa, uint16 IAT deci-Kelvin
	FrameFuel   uint32 = 0x502 // uint16 fuel pulse width us, int16 SA centidegrees
	FrameAngle  uint32 = 0x503 // uint16 crank angle centidegrees
	FrameStatus uint32 = 0x504 // 1 byte: bit0 killswitch, bit1 revlimit, bits2-4 mode
)

// Broadcaster owns a SocketCAN transmitter and turns one engine.Sample
// into a short burst of frames.
type Broadcaster struct {
	conn io.ReadWriteCloser
	tx   *socketcan.Transmitter
}

// Dial opens iface (e.g. "can0", or "vcan0" on a bench without real CAN
// hardware) and returns a ready Broadcaster.
func Dial(ctx context.Context, iface string) (*Broadcaster, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("dial socketcan %s: %w", iface, err)
	}
	return &Broadcaster{conn: conn, tx: socketcan.NewTransmitter(conn)}, nil
}

// Close releases the underlying CAN socket.
func (b *Broadcaster) Close() error {
	return b.conn.Close()
}

// Broadcast transmits sample as a short burst of fixed-ID frames. To hang
// it off Recorder.OnSample, wrap it in a closure that supplies ctx and
// pass that closure to Recorder.WrapErr.
func (b *Broadcaster) Broadcast(ctx context.Context, sample engine.Sample) error {
	frames := []can.Frame{
		rpmFrame(sample),
		mapIATFrame(sample),
		fuelFrame(sample),
		angleFrame(sample),
		statusFrame(sample),
	}
	for _, f := range frames {
		if err := b.tx.TransmitFrame(ctx, f); err != nil {
			return fmt.Errorf("transmit frame 0x%03X: %w", f.ID, err)
		}
	}
	return nil
}

func rpmFrame(s engine.Sample) can.Frame {
	var data [8]byte
	binary.BigEndian.PutUint16(data[0:2], uint16(clampU16(s.RPM)))
	return can.Frame{ID: FrameRPM, Length: 2, Data: data}
}

func mapIATFrame(s engine.Sample) can.Frame {
	var data [8]byte
	binary.BigEndian.PutUint16(data[0:2], uint16(clampU16(s.MAP*100)))
	binary.BigEndian.PutUint16(data[2:4], uint16(clampU16(s.IAT*10)))
	return can.Frame{ID: FrameMAPIAT, Length: 4, Data: data}
}

func fuelFrame(s engine.Sample) can.Frame {
	var data [8]byte
	binary.BigEndian.PutUint16(data[0:2], uint16(clampU16(s.FuelPulseWidthUS)))
	binary.BigEndian.PutUint16(data[2:4], uint16(int16(s.SA*100)))
	return can.Frame{ID: FrameFuel, Length: 4, Data: data}
}

func angleFrame(s engine.Sample) can.Frame {
	var data [8]byte
	binary.BigEndian.PutUint16(data[0:2], uint16(clampU16(s.CrankAngle*100)))
	return can.Frame{ID: FrameAngle, Length: 2, Data: data}
}

func statusFrame(s engine.Sample) can.Frame {
	var data [8]byte
	var b byte
	if s.Killswitch {
		b |= 1 << 0
	}
	if s.RevLimit {
		b |= 1 << 1
	}
	b |= byte(s.Mode) << 2
	data[0] = b
	return can.Frame{ID: FrameStatus, Length: 1, Data: data}
}

// clampU16 saturates a float into [0, 65535] before the uint16 cast —
// frame payloads are fixed-width, so an out-of-range value (e.g. a
// negative MAP or RPM reading) must saturate rather than wrap. SA is
// signed and is encoded as int16 instead.
func clampU16(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return v
}
