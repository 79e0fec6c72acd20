package bridge

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
)

// ADC requests a channel sample over the serial link and parses the
// 2-byte big-endian response. Satisfies sensorcal.ADC.
type ADC struct {
	conn Transport
}

// NewADC returns an ADC reading over conn.
func NewADC(conn Transport) *ADC {
	return &ADC{conn: conn}
}

// ReadChannel requests channel and returns its raw 12-bit count,
// retrying the request/response exchange with exponential backoff —
// a dropped or corrupted reply is common enough on a serial rig that a
// single-shot read would make every flaky byte a READ_SENSORS failure.
func (a *ADC) ReadChannel(channel int) (uint16, error) {
	var count uint16

	op := func() error {
		if _, err := a.conn.Send([]byte{'A', byte(channel), '\n'}); err != nil {
			return fmt.Errorf("request channel %d: %w", channel, err)
		}
		buf := make([]byte, 2)
		n, err := a.conn.Receive(buf)
		if err != nil {
			return fmt.Errorf("read channel %d response: %w", channel, err)
		}
		if n != 2 {
			return fmt.Errorf("short read for channel %d: got %d bytes", channel, n)
		}
		count = binary.BigEndian.Uint16(buf)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxElapsedTime = readRetryBudget
	if err := backoff.Retry(op, policy); err != nil {
		return 0, err
	}
	return count, nil
}
