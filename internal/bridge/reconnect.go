package bridge

import (
	"log/slog"

	"github.com/cenkalti/backoff"
)

// OpenWithRetry opens conn, retrying with exponential backoff until it
// succeeds or the default exponential backoff policy gives up (its
// maximum elapsed time). A rig's USB-serial adapter
// commonly isn't enumerated yet at process start (udev races, a rig
// still powering on) — a single Open attempt would make `ecufw bench`
// flaky for no reason related to the ECU itself.
func OpenWithRetry(conn *Conn) error {
	policy := backoff.NewExponentialBackOff()
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := conn.Open()
		if err != nil {
			slog.Debug("bridge reconnect attempt failed", "attempt", attempt, "err", err)
		}
		return err
	}, policy)
}
