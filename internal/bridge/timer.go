package bridge

import (
	"sync"
	"time"
)

// Timer schedules an ignition/fueling event against the real wall clock
// via time.AfterFunc — the bridge's stand-in for the firmware's hardware
// timer peripherals, since the host process is the only clock a serial
// rig has. Satisfies both scheduler.Timer and ignition.Timer.
type Timer struct {
	mu    sync.Mutex
	timer *time.Timer
	cb    func()
}

// NewTimer returns an unarmed Timer.
func NewTimer() *Timer {
	return &Timer{}
}

// Start arms the timer to fire us microseconds from now, replacing any
// previously scheduled fire.
func (t *Timer) Start(us float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	cb := t.cb
	t.timer = time.AfterFunc(time.Duration(us)*time.Microsecond, func() {
		if cb != nil {
			cb()
		}
	})
}

// Stop disarms the timer if it hasn't fired yet.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}

// AttachInterrupt registers the fire callback.
func (t *Timer) AttachInterrupt(cb func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cb = cb
}
