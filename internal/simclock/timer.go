package simclock

// Timer satisfies both scheduler.Timer and ignition.Timer (the latter is
// structurally narrower — Go doesn't care that this type has an extra
// method). Start/Stop/AttachInterrupt mirror the real hardware timer's
// API exactly; the callback only ever fires from within Clock.Advance,
// never concurrently with the caller.
type Timer struct {
	clock  *Clock
	fireAt int64
	armed  bool
	cb     func()
}

// Start arms the timer to fire us microseconds from the clock's current
// time. A second Start before the first fires simply reschedules it —
// the real hardware timers work the same way, and spec.md's ISR handlers
// never rely on a timer firing twice from one Start.
func (t *Timer) Start(us float64) {
	t.fireAt = t.clock.now + int64(us)
	t.armed = true
	t.clock.schedule(t)
}

// Stop disarms the timer. A Stop after it has already fired (or before
// it was ever started) is a harmless no-op.
func (t *Timer) Stop() {
	t.armed = false
}

// AttachInterrupt registers the callback Clock.Advance invokes on fire.
func (t *Timer) AttachInterrupt(cb func()) {
	t.cb = cb
}
