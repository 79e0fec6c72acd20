package simclock

import "testing"

func TestTimerFiresAtScheduledTime(t *testing.T) {
	c := New()
	tm := c.NewTimer()
	fired := false
	var firedAt int64
	tm.AttachInterrupt(func() {
		fired = true
		firedAt = c.Now()
	})

	tm.Start(500)
	c.Advance(1000)

	if !fired {
		t.Fatalf("expected timer to fire by time 1000")
	}
	if firedAt != 500 {
		t.Errorf("firedAt = %d, want 500", firedAt)
	}
}

func TestStopPreventsFire(t *testing.T) {
	c := New()
	tm := c.NewTimer()
	fired := false
	tm.AttachInterrupt(func() { fired = true })

	tm.Start(500)
	tm.Stop()
	c.Advance(1000)

	if fired {
		t.Errorf("expected stopped timer not to fire")
	}
}

func TestRestartReschedules(t *testing.T) {
	c := New()
	tm := c.NewTimer()
	var firedAt int64
	tm.AttachInterrupt(func() { firedAt = c.Now() })

	tm.Start(100)
	c.Advance(50)
	tm.Start(100) // reschedule before first fire
	c.Advance(1000)

	if firedAt != 150 {
		t.Errorf("firedAt = %d, want 150", firedAt)
	}
}

func TestAdvanceFiresInOrder(t *testing.T) {
	c := New()
	a, b := c.NewTimer(), c.NewTimer()
	var order []string
	a.AttachInterrupt(func() { order = append(order, "a") })
	b.AttachInterrupt(func() { order = append(order, "b") })

	b.Start(200)
	a.Start(100)
	c.Advance(1000)

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("order = %v, want [a b]", order)
	}
}

func TestFireCallbackCanArmAnotherTimer(t *testing.T) {
	c := New()
	chain, final := c.NewTimer(), c.NewTimer()
	var finalFiredAt int64
	final.AttachInterrupt(func() { finalFiredAt = c.Now() })
	chain.AttachInterrupt(func() { final.Start(50) })

	chain.Start(100)
	c.Advance(1000)

	if finalFiredAt != 150 {
		t.Errorf("finalFiredAt = %d, want 150 (100 + 50 chained)", finalFiredAt)
	}
}

func TestAdvanceWithoutPendingTimersStillMovesClock(t *testing.T) {
	c := New()
	c.Advance(12345)
	if c.Now() != 12345 {
		t.Errorf("Now() = %d, want 12345", c.Now())
	}
}

type recordingSource struct {
	edges []int64
}

func (r *recordingSource) HandleTachEdge(now int64) {
	r.edges = append(r.edges, now)
}

func TestSpinDeliversEvenlySpacedEdges(t *testing.T) {
	c := New()
	src := &recordingSource{}
	sim := NewCrankSim(c, src)

	sim.Spin(3000, 5) // 3000 rpm -> 20000us/rev

	if len(src.edges) != 5 {
		t.Fatalf("got %d edges, want 5", len(src.edges))
	}
	for i, e := range src.edges {
		want := int64(20000 * (i + 1))
		if e != want {
			t.Errorf("edge[%d] = %d, want %d", i, e, want)
		}
	}
}

func TestSpinReturnsFinalClockTime(t *testing.T) {
	c := New()
	src := &recordingSource{}
	sim := NewCrankSim(c, src)

	got := sim.Spin(6000, 3) // 6000 rpm -> 10000us/rev
	if got != 30000 {
		t.Errorf("Spin returned %d, want 30000", got)
	}
	if c.Now() != 30000 {
		t.Errorf("clock left at %d, want 30000", c.Now())
	}
}

func TestRampCoversStartAndEndRPM(t *testing.T) {
	c := New()
	src := &recordingSource{}
	sim := NewCrankSim(c, src)

	sim.Ramp(3000, 6000, 10)

	if len(src.edges) != 11 {
		t.Fatalf("got %d edges, want 11 (steps+1)", len(src.edges))
	}
	// edges must be strictly increasing: accelerating crank means each
	// successive period is shorter, but the edge timestamps themselves
	// always advance.
	for i := 1; i < len(src.edges); i++ {
		if src.edges[i] <= src.edges[i-1] {
			t.Errorf("edge[%d]=%d did not advance past edge[%d]=%d", i, src.edges[i], i-1, src.edges[i-1])
		}
	}
}

func TestRampZeroStepsIsNoOp(t *testing.T) {
	c := New()
	src := &recordingSource{}
	sim := NewCrankSim(c, src)

	before := c.Now()
	sim.Ramp(3000, 6000, 0)

	if len(src.edges) != 0 {
		t.Errorf("expected no edges for zero steps, got %d", len(src.edges))
	}
	if c.Now() != before {
		t.Errorf("clock moved on a zero-step ramp")
	}
}

func TestTrackedPinRecordsOnlyChanges(t *testing.T) {
	c := New()
	p := NewTrackedPin(c)

	c.Advance(100)
	p.SetLow() // already low: should not record a duplicate
	c.Advance(200)
	p.SetHigh()
	c.Advance(300)
	p.SetHigh() // already high: should not record a duplicate
	c.Advance(400)
	p.SetLow()

	hist := p.History()
	if len(hist) != 2 {
		t.Fatalf("got %d edges, want 2, history=%v", len(hist), hist)
	}
	if hist[0] != (Edge{TimeUS: 200, High: true}) {
		t.Errorf("hist[0] = %+v, want {200 true}", hist[0])
	}
	if hist[1] != (Edge{TimeUS: 400, High: false}) {
		t.Errorf("hist[1] = %+v, want {400 false}", hist[1])
	}
}

func TestTrackedPinStartsLow(t *testing.T) {
	c := New()
	p := NewTrackedPin(c)
	if p.High() {
		t.Errorf("expected pin to start low")
	}
}
