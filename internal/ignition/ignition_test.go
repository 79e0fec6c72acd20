package ignition

import "testing"

type fakePin struct {
	high bool
}

func (p *fakePin) SetHigh() { p.high = true }
func (p *fakePin) SetLow()  { p.high = false }

type fakeTimer struct {
	started bool
	stopped bool
	lastUS  float64
}

func (t *fakeTimer) Start(us float64) {
	t.started = true
	t.stopped = false
	t.lastUS = us
}

func (t *fakeTimer) Stop() {
	t.stopped = true
}

func TestSparkChargeFireDrivesPinHighAndArmsDischarge(t *testing.T) {
	pin := &fakePin{}
	charge := &fakeTimer{}
	discharge := &fakeTimer{}
	p := &SparkPipeline{Pin: pin, ChargeTimer: charge, DischargeTimer: discharge, DwellTimeUS: 3000}

	p.OnChargeFire()

	if !pin.high {
		t.Errorf("expected spark pin HIGH after charge fire")
	}
	if !charge.stopped {
		t.Errorf("expected charge timer stopped after its own fire")
	}
	if !discharge.started || discharge.lastUS != 3000 {
		t.Errorf("expected discharge timer armed for DwellTimeUS=3000, got started=%v us=%v", discharge.started, discharge.lastUS)
	}
}

func TestSparkDischargeFireDrivesPinLow(t *testing.T) {
	pin := &fakePin{high: true}
	charge := &fakeTimer{}
	discharge := &fakeTimer{}
	p := &SparkPipeline{Pin: pin, ChargeTimer: charge, DischargeTimer: discharge}

	p.OnDischargeFire()

	if pin.high {
		t.Errorf("expected spark pin LOW after discharge fire (spark occurred)")
	}
	if !discharge.stopped {
		t.Errorf("expected discharge timer stopped after its own fire")
	}
}

func TestFuelStartFireDrivesPinHighAndArmsStop(t *testing.T) {
	pin := &fakePin{}
	start := &fakeTimer{}
	stop := &fakeTimer{}
	p := &FuelPipeline{Pin: pin, StartTimer: start, StopTimer: stop}

	p.OnStartFire(1281.4)

	if !pin.high {
		t.Errorf("expected fuel pin HIGH after start fire")
	}
	if !start.stopped {
		t.Errorf("expected start timer stopped after its own fire")
	}
	if !stop.started || stop.lastUS != 1281.4 {
		t.Errorf("expected stop timer armed for the computed duration, got started=%v us=%v", stop.started, stop.lastUS)
	}
}

func TestFuelStopFireDrivesPinLow(t *testing.T) {
	pin := &fakePin{high: true}
	start := &fakeTimer{}
	stop := &fakeTimer{}
	p := &FuelPipeline{Pin: pin, StartTimer: start, StopTimer: stop}

	p.OnStopFire()

	if pin.high {
		t.Errorf("expected fuel pin LOW after stop fire")
	}
	if !stop.stopped {
		t.Errorf("expected stop timer stopped after its own fire")
	}
}

func TestDriveLowForcesBothPinsLow(t *testing.T) {
	spark := &fakePin{high: true}
	fuel := &fakePin{high: true}

	DriveLow(spark, fuel)

	if spark.high || fuel.high {
		t.Errorf("expected both pins LOW, got spark=%v fuel=%v", spark.high, fuel.high)
	}
}
