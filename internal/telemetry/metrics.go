package telemetry

import (
	"net/http"

	"github.com/kbuckham/gx35ecu/internal/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the engine's running state as Prometheus gauges/counters.
// Hang Metrics.Observe off Recorder.OnSample to keep them current; Handler
// serves them at /metrics for a scrape target, matching spec.md's
// explicit non-goal of building a full dashboard while still giving an
// operator something to point Grafana at.
type Metrics struct {
	rpm           prometheus.Gauge
	mapKPa        prometheus.Gauge
	iatK          prometheus.Gauge
	fuelPulseUS   prometheus.Gauge
	dwellUS       prometheus.Gauge
	crankAngle    prometheus.Gauge
	revLimitGauge prometheus.Gauge
	killswitch    prometheus.Gauge
	samplesTotal  prometheus.Counter
	modeTotal     *prometheus.CounterVec
}

// NewMetrics registers the gx35ecu metric set against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rpm:         factory.NewGauge(prometheus.GaugeOpts{Namespace: "gx35ecu", Name: "rpm", Help: "Filtered engine speed in RPM."}),
		mapKPa:      factory.NewGauge(prometheus.GaugeOpts{Namespace: "gx35ecu", Name: "map_kpa", Help: "Manifold absolute pressure in kPa."}),
		iatK:        factory.NewGauge(prometheus.GaugeOpts{Namespace: "gx35ecu", Name: "iat_kelvin", Help: "Intake air temperature in Kelvin."}),
		fuelPulseUS: factory.NewGauge(prometheus.GaugeOpts{Namespace: "gx35ecu", Name: "fuel_pulse_width_us", Help: "Last computed injector pulse width in microseconds."}),
		dwellUS:     factory.NewGauge(prometheus.GaugeOpts{Namespace: "gx35ecu", Name: "dwell_us", Help: "Configured spark dwell time in microseconds."}),
		crankAngle:  factory.NewGauge(prometheus.GaugeOpts{Namespace: "gx35ecu", Name: "crank_angle_deg", Help: "Estimated crank angle at last sample, in degrees."}),
		revLimitGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gx35ecu", Name: "rev_limit_active", Help: "1 if the rev-limit latch is currently set, else 0.",
		}),
		killswitch: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gx35ecu", Name: "killswitch_closed", Help: "1 if the killswitch circuit is closed (engine may run), else 0.",
		}),
		samplesTotal: factory.NewCounter(prometheus.CounterOpts{Namespace: "gx35ecu", Name: "samples_total", Help: "Total diagnostic samples recorded."}),
		modeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gx35ecu", Name: "mode_samples_total", Help: "Samples recorded per mode state.",
		}, []string{"mode"}),
	}
}

// Observe updates every gauge from sample and increments the sample
// counters. Safe to register directly as a Recorder.SampleCallback.
func (m *Metrics) Observe(sample engine.Sample) {
	m.rpm.Set(sample.RPM)
	m.mapKPa.Set(sample.MAP)
	m.iatK.Set(sample.IAT)
	m.fuelPulseUS.Set(sample.FuelPulseWidthUS)
	m.crankAngle.Set(sample.CrankAngle)
	m.samplesTotal.Inc()
	m.modeTotal.WithLabelValues(sample.Mode.String()).Inc()

	if sample.RevLimit {
		m.revLimitGauge.Set(1)
	} else {
		m.revLimitGauge.Set(0)
	}
	if sample.Killswitch {
		m.killswitch.Set(1)
	} else {
		m.killswitch.Set(0)
	}
}

// SetDwell records the (effectively static) configured dwell time, read
// once at startup rather than per sample.
func (m *Metrics) SetDwell(us float64) {
	m.dwellUS.Set(us)
}

// Handler returns an http.Handler serving the registered metrics in the
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
