package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/kbuckham/gx35ecu/internal/bridge"
	"github.com/kbuckham/gx35ecu/internal/cantelemetry"
	"github.com/kbuckham/gx35ecu/internal/config"
	"github.com/kbuckham/gx35ecu/internal/engine"
	"github.com/kbuckham/gx35ecu/internal/scheduler"
	"github.com/kbuckham/gx35ecu/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	benchPort       string
	benchBaud       int
	benchMAPChannel int
	benchIATChannel int
	benchTPSChannel int
	benchO2Channel  int
	benchCSVPath    string
	benchMetrics    string
	benchCAN        string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the ECU scheduler against a real serial-attached rig",
	Long: `bench runs the engine against internal/bridge instead of
internal/simclock: a real serial connection supplies ADC samples and
carries pin commands to the rig, timers run on the host's wall clock, and
the main loop steps the engine every millisecond until interrupted. Tach
and killswitch edges are not read from the rig.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().StringVar(&benchPort, "port", "", "Serial port of the bench rig (e.g. /dev/ttyUSB0)")
	benchCmd.Flags().IntVar(&benchBaud, "baud", bridge.DefaultBaudRate, "Serial baud rate")
	benchCmd.Flags().IntVar(&benchMAPChannel, "map-channel", 0, "ADC channel carrying the MAP sensor")
	benchCmd.Flags().IntVar(&benchIATChannel, "iat-channel", 1, "ADC channel carrying the IAT sensor")
	benchCmd.Flags().IntVar(&benchTPSChannel, "tps-channel", 2, "ADC channel carrying the TPS sensor")
	benchCmd.Flags().IntVar(&benchO2Channel, "o2-channel", 3, "ADC channel carrying the O2 sensor")
	benchCmd.Flags().StringVar(&benchCSVPath, "csv", "", "Write every sample to this CSV file")
	benchCmd.Flags().StringVar(&benchMetrics, "metrics-addr", "", "If set, serve Prometheus metrics at this address (e.g. :9090)")
	benchCmd.Flags().StringVar(&benchCAN, "can", "", "If set, re-publish every sample as CAN frames on this SocketCAN interface (e.g. can0, vcan0)")
	_ = benchCmd.MarkFlagRequired("port")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	conn := bridge.NewConn(benchPort, benchBaud)
	if err := bridge.OpenWithRetry(conn); err != nil {
		return fmt.Errorf("open bench rig: %w", err)
	}
	defer conn.Close()

	bank := scheduler.TimerBank{
		FuelStart:      bridge.NewTimer(),
		FuelStop:       bridge.NewTimer(),
		SparkCharge:    bridge.NewTimer(),
		SparkDischarge: bridge.NewTimer(),
	}
	sensors := engine.Sensors{
		ADC:        bridge.NewADC(conn),
		MAPChannel: benchMAPChannel,
		IATChannel: benchIATChannel,
		TPSChannel: benchTPSChannel,
		O2Channel:  benchO2Channel,
		TPS:        cfg.TPSCal(),
		IAT:        cfg.IATCal(),
	}

	e := engine.New(cfg, bank, bridge.NewSparkPin(conn), bridge.NewFuelPin(conn), sensors, nowMicros)

	rec := telemetry.New()
	e.OnSample = rec.Record
	rec.OnSample(func(s engine.Sample) { fmt.Println(telemetry.DiagnosticLine(s)) })

	if benchCSVPath != "" {
		w, err := telemetry.NewCSVWriter(benchCSVPath)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer w.Close()
		rec.OnSample(rec.WrapErr(w.WriteSample))
		rec.OnError(telemetry.LogDisconnect)
	}

	if benchMetrics != "" {
		metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
		metrics.SetDwell(cfg.DwellTime)
		rec.OnSample(metrics.Observe)
		go serveMetrics(benchMetrics)
	}

	if benchCAN != "" {
		bcast, err := cantelemetry.Dial(cmd.Context(), benchCAN)
		if err != nil {
			return fmt.Errorf("dial CAN interface %s: %w", benchCAN, err)
		}
		defer bcast.Close()
		rec.OnSample(rec.WrapErr(func(s engine.Sample) error {
			return bcast.Broadcast(cmd.Context(), s)
		}))
		rec.OnError(telemetry.LogDisconnect)
	}

	bridge.OnError(telemetry.LogDisconnect)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			fmt.Println("\nbench stopped")
			return nil
		case <-ticker.C:
			e.Step()
		}
	}
}

// nowMicros returns the current wall-clock time as a microsecond
// counter, the real-hardware analogue of simclock's virtual clock.
func nowMicros() int64 {
	return time.Now().UnixMicro()
}

// serveMetrics blocks serving the Prometheus exposition endpoint at addr.
// Run in its own goroutine; a failure here shouldn't take down the bench
// loop, so it's only logged.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", "err", err)
	}
}
