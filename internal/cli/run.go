package cli

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/kbuckham/gx35ecu/internal/cantelemetry"
	"github.com/kbuckham/gx35ecu/internal/config"
	"github.com/kbuckham/gx35ecu/internal/engine"
	"github.com/kbuckham/gx35ecu/internal/scheduler"
	"github.com/kbuckham/gx35ecu/internal/simclock"
	"github.com/kbuckham/gx35ecu/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	runRPMStart float64
	runRPMEnd   float64
	runSteps    int
	runMAP      float64
	runIAT      float64
	runKillOpen bool
	runCSVPath  string
	runGraph    bool
	runCAN      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate the ECU scheduler across an RPM ramp with no hardware attached",
	Long: `run drives the engine entirely through internal/simclock: a virtual
crankshaft delivers tach edges across the requested RPM ramp, a virtual
clock resolves every armed timer in order, and the resulting diagnostic
samples are printed (and optionally plotted and logged to CSV).`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Float64Var(&runRPMStart, "rpm-start", 300, "Starting RPM of the ramp")
	runCmd.Flags().Float64Var(&runRPMEnd, "rpm-end", 6200, "Ending RPM of the ramp")
	runCmd.Flags().IntVar(&runSteps, "steps", 200, "Number of intervals across the ramp (steps+1 tach edges)")
	runCmd.Flags().Float64Var(&runMAP, "map", 60, "Simulated MAP sensor reading, kPa")
	runCmd.Flags().Float64Var(&runIAT, "iat", 298, "Simulated IAT sensor reading, Kelvin")
	runCmd.Flags().BoolVar(&runKillOpen, "killswitch-open", false, "Start with the killswitch open (engine inhibited)")
	runCmd.Flags().StringVar(&runCSVPath, "csv", "", "Write every sample to this CSV file")
	runCmd.Flags().BoolVar(&runGraph, "graph", true, "Print an asciigraph RPM trace at the end")
	runCmd.Flags().StringVar(&runCAN, "can", "", "If set, re-publish every sample as CAN frames on this SocketCAN interface (e.g. vcan0)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	clock := simclock.New()
	bank := scheduler.TimerBank{
		FuelStart:      clock.NewTimer(),
		FuelStop:       clock.NewTimer(),
		SparkCharge:    clock.NewTimer(),
		SparkDischarge: clock.NewTimer(),
	}
	sparkPin := simclock.NewTrackedPin(clock)
	fuelPin := simclock.NewTrackedPin(clock)

	e := engine.New(cfg, bank, sparkPin, fuelPin, engine.Sensors{}, clock.Now)
	e.SetSensors(runMAP, runIAT, 0, 0)
	e.HandleKillswitchEdge(!runKillOpen)

	rec := telemetry.New()
	e.OnSample = rec.Record

	var csvWriter *telemetry.CSVWriter
	if runCSVPath != "" {
		csvWriter, err = telemetry.NewCSVWriter(runCSVPath)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer csvWriter.Close()
		rec.OnSample(rec.WrapErr(csvWriter.WriteSample))
		rec.OnError(telemetry.LogDisconnect)
	}

	if runCAN != "" {
		bcast, err := cantelemetry.Dial(cmd.Context(), runCAN)
		if err != nil {
			return fmt.Errorf("dial CAN interface %s: %w", runCAN, err)
		}
		defer bcast.Close()
		rec.OnSample(rec.WrapErr(func(s engine.Sample) error {
			return bcast.Broadcast(cmd.Context(), s)
		}))
		rec.OnError(telemetry.LogDisconnect)
	}

	var rpmTrace []float64
	rec.OnSample(func(s engine.Sample) {
		fmt.Println(telemetry.DiagnosticLine(s))
		rpmTrace = append(rpmTrace, s.RPM)
	})

	sim := simclock.NewCrankSim(clock, e)
	for i := 0; i <= runSteps; i++ {
		frac := float64(i) / float64(runSteps)
		rpm := runRPMStart + frac*(runRPMEnd-runRPMStart)
		sim.Spin(rpm, 1)
		e.Step()
	}

	stats := rec.Stats()
	fmt.Printf("\n%d samples recorded\n", stats.SampleCount)

	if runGraph && len(rpmTrace) > 1 {
		fmt.Println(asciigraph.Plot(rpmTrace, asciigraph.Height(12), asciigraph.Caption("RPM over simulated run")))
	}
	return nil
}
