package cli

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/kbuckham/gx35ecu/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	reviewColumn string
	reviewGraph  bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <csv-file>",
	Short: "Review a telemetry CSV captured by run or bench",
	Long: `review reads a CSV log written by "run --csv" or "bench --csv" and
prints summary stats for one column, plus an asciigraph trace of it over
the logged samples.`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewColumn, "column", "RPM", "Numeric column to summarize and plot")
	reviewCmd.Flags().BoolVar(&reviewGraph, "graph", true, "Print an asciigraph trace of the column")
}

func runReview(cmd *cobra.Command, args []string) error {
	log, err := telemetry.ReadCSVLog(args[0])
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d samples, %d columns\n", log.Count, len(log.Columns))

	series, ok := log.Data[reviewColumn]
	if !ok {
		return fmt.Errorf("column %q not found (numeric columns: %v)", reviewColumn, numericColumns(log))
	}
	if len(series) == 0 {
		fmt.Fprintf(out, "%s: no samples\n", reviewColumn)
		return nil
	}

	min, max, sum := series[0], series[0], 0.0
	for _, v := range series {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	fmt.Fprintf(out, "%s: min=%.2f max=%.2f mean=%.2f\n", reviewColumn, min, max, sum/float64(len(series)))

	if reviewGraph && len(series) > 1 {
		fmt.Fprintln(out, asciigraph.Plot(series, asciigraph.Height(12), asciigraph.Caption(reviewColumn+" over logged run")))
	}
	return nil
}

func numericColumns(log *telemetry.CSVLog) []string {
	cols := make([]string, 0, len(log.Data))
	for name := range log.Data {
		cols = append(cols, name)
	}
	return cols
}
