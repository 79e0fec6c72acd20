package cli

import (
	"fmt"

	"github.com/kbuckham/gx35ecu/internal/config"
	"github.com/kbuckham/gx35ecu/internal/table"
	"github.com/spf13/cobra"
)

var tablesWhich string

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Dump the loaded VE/SA tuning tables as a grid",
	Long: `tables prints the RPM/MAP axes and cell values of the configured VE
and SA tables, the same grids the C1 interpolator queries at runtime — a
quick way to sanity-check a tuning file without writing a test harness.`,
	RunE: runTables,
}

func init() {
	tablesCmd.Flags().StringVar(&tablesWhich, "table", "both", "Which table to print: ve, sa, or both")
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch tablesWhich {
	case "ve":
		printTable(cmd, "VE", cfg.VE)
	case "sa":
		printTable(cmd, "SA", cfg.SA)
	case "both":
		printTable(cmd, "VE", cfg.VE)
		fmt.Fprintln(cmd.OutOrStdout())
		printTable(cmd, "SA", cfg.SA)
	default:
		return fmt.Errorf("unknown --table value %q (want ve, sa, or both)", tablesWhich)
	}
	return nil
}

// printTable renders t as a MAP-by-RPM grid, MAP rows descending so the
// printed table reads high-load-at-top like a dyno sheet.
func printTable(cmd *cobra.Command, name string, t *table.Table) {
	out := cmd.OutOrStdout()
	xs := t.Xs()
	ys := t.Ys()

	fmt.Fprintf(out, "%s table (rows=MAP kPa, cols=RPM)\n", name)
	fmt.Fprint(out, "MAP\\RPM")
	for _, x := range xs {
		fmt.Fprintf(out, "\t%.0f", x)
	}
	fmt.Fprintln(out)

	for j := len(ys) - 1; j >= 0; j-- {
		fmt.Fprintf(out, "%.0f", ys[j])
		for _, x := range xs {
			fmt.Fprintf(out, "\t%.3f", t.Lookup(x, ys[j]))
		}
		fmt.Fprintln(out)
	}
}
