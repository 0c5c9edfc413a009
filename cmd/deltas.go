package cmd

import (
	"time"

	"github.com/esm-tools/cadence/internal/analyze"
	"github.com/esm-tools/cadence/internal/chart"
	"github.com/esm-tools/cadence/internal/model"
	"github.com/esm-tools/cadence/internal/pipeline"
	"github.com/esm-tools/cadence/internal/render"
	"github.com/spf13/cobra"
)

var (
	deltasChart   bool
	deltasMaxBars int
	deltasWidth   int
)

var deltasCmd = &cobra.Command{
	Use:   "deltas [SERIES]",
	Short: "Inspect the spacing of a series' time axis",
	Long: `Deltas summarizes the consecutive time steps of a series: count,
min/median/max spacing in days, spread, monotonicity, and any gaps wider
than 1.5x the median step.

With --chart, each step renders as a horizontal bar labeled with the
timestamp that closes it, so calendar artifacts (short Februaries,
missing months) are visible at a glance.`,
	Example: `  cadence deltas tas_mon
  cadence deltas tas_day --chart --max-bars 40
  cat tas.jsonl | cadence deltas --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		s, fromStore, err := readSeriesInput(deps, args)
		if err != nil {
			return err
		}

		times := s.Times()
		spacing, err := analyze.Summarize(s.Name, times)
		if err != nil {
			return err
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		if deltasChart {
			values, err := analyze.Deltas(times)
			if err != nil {
				return err
			}
			// Label each delta with the timestamp that closes the step.
			labels := make([]string, len(values))
			for i := range values {
				labels[i] = pipeline.FormatTime(times[i+1])
			}
			return chart.Bar(w, orSeries(s.Name)+"  deltas (days)", labels, values, chart.BarOptions{
				Width:   deltasWidth,
				MaxBars: deltasMaxBars,
			})
		}

		result := buildResult(model.KindDeltas, "deltas", spacing, spacing.Deltas, fromStore, started)
		format := resolveFormat(deps.Config.Format)
		if err := render.Render(w, result, format); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			render.PrintFooter(cmd.OutOrStdout(), result, deps.Config.Verbose)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deltasCmd)
	deltasCmd.Flags().BoolVar(&deltasChart, "chart", false,
		"render steps as a horizontal bar chart")
	deltasCmd.Flags().IntVar(&deltasMaxBars, "max-bars", 0,
		"cap the number of bars (keeps the most recent)")
	deltasCmd.Flags().IntVar(&deltasWidth, "width", 0,
		"chart width in characters (0 = auto from $COLUMNS)")
}
