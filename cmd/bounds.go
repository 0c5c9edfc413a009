package cmd

import (
	"math"
	"time"

	"github.com/esm-tools/cadence/internal/bounds"
	"github.com/esm-tools/cadence/internal/dataset"
	"github.com/esm-tools/cadence/internal/model"
	"github.com/esm-tools/cadence/internal/render"
	"github.com/spf13/cobra"
)

var (
	boundsTimeMethod string
	boundsInterval   float64
)

var boundsCmd = &cobra.Command{
	Use:   "bounds [SERIES]",
	Short: "Generate cell bounds for a series' time axis",
	Long: `Bounds derives a lower/upper interval for every timestamp, the way
cell_methods expects for time-mean data.

For mean data, consecutive timestamps pair into intervals, the last one
extended by the measured spacing; monthly spacing snaps to true month
boundaries on the series' calendar.
Instantaneous data gets zero-width bounds; climatology axes are left
untouched. An axis that already carries bounds is never rewritten.

--approx-interval declares the nominal sampling interval in days; it is
only honored when it matches the measured spacing within 0.1 days.`,
	Example: `  cadence bounds tas_mon --time-method mean
  cadence bounds tas_mon --time-method mean --approx-interval 30.5
  cat tas.jsonl | cadence bounds --time-method instantaneous`,
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

		ds := dataset.FromSeries(s)
		approx := math.NaN()
		if boundsInterval > 0 {
			approx = boundsInterval
		}
		warnings, err := bounds.Attach(ds, boundsTimeMethod, approx)
		if err != nil {
			return err
		}

		result := buildResult(model.KindBounds, "bounds", ds, len(s.Points), fromStore, started)
		result.Warnings = warnings

		format := resolveFormat(deps.Config.Format)
		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
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
	rootCmd.AddCommand(boundsCmd)
	boundsCmd.Flags().StringVar(&boundsTimeMethod, "time-method", bounds.MethodMean,
		"how time was sampled: instantaneous|mean|climatology")
	boundsCmd.Flags().Float64Var(&boundsInterval, "approx-interval", 0,
		"declared sampling interval in days (0 = measure from the data)")
}
