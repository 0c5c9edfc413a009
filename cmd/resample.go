package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/esm-tools/cadence/internal/gate"
	"github.com/esm-tools/cadence/internal/model"
	"github.com/esm-tools/cadence/internal/render"
	"github.com/esm-tools/cadence/internal/resample"
	"github.com/spf13/cobra"
)

var (
	resampleFreq   string
	resampleMethod string
	resampleSave   string
)

var resampleCmd = &cobra.Command{
	Use:   "resample [SERIES]",
	Short: "Resample a series to a coarser frequency, gated by resolution",
	Long: `Resample aggregates a series into buckets of the target frequency.
Before touching any data the safety gate runs: if the source sampling
interval is coarser than the target, the command refuses with
"time resolution too coarse" and no output is produced.

Bucket starts are calendar-aware: monthly buckets open on the first of
the month of the series' own calendar, annual buckets on January 1st.`,
	Example: `  cadence resample tas_day --freq M
  cadence resample tas_mon --freq A --method mean
  cat pr.jsonl | cadence resample --freq M --method sum --format jsonl
  cadence resample tas_mon --freq A --save tas_ann`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if resampleFreq == "" {
			return fmt.Errorf("--freq is required")
		}

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

		opts := inferOptions(deps)
		if s.Calendar != "" {
			opts.Calendar = s.Calendar
		}
		out, check, err := resample.SafeSeries(s, resampleFreq, resample.Method(resampleMethod), opts)
		if err != nil {
			if errors.Is(err, gate.ErrInsufficientResolution) {
				return fmt.Errorf("%w\n\n  Inspect with: cadence check %s --freq %s", err, s.Name, resampleFreq)
			}
			return err
		}

		if resampleSave != "" {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			out.Name = resampleSave
			if err := deps.Store.PutSeries(out); err != nil {
				return fmt.Errorf("saving resampled series: %w", err)
			}
			if !deps.Config.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Stored %s  (%d points)\n", out.Name, len(out.Points))
			}
			return nil
		}

		result := buildResult(model.KindSeriesData, "resample", &out, len(out.Points), fromStore, started)
		if check.Comparison == gate.ComparisonEqual {
			result.Warnings = append(result.Warnings,
				"source interval already matches the target; output mirrors the input buckets")
		}

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
	rootCmd.AddCommand(resampleCmd)
	resampleCmd.Flags().StringVar(&resampleFreq, "freq", "",
		"target frequency string, e.g. D, M, 3M, A (required)")
	resampleCmd.Flags().StringVar(&resampleMethod, "method", string(resample.DefaultMethod),
		"bucket reduction: mean|sum|last|min|max")
	resampleCmd.Flags().StringVar(&resampleSave, "save", "",
		"store the result under this series name instead of printing it")
}
