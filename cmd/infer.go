package cmd

import (
	"fmt"
	"time"

	"github.com/esm-tools/cadence/internal/freq"
	"github.com/esm-tools/cadence/internal/model"
	"github.com/esm-tools/cadence/internal/render"
	"github.com/esm-tools/cadence/internal/store"
	"github.com/spf13/cobra"
)

var inferSave bool

var inferCmd = &cobra.Command{
	Use:   "infer [SERIES]",
	Short: "Infer the sampling frequency of a time series",
	Long: `Infer reads a series (JSONL from stdin, or by name from the store),
measures the median spacing of its time axis, and matches it against the
known frequencies from hourly up to decadal.

The result reports the matched frequency, the median and spread of the
deltas in days, and a regularity status: valid, irregular, or
missing_steps (strict mode only).`,
	Example: `  cat tas.jsonl | cadence infer
  cadence infer tas_mon
  cadence infer tas_mon --strict --save
  cadence infer tas_day --calendar noleap --tol 0.1`,
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

		opts := inferOptions(deps)
		if s.Calendar != "" {
			opts.Calendar = s.Calendar
		}
		res := freq.Infer(s.Times(), opts)

		entry := store.FreqEntry{
			Series:   s.Name,
			Calendar: opts.Calendar,
			Strict:   opts.Strict,
			Result:   res,
		}

		if inferSave {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			if s.Name == "" {
				return fmt.Errorf("cannot save an inference for an unnamed series (add \"series\" to the JSONL records)")
			}
			if err := deps.Store.PutFreqResult(entry); err != nil {
				return fmt.Errorf("saving inference: %w", err)
			}
		}

		result := buildResult(model.KindFreqResult, "infer", entry, len(s.Points), fromStore, started)
		if res.Status != freq.StatusValid {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("series %s is %s: %s", orSeries(s.Name), res.Status, res.Detail))
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

// orSeries labels anonymous piped series in warnings.
func orSeries(name string) string {
	if name == "" {
		return "(stdin)"
	}
	return name
}

func init() {
	rootCmd.AddCommand(inferCmd)
	inferCmd.Flags().BoolVar(&inferSave, "save", false,
		"persist the inference to the local store (requires a series name)")
}
