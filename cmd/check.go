package cmd

import (
	"fmt"
	"time"

	"github.com/esm-tools/cadence/internal/gate"
	"github.com/esm-tools/cadence/internal/model"
	"github.com/esm-tools/cadence/internal/render"
	"github.com/spf13/cobra"
)

var (
	checkFreq       string
	checkTargetDays float64
	checkQuietExit  bool
)

var checkCmd = &cobra.Command{
	Use:   "check [SERIES]",
	Short: "Check whether a series can be resampled to a target interval",
	Long: `Check compares a series' measured sampling interval against a target
interval and prints the verdict: finer, equal, coarser, or missing_steps.

The target is either a frequency string (--freq M, --freq 6H, --freq A)
resolved on the series' calendar, or an explicit day count
(--target-days 30.4375).

Resampling to a coarser target than the source resolution supports is
refused: the command prints the verdict and exits non-zero.`,
	Example: `  cadence check tas_mon --freq A
  cadence check tas_day --target-days 30.4375
  cat tas.jsonl | cadence check --freq M --strict`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkFreq == "" && checkTargetDays <= 0 {
			return fmt.Errorf("a target is required: --freq <F> or --target-days <N>")
		}
		if checkFreq != "" && checkTargetDays > 0 {
			return fmt.Errorf("--freq and --target-days are mutually exclusive")
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

		target := gate.TargetFreq(checkFreq)
		if checkTargetDays > 0 {
			target = gate.TargetDays(checkTargetDays)
		}

		opts := inferOptions(deps)
		if s.Calendar != "" {
			opts.Calendar = s.Calendar
		}
		check, err := gate.CheckSeries(s.Times(), target, opts)
		if err != nil {
			return err
		}

		result := buildResult(model.KindCheckResult, "check", check, len(s.Points), fromStore, started)
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

		// Refusals exit non-zero so the gate composes in shell pipelines.
		if err := gate.Authorize(check); err != nil {
			if checkQuietExit {
				return fmt.Errorf("refused")
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkFreq, "freq", "",
		"target frequency string, e.g. 6H, D, M, 3M, A, 10A")
	checkCmd.Flags().Float64Var(&checkTargetDays, "target-days", 0,
		"target interval as an approximate day count")
	checkCmd.Flags().BoolVar(&checkQuietExit, "quiet-exit", false,
		"on refusal, exit non-zero with a terse error")
}
