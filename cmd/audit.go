package cmd

import (
	"fmt"
	"sync"
	"time"

	"github.com/esm-tools/cadence/internal/app"
	"github.com/esm-tools/cadence/internal/freq"
	"github.com/esm-tools/cadence/internal/model"
	"github.com/esm-tools/cadence/internal/render"
	"github.com/esm-tools/cadence/internal/store"
	"github.com/esm-tools/cadence/internal/util"
	"github.com/spf13/cobra"
)

var auditSave bool

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Infer the frequency of every stored series",
	Long: `Audit runs frequency inference over every series in the local store,
in parallel up to the configured concurrency, and prints one row per
series: matched frequency, median spacing, exactness, and status.

With --save each inference is persisted to the store, replacing any
previous result for that series.`,
	Example: `  cadence audit
  cadence audit --strict --save
  cadence audit --format csv --out audit.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		names, err := deps.Store.ListSeries()
		if err != nil {
			return fmt.Errorf("listing store: %w", err)
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No series in local store.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: cadence store put <NAME> < data.jsonl")
			return nil
		}

		entries, warnings := auditSeries(deps, names)

		var saveErrs util.MultiError
		if auditSave {
			for _, e := range entries {
				if err := deps.Store.PutFreqResult(e); err != nil {
					saveErrs.Add(fmt.Errorf("%s: saving inference: %w", e.Series, err))
				}
			}
		}

		table := model.Table{
			Headers: []string{"SERIES", "CALENDAR", "FREQ", "DELTA", "STD", "EXACT", "STATUS"},
		}
		for _, e := range entries {
			table.Rows = append(table.Rows, []string{
				e.Series,
				e.Calendar,
				freqOrNone(e.Result),
				fmtStat(e.Result.DeltaDays),
				fmtStat(e.Result.StdDays),
				fmt.Sprintf("%t", e.Result.IsExact),
				string(e.Result.Status),
			})
		}

		result := buildResult(model.KindReport, "audit", table, len(entries), true, started)
		result.Warnings = warnings

		format := resolveFormat(deps.Config.Format)
		if err := render.RenderTo(globalFlags.Out, result, format); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			render.PrintFooter(cmd.OutOrStdout(), result, deps.Config.Verbose)
		}
		return saveErrs.Err()
	},
}

// auditSeries infers every named series concurrently, bounded by the
// configured concurrency. Per-series failures become warnings, not errors.
func auditSeries(deps *app.Deps, names []string) ([]store.FreqEntry, []string) {
	type result struct {
		entry store.FreqEntry
		err   error
	}

	concurrency := deps.Config.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	sem := make(chan struct{}, concurrency)
	results := make([]result, len(names))
	var wg sync.WaitGroup

	for i, name := range names {
		i, name := i, name
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			s, ok, err := deps.Store.GetSeries(name)
			if err != nil {
				results[i] = result{err: err}
				return
			}
			if !ok {
				results[i] = result{err: fmt.Errorf("series vanished during audit")}
				return
			}

			opts := inferOptions(deps)
			if s.Calendar != "" {
				opts.Calendar = s.Calendar
			}
			results[i] = result{entry: store.FreqEntry{
				Series:   name,
				Calendar: opts.Calendar,
				Strict:   opts.Strict,
				Result:   freq.Infer(s.Times(), opts),
			}}
		}()
	}
	wg.Wait()

	var entries []store.FreqEntry
	var warnings []string
	for i, r := range results {
		if r.err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", names[i], r.err))
		} else {
			entries = append(entries, r.entry)
		}
	}
	return entries, warnings
}

// freqOrNone formats a matched frequency, "none" when nothing matched.
func freqOrNone(r freq.Result) string {
	if f := r.Freq(); f != "" {
		return f
	}
	return "none"
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().BoolVar(&auditSave, "save", false,
		"persist each inference to the store")
}
