package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/esm-tools/cadence/internal/model"
	"github.com/esm-tools/cadence/internal/pipeline"
	"github.com/esm-tools/cadence/internal/render"
	"github.com/esm-tools/cadence/internal/store"
	"github.com/esm-tools/cadence/internal/util"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage locally accumulated series",
	Long: `Commands for the local bbolt database where series and their
inference results accumulate.

  cadence store put tas_mon < tas.jsonl
  cadence store get tas_mon --format jsonl | cadence infer`,
}

// ─── store put ────────────────────────────────────────────────────────────────

var storePutCmd = &cobra.Command{
	Use:   "put [NAME]",
	Short: "Read JSONL from stdin and store it as a series",
	Example: `  cadence store put tas_mon < tas.jsonl
  cat tas.jsonl | cadence store put`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		if pipeline.StdinIsTerminal() {
			return fmt.Errorf("store put reads JSONL from stdin\n\n  Use: cadence store put <NAME> < data.jsonl")
		}
		s, err := pipeline.ReadSeries(os.Stdin, deps.Config.Calendar)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			s.Name = args[0]
		}
		if s.Name == "" {
			return fmt.Errorf("series has no name: pass one as an argument or set \"series\" in the JSONL records")
		}

		if err := deps.RequireStore(); err != nil {
			return err
		}
		if err := deps.Store.PutSeries(s); err != nil {
			return fmt.Errorf("storing series: %w", err)
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Stored %s  (%d points, calendar %s)\n",
				s.Name, len(s.Points), s.Calendar)
		}
		return nil
	},
}

// ─── store get ────────────────────────────────────────────────────────────────

var storeGetCmd = &cobra.Command{
	Use:   "get <NAME>",
	Short: "Read a stored series",
	Example: `  cadence store get tas_mon
  cadence store get tas_mon --format jsonl | cadence check --freq A`,
	Args: cobra.ExactArgs(1),
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

		s, ok, err := deps.Store.GetSeries(args[0])
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if !ok {
			return fmt.Errorf("no stored series %q\n\n  Use: cadence store put %s < data.jsonl", args[0], args[0])
		}

		result := buildResult(model.KindSeriesData, "store get "+args[0], &s, len(s.Points), true, started)
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

// ─── store list ───────────────────────────────────────────────────────────────

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored series with their latest inference",
	Example: `  cadence store list
  cadence store list --format csv`,
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
			return fmt.Errorf("reading store: %w", err)
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No series in local store.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: cadence store put <NAME> < data.jsonl")
			return nil
		}
		sort.Strings(names)

		// Attach the latest inference per series, where one exists.
		freqBySeries := make(map[string]store.FreqEntry)
		if entries, err := deps.Store.ListFreqResults(); err == nil {
			for _, e := range entries {
				freqBySeries[e.Series] = e
			}
		}

		table := model.Table{
			Headers: []string{"SERIES", "CALENDAR", "POINTS", "FREQ", "STATUS", "CHECKED"},
		}
		for _, name := range names {
			s, ok, err := deps.Store.GetSeries(name)
			if err != nil || !ok {
				continue
			}
			freqStr, status, checked := "-", "-", "-"
			if e, ok := freqBySeries[name]; ok {
				freqStr = freqOrNone(e.Result)
				status = string(e.Result.Status)
				checked = e.CheckedAt.Format("2006-01-02 15:04")
			}
			table.Rows = append(table.Rows, []string{
				util.Truncate(name, 40),
				s.Calendar,
				fmt.Sprintf("%d", len(s.Points)),
				freqStr,
				status,
				checked,
			})
		}

		result := buildResult(model.KindTable, "store list", table, len(table.Rows), true, started)
		format := resolveFormat(deps.Config.Format)
		if err := render.Render(cmd.OutOrStdout(), result, format); err != nil {
			return err
		}
		if format == render.FormatTable && !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d series  •  %s\n", len(table.Rows), deps.Store.Path())
		}
		return nil
	},
}

// ─── store delete ─────────────────────────────────────────────────────────────

var storeDeleteCmd = &cobra.Command{
	Use:     "delete <NAME>",
	Short:   "Delete a stored series and its inference result",
	Example: `  cadence store delete tas_mon`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		_, ok, err := deps.Store.GetSeries(args[0])
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		if !ok {
			return fmt.Errorf("no stored series %q", args[0])
		}
		if err := deps.Store.DeleteSeries(args[0]); err != nil {
			return fmt.Errorf("deleting series: %w", err)
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", args[0])
		}
		return nil
	},
}

// ─── store stats ──────────────────────────────────────────────────────────────

var storeStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show bucket-level storage statistics",
	Example: `  cadence store stats`,
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

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		table := model.Table{Headers: []string{"BUCKET", "ENTRIES", "BYTES"}}
		for _, b := range stats {
			table.Rows = append(table.Rows, []string{
				b.Name, fmt.Sprintf("%d", b.Count), fmt.Sprintf("%d", b.Bytes),
			})
		}

		result := buildResult(model.KindTable, "store stats", table, len(table.Rows), true, started)
		format := resolveFormat(deps.Config.Format)
		if err := render.Render(cmd.OutOrStdout(), result, format); err != nil {
			return err
		}
		if format == render.FormatTable && !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", deps.Store.Path())
		}
		return nil
	},
}

// ─── store clear ──────────────────────────────────────────────────────────────

var storeClearAll bool

var storeClearCmd = &cobra.Command{
	Use:   "clear [BUCKET]",
	Short: "Empty a bucket, or the whole store with --all",
	Example: `  cadence store clear freq_results
  cadence store clear --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		switch {
		case storeClearAll:
			if err := deps.Store.ClearAll(); err != nil {
				return fmt.Errorf("clearing store: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all buckets")
			return nil
		case len(args) == 1:
			if err := deps.Store.ClearBucket(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared bucket %s\n", args[0])
			return nil
		default:
			return fmt.Errorf("name a bucket (%v) or pass --all", store.AllBuckets)
		}
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storePutCmd)
	storeCmd.AddCommand(storeGetCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeDeleteCmd)
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storeClearCmd)

	storeClearCmd.Flags().BoolVar(&storeClearAll, "all", false, "clear every bucket")
}
