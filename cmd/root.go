// Package cmd implements the cadence CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"os"

	"github.com/esm-tools/cadence/internal/app"
	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/config"
	"github.com/spf13/cobra"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Format      string
	Out         string
	Calendar    string
	Tol         float64
	Strict      bool
	Concurrency int
	Quiet       bool
	Verbose     bool
	Debug       bool
}

// rootCmd is the base command. Running `cadence` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "cadence — sampling frequency checks for climate model time series",
	Long: `cadence infers the sampling frequency of model output time axes,
classifies their regularity, and gates resampling requests so that data
is never aggregated to an interval its resolution cannot support.

Timestamps may live on any CF model calendar (standard, noleap, all_leap,
360_day) or be absolute instants; series flow through JSONL pipes or the
local store.

Quick start:
  cadence store put tas_mon < tas.jsonl    # accumulate a series locally
  cadence infer tas_mon                    # what frequency is it?
  cadence check tas_mon --freq A           # safe to make annual means?
  cadence resample tas_mon --freq A        # gate + aggregate in one step`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Calendar != "" {
		cfg.Calendar = calendar.Normalize(globalFlags.Calendar)
	}
	if globalFlags.Tol > 0 {
		cfg.Tol = globalFlags.Tol
	}
	if globalFlags.Strict {
		cfg.Strict = true
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(cfg), nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Calendar, "calendar", "",
		"default calendar for date timestamps: standard|noleap|all_leap|360_day")
	pf.Float64Var(&globalFlags.Tol, "tol", 0,
		"relative tolerance for frequency matching (default: 0.05)")
	pf.BoolVar(&globalFlags.Strict, "strict", false,
		"enable per-element regularity and completeness checks")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"max parallel series for audit (default: 8)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show store/timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log per-inference diagnostics to stderr")
}
