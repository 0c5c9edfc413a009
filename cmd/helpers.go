package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/esm-tools/cadence/internal/app"
	"github.com/esm-tools/cadence/internal/freq"
	"github.com/esm-tools/cadence/internal/model"
	"github.com/esm-tools/cadence/internal/pipeline"
	"github.com/esm-tools/cadence/internal/render"
	"github.com/olekukonko/tablewriter"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// outputWriter returns the destination for command output: the --out file
// when set, otherwise def. The returned closer is a no-op for def.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// inferOptions builds frequency inference options from resolved config.
// With --debug a per-inference diagnostic record goes to stderr.
func inferOptions(deps *app.Deps) freq.Options {
	opts := freq.Options{
		Tol:      deps.Config.Tol,
		Strict:   deps.Config.Strict,
		Calendar: deps.Config.Calendar,
	}
	if deps.Config.Debug || deps.Config.Verbose {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return opts
}

// readSeriesInput resolves the series a command operates on. With a name
// argument the series comes from the store; without one it is read as
// JSONL from stdin. The bool reports whether the store served it.
func readSeriesInput(deps *app.Deps, args []string) (model.Series, bool, error) {
	if len(args) >= 1 {
		name := strings.TrimSpace(args[0])
		if err := deps.RequireStore(); err != nil {
			return model.Series{}, false, err
		}
		s, ok, err := deps.Store.GetSeries(name)
		if err != nil {
			return model.Series{}, false, fmt.Errorf("reading store: %w", err)
		}
		if !ok {
			return model.Series{}, false, fmt.Errorf("no stored series %q\n\n  Use: cadence store put %s < data.jsonl", name, name)
		}
		return s, true, nil
	}

	if pipeline.StdinIsTerminal() {
		return model.Series{}, false, fmt.Errorf("no series name given and stdin is a terminal\n\n  Pipe JSONL in, or name a stored series: cadence infer <SERIES>")
	}
	s, err := pipeline.ReadSeries(os.Stdin, deps.Config.Calendar)
	if err != nil {
		return model.Series{}, false, err
	}
	return s, false, nil
}

// buildResult wraps a payload in the standard envelope.
func buildResult(kind, command string, data interface{}, items int, fromStore bool, started time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			StoreHit:   fromStore,
			DurationMs: time.Since(started).Milliseconds(),
			Items:      items,
		},
	}
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// printKVTable renders a two-column key/value listing with aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}

// fmtStat formats a statistic for key/value display, "." for NaN.
func fmtStat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	return fmt.Sprintf("%.4f", v)
}
