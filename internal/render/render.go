// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/esm-tools/cadence/internal/analyze"
	"github.com/esm-tools/cadence/internal/dataset"
	"github.com/esm-tools/cadence/internal/gate"
	"github.com/esm-tools/cadence/internal/model"
	"github.com/esm-tools/cadence/internal/pipeline"
	"github.com/esm-tools/cadence/internal/store"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

func renderJSONL(w io.Writer, result *model.Result) error {
	switch result.Kind {
	case model.KindSeriesData:
		if s, ok := result.Data.(*model.Series); ok {
			return pipeline.WriteJSONL(w, *s)
		}
	}
	return json.NewEncoder(w).Encode(result.Data)
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	switch data := result.Data.(type) {
	case *model.Series:
		return renderSeriesTable(w, data)
	case store.FreqEntry:
		return renderFreqTable(w, data)
	case []store.FreqEntry:
		return renderFreqListTable(w, data)
	case gate.CheckResult:
		return renderCheckTable(w, data)
	case *dataset.Dataset:
		return renderBoundsTable(w, data)
	case analyze.Spacing:
		return renderSpacingTable(w, data)
	case model.Table:
		return renderGenericTable(w, data)
	default:
		// Fallback: JSON
		return renderJSON(w, result)
	}
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

func renderSeriesTable(w io.Writer, s *model.Series) error {
	tw := newTable(w, []string{"SERIES", "TIME", "VALUE"})
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
	})
	for _, p := range s.Points {
		tw.Append([]string{s.Name, pipeline.FormatTime(p.Time), formatValue(p.Value)})
	}
	tw.Render()
	return nil
}

func renderFreqTable(w io.Writer, e store.FreqEntry) error {
	tw := newTable(w, []string{"FIELD", "VALUE"})
	r := e.Result
	rows := [][]string{
		{"Series", e.Series},
		{"Frequency", orNone(r.Freq())},
		{"Step", fmt.Sprintf("%d", r.Step)},
		{"Median Delta (days)", formatValue(r.DeltaDays)},
		{"Std (days)", formatValue(r.StdDays)},
		{"Exact", fmt.Sprintf("%t", r.IsExact)},
		{"Status", string(r.Status)},
	}
	if e.Calendar != "" {
		rows = append(rows, []string{"Calendar", e.Calendar})
	}
	if r.Detail != "" {
		rows = append(rows, []string{"Detail", r.Detail})
	}
	for _, row := range rows {
		tw.Append(row)
	}
	tw.Render()
	return nil
}

func renderFreqListTable(w io.Writer, entries []store.FreqEntry) error {
	tw := newTable(w, []string{"SERIES", "FREQ", "DELTA (DAYS)", "EXACT", "STATUS", "CHECKED"})
	for _, e := range entries {
		tw.Append([]string{
			e.Series,
			orNone(e.Result.Freq()),
			formatValue(e.Result.DeltaDays),
			fmt.Sprintf("%t", e.Result.IsExact),
			string(e.Result.Status),
			e.CheckedAt.Format("2006-01-02"),
		})
	}
	tw.Render()
	return nil
}

func renderCheckTable(w io.Writer, c gate.CheckResult) error {
	tw := newTable(w, []string{"FIELD", "VALUE"})
	rows := [][]string{
		{"Valid For Resampling", fmt.Sprintf("%t", c.IsValidForResampling)},
		{"Comparison", string(c.Comparison)},
		{"Target Interval (days)", formatValue(c.TargetDays)},
		{"Source Frequency", orNone(c.Source.Freq())},
		{"Source Delta (days)", formatValue(c.Source.DeltaDays)},
		{"Source Status", string(c.Source.Status)},
	}
	for _, row := range rows {
		tw.Append(row)
	}
	tw.Render()
	return nil
}

func renderBoundsTable(w io.Writer, ds *dataset.Dataset) error {
	label, ok := ds.TimeLabel()
	if !ok {
		return fmt.Errorf("dataset has no time coordinate")
	}
	pairs := ds.Bounds[label+"_bnds"]
	times := ds.Coords[label].Times

	tw := newTable(w, []string{strings.ToUpper(label), "LOWER", "UPPER"})
	for i, t := range times {
		lower, upper := "", ""
		if i < len(pairs) {
			lower = pipeline.FormatTime(pairs[i].Lower)
			upper = pipeline.FormatTime(pairs[i].Upper)
		}
		tw.Append([]string{pipeline.FormatTime(t), lower, upper})
	}
	tw.Render()
	return nil
}

func renderSpacingTable(w io.Writer, s analyze.Spacing) error {
	tw := newTable(w, []string{"FIELD", "VALUE"})
	rows := [][]string{
		{"Series", s.Series},
		{"Timestamps", fmt.Sprintf("%d", s.Count)},
		{"Deltas", fmt.Sprintf("%d", s.Deltas)},
		{"Min (days)", formatValue(s.Min)},
		{"P25 (days)", formatValue(s.P25)},
		{"Median (days)", formatValue(s.Median)},
		{"P75 (days)", formatValue(s.P75)},
		{"Max (days)", formatValue(s.Max)},
		{"Mean (days)", formatValue(s.Mean)},
		{"Std (days)", formatValue(s.Std)},
		{"Span (days)", formatValue(s.SpanDays)},
		{"Monotonic", fmt.Sprintf("%t", s.Monotonic)},
		{"Gaps", fmt.Sprintf("%d", len(s.Gaps))},
	}
	for _, row := range rows {
		tw.Append(row)
	}
	tw.Render()

	if len(s.Gaps) > 0 {
		fmt.Fprintln(w)
		gw := newTable(w, []string{"GAP AFTER INDEX", "DELTA (DAYS)", "RATIO"})
		for _, g := range s.Gaps {
			gw.Append([]string{
				fmt.Sprintf("%d", g.Index),
				formatValue(g.DeltaDays),
				formatValue(g.Ratio),
			})
		}
		gw.Render()
	}
	return nil
}

func renderGenericTable(w io.Writer, t model.Table) error {
	tw := newTable(w, t.Headers)
	for _, row := range t.Rows {
		tw.Append(row)
	}
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	switch data := result.Data.(type) {
	case *model.Series:
		_ = cw.Write([]string{"series", "time", "value"})
		for _, p := range data.Points {
			_ = cw.Write([]string{data.Name, pipeline.FormatTime(p.Time), formatValue(p.Value)})
		}
	case []store.FreqEntry:
		_ = cw.Write([]string{"series", "frequency", "delta_days", "exact", "status", "checked_at"})
		for _, e := range data {
			_ = cw.Write([]string{
				e.Series, e.Result.Freq(), formatValue(e.Result.DeltaDays),
				fmt.Sprintf("%t", e.Result.IsExact), string(e.Result.Status),
				e.CheckedAt.Format(time.RFC3339),
			})
		}
	case model.Table:
		_ = cw.Write(data.Headers)
		for _, row := range data.Rows {
			_ = cw.Write(row)
		}
	default:
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	switch data := result.Data.(type) {
	case *model.Series:
		fmt.Fprintf(w, "| SERIES | TIME | VALUE |\n|--------|------|-------|\n")
		for _, p := range data.Points {
			fmt.Fprintf(w, "| %s | %s | %s |\n",
				mdEscape(data.Name), pipeline.FormatTime(p.Time), formatValue(p.Value))
		}
		return nil
	case model.Table:
		fmt.Fprintf(w, "| %s |\n", strings.Join(data.Headers, " | "))
		fmt.Fprintf(w, "|%s\n", strings.Repeat("----|", len(data.Headers)))
		for _, row := range data.Rows {
			escaped := make([]string, len(row))
			for i, cell := range row {
				escaped[i] = mdEscape(cell)
			}
			fmt.Fprintf(w, "| %s |\n", strings.Join(escaped, " | "))
		}
		return nil
	default:
		return renderJSON(w, result)
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := "stdin"
		if result.Stats.StoreHit {
			src = "store"
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// formatValue formats a numeric value for display.
// Always shows at least one decimal place (e.g. 4.0, not 4).
// Trims unnecessary trailing zeros beyond the first (e.g. 3.400000 → 3.4).
// Missing values (NaN) render as ".".
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	// Trim trailing zeros but keep at least one digit after the decimal point.
	s := strings.TrimRight(fmt.Sprintf("%.6f", v), "0")
	if strings.HasSuffix(s, ".") {
		s += "0" // "4." → "4.0"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
