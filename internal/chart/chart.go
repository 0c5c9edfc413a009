// Package chart renders horizontal ASCII bar charts for step-size
// diagnostics. Each bar is one consecutive time delta, labeled with the
// timestamp that closes the step. NaN values render as gaps, not zeros.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// MaxBars is the maximum number of bars to render.
	// If there are more values than MaxBars, the last MaxBars are kept.
	// If 0, no limit is applied.
	MaxBars int
}

// Bar renders a horizontal bar chart of values to w, one bar per entry.
// labels and values must be the same length; NaN values are skipped.
//
// Output example:
//
//	tas_mon  deltas (days)
//	1850-02-01  31.0  ████████████████████
//	1850-03-01  28.0  ██████████████████
//	1850-04-01  31.0  ████████████████████
func Bar(w io.Writer, title string, labels []string, values []float64, opts BarOptions) error {
	if len(labels) != len(values) {
		return fmt.Errorf("chart bar: %d labels for %d values", len(labels), len(values))
	}

	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}

	// Filter to non-NaN entries
	var keepLabels []string
	var keepVals []float64
	for i, v := range values {
		if !math.IsNaN(v) {
			keepLabels = append(keepLabels, labels[i])
			keepVals = append(keepVals, v)
		}
	}
	if len(keepVals) < 1 {
		return fmt.Errorf("chart bar: no non-NaN values to render")
	}

	// Optionally cap number of bars — take last N if over limit
	maxBars := opts.MaxBars
	if maxBars > 0 && len(keepVals) > maxBars {
		keepLabels = keepLabels[len(keepLabels)-maxBars:]
		keepVals = keepVals[len(keepVals)-maxBars:]
	}

	// Warn if the series looks too dense for a bar chart
	if len(keepVals) > 60 {
		fmt.Fprintf(w, "⚠  %d steps — consider a coarser series: cadence resample --freq A --method mean\n\n", len(keepVals))
	}

	// Min / max (handle negative values — bar from zero baseline)
	minVal, maxVal := keepVals[0], keepVals[0]
	for _, v := range keepVals[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	// Label column width — longest label wins
	labelWidth := 0
	for _, l := range keepLabels {
		if len(l) > labelWidth {
			labelWidth = len(l)
		}
	}

	// Value column width
	valWidth := 0
	for _, v := range keepVals {
		if l := len(formatFloat(v)); l > valWidth {
			valWidth = l
		}
	}

	// Bar area width = totalWidth - labelWidth - valWidth - separators (4 chars)
	barAreaWidth := totalWidth - labelWidth - valWidth - 4
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}

	// Scale: handle negative values by finding the range and zero position
	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1 // avoid divide-by-zero for flat series
	}

	hasNeg := minVal < 0
	var zeroPos int // column index of the zero line within bar area
	if hasNeg {
		zeroPos = int(math.Round((-minVal / valRange) * float64(barAreaWidth-1)))
	}

	// Header
	fmt.Fprintf(w, "%s  %s – %s\n", title, keepLabels[0], keepLabels[len(keepLabels)-1])

	// Render each bar
	for i, v := range keepVals {
		valLabel := formatFloat(v)

		var bar string
		if hasNeg {
			bar = buildBiBar(v, minVal, maxVal, barAreaWidth, zeroPos)
		} else {
			barLen := int(math.Round((v - minVal) / valRange * float64(barAreaWidth)))
			if barLen < 1 {
				barLen = 1 // minimum 1 block so every bar is visible
			}
			if barLen > barAreaWidth {
				barLen = barAreaWidth
			}
			bar = strings.Repeat("█", barLen)
		}

		fmt.Fprintf(w, "%-*s  %*s  %s\n",
			labelWidth, keepLabels[i],
			valWidth, valLabel,
			bar,
		)
	}

	return nil
}

// buildBiBar renders a bar that may extend left (negative) or right (positive)
// from a zero baseline at zeroPos within a field of width barAreaWidth.
func buildBiBar(val, minVal, maxVal float64, barAreaWidth, zeroPos int) string {
	valRange := maxVal - minVal
	buf := []rune(strings.Repeat(" ", barAreaWidth))

	// Mark zero line
	if zeroPos >= 0 && zeroPos < barAreaWidth {
		buf[zeroPos] = '│'
	}

	if val >= 0 {
		// Fill right from zeroPos
		end := zeroPos + int(math.Round(val/valRange*float64(barAreaWidth-1)))
		if end > barAreaWidth {
			end = barAreaWidth
		}
		for i := zeroPos + 1; i <= end && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	} else {
		// Fill left from zeroPos
		start := zeroPos - int(math.Round((-val)/valRange*float64(barAreaWidth-1)))
		if start < 0 {
			start = 0
		}
		for i := start; i < zeroPos && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	}

	return string(buf)
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// formatFloat formats a float for bar labels: no unnecessary trailing zeros,
// at least one decimal place, compact notation for large values.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	abs := math.Abs(v)
	var s string
	switch {
	case abs == 0:
		return "0"
	case abs >= 1e6:
		s = strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		s = strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	case abs >= 100:
		s = strconv.FormatFloat(v, 'f', 1, 64)
	case abs >= 1:
		s = strconv.FormatFloat(v, 'f', 2, 64)
	default:
		s = strconv.FormatFloat(v, 'f', 4, 64)
	}
	// Trim trailing zeros after decimal point, keep at least one decimal
	if strings.Contains(s, ".") && !strings.Contains(s, "M") && !strings.Contains(s, "K") {
		s = strings.TrimRight(s, "0")
		if strings.HasSuffix(s, ".") {
			s += "0"
		}
	}
	return s
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
