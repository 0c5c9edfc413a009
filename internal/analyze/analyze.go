// Package analyze computes statistical summaries over the spacing of a
// time axis. All functions are pure; no I/O.
package analyze

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/esm-tools/cadence/internal/calendar"
)

// Spacing holds descriptive statistics for the successive deltas of a
// timestamp sequence, in days.
type Spacing struct {
	Series    string    `json:"series"`
	Count     int       `json:"count"`  // timestamps
	Deltas    int       `json:"deltas"` // Count - 1
	Min       float64   `json:"min"`
	P25       float64   `json:"p25"`
	Median    float64   `json:"median"`
	P75       float64   `json:"p75"`
	Max       float64   `json:"max"`
	Mean      float64   `json:"mean"`
	Std       float64   `json:"std"`
	SpanDays  float64   `json:"span_days"` // last - first
	Monotonic bool      `json:"monotonic"` // strictly increasing
	Gaps      []GapInfo `json:"gaps,omitempty"`
}

// GapInfo marks one delta that stands out from the median spacing.
type GapInfo struct {
	Index     int     `json:"index"` // delta index: between timestamps Index and Index+1
	DeltaDays float64 `json:"delta_days"`
	Ratio     float64 `json:"ratio"` // delta / median
}

// gapRatio is the multiple of the median spacing above which a delta is
// reported as a gap.
const gapRatio = 1.5

// Summarize computes spacing statistics for a timestamp sequence.
// Needs at least 2 timestamps.
func Summarize(series string, times []calendar.Time) (Spacing, error) {
	s := Spacing{Series: series, Count: len(times)}
	if len(times) < 2 {
		return s, fmt.Errorf("spacing: need at least 2 timestamps, got %d", len(times))
	}

	ords, err := calendar.Ordinals(times)
	if err != nil {
		return s, fmt.Errorf("spacing: %w", err)
	}
	return SummarizeOrdinals(series, ords)
}

// SummarizeOrdinals is Summarize over precomputed day ordinals.
func SummarizeOrdinals(series string, ords []float64) (Spacing, error) {
	s := Spacing{Series: series, Count: len(ords)}
	if len(ords) < 2 {
		return s, fmt.Errorf("spacing: need at least 2 timestamps, got %d", len(ords))
	}

	deltas := make([]float64, len(ords)-1)
	s.Monotonic = true
	for i := range deltas {
		deltas[i] = ords[i+1] - ords[i]
		if deltas[i] <= 0 {
			s.Monotonic = false
		}
	}

	s.Deltas = len(deltas)
	s.SpanDays = ords[len(ords)-1] - ords[0]
	s.Min, _ = stats.Min(deltas)
	s.Max, _ = stats.Max(deltas)
	s.Mean, _ = stats.Mean(deltas)
	s.Median, _ = stats.Median(deltas)
	s.Std, _ = stats.StandardDeviationPopulation(deltas)
	s.P25, _ = stats.Percentile(deltas, 25)
	s.P75, _ = stats.Percentile(deltas, 75)

	if s.Median > 0 {
		for i, d := range deltas {
			if d > gapRatio*s.Median {
				s.Gaps = append(s.Gaps, GapInfo{Index: i, DeltaDays: d, Ratio: d / s.Median})
			}
		}
	}
	return s, nil
}

// Deltas returns the successive differences of a timestamp sequence in
// days, for callers that want the raw column rather than the summary.
func Deltas(times []calendar.Time) ([]float64, error) {
	ords, err := calendar.Ordinals(times)
	if err != nil {
		return nil, err
	}
	if len(ords) < 2 {
		return nil, fmt.Errorf("spacing: need at least 2 timestamps, got %d", len(ords))
	}
	out := make([]float64, len(ords)-1)
	for i := range out {
		out[i] = ords[i+1] - ords[i]
	}
	return out, nil
}

// IsRegular reports whether every delta is within tol (relative) of the
// median spacing.
func (s Spacing) IsRegular(tol float64) bool {
	if s.Median <= 0 {
		return false
	}
	return math.Abs(s.Max-s.Median) <= tol*s.Median && math.Abs(s.Median-s.Min) <= tol*s.Median
}
