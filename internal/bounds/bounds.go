// Package bounds generates the per-timestep interval coordinate for a
// dataset's time axis. The time method decides the shape: instantaneous
// timesteps get zero-width bounds, mean timesteps span the averaging
// interval, climatology datasets pass through untouched.
package bounds

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/dataset"
)

// Time methods.
const (
	MethodInstantaneous = "instantaneous"
	MethodMean          = "mean"
	MethodClimatology   = "climatology"
)

// Structural precondition failures.
var (
	ErrNotADataset            = errors.New("bounds: not a dataset")
	ErrNoTimeCoordinate       = errors.New("bounds: dataset has no time coordinate")
	ErrInsufficientTimePoints = errors.New("bounds: need at least 2 time points for mean bounds")
)

// Tolerances for the mean method.
const (
	// intervalMatchDays is how close a declared interval must come to the
	// measured median delta before it drives bound construction.
	intervalMatchDays = 0.1
	// Declared intervals inside [monthlyMinDays, monthlyMaxDays] trigger
	// calendar-month alignment instead of delta pairing.
	monthlyMinDays = 28.0
	monthlyMaxDays = 32.0
)

// Attach computes bounds for the dataset's time coordinate and registers
// them as "{label}_bnds", pointing the coordinate's "bounds" attribute at
// the new variable. approxDays is the caller-declared output interval;
// pass NaN when none is known. Returns any warnings produced.
//
// Attach is idempotent: when bounds for the time coordinate already
// exist, the dataset is returned unchanged.
func Attach(ds *dataset.Dataset, timeMethod string, approxDays float64) ([]string, error) {
	if ds == nil {
		return nil, ErrNotADataset
	}

	var warnings []string
	switch timeMethod {
	case MethodInstantaneous, MethodMean:
	case MethodClimatology:
		return nil, nil
	default:
		warnings = append(warnings, fmt.Sprintf("unknown time method %q, treating as %q", timeMethod, MethodMean))
		timeMethod = MethodMean
	}

	label, ok := ds.TimeLabel()
	if !ok {
		return warnings, ErrNoTimeCoordinate
	}
	if ds.HasBounds(label) {
		return warnings, nil
	}
	coord := ds.Coords[label]

	var pairs []dataset.BoundsPair
	switch timeMethod {
	case MethodInstantaneous:
		pairs = instantaneousPairs(coord.Times)
	case MethodMean:
		var err error
		pairs, err = meanPairs(coord.Times, approxDays)
		if err != nil {
			return warnings, err
		}
	}

	name := label + "_bnds"
	if ds.Bounds == nil {
		ds.Bounds = map[string][]dataset.BoundsPair{}
	}
	ds.Bounds[name] = pairs
	if coord.Attrs == nil {
		coord.Attrs = map[string]string{}
	}
	coord.Attrs["bounds"] = name
	return warnings, nil
}

func instantaneousPairs(times []calendar.Time) []dataset.BoundsPair {
	out := make([]dataset.BoundsPair, len(times))
	for i, t := range times {
		out[i] = dataset.BoundsPair{Lower: t, Upper: t}
	}
	return out
}

// meanPairs builds averaging-interval bounds. A declared interval that
// matches the measured spacing and falls in the monthly window produces
// calendar-month-aligned bounds; anything else pairs consecutive
// timestamps, extending the axis by one synthetic point so the last step
// is covered too.
func meanPairs(times []calendar.Time, approxDays float64) ([]dataset.BoundsPair, error) {
	if len(times) < 2 {
		return nil, ErrInsufficientTimePoints
	}

	ords, err := calendar.Ordinals(times)
	if err != nil {
		return nil, fmt.Errorf("bounds: %w", err)
	}
	deltas := make([]float64, len(ords)-1)
	for i := range deltas {
		deltas[i] = ords[i+1] - ords[i]
	}
	dataFreqDays, _ := stats.Median(deltas)

	declared := !math.IsNaN(approxDays) && approxDays > 0
	if declared && math.Abs(approxDays-dataFreqDays) <= intervalMatchDays {
		if approxDays >= monthlyMinDays && approxDays <= monthlyMaxDays {
			return monthAlignedPairs(times)
		}
	}
	return consecutivePairs(times, dataFreqDays)
}

// monthAlignedPairs bounds each timestep by the start of its calendar
// month and the start of the next, so the result does not depend on where
// within the month the timestamp falls.
func monthAlignedPairs(times []calendar.Time) ([]dataset.BoundsPair, error) {
	out := make([]dataset.BoundsPair, len(times))
	for i, t := range times {
		switch t.Kind {
		case calendar.KindDate:
			out[i] = dataset.BoundsPair{
				Lower: calendar.FromDate(calendar.MonthStart(t.Date)),
				Upper: calendar.FromDate(calendar.NextMonthStart(t.Date)),
			}
		case calendar.KindInstant:
			y, m, _ := t.Instant.Date()
			lo := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
			out[i] = dataset.BoundsPair{
				Lower: calendar.FromInstant(lo),
				Upper: calendar.FromInstant(lo.AddDate(0, 1, 0)),
			}
		default:
			return nil, fmt.Errorf("bounds: timestamp %d has no variant set", i)
		}
	}
	return out, nil
}

// consecutivePairs pairs each timestep with its successor, appending one
// synthetic timestamp at last + extendDays to close the final interval.
func consecutivePairs(times []calendar.Time, extendDays float64) ([]dataset.BoundsPair, error) {
	last := times[len(times)-1]
	var synthetic calendar.Time
	switch last.Kind {
	case calendar.KindDate:
		d, err := calendar.AddDays(last.Date, extendDays)
		if err != nil {
			return nil, fmt.Errorf("bounds: extending time axis: %w", err)
		}
		synthetic = calendar.FromDate(d)
	case calendar.KindInstant:
		dur := time.Duration(extendDays * 24 * float64(time.Hour))
		synthetic = calendar.FromInstant(last.Instant.Add(dur))
	default:
		return nil, fmt.Errorf("bounds: last timestamp has no variant set")
	}

	extended := append(append([]calendar.Time{}, times...), synthetic)
	out := make([]dataset.BoundsPair, len(times))
	for i := range out {
		out[i] = dataset.BoundsPair{Lower: extended[i], Upper: extended[i+1]}
	}
	return out, nil
}
