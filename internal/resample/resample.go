// Package resample aggregates a time series to a coarser frequency by
// grouping points into calendar-aligned period buckets and reducing each
// bucket. SafeSeries runs the resolution gate first; Series is the raw
// primitive for callers that have already checked.
package resample

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/freq"
	"github.com/esm-tools/cadence/internal/gate"
	"github.com/esm-tools/cadence/internal/model"
)

// Method is the reduction applied to each period bucket.
type Method string

const (
	MethodMean Method = "mean"
	MethodSum  Method = "sum"
	MethodLast Method = "last"
	MethodMin  Method = "min"
	MethodMax  Method = "max"
)

// DefaultMethod is used when the caller does not name a reduction.
const DefaultMethod = MethodMean

// SafeSeries checks that the series' native resolution is fine enough for
// the target frequency, then resamples. The gate's verdict is returned
// alongside the result so callers can report the comparison; on refusal
// the error wraps gate.ErrInsufficientResolution.
func SafeSeries(s model.Series, freqStr string, method Method, opts freq.Options) (model.Series, gate.CheckResult, error) {
	if method == "" {
		method = DefaultMethod
	}
	desc, err := freq.ParseDescriptor(freqStr)
	if err != nil {
		return model.Series{}, gate.CheckResult{}, err
	}
	if opts.Calendar == "" {
		opts.Calendar = s.Calendar
	}

	check, err := gate.CheckSeries(s.Times(), gate.TargetFreq(freqStr), opts)
	if err != nil {
		return model.Series{}, check, err
	}
	if err := gate.Authorize(check); err != nil {
		return model.Series{}, check, err
	}

	out, err := Series(s, desc, method)
	return out, check, err
}

type bucket struct {
	start calendar.Time
	ord   float64
	vals  []float64
}

// Series groups points into desc-sized periods and reduces each group.
// NaN values are skipped in aggregation; a bucket with only NaN input
// yields NaN. Bucket timestamps are the period starts.
func Series(s model.Series, desc freq.Descriptor, method Method) (model.Series, error) {
	if len(s.Points) == 0 {
		return model.Series{}, fmt.Errorf("resample: empty input")
	}

	buckets := map[string]*bucket{}
	for i, p := range s.Points {
		start, err := periodStart(p.Time, desc)
		if err != nil {
			return model.Series{}, fmt.Errorf("resample: point %d: %w", i, err)
		}
		key := start.String()
		b, ok := buckets[key]
		if !ok {
			ord, err := start.Ordinal()
			if err != nil {
				return model.Series{}, fmt.Errorf("resample: point %d: %w", i, err)
			}
			b = &bucket{start: start, ord: ord}
			buckets[key] = b
		}
		if !math.IsNaN(p.Value) {
			b.vals = append(b.vals, p.Value)
		}
	}

	sorted := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		sorted = append(sorted, b)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ord < sorted[j].ord })

	out := model.Series{Name: s.Name, Calendar: s.Calendar, Points: make([]model.Point, 0, len(sorted))}
	for _, b := range sorted {
		val, err := reduce(b.vals, method)
		if err != nil {
			return model.Series{}, err
		}
		out.Points = append(out.Points, model.Point{Time: b.start, Value: val})
	}
	return out, nil
}

func reduce(vals []float64, method Method) (float64, error) {
	if len(vals) == 0 {
		return math.NaN(), nil
	}
	switch method {
	case MethodMean:
		return stats.Mean(vals)
	case MethodSum:
		return stats.Sum(vals)
	case MethodLast:
		return vals[len(vals)-1], nil
	case MethodMin:
		return stats.Min(vals)
	case MethodMax:
		return stats.Max(vals)
	default:
		return 0, fmt.Errorf("resample: unknown method %q (use mean, sum, last, min, max)", method)
	}
}

// periodStart returns the canonical start timestamp of the period that
// contains t. Sub-daily and daily periods are anchored at the 1970-01-01
// epoch; month and year periods align to calendar boundaries.
func periodStart(t calendar.Time, desc freq.Descriptor) (calendar.Time, error) {
	switch desc.Unit {
	case freq.UnitHour:
		return hourStart(t, desc.Step)
	case freq.UnitDay:
		return dayStart(t, desc.Step)
	case freq.UnitWeek:
		return dayStart(t, 7*desc.Step)
	case freq.UnitMonth:
		return monthStart(t, desc.Step)
	case freq.UnitQuarter:
		return monthStart(t, 3*desc.Step)
	case freq.UnitYear:
		return yearStart(t, desc.Step)
	case freq.UnitDecade:
		return yearStart(t, 10*desc.Step)
	default:
		return calendar.Time{}, fmt.Errorf("unsupported frequency unit %q", desc.Unit)
	}
}

func hourStart(t calendar.Time, step int) (calendar.Time, error) {
	switch t.Kind {
	case calendar.KindDate:
		dayOrd, err := t.Date.DayOrdinal()
		if err != nil {
			return calendar.Time{}, err
		}
		total := floorDiv(dayOrd*24+t.Date.Hour, step) * step
		d, err := calendar.FromDayOrdinal(t.Date.Calendar, float64(total)/24)
		if err != nil {
			return calendar.Time{}, err
		}
		return calendar.FromDate(d), nil
	case calendar.KindInstant:
		secs := floorDiv64(t.Instant.Unix(), int64(step)*3600) * int64(step) * 3600
		return calendar.FromInstant(time.Unix(secs, 0).UTC()), nil
	}
	return calendar.Time{}, fmt.Errorf("timestamp has no variant set")
}

func dayStart(t calendar.Time, stepDays int) (calendar.Time, error) {
	switch t.Kind {
	case calendar.KindDate:
		dayOrd, err := t.Date.DayOrdinal()
		if err != nil {
			return calendar.Time{}, err
		}
		start := floorDiv(dayOrd, stepDays) * stepDays
		d, err := calendar.FromDayOrdinal(t.Date.Calendar, float64(start))
		if err != nil {
			return calendar.Time{}, err
		}
		return calendar.FromDate(d), nil
	case calendar.KindInstant:
		day := floorDiv64(t.Instant.Unix(), 86400)
		start := floorDiv64(day, int64(stepDays)) * int64(stepDays)
		return calendar.FromInstant(time.Unix(start*86400, 0).UTC()), nil
	}
	return calendar.Time{}, fmt.Errorf("timestamp has no variant set")
}

func monthStart(t calendar.Time, stepMonths int) (calendar.Time, error) {
	switch t.Kind {
	case calendar.KindDate:
		months := t.Date.Year*12 + t.Date.Month - 1
		start := floorDiv(months, stepMonths) * stepMonths
		y := floorDiv(start, 12)
		m := start - y*12 + 1
		return calendar.FromDate(calendar.Date{Year: y, Month: m, Day: 1, Calendar: t.Date.Calendar}), nil
	case calendar.KindInstant:
		y, m, _ := t.Instant.UTC().Date()
		months := y*12 + int(m) - 1
		start := floorDiv(months, stepMonths) * stepMonths
		sy := floorDiv(start, 12)
		sm := time.Month(start - sy*12 + 1)
		return calendar.FromInstant(time.Date(sy, sm, 1, 0, 0, 0, 0, time.UTC)), nil
	}
	return calendar.Time{}, fmt.Errorf("timestamp has no variant set")
}

func yearStart(t calendar.Time, stepYears int) (calendar.Time, error) {
	switch t.Kind {
	case calendar.KindDate:
		y := floorDiv(t.Date.Year, stepYears) * stepYears
		return calendar.FromDate(calendar.Date{Year: y, Month: 1, Day: 1, Calendar: t.Date.Calendar}), nil
	case calendar.KindInstant:
		y := floorDiv(t.Instant.UTC().Year(), stepYears) * stepYears
		return calendar.FromInstant(time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)), nil
	}
	return calendar.Time{}, fmt.Errorf("timestamp has no variant set")
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorDiv64(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
