// Package gate implements the resampling safety check: before a series is
// aggregated to a coarser interval, the source sampling frequency is
// compared against the target, and resampling is refused when the source
// is too coarse or (in strict mode) unreliable.
package gate

import (
	"errors"
	"fmt"
	"math"

	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/freq"
)

// ErrInsufficientResolution is returned when the gate refuses a resample.
// The message is stable; callers match on the "time resolution too coarse"
// phrase.
var ErrInsufficientResolution = errors.New("time resolution too coarse for requested target interval")

// Comparison relates the source sampling interval to the target interval.
type Comparison string

const (
	ComparisonFiner        Comparison = "finer"
	ComparisonEqual        Comparison = "equal"
	ComparisonCoarser      Comparison = "coarser"
	ComparisonMissingSteps Comparison = "missing_steps"
)

// Target is the requested resampling interval: either an approximate day
// count or a frequency string. Exactly one should be set; ApproxDays is
// NaN when unset.
type Target struct {
	ApproxDays float64
	FreqStr    string
}

// TargetDays returns a Target expressed as an approximate day count.
func TargetDays(days float64) Target {
	return Target{ApproxDays: days}
}

// TargetFreq returns a Target expressed as a frequency string.
func TargetFreq(s string) Target {
	return Target{ApproxDays: math.NaN(), FreqStr: s}
}

// CheckResult is the gate's verdict.
type CheckResult struct {
	IsValidForResampling bool        `json:"is_valid_for_resampling"`
	Comparison           Comparison  `json:"comparison_status"`
	Source               freq.Result `json:"source_frequency"`
	TargetDays           float64     `json:"target_interval_days"`
}

// referenceDate anchors frequency-string targets: the target's day length
// is ordinal(ref + offset) - ordinal(ref) on the requested calendar, so
// "M" resolves to that calendar's true month length, not a constant.
func referenceDate(cal string) calendar.Date {
	return calendar.Date{Year: 1970, Month: 1, Day: 1, Calendar: calendar.Normalize(cal)}
}

// ResolveTargetDays converts a target into an equivalent day length under
// the given profile.
func ResolveTargetDays(target Target, profile freq.Profile) (float64, error) {
	if !math.IsNaN(target.ApproxDays) && target.ApproxDays > 0 {
		return target.ApproxDays, nil
	}
	if target.FreqStr == "" {
		return 0, fmt.Errorf("no target interval: supply an approximate day count or a frequency string")
	}

	desc, err := freq.ParseDescriptor(target.FreqStr)
	if err != nil {
		return 0, err
	}

	ref := referenceDate(profile.Calendar)
	if !calendar.Known(profile.Calendar) {
		// No exact arithmetic for unknown calendars; size by mean lengths.
		return profile.Days(desc), nil
	}

	var shifted calendar.Date
	switch desc.Unit {
	case freq.UnitHour:
		return float64(desc.Step) / 24, nil
	case freq.UnitDay:
		return float64(desc.Step), nil
	case freq.UnitWeek:
		return float64(desc.Step) * 7, nil
	case freq.UnitMonth:
		shifted = calendar.AddMonths(ref, desc.Step)
	case freq.UnitQuarter:
		shifted = calendar.AddMonths(ref, 3*desc.Step)
	case freq.UnitYear:
		shifted = calendar.AddYears(ref, desc.Step)
	case freq.UnitDecade:
		shifted = calendar.AddYears(ref, 10*desc.Step)
	default:
		return 0, fmt.Errorf("unsupported target unit %q", desc.Unit)
	}

	a, err := ref.Ordinal()
	if err != nil {
		return 0, err
	}
	b, err := shifted.Ordinal()
	if err != nil {
		return 0, err
	}
	return b - a, nil
}

// Check compares an already-inferred source frequency against the target
// interval. The comparison allows a relative tolerance: within tol of the
// target is "equal", strictly below is "finer", above is "coarser".
//
// Strict mode refuses sources whose status is missing_steps (comparison is
// forced to missing_steps: gaps make the declared frequency unreliable
// regardless of its nominal value) or irregular.
func Check(source freq.Result, target Target, profile freq.Profile, tol float64, strict bool) (CheckResult, error) {
	if tol <= 0 {
		tol = freq.DefaultTol
	}

	targetDays, err := ResolveTargetDays(target, profile)
	if err != nil {
		return CheckResult{}, err
	}

	out := CheckResult{Source: source, TargetDays: targetDays}

	if math.IsNaN(source.DeltaDays) {
		return out, fmt.Errorf("source frequency unknown (status %q): cannot compare against target", source.Status)
	}

	if strict && source.Status == freq.StatusMissingSteps {
		out.Comparison = ComparisonMissingSteps
		return out, nil
	}

	switch {
	case math.Abs(source.DeltaDays-targetDays) <= tol*targetDays:
		out.Comparison = ComparisonEqual
	case source.DeltaDays < targetDays:
		out.Comparison = ComparisonFiner
	default:
		out.Comparison = ComparisonCoarser
	}

	permitted := out.Comparison == ComparisonFiner || out.Comparison == ComparisonEqual
	if strict && (source.Status == freq.StatusIrregular || source.Status == freq.StatusMissingSteps) {
		permitted = false
	}
	out.IsValidForResampling = permitted
	return out, nil
}

// CheckSeries infers the source frequency from raw timestamps and runs
// Check. The inference inherits opts (tolerance, strictness, calendar,
// diagnostic sink).
func CheckSeries(times []calendar.Time, target Target, opts freq.Options) (CheckResult, error) {
	source := freq.Infer(times, opts)
	return Check(source, target, freq.ProfileFor(opts.Calendar), opts.Tol, opts.Strict)
}

// Authorize returns nil when the check permits resampling, and an error
// wrapping ErrInsufficientResolution otherwise.
func Authorize(check CheckResult) error {
	if check.IsValidForResampling {
		return nil
	}
	return fmt.Errorf("%w: source interval %.4f days vs target %.4f days (%s)",
		ErrInsufficientResolution, check.Source.DeltaDays, check.TargetDays, check.Comparison)
}
