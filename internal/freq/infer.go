package freq

import (
	"encoding/json"
	"log/slog"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/esm-tools/cadence/internal/calendar"
)

// Tolerance defaults. The relaxed pass runs only when the primary pass
// finds no candidate, so genuinely irregular data still gets a nearest
// descriptor before classification marks it irregular.
const (
	DefaultTol = 0.05
	relaxedTol = 0.5
)

// Status classifies the outcome of a frequency inference.
type Status string

const (
	StatusValid        Status = "valid"
	StatusIrregular    Status = "irregular"
	StatusMissingSteps Status = "missing_steps"
	StatusTooShort     Status = "too_short"
	StatusNoMatch      Status = "no_match"
	StatusInvalidInput Status = "invalid_input"
)

// Options controls a frequency inference run.
type Options struct {
	// Tol is the relative tolerance for delta comparisons. Zero means
	// DefaultTol.
	Tol float64
	// Strict enables the per-element deviation and step-count checks that
	// separate irregular series from regular series with missing steps.
	Strict bool
	// Calendar names the calendar used to size month/quarter/year
	// candidates. Empty means standard.
	Calendar string
	// Logger receives a diagnostic record per inference. Nil means silent;
	// the engine never writes to the console on its own.
	Logger *slog.Logger
}

func (o Options) tol() float64 {
	if o.Tol > 0 {
		return o.Tol
	}
	return DefaultTol
}

// Result is the full record of a frequency inference. It is immutable and
// freshly constructed per call. IsExact is true exactly when Status is
// StatusValid; newResult is the only constructor, so the two fields cannot
// drift apart.
type Result struct {
	Frequency *Descriptor // nil when no frequency matched
	DeltaDays float64     // median delta in days; NaN when not computed
	StdDays   float64     // population stddev of deltas; NaN when not computed
	Step      int         // step multiplier; 0 when no frequency matched
	IsExact   bool
	Status    Status
	Detail    string // conversion error text for StatusInvalidInput
}

func newResult(desc *Descriptor, delta, std float64, status Status, detail string) Result {
	step := 0
	if desc != nil {
		step = desc.Step
	}
	return Result{
		Frequency: desc,
		DeltaDays: delta,
		StdDays:   std,
		Step:      step,
		IsExact:   status == StatusValid,
		Status:    status,
		Detail:    detail,
	}
}

// Freq returns the frequency string ("M", "3D", ...) or "" when no
// frequency matched. Convenience accessor for callers that only need the
// string form.
func (r Result) Freq() string {
	if r.Frequency == nil {
		return ""
	}
	return r.Frequency.String()
}

// MarshalJSON encodes NaN numeric fields as null, matching the JSONL
// conventions used throughout the pipe format.
func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Frequency *string  `json:"frequency"`
		DeltaDays *float64 `json:"delta_days"`
		StdDays   *float64 `json:"std_days"`
		Step      *int     `json:"step"`
		IsExact   bool     `json:"is_exact"`
		Status    Status   `json:"status"`
		Detail    string   `json:"detail,omitempty"`
	}{IsExact: r.IsExact, Status: r.Status, Detail: r.Detail}

	if r.Frequency != nil {
		s := r.Frequency.String()
		out.Frequency = &s
		step := r.Step
		out.Step = &step
	}
	if !math.IsNaN(r.DeltaDays) {
		v := r.DeltaDays
		out.DeltaDays = &v
	}
	if !math.IsNaN(r.StdDays) {
		v := r.StdDays
		out.StdDays = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON: null numeric fields decode
// as NaN and the IsExact/Status invariant is re-established through the
// constructor rather than trusting the stored pair.
func (r *Result) UnmarshalJSON(data []byte) error {
	var in struct {
		Frequency *string  `json:"frequency"`
		DeltaDays *float64 `json:"delta_days"`
		StdDays   *float64 `json:"std_days"`
		Status    Status   `json:"status"`
		Detail    string   `json:"detail"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var desc *Descriptor
	if in.Frequency != nil {
		d, err := ParseDescriptor(*in.Frequency)
		if err != nil {
			return err
		}
		desc = &d
	}
	delta, std := math.NaN(), math.NaN()
	if in.DeltaDays != nil {
		delta = *in.DeltaDays
	}
	if in.StdDays != nil {
		std = *in.StdDays
	}
	*r = newResult(desc, delta, std, in.Status, in.Detail)
	return nil
}

// ─── Inference ────────────────────────────────────────────────────────────────

// Infer classifies the spacing of a timestamp sequence into a canonical
// frequency descriptor with a regularity verdict. All classification
// ambiguity is returned as data in the Status field; Infer never returns a
// Go error. Series shorter than 2 points report StatusTooShort before any
// conversion is attempted.
func Infer(times []calendar.Time, opts Options) Result {
	if len(times) < 2 {
		return opts.report(newResult(nil, math.NaN(), math.NaN(), StatusTooShort, ""))
	}

	ords, err := calendar.Ordinals(times)
	if err != nil {
		return opts.report(newResult(nil, math.NaN(), math.NaN(), StatusInvalidInput, err.Error()))
	}
	return InferOrdinals(ords, opts)
}

// InferOrdinals runs the matcher and classifier on precomputed ordinals.
func InferOrdinals(ords []float64, opts Options) Result {
	if len(ords) < 2 {
		return opts.report(newResult(nil, math.NaN(), math.NaN(), StatusTooShort, ""))
	}

	deltas := Deltas(ords)
	median, _ := stats.Median(deltas)
	std, _ := stats.StandardDeviationPopulation(deltas)

	profile := ProfileFor(opts.Calendar)
	tol := opts.tol()

	desc, ok := match(median, profile, tol)
	if !ok {
		// Relaxed pass: nearest descriptor for loosely spaced data.
		desc, ok = match(median, profile, relaxedTol)
	}
	if !ok {
		return opts.report(newResult(nil, median, std, StatusNoMatch, ""))
	}

	status := classify(desc, ords, deltas, median, std, profile, tol, opts.Strict)
	return opts.report(newResult(&desc, median, std, status, ""))
}

// Deltas returns the successive differences of an ordinal array.
func Deltas(ords []float64) []float64 {
	out := make([]float64, len(ords)-1)
	for i := range out {
		out[i] = ords[i+1] - ords[i]
	}
	return out
}

// match scans candidate units in the fixed H→10A order, steps 1..12, and
// returns the first descriptor whose interval is within tol of the median
// delta. First-unit-first-step wins: the ordering deliberately favors
// finer units on ambiguous boundaries.
func match(median float64, p Profile, tol float64) (Descriptor, bool) {
	for _, unit := range matchOrder {
		base := p.BaseDays(unit)
		for step := minStep; step <= maxStep; step++ {
			test := base * float64(step)
			if math.Abs(median-test) <= tol*test {
				return Descriptor{Unit: unit, Step: step}, true
			}
		}
	}
	return Descriptor{}, false
}

// classify decides valid/irregular/missing_steps for a matched descriptor.
//
// In strict mode the step-count check runs after, and unconditionally
// overrides, the per-element check: a gappy-but-regular series reports
// missing_steps even when individual deltas also exceed tolerance.
func classify(desc Descriptor, ords, deltas []float64, median, std float64, p Profile, tol float64, strict bool) Status {
	interval := p.Days(desc)

	status := StatusIrregular
	if std < tol*interval {
		status = StatusValid
	}

	if strict {
		for _, d := range deltas {
			if math.Abs(d-median) > tol*median {
				status = StatusIrregular
				break
			}
		}
		expected := (ords[len(ords)-1] - ords[0]) / interval
		actual := float64(len(ords) - 1)
		if math.Abs(expected-actual) >= 1 {
			status = StatusMissingSteps
		}
	}
	return status
}

// report emits the diagnostic record through the injected logger, if any,
// and passes the result through unchanged.
func (o Options) report(r Result) Result {
	if o.Logger == nil {
		return r
	}
	o.Logger.Info("frequency check",
		slog.String("frequency", orNone(r.Freq())),
		slog.Int("step", r.Step),
		slog.Float64("median_delta_days", r.DeltaDays),
		slog.Bool("exact", r.IsExact),
		slog.Bool("strict", o.Strict),
		slog.String("status", string(r.Status)),
	)
	return r
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
