package calendar

import (
	"fmt"
	"time"
)

// Kind tags the two supported timestamp variants. The variant is decided
// once at the decode boundary; everything downstream switches exhaustively.
type Kind int

const (
	// KindDate is a fixed-calendar date (possibly non-Gregorian).
	KindDate Kind = iota + 1
	// KindInstant is an absolute instant with an implicit standard calendar.
	KindInstant
)

// Time is the tagged-union timestamp. Exactly the field matching Kind is
// meaningful; the other is the zero value.
type Time struct {
	Kind    Kind
	Date    Date      // valid when Kind == KindDate
	Instant time.Time // valid when Kind == KindInstant
}

// FromDate wraps a fixed-calendar date.
func FromDate(d Date) Time {
	return Time{Kind: KindDate, Date: d}
}

// FromInstant wraps an absolute instant (standard calendar).
func FromInstant(t time.Time) Time {
	return Time{Kind: KindInstant, Instant: t.UTC()}
}

// CalendarName returns the calendar the timestamp lives on.
func (t Time) CalendarName() string {
	if t.Kind == KindDate {
		return Normalize(t.Date.Calendar)
	}
	return Standard
}

// Ordinal converts the timestamp to a real-valued day ordinal.
func (t Time) Ordinal() (float64, error) {
	switch t.Kind {
	case KindDate:
		return t.Date.Ordinal()
	case KindInstant:
		return JulianDate(t.Instant), nil
	default:
		return 0, fmt.Errorf("%w: unset timestamp variant", ErrInvalidInput)
	}
}

// Before reports chronological order. Both timestamps must carry the same
// variant; a mixed comparison falls back to ordinal values, which is only
// meaningful within a single sequence.
func (t Time) Before(u Time) bool {
	if t.Kind == KindInstant && u.Kind == KindInstant {
		return t.Instant.Before(u.Instant)
	}
	a, errA := t.Ordinal()
	b, errB := u.Ordinal()
	if errA != nil || errB != nil {
		return false
	}
	return a < b
}

func (t Time) String() string {
	switch t.Kind {
	case KindDate:
		return t.Date.String() + " [" + t.CalendarName() + "]"
	case KindInstant:
		return t.Instant.Format(time.RFC3339)
	default:
		return "<unset>"
	}
}

// JulianDate converts an absolute instant to a Julian date (days since noon
// on 4713-01-01 BC), the continuous scale used for the instant variant.
func JulianDate(t time.Time) float64 {
	const unixEpochJD = 2440587.5
	return unixEpochJD + float64(t.UnixNano())/float64(24*time.Hour)
}

// Ordinals converts an ordered timestamp sequence into day ordinals.
// All elements must carry the same variant; the output is strictly
// increasing whenever the input is. Conversion failures are annotated with
// the failing index and wrap ErrInvalidInput.
func Ordinals(times []Time) ([]float64, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: empty sequence", ErrInvalidInput)
	}
	kind := times[0].Kind
	out := make([]float64, len(times))
	for i, t := range times {
		if t.Kind != kind {
			return nil, fmt.Errorf("timestamp %d: %w: mixed variants in sequence", i, ErrInvalidInput)
		}
		ord, err := t.Ordinal()
		if err != nil {
			return nil, fmt.Errorf("timestamp %d: %w", i, err)
		}
		out[i] = ord
	}
	return out, nil
}
