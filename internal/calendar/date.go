// Package calendar implements fixed-calendar date arithmetic and the
// conversion of heterogeneous timestamps to a comparable day-ordinal scale.
// Climate model output uses non-Gregorian calendars (360-day, no-leap), so
// time.Time alone cannot represent every timestamp this tool sees.
package calendar

import (
	"errors"
	"fmt"
	"math"
)

// Canonical calendar names. Aliases are folded by Normalize.
const (
	Standard = "standard"
	NoLeap   = "noleap"
	AllLeap  = "all_leap"
	Day360   = "360_day"
)

// ErrInvalidInput marks a timestamp that cannot be converted to an ordinal
// (bad calendar field, out-of-range date). Callers match with errors.Is.
var ErrInvalidInput = errors.New("invalid timestamp")

// Date is a fixed-calendar instant: civil fields plus a named calendar
// system. The zero value is not a valid date (month and day start at 1).
type Date struct {
	Year     int
	Month    int // 1..12
	Day      int // 1..days-in-month for the calendar
	Hour     int // 0..23
	Minute   int // 0..59
	Second   int // 0..59
	Calendar string
}

// Normalize folds calendar-name aliases onto the canonical names.
// Unknown names are returned unchanged; callers treat them as approximate.
func Normalize(name string) string {
	switch name {
	case "", Standard, "gregorian", "proleptic_gregorian":
		return Standard
	case NoLeap, "365_day":
		return NoLeap
	case AllLeap, "366_day":
		return AllLeap
	case Day360:
		return Day360
	default:
		return name
	}
}

// Known reports whether name maps to a calendar with exact day arithmetic.
func Known(name string) bool {
	switch Normalize(name) {
	case Standard, NoLeap, AllLeap, Day360:
		return true
	}
	return false
}

// Cumulative days before each month, non-leap and leap year variants.
var (
	cumDays     = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}
	cumDaysLeap = [12]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335}
)

func isGregorianLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the month length for the given calendar and year.
// Unknown calendars fall back to standard month lengths.
func DaysInMonth(cal string, year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	switch Normalize(cal) {
	case Day360:
		return 30
	case NoLeap:
		return monthLen(false, month)
	case AllLeap:
		return monthLen(true, month)
	default:
		return monthLen(isGregorianLeap(year), month)
	}
}

func monthLen(leap bool, month int) int {
	if month == 12 {
		if leap {
			return 366 - cumDaysLeap[11]
		}
		return 365 - cumDays[11]
	}
	if leap {
		return cumDaysLeap[month] - cumDaysLeap[month-1]
	}
	return cumDays[month] - cumDays[month-1]
}

// Validate checks all civil fields against the date's calendar.
func (d Date) Validate() error {
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidInput, d.Month)
	}
	if max := DaysInMonth(d.Calendar, d.Year, d.Month); d.Day < 1 || d.Day > max {
		return fmt.Errorf("%w: day %d out of range for %s month %d",
			ErrInvalidInput, d.Day, Normalize(d.Calendar), d.Month)
	}
	if d.Hour < 0 || d.Hour > 23 || d.Minute < 0 || d.Minute > 59 || d.Second < 0 || d.Second > 59 {
		return fmt.Errorf("%w: time %02d:%02d:%02d out of range",
			ErrInvalidInput, d.Hour, d.Minute, d.Second)
	}
	return nil
}

// ─── Day Ordinals ─────────────────────────────────────────────────────────────

// DayOrdinal returns the whole-day ordinal of the date: days since the
// calendar's fixed reference (1970-01-01), ignoring the time of day.
// Unknown calendars have no exact day arithmetic and return an error;
// callers fall back to ApproxOrdinal.
func (d Date) DayOrdinal() (int, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	switch Normalize(d.Calendar) {
	case Standard:
		return gregorianDays(d.Year, d.Month, d.Day), nil
	case NoLeap:
		return (d.Year-1970)*365 + cumDays[d.Month-1] + d.Day - 1, nil
	case AllLeap:
		return (d.Year-1970)*366 + cumDaysLeap[d.Month-1] + d.Day - 1, nil
	case Day360:
		return (d.Year-1970)*360 + (d.Month-1)*30 + d.Day - 1, nil
	default:
		return 0, fmt.Errorf("%w: no day ordinal for calendar %q", ErrInvalidInput, d.Calendar)
	}
}

// fracDay is the time-of-day fraction: hour/24 + minute/1440 + second/86400.
func (d Date) fracDay() float64 {
	return float64(d.Hour)/24 + float64(d.Minute)/1440 + float64(d.Second)/86400
}

// Ordinal returns the real-valued day ordinal, lossless to second precision.
// For unknown calendars it degrades to the approximate linear combination
// year*365.25 + month*30.4375 + day + fraction, which preserves ordering for
// same-calendar sequences.
func (d Date) Ordinal() (float64, error) {
	day, err := d.DayOrdinal()
	if err == nil {
		return float64(day) + d.fracDay(), nil
	}
	if verr := d.Validate(); verr != nil {
		return 0, verr
	}
	return float64(d.Year)*365.25 + float64(d.Month)*30.4375 + float64(d.Day) + d.fracDay(), nil
}

// FromDayOrdinal is the inverse of Ordinal for known calendars: it converts
// a real-valued day ordinal back into a Date, rounding the time of day to
// the nearest second.
func FromDayOrdinal(cal string, ord float64) (Date, error) {
	if !Known(cal) {
		return Date{}, fmt.Errorf("%w: cannot build %q date from ordinal", ErrInvalidInput, cal)
	}
	day := int(math.Floor(ord))
	frac := ord - math.Floor(ord)

	secs := int(frac*86400 + 0.5)
	if secs >= 86400 {
		secs -= 86400
		day++
	}

	var d Date
	switch Normalize(cal) {
	case Standard:
		y, m, dd := gregorianCivil(day)
		d = Date{Year: y, Month: m, Day: dd}
	case NoLeap:
		d = civilFromFixedYear(day, 365, cumDays[:])
	case AllLeap:
		d = civilFromFixedYear(day, 366, cumDaysLeap[:])
	case Day360:
		y := 1970 + floorDiv(day, 360)
		doy := day - (y-1970)*360
		d = Date{Year: y, Month: doy/30 + 1, Day: doy%30 + 1}
	}
	d.Calendar = Normalize(cal)
	d.Hour = secs / 3600
	d.Minute = secs % 3600 / 60
	d.Second = secs % 60
	return d, nil
}

// civilFromFixedYear inverts the fixed-year-length ordinal formulas
// (noleap and all_leap calendars).
func civilFromFixedYear(day, yearDays int, cum []int) Date {
	y := 1970 + floorDiv(day, yearDays)
	doy := day - (y-1970)*yearDays
	m := 12
	for i := 1; i < 12; i++ {
		if doy < cum[i] {
			m = i
			break
		}
	}
	return Date{Year: y, Month: m, Day: doy - cum[m-1] + 1}
}

// gregorianDays converts a proleptic Gregorian civil date to days since
// 1970-01-01 (negative before the epoch). Valid across the full int range.
func gregorianDays(y, m, d int) int {
	if m <= 2 {
		y--
	}
	era := floorDiv(y, 400)
	yoe := y - era*400
	var mp int
	if m > 2 {
		mp = m - 3
	} else {
		mp = m + 9
	}
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

// gregorianCivil is the inverse of gregorianDays.
func gregorianCivil(days int) (y, m, d int) {
	z := days + 719468
	era := floorDiv(z, 146097)
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d = doy - (153*mp+2)/5 + 1
	if mp < 10 {
		m = mp + 3
	} else {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return y, m, d
}

// ─── Month and Year Arithmetic ────────────────────────────────────────────────

// MonthStart returns midnight on the first day of the date's month.
func MonthStart(d Date) Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1, Calendar: Normalize(d.Calendar)}
}

// NextMonthStart returns midnight on the first day of the following month,
// rolling the year over at December.
func NextMonthStart(d Date) Date {
	y, m := d.Year, d.Month+1
	if m > 12 {
		y, m = y+1, 1
	}
	return Date{Year: y, Month: m, Day: 1, Calendar: Normalize(d.Calendar)}
}

// AddMonths advances the date by n calendar months, clamping the day to the
// target month's length (1996-01-31 + 1M = 1996-02-29 on standard).
func AddMonths(d Date, n int) Date {
	total := d.Year*12 + (d.Month - 1) + n
	y := floorDiv(total, 12)
	m := total - y*12 + 1
	out := d
	out.Year, out.Month = y, m
	if max := DaysInMonth(d.Calendar, y, m); out.Day > max {
		out.Day = max
	}
	return out
}

// AddYears advances the date by n calendar years, clamping Feb 29.
func AddYears(d Date, n int) Date {
	return AddMonths(d, n*12)
}

// AddDays advances the date by a (possibly fractional) number of days using
// the exact ordinal round trip. Only available for known calendars.
func AddDays(d Date, days float64) (Date, error) {
	ord, err := d.Ordinal()
	if err != nil {
		return Date{}, err
	}
	if !Known(d.Calendar) {
		return Date{}, fmt.Errorf("%w: cannot add days on calendar %q", ErrInvalidInput, d.Calendar)
	}
	return FromDayOrdinal(d.Calendar, ord+days)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
}

// ─── Small helpers ────────────────────────────────────────────────────────────

// floorDiv is integer division rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
