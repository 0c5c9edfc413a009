package freq

import "github.com/esm-tools/cadence/internal/calendar"

// Profile maps a calendar to its mean year length in days. It sizes the
// month/quarter/year/decade candidate frequencies; individual dates are
// never converted through it.
type Profile struct {
	Calendar string
	YearDays float64
}

// ProfileFor returns the profile for a named calendar.
// Unknown calendars default to the standard 365.25-day year.
func ProfileFor(cal string) Profile {
	name := calendar.Normalize(cal)
	yd := 365.25
	switch name {
	case calendar.NoLeap:
		yd = 365.0
	case calendar.AllLeap:
		yd = 366.0
	case calendar.Day360:
		yd = 360.0
	}
	return Profile{Calendar: name, YearDays: yd}
}

// BaseDays returns the candidate interval length in days for one step of
// the given unit under this profile.
func (p Profile) BaseDays(u Unit) float64 {
	switch u {
	case UnitHour:
		return 1.0 / 24
	case UnitDay:
		return 1
	case UnitWeek:
		return 7
	case UnitMonth:
		return p.YearDays / 12
	case UnitQuarter:
		return p.YearDays / 4
	case UnitYear:
		return p.YearDays
	case UnitDecade:
		return p.YearDays * 10
	default:
		return 0
	}
}

// Days returns the interval length in days for a full descriptor.
func (p Profile) Days(d Descriptor) float64 {
	return p.BaseDays(d.Unit) * float64(d.Step)
}
