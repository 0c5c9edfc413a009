// Package freq implements sampling-frequency inference for calendar-aware
// time axes: a tolerance-based matcher that classifies timestamp spacing
// into a canonical frequency descriptor, and a regularity classifier that
// separates exact series from irregular ones and ones with missing steps.
// All functions are pure; no I/O beyond an optional injected logger.
package freq

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is a canonical frequency base unit.
type Unit string

const (
	UnitHour    Unit = "H"
	UnitDay     Unit = "D"
	UnitWeek    Unit = "W"
	UnitMonth   Unit = "M"
	UnitQuarter Unit = "Q"
	UnitYear    Unit = "A"
	UnitDecade  Unit = "10A"
)

// matchOrder is the fixed candidate order: finer units win ties.
var matchOrder = []Unit{UnitHour, UnitDay, UnitWeek, UnitMonth, UnitQuarter, UnitYear, UnitDecade}

// Step bounds for the matcher and the descriptor parser.
const (
	minStep = 1
	maxStep = 12
)

// Descriptor is an immutable (unit, step) pair describing a regular
// sampling interval, e.g. {M,1} = monthly, {M,3} = every three months.
type Descriptor struct {
	Unit Unit
	Step int
}

// String renders the pandas-style frequency string: "3M" when Step > 1,
// otherwise just the unit code.
func (d Descriptor) String() string {
	if d.Step > 1 {
		return strconv.Itoa(d.Step) + string(d.Unit)
	}
	return string(d.Unit)
}

// ParseDescriptor parses "{optional step}{unit code}" frequency strings.
// No step prefix implies step 1. Steps outside [1,12] are rejected.
func ParseDescriptor(s string) (Descriptor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Descriptor{}, fmt.Errorf("empty frequency string")
	}

	// "10A" is a unit code, not step 10 of unit A.
	if s == string(UnitDecade) {
		return Descriptor{Unit: UnitDecade, Step: 1}, nil
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	step := 1
	if i > 0 {
		n, err := strconv.Atoi(s[:i])
		if err != nil || n < minStep || n > maxStep {
			return Descriptor{}, fmt.Errorf("invalid step in frequency %q: expected integer in [%d,%d]", s, minStep, maxStep)
		}
		step = n
	}

	unit := Unit(s[i:])
	switch unit {
	case UnitHour, UnitDay, UnitWeek, UnitMonth, UnitQuarter, UnitYear, UnitDecade:
		return Descriptor{Unit: unit, Step: step}, nil
	default:
		return Descriptor{}, fmt.Errorf("unknown frequency unit %q in %q (use H, D, W, M, Q, A, 10A)", s[i:], s)
	}
}
