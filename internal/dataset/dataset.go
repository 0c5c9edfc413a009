// Package dataset holds the minimal labeled-array container that the
// bounds generator and resampler operate on: named coordinates, data
// variables, and attributes, with the time axis discovered by convention
// rather than position.
package dataset

import (
	"fmt"

	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/freq"
	"github.com/esm-tools/cadence/internal/gate"
	"github.com/esm-tools/cadence/internal/model"
)

// Coord is a named coordinate: an ordered timestamp axis plus attributes.
type Coord struct {
	Name  string            `json:"name"`
	Times []calendar.Time   `json:"times"`
	IsDim bool              `json:"is_dim"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// BoundsPair is the (lower, upper) interval attached to one timestep.
type BoundsPair struct {
	Lower calendar.Time `json:"lower"`
	Upper calendar.Time `json:"upper"`
}

// Dataset is an in-memory labeled dataset. Coords maps coordinate names to
// axes; DataVars maps variable names to value columns aligned with the
// time axis; Bounds maps bounds-variable names ("{label}_bnds") to per-step
// interval pairs.
type Dataset struct {
	Name     string                  `json:"name"`
	Calendar string                  `json:"calendar,omitempty"`
	Coords   map[string]*Coord       `json:"coords"`
	DataVars map[string][]float64    `json:"data_vars,omitempty"`
	Bounds   map[string][]BoundsPair `json:"bounds,omitempty"`
	Attrs    map[string]string       `json:"attrs,omitempty"`
}

// New returns an empty dataset with all maps initialized.
func New(name string) *Dataset {
	return &Dataset{
		Name:     name,
		Coords:   map[string]*Coord{},
		DataVars: map[string][]float64{},
		Bounds:   map[string][]BoundsPair{},
		Attrs:    map[string]string{},
	}
}

// FromSeries wraps a flat series as a dataset with a single "time"
// dimension coordinate and one data variable named after the series.
func FromSeries(s model.Series) *Dataset {
	ds := New(s.Name)
	ds.Calendar = s.Calendar
	ds.Coords["time"] = &Coord{Name: "time", Times: s.Times(), IsDim: true}
	name := s.Name
	if name == "" {
		name = "data"
	}
	ds.DataVars[name] = s.Values()
	return ds
}

// isTimeCoord reports whether a coordinate looks like a time axis: named
// "time", or carrying axis=T or standard_name=time attributes.
func isTimeCoord(c *Coord) bool {
	if c.Name == "time" {
		return true
	}
	if c.Attrs["axis"] == "T" || c.Attrs["standard_name"] == "time" {
		return true
	}
	return false
}

// TimeLabel returns the name of the time coordinate. Dimension coordinates
// are preferred over auxiliary ones when both qualify.
func (d *Dataset) TimeLabel() (string, bool) {
	var aux string
	for name, c := range d.Coords {
		if !isTimeCoord(c) {
			continue
		}
		if c.IsDim {
			return name, true
		}
		if aux == "" {
			aux = name
		}
	}
	if aux != "" {
		return aux, true
	}
	return "", false
}

// HasTimeAxis reports whether the dataset carries a recognizable time
// coordinate.
func (d *Dataset) HasTimeAxis() bool {
	_, ok := d.TimeLabel()
	return ok
}

// TimeCoord returns the time coordinate itself.
func (d *Dataset) TimeCoord() (*Coord, error) {
	label, ok := d.TimeLabel()
	if !ok {
		return nil, fmt.Errorf("dataset %q has no time coordinate", d.Name)
	}
	return d.Coords[label], nil
}

// NeedsResampling reports whether a requested output frequency implies an
// actual resample: true when the dataset's time axis spans more than one
// target interval, i.e. first + span < last. Empty or "none" frequency
// strings mean the data is passed through at its native resolution.
func NeedsResampling(d *Dataset, freqStr string) (bool, error) {
	if d == nil || freqStr == "" || freqStr == "none" {
		return false, nil
	}
	tc, err := d.TimeCoord()
	if err != nil {
		return false, err
	}
	if len(tc.Times) < 2 {
		return false, nil
	}

	span, err := gate.ResolveTargetDays(gate.TargetFreq(freqStr), freq.ProfileFor(d.Calendar))
	if err != nil {
		return false, err
	}
	first, err := tc.Times[0].Ordinal()
	if err != nil {
		return false, err
	}
	last, err := tc.Times[len(tc.Times)-1].Ordinal()
	if err != nil {
		return false, err
	}
	return first+span < last, nil
}

// HasBounds reports whether bounds for the named coordinate already exist,
// either as a registered bounds variable or via the coordinate's "bounds"
// attribute.
func (d *Dataset) HasBounds(label string) bool {
	if _, ok := d.Bounds[label+"_bnds"]; ok {
		return true
	}
	c, ok := d.Coords[label]
	if !ok {
		return false
	}
	return c.Attrs["bounds"] != ""
}
