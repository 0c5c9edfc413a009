package dataset

import (
	"testing"
	"time"

	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/model"
)

func TestFromSeries(t *testing.T) {
	s := model.Series{
		Name:     "tas",
		Calendar: "noleap",
		Points: []model.Point{
			{Time: calendar.FromDate(calendar.Date{Year: 2000, Month: 1, Day: 1, Calendar: "noleap"}), Value: 1},
			{Time: calendar.FromDate(calendar.Date{Year: 2000, Month: 2, Day: 1, Calendar: "noleap"}), Value: 2},
		},
	}
	ds := FromSeries(s)

	label, ok := ds.TimeLabel()
	if !ok || label != "time" {
		t.Fatalf("TimeLabel = %q/%v, want time/true", label, ok)
	}
	if !ds.HasTimeAxis() {
		t.Fatal("HasTimeAxis = false")
	}
	if got := len(ds.Coords["time"].Times); got != 2 {
		t.Fatalf("time axis length = %d, want 2", got)
	}
	if got := ds.DataVars["tas"]; len(got) != 2 || got[1] != 2 {
		t.Fatalf("data var = %v", got)
	}
}

func TestTimeLabelPrefersDimensionCoord(t *testing.T) {
	ds := New("d")
	ds.Coords["time_centered"] = &Coord{
		Name:  "time_centered",
		Attrs: map[string]string{"standard_name": "time"},
	}
	ds.Coords["time_counter"] = &Coord{
		Name:  "time_counter",
		IsDim: true,
		Attrs: map[string]string{"axis": "T"},
	}

	label, ok := ds.TimeLabel()
	if !ok || label != "time_counter" {
		t.Fatalf("TimeLabel = %q/%v, want time_counter/true", label, ok)
	}
}

func TestTimeLabelFallsBackToAuxiliaryCoord(t *testing.T) {
	ds := New("d")
	ds.Coords["time_centered"] = &Coord{
		Name:  "time_centered",
		Attrs: map[string]string{"axis": "T"},
	}
	label, ok := ds.TimeLabel()
	if !ok || label != "time_centered" {
		t.Fatalf("TimeLabel = %q/%v, want time_centered/true", label, ok)
	}
}

func TestTimeLabelMissing(t *testing.T) {
	ds := New("d")
	ds.Coords["lat"] = &Coord{Name: "lat", IsDim: true}
	if _, ok := ds.TimeLabel(); ok {
		t.Fatal("expected no time label")
	}
	if _, err := ds.TimeCoord(); err == nil {
		t.Fatal("TimeCoord: expected error")
	}
}

func TestNeedsResampling(t *testing.T) {
	// Three years of monthly 360_day data: 2000-01-01 .. 2002-12-01.
	ds := New("tas")
	ds.Calendar = calendar.Day360
	var times []calendar.Time
	for i := 0; i < 36; i++ {
		times = append(times, calendar.FromDate(calendar.Date{
			Year: 2000 + i/12, Month: i%12 + 1, Day: 1, Calendar: calendar.Day360,
		}))
	}
	ds.Coords["time"] = &Coord{Name: "time", IsDim: true, Times: times}

	for _, f := range []string{"", "none"} {
		ok, err := NeedsResampling(ds, f)
		if err != nil {
			t.Fatalf("NeedsResampling(%q): %v", f, err)
		}
		if ok {
			t.Errorf("%q frequency must not require resampling", f)
		}
	}

	// Axis spans 1050 days; an annual interval fits inside it.
	ok, err := NeedsResampling(ds, "A")
	if err != nil {
		t.Fatalf("NeedsResampling(A): %v", err)
	}
	if !ok {
		t.Error("annual target inside a 3-year axis should require resampling")
	}

	// A decade reaches past the axis end: nothing to aggregate.
	ok, err = NeedsResampling(ds, "10A")
	if err != nil {
		t.Fatalf("NeedsResampling(10A): %v", err)
	}
	if ok {
		t.Error("decadal target beyond the axis end must not require resampling")
	}

	if _, err := NeedsResampling(ds, "bogus"); err == nil {
		t.Error("expected error for unparseable frequency string")
	}

	ok, err = NeedsResampling(nil, "M")
	if err != nil || ok {
		t.Errorf("nil dataset: expected (false, nil), got (%t, %v)", ok, err)
	}
}

func TestNeedsResamplingShortAxis(t *testing.T) {
	ds := New("tas")
	ds.Calendar = calendar.NoLeap
	ds.Coords["time"] = &Coord{Name: "time", IsDim: true, Times: []calendar.Time{
		calendar.FromDate(calendar.Date{Year: 2000, Month: 1, Day: 1, Calendar: calendar.NoLeap}),
	}}
	ok, err := NeedsResampling(ds, "M")
	if err != nil {
		t.Fatalf("NeedsResampling: %v", err)
	}
	if ok {
		t.Error("a single timestamp can never require resampling")
	}
}

func TestHasBounds(t *testing.T) {
	ds := New("d")
	ds.Coords["time"] = &Coord{
		Name:  "time",
		IsDim: true,
		Times: []calendar.Time{calendar.FromInstant(time.Unix(0, 0))},
	}
	if ds.HasBounds("time") {
		t.Fatal("fresh dataset should have no bounds")
	}

	ds.Bounds["time_bnds"] = []BoundsPair{}
	if !ds.HasBounds("time") {
		t.Fatal("registered bounds variable not detected")
	}

	ds2 := New("d2")
	ds2.Coords["time"] = &Coord{Name: "time", IsDim: true, Attrs: map[string]string{"bounds": "time_bnds"}}
	if !ds2.HasBounds("time") {
		t.Fatal("bounds attribute not detected")
	}
}
