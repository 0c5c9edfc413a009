package bounds

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/dataset"
)

func datasetWithDates(t *testing.T, cal string, dates ...calendar.Date) *dataset.Dataset {
	t.Helper()
	ds := dataset.New("test")
	ds.Calendar = cal
	times := make([]calendar.Time, len(dates))
	for i, d := range dates {
		d.Calendar = cal
		times[i] = calendar.FromDate(d)
	}
	ds.Coords["time"] = &dataset.Coord{Name: "time", IsDim: true, Times: times}
	return ds
}

func monthly360(t *testing.T) *dataset.Dataset {
	t.Helper()
	return datasetWithDates(t, "360_day",
		calendar.Date{Year: 2000, Month: 1, Day: 15},
		calendar.Date{Year: 2000, Month: 2, Day: 15},
		calendar.Date{Year: 2000, Month: 3, Day: 15},
		calendar.Date{Year: 2000, Month: 4, Day: 15},
	)
}

func TestAttachNilDataset(t *testing.T) {
	if _, err := Attach(nil, MethodMean, math.NaN()); !errors.Is(err, ErrNotADataset) {
		t.Fatalf("err = %v, want ErrNotADataset", err)
	}
}

func TestAttachNoTimeCoordinate(t *testing.T) {
	ds := dataset.New("d")
	ds.Coords["lat"] = &dataset.Coord{Name: "lat", IsDim: true}
	if _, err := Attach(ds, MethodMean, math.NaN()); !errors.Is(err, ErrNoTimeCoordinate) {
		t.Fatalf("err = %v, want ErrNoTimeCoordinate", err)
	}
}

func TestAttachClimatologyPassthrough(t *testing.T) {
	ds := monthly360(t)
	warnings, err := Attach(ds, MethodClimatology, math.NaN())
	if err != nil || len(warnings) != 0 {
		t.Fatalf("Attach: %v %v", warnings, err)
	}
	if len(ds.Bounds) != 0 {
		t.Fatal("climatology must not produce bounds")
	}
}

func TestAttachInstantaneousZeroWidth(t *testing.T) {
	ds := monthly360(t)
	if _, err := Attach(ds, MethodInstantaneous, math.NaN()); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	pairs := ds.Bounds["time_bnds"]
	times := ds.Coords["time"].Times
	if len(pairs) != len(times) {
		t.Fatalf("got %d pairs, want %d", len(pairs), len(times))
	}
	for i, p := range pairs {
		if p.Lower != times[i] || p.Upper != times[i] {
			t.Fatalf("pair %d = %v, want zero-width at %v", i, p, times[i])
		}
	}
	if ds.Coords["time"].Attrs["bounds"] != "time_bnds" {
		t.Fatal("bounds attribute not set")
	}
}

func TestAttachMeanTooShort(t *testing.T) {
	ds := datasetWithDates(t, "standard", calendar.Date{Year: 2000, Month: 1, Day: 1})
	if _, err := Attach(ds, MethodMean, math.NaN()); !errors.Is(err, ErrInsufficientTimePoints) {
		t.Fatalf("err = %v, want ErrInsufficientTimePoints", err)
	}
}

func TestAttachMeanMonthlyAlignment(t *testing.T) {
	ds := monthly360(t)
	if _, err := Attach(ds, MethodMean, 30); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	pairs := ds.Bounds["time_bnds"]
	want := []struct{ loM, upM int }{{1, 2}, {2, 3}, {3, 4}, {4, 5}}
	for i, p := range pairs {
		lo, up := p.Lower.Date, p.Upper.Date
		if lo.Day != 1 || up.Day != 1 {
			t.Fatalf("pair %d not month-aligned: %v %v", i, lo, up)
		}
		if lo.Month != want[i].loM || up.Month != want[i].upM {
			t.Fatalf("pair %d months = %d..%d, want %d..%d", i, lo.Month, up.Month, want[i].loM, want[i].upM)
		}
	}
}

func TestMonthlyAlignmentDecemberRollsOver(t *testing.T) {
	ds := datasetWithDates(t, "noleap",
		calendar.Date{Year: 1999, Month: 11, Day: 16},
		calendar.Date{Year: 1999, Month: 12, Day: 16},
		calendar.Date{Year: 2000, Month: 1, Day: 16},
	)
	if _, err := Attach(ds, MethodMean, 30.5); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	up := ds.Bounds["time_bnds"][1].Upper.Date
	if up.Year != 2000 || up.Month != 1 || up.Day != 1 {
		t.Fatalf("December upper bound = %v, want 2000-01-01", up)
	}
}

func TestMonthlyAlignmentInstantVariant(t *testing.T) {
	ds := dataset.New("d")
	ds.Coords["time"] = &dataset.Coord{Name: "time", IsDim: true, Times: []calendar.Time{
		calendar.FromInstant(time.Date(2020, 1, 15, 12, 0, 0, 0, time.UTC)),
		calendar.FromInstant(time.Date(2020, 2, 15, 12, 0, 0, 0, time.UTC)),
		calendar.FromInstant(time.Date(2020, 3, 15, 12, 0, 0, 0, time.UTC)),
	}}
	if _, err := Attach(ds, MethodMean, 30); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	p := ds.Bounds["time_bnds"][0]
	if !p.Lower.Instant.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("lower = %v, want 2020-01-01", p.Lower.Instant)
	}
	if !p.Upper.Instant.Equal(time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("upper = %v, want 2020-02-01", p.Upper.Instant)
	}
}

func TestAttachMeanDailyConsecutivePairing(t *testing.T) {
	ds := datasetWithDates(t, "standard",
		calendar.Date{Year: 2000, Month: 1, Day: 1},
		calendar.Date{Year: 2000, Month: 1, Day: 2},
		calendar.Date{Year: 2000, Month: 1, Day: 3},
	)
	if _, err := Attach(ds, MethodMean, 1); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	pairs := ds.Bounds["time_bnds"]
	if len(pairs) != 3 {
		t.Fatalf("got %d pairs, want 3", len(pairs))
	}
	for i := 0; i < 2; i++ {
		if pairs[i].Upper != pairs[i+1].Lower {
			t.Fatalf("pair %d upper != pair %d lower", i, i+1)
		}
	}
	last := pairs[2].Upper.Date
	if last.Month != 1 || last.Day != 4 {
		t.Fatalf("synthetic extension = %v, want 2000-01-04", last)
	}
}

func TestAttachMeanUndeclaredIntervalFallsBack(t *testing.T) {
	// Monthly data but no declared interval: delta pairing, not month
	// alignment, so bounds sit on day 15.
	ds := monthly360(t)
	if _, err := Attach(ds, MethodMean, math.NaN()); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if got := ds.Bounds["time_bnds"][0].Lower.Date.Day; got != 15 {
		t.Fatalf("lower day = %d, want 15", got)
	}
}

func TestAttachMeanMismatchedIntervalFallsBack(t *testing.T) {
	// Declared monthly interval against daily data: no match, delta pairing.
	ds := datasetWithDates(t, "standard",
		calendar.Date{Year: 2000, Month: 1, Day: 1},
		calendar.Date{Year: 2000, Month: 1, Day: 2},
	)
	if _, err := Attach(ds, MethodMean, 30.4375); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if got := ds.Bounds["time_bnds"][1].Upper.Date.Day; got != 3 {
		t.Fatalf("extension day = %d, want 3", got)
	}
}

func TestAttachUnknownMethodWarnsAndMeans(t *testing.T) {
	ds := monthly360(t)
	warnings, err := Attach(ds, "point", 30)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one", warnings)
	}
	if len(ds.Bounds["time_bnds"]) != 4 {
		t.Fatal("unknown method should fall back to mean bounds")
	}
}

func TestAttachIdempotent(t *testing.T) {
	ds := monthly360(t)
	if _, err := Attach(ds, MethodMean, 30); err != nil {
		t.Fatalf("first Attach: %v", err)
	}
	first := append([]dataset.BoundsPair{}, ds.Bounds["time_bnds"]...)

	// Second call with different parameters must be a no-op.
	if _, err := Attach(ds, MethodInstantaneous, math.NaN()); err != nil {
		t.Fatalf("second Attach: %v", err)
	}
	if !reflect.DeepEqual(first, ds.Bounds["time_bnds"]) {
		t.Fatal("second Attach modified existing bounds")
	}
}
