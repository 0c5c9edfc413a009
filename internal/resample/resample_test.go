package resample

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/freq"
	"github.com/esm-tools/cadence/internal/gate"
	"github.com/esm-tools/cadence/internal/model"
)

func dailySeries(t *testing.T, cal string, year, month int, days int) model.Series {
	t.Helper()
	s := model.Series{Name: "tas", Calendar: cal}
	for d := 1; d <= days; d++ {
		s.Points = append(s.Points, model.Point{
			Time:  calendar.FromDate(calendar.Date{Year: year, Month: month, Day: d, Calendar: cal}),
			Value: float64(d),
		})
	}
	return s
}

func mustDesc(t *testing.T, s string) freq.Descriptor {
	t.Helper()
	d, err := freq.ParseDescriptor(s)
	if err != nil {
		t.Fatalf("ParseDescriptor(%s): %v", s, err)
	}
	return d
}

func TestSeriesDailyToMonthlyMean(t *testing.T) {
	s := dailySeries(t, "360_day", 2000, 1, 30)
	for d := 1; d <= 30; d++ {
		s.Points = append(s.Points, model.Point{
			Time:  calendar.FromDate(calendar.Date{Year: 2000, Month: 2, Day: d, Calendar: "360_day"}),
			Value: 100,
		})
	}

	out, err := Series(s, mustDesc(t, "M"), MethodMean)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(out.Points) != 2 {
		t.Fatalf("got %d buckets, want 2", len(out.Points))
	}
	jan := out.Points[0]
	if jan.Time.Date.Month != 1 || jan.Time.Date.Day != 1 {
		t.Fatalf("January bucket start = %v, want month start", jan.Time.Date)
	}
	if jan.Value != 15.5 {
		t.Fatalf("January mean = %v, want 15.5", jan.Value)
	}
	if out.Points[1].Value != 100 {
		t.Fatalf("February mean = %v, want 100", out.Points[1].Value)
	}
}

func TestSeriesQuarterBuckets(t *testing.T) {
	s := model.Series{Name: "x", Calendar: "standard"}
	for m := 1; m <= 6; m++ {
		s.Points = append(s.Points, model.Point{
			Time:  calendar.FromDate(calendar.Date{Year: 2001, Month: m, Day: 15, Calendar: "standard"}),
			Value: float64(m),
		})
	}

	out, err := Series(s, mustDesc(t, "Q"), MethodSum)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(out.Points) != 2 {
		t.Fatalf("got %d buckets, want 2", len(out.Points))
	}
	if out.Points[0].Value != 1+2+3 || out.Points[1].Value != 4+5+6 {
		t.Fatalf("quarter sums = %v, %v", out.Points[0].Value, out.Points[1].Value)
	}
	if out.Points[1].Time.Date.Month != 4 {
		t.Fatalf("Q2 start month = %d, want 4", out.Points[1].Time.Date.Month)
	}
}

func TestSeriesMultiStepMonths(t *testing.T) {
	s := model.Series{Name: "x", Calendar: "noleap"}
	for m := 1; m <= 12; m++ {
		s.Points = append(s.Points, model.Point{
			Time:  calendar.FromDate(calendar.Date{Year: 2000, Month: m, Day: 1, Calendar: "noleap"}),
			Value: 1,
		})
	}
	out, err := Series(s, mustDesc(t, "3M"), MethodSum)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(out.Points) != 4 {
		t.Fatalf("got %d buckets, want 4", len(out.Points))
	}
	for i, p := range out.Points {
		if p.Value != 3 {
			t.Fatalf("bucket %d sum = %v, want 3", i, p.Value)
		}
	}
}

func TestSeriesInstantVariantAnnual(t *testing.T) {
	s := model.Series{Name: "x"}
	for m := 1; m <= 12; m++ {
		s.Points = append(s.Points, model.Point{
			Time:  calendar.FromInstant(time.Date(2020, time.Month(m), 1, 0, 0, 0, 0, time.UTC)),
			Value: 2,
		})
	}
	out, err := Series(s, mustDesc(t, "A"), MethodMean)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(out.Points) != 1 {
		t.Fatalf("got %d buckets, want 1", len(out.Points))
	}
	start := out.Points[0].Time.Instant
	if !start.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("bucket start = %v, want 2020-01-01", start)
	}
	if out.Points[0].Value != 2 {
		t.Fatalf("mean = %v, want 2", out.Points[0].Value)
	}
}

func TestSeriesLastMinMax(t *testing.T) {
	s := dailySeries(t, "standard", 2000, 1, 5)

	for _, tc := range []struct {
		method Method
		want   float64
	}{{MethodLast, 5}, {MethodMin, 1}, {MethodMax, 5}} {
		out, err := Series(s, mustDesc(t, "M"), tc.method)
		if err != nil {
			t.Fatalf("Series(%s): %v", tc.method, err)
		}
		if out.Points[0].Value != tc.want {
			t.Errorf("%s = %v, want %v", tc.method, out.Points[0].Value, tc.want)
		}
	}
}

func TestSeriesSkipsNaN(t *testing.T) {
	s := dailySeries(t, "standard", 2000, 1, 4)
	s.Points[1].Value = math.NaN()

	out, err := Series(s, mustDesc(t, "M"), MethodMean)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if want := (1.0 + 3 + 4) / 3; out.Points[0].Value != want {
		t.Fatalf("mean = %v, want %v", out.Points[0].Value, want)
	}
}

func TestSeriesAllNaNBucket(t *testing.T) {
	s := dailySeries(t, "standard", 2000, 1, 2)
	s.Points[0].Value = math.NaN()
	s.Points[1].Value = math.NaN()

	out, err := Series(s, mustDesc(t, "M"), MethodMean)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if !math.IsNaN(out.Points[0].Value) {
		t.Fatalf("all-NaN bucket = %v, want NaN", out.Points[0].Value)
	}
}

func TestSeriesErrors(t *testing.T) {
	if _, err := Series(model.Series{}, mustDesc(t, "M"), MethodMean); err == nil {
		t.Fatal("expected error for empty input")
	}
	s := dailySeries(t, "standard", 2000, 1, 3)
	if _, err := Series(s, mustDesc(t, "M"), Method("median")); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestSafeSeriesDailyToMonthly(t *testing.T) {
	s := dailySeries(t, "360_day", 2000, 1, 30)
	out, check, err := SafeSeries(s, "M", "", freq.Options{})
	if err != nil {
		t.Fatalf("SafeSeries: %v", err)
	}
	if check.Comparison != gate.ComparisonFiner {
		t.Fatalf("comparison = %s, want finer", check.Comparison)
	}
	if len(out.Points) != 1 || out.Points[0].Value != 15.5 {
		t.Fatalf("resampled = %v", out.Points)
	}
}

func TestSafeSeriesRefusesCoarseSource(t *testing.T) {
	s := model.Series{Name: "x", Calendar: "standard"}
	for m := 1; m <= 12; m += 3 {
		s.Points = append(s.Points, model.Point{
			Time:  calendar.FromDate(calendar.Date{Year: 2000, Month: m, Day: 1, Calendar: "standard"}),
			Value: 1,
		})
	}

	_, check, err := SafeSeries(s, "M", MethodMean, freq.Options{})
	if err == nil {
		t.Fatal("expected refusal for quarterly source vs monthly target")
	}
	if !errors.Is(err, gate.ErrInsufficientResolution) {
		t.Fatalf("err = %v, want ErrInsufficientResolution", err)
	}
	if check.Comparison != gate.ComparisonCoarser {
		t.Fatalf("comparison = %s, want coarser", check.Comparison)
	}
}

func TestSafeSeriesBadFrequencyString(t *testing.T) {
	s := dailySeries(t, "standard", 2000, 1, 3)
	if _, _, err := SafeSeries(s, "13X", "", freq.Options{}); err == nil {
		t.Fatal("expected error for invalid frequency string")
	}
}
