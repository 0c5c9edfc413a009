// Package pipeline provides helpers for reading and writing time-series
// streams via stdin/stdout in JSONL format — the canonical pipe format.
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/model"
)

// Date-form time fields ("2000-02-30", "2000-02-30 12:00:00") are parsed
// by hand rather than time.Parse: dates like February 30 are valid on a
// 360-day calendar but never on the Gregorian one the time package
// assumes.

// ReadSeries reads JSONL records from r (stdin) and returns a Series.
// Each line must be a JSON object with at least "time" and "value"
// fields. The time field may be a date string (calendar-aware, using the
// record's "calendar" field or defaultCalendar), an RFC3339 instant, or a
// numeric Unix epoch in seconds.
func ReadSeries(r io.Reader, defaultCalendar string) (model.Series, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	type row struct {
		Series   string      `json:"series"`
		Time     interface{} `json:"time"`
		Calendar string      `json:"calendar"`
		Value    interface{} `json:"value"`
	}

	out := model.Series{Calendar: calendar.Normalize(defaultCalendar)}

	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var rec row
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return model.Series{}, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}

		if out.Name == "" && rec.Series != "" {
			out.Name = rec.Series
		}
		cal := out.Calendar
		if rec.Calendar != "" {
			cal = calendar.Normalize(rec.Calendar)
			out.Calendar = cal
		}

		ts, err := parseTime(rec.Time, cal)
		if err != nil {
			return model.Series{}, fmt.Errorf("line %d: %w", lineNum, err)
		}

		val, err := parseValue(rec.Value)
		if err != nil {
			return model.Series{}, fmt.Errorf("line %d: %w", lineNum, err)
		}

		out.Points = append(out.Points, model.Point{Time: ts, Value: val})
	}
	if err := scanner.Err(); err != nil {
		return model.Series{}, fmt.Errorf("reading input: %w", err)
	}
	if len(out.Points) == 0 {
		return model.Series{}, fmt.Errorf("no points read from input (is stdin empty?)")
	}
	return out, nil
}

func parseTime(v interface{}, cal string) (calendar.Time, error) {
	switch t := v.(type) {
	case string:
		return ParseTimeString(t, cal)
	case float64:
		sec, frac := math.Modf(t)
		return calendar.FromInstant(time.Unix(int64(sec), int64(frac*1e9)).UTC()), nil
	default:
		return calendar.Time{}, fmt.Errorf("unexpected time type %T", v)
	}
}

// ParseTimeString parses a textual time field: RFC3339 strings become
// instants, everything else is treated as a calendar date on cal.
func ParseTimeString(s, cal string) (calendar.Time, error) {
	if strings.Contains(s, "Z") || strings.Contains(s, "+") {
		inst, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return calendar.Time{}, fmt.Errorf("invalid instant %q", s)
		}
		return calendar.FromInstant(inst), nil
	}
	d, err := parseDate(s, cal)
	if err != nil {
		return calendar.Time{}, err
	}
	return calendar.FromDate(d), nil
}

// parseDate parses "YYYY-MM-DD" with an optional " HH:MM:SS" or
// "THH:MM:SS" suffix and validates the result against cal.
func parseDate(s, cal string) (calendar.Date, error) {
	datePart := s
	timePart := ""
	if i := strings.IndexAny(s, " T"); i >= 0 {
		datePart, timePart = s[:i], s[i+1:]
	}

	d := calendar.Date{Calendar: cal}
	if n, err := fmt.Sscanf(datePart, "%d-%d-%d", &d.Year, &d.Month, &d.Day); n != 3 || err != nil {
		return calendar.Date{}, fmt.Errorf("invalid time %q", s)
	}
	if timePart != "" {
		if n, err := fmt.Sscanf(timePart, "%d:%d:%d", &d.Hour, &d.Minute, &d.Second); n != 3 || err != nil {
			return calendar.Date{}, fmt.Errorf("invalid time %q", s)
		}
	}
	if err := d.Validate(); err != nil {
		return calendar.Date{}, fmt.Errorf("date %q not valid on calendar %q: %w", s, cal, err)
	}
	return d, nil
}

func parseValue(v interface{}) (float64, error) {
	switch val := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return val, nil
	case string:
		if val == "" || val == "." {
			return math.NaN(), nil
		}
		return 0, fmt.Errorf("unexpected string value %q", val)
	default:
		return 0, fmt.Errorf("unexpected value type %T", v)
	}
}

// WriteJSONL writes a series as JSONL to w. NaN values encode as null;
// date-form timestamps carry the series calendar per record so the stream
// round-trips through ReadSeries.
func WriteJSONL(w io.Writer, s model.Series) error {
	enc := json.NewEncoder(w)
	for _, p := range s.Points {
		var val interface{}
		if !math.IsNaN(p.Value) {
			val = p.Value
		}
		rec := map[string]interface{}{
			"series": s.Name,
			"time":   FormatTime(p.Time),
			"value":  val,
		}
		if p.Time.Kind == calendar.KindDate {
			rec["calendar"] = p.Time.Date.Calendar
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// FormatTime renders a timestamp in the pipe format: RFC3339 for
// instants, "YYYY-MM-DD[ HH:MM:SS]" for calendar dates.
func FormatTime(t calendar.Time) string {
	switch t.Kind {
	case calendar.KindInstant:
		return t.Instant.Format(time.RFC3339)
	default:
		d := t.Date
		if d.Hour != 0 || d.Minute != 0 || d.Second != 0 {
			return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
		}
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
}

// StdinIsTerminal returns true if stdin is an interactive terminal rather
// than a pipe or a redirected file. Commands use it to refuse blocking on
// a terminal when no input was piped in.
func StdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
