// Package model defines the canonical data types used throughout cadence.
// These types are the single source of truth for time-series payloads and
// the result envelope that every command returns.
package model

import (
	"math"
	"time"

	"github.com/esm-tools/cadence/internal/calendar"
)

// ─── Time Series Types ────────────────────────────────────────────────────────

// Point is a single data point in a time series.
// Value is NaN when the point carries no data (missing value).
type Point struct {
	Time  calendar.Time `json:"time"`
	Value float64       `json:"value"`
}

// IsMissing returns true if the point value is NaN (missing data).
func (p Point) IsMissing() bool {
	return math.IsNaN(p.Value)
}

// Series bundles a named sequence of points with its calendar.
// The Calendar field is the declared calendar for date-form timestamps;
// instant-form timestamps ignore it.
type Series struct {
	Name     string  `json:"name"`
	Calendar string  `json:"calendar,omitempty"`
	Points   []Point `json:"points"`
}

// Times returns the timestamp column.
func (s Series) Times() []calendar.Time {
	out := make([]calendar.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Time
	}
	return out
}

// Values returns the value column.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance and store metadata for a command result.
type ResultStats struct {
	StoreHit   bool  `json:"store_hit"`
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Table is a generic tabular payload for listing commands; renderers
// print it as-is in every format.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Kind constants for Result.Kind.
const (
	KindSeriesData  = "series_data"
	KindFreqResult  = "freq_result"
	KindCheckResult = "check_result"
	KindBounds      = "bounds"
	KindDeltas      = "deltas"
	KindTable       = "table"
	KindReport      = "report"
)
