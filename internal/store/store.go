// Package store provides a thin bbolt wrapper for cadence's local data store.
//
// Design philosophy: the store is an intentional data accumulator, not a
// transparent cache. Series are written explicitly via store put commands
// and read by analysis commands. No TTL, no auto-invalidation — you own
// your data.
//
// Buckets:
//
//	series       — stored time series keyed by name
//	freq_results — latest frequency inference per series
//	snapshots    — saved command lines for reproducible workflows
//	_meta        — internal: schema version, created_at
package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/freq"
	"github.com/esm-tools/cadence/internal/model"
	"github.com/esm-tools/cadence/internal/pipeline"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketSeries    = []byte("series")
	bucketFreq      = []byte("freq_results")
	bucketSnapshots = []byte("snapshots")
	bucketInternal  = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"series", "freq_results", "snapshots"}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSeries, bucketFreq, bucketSnapshots, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Series ───────────────────────────────────────────────────────────────────

// storedPoint is the JSON-safe on-disk representation of a single point.
// Value is a *float64 so that missing values (NaN) are stored as JSON null
// rather than NaN, which encoding/json cannot handle.
type storedPoint struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value"` // null = missing
}

// storedSeries is the on-disk envelope for a series entry.
type storedSeries struct {
	Name     string        `json:"name"`
	Calendar string        `json:"calendar,omitempty"`
	StoredAt time.Time     `json:"stored_at"`
	Points   []storedPoint `json:"points"`
}

func pointToStored(p model.Point) storedPoint {
	row := storedPoint{Time: pipeline.FormatTime(p.Time)}
	if !p.IsMissing() {
		v := p.Value
		row.Value = &v
	}
	return row
}

func storedToPoint(r storedPoint, cal string) (model.Point, error) {
	t, err := pipeline.ParseTimeString(r.Time, cal)
	if err != nil {
		return model.Point{}, err
	}
	p := model.Point{Time: t, Value: math.NaN()}
	if r.Value != nil {
		p.Value = *r.Value
	}
	return p, nil
}

// PutSeries stores a series under its name, stamping StoredAt.
func (s *Store) PutSeries(data model.Series) error {
	if data.Name == "" {
		return fmt.Errorf("store: series has no name")
	}
	rows := make([]storedPoint, len(data.Points))
	for i, p := range data.Points {
		rows[i] = pointToStored(p)
	}
	envelope := storedSeries{
		Name:     data.Name,
		Calendar: calendar.Normalize(data.Calendar),
		StoredAt: time.Now().UTC(),
		Points:   rows,
	}
	b, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding series: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSeries).Put([]byte(data.Name), b)
	})
}

// GetSeries retrieves a series by name.
// Returns (series, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetSeries(name string) (model.Series, bool, error) {
	var envelope storedSeries
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSeries).Get([]byte(name))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &envelope)
	})
	if err != nil {
		return model.Series{}, false, err
	}
	if envelope.Name == "" {
		return model.Series{}, false, nil
	}

	out := model.Series{Name: envelope.Name, Calendar: envelope.Calendar}
	for i, r := range envelope.Points {
		p, err := storedToPoint(r, envelope.Calendar)
		if err != nil {
			return model.Series{}, false, fmt.Errorf("decoding series %s point %d: %w", name, i, err)
		}
		out.Points = append(out.Points, p)
	}
	return out, true, nil
}

// ListSeries returns the names of all stored series in key order.
func (s *Store) ListSeries() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSeries).ForEach(func(k, v []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// DeleteSeries removes a series and its cached frequency result.
func (s *Store) DeleteSeries(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketSeries).Delete([]byte(name)); err != nil {
			return err
		}
		return tx.Bucket(bucketFreq).Delete([]byte(name))
	})
}

// ─── Frequency Results ────────────────────────────────────────────────────────

// FreqEntry is the stored record of one frequency inference.
type FreqEntry struct {
	Series    string      `json:"series"`
	Calendar  string      `json:"calendar,omitempty"`
	Strict    bool        `json:"strict"`
	Result    freq.Result `json:"result"`
	CheckedAt time.Time   `json:"checked_at"`
}

// PutFreqResult stores the latest inference for a series, stamping
// CheckedAt.
func (s *Store) PutFreqResult(entry FreqEntry) error {
	if entry.Series == "" {
		return fmt.Errorf("store: freq entry has no series name")
	}
	entry.CheckedAt = time.Now().UTC()
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding freq result: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFreq).Put([]byte(entry.Series), b)
	})
}

// GetFreqResult retrieves the stored inference for a series.
func (s *Store) GetFreqResult(name string) (FreqEntry, bool, error) {
	var entry FreqEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketFreq).Get([]byte(name))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &entry)
	})
	if err != nil {
		return entry, false, err
	}
	return entry, entry.Series != "", nil
}

// ListFreqResults returns all stored inferences in key order.
func (s *Store) ListFreqResults() ([]FreqEntry, error) {
	var entries []FreqEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFreq).ForEach(func(k, v []byte) error {
			var e FreqEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

// ─── Snapshots ────────────────────────────────────────────────────────────────

// Snapshot represents a saved command for reproducible workflows.
type Snapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CommandLine string    `json:"command_line"`
	CreatedAt   time.Time `json:"created_at"`
}

// PutSnapshot saves a snapshot. The key is snap:<ID>.
func (s *Store) PutSnapshot(snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put([]byte("snap:"+snap.ID), b)
	})
}

// GetSnapshot retrieves a snapshot by ID.
func (s *Store) GetSnapshot(id string) (Snapshot, bool, error) {
	var snap Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSnapshots).Get([]byte("snap:" + id))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &snap)
	})
	if err != nil {
		return snap, false, err
	}
	return snap, snap.ID != "", nil
}

// ListSnapshots returns all snapshots in creation order.
func (s *Store) ListSnapshots() ([]Snapshot, error) {
	var snaps []Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, v []byte) error {
			var snap Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			snaps = append(snaps, snap)
			return nil
		})
	})
	return snaps, err
}

// DeleteSnapshot removes a snapshot by ID.
func (s *Store) DeleteSnapshot(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte("snap:" + id))
	})
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets.
func (s *Store) Stats() ([]BucketStats, error) {
	buckets := map[string][]byte{
		"series":       bucketSeries,
		"freq_results": bucketFreq,
		"snapshots":    bucketSnapshots,
	}

	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for name, bname := range buckets {
			b := tx.Bucket(bname)
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}
