// Package config handles loading and resolving cadence configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flags (--calendar, --tol, ...)
//  2. Environment variables (CADENCE_CALENDAR, CADENCE_DB_PATH)
//  3. config.json in the current working directory
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/esm-tools/cadence/internal/calendar"
	"github.com/esm-tools/cadence/internal/freq"
)

const (
	DefaultConfigFile  = "config.json"
	DefaultFormat      = "table"
	DefaultCalendar    = calendar.Standard
	DefaultConcurrency = 8
	EnvCalendar        = "CADENCE_CALENDAR"
	EnvDBPath          = "CADENCE_DB_PATH"
)

// File is the on-disk representation of config.json.
type File struct {
	DefaultFormat string  `json:"default_format"`
	Calendar      string  `json:"calendar"`
	Tol           float64 `json:"tol"`
	Strict        bool    `json:"strict"`
	Concurrency   int     `json:"concurrency"`
	DBPath        string  `json:"db_path"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	Format      string
	Calendar    string
	Tol         float64
	Strict      bool
	Concurrency int
	DBPath      string
	ConfigPath  string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Load resolves configuration from all sources. CLI flags are applied by
// the command layer after Load() since cobra owns flag parsing.
func Load() (*Config, error) {
	cfg := &Config{
		Format:      DefaultFormat,
		Calendar:    DefaultCalendar,
		Tol:         freq.DefaultTol,
		Concurrency: DefaultConcurrency,
	}

	// Layer 1: config.json (lowest priority)
	if f, path, err := loadFile(); err == nil {
		applyFile(cfg, f, path)
	}

	// Layer 2: environment variables
	if v := os.Getenv(EnvCalendar); v != "" {
		cfg.Calendar = calendar.Normalize(v)
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".cadence", "cadence.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if resolved values are out of range.
func (c *Config) Validate() error {
	if c.Tol <= 0 || c.Tol >= 1 {
		return fmt.Errorf("tolerance must be in (0,1), got %g", c.Tol)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	return nil
}

// loadFile attempts to read config.json from the current working directory.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("config.json not found at %s", path)
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Calendar != "" {
		cfg.Calendar = calendar.Normalize(f.Calendar)
	}
	if f.Tol > 0 {
		cfg.Tol = f.Tol
	}
	if f.Strict {
		cfg.Strict = true
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `cadence config init`.
func Template() File {
	return File{
		DefaultFormat: DefaultFormat,
		Calendar:      DefaultCalendar,
		Tol:           freq.DefaultTol,
		Strict:        false,
		Concurrency:   DefaultConcurrency,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
