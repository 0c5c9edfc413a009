package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/esm-tools/cadence/internal/config"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// writeConfig writes a config.json into dir and changes the working directory
// to dir for the duration of the test.
func writeConfig(t *testing.T, dir string, f config.File) {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	// Change working directory so config.Load() finds config.json
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// clearEnv unsets CADENCE_CALENDAR and CADENCE_DB_PATH for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvCalendar, "")
	t.Setenv(config.EnvDBPath, "")
}

// ─── Defaults ─────────────────────────────────────────────────────────────────

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	clearEnv(t)
	// Change to temp dir so no config.json is found
	orig, _ := os.Getwd()
	_ = os.Chdir(dir)
	t.Cleanup(func() { _ = os.Chdir(orig) })

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Format != config.DefaultFormat {
		t.Errorf("Format: expected %q, got %q", config.DefaultFormat, cfg.Format)
	}
	if cfg.Calendar != config.DefaultCalendar {
		t.Errorf("Calendar: expected %q, got %q", config.DefaultCalendar, cfg.Calendar)
	}
	if cfg.Tol != 0.05 {
		t.Errorf("Tol: expected 0.05, got %g", cfg.Tol)
	}
	if cfg.Strict {
		t.Error("Strict should default to false")
	}
	if cfg.Concurrency != config.DefaultConcurrency {
		t.Errorf("Concurrency: expected %d, got %d", config.DefaultConcurrency, cfg.Concurrency)
	}
	if cfg.DBPath == "" {
		t.Error("DBPath should have a default (home dir based) value")
	}
}

// ─── Config file loading ──────────────────────────────────────────────────────

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	clearEnv(t)
	writeConfig(t, dir, config.File{
		DefaultFormat: "json",
		Calendar:      "360_day",
		Tol:           0.1,
		Strict:        true,
		Concurrency:   4,
		DBPath:        "/tmp/test.db",
	})

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Format != "json" {
		t.Errorf("Format: expected json, got %q", cfg.Format)
	}
	if cfg.Calendar != "360_day" {
		t.Errorf("Calendar: expected 360_day, got %q", cfg.Calendar)
	}
	if cfg.Tol != 0.1 {
		t.Errorf("Tol: expected 0.1, got %g", cfg.Tol)
	}
	if !cfg.Strict {
		t.Error("Strict: expected true")
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency: expected 4, got %d", cfg.Concurrency)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath: expected /tmp/test.db, got %q", cfg.DBPath)
	}
}

func TestLoadFileCalendarAliasNormalized(t *testing.T) {
	dir := t.TempDir()
	clearEnv(t)
	writeConfig(t, dir, config.File{Calendar: "365_day"})

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Calendar != "noleap" {
		t.Errorf("Calendar: expected alias to normalize to noleap, got %q", cfg.Calendar)
	}
}

func TestLoadConfigPathRecorded(t *testing.T) {
	dir := t.TempDir()
	clearEnv(t)
	writeConfig(t, dir, config.File{DefaultFormat: "csv"})

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConfigPath == "" {
		t.Error("ConfigPath should be set when config.json is found")
	}
	if !strings.Contains(cfg.ConfigPath, "config.json") {
		t.Errorf("ConfigPath should contain config.json, got %q", cfg.ConfigPath)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	clearEnv(t)
	orig, _ := os.Getwd()
	_ = os.Chdir(dir)
	t.Cleanup(func() { _ = os.Chdir(orig) })

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load without config.json should not error: %v", err)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath should be empty when no file found, got %q", cfg.ConfigPath)
	}
}

// ─── Environment variable priority ───────────────────────────────────────────

func TestLoadEnvCalendarOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, config.File{Calendar: "noleap"})
	t.Setenv(config.EnvCalendar, "360_day")
	t.Setenv(config.EnvDBPath, "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Calendar != "360_day" {
		t.Errorf("env CADENCE_CALENDAR should override file: expected 360_day, got %q", cfg.Calendar)
	}
}

func TestLoadEnvDBPath(t *testing.T) {
	dir := t.TempDir()
	clearEnv(t)
	orig, _ := os.Getwd()
	_ = os.Chdir(dir)
	t.Cleanup(func() { _ = os.Chdir(orig) })
	t.Setenv(config.EnvDBPath, "/custom/path/cadence.db")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/custom/path/cadence.db" {
		t.Errorf("CADENCE_DB_PATH: expected /custom/path/cadence.db, got %q", cfg.DBPath)
	}
}

// ─── Validate ─────────────────────────────────────────────────────────────────

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := &config.Config{Tol: 0.05, Concurrency: 8}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate with defaults should not error: %v", err)
	}
}

func TestValidateRejectsBadTolerance(t *testing.T) {
	for _, tol := range []float64{0, -0.1, 1, 2} {
		cfg := &config.Config{Tol: tol, Concurrency: 1}
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate should reject tol=%g", tol)
		}
	}
}

func TestValidateRejectsBadConcurrency(t *testing.T) {
	cfg := &config.Config{Tol: 0.05, Concurrency: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject concurrency 0")
	}
}

// ─── WriteFile / Template ─────────────────────────────────────────────────────

func TestWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	f := config.File{
		DefaultFormat: "csv",
		Calendar:      "noleap",
		Tol:           0.08,
		Strict:        true,
		Concurrency:   6,
		DBPath:        "/data/cadence.db",
	}

	if err := config.WriteFile(path, f); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got config.File
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if got != f {
		t.Errorf("round trip mismatch:\n  expected: %+v\n  got:      %+v", f, got)
	}
}

func TestWriteFilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	if err := config.WriteFile(path, config.Template()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	// Should be 0600 — owner read/write only
	if info.Mode().Perm() != 0600 {
		t.Errorf("file permissions: expected 0600, got %04o", info.Mode().Perm())
	}
}

func TestTemplateDefaults(t *testing.T) {
	tmpl := config.Template()

	if tmpl.DefaultFormat != "table" {
		t.Errorf("Template.DefaultFormat: expected table, got %q", tmpl.DefaultFormat)
	}
	if tmpl.Calendar != config.DefaultCalendar {
		t.Errorf("Template.Calendar: expected %q, got %q", config.DefaultCalendar, tmpl.Calendar)
	}
	if tmpl.Tol != 0.05 {
		t.Errorf("Template.Tol: expected 0.05, got %g", tmpl.Tol)
	}
	if tmpl.Strict {
		t.Error("Template.Strict should be false")
	}
	if tmpl.Concurrency != config.DefaultConcurrency {
		t.Errorf("Template.Concurrency: expected %d, got %d", config.DefaultConcurrency, tmpl.Concurrency)
	}
}
