// Package app wires together configuration and the local store into a
// single Deps struct that commands receive at runtime.
package app

import (
	"fmt"

	"github.com/esm-tools/cadence/internal/config"
	"github.com/esm-tools/cadence/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// The store is opened lazily: commands that only read stdin never touch
// the database file.
type Deps struct {
	Config *config.Config
	Store  *store.Store
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	return &Deps{Config: cfg}
}

// RequireStore opens the bbolt store at the configured path.
// Call Close when done.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path configured (set CADENCE_DB_PATH or db_path in config.json)")
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return fmt.Errorf("opening store at %s: %w", d.Config.DBPath, err)
	}
	d.Store = s
	return nil
}

// Close releases the store handle if one was opened.
func (d *Deps) Close() {
	if d.Store != nil {
		_ = d.Store.Close()
		d.Store = nil
	}
}
