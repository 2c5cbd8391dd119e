// Package store persists reference entries, the labelled function
// signatures that unknown code is matched against. Two backends are
// provided: SQLite through sqlx and an embedded badger key-value store.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/standardbeagle/jslibsig/internal/config"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/signature"
)

// ReferenceEntry is one indexed function of one library version.
type ReferenceEntry struct {
	ID           int64
	Namespace    string // empty when the package is not scoped
	LibName      string
	Version      string
	FunctionName string
	CreatedAt    time.Time
	SimHash      signature.SimHash
	MinHash      signature.MinHash
}

// Store is a reference corpus keyed by a surrogate id. IDs are assigned on
// insert, increase monotonically and may have gaps.
type Store interface {
	// InsertBatch writes all entries in one transaction or none of them.
	InsertBatch(ctx context.Context, entries []ReferenceEntry) error
	// MaxID returns the largest assigned id, or 0 for an empty store.
	MaxID(ctx context.Context) (int64, error)
	// LoadRange returns entries with from <= id <= to, ordered by id.
	LoadRange(ctx context.Context, from, to int64) ([]ReferenceEntry, error)
	Close() error
}

var errEmptyBatch = errors.New("empty batch")

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return OpenSQLite(ctx, SQLiteConfig{
			Path:         cfg.Path,
			MaxOpenConns: cfg.MaxOpenConns,
			BatchSize:    cfg.BatchSize,
		})
	case "badger":
		bcfg := DefaultBadgerConfig()
		bcfg.Path = cfg.Path
		bcfg.InMemory = cfg.InMemory
		return OpenBadger(bcfg)
	default:
		return nil, lerrors.NewConfigError("store.Backend", cfg.Backend, fmt.Errorf("unknown store backend"))
	}
}

// validateEntries rejects entries that could never be matched or reported.
func validateEntries(entries []ReferenceEntry) error {
	if len(entries) == 0 {
		return lerrors.NewStoreError("insert", false, errEmptyBatch)
	}
	for i := range entries {
		e := &entries[i]
		switch {
		case e.LibName == "":
			return lerrors.NewStoreError("insert", false, fmt.Errorf("entry %d: library name required", i))
		case e.Version == "":
			return lerrors.NewStoreError("insert", false, fmt.Errorf("entry %d: version required", i))
		case len(e.SimHash) == 0 || len(e.MinHash) == 0:
			return lerrors.NewStoreError("insert", false, fmt.Errorf("entry %d: signatures required", i))
		}
	}
	return nil
}

func createdAt(e *ReferenceEntry) time.Time {
	if e.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return e.CreatedAt.UTC()
}
