package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/jslibsig/internal/config"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/signature"
)

func entry(lib, version, fn string, seed uint64) ReferenceEntry {
	return ReferenceEntry{
		LibName:      lib,
		Version:      version,
		FunctionName: fn,
		CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		SimHash:      signature.SimHash{seed, seed + 1, seed + 2, seed + 3},
		MinHash:      signature.MinHash{uint32(seed), 7, 9},
	}
}

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"sqlite", func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), SQLiteConfig{
				Path:         filepath.Join(t.TempDir(), "ref.db"),
				MaxOpenConns: 2,
				BatchSize:    2,
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
		{"badger", func(t *testing.T) Store {
			s, err := OpenBadgerInMemory()
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func TestStore_InsertAndLoad(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			max, err := s.MaxID(ctx)
			require.NoError(t, err)
			assert.Zero(t, max)

			batch := []ReferenceEntry{
				entry("left-pad", "1.0.0", "leftPad", 1),
				entry("left-pad", "1.0.0", "Anonymous", 2),
				entry("left-pad", "1.0.0", "pad", 3),
			}
			batch[0].Namespace = "@scope"
			require.NoError(t, s.InsertBatch(ctx, batch))

			max, err = s.MaxID(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 3, max)

			got, err := s.LoadRange(ctx, 1, max)
			require.NoError(t, err)
			require.Len(t, got, 3)
			for i, e := range got {
				assert.EqualValues(t, i+1, e.ID)
				assert.Equal(t, batch[i].FunctionName, e.FunctionName)
				assert.Equal(t, batch[i].SimHash, e.SimHash)
				assert.Equal(t, batch[i].MinHash, e.MinHash)
				assert.True(t, batch[i].CreatedAt.Equal(e.CreatedAt))
			}
			assert.Equal(t, "@scope", got[0].Namespace)
			assert.Empty(t, got[1].Namespace)
		})
	}
}

func TestStore_LoadRangeIsInclusive(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			var batch []ReferenceEntry
			for i := uint64(0); i < 10; i++ {
				batch = append(batch, entry("lib", "2.0.0", "f", i))
			}
			require.NoError(t, s.InsertBatch(ctx, batch))

			got, err := s.LoadRange(ctx, 4, 6)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.EqualValues(t, 4, got[0].ID)
			assert.EqualValues(t, 6, got[2].ID)

			got, err = s.LoadRange(ctx, 11, 20)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestStore_IDsIncreaseAcrossBatches(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			require.NoError(t, s.InsertBatch(ctx, []ReferenceEntry{entry("a", "1.0.0", "x", 1)}))
			require.NoError(t, s.InsertBatch(ctx, []ReferenceEntry{entry("b", "1.0.0", "y", 2)}))

			got, err := s.LoadRange(ctx, 1, 100)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Less(t, got[0].ID, got[1].ID)
			assert.Equal(t, "a", got[0].LibName)
			assert.Equal(t, "b", got[1].LibName)
		})
	}
}

func TestStore_RejectsInvalidBatch(t *testing.T) {
	cases := map[string][]ReferenceEntry{
		"empty":         nil,
		"no library":    {entry("", "1.0.0", "f", 1)},
		"no version":    {entry("lib", "", "f", 1)},
		"no signatures": {{LibName: "lib", Version: "1.0.0"}},
	}
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			for name, batch := range cases {
				err := s.InsertBatch(context.Background(), batch)
				require.Error(t, err, name)
				assert.False(t, lerrors.IsTransient(err), name)
			}
			max, err := s.MaxID(context.Background())
			require.NoError(t, err)
			assert.Zero(t, max)
		})
	}
}

func TestStore_CancelledContext(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := s.InsertBatch(ctx, []ReferenceEntry{entry("lib", "1.0.0", "f", 1)})
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestSQLite_ReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ref.db")

	s, err := OpenSQLite(ctx, SQLiteConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.InsertBatch(ctx, []ReferenceEntry{entry("lib", "1.0.0", "f", 1)}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()
	max, err := s.MaxID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, max)
}

func TestSQLite_OpensInWALMode(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, SQLiteConfig{Path: filepath.Join(t.TempDir(), "wal.db")})
	require.NoError(t, err)
	defer s.Close()

	var mode string
	require.NoError(t, s.db.GetContext(ctx, &mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)

	// Migrating an existing database runs the schema again.
	require.NoError(t, s.migrate(ctx))
}

func TestBadger_ReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultBadgerConfig()
	cfg.Path = filepath.Join(t.TempDir(), "badger")
	cfg.SyncWrites = false

	s, err := OpenBadger(cfg)
	require.NoError(t, err)
	require.NoError(t, s.InsertBatch(ctx, []ReferenceEntry{entry("lib", "1.0.0", "f", 1)}))
	require.NoError(t, s.Close())

	s, err = OpenBadger(cfg)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.InsertBatch(ctx, []ReferenceEntry{entry("lib", "1.0.1", "g", 2)}))

	got, err := s.LoadRange(ctx, 1, 1<<40)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Less(t, got[0].ID, got[1].ID)
	assert.Equal(t, "1.0.1", got[1].Version)
}

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.Store{Backend: "badger", InMemory: true})
	require.NoError(t, err)
	_, ok := s.(*BadgerStore)
	assert.True(t, ok)
	require.NoError(t, s.Close())

	s, err = Open(ctx, config.Store{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	_, ok = s.(*SQLiteStore)
	assert.True(t, ok)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.Store{Backend: "postgres"})
	var cfgErr *lerrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
