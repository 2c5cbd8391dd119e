package indexing

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/metrics"
	"github.com/standardbeagle/jslibsig/internal/scanner"
	"github.com/standardbeagle/jslibsig/internal/store"
)

const leftPadV1 = `
module.exports = leftPad;

function leftPad(str, len, ch) {
  str = String(str);
  var i = -1;
  if (!ch && ch !== 0) ch = ' ';
  len = len - str.length;
  while (++i < len) {
    str = ch + str;
  }
  return str;
}
`

const leftPadV2 = `
'use strict';
module.exports = leftPad;

var cache = ['', ' ', '  ', '   '];

function leftPad(str, len, ch) {
  str = str + '';
  len = len - str.length;
  if (len <= 0) return str;
  if (!ch && ch !== 0) ch = ' ';
  ch = ch + '';
  if (ch === ' ' && len < 10) return cache[len] + str;
  var pad = '';
  while (true) {
    if (len & 1) pad += ch;
    len >>= 1;
    if (len) ch += ch;
    else break;
  }
  return pad + str;
}
`

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func memStore(t *testing.T) *store.BadgerStore {
	t.Helper()
	s, err := store.OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func loadAll(t *testing.T, s store.Store) []store.ReferenceEntry {
	t.Helper()
	ctx := context.Background()
	max, err := s.MaxID(ctx)
	require.NoError(t, err)
	if max == 0 {
		return nil
	}
	entries, err := s.LoadRange(ctx, 1, max)
	require.NoError(t, err)
	return entries
}

func TestIndexPackages(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"left-pad/1.0.0/index.js":         leftPadV1,
		"left-pad/1.1.0/index.js":         leftPadV2,
		"left-pad/1.1.0/dist/left.min.js": leftPadV2,
		"@acme/pad/2.0.0/lib/pad.mjs":     "export function pad(a) { return a + 1; }\n",
		"@acme/pad/2.0.0/README.md":       "not code",
	})

	s := memStore(t)
	m := metrics.New()
	ix := New(s, nil, Options{MaxParallelVersions: 2}, m)

	res, err := ix.IndexPackages(context.Background(), root, "")
	require.NoError(t, err)
	require.Len(t, res.Versions, 3)
	assert.Equal(t, 3, res.Files)
	assert.Zero(t, res.Failed)
	assert.Empty(t, res.StoreFailures())

	entries := loadAll(t, s)
	require.Len(t, entries, res.Functions)

	byVersion := map[string]int{}
	for _, e := range entries {
		byVersion[e.LibName+"@"+e.Version]++
		if e.LibName == "pad" {
			assert.Equal(t, "@acme", e.Namespace)
		} else {
			assert.Empty(t, e.Namespace)
		}
		assert.Len(t, e.SimHash, 4)
		assert.Len(t, e.MinHash, 256)
		assert.False(t, e.CreatedAt.IsZero())
	}
	assert.Equal(t, 1, byVersion["left-pad@1.0.0"])
	assert.Equal(t, 1, byVersion["left-pad@1.1.0"])
	assert.Equal(t, 1, byVersion["pad@2.0.0"])

	assert.Equal(t, 3.0, testutil.ToFloat64(m.VersionsTotal.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, float64(len(entries)), testutil.ToFloat64(m.EntriesStoredTotal))
}

func TestIndexVersion_UsesOnlyItsOwnFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"lib/1.0.0/a.js": leftPadV1,
		"lib/2.0.0/a.js": leftPadV2,
	})
	s := memStore(t)
	ix := New(s, nil, Options{}, nil)

	res, err := ix.IndexVersion(context.Background(), scanner.VersionDir{
		Package: "lib",
		Version: "1.0.0",
		Path:    filepath.Join(root, "lib", "1.0.0"),
	})
	require.NoError(t, err)
	assert.True(t, res.Stored)
	assert.Equal(t, 1, res.Files)

	entries := loadAll(t, s)
	require.Len(t, entries, 1)
	assert.Equal(t, "1.0.0", entries[0].Version)
	assert.Equal(t, "leftPad", entries[0].FunctionName)
}

func TestIndexVersion_DeduplicatesIdenticalFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"lib/1.0.0/index.js":     leftPadV1,
		"lib/1.0.0/cjs/index.js": leftPadV1,
	})
	s := memStore(t)
	ix := New(s, nil, Options{}, nil)

	res, err := ix.IndexVersion(context.Background(), scanner.VersionDir{
		Package: "lib", Version: "1.0.0", Path: filepath.Join(root, "lib", "1.0.0"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 1, res.Duplicates)
	assert.Len(t, loadAll(t, s), 1)
}

func TestIndexVersion_ThresholdAndNamespaceOverride(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"lib/1.0.0/index.js": leftPadV1 + "\nfunction tiny() {}\n",
	})
	s := memStore(t)

	ix := New(s, nil, Options{FeatureThreshold: 5, Namespace: "@override"}, nil)
	res, err := ix.IndexVersion(context.Background(), scanner.VersionDir{
		Package: "lib", Version: "1.0.0", Path: filepath.Join(root, "lib", "1.0.0"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Functions)

	entries := loadAll(t, s)
	require.Len(t, entries, 1)
	assert.Equal(t, "leftPad", entries[0].FunctionName)
	assert.Equal(t, "@override", entries[0].Namespace)
}

func TestIndexVersion_NothingToStore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"lib/1.0.0/index.js": "var x = 1;\n"})
	s := memStore(t)
	ix := New(s, nil, Options{}, nil)

	res, err := ix.IndexVersion(context.Background(), scanner.VersionDir{
		Package: "lib", Version: "1.0.0", Path: filepath.Join(root, "lib", "1.0.0"),
	})
	require.NoError(t, err)
	assert.False(t, res.Stored)
	assert.Nil(t, res.Err)
	assert.Empty(t, loadAll(t, s))
}

func TestIndexPackages_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"lib/1.0.0/index.js": leftPadV1})
	ix := New(memStore(t), nil, Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ix.IndexPackages(ctx, root, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexPackages_MissingRoot(t *testing.T) {
	ix := New(memStore(t), nil, Options{}, nil)
	_, err := ix.IndexPackages(context.Background(), filepath.Join(t.TempDir(), "missing"), "")
	assert.Error(t, err)
}

// rejectingStore refuses batches for one library.
type rejectingStore struct {
	*store.BadgerStore
	lib string
}

var errDiskFull = errors.New("disk full")

func (s *rejectingStore) InsertBatch(ctx context.Context, entries []store.ReferenceEntry) error {
	if len(entries) > 0 && entries[0].LibName == s.lib {
		return lerrors.NewStoreError("insert", false, errDiskFull)
	}
	return s.BadgerStore.InsertBatch(ctx, entries)
}

func TestIndexPackages_StoreFailuresAreCollected(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"bad/1.0.0/index.js":  leftPadV1,
		"good/1.0.0/index.js": leftPadV2,
	})
	s := &rejectingStore{BadgerStore: memStore(t), lib: "bad"}
	ix := New(s, nil, Options{FeatureThreshold: 0, Retry: store.RetryPolicy{Attempts: 1}}, nil)

	res, err := ix.IndexPackages(context.Background(), root, "")
	require.NoError(t, err)
	require.Len(t, res.StoreFailures(), 1)
	assert.Len(t, loadAll(t, s.BadgerStore), 1)

	runErr := res.Err()
	var multi *lerrors.MultiError
	require.ErrorAs(t, runErr, &multi)
	require.Len(t, multi.Errors, 1)
	assert.Contains(t, runErr.Error(), "bad@1.0.0")
	assert.ErrorIs(t, runErr, errDiskFull)
	assert.False(t, lerrors.IsTransient(runErr))
}

func TestResult_ErrNilWithoutFailures(t *testing.T) {
	assert.NoError(t, Result{Versions: []VersionResult{{Stored: true}}}.Err())
}

func TestLogFileFailure_Levels(t *testing.T) {
	var buf bytes.Buffer
	debug.SetLogOutput(&buf)
	t.Cleanup(func() { debug.SetLogOutput(os.Stderr) })

	logFileFailure("failed to index file", "a.js",
		lerrors.NewExtractionError("parse", errors.New("bad input")).WithFile("a.js"))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.NotContains(t, buf.String(), "level=ERROR")

	buf.Reset()
	logFileFailure("failed to index file", "b.js", lerrors.NewUnknownNodeError("jsx_namespace_name", 4, 2))
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "path=b.js")
}
