package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/jslibsig/internal/scanner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startWatcher(t *testing.T, root string) (<-chan []string, func()) {
	t.Helper()
	w, err := New(root, scanner.NewFilter(nil, []string{"ignored"}), 20*time.Millisecond)
	require.NoError(t, err)

	batches := make(chan []string, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) {
			batches <- changed
		})
	}()
	return batches, func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
		require.NoError(t, w.Close())
	}
}

func waitBatch(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch delivered")
		return nil
	}
}

func TestWatcher_DeliversCandidateChanges(t *testing.T) {
	root := t.TempDir()
	batches, stop := startWatcher(t, root)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.min.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.js"), []byte("function a() {}"), 0o644))

	batch := waitBatch(t, batches)
	assert.Equal(t, []string{filepath.Join(root, "app.js")}, batch)
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	batches, stop := startWatcher(t, root)
	defer stop()

	sub := filepath.Join(root, "lib")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher time to register the new directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "util.mjs"), []byte("export const a = 1;"), 0o644))

	batch := waitBatch(t, batches)
	assert.Contains(t, batch, filepath.Join(sub, "util.mjs"))
}

func TestWatcher_SkipsExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "ignored"), 0o755))
	batches, stop := startWatcher(t, root)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored", "a.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.js"), []byte("x"), 0o644))

	batch := waitBatch(t, batches)
	assert.Equal(t, []string{filepath.Join(root, "b.js")}, batch)
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), nil, 0)
	assert.Error(t, err)
}
