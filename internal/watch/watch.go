// Package watch re-runs work when candidate JavaScript files under a folder
// change. Events are debounced into batches.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/jslibsig/internal/debug"
	"github.com/standardbeagle/jslibsig/internal/scanner"
)

// Watcher watches a directory tree.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	filter   *scanner.Filter
	debounce time.Duration
}

// New starts watching every non-excluded directory under root.
func New(root string, filter *scanner.Filter, debounce time.Duration) (*Watcher, error) {
	if filter == nil {
		filter = scanner.NewFilter(nil, nil)
	}
	if debounce <= 0 {
		debounce = 50 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, root: root, filter: filter, debounce: debounce}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// addTree adds a watch for dir and its subdirectories. Symlink cycles are
// broken by tracking resolved paths.
func (w *Watcher) addTree(dir string) error {
	visited := make(map[string]bool)
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil || visited[resolved] {
			return filepath.SkipDir
		}
		visited[resolved] = true
		if w.filter.SkipDir(w.rel(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			debug.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return rel
}

// Run delivers batches of changed candidate files to onChange until ctx is
// done. onChange runs on the Run goroutine, so batches never overlap; events
// arriving meanwhile form the next batch.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				pending[event.Name] = struct{}{}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				debug.Warn("file watcher overflowed, some changes were missed", "root", w.root)
				continue
			}
			debug.Warn("file watcher error", "root", w.root, "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			debug.LogRecognition("watch: %d changed files\n", len(changed))
			onChange(ctx, changed)
		}
	}
}

// handle reports whether event concerns a candidate file. New directories
// are added to the watch set.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				debug.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return false
		}
	}
	return w.filter.IsCandidate(w.rel(event.Name))
}
