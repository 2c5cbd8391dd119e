// Package scanner finds the JavaScript files worth fingerprinting and the
// <package>/<version> directories of a reference corpus on disk.
package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
)

var sourceExtensions = map[string]bool{
	".js":  true,
	".mjs": true,
	".cjs": true,
}

// Filter decides which files under a root are candidates. Patterns are
// doublestar globs matched against slash-separated paths relative to the root.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter builds a filter. With no include patterns every source file that
// is not excluded is a candidate.
func NewFilter(include, exclude []string) *Filter {
	return &Filter{
		include: append([]string(nil), include...),
		exclude: append([]string(nil), exclude...),
	}
}

// IsCandidate reports whether the file at rel should be extracted.
func (f *Filter) IsCandidate(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := strings.ToLower(pathBase(rel))
	if !sourceExtensions[filepath.Ext(base)] {
		return false
	}
	if isBuildOutput(base) {
		return false
	}
	if f.matchesAny(f.exclude, rel) {
		return false
	}
	return len(f.include) == 0 || f.matchesAny(f.include, rel)
}

// SkipDir reports whether a directory and everything below it is excluded.
func (f *Filter) SkipDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	return f.matchesAny(f.exclude, filepath.ToSlash(rel))
}

func (f *Filter) matchesAny(patterns []string, rel string) bool {
	base := pathBase(rel)
	for _, pattern := range patterns {
		// Bare names like "test" or "*.spec.js" match any path component.
		target := rel
		if !strings.Contains(pattern, "/") {
			target = base
		}
		matched, err := doublestar.Match(pattern, target)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// isBuildOutput matches minified and production bundles, which fingerprint
// poorly and duplicate the readable sources next to them.
func isBuildOutput(base string) bool {
	return strings.Contains(base, ".min.") ||
		strings.Contains(base, ".prod.") ||
		strings.Contains(base, ".production.")
}

func pathBase(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}

// Files returns the candidate files under root in lexical order. Unreadable
// subdirectories are logged and skipped.
func Files(ctx context.Context, root string, f *Filter) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, lerrors.NewFileError("stat", root, err)
	}
	if !info.IsDir() {
		return nil, lerrors.NewFileError("scan", root, errors.New("not a directory"))
	}
	if f == nil {
		f = NewFilter(nil, nil)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			debug.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if d.IsDir() {
			if f.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && f.IsCandidate(rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, lerrors.NewFileError("scan", root, err)
	}
	sort.Strings(files)
	debug.LogIndexing("scanned %s: %d candidate files\n", root, len(files))
	return files, nil
}
