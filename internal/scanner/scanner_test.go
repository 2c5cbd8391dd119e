package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("function f() {}\n"), 0o644))
	}
}

func rels(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestFilter_IsCandidate(t *testing.T) {
	f := NewFilter(nil, []string{"test", "*.spec.js", "vendor/**"})
	tests := []struct {
		path string
		want bool
	}{
		{"index.js", true},
		{"lib/util.mjs", true},
		{"lib/util.cjs", true},
		{"lib/util.ts", false},
		{"README.md", false},
		{"dist/lib.min.js", false},
		{"dist/react.production.js", false},
		{"dist/vue.prod.js", false},
		{"dist/lib.MIN.js", false},
		{"lib/a.spec.js", false},
		{"vendor/x/y.js", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsCandidate(tt.path))
		})
	}
}

func TestFilter_Include(t *testing.T) {
	f := NewFilter([]string{"src/**/*.js"}, nil)
	assert.True(t, f.IsCandidate("src/a/b.js"))
	assert.False(t, f.IsCandidate("lib/b.js"))
}

func TestFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"index.js",
		"lib/b.js",
		"lib/a.mjs",
		"dist/bundle.min.js",
		"test/index.test.js",
		"docs/readme.txt",
	)

	files, err := Files(context.Background(), root, NewFilter(nil, []string{"test"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"index.js", "lib/a.mjs", "lib/b.js"}, rels(t, root, files))
}

func TestFiles_Errors(t *testing.T) {
	_, err := Files(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)

	root := t.TempDir()
	writeFiles(t, root, "a.js")
	_, err = Files(context.Background(), filepath.Join(root, "a.js"), nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Files(ctx, root, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVersionDirs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"left-pad/1.10.0/index.js",
		"left-pad/1.2.0/index.js",
		"left-pad/1.0.0/index.js",
		"@babel/core/7.0.0/lib/index.js",
		".cache/x/1.0.0/a.js",
	)
	// Loose files at package level are not versions.
	require.NoError(t, os.WriteFile(filepath.Join(root, "left-pad", "package.json"), []byte("{}"), 0o644))

	dirs, err := VersionDirs(root, "")
	require.NoError(t, err)
	require.Len(t, dirs, 4)

	assert.Equal(t, "@babel", dirs[0].Namespace)
	assert.Equal(t, "core", dirs[0].Package)
	assert.Equal(t, "@babel/core", dirs[0].Name())

	var versions []string
	for _, d := range dirs[1:] {
		assert.Equal(t, "left-pad", d.Name())
		assert.Empty(t, d.Namespace)
		versions = append(versions, d.Version)
	}
	assert.Equal(t, []string{"1.0.0", "1.2.0", "1.10.0"}, versions)

	only, err := VersionDirs(root, "@babel/core")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, filepath.Join(root, "@babel", "core", "7.0.0"), only[0].Path)

	_, err = VersionDirs(filepath.Join(root, "nope"), "")
	assert.Error(t, err)
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, -1, CompareVersions("1.2.0", "1.10.0"))
	assert.Equal(t, 1, CompareVersions("2.0.0", "2.0.0-beta.1"))
	assert.Equal(t, 0, CompareVersions("1.0.0", "1.0.0"))
	assert.Equal(t, 1, CompareVersions("1.0.0", "latest"))
	assert.Equal(t, -1, CompareVersions("alpha", "beta"))
	assert.Equal(t, -1, CompareVersions("1.0.0", "v1.0.0"))
}
