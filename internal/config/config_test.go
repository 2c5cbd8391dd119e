package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Greater(t, cfg.Recognize.MatchWorkers, 0)
}

func TestLoad_ProjectOverridesGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, configFileName), []byte(`
exclude "**/global/**"
recognize {
    simhash_threshold 70
}
`), 0o644))

	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, configFileName), []byte(`
exclude "**/local/**"
recognize {
    simhash_threshold 95
}
`), 0o644))

	cfg, err := Load(project)
	require.NoError(t, err)
	assert.Equal(t, 95.0, cfg.Recognize.SimHashThreshold)
	assert.Contains(t, cfg.Index.Exclude, "**/global/**")
	assert.Contains(t, cfg.Index.Exclude, "**/local/**")
}

func TestLoad_InvalidValuesFail(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, configFileName), []byte(`
store {
    backend "mysql"
}
`), 0o644))

	_, err := Load(project)
	var cfgErr *lerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "store.Backend", cfgErr.Field)
}

func TestDeduplicatePatterns(t *testing.T) {
	got := DeduplicatePatterns([]string{"a", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.kdl")
	require.NoError(t, os.WriteFile(path, []byte(`
store {
    backend "badger"
    path "data/corpus"
}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dir, "data", "corpus"), cfg.Store.Path)

	_, err = Load(filepath.Join(dir, "missing.kdl"))
	assert.Error(t, err)
}
