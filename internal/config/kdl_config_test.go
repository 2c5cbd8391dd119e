package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKDL_Defaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultStoreBackend, cfg.Store.Backend)
	assert.Equal(t, DefaultRetryAttempts, cfg.Store.RetryAttempts)
	assert.Equal(t, DefaultFeatureThreshold, cfg.Index.FeatureThreshold)
	assert.Equal(t, DefaultSimHashThreshold, cfg.Recognize.SimHashThreshold)
	assert.Equal(t, DefaultMinOccurrences, cfg.Recognize.MinHashMinOccurrence)
	assert.Equal(t, DefaultSimHashBits, cfg.Signature.SimHashBits)
	assert.Equal(t, DefaultSignatureSeed, cfg.Signature.Seed)
}

func TestParseKDL_Sections(t *testing.T) {
	content := `
store {
    backend "Badger"
    path "/var/lib/jslibsig"
    batch_size 250
    retry_attempts 4
    retry_base_delay "50ms"
}
index {
    max_parallel_versions 3
    feature_threshold 150
    namespace "npm"
}
recognize {
    simhash_threshold 92.5
    minhash_threshold 80
    min_occurrences 2
    minhash_min_occurrences 7
    load_partitions 8
    watch_debounce 750
}
signature {
    simhash_bits 128
    minhash_size 64
    seed 42
}
`
	cfg, err := parseKDL(content)
	require.NoError(t, err)

	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.Equal(t, "/var/lib/jslibsig", cfg.Store.Path)
	assert.Equal(t, 250, cfg.Store.BatchSize)
	assert.Equal(t, 4, cfg.Store.RetryAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Store.RetryBaseDelay)

	assert.Equal(t, 3, cfg.Index.MaxParallelVersions)
	assert.Equal(t, 150, cfg.Index.FeatureThreshold)
	assert.Equal(t, "npm", cfg.Index.Namespace)

	assert.Equal(t, 92.5, cfg.Recognize.SimHashThreshold)
	assert.Equal(t, 80.0, cfg.Recognize.MinHashThreshold)
	assert.Equal(t, 2, cfg.Recognize.SimHashMinOccurrence)
	assert.Equal(t, 7, cfg.Recognize.MinHashMinOccurrence)
	assert.Equal(t, 8, cfg.Recognize.LoadPartitions)
	assert.Equal(t, 750*time.Millisecond, cfg.Recognize.WatchDebounce)

	assert.Equal(t, 128, cfg.Signature.SimHashBits)
	assert.Equal(t, 64, cfg.Signature.MinHashSize)
	assert.Equal(t, uint64(42), cfg.Signature.Seed)
}

func TestParseKDL_ExcludeForms(t *testing.T) {
	inline, err := parseKDL(`exclude "**/vendor/**" "**/*.bundle.js"`)
	require.NoError(t, err)
	assert.Contains(t, inline.Index.Exclude, "**/vendor/**")
	assert.Contains(t, inline.Index.Exclude, "**/*.bundle.js")
	assert.Contains(t, inline.Index.Exclude, "**/.git/**", "defaults are kept")

	block, err := parseKDL(`
exclude {
    "**/fixtures/**"
}`)
	require.NoError(t, err)
	assert.Contains(t, block.Index.Exclude, "**/fixtures/**")
}

func TestParseKDL_InvalidDocument(t *testing.T) {
	_, err := parseKDL(`
store {
    backend "sqlite"
`)
	assert.Error(t, err)
}

func TestParseKDL_BadDurationKeepsDefault(t *testing.T) {
	cfg, err := parseKDL(`
store {
    retry_base_delay "soon"
}
`)
	require.NoError(t, err)
	assert.Equal(t, DefaultRetryBaseDelay, cfg.Store.RetryBaseDelay)
}

func TestLoadKDL_MissingFile(t *testing.T) {
	cfg, err := LoadKDL(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadKDL_ResolvesRelativeStorePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(`
store {
    path "data/corpus.db"
}
`), 0o644))

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, filepath.Join(dir, "data", "corpus.db"), cfg.Store.Path)
}
