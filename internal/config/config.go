package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
)

// Defaults shared by the KDL loader, the CLI flag definitions and tests.
const (
	DefaultStoreBackend               = "sqlite"
	DefaultStorePath                  = "jslibsig.db"
	DefaultMaxOpenConns               = 8
	DefaultInsertBatchSize            = 500
	DefaultRetryAttempts              = 10
	DefaultRetryBaseDelay             = 200 * time.Millisecond
	DefaultMaxParallelVersions        = 16
	DefaultFeatureThreshold           = 100
	DefaultSimHashThreshold           = 90.0
	DefaultMinHashThreshold           = 85.0
	DefaultMinOccurrences             = 5
	DefaultLoadPartitions             = 64
	DefaultLoadConcurrency            = 10
	DefaultWatchDebounce              = 500 * time.Millisecond
	DefaultSimHashBits                = 256
	DefaultMinHashPermutations        = 256
	DefaultSignatureSeed       uint64 = 1337

	configFileName = ".jslibsig.kdl"
)

type Config struct {
	Version   int
	Store     Store
	Index     Index
	Recognize Recognize
	Signature Signature
}

// Store selects and tunes the reference corpus backend.
type Store struct {
	Backend        string        `validate:"oneof=sqlite badger"`
	Path           string        `validate:"required_unless=InMemory true"`
	InMemory       bool          // badger only; used by tests
	MaxOpenConns   int           `validate:"min=1"`
	BatchSize      int           `validate:"min=1"`
	RetryAttempts  int           `validate:"min=1,max=100"`
	RetryBaseDelay time.Duration `validate:"min=0"`
}

type Index struct {
	MaxParallelVersions int `validate:"min=1"`
	FeatureThreshold    int `validate:"min=0"`
	Namespace           string
	Include             []string
	Exclude             []string
}

// Recognize holds the matching and aggregation knobs. Thresholds are
// percentages; a match must be strictly above them.
type Recognize struct {
	SimHashThreshold     float64 `validate:"gt=0,lte=100"`
	MinHashThreshold     float64 `validate:"gt=0,lte=100"`
	SimHashMinOccurrence int     `validate:"min=1"`
	MinHashMinOccurrence int     `validate:"min=1"`
	FeatureThreshold     int     `validate:"min=0"`
	LoadPartitions       int     `validate:"min=1"`
	LoadConcurrency      int     `validate:"min=1"`
	MatchWorkers         int     `validate:"min=0"` // 0 = NumCPU
	WatchDebounce        time.Duration
}

type Signature struct {
	SimHashBits int `validate:"min=64,max=256,mult64"`
	MinHashSize int `validate:"min=1,max=4096"`
	Seed        uint64
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Store: Store{
			Backend:        DefaultStoreBackend,
			Path:           DefaultStorePath,
			MaxOpenConns:   DefaultMaxOpenConns,
			BatchSize:      DefaultInsertBatchSize,
			RetryAttempts:  DefaultRetryAttempts,
			RetryBaseDelay: DefaultRetryBaseDelay,
		},
		Index: Index{
			MaxParallelVersions: DefaultMaxParallelVersions,
			FeatureThreshold:    DefaultFeatureThreshold,
			Include:             []string{},
			Exclude:             defaultExclusions(),
		},
		Recognize: Recognize{
			SimHashThreshold:     DefaultSimHashThreshold,
			MinHashThreshold:     DefaultMinHashThreshold,
			SimHashMinOccurrence: DefaultMinOccurrences,
			MinHashMinOccurrence: DefaultMinOccurrences,
			FeatureThreshold:     DefaultFeatureThreshold,
			LoadPartitions:       DefaultLoadPartitions,
			LoadConcurrency:      DefaultLoadConcurrency,
			MatchWorkers:         runtime.NumCPU(),
			WatchDebounce:        DefaultWatchDebounce,
		},
		Signature: Signature{
			SimHashBits: DefaultSimHashBits,
			MinHashSize: DefaultMinHashPermutations,
			Seed:        DefaultSignatureSeed,
		},
	}
}

// Load reads the global config from the home directory and the project
// config, merges them and validates the result. target is either a directory
// holding .jslibsig.kdl or the path of a .kdl file. Missing files are not an
// error; an explicitly named file that does not exist is.
func Load(target string) (*Config, error) {
	if target == "" {
		target = "."
	}

	var base *Config
	if home, err := os.UserHomeDir(); err == nil {
		if cfg, err := LoadKDL(home); err == nil && cfg != nil {
			base = cfg
		}
	}

	var (
		project *Config
		err     error
	)
	if strings.EqualFold(filepath.Ext(target), ".kdl") {
		if _, statErr := os.Stat(target); statErr != nil {
			return nil, lerrors.NewConfigError("config", target, statErr)
		}
		project, err = loadKDLFile(target)
	} else {
		project, err = LoadKDL(target)
	}
	if err != nil {
		return nil, err
	}

	var cfg *Config
	switch {
	case base != nil && project != nil:
		cfg = mergeConfigs(base, project)
	case project != nil:
		cfg = project
	case base != nil:
		cfg = base
	default:
		cfg = Default()
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeConfigs lets project settings win while keeping the base exclusions.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Index.Exclude) > 0 {
		merged.Index.Exclude = DeduplicatePatterns(append(append([]string{}, base.Index.Exclude...), project.Index.Exclude...))
	}
	if len(project.Index.Include) == 0 && len(base.Index.Include) > 0 {
		merged.Index.Include = base.Index.Include
	}
	return &merged
}

// DeduplicatePatterns removes repeated patterns, keeping first occurrences.
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func defaultExclusions() []string {
	return []string{
		"**/.git/**",
		"**/__tests__/**",
		"**/test/**",
		"**/tests/**",
		"**/*.test.js",
		"**/*.spec.js",
		"**/coverage/**",
	}
}
