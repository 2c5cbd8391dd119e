package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/jslibsig/internal/debug"
)

// LoadKDL loads .jslibsig.kdl from dir. It returns nil, nil when the file
// does not exist.
func LoadKDL(dir string) (*Config, error) {
	return loadKDLFile(filepath.Join(dir, configFileName))
}

func loadKDLFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Relative store paths are resolved against the config file's directory.
	if cfg.Store.Path != "" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Clean(filepath.Join(filepath.Dir(path), cfg.Store.Path))
	}
	return cfg, nil
}

// parseKDL overlays the document onto the defaults. Unknown nodes are ignored.
//
//	store {
//	    backend "badger"
//	    path "corpus"
//	    retry_attempts 10
//	    retry_base_delay "250ms"
//	}
//	recognize {
//	    simhash_threshold 92.5
//	    min_occurrences 3
//	}
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "store":
			parseStoreSection(cfg, n.Children)
		case "index":
			parseIndexSection(cfg, n.Children)
		case "recognize":
			parseRecognizeSection(cfg, n.Children)
		case "signature":
			parseSignatureSection(cfg, n.Children)
		case "exclude":
			cfg.Index.Exclude = DeduplicatePatterns(append(cfg.Index.Exclude, collectStringArgs(n)...))
		case "include":
			cfg.Index.Include = collectStringArgs(n)
		}
	}
	return cfg, nil
}

func parseStoreSection(cfg *Config, nodes []*document.Node) {
	for _, cn := range nodes {
		switch nodeName(cn) {
		case "backend":
			assignSimpleString(cn, func(v string) { cfg.Store.Backend = strings.ToLower(v) })
		case "path":
			assignSimpleString(cn, func(v string) { cfg.Store.Path = v })
		case "in_memory":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Store.InMemory = b
			}
		case "max_open_conns":
			if v, ok := firstIntArg(cn); ok {
				cfg.Store.MaxOpenConns = v
			}
		case "batch_size":
			if v, ok := firstIntArg(cn); ok {
				cfg.Store.BatchSize = v
			}
		case "retry_attempts":
			if v, ok := firstIntArg(cn); ok {
				cfg.Store.RetryAttempts = v
			}
		case "retry_base_delay":
			if d, ok := firstDurationArg(cn); ok {
				cfg.Store.RetryBaseDelay = d
			}
		}
	}
}

func parseIndexSection(cfg *Config, nodes []*document.Node) {
	for _, cn := range nodes {
		switch nodeName(cn) {
		case "max_parallel_versions":
			if v, ok := firstIntArg(cn); ok {
				cfg.Index.MaxParallelVersions = v
			}
		case "feature_threshold":
			if v, ok := firstIntArg(cn); ok {
				cfg.Index.FeatureThreshold = v
			}
		case "namespace":
			assignSimpleString(cn, func(v string) { cfg.Index.Namespace = v })
		}
	}
}

func parseRecognizeSection(cfg *Config, nodes []*document.Node) {
	for _, cn := range nodes {
		switch nodeName(cn) {
		case "simhash_threshold":
			if v, ok := firstFloatArg(cn); ok {
				cfg.Recognize.SimHashThreshold = v
			}
		case "minhash_threshold":
			if v, ok := firstFloatArg(cn); ok {
				cfg.Recognize.MinHashThreshold = v
			}
		case "min_occurrences":
			if v, ok := firstIntArg(cn); ok {
				cfg.Recognize.SimHashMinOccurrence = v
				cfg.Recognize.MinHashMinOccurrence = v
			}
		case "simhash_min_occurrences":
			if v, ok := firstIntArg(cn); ok {
				cfg.Recognize.SimHashMinOccurrence = v
			}
		case "minhash_min_occurrences":
			if v, ok := firstIntArg(cn); ok {
				cfg.Recognize.MinHashMinOccurrence = v
			}
		case "feature_threshold":
			if v, ok := firstIntArg(cn); ok {
				cfg.Recognize.FeatureThreshold = v
			}
		case "load_partitions":
			if v, ok := firstIntArg(cn); ok {
				cfg.Recognize.LoadPartitions = v
			}
		case "load_concurrency":
			if v, ok := firstIntArg(cn); ok {
				cfg.Recognize.LoadConcurrency = v
			}
		case "match_workers":
			if v, ok := firstIntArg(cn); ok {
				cfg.Recognize.MatchWorkers = v
			}
		case "watch_debounce":
			if d, ok := firstDurationArg(cn); ok {
				cfg.Recognize.WatchDebounce = d
			}
		}
	}
}

func parseSignatureSection(cfg *Config, nodes []*document.Node) {
	for _, cn := range nodes {
		switch nodeName(cn) {
		case "simhash_bits":
			if v, ok := firstIntArg(cn); ok {
				cfg.Signature.SimHashBits = v
			}
		case "minhash_size":
			if v, ok := firstIntArg(cn); ok {
				cfg.Signature.MinHashSize = v
			}
		case "seed":
			if v, ok := firstIntArg(cn); ok && v >= 0 {
				cfg.Signature.Seed = uint64(v)
			}
		}
	}
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		debug.Warn("invalid number in config", "node", nodeName(n), "type", fmt.Sprintf("%T", v))
		return 0, false
	}
}

// firstDurationArg accepts a Go duration string or a bare number of
// milliseconds.
func firstDurationArg(n *document.Node) (time.Duration, bool) {
	if s, ok := firstStringArg(n); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			debug.Warn("invalid duration in config", "node", nodeName(n), "value", s)
			return 0, false
		}
		return d, true
	}
	if v, ok := firstIntArg(n); ok {
		return time.Duration(v) * time.Millisecond, true
	}
	return 0, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// Block form: exclude { "pattern" }. Each string is a child node name.
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, set func(string)) {
	if s, ok := firstStringArg(n); ok {
		set(s)
	}
}
