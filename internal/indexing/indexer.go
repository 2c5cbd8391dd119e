package indexing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/jslibsig/internal/config"
	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/features"
	"github.com/standardbeagle/jslibsig/internal/metrics"
	"github.com/standardbeagle/jslibsig/internal/scanner"
	"github.com/standardbeagle/jslibsig/internal/signature"
	"github.com/standardbeagle/jslibsig/internal/store"
)

const phase = "index"

// Options controls an indexing run.
type Options struct {
	MaxParallelVersions int
	// FeatureThreshold drops functions with this many features or fewer.
	FeatureThreshold int
	// Namespace overrides the scope taken from the directory layout.
	Namespace string
	Filter    *scanner.Filter
	Retry     store.RetryPolicy
}

// OptionsFromConfig maps the configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxParallelVersions: cfg.Index.MaxParallelVersions,
		FeatureThreshold:    cfg.Index.FeatureThreshold,
		Namespace:           cfg.Index.Namespace,
		Filter:              scanner.NewFilter(cfg.Index.Include, cfg.Index.Exclude),
		Retry: store.RetryPolicy{
			Attempts:  cfg.Store.RetryAttempts,
			BaseDelay: cfg.Store.RetryBaseDelay,
		},
	}
}

// Indexer fingerprints package version directories into a reference store.
type Indexer struct {
	store   store.Store
	gen     *signature.Generator
	opts    Options
	metrics *metrics.Metrics
}

// New creates an indexer. m may be nil.
func New(s store.Store, gen *signature.Generator, opts Options, m *metrics.Metrics) *Indexer {
	if gen == nil {
		gen = signature.Default()
	}
	if opts.MaxParallelVersions <= 0 {
		opts.MaxParallelVersions = config.DefaultMaxParallelVersions
	}
	if opts.Filter == nil {
		opts.Filter = scanner.NewFilter(nil, nil)
	}
	return &Indexer{store: s, gen: gen, opts: opts, metrics: m}
}

// VersionResult summarizes one version directory.
type VersionResult struct {
	Dir        scanner.VersionDir
	Files      int
	Duplicates int
	Failed     int
	Functions  int
	Stored     bool
	Err        error
}

// Result summarizes a run.
type Result struct {
	Versions  []VersionResult
	Files     int
	Failed    int
	Functions int
	Duration  time.Duration
}

// StoreFailures returns the versions whose entries could not be written.
func (r Result) StoreFailures() []VersionResult {
	var out []VersionResult
	for _, v := range r.Versions {
		if v.Err != nil {
			out = append(out, v)
		}
	}
	return out
}

// Err joins the store failures of the run, or returns nil.
func (r Result) Err() error {
	failures := r.StoreFailures()
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, len(failures))
	for i, v := range failures {
		errs[i] = fmt.Errorf("%s@%s: %w", v.Dir.Name(), v.Dir.Version, v.Err)
	}
	return lerrors.NewMultiError(errs)
}

// IndexPackages indexes every version directory under packagesRoot, or only
// those of one package when only is set. Versions run on a bounded pool.
// A version whose batch cannot be stored is reported in the result and does
// not stop the others; cancellation does.
func (ix *Indexer) IndexPackages(ctx context.Context, packagesRoot, only string) (Result, error) {
	defer ix.metrics.Phase(phase)()
	start := time.Now()

	dirs, err := scanner.VersionDirs(packagesRoot, only)
	if err != nil {
		return Result{}, err
	}
	debug.Info("indexing packages", "root", packagesRoot, "versions", len(dirs), "workers", ix.opts.MaxParallelVersions)

	results := make([]VersionResult, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.MaxParallelVersions)
	for i, dir := range dirs {
		g.Go(func() error {
			res, err := ix.IndexVersion(gctx, dir)
			results[i] = res
			if isContextErr(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	out := Result{Versions: results, Duration: time.Since(start)}
	for _, r := range results {
		out.Files += r.Files
		out.Failed += r.Failed
		out.Functions += r.Functions
	}
	debug.Info("indexing finished",
		"versions", len(results),
		"files", out.Files,
		"failed_files", out.Failed,
		"functions", out.Functions,
		"store_failures", len(out.StoreFailures()),
		"elapsed", out.Duration.Round(time.Millisecond))
	return out, nil
}

// IndexVersion extracts, signs and stores the functions of one version
// directory as a single batch. Files that fail to parse or extract are
// logged and skipped. Byte-identical files are extracted once.
func (ix *Indexer) IndexVersion(ctx context.Context, dir scanner.VersionDir) (VersionResult, error) {
	res := VersionResult{Dir: dir}

	files, err := scanner.Files(ctx, dir.Path, ix.opts.Filter)
	if err != nil {
		res.Err = err
		ix.metrics.Version(metrics.OutcomeFailed)
		if !isContextErr(err) {
			debug.Warn("skipping version directory", "path", dir.Path, "error", err)
		}
		return res, err
	}

	namespace := dir.Namespace
	if ix.opts.Namespace != "" {
		namespace = ix.opts.Namespace
	}
	now := time.Now().UTC()
	seen := make(map[uint64]struct{}, len(files))
	var entries []store.ReferenceEntry

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			res.Failed++
			ix.metrics.File(phase, metrics.OutcomeFailed)
			debug.Warn("failed to read file", "path", path, "error", err)
			continue
		}
		sum := xxhash.Sum64(src)
		if _, dup := seen[sum]; dup {
			res.Duplicates++
			ix.metrics.File(phase, metrics.OutcomeSkipped)
			continue
		}
		seen[sum] = struct{}{}
		res.Files++

		fns, err := features.ExtractSource(path, src)
		if err != nil {
			res.Failed++
			ix.metrics.File(phase, metrics.OutcomeFailed)
			logFileFailure("failed to index file", path, err)
			continue
		}
		ix.metrics.File(phase, metrics.OutcomeOK)

		fns = features.FilterByFeatureCount(fns, ix.opts.FeatureThreshold)
		for _, fn := range fns {
			sig := ix.gen.Sign(fn)
			entries = append(entries, store.ReferenceEntry{
				Namespace:    namespace,
				LibName:      dir.Package,
				Version:      dir.Version,
				FunctionName: fn.Name,
				CreatedAt:    now,
				SimHash:      sig.SimHash,
				MinHash:      sig.MinHash,
			})
		}
	}
	res.Functions = len(entries)
	ix.metrics.Functions(phase, len(entries))

	if len(entries) == 0 {
		debug.LogIndexing("%s@%s: no functions above threshold\n", dir.Name(), dir.Version)
		ix.metrics.Version(metrics.OutcomeSkipped)
		return res, nil
	}

	if err := store.InsertWithRetry(ctx, ix.store, entries, ix.opts.Retry); err != nil {
		res.Err = err
		ix.metrics.Version(metrics.OutcomeFailed)
		if isContextErr(err) {
			return res, err
		}
		if !lerrors.IsTransient(err) {
			debug.Error("failed to store version", "package", dir.Name(), "version", dir.Version, "error", err)
		}
		return res, nil
	}
	res.Stored = true
	ix.metrics.Stored(len(entries))
	ix.metrics.Version(metrics.OutcomeOK)
	debug.LogIndexing("%s@%s: %d files, %d functions stored\n", dir.Name(), dir.Version, res.Files, res.Functions)
	return res, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// logFileFailure records a skipped file. Errors that are not confined to the
// file, such as syntax the extractor does not know, are logged as errors:
// every file using that syntax loses coverage.
func logFileFailure(msg, path string, err error) {
	if lerrors.IsRecoverable(err) {
		debug.Warn(msg, "path", path, "error", err)
		return
	}
	debug.Error(msg, "path", path, "error", err)
}
