package recognition

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/jslibsig/internal/config"
	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/features"
	"github.com/standardbeagle/jslibsig/internal/metrics"
	"github.com/standardbeagle/jslibsig/internal/scanner"
	"github.com/standardbeagle/jslibsig/internal/signature"
)

const phase = "analyze"

// ctxCheckEvery is how many reference entries a match worker scans between
// cancellation checks.
const ctxCheckEvery = 1024

// Options controls analysis.
type Options struct {
	// Thresholds are percentages; a match must be strictly above them.
	SimHashThreshold float64
	MinHashThreshold float64

	SimHashMinOccurrences int
	MinHashMinOccurrences int

	// FeatureThreshold drops unknown functions with this many features or fewer.
	FeatureThreshold int
	MatchWorkers     int
	Filter           *scanner.Filter
}

// OptionsFromConfig maps the configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SimHashThreshold:      cfg.Recognize.SimHashThreshold,
		MinHashThreshold:      cfg.Recognize.MinHashThreshold,
		SimHashMinOccurrences: cfg.Recognize.SimHashMinOccurrence,
		MinHashMinOccurrences: cfg.Recognize.MinHashMinOccurrence,
		FeatureThreshold:      cfg.Recognize.FeatureThreshold,
		MatchWorkers:          cfg.Recognize.MatchWorkers,
		Filter:                scanner.NewFilter(cfg.Index.Include, cfg.Index.Exclude),
	}
}

// Recognizer analyzes folders against a loaded corpus. It holds no state
// between calls and is safe for concurrent use.
type Recognizer struct {
	corpus  *Corpus
	gen     *signature.Generator
	opts    Options
	metrics *metrics.Metrics
}

// New checks that gen produces signatures comparable with the corpus.
func New(corpus *Corpus, gen *signature.Generator, opts Options, m *metrics.Metrics) (*Recognizer, error) {
	if corpus == nil {
		return nil, errors.New("recognition: nil corpus")
	}
	if gen == nil {
		gen = signature.Default()
	}
	if corpus.Len() > 0 {
		if bits := gen.SimHasher().Bits(); bits != corpus.simHashBits {
			return nil, lerrors.NewConfigError("signature.SimHashBits", fmt.Sprint(bits),
				fmt.Errorf("corpus was built with %d-bit simhashes", corpus.simHashBits))
		}
		if size := gen.MinHasher().Size(); size != corpus.minHashSize {
			return nil, lerrors.NewConfigError("signature.MinHashSize", fmt.Sprint(size),
				fmt.Errorf("corpus was built with %d-slot minhashes", corpus.minHashSize))
		}
	}
	if opts.MatchWorkers <= 0 {
		opts.MatchWorkers = runtime.NumCPU()
	}
	if opts.Filter == nil {
		opts.Filter = scanner.NewFilter(nil, nil)
	}
	return &Recognizer{corpus: corpus, gen: gen, opts: opts, metrics: m}, nil
}

// Unknown is one fingerprinted function of the code under analysis.
type Unknown struct {
	File      string
	Name      string
	Signature signature.Signature
}

// AnalyzeFolder fingerprints every candidate file under dir and reports the
// most likely library versions per hash family. Files that fail to parse or
// extract are logged and skipped.
func (r *Recognizer) AnalyzeFolder(ctx context.Context, dir string) (*Report, error) {
	defer r.metrics.Phase(phase)()
	start := time.Now()

	files, err := scanner.Files(ctx, dir, r.opts.Filter)
	if err != nil {
		return nil, err
	}
	report := &Report{Folder: dir, Files: len(files)}

	unknowns, failed, err := r.fingerprintFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	report.Failed = failed
	report.Functions = len(unknowns)

	sim, mh, err := r.Match(ctx, unknowns)
	if err != nil {
		return nil, err
	}
	r.metrics.Matches(string(FamilySimHash), len(sim))
	r.metrics.Matches(string(FamilyMinHash), len(mh))

	report.MinHash = Aggregate(mh, r.opts.MinHashMinOccurrences)
	report.SimHash = Aggregate(sim, r.opts.SimHashMinOccurrences)

	debug.LogRecognition("%s: %d files, %d functions, %d simhash / %d minhash matches in %s\n",
		dir, len(files), len(unknowns), len(sim), len(mh), time.Since(start).Round(time.Millisecond))
	return report, nil
}

// AnalyzeEach analyzes every immediate subdirectory of root as its own
// folder. A subfolder that cannot be scanned is logged and skipped.
func (r *Recognizer) AnalyzeEach(ctx context.Context, root string) ([]*Report, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, lerrors.NewFileError("read", root, err)
	}
	var reports []*Report
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rep, err := r.AnalyzeFolder(ctx, filepath.Join(root, e.Name()))
		if err != nil {
			if isContextErr(err) {
				return reports, err
			}
			debug.Warn("skipping folder", "path", filepath.Join(root, e.Name()), "error", err)
			continue
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// fingerprintFiles extracts and signs the functions of files on a bounded
// pool. Each worker writes only its own slot; slots are merged in file order.
func (r *Recognizer) fingerprintFiles(ctx context.Context, files []string) ([]Unknown, int, error) {
	perFile := make([][]Unknown, len(files))
	failed := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.MatchWorkers)
	for i, path := range files {
		g.Go(func() error {
			fns, err := features.ExtractFile(gctx, path)
			if err != nil {
				if isContextErr(err) {
					return err
				}
				failed[i] = true
				r.metrics.File(phase, metrics.OutcomeFailed)
				logFileFailure("failed to analyze file", path, err)
				return nil
			}
			r.metrics.File(phase, metrics.OutcomeOK)
			fns = features.FilterByFeatureCount(fns, r.opts.FeatureThreshold)
			out := make([]Unknown, len(fns))
			for j, fn := range fns {
				out[j] = Unknown{File: path, Name: fn.Name, Signature: r.gen.Sign(fn)}
			}
			perFile[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var unknowns []Unknown
	nFailed := 0
	for i := range files {
		unknowns = append(unknowns, perFile[i]...)
		if failed[i] {
			nFailed++
		}
	}
	r.metrics.Functions(phase, len(unknowns))
	return unknowns, nFailed, nil
}

// Match compares every unknown signature with every reference entry and
// returns the matches above each family's threshold. The corpus is split into
// one contiguous chunk per worker; each worker collects matches locally and
// the chunks are concatenated in corpus order.
func (r *Recognizer) Match(ctx context.Context, unknowns []Unknown) (sim, mh []Match, err error) {
	entries := r.corpus.entries
	if len(unknowns) == 0 || len(entries) == 0 {
		return nil, nil, nil
	}
	workers := r.opts.MatchWorkers
	if workers > len(entries) {
		workers = len(entries)
	}
	chunk := (len(entries) + workers - 1) / workers

	type local struct {
		sim, mh []Match
	}
	locals := make([]local, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(entries))
		if lo >= hi {
			break
		}
		g.Go(func() error {
			var l local
			for i := lo; i < hi; i++ {
				if (i-lo)%ctxCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				e := &entries[i]
				for u := range unknowns {
					sig := &unknowns[u].Signature
					s, err := signature.SimHashSimilarity(e.SimHash, sig.SimHash)
					if err != nil {
						return fmt.Errorf("entry %d: %w", e.ID, err)
					}
					if s > r.opts.SimHashThreshold {
						l.sim = append(l.sim, Match{Entry: e, Similarity: s})
					}
					s, err = signature.MinHashSimilarity(e.MinHash, sig.MinHash)
					if err != nil {
						return fmt.Errorf("entry %d: %w", e.ID, err)
					}
					if s > r.opts.MinHashThreshold {
						l.mh = append(l.mh, Match{Entry: e, Similarity: s})
					}
				}
			}
			locals[w] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for _, l := range locals {
		sim = append(sim, l.sim...)
		mh = append(mh, l.mh...)
	}
	return sim, mh, nil
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
