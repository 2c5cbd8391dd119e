// Package recognition matches unknown JavaScript against the reference
// corpus and names the most likely library versions.
package recognition

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/metrics"
	"github.com/standardbeagle/jslibsig/internal/scanner"
	"github.com/standardbeagle/jslibsig/internal/store"
)

// Corpus is the reference set held in memory. It is never modified after
// construction and may be shared by any number of goroutines.
type Corpus struct {
	entries     []store.ReferenceEntry
	simHashBits int
	minHashSize int
}

// NewCorpus wraps entries, which must all carry signatures of one shape.
func NewCorpus(entries []store.ReferenceEntry) (*Corpus, error) {
	c := &Corpus{entries: entries}
	for i := range entries {
		e := &entries[i]
		bits, size := e.SimHash.Bits(), len(e.MinHash)
		if i == 0 {
			c.simHashBits, c.minHashSize = bits, size
			continue
		}
		if bits != c.simHashBits || size != c.minHashSize {
			return nil, lerrors.NewStoreError("load corpus", false,
				fmt.Errorf("entry %d has %d-bit simhash and %d-slot minhash, corpus has %d and %d",
					e.ID, bits, size, c.simHashBits, c.minHashSize))
		}
	}
	return c, nil
}

// Len returns the number of reference entries.
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Entries returns the entries. Callers must not modify them.
func (c *Corpus) Entries() []store.ReferenceEntry {
	return c.entries
}

// IDRange is an inclusive id interval.
type IDRange struct {
	From, To int64
}

// Partition splits 1..maxID into at most n contiguous inclusive ranges of
// near-equal size, with no gaps and no overlap.
func Partition(maxID int64, n int) []IDRange {
	if maxID < 1 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if int64(n) > maxID {
		n = int(maxID)
	}
	size, rem := maxID/int64(n), maxID%int64(n)
	out := make([]IDRange, 0, n)
	from := int64(1)
	for i := 0; i < n; i++ {
		to := from + size - 1
		if int64(i) < rem {
			to++
		}
		out = append(out, IDRange{From: from, To: to})
		from = to + 1
	}
	return out
}

// LoadOptions controls the partitioned corpus load.
type LoadOptions struct {
	Partitions  int
	Concurrency int
}

// Load reads the whole corpus from s, fetching id partitions concurrently.
// Any failed partition fails the load; a partial corpus is never returned.
func Load(ctx context.Context, s store.Store, opts LoadOptions, m *metrics.Metrics) (*Corpus, error) {
	defer m.Phase("load")()
	start := time.Now()

	maxID, err := s.MaxID(ctx)
	if err != nil {
		return nil, err
	}
	ranges := Partition(maxID, opts.Partitions)
	parts := make([][]store.ReferenceEntry, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, r := range ranges {
		g.Go(func() error {
			entries, err := s.LoadRange(gctx, r.From, r.To)
			if err != nil {
				return fmt.Errorf("load ids %d-%d: %w", r.From, r.To, err)
			}
			parts[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	entries := make([]store.ReferenceEntry, 0, total)
	for _, p := range parts {
		entries = append(entries, p...)
	}

	c, err := NewCorpus(entries)
	if err != nil {
		return nil, err
	}
	m.Corpus(c.Len())
	if c.Len() == 0 {
		debug.Warn("reference corpus is empty")
	}
	debug.Info("reference corpus loaded",
		"entries", c.Len(),
		"partitions", len(ranges),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return c, nil
}

// LibraryStats describes one library in the corpus.
type LibraryStats struct {
	Namespace string   `json:"namespace,omitempty"`
	Name      string   `json:"name"`
	Versions  []string `json:"versions"`
	Entries   int      `json:"entries"`
}

// Stats summarizes a corpus.
type Stats struct {
	Entries   int            `json:"entries"`
	Libraries int            `json:"libraries"`
	Versions  int            `json:"versions"`
	Oldest    time.Time      `json:"oldest"`
	Newest    time.Time      `json:"newest"`
	PerLib    []LibraryStats `json:"per_library"`
}

// Stats counts entries per library and version.
func (c *Corpus) Stats() Stats {
	type libKey struct{ ns, name string }
	libs := make(map[libKey]*LibraryStats)
	versions := make(map[libKey]map[string]struct{})

	st := Stats{Entries: len(c.entries)}
	for i := range c.entries {
		e := &c.entries[i]
		k := libKey{e.Namespace, e.LibName}
		ls, ok := libs[k]
		if !ok {
			ls = &LibraryStats{Namespace: e.Namespace, Name: e.LibName}
			libs[k] = ls
			versions[k] = make(map[string]struct{})
		}
		ls.Entries++
		versions[k][e.Version] = struct{}{}

		if st.Oldest.IsZero() || e.CreatedAt.Before(st.Oldest) {
			st.Oldest = e.CreatedAt
		}
		if e.CreatedAt.After(st.Newest) {
			st.Newest = e.CreatedAt
		}
	}

	for k, ls := range libs {
		for v := range versions[k] {
			ls.Versions = append(ls.Versions, v)
		}
		sort.Slice(ls.Versions, func(i, j int) bool {
			return scanner.CompareVersions(ls.Versions[i], ls.Versions[j]) < 0
		})
		st.Versions += len(ls.Versions)
		st.PerLib = append(st.PerLib, *ls)
	}
	sort.Slice(st.PerLib, func(i, j int) bool {
		a, b := st.PerLib[i], st.PerLib[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Namespace < b.Namespace
	})
	st.Libraries = len(st.PerLib)
	return st
}

// WriteTo prints the stats as text.
func (s Stats) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	fmt.Fprintf(cw, "Entries: %d\nLibraries: %d\nVersions: %d\n", s.Entries, s.Libraries, s.Versions)
	if s.Entries > 0 {
		fmt.Fprintf(cw, "Indexed: %s .. %s\n", s.Oldest.Format(time.RFC3339), s.Newest.Format(time.RFC3339))
	}
	for _, l := range s.PerLib {
		name := l.Name
		if l.Namespace != "" {
			name = l.Namespace + "/" + l.Name
		}
		fmt.Fprintf(cw, "%s; versions %d; entries %d\n", name, len(l.Versions), l.Entries)
	}
	return cw.n, cw.err
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
