package recognition

import (
	"sort"

	"github.com/standardbeagle/jslibsig/internal/scanner"
	"github.com/standardbeagle/jslibsig/internal/store"
)

// Family names a hash family. The two families vote separately.
type Family string

const (
	FamilySimHash Family = "simhash"
	FamilyMinHash Family = "minhash"
)

// Match is one reference entry whose similarity to an unknown function
// exceeded the family threshold.
type Match struct {
	Entry      *store.ReferenceEntry
	Similarity float64
}

// Pick is the version chosen for one library.
type Pick struct {
	Namespace   string  `json:"namespace"`
	Library     string  `json:"library"`
	Version     string  `json:"version"`
	Occurrences int     `json:"occurrences"`
	Confidence  float64 `json:"confidence"`
}

type versionTally struct {
	version string
	count   int
	sum     float64
	ns      string
	nsID    int64
}

func (t *versionTally) average() float64 {
	return t.sum / float64(t.count)
}

// better reports whether a should be picked over b: more occurrences, then
// higher average similarity, then the higher version.
func better(a, b *versionTally) bool {
	if a.count != b.count {
		return a.count > b.count
	}
	if aa, ba := a.average(), b.average(); aa != ba {
		return aa > ba
	}
	if c := scanner.CompareVersions(a.version, b.version); c != 0 {
		return c > 0
	}
	return a.version > b.version
}

// Aggregate groups matches by library, then by version, and picks one version
// per library. Versions with fewer than minOccurrences matches are dropped,
// and libraries left without a version are not reported. The namespace of a
// pick comes from its lowest-id matching entry. Picks are sorted by library.
// Aggregate does not modify matches, so repeated calls agree.
func Aggregate(matches []Match, minOccurrences int) []Pick {
	libs := make(map[string]map[string]*versionTally)
	for _, m := range matches {
		e := m.Entry
		versions, ok := libs[e.LibName]
		if !ok {
			versions = make(map[string]*versionTally)
			libs[e.LibName] = versions
		}
		t, ok := versions[e.Version]
		if !ok {
			t = &versionTally{version: e.Version, ns: e.Namespace, nsID: e.ID}
			versions[e.Version] = t
		} else if e.ID < t.nsID {
			t.ns, t.nsID = e.Namespace, e.ID
		}
		t.count++
		t.sum += m.Similarity
	}

	picks := make([]Pick, 0, len(libs))
	for lib, versions := range libs {
		var best *versionTally
		for _, t := range versions {
			if t.count < minOccurrences {
				continue
			}
			if best == nil || better(t, best) {
				best = t
			}
		}
		if best == nil {
			continue
		}
		picks = append(picks, Pick{
			Namespace:   best.ns,
			Library:     lib,
			Version:     best.version,
			Occurrences: best.count,
			Confidence:  best.average(),
		})
	}
	sort.Slice(picks, func(i, j int) bool {
		return picks[i].Library < picks[j].Library
	})
	return picks
}
