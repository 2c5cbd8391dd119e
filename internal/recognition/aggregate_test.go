package recognition

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/jslibsig/internal/store"
)

type matchBuilder struct {
	nextID int64
	out    []Match
}

func (b *matchBuilder) add(ns, lib, version string, sims ...float64) *matchBuilder {
	for _, s := range sims {
		b.nextID++
		b.out = append(b.out, Match{
			Entry:      &store.ReferenceEntry{ID: b.nextID, Namespace: ns, LibName: lib, Version: version},
			Similarity: s,
		})
	}
	return b
}

func TestAggregate_PicksMostOccurrences(t *testing.T) {
	b := &matchBuilder{}
	b.add("", "left-pad", "1.0.0", 95, 96, 97, 98)
	b.add("", "left-pad", "1.0.1", 99)

	picks := Aggregate(b.out, 2)
	require.Len(t, picks, 1)
	assert.Equal(t, Pick{Library: "left-pad", Version: "1.0.0", Occurrences: 4, Confidence: 96.5}, picks[0])
}

func TestAggregate_DropsBelowMinimum(t *testing.T) {
	b := &matchBuilder{}
	b.add("", "lodash", "4.17.21", 99)
	b.add("", "react", "18.2.0", 95, 95)

	picks := Aggregate(b.out, 2)
	require.Len(t, picks, 1)
	assert.Equal(t, "react", picks[0].Library)

	// The minimum is inclusive.
	assert.Len(t, Aggregate(b.out, 1), 2)
	assert.Empty(t, Aggregate(nil, 1))
}

func TestAggregate_TieGoesToHigherAverage(t *testing.T) {
	b := &matchBuilder{}
	b.add("", "lib", "1.0.0", 91, 92, 93)
	b.add("", "lib", "1.1.0", 97, 98, 99)
	b.add("", "lib", "2.0.0", 95)

	picks := Aggregate(b.out, 1)
	require.Len(t, picks, 1)
	assert.Equal(t, "1.1.0", picks[0].Version)
	assert.Equal(t, 3, picks[0].Occurrences)
	assert.InDelta(t, 98.0, picks[0].Confidence, 1e-9)
}

func TestAggregate_FullTieGoesToHigherVersion(t *testing.T) {
	b := &matchBuilder{}
	b.add("", "lib", "1.10.0", 95, 95)
	b.add("", "lib", "1.9.0", 95, 95)

	picks := Aggregate(b.out, 1)
	require.Len(t, picks, 1)
	assert.Equal(t, "1.10.0", picks[0].Version)
}

func TestAggregate_NamespaceFromLowestID(t *testing.T) {
	matches := []Match{
		{Entry: &store.ReferenceEntry{ID: 9, Namespace: "@late", LibName: "core", Version: "7.0.0"}, Similarity: 95},
		{Entry: &store.ReferenceEntry{ID: 3, Namespace: "@babel", LibName: "core", Version: "7.0.0"}, Similarity: 95},
	}
	picks := Aggregate(matches, 1)
	require.Len(t, picks, 1)
	assert.Equal(t, "@babel", picks[0].Namespace)
}

func TestAggregate_FamiliesAndLibrariesAreIndependent(t *testing.T) {
	b := &matchBuilder{}
	b.add("", "zeta", "1.0.0", 92, 92)
	b.add("", "alpha", "3.0.0", 93, 93)
	b.add("", "alpha", "2.0.0", 99)

	picks := Aggregate(b.out, 1)
	require.Len(t, picks, 2)
	assert.Equal(t, "alpha", picks[0].Library)
	assert.Equal(t, "3.0.0", picks[0].Version)
	assert.Equal(t, "zeta", picks[1].Library)
}

func TestAggregate_Idempotent(t *testing.T) {
	b := &matchBuilder{}
	b.add("@s", "a", "1.0.0", 91.5, 93.25, 97)
	b.add("", "a", "1.0.1", 99, 99)
	b.add("", "b", "0.1.0", 90.1, 90.2, 90.3)

	first := Aggregate(b.out, 2)
	second := Aggregate(b.out, 2)
	assert.Equal(t, first, second)
}

func TestReport_WriteTo(t *testing.T) {
	r := &Report{
		Folder: "/tmp/app",
		MinHash: []Pick{
			{Namespace: "", Library: "left-pad", Version: "1.0.0", Occurrences: 4, Confidence: 96.5},
		},
		SimHash: []Pick{
			{Namespace: "@babel", Library: "core", Version: "7.1.0", Occurrences: 12, Confidence: 93.75},
			{Library: "left-pad", Version: "1.0.0", Occurrences: 5, Confidence: 100},
		},
	}
	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, buf.Len(), n)

	want := "===== Folder: /tmp/app =======\n" +
		"~~~~~ MINHASH ~~~~~~~\n" +
		"NS; ; Library; left-pad; Version; 1.0.0; Occurence; 4; Confidence; 96.5\n" +
		"~~~~~ SIMHASH ~~~~~~~\n" +
		"NS; @babel; Library; core; Version; 7.1.0; Occurence; 12; Confidence; 93.75\n" +
		"NS; ; Library; left-pad; Version; 1.0.0; Occurence; 5; Confidence; 100\n"
	assert.Equal(t, want, buf.String())
}

func TestReport_EmptySections(t *testing.T) {
	var buf bytes.Buffer
	_, err := (&Report{Folder: "x"}).WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "===== Folder: x =======\n~~~~~ MINHASH ~~~~~~~\n~~~~~ SIMHASH ~~~~~~~\n", buf.String())
}
