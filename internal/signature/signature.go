// Package signature turns a function's feature stream into two
// locality-sensitive fingerprints: a weighted SimHash and a MinHash sketch.
package signature

import (
	"sync"

	"github.com/standardbeagle/jslibsig/internal/types"
)

// Signature is the pair of fingerprints computed for one function.
type Signature struct {
	SimHash SimHash
	MinHash MinHash
}

// Options selects the hash widths and the seed shared by both families.
type Options struct {
	SimHashBits int
	MinHashSize int
	Seed        uint64
	Weights     Weights
}

// DefaultOptions returns the settings the reference corpus is built with.
func DefaultOptions() Options {
	return Options{
		SimHashBits: DefaultSimHashBits,
		MinHashSize: DefaultMinHashSize,
		Seed:        DefaultSeed,
		Weights:     DefaultWeights(),
	}
}

// Generator computes both fingerprints. It is immutable and safe to share.
type Generator struct {
	sim *SimHasher
	mh  *MinHasher
}

// NewGenerator builds a generator from opts.
func NewGenerator(opts Options) (*Generator, error) {
	sim, err := NewSimHasher(opts.SimHashBits, opts.Weights, opts.Seed)
	if err != nil {
		return nil, err
	}
	mh, err := NewMinHasher(opts.MinHashSize, opts.Seed)
	if err != nil {
		return nil, err
	}
	return &Generator{sim: sim, mh: mh}, nil
}

var (
	defaultGen     *Generator
	defaultGenOnce sync.Once
)

// Default returns the process-wide generator built from DefaultOptions.
func Default() *Generator {
	defaultGenOnce.Do(func() {
		g, err := NewGenerator(DefaultOptions())
		if err != nil {
			panic("signature: default options rejected: " + err.Error())
		}
		defaultGen = g
	})
	return defaultGen
}

// Sign computes both fingerprints for fn.
func (g *Generator) Sign(fn *types.Function) Signature {
	return Signature{
		SimHash: g.sim.Compute(fn.Features),
		MinHash: g.mh.Compute(fn.Payloads()),
	}
}

// SimHasher exposes the similarity hash half of the generator.
func (g *Generator) SimHasher() *SimHasher {
	return g.sim
}

// MinHasher exposes the minimum hash half of the generator.
func (g *Generator) MinHasher() *MinHasher {
	return g.mh
}
