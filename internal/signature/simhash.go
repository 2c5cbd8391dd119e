package signature

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/minio/highwayhash"

	"github.com/standardbeagle/jslibsig/internal/types"
)

const (
	// DefaultSimHashBits is the similarity hash width.
	DefaultSimHashBits = 256

	// DefaultSeed keys both hash families.
	DefaultSeed uint64 = 1337

	maxSimHashBits = highwayhash.Size * 8
)

// SimHash is a fixed-width bit vector, bit i stored at word i/64.
type SimHash []uint64

// Bits returns the width of the hash.
func (s SimHash) Bits() int {
	return len(s) * 64
}

// SimHasher computes weighted similarity hashes. It is safe for
// concurrent use.
type SimHasher struct {
	bits    int
	key     []byte
	weights []float64
}

// NewSimHasher builds a hasher for the given width, which must be a
// multiple of 64 no larger than 256.
func NewSimHasher(width int, weights Weights, seed uint64) (*SimHasher, error) {
	if width <= 0 || width%64 != 0 || width > maxSimHashBits {
		return nil, fmt.Errorf("simhash width %d must be a positive multiple of 64 up to %d", width, maxSimHashBits)
	}
	if weights == nil {
		weights = DefaultWeights()
	}
	return &SimHasher{
		bits:    width,
		key:     deriveKey(seed),
		weights: weights.table(),
	}, nil
}

// Bits returns the configured width.
func (h *SimHasher) Bits() int {
	return h.bits
}

// Compute folds the feature list into a SimHash. Feature order does not
// affect the result.
func (h *SimHasher) Compute(features []types.Feature) SimHash {
	acc := make([]float64, h.bits)
	for _, f := range features {
		w := DefaultWeight
		if int(f.Kind) < len(h.weights) {
			w = h.weights[f.Kind]
		}
		digest := highwayhash.Sum([]byte(f.Payload), h.key)
		for j := 0; j < h.bits; j++ {
			if digest[j/8]&(1<<(j%8)) != 0 {
				acc[j] += w
			} else {
				acc[j] -= w
			}
		}
	}

	out := make(SimHash, h.bits/64)
	for i, v := range acc {
		if v > 0 {
			out[i/64] |= 1 << (i % 64)
		}
	}
	return out
}

// HammingDistance counts differing bits between two equal-width hashes.
func HammingDistance(a, b SimHash) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("simhash width mismatch: %d vs %d bits", a.Bits(), b.Bits())
	}
	d := 0
	for i := range a {
		d += bits.OnesCount64(a[i] ^ b[i])
	}
	return d, nil
}

// SimHashSimilarity returns (width - hamming) / width as a percentage.
func SimHashSimilarity(a, b SimHash) (float64, error) {
	d, err := HammingDistance(a, b)
	if err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("simhash is empty")
	}
	w := float64(a.Bits())
	return (w - float64(d)) / w * 100, nil
}

// Bytes encodes the hash as little-endian words.
func (s SimHash) Bytes() []byte {
	out := make([]byte, len(s)*8)
	for i, word := range s {
		binary.LittleEndian.PutUint64(out[i*8:], word)
	}
	return out
}

// SimHashFromBytes decodes the output of SimHash.Bytes.
func SimHashFromBytes(b []byte) (SimHash, error) {
	if len(b) == 0 || len(b)%8 != 0 {
		return nil, fmt.Errorf("simhash encoding has invalid length %d", len(b))
	}
	out := make(SimHash, len(b)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return out, nil
}

// deriveKey expands a seed into a 32 byte HighwayHash key with splitmix64.
func deriveKey(seed uint64) []byte {
	key := make([]byte, highwayhash.Size)
	state := seed
	for i := 0; i < len(key); i += 8 {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		binary.LittleEndian.PutUint64(key[i:], z)
	}
	return key
}
