package signature

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultMinHashSize is the number of hash functions in the bank.
	DefaultMinHashSize = 256

	// mersenne61 is 2^61-1, the modulus of the affine hash family.
	mersenne61 uint64 = (1 << 61) - 1
)

// MinHash holds the per-function minimum of each hash in the bank.
type MinHash []uint32

// permutation is one member of the hash family: (a*x + b) mod 2^61-1.
type permutation struct {
	a, b uint64
}

// MinHasher computes minimum-hash sketches over feature payloads. Two
// sketches are only comparable when produced by hashers with the same size
// and seed, which always share one bank.
type MinHasher struct {
	bank []permutation
}

type bankKey struct {
	size int
	seed uint64
}

var (
	banksMu sync.Mutex
	banks   = make(map[bankKey][]permutation)
)

// NewMinHasher returns a hasher over the process-wide bank for (size, seed).
// The bank is generated on first use and reused afterwards.
func NewMinHasher(size int, seed uint64) (*MinHasher, error) {
	if size <= 0 {
		return nil, fmt.Errorf("minhash size %d must be positive", size)
	}
	return &MinHasher{bank: sharedBank(size, seed)}, nil
}

func sharedBank(size int, seed uint64) []permutation {
	banksMu.Lock()
	defer banksMu.Unlock()

	k := bankKey{size: size, seed: seed}
	if bank, ok := banks[k]; ok {
		return bank
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
	bank := make([]permutation, size)
	for i := range bank {
		bank[i] = permutation{
			a: 1 + rng.Uint64N(mersenne61-1),
			b: rng.Uint64N(mersenne61),
		}
	}
	banks[k] = bank
	return bank
}

// Size returns the number of slots in each sketch.
func (h *MinHasher) Size() int {
	return len(h.bank)
}

// Compute sketches the payload list. Payload order and multiplicity do not
// affect the result.
func (h *MinHasher) Compute(payloads []string) MinHash {
	out := make(MinHash, len(h.bank))
	for i := range out {
		out[i] = math.MaxUint32
	}
	for _, p := range payloads {
		x := xxhash.Sum64String(p) % mersenne61
		for i, perm := range h.bank {
			hi, lo := bits.Mul64(perm.a, x)
			v := uint32((bits.Rem64(hi, lo, mersenne61) + perm.b) % mersenne61)
			if v < out[i] {
				out[i] = v
			}
		}
	}
	return out
}

// MinHashSimilarity returns the share of equal slots as a percentage.
func MinHashSimilarity(a, b MinHash) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("minhash length mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("minhash is empty")
	}
	equal := 0
	for i := range a {
		if a[i] == b[i] {
			equal++
		}
	}
	return float64(equal) / float64(len(a)) * 100, nil
}

// Bytes encodes the sketch as little-endian uint32 values.
func (m MinHash) Bytes() []byte {
	out := make([]byte, len(m)*4)
	for i, v := range m {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// MinHashFromBytes decodes the output of MinHash.Bytes.
func MinHashFromBytes(b []byte) (MinHash, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("minhash encoding has invalid length %d", len(b))
	}
	out := make(MinHash, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}
