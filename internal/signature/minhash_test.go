package signature

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/jslibsig/internal/types"
)

func randomPayloads(rng *rand.Rand, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("p%d", rng.Intn(100000))
	}
	return out
}

func newTestMinHasher(t *testing.T) *MinHasher {
	t.Helper()
	h, err := NewMinHasher(DefaultMinHashSize, DefaultSeed)
	require.NoError(t, err)
	return h
}

func TestMinHasher_ConstantLength(t *testing.T) {
	h := newTestMinHasher(t)
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{0, 1, 50, 1000} {
		assert.Len(t, h.Compute(randomPayloads(rng, n)), DefaultMinHashSize)
	}
}

func TestMinHasher_SelfSimilarity(t *testing.T) {
	h := newTestMinHasher(t)
	rng := rand.New(rand.NewSource(5))
	p := randomPayloads(rng, 80)

	sim, err := MinHashSimilarity(h.Compute(p), h.Compute(p))
	require.NoError(t, err)
	assert.Equal(t, 100.0, sim)
}

func TestMinHasher_BankIsShared(t *testing.T) {
	a := newTestMinHasher(t)
	b := newTestMinHasher(t)
	payloads := []string{"IfStatement-Begin", "1", "foo"}

	assert.Equal(t, a.Compute(payloads), b.Compute(payloads))
	assert.Same(t, &a.bank[0], &b.bank[0])
}

func TestMinHasher_SetSemantics(t *testing.T) {
	h := newTestMinHasher(t)
	a := h.Compute([]string{"x", "y", "z"})
	b := h.Compute([]string{"z", "x", "y", "y", "x"})
	assert.Equal(t, a, b)
}

func TestMinHashSimilarity_Symmetric(t *testing.T) {
	h := newTestMinHasher(t)
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 20; i++ {
		a := h.Compute(randomPayloads(rng, 60))
		b := h.Compute(randomPayloads(rng, 60))
		ab, err := MinHashSimilarity(a, b)
		require.NoError(t, err)
		ba, err := MinHashSimilarity(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	}
}

func TestMinHasher_NearEditsScoreNear(t *testing.T) {
	h := newTestMinHasher(t)
	rng := rand.New(rand.NewSource(17))

	for i := 0; i < 10; i++ {
		base := randomPayloads(rng, 200)
		edited := append([]string(nil), base...)
		edited[rng.Intn(len(edited))] = "changed-literal"
		unrelated := randomPayloads(rng, 200)

		hb := h.Compute(base)
		near, err := MinHashSimilarity(hb, h.Compute(edited))
		require.NoError(t, err)
		far, err := MinHashSimilarity(hb, h.Compute(unrelated))
		require.NoError(t, err)

		assert.Greater(t, near, 90.0)
		assert.Greater(t, near, far)
	}
}

func TestMinHashSimilarity_LengthMismatch(t *testing.T) {
	small, err := NewMinHasher(128, DefaultSeed)
	require.NoError(t, err)
	big := newTestMinHasher(t)

	_, err = MinHashSimilarity(small.Compute([]string{"a"}), big.Compute([]string{"a"}))
	assert.Error(t, err)
}

func TestMinHash_BytesRoundTrip(t *testing.T) {
	h := newTestMinHasher(t)
	m := h.Compute([]string{"a", "b"})

	raw := m.Bytes()
	assert.Len(t, raw, DefaultMinHashSize*4)
	back, err := MinHashFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, m, back)

	_, err = MinHashFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestGenerator_Sign(t *testing.T) {
	g := Default()
	assert.Same(t, g, Default())

	fn := &types.Function{Name: "foo", Features: sampleFunction("foo")}
	sig := g.Sign(fn)
	assert.Equal(t, DefaultSimHashBits, sig.SimHash.Bits())
	assert.Len(t, sig.MinHash, DefaultMinHashSize)
	assert.Equal(t, sig, g.Sign(fn))
}
