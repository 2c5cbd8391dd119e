package signature

import "github.com/standardbeagle/jslibsig/internal/types"

// DefaultWeight applies to any kind missing from a weight table.
const DefaultWeight = 1.0

// Weights maps a feature kind to its contribution in the similarity hash.
// What a function contains (strings, built-ins, literals) outweighs how it
// is nested.
type Weights map[types.FeatureKind]float64

// DefaultWeights returns a fresh copy of the tuned weight table.
func DefaultWeights() Weights {
	return Weights{
		types.FeatureSyntax:                0.5,
		types.FeatureAsync:                 1.5,
		types.FeatureLiterals:              1.5,
		types.FeatureHostEnvironmentObject: 1.5,
		types.FeatureControlFlow:           1.5,
		types.FeatureStrings:               2,
		types.FeatureECMAObject:            2,
		types.FeatureVariableName:          0.5,
		types.FeatureCodeStructure:         0.1,
		types.FeatureFunctionArgumentCount: 2,
		types.FeatureTypes:                 2,
		types.FeatureFunctionName:          0.5,
	}
}

// Weight returns the weight for kind, falling back to DefaultWeight.
func (w Weights) Weight(kind types.FeatureKind) float64 {
	if v, ok := w[kind]; ok {
		return v
	}
	return DefaultWeight
}

// table flattens the map for the hashing loop.
func (w Weights) table() []float64 {
	kinds := types.FeatureKinds()
	out := make([]float64, len(kinds))
	for _, k := range kinds {
		out[k] = w.Weight(k)
	}
	return out
}
