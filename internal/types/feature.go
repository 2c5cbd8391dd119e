package types

import (
	"fmt"
	"strings"
)

// FeatureKind classifies a single extracted feature. The set is closed.
type FeatureKind uint8

const (
	FeatureSyntax FeatureKind = iota
	FeatureControlFlow
	FeatureTypes
	FeatureECMAObject
	FeatureStrings
	FeatureAsync
	FeatureLiterals
	FeatureVariableName
	FeatureHostEnvironmentObject
	FeatureFunctionName
	FeatureFunctionArgumentCount
	FeatureFunctionArgumentLiterals
	FeatureClassDeclarationName
	FeatureCodeStructure

	featureKindCount
)

var featureKindNames = [featureKindCount]string{
	FeatureSyntax:                   "Syntax",
	FeatureControlFlow:              "ControlFlow",
	FeatureTypes:                    "Types",
	FeatureECMAObject:               "ECMAObject",
	FeatureStrings:                  "Strings",
	FeatureAsync:                    "Async",
	FeatureLiterals:                 "Literals",
	FeatureVariableName:             "VariableName",
	FeatureHostEnvironmentObject:    "HostEnvironmentObject",
	FeatureFunctionName:             "FunctionName",
	FeatureFunctionArgumentCount:    "FunctionArgumentCount",
	FeatureFunctionArgumentLiterals: "FunctionArgumentLiterals",
	FeatureClassDeclarationName:     "ClassDeclarationName",
	FeatureCodeStructure:            "CodeStructure",
}

// FeatureKinds lists every kind in declaration order.
func FeatureKinds() []FeatureKind {
	kinds := make([]FeatureKind, 0, featureKindCount)
	for k := FeatureKind(0); k < featureKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k FeatureKind) String() string {
	if k < featureKindCount {
		return featureKindNames[k]
	}
	return fmt.Sprintf("FeatureKind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared kinds.
func (k FeatureKind) Valid() bool {
	return k < featureKindCount
}

// ParseFeatureKind resolves a kind by its name, case-insensitively.
func ParseFeatureKind(s string) (FeatureKind, error) {
	for k, name := range featureKindNames {
		if strings.EqualFold(name, s) {
			return FeatureKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown feature kind %q", s)
}

// MarshalText renders the kind by name so dumps stay readable.
func (k FeatureKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid feature kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *FeatureKind) UnmarshalText(text []byte) error {
	parsed, err := ParseFeatureKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Feature is one (kind, payload) pair in a function's feature stream.
type Feature struct {
	Kind    FeatureKind `json:"kind" yaml:"kind"`
	Payload string      `json:"payload" yaml:"payload"`
}

func (f Feature) String() string {
	return f.Kind.String() + ": " + f.Payload
}

// Function is the extraction record for one function-like node.
// Features are in traversal order.
type Function struct {
	Name          string    `json:"name" yaml:"name"`
	ArgumentCount int       `json:"argument_count" yaml:"argument_count"`
	Line          int       `json:"line" yaml:"line"` // 1-based line of the function node
	Features      []Feature `json:"features" yaml:"features"`
}

// Add appends a feature to the stream.
func (f *Function) Add(kind FeatureKind, payload string) {
	f.Features = append(f.Features, Feature{Kind: kind, Payload: payload})
}

// Payloads returns the feature payloads in order, kinds discarded.
func (f *Function) Payloads() []string {
	out := make([]string, len(f.Features))
	for i, feat := range f.Features {
		out[i] = feat.Payload
	}
	return out
}
