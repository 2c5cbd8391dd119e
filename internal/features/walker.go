// Package features walks a parsed JavaScript program and emits an ordered,
// typed feature stream for every function-like node.
package features

import (
	"context"
	"strconv"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
	"github.com/standardbeagle/jslibsig/internal/parser"
	"github.com/standardbeagle/jslibsig/internal/types"
)

type node = tree_sitter.Node

// walker holds the traversal state for one program. The first error stops
// all further emission.
type walker struct {
	prog      *parser.Program
	functions []*types.Function
	err       error
}

// Extract returns one record per function declaration, function expression,
// generator or arrow function in prog, nested functions included. Inline
// callbacks passed straight to a call inside a function body are folded into
// the enclosing record instead.
func Extract(prog *parser.Program) ([]*types.Function, error) {
	w := &walker{prog: prog}
	for _, stmt := range namedChildren(prog.Root()) {
		w.discover(stmt, prog.Root())
		if w.err != nil {
			return nil, lerrors.NewExtractionError("walk", w.err).
				WithFile(prog.Path).
				WithRecoverable(false)
		}
	}
	debug.LogParser("%s: %d functions extracted\n", prog.Path, len(w.functions))
	return w.functions, nil
}

// ExtractSource parses src and extracts its functions.
func ExtractSource(path string, src []byte) ([]*types.Function, error) {
	prog, err := parser.Parse(path, src)
	if err != nil {
		return nil, err
	}
	defer prog.Close()
	return Extract(prog)
}

// ExtractFile reads, parses and extracts the file at path.
func ExtractFile(ctx context.Context, path string) ([]*types.Function, error) {
	prog, err := parser.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	defer prog.Close()
	return Extract(prog)
}

// FilterByFeatureCount keeps functions with more than threshold features.
// Short streams give unreliable fingerprints.
func FilterByFeatureCount(fns []*types.Function, threshold int) []*types.Function {
	out := make([]*types.Function, 0, len(fns))
	for _, fn := range fns {
		if len(fn.Features) > threshold {
			out = append(out, fn)
		}
	}
	return out
}

// discover looks for function-like nodes outside any function body. Every
// hit starts a new record.
func (w *walker) discover(n, prev *node) {
	if w.err != nil || n == nil {
		return
	}
	switch n.Kind() {
	case "function_declaration", "generator_function_declaration":
		w.spawn(n, w.declarationName(n))
	case "function_expression", "function", "generator_function", "arrow_function":
		w.spawn(n, w.functionName(n, prev))
	case "method_definition":
		w.spawn(n, w.methodName(n))
	case "parenthesized_expression":
		for _, c := range namedChildren(n) {
			w.discover(c, prev)
		}
	default:
		for _, c := range namedChildren(n) {
			w.discover(c, n)
		}
	}
}

// spawn creates the record for a function node and emits its body into it.
func (w *walker) spawn(n *node, name string) {
	params := parameters(n)
	fn := &types.Function{
		Name:          name,
		ArgumentCount: len(params),
		Line:          int(n.StartPosition().Row) + 1,
	}
	w.functions = append(w.functions, fn)

	if isAsync(n) {
		fn.Add(types.FeatureAsync, payloadFunctionAsync)
	}
	fn.Add(types.FeatureFunctionName, name)
	fn.Add(types.FeatureFunctionArgumentCount, strconv.Itoa(len(params)))
	w.emit(n.ChildByFieldName("body"), n, fn)
}

// nestedFunction handles a function-like node met inside a body. Its header
// goes into the enclosing stream. Callbacks passed directly to a call keep
// their body there too; anything else gets its own record.
func (w *walker) nestedFunction(n, prev *node, fn *types.Function, label, name string) {
	params := parameters(n)

	w.beginSyntax(fn, label)
	if isAsync(n) {
		fn.Add(types.FeatureAsync, payloadAsync)
	}
	fn.Add(types.FeatureFunctionName, name)
	fn.Add(types.FeatureFunctionArgumentCount, strconv.Itoa(len(params)))
	for _, p := range params {
		w.emit(p, n, fn)
	}

	if prev != nil && prev.Kind() == "call_expression" {
		w.emit(n.ChildByFieldName("body"), n, fn)
		w.endSyntax(fn, label)
		return
	}
	w.endSyntax(fn, label)
	w.spawn(n, name)
}

func (w *walker) fail(n *node) {
	if w.err != nil {
		return
	}
	pos := n.StartPosition()
	w.err = lerrors.NewUnknownNodeError(n.Kind(), int(pos.Row)+1, int(pos.Column)+1)
}

func (w *walker) text(n *node) string {
	return w.prog.Text(n)
}

func (w *walker) beginSyntax(fn *types.Function, name string) {
	fn.Add(types.FeatureSyntax, name+"-Begin")
}

func (w *walker) endSyntax(fn *types.Function, name string) {
	fn.Add(types.FeatureSyntax, name+"-End")
}

func (w *walker) beginControl(fn *types.Function, name string) {
	fn.Add(types.FeatureControlFlow, name+"-Begin")
}

func (w *walker) endControl(fn *types.Function, name string) {
	fn.Add(types.FeatureControlFlow, name+"-End")
}

func (w *walker) structure(fn *types.Function, slot string) {
	fn.Add(types.FeatureCodeStructure, slot)
}

// emitSlot tags a child slot and emits the child, skipping absent slots.
func (w *walker) emitSlot(fn *types.Function, slot string, child, prev *node) {
	if child == nil {
		return
	}
	w.structure(fn, slot)
	w.emit(child, prev, fn)
}

func (w *walker) emitChildren(n, prev *node, fn *types.Function) {
	for _, c := range namedChildren(n) {
		w.emit(c, prev, fn)
	}
}

// namedChildren returns the named children of n without comments.
func namedChildren(n *node) []*node {
	if n == nil {
		return nil
	}
	count := n.NamedChildCount()
	out := make([]*node, 0, count)
	for i := uint(0); i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || c.IsExtra() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// hasToken reports whether n has an anonymous child token tok.
func hasToken(n *node, tok string) bool {
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() && c.Kind() == tok {
			return true
		}
	}
	return false
}

// isAsync reports whether a function-like node carries the async modifier.
func isAsync(n *node) bool {
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if c.IsNamed() {
			switch c.Kind() {
			case "formal_parameters", "identifier", "statement_block", "property_identifier":
				return false
			}
			continue
		}
		if c.Kind() == "async" {
			return true
		}
	}
	return false
}

// parameters lists the formal parameters of a function-like node. A bare
// arrow parameter counts as one.
func parameters(n *node) []*node {
	if p := n.ChildByFieldName("parameter"); p != nil {
		return []*node{p}
	}
	return namedChildren(n.ChildByFieldName("parameters"))
}
