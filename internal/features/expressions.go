package features

import "github.com/standardbeagle/jslibsig/internal/types"

func (w *walker) bracketed(n *node, fn *types.Function, label string) {
	w.beginSyntax(fn, label)
	w.emitChildren(n, n, fn)
	w.endSyntax(fn, label)
}

// objectExpression collapses an empty literal into a single type tag.
func (w *walker) objectExpression(n *node, fn *types.Function) {
	if len(namedChildren(n)) == 0 {
		fn.Add(types.FeatureTypes, "ObjectExpression")
		return
	}
	w.bracketed(n, fn, "ObjectExpression")
}

func (w *walker) assignmentPattern(n *node, fn *types.Function) {
	w.beginSyntax(fn, "AssignmentPattern")
	w.emit(n.ChildByFieldName("left"), n, fn)
	fn.Add(types.FeatureSyntax, payloadEquals)
	w.emit(n.ChildByFieldName("right"), n, fn)
	w.endSyntax(fn, "AssignmentPattern")
}

func (w *walker) assignmentExpression(n *node, fn *types.Function) {
	op := payloadEquals
	if o := n.ChildByFieldName("operator"); o != nil {
		op = w.text(o)
	}
	w.beginSyntax(fn, "AssignmentExpression")
	w.emit(n.ChildByFieldName("left"), n, fn)
	fn.Add(types.FeatureSyntax, op)
	w.emit(n.ChildByFieldName("right"), n, fn)
	w.endSyntax(fn, "AssignmentExpression")
}

// binaryExpression splits logical operators from arithmetic and comparison
// ones. Logical operators carry no Begin/End markers.
func (w *walker) binaryExpression(n *node, fn *types.Function) {
	op := w.text(n.ChildByFieldName("operator"))
	left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
	switch op {
	case "&&", "||", "??":
		fn.Add(types.FeatureSyntax, op)
		w.emit(left, n, fn)
		w.emit(right, n, fn)
		return
	}
	w.beginSyntax(fn, "BinaryExpression")
	w.emit(left, n, fn)
	fn.Add(types.FeatureSyntax, op)
	w.emit(right, n, fn)
	w.endSyntax(fn, "BinaryExpression")
}

func (w *walker) updateExpression(n *node, fn *types.Function) {
	op := w.text(n.ChildByFieldName("operator"))
	prefix := n.ChildCount() > 0 && !n.Child(0).IsNamed()

	fn.Add(types.FeatureSyntax, "UpdateExpression")
	if prefix {
		fn.Add(types.FeatureSyntax, op)
	}
	w.emit(n.ChildByFieldName("argument"), n, fn)
	if !prefix {
		fn.Add(types.FeatureSyntax, op)
	}
}

func (w *walker) conditionalExpression(n *node, fn *types.Function) {
	w.beginControl(fn, "ConditionalExpression")
	w.emitSlot(fn, "Test", n.ChildByFieldName("condition"), n)
	w.emitSlot(fn, "Consequent", n.ChildByFieldName("consequence"), n)
	w.emitSlot(fn, "Alternate", n.ChildByFieldName("alternative"), n)
	w.endControl(fn, "ConditionalExpression")
}

// callExpression handles plain calls, dynamic import and tagged templates.
// Arguments are emitted with the call as context, which folds inline
// callbacks into the caller's stream.
func (w *walker) callExpression(n *node, fn *types.Function) {
	callee := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")

	if callee != nil && callee.Kind() == "import" {
		fn.Add(types.FeatureSyntax, "ImportExpression")
		for _, a := range namedChildren(args) {
			w.emit(a, n, fn)
		}
		return
	}

	if args != nil && args.Kind() == "template_string" {
		w.beginSyntax(fn, "TaggedTemplateExpression")
		w.emitSlot(fn, "Tag", callee, n)
		w.emitSlot(fn, "Quasi", args, n)
		w.endSyntax(fn, "TaggedTemplateExpression")
		return
	}

	w.beginSyntax(fn, "CallExpression")
	w.emit(callee, n, fn)
	if hasOptionalChain(n) {
		fn.Add(types.FeatureSyntax, payloadOptional)
	}
	for _, a := range namedChildren(args) {
		w.emit(a, n, fn)
	}
	w.endSyntax(fn, "CallExpression")
}

func (w *walker) newExpression(n *node, fn *types.Function) {
	w.beginSyntax(fn, "NewExpression")
	w.emit(n.ChildByFieldName("constructor"), n, fn)
	for _, a := range namedChildren(n.ChildByFieldName("arguments")) {
		w.emit(a, n, fn)
	}
	w.endSyntax(fn, "NewExpression")
}

func (w *walker) memberExpression(n *node, fn *types.Function) {
	fn.Add(types.FeatureSyntax, "MemberExpression")
	w.emit(n.ChildByFieldName("object"), n, fn)
	if hasOptionalChain(n) {
		fn.Add(types.FeatureSyntax, payloadOptional)
	}
	w.emit(n.ChildByFieldName("property"), n, fn)
}

func (w *walker) subscriptExpression(n *node, fn *types.Function) {
	fn.Add(types.FeatureSyntax, "MemberExpression")
	w.emit(n.ChildByFieldName("object"), n, fn)
	if hasOptionalChain(n) {
		fn.Add(types.FeatureSyntax, payloadOptional)
	}
	fn.Add(types.FeatureSyntax, payloadComputed)
	w.emit(n.ChildByFieldName("index"), n, fn)
}

// sequenceExpression flattens nested comma chains into one sequence.
func (w *walker) sequenceExpression(n *node, fn *types.Function) {
	w.beginSyntax(fn, "SequenceExpression")
	for _, e := range flattenSequence(n, nil) {
		w.emit(e, n, fn)
	}
	w.endSyntax(fn, "SequenceExpression")
}

func flattenSequence(n *node, out []*node) []*node {
	for _, c := range namedChildren(n) {
		if c.Kind() == "sequence_expression" {
			out = flattenSequence(c, out)
			continue
		}
		out = append(out, c)
	}
	return out
}

func hasOptionalChain(n *node) bool {
	for _, c := range namedChildren(n) {
		if c.Kind() == "optional_chain" {
			return true
		}
	}
	return false
}
