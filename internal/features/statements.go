package features

import "github.com/standardbeagle/jslibsig/internal/types"

func (w *walker) blockStatement(n *node, fn *types.Function) {
	w.beginSyntax(fn, "BlockStatement")
	w.emitChildren(n, n, fn)
	w.endSyntax(fn, "BlockStatement")
}

func (w *walker) variableDeclaration(n *node, fn *types.Function) {
	fn.Add(types.FeatureSyntax, "VariableDeclaration")
	kind := "var"
	if k := n.ChildByFieldName("kind"); k != nil {
		kind = w.text(k)
	}
	fn.Add(types.FeatureSyntax, kind)
	for _, c := range namedChildren(n) {
		if c.Kind() == "variable_declarator" {
			w.emit(c, n, fn)
		}
	}
}

// variableDeclarator passes itself as context so the target identifier is
// not classified and an initializing function takes the declared name.
func (w *walker) variableDeclarator(n *node, fn *types.Function) {
	fn.Add(types.FeatureSyntax, "VariableDeclarator")
	w.emit(n.ChildByFieldName("name"), n, fn)
	w.emit(n.ChildByFieldName("value"), n, fn)
}

func (w *walker) ifStatement(n *node, fn *types.Function) {
	w.beginControl(fn, "IfStatement")
	w.emitSlot(fn, "Test", n.ChildByFieldName("condition"), n)
	w.emitSlot(fn, "Consequent", n.ChildByFieldName("consequence"), n)
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		w.structure(fn, "Alternate")
		w.emitChildren(alt, n, fn)
	}
	w.endControl(fn, "IfStatement")
}

func (w *walker) forStatement(n *node, fn *types.Function) {
	w.beginControl(fn, "ForStatement")
	w.emitSlot(fn, "Init", loopClause(n.ChildByFieldName("initializer")), n)
	w.emitSlot(fn, "Test", loopClause(n.ChildByFieldName("condition")), n)
	w.emitSlot(fn, "Update", loopClause(n.ChildByFieldName("increment")), n)
	w.emitSlot(fn, "Body", n.ChildByFieldName("body"), n)
	w.endControl(fn, "ForStatement")
}

// loopClause unwraps the statement wrapper some grammar versions put around
// for-loop clauses. An empty clause yields nil.
func loopClause(n *node) *node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "empty_statement":
		return nil
	case "expression_statement":
		if c := namedChildren(n); len(c) > 0 {
			return c[0]
		}
		return nil
	}
	return n
}

func (w *walker) forInStatement(n *node, fn *types.Function) {
	label, keyword := "ForInStatement", payloadIn
	if op := n.ChildByFieldName("operator"); (op != nil && w.text(op) == "of") || hasToken(n, "of") {
		label, keyword = "ForOfStatement", payloadOf
	}
	if hasToken(n, "await") {
		fn.Add(types.FeatureAsync, payloadAwait)
	}

	w.beginControl(fn, label)
	w.structure(fn, "Left")
	if kind := n.ChildByFieldName("kind"); kind != nil {
		fn.Add(types.FeatureSyntax, "VariableDeclaration")
		fn.Add(types.FeatureSyntax, w.text(kind))
	}
	w.emit(n.ChildByFieldName("left"), n, fn)
	fn.Add(types.FeatureSyntax, keyword)
	w.emitSlot(fn, "Right", n.ChildByFieldName("right"), n)
	w.emitSlot(fn, "Body", n.ChildByFieldName("body"), n)
	w.endControl(fn, label)
}

func (w *walker) whileStatement(n *node, fn *types.Function) {
	w.beginControl(fn, "WhileStatement")
	w.emitSlot(fn, "Test", n.ChildByFieldName("condition"), n)
	w.emitSlot(fn, "Body", n.ChildByFieldName("body"), n)
	w.endControl(fn, "WhileStatement")
}

func (w *walker) doWhileStatement(n *node, fn *types.Function) {
	w.beginControl(fn, "DoWhileStatement")
	w.emitSlot(fn, "Test", n.ChildByFieldName("condition"), n)
	w.emitSlot(fn, "Body", n.ChildByFieldName("body"), n)
	w.endControl(fn, "DoWhileStatement")
}

func (w *walker) tryStatement(n *node, fn *types.Function) {
	w.beginControl(fn, "TryStatement")
	w.emitSlot(fn, "Block", n.ChildByFieldName("body"), n)
	w.emitSlot(fn, "Handler", n.ChildByFieldName("handler"), n)
	w.emitSlot(fn, "Finalizer", n.ChildByFieldName("finalizer"), n)
	w.endControl(fn, "TryStatement")
}

func (w *walker) catchClause(n *node, fn *types.Function) {
	w.beginControl(fn, "CatchClause")
	w.emit(n.ChildByFieldName("parameter"), n, fn)
	w.emit(n.ChildByFieldName("body"), n, fn)
	w.endControl(fn, "CatchClause")
}

func (w *walker) switchStatement(n *node, fn *types.Function) {
	w.beginControl(fn, "SwitchStatement")
	w.emitSlot(fn, "Discriminant", n.ChildByFieldName("value"), n)
	w.structure(fn, "Cases")
	w.emit(n.ChildByFieldName("body"), n, fn)
	w.endControl(fn, "SwitchStatement")
}

func (w *walker) switchBody(n *node, fn *types.Function) {
	for _, c := range namedChildren(n) {
		w.emit(c, n, fn)
	}
}

func (w *walker) switchCase(n *node, fn *types.Function) {
	w.beginControl(fn, "SwitchCase")
	test := n.ChildByFieldName("value")
	w.emitSlot(fn, "Test", test, n)

	var body []*node
	for _, c := range namedChildren(n) {
		if test != nil && c.Id() == test.Id() {
			continue
		}
		body = append(body, c)
	}
	if len(body) > 0 {
		w.structure(fn, "Consequent")
	}
	for _, c := range body {
		w.emit(c, n, fn)
	}
	w.endControl(fn, "SwitchCase")
}

func (w *walker) withStatement(n *node, fn *types.Function) {
	w.beginControl(fn, "WithStatement")
	w.emitSlot(fn, "Object", n.ChildByFieldName("object"), n)
	w.emitSlot(fn, "Body", n.ChildByFieldName("body"), n)
	w.endControl(fn, "WithStatement")
}
