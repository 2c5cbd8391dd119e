package features

import (
	"strings"

	"github.com/standardbeagle/jslibsig/internal/types"
)

// classNode emits a class declaration or class expression. Methods inside the
// body spawn their own records through methodDefinition.
func (w *walker) classNode(n *node, fn *types.Function, label, name string) {
	fn.Add(types.FeatureTypes, label)
	fn.Add(types.FeatureClassDeclarationName, name)
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "decorator", "class_heritage":
			w.emit(c, n, fn)
		}
	}
	fn.Add(types.FeatureSyntax, payloadBeginObject)
	w.emit(n.ChildByFieldName("body"), n, fn)
	fn.Add(types.FeatureSyntax, payloadEndObject)
}

func (w *walker) classBody(n *node, fn *types.Function) {
	w.beginSyntax(fn, "ClassBody")
	for _, c := range namedChildren(n) {
		if c.Kind() == "decorator" {
			continue
		}
		w.emit(c, n, fn)
	}
	w.endSyntax(fn, "ClassBody")
}

func (w *walker) methodDefinition(n *node, fn *types.Function) {
	w.beginSyntax(fn, "MethodDefinition")
	w.structure(fn, "Decorators")
	for _, c := range namedChildren(n) {
		if c.Kind() == "decorator" {
			w.emit(c, n, fn)
		}
	}
	if hasToken(n, "static") {
		fn.Add(types.FeatureSyntax, "static")
	}
	fn.Add(types.FeatureSyntax, methodKind(n, w.text(n.ChildByFieldName("name"))))
	w.emit(n.ChildByFieldName("name"), n, fn)
	w.nestedFunction(n, n, fn, "FunctionExpression", w.methodName(n))
	w.endSyntax(fn, "MethodDefinition")
}

// methodKind classifies a method as constructor, get, set or method.
func methodKind(n *node, key string) string {
	switch {
	case hasToken(n, "get"):
		return "get"
	case hasToken(n, "set"):
		return "set"
	case key == "constructor":
		return "constructor"
	}
	return "method"
}

func (w *walker) fieldDefinition(n *node, fn *types.Function) {
	w.beginSyntax(fn, "PropertyDefinition")
	for _, c := range namedChildren(n) {
		if c.Kind() == "decorator" {
			w.emit(c, n, fn)
		}
	}
	w.emit(n.ChildByFieldName("value"), n, fn)
	w.endSyntax(fn, "PropertyDefinition")
}

func (w *walker) staticBlock(n *node, fn *types.Function) {
	w.beginSyntax(fn, "StaticBlock")
	if body := n.ChildByFieldName("body"); body != nil {
		w.emitChildren(body, n, fn)
	}
	w.endSyntax(fn, "StaticBlock")
}

// identifier tags a name. Declaration targets are not classified; anything
// else is checked against the known identifier tables.
func (w *walker) identifier(name string, prev *node, fn *types.Function) {
	fn.Add(types.FeatureSyntax, "Identifier")
	fn.Add(types.FeatureVariableName, name)
	if prev != nil && prev.Kind() == "variable_declarator" {
		return
	}
	if kind, ok := classifyIdentifier(name); ok {
		fn.Add(kind, name)
	}
}

func (w *walker) literal(n *node, fn *types.Function) {
	raw := w.text(n)
	switch n.Kind() {
	case "string":
		fn.Add(types.FeatureTypes, "StringLiteral")
		fn.Add(types.FeatureStrings, raw)
		return
	case "number":
		if strings.HasSuffix(raw, "n") {
			fn.Add(types.FeatureTypes, "BigIntLiteral")
		} else {
			fn.Add(types.FeatureTypes, "NumericLiteral")
		}
	case "true", "false":
		fn.Add(types.FeatureTypes, "BooleanLiteral")
	case "null":
		fn.Add(types.FeatureTypes, "NullLiteral")
	case "regex":
		fn.Add(types.FeatureTypes, "RegExpLiteral")
	}
	fn.Add(types.FeatureLiterals, raw)
}

// templateLiteral emits every quasi as a string before the substitutions.
// Adjacent text and escape fragments form one quasi.
func (w *walker) templateLiteral(n *node, fn *types.Function) {
	var (
		quasis []string
		exprs  []*node
		cur    strings.Builder
	)
	for _, c := range namedChildren(n) {
		if c.Kind() == "template_substitution" {
			quasis = append(quasis, cur.String())
			cur.Reset()
			exprs = append(exprs, namedChildren(c)...)
			continue
		}
		cur.WriteString(w.text(c))
	}
	quasis = append(quasis, cur.String())

	w.beginSyntax(fn, "TemplateLiteral")
	w.structure(fn, "Quasis")
	for _, q := range quasis {
		fn.Add(types.FeatureStrings, q)
	}
	if len(exprs) > 0 {
		w.structure(fn, "Expressions")
	}
	for _, e := range exprs {
		w.emit(e, n, fn)
	}
	w.endSyntax(fn, "TemplateLiteral")
}

// metaProperty covers new.target and import.meta.
func (w *walker) metaProperty(n, prev *node, fn *types.Function) {
	fn.Add(types.FeatureSyntax, "MetaProperty")
	for _, part := range strings.Split(w.text(n), ".") {
		w.identifier(strings.TrimSpace(part), prev, fn)
	}
}

func (w *walker) jsxText(n *node, fn *types.Function) {
	if s := strings.TrimSpace(w.text(n)); s != "" {
		fn.Add(types.FeatureStrings, s)
	}
}

func jsxPayload(kind string) string {
	switch kind {
	case "jsx_opening_element":
		return "JSXOpeningElement"
	case "jsx_closing_element":
		return "JSXClosingElement"
	case "jsx_attribute":
		return "JSXAttribute"
	case "jsx_expression":
		return "JSXExpressionContainer"
	case "jsx_namespace_name":
		return "JSXNamespacedName"
	}
	return "JSXMemberExpression"
}
