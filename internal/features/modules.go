package features

import "github.com/standardbeagle/jslibsig/internal/types"

func (w *walker) importStatement(n *node, fn *types.Function) {
	w.beginSyntax(fn, "ImportDeclaration")
	w.emit(n.ChildByFieldName("source"), n, fn)
	for _, c := range namedChildren(n) {
		if c.Kind() == "import_attribute" {
			w.emit(c, n, fn)
		}
	}
	for _, c := range namedChildren(n) {
		if c.Kind() == "import_clause" {
			w.emit(c, n, fn)
		}
	}
	w.endSyntax(fn, "ImportDeclaration")
}

func (w *walker) importClause(n *node, fn *types.Function) {
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "identifier":
			fn.Add(types.FeatureSyntax, "ImportDefaultSpecifier")
			w.emit(c, n, fn)
		case "namespace_import":
			fn.Add(types.FeatureSyntax, "ImportNamespaceSpecifier")
			w.emitChildren(c, c, fn)
		case "named_imports":
			for _, spec := range namedChildren(c) {
				if spec.Kind() != "import_specifier" {
					continue
				}
				fn.Add(types.FeatureSyntax, "ImportSpecifier")
				w.emit(spec.ChildByFieldName("name"), spec, fn)
			}
		default:
			w.fail(c)
		}
	}
}

func (w *walker) exportStatement(n *node, fn *types.Function) {
	for _, c := range namedChildren(n) {
		if c.Kind() == "decorator" {
			w.emit(c, n, fn)
		}
	}

	source := n.ChildByFieldName("source")
	switch {
	case hasToken(n, "default"):
		fn.Add(types.FeatureSyntax, "ExportDefaultDeclaration")
		if d := n.ChildByFieldName("declaration"); d != nil {
			w.emit(d, n, fn)
		}
		w.emit(n.ChildByFieldName("value"), n, fn)
	case hasToken(n, "*") || hasChild(n, "namespace_export"):
		fn.Add(types.FeatureSyntax, "ExportAllDeclaration")
		for _, c := range namedChildren(n) {
			if c.Kind() == "namespace_export" {
				w.emitChildren(c, c, fn)
			}
		}
		w.emit(source, n, fn)
	default:
		w.emit(source, n, fn)
		w.emit(n.ChildByFieldName("declaration"), n, fn)
		for _, c := range namedChildren(n) {
			if c.Kind() == "export_clause" {
				w.emit(c, n, fn)
			}
		}
	}
}

func hasChild(n *node, kind string) bool {
	for _, c := range namedChildren(n) {
		if c.Kind() == kind {
			return true
		}
	}
	return false
}
