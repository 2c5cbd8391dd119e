package features

import "github.com/standardbeagle/jslibsig/internal/types"

// emit maps one node inside a function body to its features. prev is the
// syntactic context the node was reached from. Every node kind the grammar
// can produce has a case; anything else is reported as an unknown node.
func (w *walker) emit(n, prev *node, fn *types.Function) {
	if w.err != nil || n == nil || n.IsMissing() {
		return
	}

	switch n.Kind() {
	// Extras and wrappers
	case "comment", "html_comment", "hash_bang_line":
	case "ERROR", "arguments", "template_substitution":
		w.emitChildren(n, prev, fn)
	case "parenthesized_expression", "decorator_parenthesized_expression":
		w.emitChildren(n, prev, fn)

	// Statements
	case "statement_block":
		w.blockStatement(n, fn)
	case "expression_statement":
		fn.Add(types.FeatureSyntax, "ExpressionStatement")
		w.emitChildren(n, n, fn)
	case "variable_declaration", "lexical_declaration":
		w.variableDeclaration(n, fn)
	case "variable_declarator":
		w.variableDeclarator(n, fn)
	case "if_statement":
		w.ifStatement(n, fn)
	case "else_clause":
		w.emitChildren(n, prev, fn)
	case "for_statement":
		w.forStatement(n, fn)
	case "for_in_statement":
		w.forInStatement(n, fn)
	case "while_statement":
		w.whileStatement(n, fn)
	case "do_statement":
		w.doWhileStatement(n, fn)
	case "try_statement":
		w.tryStatement(n, fn)
	case "catch_clause":
		w.catchClause(n, fn)
	case "finally_clause":
		w.emit(n.ChildByFieldName("body"), n, fn)
	case "switch_statement":
		w.switchStatement(n, fn)
	case "switch_body":
		w.switchBody(n, fn)
	case "switch_case", "switch_default":
		w.switchCase(n, fn)
	case "break_statement":
		w.beginControl(fn, "BreakStatement")
		w.emit(n.ChildByFieldName("label"), n, fn)
		w.endControl(fn, "BreakStatement")
	case "continue_statement":
		fn.Add(types.FeatureControlFlow, "ContinueStatement")
		w.emit(n.ChildByFieldName("label"), n, fn)
	case "return_statement":
		fn.Add(types.FeatureControlFlow, "ReturnStatement")
		w.emitChildren(n, n, fn)
	case "throw_statement":
		fn.Add(types.FeatureControlFlow, "ThrowStatement")
		w.emitChildren(n, n, fn)
	case "labeled_statement":
		fn.Add(types.FeatureSyntax, "LabeledStatement")
		w.emit(n.ChildByFieldName("label"), n, fn)
		w.emit(n.ChildByFieldName("body"), n, fn)
	case "with_statement":
		w.withStatement(n, fn)
	case "empty_statement":
		fn.Add(types.FeatureSyntax, "EmptyStatement")
	case "debugger_statement":
		fn.Add(types.FeatureSyntax, "DebuggerStatement")

	// Functions and classes
	case "function_declaration", "generator_function_declaration":
		w.nestedFunction(n, prev, fn, "FunctionDeclaration", w.declarationName(n))
	case "function_expression", "function", "generator_function":
		w.nestedFunction(n, prev, fn, "FunctionExpression", w.functionName(n, prev))
	case "arrow_function":
		w.nestedFunction(n, prev, fn, "ArrowFunctionExpression", w.functionName(n, prev))
	case "formal_parameters":
		w.emitChildren(n, prev, fn)
	case "class_declaration":
		w.classNode(n, fn, "ClassDeclaration", w.declarationName(n))
	case "class":
		w.classNode(n, fn, "ClassExpression", w.className(n, prev))
	case "class_heritage":
		fn.Add(types.FeatureSyntax, "Extends")
		w.emitChildren(n, n, fn)
	case "class_body":
		w.classBody(n, fn)
	case "method_definition":
		w.methodDefinition(n, fn)
	case "field_definition":
		w.fieldDefinition(n, fn)
	case "class_static_block":
		w.staticBlock(n, fn)
	case "decorator":
		fn.Add(types.FeatureSyntax, "Decorator")
		w.emitChildren(n, n, fn)

	// Modules
	case "import_statement":
		w.importStatement(n, fn)
	case "import_clause":
		w.importClause(n, fn)
	case "import_attribute":
		fn.Add(types.FeatureSyntax, "ImportAttribute")
		w.emitChildren(n, n, fn)
	case "export_statement":
		w.exportStatement(n, fn)
	case "export_clause":
		w.emitChildren(n, n, fn)
	case "export_specifier":
		fn.Add(types.FeatureSyntax, "ExportSpecifier")
		w.emit(n.ChildByFieldName("name"), n, fn)
		w.emit(n.ChildByFieldName("alias"), n, fn)
	case "namespace_export":
		fn.Add(types.FeatureSyntax, "ExportNamespaceSpecifier")
		w.emitChildren(n, n, fn)
	case "import":
		fn.Add(types.FeatureSyntax, "Import")

	// Identifiers
	case "identifier", "property_identifier", "shorthand_property_identifier_pattern",
		"statement_identifier", "undefined":
		w.identifier(w.text(n), prev, fn)
	case "shorthand_property_identifier":
		fn.Add(types.FeatureSyntax, "Property")
		fn.Add(types.FeatureTypes, "init")
		w.identifier(w.text(n), n, fn)
	case "private_property_identifier":
		fn.Add(types.FeatureSyntax, "PrivateIdentifier")
		fn.Add(types.FeatureVariableName, w.text(n))
	case "this":
		fn.Add(types.FeatureSyntax, "ThisExpression")
	case "super":
		fn.Add(types.FeatureSyntax, "Super")
	case "meta_property":
		w.metaProperty(n, prev, fn)

	// Literals
	case "string", "number", "true", "false", "null", "regex":
		w.literal(n, fn)
	case "template_string":
		w.templateLiteral(n, fn)

	// Expressions
	case "array":
		w.bracketed(n, fn, "ArrayExpression")
	case "array_pattern":
		w.bracketed(n, fn, "ArrayPattern")
	case "object":
		w.objectExpression(n, fn)
	case "object_pattern":
		w.bracketed(n, fn, "ObjectPattern")
	case "pair", "pair_pattern":
		fn.Add(types.FeatureSyntax, "Property")
		fn.Add(types.FeatureTypes, "init")
		w.emit(n.ChildByFieldName("key"), n, fn)
		w.emit(n.ChildByFieldName("value"), n, fn)
	case "computed_property_name":
		fn.Add(types.FeatureSyntax, payloadComputed)
		w.emitChildren(n, n, fn)
	case "assignment_pattern", "object_assignment_pattern":
		w.assignmentPattern(n, fn)
	case "rest_pattern":
		fn.Add(types.FeatureSyntax, "RestElement")
		w.emitChildren(n, n, fn)
	case "spread_element":
		fn.Add(types.FeatureSyntax, "SpreadElement")
		w.emitChildren(n, n, fn)
	case "assignment_expression", "augmented_assignment_expression":
		w.assignmentExpression(n, fn)
	case "binary_expression":
		w.binaryExpression(n, fn)
	case "unary_expression":
		fn.Add(types.FeatureSyntax, "UnaryExpression")
		fn.Add(types.FeatureSyntax, w.text(n.ChildByFieldName("operator")))
		w.emit(n.ChildByFieldName("argument"), n, fn)
	case "update_expression":
		w.updateExpression(n, fn)
	case "ternary_expression":
		w.conditionalExpression(n, fn)
	case "call_expression", "decorator_call_expression":
		w.callExpression(n, fn)
	case "new_expression":
		w.newExpression(n, fn)
	case "member_expression", "decorator_member_expression":
		w.memberExpression(n, fn)
	case "subscript_expression":
		w.subscriptExpression(n, fn)
	case "optional_chain":
		fn.Add(types.FeatureSyntax, payloadOptional)
	case "sequence_expression":
		w.sequenceExpression(n, fn)
	case "await_expression":
		fn.Add(types.FeatureAsync, "AwaitExpression")
		w.beginSyntax(fn, "AwaitExpression")
		w.emitChildren(n, n, fn)
		w.endSyntax(fn, "AwaitExpression")
	case "yield_expression":
		if hasToken(n, "*") {
			fn.Add(types.FeatureSyntax, payloadDelegate)
		}
		fn.Add(types.FeatureSyntax, "YieldExpression")
		w.emitChildren(n, n, fn)

	// JSX
	case "jsx_element", "jsx_self_closing_element":
		w.beginSyntax(fn, "JSXElement")
		w.emitChildren(n, n, fn)
		w.endSyntax(fn, "JSXElement")
	case "jsx_opening_element", "jsx_closing_element", "jsx_attribute",
		"jsx_expression", "jsx_namespace_name", "nested_identifier":
		fn.Add(types.FeatureSyntax, jsxPayload(n.Kind()))
		w.emitChildren(n, n, fn)
	case "jsx_text", "html_character_reference":
		w.jsxText(n, fn)

	default:
		w.fail(n)
	}
}
