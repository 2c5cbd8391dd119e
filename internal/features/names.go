package features

// Sentinel names and marker payloads.
const (
	NameAnonymous                     = "Anonymous"
	NameUnknown                       = "Unknown"
	NameConditionallyAssignedFunction = "ConditionallyAssignedFunction"
	NameConditionallyAssignedClass    = "ConditionallyAssignedClass"

	payloadFunctionAsync = "FunctionAsync"
	payloadAsync         = "Async"
	payloadAwait         = "Await"
	payloadIn            = "In"
	payloadOf            = "Of"
	payloadOptional      = "Optional"
	payloadComputed      = "Computed"
	payloadDelegate      = "Delegate"
	payloadBeginObject   = "BeginObject"
	payloadEndObject     = "EndObject"
	payloadEquals        = "="
)

// declarationName names a function declaration by its own identifier.
func (w *walker) declarationName(n *node) string {
	if id := n.ChildByFieldName("name"); id != nil {
		return w.text(id)
	}
	return NameAnonymous
}

// functionName resolves the name of a function expression or arrow: its own
// identifier, then the declarator it initializes, then a sentinel.
func (w *walker) functionName(n, prev *node) string {
	return w.contextualName(n, prev, NameConditionallyAssignedFunction)
}

// className resolves a class expression name with the same fallback chain.
func (w *walker) className(n, prev *node) string {
	return w.contextualName(n, prev, NameConditionallyAssignedClass)
}

func (w *walker) contextualName(n, prev *node, conditional string) string {
	if id := n.ChildByFieldName("name"); id != nil {
		return w.text(id)
	}
	if prev == nil {
		return NameAnonymous
	}
	switch prev.Kind() {
	case "variable_declarator":
		if target := prev.ChildByFieldName("name"); target != nil && target.Kind() == "identifier" {
			return w.text(target)
		}
		return NameUnknown
	case "ternary_expression":
		return conditional
	}
	return NameAnonymous
}

// methodName names a method by its key.
func (w *walker) methodName(n *node) string {
	if key := n.ChildByFieldName("name"); key != nil {
		return w.text(key)
	}
	return NameAnonymous
}
