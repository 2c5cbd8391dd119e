package features

import "github.com/standardbeagle/jslibsig/internal/types"

// Known identifier tables
//
// Identifiers found here get an extra Async, HostEnvironmentObject or
// ECMAObject feature. Lookup order is async, host, ECMAScript; the first
// hit wins, so a name listed in two tables is tagged by the earlier one.

// AsyncIdentifiers are promise, timer and scheduling primitives.
var AsyncIdentifiers = map[string]bool{
	"Promise":               true,
	"then":                  true,
	"catch":                 true,
	"finally":               true,
	"resolve":               true,
	"reject":                true,
	"all":                   true,
	"allSettled":            true,
	"any":                   true,
	"race":                  true,
	"setTimeout":            true,
	"clearTimeout":          true,
	"setInterval":           true,
	"clearInterval":         true,
	"setImmediate":          true,
	"clearImmediate":        true,
	"queueMicrotask":        true,
	"requestAnimationFrame": true,
	"cancelAnimationFrame":  true,
	"requestIdleCallback":   true,
	"cancelIdleCallback":    true,
	"nextTick":              true,
	"fetch":                 true,
	"XMLHttpRequest":        true,
	"Worker":                true,
	"SharedWorker":          true,
	"MessageChannel":        true,
	"postMessage":           true,
	"AbortController":       true,
	"AbortSignal":           true,
	"asyncIterator":         true,
}

// HostEnvironmentObjects are globals supplied by browsers or Node.js rather
// than the language.
var HostEnvironmentObjects = map[string]bool{
	// Browser
	"window":           true,
	"document":         true,
	"navigator":        true,
	"location":         true,
	"history":          true,
	"screen":           true,
	"localStorage":     true,
	"sessionStorage":   true,
	"indexedDB":        true,
	"console":          true,
	"alert":            true,
	"confirm":          true,
	"prompt":           true,
	"self":             true,
	"frames":           true,
	"parent":           true,
	"top":              true,
	"opener":           true,
	"performance":      true,
	"crypto":           true,
	"Element":          true,
	"HTMLElement":      true,
	"Node":             true,
	"NodeList":         true,
	"Event":            true,
	"CustomEvent":      true,
	"EventTarget":      true,
	"MutationObserver": true,
	"Image":            true,
	"Blob":             true,
	"File":             true,
	"FileReader":       true,
	"FormData":         true,
	"URL":              true,
	"URLSearchParams":  true,
	"Headers":          true,
	"Request":          true,
	"Response":         true,
	"WebSocket":        true,
	"TextEncoder":      true,
	"TextDecoder":      true,
	"atob":             true,
	"btoa":             true,
	"getComputedStyle": true,
	"matchMedia":       true,
	"addEventListener": true,

	// Node.js
	"process":       true,
	"global":        true,
	"globalThis":    true,
	"module":        true,
	"exports":       true,
	"require":       true,
	"__dirname":     true,
	"__filename":    true,
	"Buffer":        true,
	"define":        true,
	"emitter":       true,
	"EventEmitter":  true,
	"stdout":        true,
	"stderr":        true,
	"env":           true,
	"importScripts": true,
}

// ECMAScriptObjects are the language's built-in global objects and functions.
var ECMAScriptObjects = map[string]bool{
	"Object":               true,
	"Function":             true,
	"Array":                true,
	"Number":               true,
	"parseFloat":           true,
	"parseInt":             true,
	"Infinity":             true,
	"NaN":                  true,
	"undefined":            true,
	"Boolean":              true,
	"String":               true,
	"Symbol":               true,
	"Date":                 true,
	"RegExp":               true,
	"Error":                true,
	"AggregateError":       true,
	"EvalError":            true,
	"RangeError":           true,
	"ReferenceError":       true,
	"SyntaxError":          true,
	"TypeError":            true,
	"URIError":             true,
	"JSON":                 true,
	"Math":                 true,
	"Intl":                 true,
	"ArrayBuffer":          true,
	"SharedArrayBuffer":    true,
	"DataView":             true,
	"Atomics":              true,
	"Int8Array":            true,
	"Uint8Array":           true,
	"Uint8ClampedArray":    true,
	"Int16Array":           true,
	"Uint16Array":          true,
	"Int32Array":           true,
	"Uint32Array":          true,
	"Float32Array":         true,
	"Float64Array":         true,
	"BigInt":               true,
	"BigInt64Array":        true,
	"BigUint64Array":       true,
	"Map":                  true,
	"Set":                  true,
	"WeakMap":              true,
	"WeakSet":              true,
	"WeakRef":              true,
	"FinalizationRegistry": true,
	"Proxy":                true,
	"Reflect":              true,
	"eval":                 true,
	"isFinite":             true,
	"isNaN":                true,
	"encodeURI":            true,
	"encodeURIComponent":   true,
	"decodeURI":            true,
	"decodeURIComponent":   true,
	"escape":               true,
	"unescape":             true,
	"arguments":            true,
	"prototype":            true,
	"constructor":          true,
	"hasOwnProperty":       true,
	"toString":             true,
	"valueOf":              true,
	"length":               true,
	"apply":                true,
	"call":                 true,
	"bind":                 true,
	"iterator":             true,
}

// classifyIdentifier returns the extra feature kind for a known name.
func classifyIdentifier(name string) (types.FeatureKind, bool) {
	switch {
	case AsyncIdentifiers[name]:
		return types.FeatureAsync, true
	case HostEnvironmentObjects[name]:
		return types.FeatureHostEnvironmentObject, true
	case ECMAScriptObjects[name]:
		return types.FeatureECMAObject, true
	}
	return 0, false
}
