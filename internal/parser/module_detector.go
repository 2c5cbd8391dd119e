package parser

import (
	"regexp"
	"strings"
)

var (
	importExportShadowed = []*regexp.Regexp{
		regexp.MustCompile(`\b(var|let|const)\s+import\b`),
		regexp.MustCompile(`\b(var|let|const)\s+export\b`),
		regexp.MustCompile(`\bfunction\s+import\b`),
		regexp.MustCompile(`\bfunction\s+export\b`),
	}
	requireShadowed = []*regexp.Regexp{
		regexp.MustCompile(`\b(var|let|const)\s+require\b`),
		regexp.MustCompile(`\b(var|let|const)\s+module\.exports\b`),
		regexp.MustCompile(`\bfunction\s+require\b`),
		regexp.MustCompile(`\bfunction\s+module\.exports\b`),
	}

	commentPattern = regexp.MustCompile(`(?m)(/\*[\s\S]*?\*/|//.*$)`)
	stringPattern  = regexp.MustCompile(`"(?:\\"|[^"])*"|'(?:\\'|[^'])*'`)
)

// IsModule classifies a file as an ES or CommonJS module rather than a plain
// script. Extension wins; otherwise import/export and require/module.exports
// tokens count only outside comments and string literals, and a file that
// declares one of those names as its own variable or function is a script.
func IsModule(path, code string) bool {
	if strings.HasSuffix(path, ".mjs") || strings.HasSuffix(path, ".esm.js") {
		return true
	}

	var stripped string
	strip := func() string {
		if stripped == "" {
			stripped = stringPattern.ReplaceAllString(commentPattern.ReplaceAllString(code, ""), "")
		}
		return stripped
	}

	if strings.Contains(code, "import") || strings.Contains(code, "export") {
		if anyMatch(importExportShadowed, code) {
			return false
		}
		s := strip()
		if strings.Contains(s, "import") || strings.Contains(s, "export") {
			return true
		}
	}

	if strings.Contains(code, "require") || strings.Contains(code, "module.exports") {
		if anyMatch(requireShadowed, code) {
			return false
		}
		s := strip()
		if strings.Contains(s, "require") || strings.Contains(s, "module.exports") {
			return true
		}
	}

	return false
}

func anyMatch(patterns []*regexp.Regexp, code string) bool {
	for _, re := range patterns {
		if re.MatchString(code) {
			return true
		}
	}
	return false
}
