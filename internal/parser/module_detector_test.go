package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsModule(t *testing.T) {
	tests := []struct {
		name string
		path string
		code string
		want bool
	}{
		{"mjs extension", "lib/index.mjs", "var a = 1;", true},
		{"esm.js extension", "dist/lib.esm.js", "var a = 1;", true},
		{"import statement", "a.js", "import x from 'y';", true},
		{"export statement", "a.js", "export const a = 1;", true},
		{"require call", "a.js", "var x = require('y');", true},
		{"module.exports", "a.js", "module.exports = {};", true},
		{"plain script", "a.js", "function add(a, b) { return a + b; }", false},
		{"import in line comment", "a.js", "// import x from 'y'\nvar a = 1;", false},
		{"import in block comment", "a.js", "/* export default */ var a = 1;", false},
		{"import in string", "a.js", `var s = "import me";`, false},
		{"require in single quotes", "a.js", `var s = 'require';`, false},
		{"shadowed import variable", "a.js", "var import = 1; export default import;", false},
		{"shadowed require function", "a.js", "function require(x) {} require('a');", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsModule(tt.path, tt.code))
		})
	}
}
