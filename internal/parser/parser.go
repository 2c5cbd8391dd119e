// Package parser wraps tree-sitter-javascript behind a pooled parser and a
// Program value that owns the syntax tree and its source.
package parser

import (
	"context"
	"fmt"
	"os"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"github.com/standardbeagle/jslibsig/internal/debug"
	lerrors "github.com/standardbeagle/jslibsig/internal/errors"
)

// Program is a parsed source file. Close releases the native tree.
type Program struct {
	Path     string
	Source   []byte
	IsModule bool

	tree *tree_sitter.Tree
	root *tree_sitter.Node
}

// Root returns the program node.
func (p *Program) Root() *tree_sitter.Node {
	return p.root
}

// Text returns the source text spanned by n.
func (p *Program) Text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(p.Source)
}

// HasErrors reports whether the parser had to recover from syntax errors.
func (p *Program) HasErrors() bool {
	return p.root != nil && p.root.HasError()
}

// Close frees the tree. It is safe to call more than once.
func (p *Program) Close() {
	if p.tree != nil {
		p.tree.Close()
		p.tree = nil
		p.root = nil
	}
}

var (
	language     *tree_sitter.Language
	languageOnce sync.Once

	parserPool = sync.Pool{
		New: func() any {
			p := tree_sitter.NewParser()
			if err := p.SetLanguage(javaScript()); err != nil {
				debug.LogParser("failed to set javascript language: %v\n", err)
				return nil
			}
			return p
		},
	}
)

func javaScript() *tree_sitter.Language {
	languageOnce.Do(func() {
		language = tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	})
	return language
}

// Parse parses src, classifying it as module or script from path and content.
func Parse(path string, src []byte) (*Program, error) {
	return ParseWithMode(path, src, IsModule(path, string(src)))
}

// ParseWithMode parses src with an explicit module flag. The grammar accepts
// both forms, so the flag is carried on the Program for callers that care.
func ParseWithMode(path string, src []byte, isModule bool) (*Program, error) {
	if LooksBinary(src) {
		return nil, lerrors.NewExtractionError("detect", fmt.Errorf("content is not javascript text")).WithFile(path)
	}
	p, _ := parserPool.Get().(*tree_sitter.Parser)
	if p == nil {
		return nil, lerrors.NewExtractionError("parse", fmt.Errorf("javascript parser unavailable")).WithFile(path)
	}
	defer parserPool.Put(p)

	tree := p.Parse(src, nil)
	if tree == nil {
		return nil, lerrors.NewExtractionError("parse", fmt.Errorf("parser returned no tree")).WithFile(path)
	}
	prog := &Program{
		Path:     path,
		Source:   src,
		IsModule: isModule,
		tree:     tree,
		root:     tree.RootNode(),
	}
	if prog.HasErrors() {
		debug.LogParser("%s parsed with syntax errors, walking partial tree\n", path)
	}
	return prog, nil
}

// ParseFile reads and parses the file at path. Cancellation is checked
// before the read only; parsing itself is not interruptible.
func ParseFile(ctx context.Context, path string) (*Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, lerrors.NewFileError("read", path, err)
	}
	return Parse(path, src)
}
