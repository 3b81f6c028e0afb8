package parser

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"refactorimports/internal/core/errors"
	"refactorimports/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Tree is a parsed source file. It owns the tree-sitter tree and must be
// closed when the owner is done with it.
type Tree struct {
	Path   string
	Source []byte
	tree   *sitter.Tree
}

func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

var pythonLanguage = sync.OnceValue(func() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_python.Language())
})

// Parser parses Python sources. It is safe for concurrent use.
type Parser struct {
	pool *parserPool
}

func NewParser() *Parser {
	return &Parser{pool: newParserPool(pythonLanguage())}
}

// Parse builds a syntax tree for content. Any ERROR or MISSING node makes the
// file invalid: the tree is released and a CodeParse error naming path and
// line is returned.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { observability.ParsingDuration.Observe(time.Since(start).Seconds()) }()

	if !utf8.Valid(content) {
		observability.ParseErrorsTotal.Inc()
		return nil, errors.AddContext(errors.New(errors.CodeParse, "source is not valid UTF-8"), errors.CtxPath, path)
	}

	tree := p.pool.parse(content)
	if tree == nil {
		observability.ParseErrorsTotal.Inc()
		return nil, errors.AddContext(errors.New(errors.CodeParse, "parse failed"), errors.CtxPath, path)
	}

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		tree.Close()
		observability.ParseErrorsTotal.Inc()
		err := errors.Newf(errors.CodeParse, "syntax error near line %d", line)
		err = errors.AddContext(err, errors.CtxPath, path)
		return nil, errors.AddContext(err, errors.CtxLine, line)
	}

	return &Tree{Path: path, Source: content, tree: tree}, nil
}

func firstErrorLine(node *sitter.Node) int {
	if node.IsError() || node.IsMissing() {
		return int(node.StartPosition().Row) + 1
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		return firstErrorLine(child)
	}
	return int(node.StartPosition().Row) + 1
}
