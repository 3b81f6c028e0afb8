package parser

import (
	"sync"
	"sync/atomic"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// parserPool reuses tree-sitter parsers bound to one grammar. A parser is
// not safe for concurrent use, so every parse leases its own.
type parserPool struct {
	lang    *sitter.Language
	parsers sync.Pool
	leased  atomic.Int64
}

func newParserPool(lang *sitter.Language) *parserPool {
	p := &parserPool{lang: lang}
	p.parsers.New = func() any {
		sp := sitter.NewParser()
		_ = sp.SetLanguage(lang)
		return sp
	}
	return p
}

// parse runs one parse on a leased parser. The returned tree belongs to the
// caller.
func (p *parserPool) parse(content []byte) *sitter.Tree {
	sp := p.acquire()
	defer p.release(sp)
	return sp.Parse(content, nil)
}

func (p *parserPool) acquire() *sitter.Parser {
	sp := p.parsers.Get().(*sitter.Parser)
	_ = sp.SetLanguage(p.lang)
	p.leased.Add(1)
	return sp
}

func (p *parserPool) release(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.leased.Add(-1)
	sp.Reset()
	p.parsers.Put(sp)
}

// inUse reports how many parsers are currently leased.
func (p *parserPool) inUse() int {
	return int(p.leased.Load())
}
