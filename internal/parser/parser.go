package parser

import (
	"sort"

	"xpl/internal/ast"
	"xpl/internal/source"
	"xpl/internal/token"
)

// Result is the outcome of parsing one token stream.
type Result struct {
	File *ast.File
	// Reused counts items taken over from a previous tree.
	Reused int
}

// Parser holds the state for one parse of a token stream.
type Parser struct {
	toks    []token.Token
	pos     int
	hi      int    // furthest token index examined for the current item
	prevEnd uint32 // end of the last consumed token
}

func newParser(toks []token.Token) *Parser {
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		toks = append(toks, token.Token{Kind: token.EOF})
	}
	return &Parser{toks: toks}
}

// Parse builds a tree for toks. Syntax errors become ast.KindError nodes;
// parsing never fails.
func Parse(toks []token.Token) Result {
	p := newParser(toks)
	f := &ast.File{}
	for !p.at(token.EOF) {
		f.Items = append(f.Items, p.parseTopItem())
	}
	return Result{File: f}
}

// ParseIncremental parses toks reusing items of prev, the tree of the text
// before the edit described by w. Items whose scan ended before the window
// are kept as they are; items that lie entirely after it are taken shifted
// once the parser reaches their new start at top level. The result is equal
// to Parse(toks).
func ParseIncremental(toks []token.Token, prev *ast.File, w source.Window) Result {
	if prev == nil {
		return Parse(toks)
	}
	p := newParser(toks)
	f := &ast.File{}

	k := 0
	for k < len(prev.Items) && prev.Items[k].ScanEnd < w.Start {
		k++
	}
	if k > 0 {
		f.Items = append(f.Items, prev.Items[:k]...)
		p.skipTo(prev.Items[k-1].Node.Span.End)
	}
	reused := k

	delta := w.Delta()
	tail := make(map[uint32]*ast.Item)
	for _, it := range prev.Items[k:] {
		if it.FullStart >= w.OldEnd {
			tail[shiftOffset(it.Node.Span.Start, delta)] = it
		}
	}

	for !p.at(token.EOF) {
		tok := p.toks[p.pos]
		if it, ok := tail[tok.Span.Start]; ok && shiftOffset(it.FullStart, delta) == tok.FullStart() {
			moved := it.Shifted(delta)
			f.Items = append(f.Items, moved)
			p.skipTo(moved.Node.Span.End)
			reused++
			continue
		}
		f.Items = append(f.Items, p.parseTopItem())
	}
	return Result{File: f, Reused: reused}
}

func shiftOffset(off uint32, delta int) uint32 {
	return source.Span{Start: off}.Shift(delta).Start
}

// skipTo positions the parser on the first token starting at or after off.
func (p *Parser) skipTo(off uint32) {
	last := len(p.toks) - 1
	p.pos = sort.Search(last, func(i int) bool { return p.toks[i].Span.Start >= off })
	if p.pos > 0 {
		p.prevEnd = p.toks[p.pos-1].Span.End
	}
}

// parseTopItem parses one item and records the reuse bookkeeping.
func (p *Parser) parseTopItem() *ast.Item {
	first := p.pos
	p.hi = p.pos
	var n *ast.Node
	switch p.peek().Kind {
	case token.KwInclude:
		n = p.parseInclude()
	case token.KwLet:
		n = p.parseLet()
	case token.KwFn:
		n = p.parseFn()
	default:
		n = p.parseTopError()
	}
	return &ast.Item{
		Node:      n,
		FullStart: p.toks[first].FullStart(),
		ScanEnd:   p.toks[p.hi].Span.End,
	}
}

// parseTopError skips to the next token that can start an item outside of
// braces and returns one error node covering everything skipped.
func (p *Parser) parseTopError() *ast.Node {
	first := p.peek()
	msg := "expected 'fn', 'let' or 'include', found " + describe(first)
	if first.Kind == token.Invalid {
		msg = invalidMessage(first)
	}
	span := first.Span
	depth := 0
	for !p.at(token.EOF) {
		tok := p.peek()
		if depth == 0 && tok.IsItemStart() {
			break
		}
		switch tok.Kind {
		case token.LBrace:
			depth++
		case token.RBrace:
			if depth > 0 {
				depth--
			}
		}
		span = span.Cover(p.advance().Span)
	}
	return p.errorAt(span, msg)
}
