package parser

import (
	"fmt"

	"xpl/internal/ast"
	"xpl/internal/lexer"
	"xpl/internal/source"
	"xpl/internal/token"
)

func (p *Parser) touch(i int) {
	if i > p.hi {
		p.hi = i
	}
}

func (p *Parser) peek() token.Token {
	p.touch(p.pos)
	return p.toks[p.pos]
}

// peekN looks n tokens ahead, stopping at EOF.
func (p *Parser) peekN(n int) token.Token {
	i := min(p.pos+n, len(p.toks)-1)
	p.touch(i)
	return p.toks[i]
}

func (p *Parser) at(k token.Kind) bool {
	return p.peek().Kind == k
}

// advance consumes the current token. EOF is never consumed.
func (p *Parser) advance() token.Token {
	tok := p.peek()
	if tok.Kind != token.EOF {
		p.pos++
		p.prevEnd = tok.Span.End
	}
	return tok
}

// eat consumes the current token if it has kind k.
func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of kind k or returns an error node describing
// what was found instead. The unexpected token is left in place.
func (p *Parser) expect(k token.Kind, what string) (token.Token, *ast.Node) {
	if p.at(k) {
		return p.advance(), nil
	}
	return token.Token{}, p.missing(what)
}

// missing builds an error node "expected <what>, found <tok>" at the current
// token, or right after the previous token at EOF.
func (p *Parser) missing(what string) *ast.Node {
	tok := p.peek()
	if tok.Kind == token.Invalid {
		return p.errorAt(tok.Span, invalidMessage(tok))
	}
	return p.errorAt(p.diagnosticSpan(), fmt.Sprintf("expected %s, found %s", what, describe(tok)))
}

func (p *Parser) diagnosticSpan() source.Span {
	tok := p.peek()
	if tok.Kind == token.EOF {
		return source.Span{Start: p.prevEnd, End: p.prevEnd}
	}
	return tok.Span
}

func (p *Parser) errorAt(sp source.Span, msg string) *ast.Node {
	return &ast.Node{Kind: ast.KindError, Span: sp, Text: msg}
}

// spanFrom covers everything from start up to the last consumed token.
func (p *Parser) spanFrom(start uint32) source.Span {
	end := p.prevEnd
	if end < start {
		end = start
	}
	return source.Span{Start: start, End: end}
}

func describe(tok token.Token) string {
	switch tok.Kind {
	case token.EOF:
		return "end of file"
	case token.Ident:
		return fmt.Sprintf("identifier '%s'", tok.Text)
	case token.IntLit, token.StringLit:
		return tok.Text
	default:
		return fmt.Sprintf("'%s'", tok.Kind)
	}
}

func invalidMessage(tok token.Token) string {
	return lexer.Describe(tok)
}

// isExprStart reports whether k can begin an expression.
func isExprStart(k token.Kind) bool {
	switch k {
	case token.Ident, token.IntLit, token.StringLit, token.KwTrue, token.KwFalse,
		token.LParen, token.Minus, token.Bang, token.Invalid:
		return true
	default:
		return false
	}
}
