package parser

import (
	"xpl/internal/ast"
	"xpl/internal/token"
)

func (p *Parser) parseExpr() *ast.Node {
	return p.parseBinary(precLogicalOr)
}

// parseBinary is a precedence climber over binaryPrec.
func (p *Parser) parseBinary(minPrec int) *ast.Node {
	left := p.parseUnary()
	for {
		op := p.peek()
		prec := binaryPrec(op.Kind)
		if prec == precNone || prec < minPrec {
			return left
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		left = &ast.Node{
			Kind:  ast.KindBinary,
			Span:  left.Span.Cover(right.Span),
			Op:    op.Kind,
			Left:  left,
			Right: right,
		}
	}
}

func (p *Parser) parseUnary() *ast.Node {
	if p.at(token.Minus) || p.at(token.Bang) {
		op := p.advance()
		operand := p.parseUnary()
		return &ast.Node{
			Kind:  ast.KindUnary,
			Span:  op.Span.Cover(operand.Span),
			Op:    op.Kind,
			Value: operand,
		}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() *ast.Node {
	tok := p.peek()
	switch tok.Kind {
	case token.IntLit:
		p.advance()
		return &ast.Node{Kind: ast.KindInt, Span: tok.Span, Text: tok.Text}
	case token.StringLit:
		p.advance()
		return &ast.Node{Kind: ast.KindString, Span: tok.Span, Text: tok.Text}
	case token.KwTrue, token.KwFalse:
		p.advance()
		return &ast.Node{Kind: ast.KindBool, Span: tok.Span, Text: tok.Text}
	case token.Ident:
		p.advance()
		ident := &ast.Node{Kind: ast.KindIdent, Span: tok.Span, Text: tok.Text}
		if !p.at(token.LParen) {
			return ident
		}
		return p.parseCall(ident)
	case token.LParen:
		p.advance()
		n := &ast.Node{Kind: ast.KindParen, Value: p.parseExpr()}
		if _, errNode := p.expect(token.RParen, "')'"); errNode != nil {
			n.Right = errNode
		}
		n.Span = p.spanFrom(tok.Span.Start)
		return n
	case token.Invalid:
		p.advance()
		return p.errorAt(tok.Span, invalidMessage(tok))
	default:
		return p.missing("an expression")
	}
}

// parseCall: NAME ( [EXPR {, EXPR}] )
func (p *Parser) parseCall(callee *ast.Node) *ast.Node {
	p.advance() // '('
	n := &ast.Node{Kind: ast.KindCall, Name: callee}
	for !p.at(token.RParen) && !p.at(token.EOF) {
		n.Args = append(n.Args, p.parseExpr())
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, errNode := p.expect(token.RParen, "')' to close the call"); errNode != nil {
		n.Right = errNode
	}
	n.Span = p.spanFrom(callee.Span.Start)
	return n
}
