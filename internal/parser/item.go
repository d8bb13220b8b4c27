package parser

import (
	"strconv"

	"xpl/internal/ast"
	"xpl/internal/token"
)

// parseInclude: include "path" [;]
func (p *Parser) parseInclude() *ast.Node {
	kw := p.advance()
	n := &ast.Node{Kind: ast.KindInclude}
	if p.at(token.StringLit) {
		lit := p.advance()
		n.Value = &ast.Node{Kind: ast.KindString, Span: lit.Span, Text: lit.Text}
		if path, err := strconv.Unquote(lit.Text); err == nil {
			n.Text = path
		} else {
			n.Value = p.errorAt(lit.Span, "invalid escape in include path")
		}
	} else {
		n.Value = p.missing("a quoted file name after 'include'")
	}
	p.eat(token.Semicolon)
	n.Span = p.spanFrom(kw.Span.Start)
	return n
}

// parseLet: let NAME [: TYPE] = EXPR [;]
func (p *Parser) parseLet() *ast.Node {
	kw := p.advance()
	n := &ast.Node{Kind: ast.KindLet, Doc: token.DocComment(kw.Leading)}
	n.Name = p.parseName("a variable name after 'let'")
	if p.eat(token.Colon) {
		n.Type = p.parseType()
	}
	if _, errNode := p.expect(token.Assign, "'=' in let binding"); errNode != nil {
		n.Value = errNode
	} else {
		n.Value = p.parseExpr()
	}
	p.eat(token.Semicolon)
	n.Span = p.spanFrom(kw.Span.Start)
	return n
}

// parseFn: fn NAME ( PARAMS ) [-> TYPE] BLOCK
func (p *Parser) parseFn() *ast.Node {
	kw := p.advance()
	n := &ast.Node{Kind: ast.KindFn, Doc: token.DocComment(kw.Leading)}
	n.Name = p.parseName("a function name after 'fn'")
	if _, errNode := p.expect(token.LParen, "'(' after function name"); errNode != nil {
		n.Params = append(n.Params, errNode)
	} else {
		n.Params = p.parseParams()
	}
	if p.eat(token.Arrow) {
		n.Type = p.parseType()
	}
	n.Body = p.parseBlock()
	n.Span = p.spanFrom(kw.Span.Start)
	return n
}

// parseParams parses the parameter list after '(' including the closing ')'.
func (p *Parser) parseParams() []*ast.Node {
	var params []*ast.Node
	for !p.at(token.RParen) && !p.at(token.EOF) && !p.at(token.LBrace) {
		if !p.at(token.Ident) {
			params = append(params, p.missing("a parameter name"))
			break
		}
		name := p.advance()
		param := &ast.Node{
			Kind: ast.KindParam,
			Name: &ast.Node{Kind: ast.KindIdent, Span: name.Span, Text: name.Text},
		}
		if _, errNode := p.expect(token.Colon, "':' and a type for parameter '"+name.Text+"'"); errNode != nil {
			param.Type = errNode
		} else {
			param.Type = p.parseType()
		}
		param.Span = p.spanFrom(name.Span.Start)
		params = append(params, param)
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, errNode := p.expect(token.RParen, "')' to close the parameter list"); errNode != nil {
		params = append(params, errNode)
	}
	return params
}

func (p *Parser) parseName(what string) *ast.Node {
	if !p.at(token.Ident) {
		return p.missing(what)
	}
	tok := p.advance()
	return &ast.Node{Kind: ast.KindIdent, Span: tok.Span, Text: tok.Text}
}

func (p *Parser) parseType() *ast.Node {
	if !p.at(token.Ident) {
		return p.missing("a type name")
	}
	tok := p.advance()
	return &ast.Node{Kind: ast.KindTypeRef, Span: tok.Span, Text: tok.Text}
}
