package parser

import (
	"xpl/internal/ast"
	"xpl/internal/token"
)

// parseBlock: { STMT* }
// A block that runs into 'fn' or 'include' is closed with an error so the
// next item still parses.
func (p *Parser) parseBlock() *ast.Node {
	open, errNode := p.expect(token.LBrace, "'{'")
	if errNode != nil {
		return errNode
	}
	n := &ast.Node{Kind: ast.KindBlock}
	for {
		tok := p.peek()
		if tok.Kind == token.RBrace {
			p.advance()
			break
		}
		if tok.Kind == token.EOF || tok.Kind == token.KwFn || tok.Kind == token.KwInclude {
			n.Stmts = append(n.Stmts, p.missing("'}' to close the block"))
			break
		}
		n.Stmts = append(n.Stmts, p.parseStmt())
	}
	n.Span = p.spanFrom(open.Span.Start)
	return n
}

func (p *Parser) parseStmt() *ast.Node {
	tok := p.peek()
	var n *ast.Node
	switch tok.Kind {
	case token.KwLet:
		return p.parseLet()
	case token.KwPrint:
		p.advance()
		n = &ast.Node{Kind: ast.KindPrint, Value: p.parseExpr()}
	case token.KwReturn:
		p.advance()
		n = &ast.Node{Kind: ast.KindReturn}
		if isExprStart(p.peek().Kind) {
			n.Value = p.parseExpr()
		}
	case token.KwIf:
		return p.parseIf()
	case token.KwLoop:
		p.advance()
		n = &ast.Node{Kind: ast.KindLoop, Cond: p.parseExpr()}
		n.Body = p.parseBlock()
	case token.LBrace:
		return p.parseBlock()
	case token.Ident:
		if p.peekN(1).Kind == token.Assign {
			name := p.advance()
			p.advance() // '='
			n = &ast.Node{
				Kind:  ast.KindAssign,
				Name:  &ast.Node{Kind: ast.KindIdent, Span: name.Span, Text: name.Text},
				Value: p.parseExpr(),
			}
		} else {
			n = &ast.Node{Kind: ast.KindExprStmt, Value: p.parseExpr()}
		}
	default:
		if isExprStart(tok.Kind) {
			n = &ast.Node{Kind: ast.KindExprStmt, Value: p.parseExpr()}
			break
		}
		p.advance()
		if tok.Kind == token.Invalid {
			return p.errorAt(tok.Span, invalidMessage(tok))
		}
		return p.errorAt(tok.Span, "expected statement, found "+describe(tok))
	}
	p.eat(token.Semicolon)
	n.Span = p.spanFrom(tok.Span.Start)
	return n
}

// parseIf: if EXPR BLOCK [else (BLOCK | if ...)]
func (p *Parser) parseIf() *ast.Node {
	kw := p.advance()
	n := &ast.Node{Kind: ast.KindIf, Cond: p.parseExpr()}
	n.Body = p.parseBlock()
	if p.eat(token.KwElse) {
		if p.at(token.KwIf) {
			n.Else = p.parseIf()
		} else {
			n.Else = p.parseBlock()
		}
	}
	n.Span = p.spanFrom(kw.Span.Start)
	return n
}
