package lexer

import (
	"xpl/internal/token"
)

// scanString scans "..." with backslash escapes. A newline or EOF before
// the closing quote yields an Invalid token that stops before the newline.
func (lx *Lexer) scanString() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // opening '"'
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b == '"' {
			lx.cursor.Bump()
			return lx.emit(token.StringLit, start)
		}
		if b == '\n' {
			break
		}
		if b == '\\' {
			lx.cursor.Bump()
			if lx.cursor.EOF() || lx.cursor.Peek() == '\n' {
				break
			}
		}
		lx.cursor.Bump()
	}
	tok := lx.emit(token.Invalid, start)
	lx.report(tok.Span, Describe(tok))
	return tok
}
