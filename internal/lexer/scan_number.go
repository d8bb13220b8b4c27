package lexer

import (
	"xpl/internal/token"
)

// scanNumber scans a decimal integer literal. Range checks happen in the
// semantic layer.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	for isDec(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	return lx.emit(token.IntLit, start)
}
