package lexer

import (
	"unicode/utf8"

	"xpl/internal/token"
)

// scanIdentOrKeyword scans an identifier and classifies keywords. Non-ASCII
// letters are accepted; a non-letter rune becomes a one-rune Invalid token.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()

	r, _ := lx.peekRune()
	if r < utf8.RuneSelf {
		lx.cursor.Bump()
		lx.scanIdentTail()
	} else {
		if !isIdentStartRune(r) {
			lx.bumpRune()
			tok := lx.emit(token.Invalid, start)
			lx.report(tok.Span, Describe(tok))
			return tok
		}
		lx.bumpRune()
		lx.scanIdentTail()
	}

	tok := lx.emit(token.Ident, start)
	if kw, ok := token.LookupKeyword(tok.Text); ok {
		tok.Kind = kw
	}
	return tok
}

func (lx *Lexer) scanIdentTail() {
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b < utf8.RuneSelf {
			if !isIdentContinueByte(b) {
				return
			}
			lx.cursor.Bump()
			continue
		}
		r, _ := lx.peekRune()
		if !isIdentContinueRune(r) {
			return
		}
		lx.bumpRune()
	}
}
