package lexer

import (
	"xpl/internal/token"
)

// collectLeadingTrivia gathers the trivia in front of the next token:
//   - runs of ' ', '\t' and '\r' become one TriviaSpace
//   - every '\n' is its own TriviaNewline
//   - "#..." up to the newline is a TriviaLineComment, "##..." a TriviaDocLine
func (lx *Lexer) collectLeadingTrivia() {
	for !lx.cursor.EOF() {
		start := lx.cursor.Mark()
		switch b := lx.cursor.Peek(); b {
		case ' ', '\t', '\r':
			for isSpace(lx.cursor.Peek()) {
				lx.cursor.Bump()
			}
			lx.pushTrivia(token.TriviaSpace, start)
		case '\n':
			lx.cursor.Bump()
			lx.pushTrivia(token.TriviaNewline, start)
		case '#':
			lx.cursor.Bump()
			kind := token.TriviaLineComment
			if lx.cursor.Eat('#') {
				kind = token.TriviaDocLine
			}
			for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
				lx.cursor.Bump()
			}
			lx.pushTrivia(kind, start)
		default:
			return
		}
	}
}

func (lx *Lexer) pushTrivia(kind token.TriviaKind, start Mark) {
	sp := lx.cursor.SpanFrom(start)
	lx.hold = append(lx.hold, token.Trivia{
		Kind: kind,
		Span: sp,
		Text: string(lx.file.Content[sp.Start:sp.End]),
	})
}
