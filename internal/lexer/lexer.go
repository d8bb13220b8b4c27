package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"xpl/internal/source"
	"xpl/internal/token"
)

type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	look   *token.Token
	hold   []token.Trivia
}

func New(file *source.File, opts Options) *Lexer {
	return &Lexer{
		file:   file,
		cursor: NewCursor(file),
		opts:   opts,
	}
}

// Tokenize lexes the whole file. The result always ends with an EOF token
// carrying the trailing trivia.
func Tokenize(file *source.File, opts Options) []token.Token {
	lx := New(file, opts)
	toks := make([]token.Token, 0, len(file.Content)/3+1)
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

// Next returns the next significant token with its leading trivia. After EOF
// it keeps returning EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}

	lx.collectLeadingTrivia()

	var tok token.Token
	if lx.cursor.EOF() {
		tok = token.Token{Kind: token.EOF, Span: lx.emptySpan()}
	} else {
		ch := lx.cursor.Peek()
		switch {
		case isIdentStartByte(ch), ch >= utf8.RuneSelf:
			tok = lx.scanIdentOrKeyword()
		case isDec(ch):
			tok = lx.scanNumber()
		case ch == '"':
			tok = lx.scanString()
		default:
			tok = lx.scanOperatorOrPunct()
		}
	}

	if len(lx.hold) > 0 {
		tok.Leading = lx.hold
		lx.hold = nil
	}
	return tok
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() token.Token {
	t := lx.Next()
	lx.look = &t
	return t
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{Start: lx.cursor.Off, End: lx.cursor.Off}
}

func (lx *Lexer) emit(k token.Kind, start Mark) token.Token {
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: k, Span: sp, Text: string(lx.file.Content[sp.Start:sp.End])}
}

// Describe explains why tok is Invalid.
func Describe(tok token.Token) string {
	switch {
	case strings.HasPrefix(tok.Text, `"`):
		return "unterminated string literal"
	case tok.Text == "&" || tok.Text == "|":
		return fmt.Sprintf("unexpected character %q, did you mean %q?", tok.Text, tok.Text+tok.Text)
	default:
		return fmt.Sprintf("unexpected character %q", tok.Text)
	}
}
