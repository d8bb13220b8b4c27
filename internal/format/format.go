package format

import (
	"errors"
	"strings"

	"xpl/internal/ast"
	"xpl/internal/lexer"
	"xpl/internal/parser"
	"xpl/internal/source"
	"xpl/internal/token"
)

// ErrSyntax is returned for documents that do not parse cleanly.
var ErrSyntax = errors.New("format: document has syntax errors")

type Options struct {
	IndentWidth int
	UseTabs     bool
}

func (o Options) withDefaults() Options {
	if o.IndentWidth <= 0 {
		o.IndentWidth = 4
	}
	return o
}

// Source formats one document.
func Source(uri, text string, opt Options) (string, error) {
	file := source.NewFile(uri, text)
	toks := lexer.Tokenize(file, lexer.Options{})
	tree := parser.Parse(toks).File
	return Tokens(toks, tree, opt)
}

// Tokens formats an already analysed document. tree is used only to refuse
// documents with syntax errors.
func Tokens(toks []token.Token, tree *ast.File, opt Options) (string, error) {
	if len(ast.Errors(tree)) > 0 {
		return "", ErrSyntax
	}
	size := 0
	if n := len(toks); n > 0 {
		size = int(toks[n-1].Span.End) + 16
	}
	w := NewWriter(size, opt)
	f := formatter{w: w}
	for _, tok := range toks {
		f.token(tok)
	}
	out := w.Bytes()
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return string(out), nil
}

type formatter struct {
	w    *Writer
	prev token.Token
	// prevUnary marks prev as a prefix operator
	prevUnary bool
	started   bool
}

func (f *formatter) token(tok token.Token) {
	newlines := 0
	sameLineComment := false
	for _, tr := range tok.Leading {
		switch tr.Kind {
		case token.TriviaNewline:
			newlines++
		case token.TriviaLineComment, token.TriviaDocLine:
			text := strings.TrimRight(tr.Text, " \t\r")
			if newlines == 0 && f.started {
				f.w.Space()
			} else {
				f.w.Newlines(newlines)
			}
			f.w.WriteString(text)
			newlines = 0
			sameLineComment = true
		}
	}
	if tok.Kind == token.EOF {
		return
	}
	if sameLineComment && newlines == 0 {
		// a comment always runs to the end of its line
		newlines = 1
	}
	if tok.Kind == token.RBrace {
		f.w.IndentPop()
	}
	switch {
	case newlines > 0:
		f.w.Newlines(newlines)
	case f.started && spaceBetween(f.prev, f.prevUnary, tok):
		f.w.Space()
	}
	f.w.WriteString(tok.Text)
	if tok.Kind == token.LBrace {
		f.w.IndentPush()
	}
	f.prevUnary = (tok.Kind == token.Minus || tok.Kind == token.Bang) && !endsOperand(f.prev, f.started)
	f.prev = tok
	f.started = true
}

// endsOperand reports whether an operator after prev is binary.
func endsOperand(prev token.Token, started bool) bool {
	if !started {
		return false
	}
	switch prev.Kind {
	case token.Ident, token.IntLit, token.StringLit, token.KwTrue, token.KwFalse, token.RParen:
		return true
	}
	return false
}

func spaceBetween(prev token.Token, prevUnary bool, cur token.Token) bool {
	switch cur.Kind {
	case token.Comma, token.Semicolon, token.RParen, token.Colon:
		return false
	case token.LParen:
		return prev.Kind != token.Ident && prev.Kind != token.LParen && !prevUnary
	case token.RBrace:
		return prev.Kind != token.LBrace
	}
	switch prev.Kind {
	case token.LParen:
		return false
	case token.Minus, token.Bang:
		return !prevUnary
	}
	return true
}
