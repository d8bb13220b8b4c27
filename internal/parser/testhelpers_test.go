package parser

import (
	"fmt"
	"strings"
	"testing"

	"xpl/internal/ast"
	"xpl/internal/lexer"
	"xpl/internal/source"
	"xpl/internal/token"
)

func lex(src string) []token.Token {
	return lexer.Tokenize(source.NewFile("file:///test.xpl", src), lexer.Options{})
}

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	return Parse(lex(src)).File
}

func errorsSummary(f *ast.File) string {
	errs := ast.Errors(f)
	if len(errs) == 0 {
		return "<none>"
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = fmt.Sprintf("%s %s", e.Span, e.Text)
	}
	return strings.Join(lines, "; ")
}

func requireNoErrors(t *testing.T, f *ast.File) {
	t.Helper()
	if errs := ast.Errors(f); len(errs) != 0 {
		t.Fatalf("unexpected syntax errors: %s", errorsSummary(f))
	}
}
