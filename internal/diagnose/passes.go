package diagnose

import (
	"context"

	"xpl/internal/analysis"
	"xpl/internal/ast"
	"xpl/internal/diag"
	"xpl/internal/token"
)

// SyntaxPass reports every error node of the tree.
func SyntaxPass(ctx context.Context, snap *analysis.Snapshot, rep diag.Reporter) error {
	for _, n := range ast.Errors(snap.Tree) {
		code := diag.SynUnexpectedToken
		if tok, ok := snap.TokenAt(n.Span.Start); ok && tok.Kind == token.Invalid && tok.Span.Start == n.Span.Start {
			code = diag.SynInvalidToken
		}
		rep.Report(diag.NewError(code, n.Span, n.Text))
	}
	return ctx.Err()
}

// ResolvePass forwards the problems found while binding names.
func ResolvePass(ctx context.Context, snap *analysis.Snapshot, rep diag.Reporter) error {
	if snap.Symbols == nil {
		return nil
	}
	for _, d := range snap.Symbols.Problems {
		rep.Report(d)
	}
	return ctx.Err()
}
