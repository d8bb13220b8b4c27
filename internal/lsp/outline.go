package lsp

import (
	"context"
	"encoding/json"

	"xpl/internal/analysis"
	"xpl/internal/ast"
	"xpl/internal/symbols"
)

// runFileCommand is executed by the editor extension, never by the server.
const runFileCommand = "xpl.runFile"

type documentParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

func (s *Server) handleDocumentSymbol(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var params documentParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, false, err
	}
	res, stale, err := s.acquire(ctx, canonicalURI(params.TextDocument.URI))
	if err != nil || res.snap == nil {
		return []documentSymbol{}, stale, err
	}
	return buildDocumentSymbols(res.snap), stale, nil
}

// buildDocumentSymbols lists includes, functions and globals in source
// order. Function parameters become children.
func buildDocumentSymbols(snap *analysis.Snapshot) []documentSymbol {
	out := []documentSymbol{}
	if snap.File == nil || snap.Tree == nil {
		return out
	}
	decls := make(map[*ast.Node]*symbols.Symbol)
	if snap.Symbols != nil {
		for _, sym := range snap.Symbols.Symbols {
			if sym.Decl != nil {
				decls[sym.Decl] = sym
			}
		}
	}
	for _, it := range snap.Tree.Items {
		n := it.Node
		switch n.Kind {
		case ast.KindInclude:
			if n.Text == "" {
				continue
			}
			r := snap.File.Range(n.Span)
			out = append(out, documentSymbol{Name: n.Text, Detail: "include", Kind: symbolKindFile, Range: r, SelectionRange: r})
		case ast.KindFn, ast.KindLet:
			if n.Name == nil || n.Ident() == "" {
				continue
			}
			ds := documentSymbol{
				Name:           n.Ident(),
				Kind:           symbolKindVariable,
				Range:          snap.File.Range(n.Span),
				SelectionRange: snap.File.Range(n.Name.Span),
			}
			if sym := decls[n]; sym != nil {
				ds.Detail = sym.Signature()
			}
			if n.Kind == ast.KindFn {
				ds.Kind = symbolKindFunction
				for _, p := range n.Params {
					if p.Kind != ast.KindParam || p.Name == nil {
						continue
					}
					ds.Children = append(ds.Children, documentSymbol{
						Name:           p.Ident(),
						Kind:           symbolKindVariable,
						Range:          snap.File.Range(p.Span),
						SelectionRange: snap.File.Range(p.Name.Span),
					})
				}
			}
			out = append(out, ds)
		}
	}
	return out
}

func (s *Server) handleCodeLens(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var params documentParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, false, err
	}
	uri := canonicalURI(params.TextDocument.URI)
	res, stale, err := s.acquire(ctx, uri)
	if err != nil || res.snap == nil {
		return []codeLens{}, stale, err
	}
	return buildCodeLenses(res.snap), stale, nil
}

// buildCodeLenses puts a "Run" lens on fn main, or at the top of a file
// without one.
func buildCodeLenses(snap *analysis.Snapshot) []codeLens {
	cmd := &command{Title: "Run", Command: runFileCommand, Arguments: []any{snap.URI}}
	if snap.Tree != nil && snap.File != nil {
		for _, it := range snap.Tree.Items {
			n := it.Node
			if n.Kind == ast.KindFn && n.Ident() == "main" && n.Name != nil {
				return []codeLens{{Range: snap.File.Range(n.Name.Span), Command: cmd}}
			}
		}
	}
	return []codeLens{{Range: lspRange{}, Command: cmd}}
}
