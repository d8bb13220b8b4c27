package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf16"

	"xpl/internal/analysis"
	"xpl/internal/symbols"
	"xpl/internal/token"
)

func (s *Server) handleSignatureHelp(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var params textDocumentPositionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, false, err
	}
	res, stale, err := s.acquire(ctx, canonicalURI(params.TextDocument.URI))
	if err != nil || res.snap == nil {
		return nil, stale, err
	}
	return buildSignatureHelp(res.snap, params.Position), stale, nil
}

// buildSignatureHelp walks back from pos to the unmatched '(' of the
// enclosing call, counting top-level commas for the active parameter.
// Tokens are used instead of the tree so half-typed calls still work.
func buildSignatureHelp(snap *analysis.Snapshot, pos position) *signatureHelp {
	if snap.File == nil || snap.Symbols == nil {
		return nil
	}
	off := snap.File.Offset(pos)
	depth, commas := 0, 0
	for i := snap.TokenIndexBefore(off); i >= 0; i-- {
		tok := snap.Tokens[i]
		switch tok.Kind {
		case token.RParen:
			depth++
		case token.LParen:
			if depth > 0 {
				depth--
				continue
			}
			if i == 0 || snap.Tokens[i-1].Kind != token.Ident {
				return nil
			}
			return signatureFor(snap, snap.Tokens[i-1], commas)
		case token.Comma:
			if depth == 0 {
				commas++
			}
		case token.LBrace, token.RBrace, token.Semicolon:
			return nil
		}
	}
	return nil
}

func signatureFor(snap *analysis.Snapshot, callee token.Token, argIndex int) *signatureHelp {
	var sym *symbols.Symbol
	if ref, ok := snap.Symbols.RefAt(callee.Span.Start); ok {
		sym = ref.Symbol
	}
	if sym == nil {
		sym = snap.Symbols.Lookup(callee.Text)
	}
	if sym == nil || sym.Kind != symbols.SymbolFunction {
		return nil
	}
	info := signatureInformation{Label: sym.Signature()}
	if sym.Doc != "" {
		info.Documentation = &markupContent{Kind: "markdown", Value: sym.Doc}
	}
	// parameters sit after "fn name(" and are joined by ", "
	at := utf16Len("fn " + sym.Name + "(")
	for i, p := range sym.Params {
		if i > 0 {
			at += utf16Len(", ")
		}
		n := utf16Len(fmt.Sprintf("%s: %s", p.Name, p.Type))
		info.Parameters = append(info.Parameters, parameterInformation{Label: [2]int{at, at + n}})
		at += n
	}
	active := 0
	if len(sym.Params) > 0 {
		active = min(argIndex, len(sym.Params)-1)
	}
	return &signatureHelp{
		Signatures:      []signatureInformation{info},
		ActiveSignature: 0,
		ActiveParameter: active,
	}
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
