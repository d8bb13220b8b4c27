package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"xpl/internal/analysis"
	"xpl/internal/ast"
	"xpl/internal/source"
	"xpl/internal/symbols"
	"xpl/internal/types"
)

func (s *Server) handleHover(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var params textDocumentPositionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, false, err
	}
	res, stale, err := s.acquire(ctx, canonicalURI(params.TextDocument.URI))
	if err != nil || res.snap == nil {
		return nil, stale, err
	}
	return buildHover(res.snap, params.Position), stale, nil
}

// buildHover describes what is under pos: an include item, a name (its
// declaration, doc comment and origin) or else the inferred type of the
// innermost expression.
func buildHover(snap *analysis.Snapshot, pos position) *hover {
	if snap.File == nil || snap.Symbols == nil {
		return nil
	}
	off := snap.File.Offset(pos)
	if inc, ok := snap.IncludeFor(off); ok {
		return includeHover(snap, inc)
	}
	if ref, ok := snap.Symbols.RefAt(off); ok && ref.Symbol != nil {
		sym := ref.Symbol
		lines := []string{codeBlock(sym.Signature())}
		if sym.Doc != "" {
			lines = append(lines, sym.Doc)
		}
		if sym.URI != "" && sym.URI != snap.URI {
			lines = append(lines, fmt.Sprintf("Defined in `%s`", displayName(sym.URI)))
		}
		return newHover(snap.File, ref.Span, strings.Join(lines, "\n\n"))
	}
	path := ast.Path(snap.Tree, off)
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if !n.Kind.IsExpr() {
			continue
		}
		t := snap.Symbols.TypeOf(n)
		if t == types.Unknown {
			return nil
		}
		return newHover(snap.File, n.Span, codeBlock(t.String()))
	}
	return nil
}

func includeHover(snap *analysis.Snapshot, inc symbols.Include) *hover {
	var value string
	if inc.URI == "" {
		value = fmt.Sprintf("include `%s`\n\nnot found", inc.Node.Text)
	} else {
		value = fmt.Sprintf("include `%s`\n\n%s", inc.Node.Text, source.URIToPath(inc.URI))
		if n := len(inc.Exports); n > 0 {
			names := make([]string, 0, n)
			for _, sym := range inc.Exports {
				names = append(names, sym.Name)
			}
			value += "\n\nExports: " + strings.Join(names, ", ")
		}
	}
	if inc.Err != nil && inc.URI != "" {
		value += "\n\n" + inc.Err.Error()
	}
	return newHover(snap.File, inc.Node.Span, value)
}

func newHover(file *source.File, span source.Span, markdown string) *hover {
	r := file.Range(span)
	return &hover{Contents: markupContent{Kind: "markdown", Value: markdown}, Range: &r}
}

func codeBlock(code string) string {
	return "```xpl\n" + code + "\n```"
}

func displayName(uri string) string {
	if path := source.URIToPath(uri); path != "" {
		return filepath.Base(path)
	}
	return uri
}
