package lsp

import (
	"context"
	"encoding/json"

	"xpl/internal/analysis"
	"xpl/internal/symbols"
)

func (s *Server) handleDefinition(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var params textDocumentPositionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, false, err
	}
	res, stale, err := s.acquire(ctx, canonicalURI(params.TextDocument.URI))
	if err != nil || res.snap == nil {
		return []location{}, stale, err
	}
	return buildDefinition(res.snap, params.Position), stale, nil
}

// buildDefinition jumps from a name to its declaration, in this file or in
// an included one, and from an include item to the start of its file.
func buildDefinition(snap *analysis.Snapshot, pos position) []location {
	if snap.File == nil || snap.Symbols == nil {
		return []location{}
	}
	off := snap.File.Offset(pos)
	if inc, ok := snap.IncludeFor(off); ok {
		if inc.URI == "" {
			return []location{}
		}
		return []location{{URI: inc.URI, Range: lspRange{}}}
	}
	ref, ok := snap.Symbols.RefAt(off)
	if !ok || ref.Symbol == nil {
		return []location{}
	}
	if loc, ok := declLocation(snap, ref.Symbol); ok {
		return []location{loc}
	}
	return []location{}
}

func declLocation(snap *analysis.Snapshot, sym *symbols.Symbol) (location, bool) {
	file := sym.File
	uri := sym.URI
	if uri == "" || uri == snap.URI {
		file, uri = snap.File, snap.URI
	}
	if file == nil {
		return location{}, false
	}
	return location{URI: uri, Range: file.Range(sym.Span)}, true
}

func (s *Server) handleReferences(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var params referenceParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, false, err
	}
	res, stale, err := s.acquire(ctx, canonicalURI(params.TextDocument.URI))
	if err != nil || res.snap == nil {
		return []location{}, stale, err
	}
	return buildReferences(res.snap, params.Position, params.Context.IncludeDeclaration), stale, nil
}

// buildReferences lists the resolved references to the symbol under pos in
// this document. A declaration in an included file is added when asked for.
func buildReferences(snap *analysis.Snapshot, pos position, includeDecl bool) []location {
	out := []location{}
	if snap.File == nil || snap.Symbols == nil {
		return out
	}
	ref, ok := snap.Symbols.RefAt(snap.File.Offset(pos))
	if !ok || ref.Symbol == nil {
		return out
	}
	sym := ref.Symbol
	if includeDecl && sym.URI != "" && sym.URI != snap.URI {
		if loc, ok := declLocation(snap, sym); ok {
			out = append(out, loc)
		}
	}
	for _, r := range snap.Symbols.ReferencesTo(sym, includeDecl) {
		out = append(out, location{URI: snap.URI, Range: snap.File.Range(r.Span)})
	}
	return out
}
