package lsp

import (
	"context"
	"encoding/json"
	"errors"

	"xpl/internal/analysis"
	"xpl/internal/format"
	"xpl/internal/source"
)

// handleFormatting returns one edit replacing the whole document. Edits
// must apply to the client's current text, so a stale snapshot is refused
// with ContentModified instead.
func (s *Server) handleFormatting(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var params formattingParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, false, err
	}
	res, stale, err := s.acquire(ctx, canonicalURI(params.TextDocument.URI))
	if err != nil {
		return nil, false, err
	}
	if stale {
		return nil, false, errContentModified
	}
	if res.snap == nil {
		return []textEdit{}, false, nil
	}
	opt := format.Options{
		IndentWidth: params.Options.TabSize,
		UseTabs:     params.Options.TabSize > 0 && !params.Options.InsertSpaces,
	}
	edits, err := buildFormatting(res.snap, opt)
	if err != nil {
		return nil, false, err
	}
	return edits, false, nil
}

// buildFormatting yields no edits for documents with syntax errors or that
// are already formatted.
func buildFormatting(snap *analysis.Snapshot, opt format.Options) ([]textEdit, error) {
	out, err := format.Tokens(snap.Tokens, snap.Tree, opt)
	if errors.Is(err, format.ErrSyntax) {
		return []textEdit{}, nil
	}
	if err != nil {
		return nil, err
	}
	if out == snap.Text() {
		return []textEdit{}, nil
	}
	full := snap.File.Range(source.Span{Start: 0, End: snap.File.Len()})
	return []textEdit{{Range: full, NewText: out}}, nil
}
