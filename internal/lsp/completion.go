package lsp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xpl/internal/analysis"
	"xpl/internal/source"
	"xpl/internal/symbols"
	"xpl/internal/token"
	"xpl/internal/types"
)

func (s *Server) handleCompletion(ctx context.Context, raw json.RawMessage) (any, bool, error) {
	var params textDocumentPositionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, false, err
	}
	res, stale, err := s.acquire(ctx, canonicalURI(params.TextDocument.URI))
	if err != nil || res.snap == nil {
		return completionList{Items: []completionItem{}}, stale, err
	}
	return buildCompletion(res.snap, params.Position, s.loader.Root), stale, nil
}

type completionContext uint8

const (
	completeGeneral completionContext = iota
	completeType
	// cursor right after `include`: quotes are inserted
	completeIncludeKeyword
	// cursor inside the include path literal
	completeIncludePath
)

func buildCompletion(snap *analysis.Snapshot, pos position, root string) completionList {
	list := completionList{Items: []completionItem{}}
	if snap.File == nil {
		return list
	}
	off := snap.File.Offset(pos)
	switch classifyCompletion(snap, off) {
	case completeIncludeKeyword:
		list.Items = includeFileItems(snap.URI, root, true)
	case completeIncludePath:
		list.Items = includeFileItems(snap.URI, root, false)
	case completeType:
		for _, name := range types.Names() {
			list.Items = append(list.Items, completionItem{Label: name, Kind: completionKindKeyword, Detail: "type"})
		}
	default:
		list.Items = generalItems(snap, off)
	}
	return list
}

func classifyCompletion(snap *analysis.Snapshot, off uint32) completionContext {
	if tok, ok := snap.TokenAt(off); ok && isPathLiteral(tok) && insideLiteral(tok, off) {
		if prev := tokenBefore(snap, tok.Span.Start); prev.Kind == token.KwInclude {
			return completeIncludePath
		}
	}
	idx := snap.TokenIndexBefore(off)
	if idx < 0 {
		return completeGeneral
	}
	prev := snap.Tokens[idx]
	// a partially typed word belongs to the cursor, look past it
	if prev.Kind == token.Ident && prev.Span.End == off && idx > 0 {
		prev = snap.Tokens[idx-1]
	}
	switch prev.Kind {
	case token.KwInclude:
		return completeIncludeKeyword
	case token.Colon, token.Arrow:
		return completeType
	}
	return completeGeneral
}

func isPathLiteral(tok token.Token) bool {
	if tok.Kind == token.StringLit {
		return true
	}
	// unterminated string
	return tok.Kind == token.Invalid && strings.HasPrefix(tok.Text, `"`)
}

// insideLiteral excludes the position after a closing quote.
func insideLiteral(tok token.Token, off uint32) bool {
	if off <= tok.Span.Start {
		return false
	}
	return tok.Kind != token.StringLit || off < tok.Span.End
}

func tokenBefore(snap *analysis.Snapshot, off uint32) token.Token {
	idx := snap.TokenIndexBefore(off)
	if idx < 0 {
		return token.Token{}
	}
	return snap.Tokens[idx]
}

func generalItems(snap *analysis.Snapshot, off uint32) []completionItem {
	var items []completionItem
	if snap.Symbols != nil {
		for _, sym := range snap.Symbols.VisibleAt(off) {
			items = append(items, symbolItem(snap, sym))
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	for _, kw := range token.Keywords() {
		items = append(items, completionItem{
			Label:    kw,
			Kind:     completionKindKeyword,
			SortText: "1" + kw,
		})
	}
	return items
}

func symbolItem(snap *analysis.Snapshot, sym *symbols.Symbol) completionItem {
	item := completionItem{
		Label:    sym.Name,
		Kind:     completionKindVariable,
		Detail:   sym.Signature(),
		SortText: "0" + sym.Name,
	}
	if sym.Kind == symbols.SymbolFunction {
		item.Kind = completionKindFunction
	}
	if sym.URI != "" && sym.URI != snap.URI {
		item.Detail += "  (" + displayName(sym.URI) + ")"
	}
	if sym.Doc != "" {
		item.Documentation = &markupContent{Kind: "markdown", Value: sym.Doc}
	}
	return item
}

// includeFileItems offers the .xpl files next to the document and, when
// different, in the workspace root.
func includeFileItems(uri, root string, quote bool) []completionItem {
	items := []completionItem{}
	self := source.URIToPath(uri)
	seen := make(map[string]bool)
	dirs := []string{}
	if self != "" {
		dirs = append(dirs, filepath.Dir(self))
	}
	if root != "" {
		dirs = append(dirs, root)
	}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || filepath.Ext(name) != ".xpl" {
				continue
			}
			if seen[name] || filepath.Join(dir, name) == self {
				continue
			}
			seen[name] = true
			item := completionItem{Label: name, Kind: completionKindFile, Detail: "xpl include"}
			if quote {
				item.InsertText = `"` + name + `"`
			}
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}
