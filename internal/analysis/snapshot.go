package analysis

import (
	"sort"

	"xpl/internal/ast"
	"xpl/internal/source"
	"xpl/internal/symbols"
	"xpl/internal/token"
)

// Snapshot is the immutable result of analysing one document version.
type Snapshot struct {
	URI      string
	Version  int32
	File     *source.File
	Tokens   []token.Token
	Tree     *ast.File
	Symbols  *symbols.Table
	Includes []symbols.Include
	// Reused counts top-level items taken over from the previous snapshot.
	Reused int
}

// Text returns the analysed document text.
func (s *Snapshot) Text() string {
	if s == nil || s.File == nil {
		return ""
	}
	return string(s.File.Content)
}

// TokenAt returns the token covering offset. An offset right after a token
// still selects it, so a cursor at the end of a word hits the word.
func (s *Snapshot) TokenAt(offset uint32) (token.Token, bool) {
	if s == nil {
		return token.Token{}, false
	}
	tokens := s.Tokens
	idx := sort.Search(len(tokens), func(i int) bool { return tokens[i].Span.End > offset })
	if idx < len(tokens) {
		tok := tokens[idx]
		if tok.Kind != token.EOF && tok.Span.Start <= offset && offset < tok.Span.End {
			return tok, true
		}
	}
	for i := idx - 1; i >= 0; i-- {
		prev := tokens[i]
		if prev.Kind == token.EOF {
			continue
		}
		if prev.Span.Start <= offset && offset == prev.Span.End {
			return prev, true
		}
		break
	}
	return token.Token{}, false
}

// TokenIndexBefore returns the index of the last token ending at or before
// offset, or -1. The EOF token is never returned.
func (s *Snapshot) TokenIndexBefore(offset uint32) int {
	if s == nil {
		return -1
	}
	tokens := s.Tokens
	idx := sort.Search(len(tokens), func(i int) bool { return tokens[i].Span.End > offset }) - 1
	for idx >= 0 && tokens[idx].Kind == token.EOF {
		idx--
	}
	return idx
}

// IncludeFor returns the resolved include whose item contains offset.
func (s *Snapshot) IncludeFor(offset uint32) (symbols.Include, bool) {
	if s == nil {
		return symbols.Include{}, false
	}
	for _, inc := range s.Includes {
		if inc.Node != nil && inc.Node.Span.Contains(offset) {
			return inc, true
		}
	}
	return symbols.Include{}, false
}

// Dependencies lists every file the snapshot's includes reach, direct
// includes first. Includes that failed to load are skipped.
func (s *Snapshot) Dependencies() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, inc := range s.Includes {
		if inc.URI != "" {
			out = appendDeps(out, inc.URI)
		}
	}
	for _, inc := range s.Includes {
		out = appendDeps(out, inc.Deps...)
	}
	return out
}
