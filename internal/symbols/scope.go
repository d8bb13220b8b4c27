package symbols

import (
	"golang.org/x/text/unicode/norm"

	"xpl/internal/source"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid  ScopeKind = iota
	ScopeIncluded           // symbols pulled in by include items
	ScopeFile               // top-level declarations
	ScopeFunction           // parameters and the function body
	ScopeBlock              // if/else/loop bodies and nested blocks
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeIncluded:
		return "included"
	case ScopeFile:
		return "file"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

// Scope models a lexical scope with a parent-child hierarchy.
type Scope struct {
	Kind     ScopeKind
	Parent   *Scope
	Span     source.Span
	Symbols  []*Symbol
	Children []*Scope
	names    map[string]*Symbol
}

func newScope(kind ScopeKind, parent *Scope, span source.Span) *Scope {
	s := &Scope{Kind: kind, Parent: parent, Span: span, names: make(map[string]*Symbol)}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// nameKey folds identifiers to NFC so visually identical names match.
func nameKey(name string) string {
	return norm.NFC.String(name)
}

// Lookup finds name in this scope only.
func (s *Scope) Lookup(name string) *Symbol {
	if s == nil {
		return nil
	}
	return s.names[nameKey(name)]
}

// Resolve finds name in this scope or the nearest enclosing one.
func (s *Scope) Resolve(name string) *Symbol {
	key := nameKey(name)
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.names[key]; ok {
			return sym
		}
	}
	return nil
}

// declare adds sym unless the name is taken in this scope; the existing
// symbol is returned in that case.
func (s *Scope) declare(sym *Symbol) (*Symbol, bool) {
	key := nameKey(sym.Name)
	if prev, ok := s.names[key]; ok {
		return prev, false
	}
	s.names[key] = sym
	s.Symbols = append(s.Symbols, sym)
	return sym, true
}
