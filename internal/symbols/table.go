package symbols

import (
	"errors"
	"sort"

	"xpl/internal/ast"
	"xpl/internal/diag"
	"xpl/internal/source"
	"xpl/internal/types"
)

var (
	// ErrIncludeNotFound is wrapped by loaders when an include target does not exist.
	ErrIncludeNotFound = errors.New("include not found")
	// ErrIncludeCycle is wrapped by loaders when an include leads back to a file
	// already being loaded.
	ErrIncludeCycle = errors.New("include cycle")
)

// Include is the loader's answer for one include item.
type Include struct {
	Node *ast.Node
	URI  string
	// Exports are the functions and globals the included file makes
	// visible, its own includes included.
	Exports []*Symbol
	// Deps lists the URIs of files reached through this include, nested
	// includes first.
	Deps []string
	Err  error
}

type RefKind uint8

const (
	RefRead RefKind = iota
	RefWrite
	RefCall
	RefDecl
)

// Ref links a name occurrence to its symbol.
type Ref struct {
	Span   source.Span
	Symbol *Symbol
	Kind   RefKind
}

// Table is the result of resolving one file.
type Table struct {
	URI      string
	Included *Scope
	Root     *Scope
	// Symbols declared in this file in declaration order.
	Symbols []*Symbol
	// Refs sorted by span start, declarations included.
	Refs     []Ref
	Types    map[*ast.Node]types.Type
	Problems []diag.Diagnostic
	Exports  []*Symbol
	Includes []Include
}

// RefAt returns the reference whose span contains off.
func (t *Table) RefAt(off uint32) (Ref, bool) {
	i := sort.Search(len(t.Refs), func(i int) bool { return t.Refs[i].Span.End >= off })
	for ; i < len(t.Refs) && t.Refs[i].Span.Start <= off; i++ {
		if t.Refs[i].Span.Contains(off) {
			return t.Refs[i], true
		}
	}
	return Ref{}, false
}

// ReferencesTo lists the references to sym in this file.
func (t *Table) ReferencesTo(sym *Symbol, includeDecl bool) []Ref {
	var out []Ref
	for _, r := range t.Refs {
		if r.Symbol != sym {
			continue
		}
		if r.Kind == RefDecl && !includeDecl {
			continue
		}
		out = append(out, r)
	}
	return out
}

// TypeOf returns the inferred type of an expression node.
func (t *Table) TypeOf(n *ast.Node) types.Type {
	if t == nil || n == nil {
		return types.Unknown
	}
	return t.Types[n]
}

// ScopeAt returns the innermost scope whose span contains off.
func (t *Table) ScopeAt(off uint32) *Scope {
	cur := t.Root
	for {
		var next *Scope
		for _, c := range cur.Children {
			if c.Span.Contains(off) {
				next = c
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// VisibleAt lists the symbols usable at off, innermost first. Locals count
// only after their declaration.
func (t *Table) VisibleAt(off uint32) []*Symbol {
	var out []*Symbol
	seen := make(map[string]bool)
	for s := t.ScopeAt(off); s != nil; s = s.Parent {
		for _, sym := range s.Symbols {
			if sym.Kind == SymbolLocal && sym.Span.Start >= off {
				continue
			}
			key := nameKey(sym.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, sym)
		}
	}
	return out
}

// Lookup resolves a top-level name the way a function body would.
func (t *Table) Lookup(name string) *Symbol {
	return t.Root.Resolve(name)
}
