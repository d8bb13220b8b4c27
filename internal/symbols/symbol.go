package symbols

import (
	"fmt"
	"strings"

	"xpl/internal/ast"
	"xpl/internal/source"
	"xpl/internal/types"
)

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolFunction
	SymbolGlobal
	SymbolLocal
	SymbolParam
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolGlobal:
		return "global"
	case SymbolLocal:
		return "local"
	case SymbolParam:
		return "param"
	default:
		return "invalid"
	}
}

// Param is one declared function parameter.
type Param struct {
	Name string
	Type types.Type
}

// Symbol describes a named entity available in a scope. Symbols are not
// modified after Resolve returns, so tables of included files can be shared.
type Symbol struct {
	Name string
	Kind SymbolKind
	// Type is the variable type, or the result type of a function.
	Type   types.Type
	Params []Param
	// Span is the span of the declaring name.
	Span source.Span
	Decl *ast.Node
	URI  string
	File *source.File
	Doc  string
}

// Signature renders the declaration the way hover and completion show it.
func (s *Symbol) Signature() string {
	switch s.Kind {
	case SymbolFunction:
		var b strings.Builder
		b.WriteString("fn ")
		b.WriteString(s.Name)
		b.WriteByte('(')
		for i, p := range s.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", p.Name, p.Type)
		}
		b.WriteByte(')')
		if s.Type != types.Void {
			fmt.Fprintf(&b, " -> %s", s.Type)
		}
		return b.String()
	case SymbolParam:
		return fmt.Sprintf("%s: %s", s.Name, s.Type)
	default:
		return fmt.Sprintf("let %s: %s", s.Name, s.Type)
	}
}
