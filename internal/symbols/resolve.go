package symbols

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"xpl/internal/ast"
	"xpl/internal/diag"
	"xpl/internal/source"
	"xpl/internal/types"
)

// Options configure one Resolve call.
type Options struct {
	URI      string
	File     *source.File
	Includes []Include
	// ReportUnused enables warnings for locals that are never read.
	ReportUnused bool
}

type resolver struct {
	opts  Options
	table *Table
	reads map[*Symbol]int
	rep   diag.Reporter
}

// Resolve builds scopes, binds every name occurrence to its declaration and
// infers expression types. Problems are recorded on the table; Resolve never
// fails.
func Resolve(tree *ast.File, opts Options) *Table {
	t := &Table{
		URI:      opts.URI,
		Types:    make(map[*ast.Node]types.Type),
		Includes: opts.Includes,
	}
	r := &resolver{
		opts:  opts,
		table: t,
		reads: make(map[*Symbol]int),
	}
	r.rep = diag.ReportFunc(func(d diag.Diagnostic) { t.Problems = append(t.Problems, d) })

	full := source.Span{}
	if opts.File != nil {
		full.End = opts.File.Len()
	}
	t.Included = newScope(ScopeIncluded, nil, full)
	t.Root = newScope(ScopeFile, t.Included, full)

	r.declareIncludes()
	if tree != nil {
		r.declareItems(tree)
		for _, it := range tree.Items {
			if it.Node.Kind == ast.KindLet {
				r.resolveGlobal(it.Node)
			}
		}
		for _, it := range tree.Items {
			if it.Node.Kind == ast.KindFn {
				r.resolveFn(it.Node)
			}
		}
	}
	r.reportUnused()

	sort.SliceStable(t.Refs, func(i, j int) bool { return t.Refs[i].Span.Start < t.Refs[j].Span.Start })
	t.Exports = append(t.Exports, t.Root.Symbols...)
	for _, sym := range t.Included.Symbols {
		if t.Root.Lookup(sym.Name) == nil {
			t.Exports = append(t.Exports, sym)
		}
	}
	return t
}

func (r *resolver) declareIncludes() {
	for _, inc := range r.opts.Includes {
		if inc.Err != nil {
			r.reportInclude(inc)
		}
		for _, sym := range inc.Exports {
			r.table.Included.declare(sym)
		}
	}
}

func (r *resolver) reportInclude(inc Include) {
	sp := inc.Node.Span
	if inc.Node.Value != nil {
		sp = inc.Node.Value.Span
	}
	if errors.Is(inc.Err, ErrIncludeCycle) {
		r.rep.Report(diag.NewError(diag.ResIncludeCycle, sp, inc.Err.Error()))
		return
	}
	r.rep.Report(diag.NewError(diag.ResMissingInclude, sp, fmt.Sprintf("cannot find include %q", inc.Node.Text)))
}

func (r *resolver) newSymbol(kind SymbolKind, n *ast.Node, typ types.Type) *Symbol {
	return &Symbol{
		Name: n.Ident(),
		Kind: kind,
		Type: typ,
		Span: n.Name.Span,
		Decl: n,
		URI:  r.opts.URI,
		File: r.opts.File,
		Doc:  n.Doc,
	}
}

// declareItems registers top-level functions and globals before any body is
// resolved, so declaration order does not matter at file level.
func (r *resolver) declareItems(tree *ast.File) {
	for _, it := range tree.Items {
		n := it.Node
		if n.Ident() == "" {
			continue
		}
		var sym *Symbol
		switch n.Kind {
		case ast.KindFn:
			sym = r.newSymbol(SymbolFunction, n, types.Void)
			if n.Type != nil {
				sym.Type = typeOf(n.Type)
			}
			for _, p := range n.Params {
				if p.Kind == ast.KindParam {
					sym.Params = append(sym.Params, Param{Name: p.Ident(), Type: typeOf(p.Type)})
				}
			}
		case ast.KindLet:
			sym = r.newSymbol(SymbolGlobal, n, types.Unknown)
			if n.Type != nil {
				sym.Type = typeOf(n.Type)
			}
		default:
			continue
		}
		r.declare(r.table.Root, sym)
	}
}

// declare adds sym to scope, reporting a duplicate when the name is taken.
func (r *resolver) declare(scope *Scope, sym *Symbol) {
	r.table.Symbols = append(r.table.Symbols, sym)
	r.table.Refs = append(r.table.Refs, Ref{Span: sym.Span, Symbol: sym, Kind: RefDecl})
	if prev, ok := scope.declare(sym); !ok {
		d := diag.NewError(diag.ResDuplicate, sym.Span, fmt.Sprintf("'%s' is already declared", sym.Name)).
			WithNote(prev.Span, "", "first declared here")
		r.rep.Report(d)
	}
}

func typeOf(ref *ast.Node) types.Type {
	if ref == nil || ref.Kind != ast.KindTypeRef {
		return types.Unknown
	}
	t, _ := types.Lookup(ref.Text)
	return t
}

func (r *resolver) symbolFor(n *ast.Node) *Symbol {
	for _, ref := range r.table.Refs {
		if ref.Kind == RefDecl && ref.Symbol.Decl == n {
			return ref.Symbol
		}
	}
	return nil
}

func (r *resolver) resolveGlobal(n *ast.Node) {
	valueType := r.infer(n.Value, r.table.Root)
	sym := r.symbolFor(n)
	if sym != nil && n.Type == nil {
		sym.Type = valueType
	}
}

func (r *resolver) resolveFn(n *ast.Node) {
	scope := newScope(ScopeFunction, r.table.Root, n.Span)
	for _, p := range n.Params {
		if p.Kind != ast.KindParam || p.Ident() == "" {
			continue
		}
		r.declare(scope, r.newSymbol(SymbolParam, p, typeOf(p.Type)))
	}
	if n.Body != nil && n.Body.Kind == ast.KindBlock {
		r.walkStmts(n.Body.Stmts, scope)
	}
}

func (r *resolver) reportUnused() {
	if !r.opts.ReportUnused {
		return
	}
	for _, sym := range r.table.Symbols {
		if sym.Kind != SymbolLocal || strings.HasPrefix(sym.Name, "_") {
			continue
		}
		if r.reads[sym] == 0 {
			r.rep.Report(diag.NewWarning(diag.ResUnusedVariable, sym.Span,
				fmt.Sprintf("'%s' is declared but never used", sym.Name)))
		}
	}
}
