package symbols

import (
	"fmt"

	"xpl/internal/ast"
	"xpl/internal/diag"
	"xpl/internal/types"
)

func (r *resolver) walkStmts(stmts []*ast.Node, scope *Scope) {
	for _, st := range stmts {
		r.walkStmt(st, scope)
	}
}

func (r *resolver) walkStmt(n *ast.Node, scope *Scope) {
	switch n.Kind {
	case ast.KindLet:
		// the initializer sees the outer binding of the same name
		valueType := r.infer(n.Value, scope)
		if n.Ident() == "" {
			return
		}
		sym := r.newSymbol(SymbolLocal, n, valueType)
		if n.Type != nil {
			sym.Type = typeOf(n.Type)
		}
		r.declare(scope, sym)
	case ast.KindAssign:
		r.ref(n.Name, scope, RefWrite)
		r.infer(n.Value, scope)
	case ast.KindPrint, ast.KindReturn, ast.KindExprStmt:
		r.infer(n.Value, scope)
	case ast.KindIf:
		r.infer(n.Cond, scope)
		r.walkBlock(n.Body, scope)
		if n.Else != nil {
			if n.Else.Kind == ast.KindIf {
				r.walkStmt(n.Else, scope)
			} else {
				r.walkBlock(n.Else, scope)
			}
		}
	case ast.KindLoop:
		r.infer(n.Cond, scope)
		r.walkBlock(n.Body, scope)
	case ast.KindBlock:
		r.walkBlock(n, scope)
	}
}

func (r *resolver) walkBlock(n *ast.Node, parent *Scope) {
	if n == nil || n.Kind != ast.KindBlock {
		return
	}
	r.walkStmts(n.Stmts, newScope(ScopeBlock, parent, n.Span))
}

// ref binds an identifier node to the symbol visible from scope.
func (r *resolver) ref(n *ast.Node, scope *Scope, kind RefKind) *Symbol {
	if n == nil || n.Kind != ast.KindIdent {
		return nil
	}
	sym := scope.Resolve(n.Text)
	if sym == nil {
		what := "name"
		if kind == RefCall {
			what = "function"
		}
		r.rep.Report(diag.NewError(diag.ResUndefined, n.Span, fmt.Sprintf("undefined %s '%s'", what, n.Text)))
		return nil
	}
	r.table.Refs = append(r.table.Refs, Ref{Span: n.Span, Symbol: sym, Kind: kind})
	if kind != RefWrite {
		r.reads[sym]++
	}
	return sym
}

// infer resolves names inside an expression and records its type.
func (r *resolver) infer(n *ast.Node, scope *Scope) types.Type {
	if n == nil {
		return types.Unknown
	}
	var t types.Type
	switch n.Kind {
	case ast.KindInt:
		t = types.Int
	case ast.KindString:
		t = types.Str
	case ast.KindBool:
		t = types.Bool
	case ast.KindIdent:
		if sym := r.ref(n, scope, RefRead); sym != nil && sym.Kind != SymbolFunction {
			t = sym.Type
		}
	case ast.KindCall:
		sym := r.ref(n.Name, scope, RefCall)
		for _, arg := range n.Args {
			r.infer(arg, scope)
		}
		if sym != nil && sym.Kind == SymbolFunction {
			t = sym.Type
		}
	case ast.KindParen:
		t = r.infer(n.Value, scope)
	case ast.KindUnary:
		t, _ = types.Unary(n.Op, r.infer(n.Value, scope))
	case ast.KindBinary:
		left := r.infer(n.Left, scope)
		right := r.infer(n.Right, scope)
		t, _ = types.Binary(n.Op, left, right)
	default:
		t = types.Unknown
	}
	r.table.Types[n] = t
	return t
}
