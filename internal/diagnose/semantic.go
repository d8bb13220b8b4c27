package diagnose

import (
	"context"
	"fmt"
	"strconv"

	"xpl/internal/analysis"
	"xpl/internal/ast"
	"xpl/internal/diag"
	"xpl/internal/source"
	"xpl/internal/symbols"
	"xpl/internal/types"
)

// SemanticPass checks types, call arity and returns.
func SemanticPass(ctx context.Context, snap *analysis.Snapshot, rep diag.Reporter) error {
	if snap.Tree == nil || snap.Symbols == nil {
		return nil
	}
	c := &checker{table: snap.Symbols, rep: rep}
	for _, it := range snap.Tree.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch n := it.Node; n.Kind {
		case ast.KindLet:
			c.checkLet(n)
		case ast.KindFn:
			c.checkFn(n)
		}
	}
	return nil
}

type checker struct {
	table *symbols.Table
	rep   diag.Reporter
	fn    *symbols.Symbol
}

func (c *checker) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	c.rep.Report(diag.NewError(code, sp, fmt.Sprintf(format, args...)))
}

// declaredType checks a type annotation and returns the named type.
func (c *checker) declaredType(ref *ast.Node) types.Type {
	if ref == nil || ref.Kind != ast.KindTypeRef {
		return types.Unknown
	}
	t, ok := types.Lookup(ref.Text)
	if !ok {
		c.errorf(diag.SemUnknownType, ref.Span, "unknown type '%s'", ref.Text)
	}
	return t
}

func (c *checker) symbolAt(n *ast.Node) *symbols.Symbol {
	if n == nil {
		return nil
	}
	ref, ok := c.table.RefAt(n.Span.Start)
	if !ok || ref.Span != n.Span {
		return nil
	}
	return ref.Symbol
}

func (c *checker) checkLet(n *ast.Node) {
	want := c.declaredType(n.Type)
	got := c.value(n.Value)
	if n.Type != nil && !types.Assignable(want, got) {
		c.errorf(diag.SemTypeMismatch, n.Value.Span, "mismatched types: expected %s, found %s", want, got)
	}
}

func (c *checker) checkFn(n *ast.Node) {
	for _, p := range n.Params {
		if p.Kind == ast.KindParam {
			c.declaredType(p.Type)
		}
	}
	c.declaredType(n.Type)
	c.fn = c.symbolAt(n.Name)
	defer func() { c.fn = nil }()
	if n.Body == nil || n.Body.Kind != ast.KindBlock {
		return
	}
	c.stmts(n.Body.Stmts)
	if c.fn != nil && c.fn.Type != types.Void && c.fn.Type != types.Unknown && !returns(n.Body) {
		c.errorf(diag.SemMissingReturn, n.Name.Span, "missing return at end of function '%s'", c.fn.Name)
	}
}

func (c *checker) stmts(list []*ast.Node) {
	for _, st := range list {
		c.stmt(st)
	}
}

func (c *checker) stmt(n *ast.Node) {
	switch n.Kind {
	case ast.KindLet:
		c.checkLet(n)
	case ast.KindAssign:
		got := c.value(n.Value)
		sym := c.symbolAt(n.Name)
		if sym == nil {
			return
		}
		if sym.Kind == symbols.SymbolFunction {
			c.errorf(diag.SemNotAssignable, n.Name.Span, "cannot assign to function '%s'", sym.Name)
			return
		}
		if !types.Assignable(sym.Type, got) {
			c.errorf(diag.SemTypeMismatch, n.Value.Span, "mismatched types: expected %s, found %s", sym.Type, got)
		}
	case ast.KindPrint, ast.KindExprStmt:
		if n.Kind == ast.KindExprStmt && n.Value != nil && n.Value.Kind == ast.KindCall {
			c.expr(n.Value)
			return
		}
		c.value(n.Value)
	case ast.KindReturn:
		c.checkReturn(n)
	case ast.KindIf:
		c.condition(n.Cond, types.Bool, "if condition")
		c.block(n.Body)
		if n.Else != nil {
			if n.Else.Kind == ast.KindIf {
				c.stmt(n.Else)
			} else {
				c.block(n.Else)
			}
		}
	case ast.KindLoop:
		c.condition(n.Cond, types.Int, "loop count")
		c.block(n.Body)
	case ast.KindBlock:
		c.block(n)
	}
}

func (c *checker) block(n *ast.Node) {
	if n != nil && n.Kind == ast.KindBlock {
		c.stmts(n.Stmts)
	}
}

func (c *checker) condition(n *ast.Node, want types.Type, what string) {
	got := c.value(n)
	if !types.Assignable(want, got) {
		c.errorf(diag.SemTypeMismatch, n.Span, "%s must be %s, found %s", what, want, got)
	}
}

func (c *checker) checkReturn(n *ast.Node) {
	if c.fn == nil {
		c.value(n.Value)
		return
	}
	want := c.fn.Type
	if n.Value == nil {
		if want != types.Void && want != types.Unknown {
			c.errorf(diag.SemReturnMismatch, n.Span, "missing return value, expected %s", want)
		}
		return
	}
	got := c.value(n.Value)
	switch {
	case want == types.Void:
		c.errorf(diag.SemReturnMismatch, n.Value.Span, "function '%s' does not return a value", c.fn.Name)
	case !types.Assignable(want, got):
		c.errorf(diag.SemReturnMismatch, n.Value.Span, "mismatched types: expected %s, found %s", want, got)
	}
}

// value checks an expression whose result is used and returns its type.
// A void result is reported and treated as unknown from then on.
func (c *checker) value(n *ast.Node) types.Type {
	if n == nil {
		return types.Unknown
	}
	t := c.expr(n)
	if t == types.Void {
		c.errorf(diag.SemVoidValue, n.Span, "%s does not return a value", describeCall(n))
		return types.Unknown
	}
	return t
}

func describeCall(n *ast.Node) string {
	if n.Kind == ast.KindCall && n.Name != nil {
		return fmt.Sprintf("'%s()'", n.Name.Text)
	}
	return "expression"
}

func (c *checker) expr(n *ast.Node) types.Type {
	if n == nil || n.Kind == ast.KindError {
		return types.Unknown
	}
	switch n.Kind {
	case ast.KindInt:
		if _, err := strconv.ParseInt(n.Text, 10, 64); err != nil {
			c.errorf(diag.SemIntOverflow, n.Span, "integer literal %s overflows int", n.Text)
		}
	case ast.KindIdent:
		if sym := c.symbolAt(n); sym != nil && sym.Kind == symbols.SymbolFunction {
			c.errorf(diag.SemTypeMismatch, n.Span, "function '%s' must be called", sym.Name)
		}
	case ast.KindParen:
		c.expr(n.Value)
	case ast.KindUnary:
		operand := c.value(n.Value)
		if _, ok := types.Unary(n.Op, operand); !ok {
			c.errorf(diag.SemBadOperand, n.Span, "operator %s not defined on %s", n.Op, operand)
		}
	case ast.KindBinary:
		left := c.value(n.Left)
		right := c.value(n.Right)
		if _, ok := types.Binary(n.Op, left, right); !ok {
			c.errorf(diag.SemBadOperand, n.Span, "operator %s not defined on %s and %s", n.Op, left, right)
		}
	case ast.KindCall:
		c.checkCall(n)
	}
	return c.table.TypeOf(n)
}

func (c *checker) checkCall(n *ast.Node) {
	argTypes := make([]types.Type, len(n.Args))
	for i, arg := range n.Args {
		argTypes[i] = c.value(arg)
	}
	sym := c.symbolAt(n.Name)
	if sym == nil {
		return
	}
	if sym.Kind != symbols.SymbolFunction {
		c.errorf(diag.SemNotCallable, n.Name.Span, "'%s' is not a function", sym.Name)
		return
	}
	if len(n.Args) != len(sym.Params) {
		c.errorf(diag.SemArgCount, n.Span, "%s expects %s, got %d", sym.Name, plural(len(sym.Params), "argument"), len(n.Args))
		return
	}
	for i, p := range sym.Params {
		if !types.Assignable(p.Type, argTypes[i]) {
			c.errorf(diag.SemTypeMismatch, n.Args[i].Span, "cannot use %s as %s in argument '%s' of %s",
				argTypes[i], p.Type, p.Name, sym.Name)
		}
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// returns reports whether every path through a block ends in a return.
func returns(block *ast.Node) bool {
	if block == nil || block.Kind != ast.KindBlock || len(block.Stmts) == 0 {
		return false
	}
	last := block.Stmts[len(block.Stmts)-1]
	switch last.Kind {
	case ast.KindReturn:
		return true
	case ast.KindBlock:
		return returns(last)
	case ast.KindIf:
		return ifReturns(last)
	}
	return false
}

func ifReturns(n *ast.Node) bool {
	if n.Else == nil || !returns(n.Body) {
		return false
	}
	if n.Else.Kind == ast.KindIf {
		return ifReturns(n.Else)
	}
	return returns(n.Else)
}
