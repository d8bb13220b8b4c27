package ast

import (
	"xpl/internal/source"
	"xpl/internal/token"
)

// Node is a syntax tree node. Which fields are set depends on Kind; see the
// comments on the Kind constants. Trees are immutable once a parse finishes
// and may be shared between snapshots.
type Node struct {
	Kind Kind
	Span source.Span
	Text string
	Op   token.Kind
	Doc  string // doc comment of a fn or let

	Name   *Node
	Type   *Node
	Params []*Node
	Cond   *Node
	Left   *Node
	Value  *Node
	Args   []*Node
	Right  *Node
	Stmts  []*Node
	Body   *Node
	Else   *Node
}

// Ident returns the declared or referenced name, or "" if there is none.
func (n *Node) Ident() string {
	if n == nil {
		return ""
	}
	if n.Kind == KindIdent {
		return n.Text
	}
	if n.Name != nil && n.Name.Kind == KindIdent {
		return n.Name.Text
	}
	return ""
}

// Children returns the direct children in source order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	add := func(c *Node) {
		if c != nil {
			out = append(out, c)
		}
	}
	add(n.Name)
	out = append(out, n.Params...)
	add(n.Type)
	add(n.Cond)
	add(n.Left)
	add(n.Value)
	out = append(out, n.Args...)
	add(n.Right)
	out = append(out, n.Stmts...)
	add(n.Body)
	add(n.Else)
	return out
}
