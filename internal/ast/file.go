package ast

import (
	"xpl/internal/source"
)

// File is the parse tree of one document.
type File struct {
	Items []*Item
}

// Item is a top-level node plus the bookkeeping that decides whether the
// incremental parser may reuse it.
type Item struct {
	Node *Node
	// FullStart is where the item's leading trivia begin.
	FullStart uint32
	// ScanEnd is the end of the furthest token the parser examined while
	// building the item, lookahead included.
	ScanEnd uint32
}

// Span returns the span of the item's node.
func (it *Item) Span() source.Span {
	return it.Node.Span
}

// Shifted returns a deep copy of the item moved by delta bytes.
func (it *Item) Shifted(delta int) *Item {
	return &Item{
		Node:      shiftNode(it.Node, delta),
		FullStart: source.Span{Start: it.FullStart}.Shift(delta).Start,
		ScanEnd:   source.Span{Start: it.ScanEnd}.Shift(delta).Start,
	}
}

func shiftNode(n *Node, delta int) *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Span = n.Span.Shift(delta)
	c.Name = shiftNode(n.Name, delta)
	c.Type = shiftNode(n.Type, delta)
	c.Params = shiftNodes(n.Params, delta)
	c.Cond = shiftNode(n.Cond, delta)
	c.Left = shiftNode(n.Left, delta)
	c.Value = shiftNode(n.Value, delta)
	c.Right = shiftNode(n.Right, delta)
	c.Args = shiftNodes(n.Args, delta)
	c.Stmts = shiftNodes(n.Stmts, delta)
	c.Body = shiftNode(n.Body, delta)
	c.Else = shiftNode(n.Else, delta)
	return &c
}

func shiftNodes(ns []*Node, delta int) []*Node {
	if ns == nil {
		return nil
	}
	out := make([]*Node, len(ns))
	for i, n := range ns {
		out[i] = shiftNode(n, delta)
	}
	return out
}
