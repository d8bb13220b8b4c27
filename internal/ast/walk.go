package ast

// Inspect traverses n depth-first in source order. If fn returns false the
// children of the current node are skipped.
func Inspect(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Inspect(c, fn)
	}
}

// InspectFile runs Inspect over every item of f.
func InspectFile(f *File, fn func(*Node) bool) {
	if f == nil {
		return
	}
	for _, it := range f.Items {
		Inspect(it.Node, fn)
	}
}

// Path returns the chain of nodes from the item down to the innermost node
// whose span contains off. The result is empty when off is outside every
// item.
func Path(f *File, off uint32) []*Node {
	if f == nil {
		return nil
	}
	for _, it := range f.Items {
		if !it.Node.Span.Contains(off) {
			continue
		}
		path := []*Node{it.Node}
		for {
			cur := path[len(path)-1]
			var next *Node
			// the later sibling wins when two touch at off
			for _, c := range cur.Children() {
				if c.Span.Contains(off) {
					next = c
				}
			}
			if next == nil {
				return path
			}
			path = append(path, next)
		}
	}
	return nil
}

// Errors returns all error nodes in source order.
func Errors(f *File) []*Node {
	var out []*Node
	InspectFile(f, func(n *Node) bool {
		if n.Kind == KindError {
			out = append(out, n)
		}
		return true
	})
	return out
}
