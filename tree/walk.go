// Copyright © 2024 The ELPS authors

package tree

import "reflect"

// IsNil reports whether n is nil or a typed nil pointer.
func IsNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Link sets the parent of every node below root. Frontends call it once
// after building a tree; tests call it after assembling nodes by hand.
func Link(root Node) {
	if IsNil(root) {
		return
	}
	for _, child := range root.Children() {
		if IsNil(child) {
			continue
		}
		child.node().parent = root
		Link(child)
	}
}

// Walk calls fn for every node below and including root, depth-first.
// parent is nil for root.
func Walk(root Node, fn func(node Node, parent Node, depth int)) {
	walkNode(root, nil, 0, fn)
}

func walkNode(node Node, parent Node, depth int, fn func(Node, Node, int)) {
	if IsNil(node) {
		return
	}
	fn(node, parent, depth)
	for _, child := range node.Children() {
		walkNode(child, node, depth+1, fn)
	}
}

// Inspect traverses the tree depth-first. If fn returns false the children
// of that node are skipped.
func Inspect(root Node, fn func(Node) bool) {
	if IsNil(root) || !fn(root) {
		return
	}
	for _, child := range root.Children() {
		Inspect(child, fn)
	}
}

// Ancestors returns up to max enclosing nodes of n, nearest first. A
// negative max means no limit.
func Ancestors(n Node, max int) []Node {
	var out []Node
	if IsNil(n) {
		return nil
	}
	for p := n.Parent(); !IsNil(p); p = p.Parent() {
		if max >= 0 && len(out) >= max {
			break
		}
		out = append(out, p)
	}
	return out
}

// Unparen strips any number of enclosing parentheses.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*Paren)
		if !ok || IsNil(p.X) {
			return e
		}
		e = p.X
	}
}

// EnclosingFile returns the *File that contains n, or nil.
func EnclosingFile(n Node) *File {
	for cur := n; !IsNil(cur); cur = cur.Parent() {
		if f, ok := cur.(*File); ok {
			return f
		}
	}
	return nil
}

// Selector returns the selector of a qualified expression, or e itself.
// For `a.b.c(x)` it returns the call `c(x)`.
func Selector(e Expr) Expr {
	if q, ok := e.(*Qualified); ok && !IsNil(q.Sel) {
		return q.Sel
	}
	return e
}

// Receiver returns the explicit receiver of e when e is the selector of a
// qualified expression, or nil.
func Receiver(e Expr) Expr {
	if IsNil(e) {
		return nil
	}
	if q, ok := e.Parent().(*Qualified); ok && q.Sel == e {
		return q.X
	}
	return nil
}

// CallName returns the simple name of the called function, or "".
func CallName(c *Call) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Fun.(*Ident); ok {
		return id.Name
	}
	return ""
}

// ArgValues returns the value expressions of the call's value arguments,
// followed by the trailing lambda if present.
func ArgValues(c *Call) []Expr {
	if c == nil {
		return nil
	}
	out := make([]Expr, 0, len(c.Args)+1)
	for _, a := range c.Args {
		if a != nil && !IsNil(a.Value) {
			out = append(out, a.Value)
		}
	}
	if c.Lambda != nil {
		out = append(out, c.Lambda)
	}
	return out
}

// SetSpan records the source range of n.
func SetSpan(n Node, s Span) {
	if !IsNil(n) {
		n.node().Span = s
	}
}
