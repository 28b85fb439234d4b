// Copyright © 2024 The ELPS authors

package lint

import "github.com/luthersystems/kvet/tree"

// WalkCalls calls fn for every call expression in the tree, depth-first.
// Constructor invocations are calls.
func WalkCalls(root tree.Node, fn func(c *tree.Call)) {
	tree.Inspect(root, func(n tree.Node) bool {
		if c, ok := n.(*tree.Call); ok {
			fn(c)
		}
		return true
	})
}

// WalkProperties calls fn for every property declaration, including local
// variables and class parameters declared with val or var.
func WalkProperties(root tree.Node, fn func(p *tree.Property)) {
	tree.Inspect(root, func(n tree.Node) bool {
		if p, ok := n.(*tree.Property); ok {
			fn(p)
		}
		return true
	})
}

// WalkBinary calls fn for every binary expression whose operator is one of
// ops. With no ops every binary expression is visited.
func WalkBinary(root tree.Node, fn func(b *tree.Binary), ops ...string) {
	tree.Inspect(root, func(n tree.Node) bool {
		b, ok := n.(*tree.Binary)
		if !ok {
			return true
		}
		if len(ops) == 0 {
			fn(b)
			return true
		}
		for _, op := range ops {
			if b.Op == op {
				fn(b)
				break
			}
		}
		return true
	})
}

// Arg returns the value of the i-th positional argument of c, or nil.
// Named arguments are skipped.
func Arg(c *tree.Call, i int) tree.Expr {
	if c == nil {
		return nil
	}
	n := 0
	for _, a := range c.Args {
		if a == nil || a.Name != "" {
			continue
		}
		if n == i {
			return a.Value
		}
		n++
	}
	return nil
}

// ArgCount returns the number of value arguments of c, excluding a
// trailing lambda.
func ArgCount(c *tree.Call) int {
	if c == nil {
		return 0
	}
	return len(c.Args)
}

// ReportNode returns the node a finding about c is best reported at: the
// enclosing qualified expression when c is a member call, so that the
// receiver is part of the highlighted range.
func ReportNode(c *tree.Call) tree.Node {
	if q, ok := c.Parent().(*tree.Qualified); ok && q.Sel == c {
		return q
	}
	return c
}
