// Copyright © 2024 The ELPS authors

package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample builds:
//
//	fun f(p: String) { val a = p.let { g(it) } }
func sample() (*File, *Ident) {
	it := &Ident{Name: "it"}
	inner := &Call{Fun: &Ident{Name: "g"}, Args: []*Argument{{Value: it}}}
	let := &Call{Fun: &Ident{Name: "let"}, Lambda: &Lambda{Body: &Block{Stmts: []Node{inner}}}}
	prop := &Property{Name: "a", ReadOnly: true, Local: true, Initializer: &Qualified{X: &Ident{Name: "p"}, Sel: let}}
	fn := &Function{
		Name:   "f",
		Params: []*Parameter{{Name: "p", Type: "kotlin.String"}},
		Body:   &Block{Stmts: []Node{prop}},
	}
	file := &File{Name: "sample.kt", Package: "com.example", Decls: []Node{fn}}
	Link(file)
	return file, it
}

func TestLinkAndAncestors(t *testing.T) {
	file, it := sample()

	all := Ancestors(it, -1)
	require.NotEmpty(t, all)
	assert.IsType(t, &Argument{}, all[0])
	assert.IsType(t, &Call{}, all[1])
	assert.Same(t, file, all[len(all)-1])
	assert.Same(t, file, EnclosingFile(it))

	assert.Len(t, Ancestors(it, 3), 3)
	assert.Empty(t, Ancestors(it, 0))
	assert.Empty(t, Ancestors(file, -1))
	assert.Nil(t, Ancestors(nil, 5))
}

func TestWalkAndInspect(t *testing.T) {
	file, _ := sample()

	kinds := map[Kind]int{}
	maxDepth := 0
	Walk(file, func(n, parent Node, depth int) {
		kinds[n.Kind()]++
		if depth > maxDepth {
			maxDepth = depth
		}
		if parent != nil {
			assert.Same(t, parent, n.Parent())
		}
	})
	assert.Equal(t, 1, kinds[KindFile])
	assert.Equal(t, 2, kinds[KindCall])
	assert.Equal(t, 1, kinds[KindLambda])
	assert.Greater(t, maxDepth, 5)

	var calls int
	Inspect(file, func(n Node) bool {
		if _, ok := n.(*Lambda); ok {
			return false
		}
		if _, ok := n.(*Call); ok {
			calls++
		}
		return true
	})
	assert.Equal(t, 1, calls)
}

func TestHelpers(t *testing.T) {
	file, it := sample()
	var let *Call
	Inspect(file, func(n Node) bool {
		if c, ok := n.(*Call); ok && CallName(c) == "let" {
			let = c
		}
		return true
	})
	require.NotNil(t, let)

	recv := Receiver(let)
	require.NotNil(t, recv)
	assert.Equal(t, "p", recv.(*Ident).Name)
	assert.Nil(t, Receiver(recv))
	assert.Same(t, let, Selector(let.Parent().(Expr)))

	vals := ArgValues(let)
	require.Len(t, vals, 1)
	assert.Same(t, let.Lambda, vals[0])
	inner := it.Parent().Parent().(*Call)
	assert.Equal(t, []Expr{it}, ArgValues(inner))

	p := &Paren{X: &Paren{X: it}}
	assert.Same(t, it, Unparen(p))

	var nilCall *Call
	assert.True(t, IsNil(nilCall))
	assert.True(t, IsNil(nil))
	assert.False(t, IsNil(it))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "call", KindCall.String())
	assert.Equal(t, "unknown", Kind(-1).String())
	assert.Equal(t, "3:4", Pos{Line: 3, Col: 4}.String())
	assert.False(t, Pos{}.IsValid())
}
