// Copyright © 2024 The ELPS authors

package symbol

import (
	"testing"

	"github.com/luthersystems/kvet/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableSupertypes(t *testing.T) {
	table := NewTable(DefaultLibrary())
	table.AddType("com.example.Names", "kotlin.collections.List")
	table.AddType("com.example.Loop", "com.example.Loop2")
	table.AddType("com.example.Loop2", "com.example.Loop")

	supers := table.Supertypes("com.example.Names")
	assert.Contains(t, supers, "kotlin.collections.List")
	assert.Contains(t, supers, "kotlin.collections.Collection")
	assert.Contains(t, supers, "kotlin.Any")
	assert.NotContains(t, supers, "com.example.Names")

	assert.Equal(t, []string{"com.example.Loop2"}, table.Supertypes("com.example.Loop"))
	assert.Empty(t, table.Supertypes("com.example.Unknown"))
}

func TestTableTypeOf(t *testing.T) {
	table := NewTable(nil)
	tests := []struct {
		expr tree.Expr
		want Type
	}{
		{&tree.StringTemplate{}, Type{Name: TypeString}},
		{&tree.IntLit{Value: 1}, Type{Name: TypeInt}},
		{&tree.IntLit{Value: 1, Long: true}, Type{Name: TypeLong}},
		{&tree.FloatLit{Text: "1.5f"}, Type{Name: TypeFloat}},
		{&tree.FloatLit{Text: "1.5"}, Type{Name: TypeDouble}},
		{&tree.BoolLit{}, Type{Name: TypeBoolean}},
		{&tree.Paren{X: &tree.BoolLit{}}, Type{Name: TypeBoolean}},
		{&tree.Cast{X: &tree.Ident{Name: "x"}, Type: "kotlin.String", Safe: true}, Type{Name: TypeString, Nullable: true}},
	}
	for _, test := range tests {
		got, ok := table.TypeOf(test.expr)
		require.True(t, ok, "%T", test.expr)
		assert.Equal(t, test.want, got)
	}

	id := &tree.Ident{Name: "x"}
	_, ok := table.TypeOf(id)
	assert.False(t, ok)
	table.SetType(id, Type{Name: "java.util.Random"})
	typ, ok := table.TypeOf(id)
	assert.True(t, ok)
	assert.Equal(t, "java.util.Random", typ.Name)

	_, ok = table.TypeOf(nil)
	assert.False(t, ok)
	var nilIdent *tree.Ident
	_, ok = table.TypeOf(nilIdent)
	assert.False(t, ok)
}

func TestTableConstant(t *testing.T) {
	table := NewTable(nil)
	tests := []struct {
		expr tree.Expr
		want any
	}{
		{&tree.IntLit{Value: 42}, int64(42)},
		{&tree.Unary{Op: "-", X: &tree.IntLit{Value: 42}}, int64(-42)},
		{&tree.Unary{Op: "!", X: &tree.BoolLit{Value: true}}, false},
		{&tree.CharLit{Value: 'x'}, 'x'},
		{&tree.StringTemplate{Entries: []tree.Node{&tree.TemplateText{Text: "a"}, &tree.TemplateText{Text: "b"}}}, "ab"},
		{&tree.Binary{Op: "*", X: &tree.IntLit{Value: 6, Long: true}, Y: &tree.IntLit{Value: 7, Long: true}}, int64(42)},
		{&tree.Binary{Op: "/", X: &tree.IntLit{Value: -7}, Y: &tree.IntLit{Value: 2}}, int64(-3)},
		{&tree.Binary{Op: "||", X: &tree.BoolLit{}, Y: &tree.Unary{Op: "!", X: &tree.BoolLit{}}}, true},
		{&tree.Binary{Op: ">=", X: &tree.IntLit{Value: 1}, Y: &tree.IntLit{Value: 2}}, false},
	}
	for _, test := range tests {
		got, ok := table.Constant(test.expr)
		require.True(t, ok, "%T", test.expr)
		assert.Equal(t, test.want, got)
	}

	tmpl := &tree.StringTemplate{Entries: []tree.Node{&tree.TemplateExpr{X: &tree.Ident{Name: "x"}}}}
	_, ok := table.Constant(tmpl)
	assert.False(t, ok)
	_, ok = table.Constant(&tree.Unary{Op: "-", X: &tree.BoolLit{}})
	assert.False(t, ok)
	_, ok = table.Constant(&tree.Binary{Op: "%", X: &tree.IntLit{Value: 1}, Y: &tree.IntLit{}})
	assert.False(t, ok)
	_, ok = table.Constant(&tree.Binary{Op: "+", X: &tree.IntLit{Value: 1}, Y: &tree.BoolLit{}})
	assert.False(t, ok)
}

func TestTableCall(t *testing.T) {
	table := NewTable(nil)
	call := &tree.Call{Fun: &tree.Ident{Name: "bar"}}
	q := &tree.Qualified{X: &tree.Ident{Name: "foo"}, Sel: call}
	sym := &Symbol{Owner: "com.example.Foo", Name: "bar", Signature: Signature{ReturnType: TypeUnit}}
	table.BindCall(call, &ResolvedCall{Symbol: sym, ReceiverType: "com.example.Foo"})

	got, ok := table.Call(q)
	require.True(t, ok)
	assert.Same(t, sym, got.Symbol)
	assert.Equal(t, TypeUnit, got.UseSiteSignature().ReturnType)

	_, ok = table.Call(&tree.Call{})
	assert.False(t, ok)
	table.BindCall(q.X, &ResolvedCall{})
	_, ok = table.Call(q.X)
	assert.False(t, ok)
}

func TestSymbolString(t *testing.T) {
	s := &Symbol{
		Owner: "kotlin.String",
		Name:  "format",
		Kind:  KindFunction,
		Signature: Signature{
			Params: []Param{
				{Type: TypeString},
				{Type: "kotlin.Array", ElementType: TypeAny, Nullable: true, Vararg: true},
			},
			ReturnType: TypeString,
		},
	}
	assert.Equal(t, "kotlin.String.format(kotlin.String, vararg kotlin.Any?): kotlin.String", s.String())
	assert.Equal(t, "format", SimpleName(s.QualifiedName()))
	assert.Equal(t, "<nil>", (*Symbol)(nil).String())
}
