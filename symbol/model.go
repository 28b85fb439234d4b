// Copyright © 2024 The ELPS authors

package symbol

import (
	"strings"

	"github.com/luthersystems/kvet/tree"
)

// Model answers semantic questions about the nodes of one file. It is the
// engine's only view of symbol resolution and type checking. All methods
// report false (or return an empty result) when the answer is unknown;
// none of them fail.
type Model interface {
	// Call returns the resolved call or property access performed by n.
	// For a qualified expression the selector is resolved.
	Call(n tree.Node) (*ResolvedCall, bool)
	// Reference returns the symbol a simple name or `this` refers to.
	Reference(n tree.Node) (*Symbol, bool)
	// Declaration returns the source declaration of s when it is declared
	// in the analyzed file. Implicit lambda parameters and receivers map to
	// the lambda literal that binds them.
	Declaration(s *Symbol) (tree.Node, bool)
	// Declared returns the symbol declared by a declaration node.
	Declared(decl tree.Node) (*Symbol, bool)
	// TypeOf returns the static type of an expression.
	TypeOf(e tree.Node) (Type, bool)
	// Supertypes returns the transitive supertypes of a type, excluding the
	// type itself.
	Supertypes(typeName string) []string
	// Constant evaluates a compile-time constant expression. The result is
	// an int64, float64, bool, rune or string.
	Constant(e tree.Node) (any, bool)
}

// Table is an in-memory Model. The zero value is not usable; call
// NewTable.
type Table struct {
	lib       *Library
	calls     map[tree.Node]*ResolvedCall
	refs      map[tree.Node]*Symbol
	decls     map[*Symbol]tree.Node
	declared  map[tree.Node]*Symbol
	types     map[tree.Node]Type
	consts    map[tree.Node]any
	hierarchy map[string][]string
}

var _ Model = (*Table)(nil)

// NewTable returns an empty table backed by lib for type hierarchy
// questions. lib may be nil.
func NewTable(lib *Library) *Table {
	return &Table{
		lib:       lib,
		calls:     make(map[tree.Node]*ResolvedCall),
		refs:      make(map[tree.Node]*Symbol),
		decls:     make(map[*Symbol]tree.Node),
		declared:  make(map[tree.Node]*Symbol),
		types:     make(map[tree.Node]Type),
		consts:    make(map[tree.Node]any),
		hierarchy: make(map[string][]string),
	}
}

// Library returns the stub library backing the table, or nil.
func (t *Table) Library() *Library {
	return t.lib
}

// BindCall records the resolved call performed by n.
func (t *Table) BindCall(n tree.Node, c *ResolvedCall) {
	t.calls[n] = c
}

// BindReference records the symbol a name refers to.
func (t *Table) BindReference(n tree.Node, s *Symbol) {
	t.refs[n] = s
}

// BindDeclaration records that decl declares s.
func (t *Table) BindDeclaration(s *Symbol, decl tree.Node) {
	t.decls[s] = decl
	t.declared[decl] = s
}

// SetType records the static type of e.
func (t *Table) SetType(e tree.Node, typ Type) {
	t.types[e] = typ
}

// SetConstant records the constant value of e.
func (t *Table) SetConstant(e tree.Node, v any) {
	t.consts[e] = v
}

// AddType declares direct supertypes of a type defined in the analyzed
// source.
func (t *Table) AddType(name string, supertypes ...string) {
	t.hierarchy[name] = append(t.hierarchy[name], supertypes...)
}

// Call implements Model.
func (t *Table) Call(n tree.Node) (*ResolvedCall, bool) {
	if tree.IsNil(n) {
		return nil, false
	}
	if q, ok := n.(*tree.Qualified); ok {
		n = q.Sel
	}
	c, ok := t.calls[n]
	return c, ok && c != nil && c.Symbol != nil
}

// Reference implements Model.
func (t *Table) Reference(n tree.Node) (*Symbol, bool) {
	if tree.IsNil(n) {
		return nil, false
	}
	s, ok := t.refs[n]
	return s, ok && s != nil
}

// Declaration implements Model.
func (t *Table) Declaration(s *Symbol) (tree.Node, bool) {
	if s == nil {
		return nil, false
	}
	d, ok := t.decls[s]
	return d, ok
}

// Declared implements Model.
func (t *Table) Declared(decl tree.Node) (*Symbol, bool) {
	if tree.IsNil(decl) {
		return nil, false
	}
	s, ok := t.declared[decl]
	return s, ok
}

// TypeOf implements Model. Types of literals are inferred when they were
// not recorded.
func (t *Table) TypeOf(e tree.Node) (Type, bool) {
	if tree.IsNil(e) {
		return Type{}, false
	}
	if typ, ok := t.types[e]; ok {
		return typ, true
	}
	switch e := e.(type) {
	case *tree.StringTemplate:
		return Type{Name: TypeString}, true
	case *tree.IntLit:
		if e.Long {
			return Type{Name: TypeLong}, true
		}
		return Type{Name: TypeInt}, true
	case *tree.FloatLit:
		if strings.HasSuffix(strings.ToLower(e.Text), "f") {
			return Type{Name: TypeFloat}, true
		}
		return Type{Name: TypeDouble}, true
	case *tree.BoolLit:
		return Type{Name: TypeBoolean}, true
	case *tree.CharLit:
		return Type{Name: TypeChar}, true
	case *tree.NullLit:
		return Type{Name: TypeNothing, Nullable: true}, true
	case *tree.Paren:
		return t.TypeOf(e.X)
	case *tree.Qualified:
		return t.TypeOf(e.Sel)
	case *tree.Cast:
		if e.Type != "" {
			return Type{Name: e.Type, Nullable: e.Safe}, true
		}
	}
	return Type{}, false
}

// Supertypes implements Model.
func (t *Table) Supertypes(typeName string) []string {
	var out []string
	seen := map[string]bool{typeName: true}
	queue := t.direct(typeName)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, t.direct(next)...)
	}
	return out
}

func (t *Table) direct(typeName string) []string {
	out := append([]string(nil), t.hierarchy[typeName]...)
	if t.lib != nil {
		out = append(out, t.lib.DirectSupertypes(typeName)...)
	}
	return out
}

// Constant implements Model. Literals are evaluated when no value was
// recorded.
func (t *Table) Constant(e tree.Node) (any, bool) {
	if tree.IsNil(e) {
		return nil, false
	}
	if v, ok := t.consts[e]; ok {
		return v, true
	}
	switch e := e.(type) {
	case *tree.IntLit:
		return e.Value, true
	case *tree.BoolLit:
		return e.Value, true
	case *tree.CharLit:
		return e.Value, true
	case *tree.Paren:
		return t.Constant(e.X)
	case *tree.StringTemplate:
		var b strings.Builder
		for _, entry := range e.Entries {
			text, ok := entry.(*tree.TemplateText)
			if !ok {
				return nil, false
			}
			b.WriteString(text.Text)
		}
		return b.String(), true
	case *tree.Unary:
		v, ok := t.Constant(e.X)
		if !ok {
			return nil, false
		}
		return EvalUnary(e.Op, v)
	case *tree.Binary:
		x, ok := t.Constant(e.X)
		if !ok {
			return nil, false
		}
		y, ok := t.Constant(e.Y)
		if !ok {
			return nil, false
		}
		return EvalBinary(e.Op, x, y)
	}
	return nil, false
}

// EvalUnary applies a prefix operator to a constant.
func EvalUnary(op string, v any) (any, bool) {
	switch v := v.(type) {
	case int64:
		switch op {
		case "-":
			return -v, true
		case "+":
			return v, true
		}
	case bool:
		if op == "!" {
			return !v, true
		}
	}
	return nil, false
}

// EvalBinary applies a binary operator to two constants of the same kind.
// Integer division and remainder by zero do not fold.
func EvalBinary(op string, x, y any) (any, bool) {
	switch x := x.(type) {
	case int64:
		y, ok := y.(int64)
		if !ok {
			return nil, false
		}
		switch op {
		case "+":
			return x + y, true
		case "-":
			return x - y, true
		case "*":
			return x * y, true
		case "/", "%":
			if y == 0 {
				return nil, false
			}
			if op == "/" {
				return x / y, true
			}
			return x % y, true
		case "==":
			return x == y, true
		case "!=":
			return x != y, true
		case "<":
			return x < y, true
		case "<=":
			return x <= y, true
		case ">":
			return x > y, true
		case ">=":
			return x >= y, true
		}
	case bool:
		y, ok := y.(bool)
		if !ok {
			return nil, false
		}
		switch op {
		case "&&":
			return x && y, true
		case "||":
			return x || y, true
		case "==":
			return x == y, true
		case "!=":
			return x != y, true
		}
	case string:
		y, ok := y.(string)
		if !ok {
			return nil, false
		}
		switch op {
		case "+":
			return x + y, true
		case "==":
			return x == y, true
		case "!=":
			return x != y, true
		}
	}
	return nil, false
}

// Well known type names.
const (
	TypeAny          = "kotlin.Any"
	TypeString       = "kotlin.String"
	TypeCharSequence = "kotlin.CharSequence"
	TypeInt          = "kotlin.Int"
	TypeLong         = "kotlin.Long"
	TypeShort        = "kotlin.Short"
	TypeByte         = "kotlin.Byte"
	TypeFloat        = "kotlin.Float"
	TypeDouble       = "kotlin.Double"
	TypeBoolean      = "kotlin.Boolean"
	TypeChar         = "kotlin.Char"
	TypeUnit         = "kotlin.Unit"
	TypeNothing      = "kotlin.Nothing"
)
