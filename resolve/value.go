// Copyright © 2024 The ELPS authors

package resolve

import (
	"strconv"
	"strings"

	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
)

// String folds e to a string constant. String templates fold when every
// interpolated expression folds, and `+` folds when both operands do.
func (r *Resolver) String(e tree.Expr) (string, bool) {
	return r.fold(e, make(map[tree.Node]bool))
}

func (r *Resolver) fold(e tree.Expr, active map[tree.Node]bool) (string, bool) {
	v := r.Resolve(e).Expr
	if tree.IsNil(v) || active[v] {
		return "", false
	}
	active[v] = true
	defer delete(active, v)

	switch v := v.(type) {
	case *tree.StringTemplate:
		var b strings.Builder
		for _, entry := range v.Entries {
			switch entry := entry.(type) {
			case *tree.TemplateText:
				b.WriteString(entry.Text)
			case *tree.TemplateExpr:
				s, ok := r.fold(entry.X, active)
				if !ok {
					return "", false
				}
				b.WriteString(s)
			default:
				return "", false
			}
		}
		return b.String(), true
	case *tree.Binary:
		if v.Op != "+" {
			return "", false
		}
		x, ok := r.fold(v.X, active)
		if !ok {
			return "", false
		}
		y, ok := r.fold(v.Y, active)
		if !ok {
			return "", false
		}
		return x + y, true
	}
	return "", false
}

// Int returns the value of e when it resolves to a constant of type Int.
func (r *Resolver) Int(e tree.Expr) (int64, bool) {
	v, ok := r.constant(e, symbol.TypeInt)
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

// Long returns the value of e when it resolves to a constant of type Long.
func (r *Resolver) Long(e tree.Expr) (int64, bool) {
	v, ok := r.constant(e, symbol.TypeLong)
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}

// Bool returns the value of e when it resolves to a Boolean constant.
func (r *Resolver) Bool(e tree.Expr) (bool, bool) {
	v, ok := r.constant(e, symbol.TypeBoolean)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Format renders the constant e resolves to as a Kotlin literal: strings
// quoted, Longs with an L suffix.
func (r *Resolver) Format(e tree.Expr) (string, bool) {
	if s, ok := r.String(e); ok {
		return strconv.Quote(s), true
	}
	if n, ok := r.Long(e); ok {
		return strconv.FormatInt(n, 10) + "L", true
	}
	if n, ok := r.Int(e); ok {
		return strconv.FormatInt(n, 10), true
	}
	if b, ok := r.Bool(e); ok {
		return strconv.FormatBool(b), true
	}
	return "", false
}

func (r *Resolver) constant(e tree.Expr, typeName string) (any, bool) {
	if r.model == nil {
		return nil, false
	}
	v := r.Resolve(e).Expr
	if tree.IsNil(v) {
		return nil, false
	}
	typ, ok := r.model.TypeOf(v)
	if !ok || typ.Name != typeName {
		return nil, false
	}
	c, ok := r.eval(v, make(map[tree.Node]bool))
	if !ok {
		return nil, false
	}
	if i, isInt := c.(int64); isInt && typeName == symbol.TypeInt {
		c = int64(int32(i))
	}
	return c, true
}

// eval computes the constant value of a resolved expression, resolving
// the operands of unary and binary operators through their declarations.
func (r *Resolver) eval(v tree.Expr, active map[tree.Node]bool) (any, bool) {
	if tree.IsNil(v) || active[v] {
		return nil, false
	}
	active[v] = true
	defer delete(active, v)

	operand := func(e tree.Expr) (any, bool) {
		return r.eval(r.Resolve(e).Expr, active)
	}
	switch v := v.(type) {
	case *tree.Unary:
		x, ok := operand(v.X)
		if !ok {
			return nil, false
		}
		return symbol.EvalUnary(v.Op, x)
	case *tree.Binary:
		x, ok := operand(v.X)
		if !ok {
			return nil, false
		}
		y, ok := operand(v.Y)
		if !ok {
			return nil, false
		}
		return symbol.EvalBinary(v.Op, x, y)
	}
	return r.model.Constant(v)
}
