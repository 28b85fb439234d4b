// Copyright © 2024 The ELPS authors

/*
Package resolve computes the most specific expression an expression
statically reduces to.

Resolution follows read-only variables to their initializers, implicit
lambda parameters and receivers of scope functions (let, also, run, apply,
with) to the expression they alias, and lookups with a default value to the
default. Parentheses and casts are stripped and qualified expressions reduce
to their selector. Anything else is a fixed point.

Resolution never fails. An expression that cannot be reduced is returned
unchanged, and String, Int, Long and Bool report false when the reduced
expression is not a constant of the requested type.
*/
package resolve

import (
	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
)

// DefaultMaxHops bounds the upward search from an implicit lambda
// parameter or receiver to the lambda that binds it.
const DefaultMaxHops = 25

// Value is the result of resolving an expression.
type Value struct {
	// Expr is the resolved expression; it is the input when no reduction
	// applied.
	Expr tree.Expr
	// Declarations are the declarations whose initializers were followed,
	// in the order they were visited.
	Declarations []tree.Node
}

// Resolver resolves expressions against a symbol model. A Resolver holds
// no mutable state and may be shared by concurrent goroutines as long as
// the model is.
type Resolver struct {
	model         symbol.Model
	scopeFuncs    map[string]ScopeFunction
	substitutions []Substitution
	maxHops       int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithScopeFunctions replaces the table of scope functions.
func WithScopeFunctions(fns []ScopeFunction) Option {
	return func(r *Resolver) {
		r.scopeFuncs = make(map[string]ScopeFunction, len(fns))
		for _, f := range fns {
			r.scopeFuncs[f.key()] = f
		}
	}
}

// WithSubstitutions replaces the table of call substitutions.
func WithSubstitutions(subs []Substitution) Option {
	return func(r *Resolver) { r.substitutions = subs }
}

// WithMaxHops sets the bound of the upward scope-function search. Values
// below 1 disable scope-function aliasing.
func WithMaxHops(n int) Option {
	return func(r *Resolver) { r.maxHops = n }
}

// New returns a resolver using model.
func New(model symbol.Model, opts ...Option) *Resolver {
	r := &Resolver{model: model, maxHops: DefaultMaxHops}
	WithScopeFunctions(DefaultScopeFunctions())(r)
	r.substitutions = DefaultSubstitutions()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Model returns the model the resolver queries.
func (r *Resolver) Model() symbol.Model {
	return r.model
}

type resolution struct {
	visited map[tree.Node]bool
	decls   []tree.Node
}

// Resolve reduces e as far as possible. When reduction revisits an
// expression the repeated expression is returned, so Resolve applied to
// its own result returns that result again.
func (r *Resolver) Resolve(e tree.Expr) Value {
	res := &resolution{visited: make(map[tree.Node]bool)}
	for !tree.IsNil(e) && !res.visited[e] {
		res.visited[e] = true
		next, ok := r.step(e, res)
		if !ok || tree.IsNil(next) {
			break
		}
		e = next
	}
	return Value{Expr: e, Declarations: res.decls}
}

// step performs one reduction.
func (r *Resolver) step(e tree.Expr, res *resolution) (tree.Expr, bool) {
	switch e := e.(type) {
	case *tree.Paren:
		return e.X, true
	case *tree.Cast:
		return e.X, true
	case *tree.Qualified:
		return e.Sel, true
	case *tree.Ident:
		return r.reference(e, res)
	case *tree.This:
		return r.reference(e, res)
	case *tree.Call:
		return r.substitute(e)
	case *tree.StringTemplate, *tree.IntLit, *tree.FloatLit,
		*tree.BoolLit, *tree.NullLit, *tree.CharLit, *tree.Binary, *tree.Unary,
		*tree.Lambda, *tree.Bad:
		return nil, false
	}
	return nil, false
}

func (r *Resolver) reference(e tree.Expr, res *resolution) (tree.Expr, bool) {
	if r.model == nil {
		return nil, false
	}
	sym, ok := r.model.Reference(e)
	if !ok {
		return nil, false
	}
	switch sym.Kind {
	case symbol.KindVariable, symbol.KindProperty:
		if !sym.ReadOnly {
			return nil, false
		}
		decl, ok := r.model.Declaration(sym)
		if !ok {
			return nil, false
		}
		prop, ok := decl.(*tree.Property)
		if !ok || tree.IsNil(prop.Initializer) {
			return nil, false
		}
		res.decls = append(res.decls, prop)
		return prop.Initializer, true
	case symbol.KindImplicitParameter, symbol.KindImplicitReceiver:
		decl, ok := r.model.Declaration(sym)
		if !ok {
			return nil, false
		}
		lambda, ok := decl.(*tree.Lambda)
		if !ok {
			return nil, false
		}
		return r.scopeTarget(e, lambda)
	case symbol.KindParameter:
		// A lambda's only explicit parameter aliases like `it` does.
		decl, ok := r.model.Declaration(sym)
		if !ok {
			return nil, false
		}
		param, ok := decl.(*tree.Parameter)
		if !ok {
			return nil, false
		}
		lambda, ok := param.Parent().(*tree.Lambda)
		if !ok || len(lambda.Params) != 1 {
			return nil, false
		}
		return r.scopeTarget(e, lambda)
	}
	return nil, false
}

// scopeTarget finds lambda among the first maxHops ancestors of ref and,
// when it is the lambda argument of a scope function call, returns the
// expression the call passes into it.
func (r *Resolver) scopeTarget(ref tree.Node, lambda *tree.Lambda) (tree.Expr, bool) {
	if r.maxHops < 1 {
		return nil, false
	}
	found := false
	for _, n := range tree.Ancestors(ref, r.maxHops) {
		if n == tree.Node(lambda) {
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}
	call := lambdaCall(lambda)
	if call == nil {
		return nil, false
	}
	c, ok := r.model.Call(call)
	if !ok {
		return nil, false
	}
	fn, ok := r.scopeFuncs[c.Symbol.QualifiedName()]
	if !ok {
		return nil, false
	}
	switch fn.Source {
	case FromReceiver:
		recv := tree.Receiver(call)
		return recv, !tree.IsNil(recv)
	case FromFirstArgument:
		if len(call.Args) == 0 || call.Args[0] == nil || call.Args[0].Value == tree.Expr(lambda) {
			return nil, false
		}
		arg := call.Args[0].Value
		return arg, !tree.IsNil(arg)
	}
	return nil, false
}

// lambdaCall returns the call lambda is the trailing lambda or last
// argument of.
func lambdaCall(lambda *tree.Lambda) *tree.Call {
	switch p := lambda.Parent().(type) {
	case *tree.Call:
		if p.Lambda == lambda {
			return p
		}
	case *tree.Argument:
		call, ok := p.Parent().(*tree.Call)
		if ok && call.Lambda == nil && len(call.Args) > 0 && call.Args[len(call.Args)-1] == p {
			return call
		}
	}
	return nil
}

func (r *Resolver) substitute(call *tree.Call) (tree.Expr, bool) {
	if r.model == nil || len(r.substitutions) == 0 {
		return nil, false
	}
	c, ok := r.model.Call(call)
	if !ok {
		return nil, false
	}
	for _, sub := range r.substitutions {
		if sub.Matcher == nil || !sub.Matcher.MatchesCall(c) {
			continue
		}
		if sub.Arg < 0 || sub.Arg >= len(call.Args) || call.Args[sub.Arg] == nil {
			continue
		}
		if arg := call.Args[sub.Arg].Value; !tree.IsNil(arg) {
			return arg, true
		}
	}
	return nil, false
}
