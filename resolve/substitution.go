// Copyright © 2024 The ELPS authors

package resolve

import (
	"github.com/luthersystems/kvet/matcher"
	"github.com/luthersystems/kvet/symbol"
)

// Substitution replaces a matched call by one of its arguments. It models
// lookups with a default value, whose result cannot be known statically
// but whose default argument is the best static approximation.
type Substitution struct {
	Matcher *matcher.FunMatcher
	// Arg is the index of the value argument substituted for the call.
	Arg int
}

// DefaultSubstitutions returns the lookup-with-default idioms of the
// platform and collection APIs.
func DefaultSubstitutions() []Substitution {
	str := matcher.Arg(symbol.TypeString)
	return []Substitution{
		{
			Matcher: matcher.MustFun(
				matcher.Qualifier("java.util.Properties"),
				matcher.Name("getProperty"),
				matcher.Arguments(str, str),
			),
			Arg: 1,
		},
		{
			Matcher: matcher.MustFun(
				matcher.Qualifier("java.lang.System"),
				matcher.Name("getProperty"),
				matcher.Arguments(str, str),
			),
			Arg: 1,
		},
		{
			Matcher: matcher.MustFun(
				matcher.DefiningSupertype("kotlin.collections.Map"),
				matcher.Name("getOrDefault"),
				matcher.Arguments(matcher.AnyArgument(), matcher.AnyArgument()),
			),
			Arg: 1,
		},
	}
}
