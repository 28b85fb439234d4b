// Copyright © 2024 The ELPS authors

package matcher

import (
	"strings"

	"github.com/luthersystems/kvet/symbol"
)

// ArgumentMatcher matches one formal parameter. The zero value accepts any
// parameter. ArgumentMatcher values are immutable; the builder methods
// return modified copies.
type ArgumentMatcher struct {
	typeName    string
	unqualified bool
	nullable    *bool
	vararg      bool
	rest        bool // open tail of a signature pattern: any parameters
}

// AnyArgument accepts any parameter.
func AnyArgument() ArgumentMatcher {
	return ArgumentMatcher{}
}

// Arg matches a parameter whose type has the given qualified name.
func Arg(typeName string) ArgumentMatcher {
	return ArgumentMatcher{typeName: typeName}
}

// SimpleArg matches a parameter whose type's simple name is typeName.
func SimpleArg(typeName string) ArgumentMatcher {
	return ArgumentMatcher{typeName: typeName, unqualified: true}
}

// VarargArg matches a vararg parameter whose element type has the given
// qualified name. An empty typeName accepts any element type.
func VarargArg(typeName string) ArgumentMatcher {
	return ArgumentMatcher{typeName: typeName, vararg: true}
}

// restArgs is the open tail `..` of a signature pattern. It accepts any
// number of remaining parameters of any kind.
func restArgs() ArgumentMatcher {
	return ArgumentMatcher{rest: true}
}

// Nullable returns a copy of m that also requires the parameter's
// nullability to equal nullable.
func (m ArgumentMatcher) Nullable(nullable bool) ArgumentMatcher {
	m.nullable = &nullable
	return m
}

// Unqualified returns a copy of m comparing simple type names.
func (m ArgumentMatcher) Unqualified() ArgumentMatcher {
	m.unqualified = true
	return m
}

// Vararg returns a copy of m that only matches vararg parameters.
func (m ArgumentMatcher) Vararg() ArgumentMatcher {
	m.vararg = true
	return m
}

// IsVararg reports whether m requires a vararg parameter.
func (m ArgumentMatcher) IsVararg() bool {
	return m.vararg
}

// Matches reports whether the formal parameter p satisfies m. A vararg
// criterion only matches a vararg parameter and is checked against its
// element type.
func (m ArgumentMatcher) Matches(p symbol.Param) bool {
	if m.vararg && !p.Vararg {
		return false
	}
	typ := p.Type
	if m.vararg {
		typ = p.MatchType()
	}
	return m.matchesType(typ, p.Nullable)
}

// matchesTail checks a parameter covered by a trailing vararg criterion.
// Each covered parameter is compared by its (element) type only; the
// caller requires the last covered parameter to be the vararg formal.
func (m ArgumentMatcher) matchesTail(p symbol.Param) bool {
	return m.matchesType(p.MatchType(), p.Nullable)
}

func (m ArgumentMatcher) matchesType(typ string, nullable bool) bool {
	if m.nullable != nil && *m.nullable != nullable {
		return false
	}
	if m.typeName == "" {
		return true
	}
	if m.unqualified {
		return symbol.SimpleName(typ) == m.typeName
	}
	return typ == m.typeName
}

func (m ArgumentMatcher) String() string {
	if m.rest {
		return ".."
	}
	var b strings.Builder
	if m.vararg {
		b.WriteString("vararg ")
	}
	if m.typeName == "" {
		b.WriteString("*")
	} else {
		b.WriteString(m.typeName)
	}
	if m.nullable != nil && *m.nullable {
		b.WriteString("?")
	}
	return b.String()
}
