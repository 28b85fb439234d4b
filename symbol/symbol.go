// Copyright © 2024 The ELPS authors

// Package symbol defines the resolved-symbol model the engine reasons
// over. A Model is the read-only oracle answering, for a syntax node, which
// declaration it refers to, which call it performs and what static type it
// has. Table is the in-memory Model built by the frontend binder and by
// tests; Library holds stub declarations of platform and stdlib types.
package symbol

import "strings"

// Kind classifies a symbol.
type Kind int

const (
	KindFunction Kind = iota
	KindConstructor
	KindProperty
	KindVariable          // local val/var
	KindParameter         // function or lambda parameter
	KindImplicitParameter // `it` of a single-parameter lambda
	KindImplicitReceiver  // `this` of a lambda with receiver
	KindClass
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindConstructor:
		return "constructor"
	case KindProperty:
		return "property"
	case KindVariable:
		return "variable"
	case KindParameter:
		return "parameter"
	case KindImplicitParameter:
		return "implicit-parameter"
	case KindImplicitReceiver:
		return "implicit-receiver"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

// Flags are boolean properties of a callable.
type Flags uint16

const (
	FlagExtension Flags = 1 << iota
	FlagSuspend
	FlagOperator
	FlagConstructor
	// FlagPlatform marks declarations originating from JVM platform code,
	// whose properties are exposed through getter/setter methods.
	FlagPlatform
	// FlagTopLevel marks package-level functions and properties.
	FlagTopLevel
	// FlagStatic marks Java static members and companion/object members
	// callable through the type name.
	FlagStatic
)

// Param is one formal parameter.
type Param struct {
	Name     string
	Type     string // qualified type name; for varargs the array type
	Nullable bool
	Vararg   bool
	// ElementType is the element type of a vararg parameter. When empty
	// Type is used.
	ElementType string
}

// MatchType returns the type used when matching the parameter: the element
// type for varargs, Type otherwise.
func (p Param) MatchType() string {
	if p.Vararg && p.ElementType != "" {
		return p.ElementType
	}
	return p.Type
}

// Signature is a parameter list and return type.
type Signature struct {
	Params         []Param
	ReturnType     string
	ReturnNullable bool
}

// Symbol is the resolved identity of a declaration.
type Symbol struct {
	// Owner is the qualified name of the declaring type, or the package for
	// top-level declarations. For constructors it is the constructed type.
	Owner string
	Name  string
	Kind  Kind
	Flags Flags
	Signature
	// ReadOnly is set for val properties and variables.
	ReadOnly bool
	// Receiver is the receiver type of an extension function; "*" accepts
	// any receiver.
	Receiver string
	// LambdaReceiver is set when the function's trailing lambda runs with
	// an implicit `this` receiver (run, apply, with).
	LambdaReceiver bool
	// Overridden is the transitive set of members this symbol overrides or
	// implements.
	Overridden []*Symbol
	// GetterName and SetterName are the accessor method names of platform
	// properties (e.g. getName/setName). PropertyName is the inverse link
	// on a platform accessor method.
	GetterName   string
	SetterName   string
	PropertyName string
}

// Has reports whether all of the given flags are set.
func (s *Symbol) Has(f Flags) bool {
	return s != nil && s.Flags&f == f
}

// IsConstructor reports whether s is a constructor.
func (s *Symbol) IsConstructor() bool {
	return s != nil && (s.Kind == KindConstructor || s.Has(FlagConstructor))
}

// QualifiedName returns Owner.Name, or Name when there is no owner.
func (s *Symbol) QualifiedName() string {
	if s == nil {
		return ""
	}
	if s.Owner == "" {
		return s.Name
	}
	return s.Owner + "." + s.Name
}

func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(s.QualifiedName())
	if s.Kind == KindFunction || s.Kind == KindConstructor {
		b.WriteString("(")
		for i, p := range s.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			if p.Vararg {
				b.WriteString("vararg ")
			}
			b.WriteString(p.MatchType())
			if p.Nullable {
				b.WriteString("?")
			}
		}
		b.WriteString(")")
	}
	if s.ReturnType != "" {
		b.WriteString(": ")
		b.WriteString(s.ReturnType)
		if s.ReturnNullable {
			b.WriteString("?")
		}
	}
	return b.String()
}

// SimpleName returns the last segment of a qualified name.
func SimpleName(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// Access is how a resolved call touches its symbol.
type Access int

const (
	AccessCall Access = iota
	AccessRead
	AccessWrite
)

func (a Access) String() string {
	switch a {
	case AccessCall:
		return "call"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ResolvedCall is a call or property access resolved at a use site.
type ResolvedCall struct {
	Symbol *Symbol
	// Signature is the use-site specialization of the symbol's signature
	// (type parameters substituted). A zero Signature means "same as the
	// declaration".
	Signature Signature
	// ReceiverType is the static qualified type of the explicit or implicit
	// receiver, or "" when the call has none.
	ReceiverType string
	Access       Access
}

// UseSiteSignature returns Signature when it is set, or the symbol's own.
func (c *ResolvedCall) UseSiteSignature() Signature {
	if c == nil || c.Symbol == nil {
		return Signature{}
	}
	if c.Signature.ReturnType != "" || len(c.Signature.Params) > 0 {
		return c.Signature
	}
	return c.Symbol.Signature
}

// Type is a static type at a use site.
type Type struct {
	Name     string // qualified name
	Nullable bool
	// Flexible marks platform types whose nullability is unknown.
	Flexible bool
}

func (t Type) String() string {
	switch {
	case t.Flexible:
		return t.Name + "!"
	case t.Nullable:
		return t.Name + "?"
	default:
		return t.Name
	}
}
