// Copyright © 2024 The ELPS authors

package resolve

import (
	"fmt"
	"strings"
)

// Source says which expression of a scope-function call the lambda's
// implicit parameter or receiver stands for.
type Source int

const (
	// FromReceiver aliases the explicit receiver of the call:
	// `x.let { it }`, `x.apply { this }`.
	FromReceiver Source = iota
	// FromFirstArgument aliases the first value argument:
	// `with(x) { this }`.
	FromFirstArgument
)

func (s Source) String() string {
	switch s {
	case FromReceiver:
		return "receiver"
	case FromFirstArgument:
		return "argument"
	default:
		return "unknown"
	}
}

// ParseSource parses the names produced by Source.String.
func ParseSource(name string) (Source, error) {
	switch strings.ToLower(name) {
	case "receiver", "":
		return FromReceiver, nil
	case "argument":
		return FromFirstArgument, nil
	default:
		return 0, fmt.Errorf("unknown scope function source %q", name)
	}
}

// ScopeFunction is a function whose lambda argument receives the call's
// receiver (or first argument) as its implicit parameter or receiver.
type ScopeFunction struct {
	Owner  string
	Name   string
	Source Source
}

func (f ScopeFunction) key() string {
	return f.Owner + "." + f.Name
}

// StdlibOwner is the package of the standard scope functions.
const StdlibOwner = "kotlin"

// DefaultScopeFunctions returns the standard library scope functions.
func DefaultScopeFunctions() []ScopeFunction {
	return []ScopeFunction{
		{Owner: StdlibOwner, Name: "let", Source: FromReceiver},
		{Owner: StdlibOwner, Name: "also", Source: FromReceiver},
		{Owner: StdlibOwner, Name: "run", Source: FromReceiver},
		{Owner: StdlibOwner, Name: "apply", Source: FromReceiver},
		{Owner: StdlibOwner, Name: "with", Source: FromFirstArgument},
	}
}
