// Copyright © 2024 The ELPS authors

package frontend

import (
	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
)

// ScopeKind classifies the kind of scope.
type ScopeKind int

const (
	ScopeFile     ScopeKind = iota // package level
	ScopeClass                     // class, interface or object body
	ScopeFunction                  // function parameters and body
	ScopeLambda                    // lambda literal
	ScopeBlock                     // nested block
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeFile:
		return "file"
	case ScopeClass:
		return "class"
	case ScopeFunction:
		return "function"
	case ScopeLambda:
		return "lambda"
	case ScopeBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Scope is a lexical scope of a Kotlin file.
type Scope struct {
	Kind      ScopeKind
	Parent    *Scope
	Children  []*Scope
	Symbols   map[string]*symbol.Symbol
	Functions map[string][]*symbol.Symbol
	Node      tree.Node // the node that introduced this scope

	// This is the symbol `this` refers to in the scope, if the scope
	// introduces a receiver. Receiver is its type.
	This     *symbol.Symbol
	Receiver string
}

// NewScope creates a new scope of the given kind with the given parent.
func NewScope(kind ScopeKind, parent *Scope, node tree.Node) *Scope {
	s := &Scope{
		Kind:      kind,
		Parent:    parent,
		Symbols:   make(map[string]*symbol.Symbol),
		Functions: make(map[string][]*symbol.Symbol),
		Node:      node,
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Define adds a value symbol to this scope.
func (s *Scope) Define(sym *symbol.Symbol) {
	s.Symbols[sym.Name] = sym
}

// DefineFunction adds a local function to this scope.
func (s *Scope) DefineFunction(sym *symbol.Symbol) {
	s.Functions[sym.Name] = append(s.Functions[sym.Name], sym)
}

// Lookup resolves a value symbol by walking the parent chain.
// Returns nil if the symbol is not found.
func (s *Scope) Lookup(name string) *symbol.Symbol {
	for scope := s; scope != nil; scope = scope.Parent {
		if sym, ok := scope.Symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// LookupLocal resolves a symbol only in this scope (not parents).
func (s *Scope) LookupLocal(name string) *symbol.Symbol {
	return s.Symbols[name]
}

// LookupFunctions returns the local functions named name in the nearest
// scope declaring any.
func (s *Scope) LookupFunctions(name string) []*symbol.Symbol {
	for scope := s; scope != nil; scope = scope.Parent {
		if fns := scope.Functions[name]; len(fns) > 0 {
			return fns
		}
	}
	return nil
}

// LookupThis returns the innermost scope introducing a receiver.
func (s *Scope) LookupThis() *Scope {
	for scope := s; scope != nil; scope = scope.Parent {
		if scope.This != nil {
			return scope
		}
	}
	return nil
}
