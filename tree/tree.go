// Copyright © 2024 The ELPS authors

// Package tree defines the Kotlin syntax tree consumed by the matching and
// value resolution engine.
//
// The node set is closed: every node type lives in this package and
// implements Node through an unexported marker method, so a switch over
// Kind covers every shape the engine can be handed. Frontends (see package
// frontend) build trees; checks and the engine only navigate them.
package tree

import "fmt"

// Kind identifies the concrete type of a Node.
type Kind int

const (
	KindBad Kind = iota
	KindFile
	KindClass
	KindFunction
	KindProperty
	KindParameter
	KindBlock
	KindAssignment
	KindIdent
	KindThis
	KindStringTemplate
	KindTemplateText
	KindTemplateExpr
	KindIntLit
	KindFloatLit
	KindBoolLit
	KindNullLit
	KindCharLit
	KindParen
	KindCast
	KindBinary
	KindUnary
	KindCall
	KindArgument
	KindQualified
	KindLambda
)

var kindStrings = []string{
	KindBad:            "bad",
	KindFile:           "file",
	KindClass:          "class",
	KindFunction:       "function",
	KindProperty:       "property",
	KindParameter:      "parameter",
	KindBlock:          "block",
	KindAssignment:     "assignment",
	KindIdent:          "ident",
	KindThis:           "this",
	KindStringTemplate: "string-template",
	KindTemplateText:   "template-text",
	KindTemplateExpr:   "template-expr",
	KindIntLit:         "int",
	KindFloatLit:       "float",
	KindBoolLit:        "bool",
	KindNullLit:        "null",
	KindCharLit:        "char",
	KindParen:          "paren",
	KindCast:           "cast",
	KindBinary:         "binary",
	KindUnary:          "unary",
	KindCall:           "call",
	KindArgument:       "argument",
	KindQualified:      "qualified",
	KindLambda:         "lambda",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindStrings) {
		return "unknown"
	}
	return kindStrings[k]
}

// Pos is a 1-based source position. The zero Pos is unknown.
type Pos struct {
	Line int
	Col  int
}

// IsValid reports whether the position is known.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	if p.Col > 0 {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%d", p.Line)
}

// Span is the source range covered by a node.
type Span struct {
	Start Pos
	End   Pos
}

// Node is implemented by every syntax tree node.
type Node interface {
	Kind() Kind
	// Pos is the position of the first character of the node.
	Pos() Pos
	// End is the position just after the last character of the node.
	End() Pos
	// Parent returns the enclosing node, or nil for the root. Parents are
	// only available after Link has been called on the root.
	Parent() Node
	// Children returns the direct children in source order.
	Children() []Node

	node() *base
}

// Expr is a Node that can appear in expression position.
type Expr interface {
	Node
	exprNode()
}

// Decl is a Node that declares a named entity.
type Decl interface {
	Node
	DeclName() string
}

type base struct {
	Span   Span
	parent Node
}

func (b *base) Pos() Pos       { return b.Span.Start }
func (b *base) End() Pos       { return b.Span.End }
func (b *base) Parent() Node   { return b.parent }
func (b *base) node() *base    { return b }
func (b *base) SetSpan(s Span) { b.Span = s }
