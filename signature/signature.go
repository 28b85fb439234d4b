// Copyright © 2024 The ELPS authors

/*
Package signature parses the compact declaration syntax used by stub
libraries and configured call matchers.

	decl     := modifier* name params? (':' type)?
	modifier := val | var | static | suspend | operator | infix | inline | extension
	name     := qualified name | owner.<init> | '*'
	params   := '(' (param (',' param)*)? ')'
	param    := 'vararg'? type | '*' | '..'
	type     := qualified name '?'?

Examples:

	java.security.MessageDigest.getInstance(kotlin.String): java.security.MessageDigest
	java.util.Random.<init>(kotlin.Long)
	val size: kotlin.Int
	kotlin.String.format(kotlin.String, vararg kotlin.Any?)
	com.example.Api.*(..)

A missing parameter list means "any parameters". A '*' parameter accepts
one argument of any type and a trailing '..' accepts any number of further
parameters. Type arguments (`<K, V>`) are ignored.
*/
package signature

import (
	"errors"
	"fmt"
	"strings"

	parsec "github.com/prataprc/goparsec"
)

// ErrSyntax is returned (wrapped) for malformed declarations.
var ErrSyntax = errors.New("signature syntax error")

// ConstructorName is the name used for constructors.
const ConstructorName = "<init>"

// Param is one parameter of a parsed declaration.
type Param struct {
	Type     string
	Nullable bool
	Vararg   bool
	// Any is set for a '*' parameter.
	Any bool
}

// Decl is a parsed declaration.
type Decl struct {
	Modifiers []string
	Owner     string
	Name      string
	// HasParams is false when no parameter list was written.
	HasParams bool
	Params    []Param
	// OpenTail is set when the parameter list ends with '..'.
	OpenTail       bool
	ReturnType     string
	ReturnNullable bool
}

// Has reports whether the declaration carries the given modifier.
func (d *Decl) Has(modifier string) bool {
	for _, m := range d.Modifiers {
		if m == modifier {
			return true
		}
	}
	return false
}

// IsConstructor reports whether the declaration names a constructor.
func (d *Decl) IsConstructor() bool {
	return d.Name == ConstructorName
}

// IsProperty reports whether the declaration is a val or var.
func (d *Decl) IsProperty() bool {
	return d.Has("val") || d.Has("var")
}

func (d *Decl) String() string {
	var b strings.Builder
	for _, m := range d.Modifiers {
		b.WriteString(m)
		b.WriteString(" ")
	}
	if d.Owner != "" {
		b.WriteString(d.Owner)
		b.WriteString(".")
	}
	b.WriteString(d.Name)
	if d.HasParams {
		b.WriteString("(")
		for i, p := range d.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			switch {
			case p.Any:
				b.WriteString("*")
			case p.Vararg:
				b.WriteString("vararg " + p.Type)
			default:
				b.WriteString(p.Type)
			}
			if p.Nullable {
				b.WriteString("?")
			}
		}
		if d.OpenTail {
			if len(d.Params) > 0 {
				b.WriteString(", ")
			}
			b.WriteString("..")
		}
		b.WriteString(")")
	}
	if d.ReturnType != "" {
		b.WriteString(": " + d.ReturnType)
		if d.ReturnNullable {
			b.WriteString("?")
		}
	}
	return b.String()
}

const (
	termModifier = "MOD"
	termName     = "QNAME"
	termType     = "TYPE"
	termVararg   = "VARARG"
	termStar     = "STAR"
	termDots     = "DOTS"
	termOpen     = "OPENP"
	termClose    = "CLOSEP"
	termComma    = "COMMA"
	termColon    = "COLON"
)

var declParser = newDeclParser()

func newDeclParser() parsec.Parser {
	modifier := parsec.Token(`(?:val|var|static|suspend|operator|infix|inline|extension)\b`, termModifier)
	name := parsec.Token(`(?:[A-Za-z_$][\w$]*|<init>|\*)(?:\.(?:[A-Za-z_$][\w$]*|<init>|\*))*`, termName)
	typ := parsec.Token(`[A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*\??`, termType)
	vararg := parsec.Token(`vararg\b`, termVararg)
	star := parsec.Atom("*", termStar)
	dots := parsec.Atom("..", termDots)
	openP := parsec.Atom("(", termOpen)
	closeP := parsec.Atom(")", termClose)
	comma := parsec.Atom(",", termComma)
	colon := parsec.Atom(":", termColon)

	param := parsec.OrdChoice(nil,
		parsec.And(nil, vararg, typ),
		dots,
		typ,
		star,
	)
	params := parsec.And(nil, openP, parsec.Kleene(nil, param, comma), closeP)
	ret := parsec.And(nil, colon, typ)
	return parsec.And(nil,
		parsec.Kleene(nil, modifier),
		name,
		parsec.Kleene(nil, params),
		parsec.Kleene(nil, ret),
	)
}

// Parse parses a single declaration.
func Parse(text string) (*Decl, error) {
	src := stripTypeArgs(strings.TrimSpace(text))
	if src == "" {
		return nil, fmt.Errorf("%w: empty declaration", ErrSyntax)
	}
	s := parsec.NewScanner([]byte(src))
	root, s := declParser(s)
	if root == nil {
		return nil, fmt.Errorf("%w: %q", ErrSyntax, text)
	}
	_, s = s.SkipWS()
	if !s.Endof() {
		return nil, fmt.Errorf("%w: unexpected text at offset %d in %q", ErrSyntax, s.GetCursor(), text)
	}
	var terms []*parsec.Terminal
	flatten(root, &terms)
	d, err := build(terms)
	if err != nil {
		return nil, fmt.Errorf("%w: %v in %q", ErrSyntax, err, text)
	}
	return d, nil
}

// MustParse is like Parse but panics on error. It is meant for
// declarations written in Go source.
func MustParse(text string) *Decl {
	d, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return d
}

func flatten(n parsec.ParsecNode, out *[]*parsec.Terminal) {
	switch n := n.(type) {
	case *parsec.Terminal:
		*out = append(*out, n)
	case []parsec.ParsecNode:
		for _, c := range n {
			flatten(c, out)
		}
	}
}

func build(terms []*parsec.Terminal) (*Decl, error) {
	d := &Decl{}
	i := 0
	for i < len(terms) && terms[i].Name == termModifier {
		d.Modifiers = append(d.Modifiers, terms[i].Value)
		i++
	}
	if i >= len(terms) || terms[i].Name != termName {
		return nil, errors.New("missing name")
	}
	d.Owner, d.Name = splitName(terms[i].Value)
	i++
	if i < len(terms) && terms[i].Name == termOpen {
		d.HasParams = true
		i++
		for ; i < len(terms) && terms[i].Name != termClose; i++ {
			t := terms[i]
			if d.OpenTail && t.Name != termComma {
				return nil, errors.New("'..' must be the last parameter")
			}
			switch t.Name {
			case termComma:
			case termDots:
				d.OpenTail = true
			case termStar:
				d.Params = append(d.Params, Param{Any: true})
			case termVararg:
				if i+1 >= len(terms) || terms[i+1].Name != termType {
					return nil, errors.New("vararg without type")
				}
				i++
				p := typeParam(terms[i].Value)
				p.Vararg = true
				d.Params = append(d.Params, p)
			case termType:
				d.Params = append(d.Params, typeParam(t.Value))
			default:
				return nil, fmt.Errorf("unexpected %q", t.Value)
			}
		}
		if i >= len(terms) {
			return nil, errors.New("unclosed parameter list")
		}
		i++
	}
	if i < len(terms) && terms[i].Name == termColon {
		if i+1 >= len(terms) || terms[i+1].Name != termType {
			return nil, errors.New("missing return type")
		}
		p := typeParam(terms[i+1].Value)
		d.ReturnType, d.ReturnNullable = p.Type, p.Nullable
		i += 2
	}
	if i != len(terms) {
		return nil, fmt.Errorf("unexpected %q", terms[i].Value)
	}
	return d, nil
}

func typeParam(text string) Param {
	if t, ok := strings.CutSuffix(text, "?"); ok {
		return Param{Type: t, Nullable: true}
	}
	return Param{Type: text}
}

func splitName(qualified string) (owner, name string) {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[:i], qualified[i+1:]
	}
	return "", qualified
}

// stripTypeArgs removes `<...>` type argument lists while keeping the
// constructor marker <init>.
func stripTypeArgs(s string) string {
	var b strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		if depth == 0 && strings.HasPrefix(s[i:], ConstructorName) {
			b.WriteString(ConstructorName)
			i += len(ConstructorName) - 1
			continue
		}
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteByte(s[i])
			}
		}
	}
	return b.String()
}
