// Copyright © 2024 The ELPS authors

package symbol

import (
	_ "embed"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/luthersystems/kvet/signature"
	"gopkg.in/yaml.v3"
)

//go:embed library.yaml
var defaultLibrary []byte

// TypeDecl is a stub declaration of a library type.
type TypeDecl struct {
	Name         string
	Interface    bool
	Platform     bool
	Supertypes   []string
	Members      []*Symbol
	Constructors []*Symbol
}

// Library holds stub declarations of types and top-level functions that
// are not declared in the analyzed source.
type Library struct {
	types map[string]*TypeDecl
	funcs map[string][]*Symbol // keyed by package-qualified name
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{
		types: make(map[string]*TypeDecl),
		funcs: make(map[string][]*Symbol),
	}
}

// DefaultLibrary returns a fresh copy of the embedded stub library covering
// the parts of the Kotlin and JVM platform APIs used by the built-in checks.
func DefaultLibrary() *Library {
	lib, err := LoadLibrary(bytes.NewReader(defaultLibrary))
	if err != nil {
		panic(fmt.Sprintf("embedded library: %v", err))
	}
	return lib
}

type libraryFile struct {
	Types []struct {
		Name       string   `yaml:"name"`
		Interface  bool     `yaml:"interface"`
		Platform   bool     `yaml:"platform"`
		Supertypes []string    `yaml:"supertypes"`
		Members    []yaml.Node `yaml:"members"`
	} `yaml:"types"`
	Functions []struct {
		Signature      string `yaml:"signature"`
		Receiver       string `yaml:"receiver"`
		LambdaReceiver bool   `yaml:"lambda_receiver"`
	} `yaml:"functions"`
}

// LoadLibrary reads a YAML stub library.
func LoadLibrary(r io.Reader) (*Library, error) {
	var f libraryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("library: %w", err)
	}
	lib := NewLibrary()
	for _, t := range f.Types {
		if t.Name == "" {
			return nil, fmt.Errorf("library: type without name")
		}
		decl := lib.declareType(t.Name)
		decl.Interface = decl.Interface || t.Interface
		decl.Platform = decl.Platform || t.Platform
		decl.Supertypes = append(decl.Supertypes, t.Supertypes...)
		for i := range t.Members {
			text, err := memberText(&t.Members[i])
			if err != nil {
				return nil, fmt.Errorf("library: type %s: %w", t.Name, err)
			}
			d, err := signature.Parse(text)
			if err != nil {
				return nil, fmt.Errorf("library: type %s: %w", t.Name, err)
			}
			if d.Owner != "" && d.Owner != t.Name {
				return nil, fmt.Errorf("library: type %s: member %q declares owner %s", t.Name, text, d.Owner)
			}
			d.Owner = t.Name
			lib.addMember(decl, FromDecl(d, decl.Platform))
		}
	}
	for _, fn := range f.Functions {
		d, err := signature.Parse(fn.Signature)
		if err != nil {
			return nil, fmt.Errorf("library: %w", err)
		}
		if d.Owner == "" {
			return nil, fmt.Errorf("library: function %q has no package", fn.Signature)
		}
		s := FromDecl(d, false)
		s.Flags |= FlagTopLevel
		if fn.Receiver != "" {
			s.Flags |= FlagExtension
			s.Receiver = fn.Receiver
		}
		s.LambdaReceiver = fn.LambdaReceiver
		lib.AddFunction(s)
	}
	lib.link()
	return lib, nil
}

// memberText returns the signature text of a member entry. An unquoted
// entry containing ": " decodes as a mapping, which is reported with a
// hint instead of a type error.
func memberText(n *yaml.Node) (string, error) {
	if n.Kind == yaml.ScalarNode {
		return n.Value, nil
	}
	return "", fmt.Errorf("line %d: member must be a quoted string, e.g. \"val size: kotlin.Int\"", n.Line)
}

// FromDecl converts a parsed declaration into a symbol. Functions without
// a declared return type return Unit.
func FromDecl(d *signature.Decl, platform bool) *Symbol {
	s := &Symbol{
		Owner: d.Owner,
		Name:  d.Name,
		Kind:  KindFunction,
		Signature: Signature{
			ReturnType:     d.ReturnType,
			ReturnNullable: d.ReturnNullable,
		},
	}
	for _, p := range d.Params {
		param := Param{Type: p.Type, Nullable: p.Nullable, Vararg: p.Vararg}
		if p.Any {
			param.Type = TypeAny
			param.Nullable = true
		}
		if p.Vararg {
			param.ElementType = p.Type
			param.Type = "kotlin.Array"
		}
		s.Params = append(s.Params, param)
	}
	switch {
	case d.IsConstructor():
		s.Kind = KindConstructor
		s.Flags |= FlagConstructor
		s.ReturnType = d.Owner
	case d.IsProperty():
		s.Kind = KindProperty
		s.ReadOnly = d.Has("val")
	case s.ReturnType == "":
		s.ReturnType = TypeUnit
	}
	if d.Has("static") {
		s.Flags |= FlagStatic
	}
	if d.Has("suspend") {
		s.Flags |= FlagSuspend
	}
	if d.Has("operator") {
		s.Flags |= FlagOperator
	}
	if d.Has("extension") {
		s.Flags |= FlagExtension
	}
	if platform {
		s.Flags |= FlagPlatform
	}
	return s
}

func (l *Library) declareType(name string) *TypeDecl {
	decl, ok := l.types[name]
	if !ok {
		decl = &TypeDecl{Name: name}
		l.types[name] = decl
	}
	return decl
}

func (l *Library) addMember(decl *TypeDecl, s *Symbol) {
	if s.Kind == KindConstructor {
		decl.Constructors = append(decl.Constructors, s)
		return
	}
	if decl.Platform && s.Kind == KindProperty {
		s.GetterName = accessorName("get", s.Name)
		if !s.ReadOnly {
			s.SetterName = accessorName("set", s.Name)
		}
	}
	decl.Members = append(decl.Members, s)
}

// AddType declares a type with direct supertypes and members.
func (l *Library) AddType(name string, supertypes []string, members ...*Symbol) *TypeDecl {
	decl := l.declareType(name)
	decl.Supertypes = append(decl.Supertypes, supertypes...)
	for _, m := range members {
		m.Owner = name
		l.addMember(decl, m)
	}
	return decl
}

// AddFunction declares a top-level function.
func (l *Library) AddFunction(s *Symbol) {
	key := s.QualifiedName()
	l.funcs[key] = append(l.funcs[key], s)
}

// Merge adds the declarations of other to l.
func (l *Library) Merge(other *Library) {
	if other == nil {
		return
	}
	for name, t := range other.types {
		decl := l.declareType(name)
		decl.Interface = decl.Interface || t.Interface
		decl.Platform = decl.Platform || t.Platform
		decl.Supertypes = append(decl.Supertypes, t.Supertypes...)
		decl.Members = append(decl.Members, t.Members...)
		decl.Constructors = append(decl.Constructors, t.Constructors...)
	}
	for key, fns := range other.funcs {
		l.funcs[key] = append(l.funcs[key], fns...)
	}
	l.link()
}

// Type returns the declaration of a type.
func (l *Library) Type(name string) (*TypeDecl, bool) {
	if l == nil {
		return nil, false
	}
	t, ok := l.types[name]
	return t, ok
}

// DirectSupertypes returns the declared supertypes of a type.
func (l *Library) DirectSupertypes(name string) []string {
	if t, ok := l.Type(name); ok {
		return t.Supertypes
	}
	return nil
}

// Functions returns the top-level functions with the given
// package-qualified name.
func (l *Library) Functions(qualified string) []*Symbol {
	if l == nil {
		return nil
	}
	return l.funcs[qualified]
}

// Members returns the members named name visible on typeName, searching
// supertypes breadth-first. Members declared closer to typeName come first.
func (l *Library) Members(typeName, name string) []*Symbol {
	var out []*Symbol
	l.eachType(typeName, func(t *TypeDecl) {
		for _, m := range t.Members {
			if m.Name == name || m.PropertyName == name {
				out = append(out, m)
			}
		}
	})
	return out
}

// Constructors returns the constructors of a type.
func (l *Library) Constructors(typeName string) []*Symbol {
	if t, ok := l.Type(typeName); ok {
		return t.Constructors
	}
	return nil
}

func (l *Library) eachType(typeName string, fn func(*TypeDecl)) {
	if l == nil {
		return
	}
	seen := make(map[string]bool)
	queue := []string{typeName}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		t, ok := l.types[name]
		if !ok {
			continue
		}
		fn(t)
		queue = append(queue, t.Supertypes...)
	}
}

// link fills in override sets and platform accessor back references.
func (l *Library) link() {
	for _, t := range l.types {
		for _, m := range t.Members {
			if t.Platform && m.Kind == KindFunction {
				if prop := propertyNameOf(m); prop != "" {
					m.PropertyName = prop
				}
			}
			m.Overridden = nil
			for _, super := range t.Supertypes {
				l.eachType(super, func(st *TypeDecl) {
					for _, sm := range st.Members {
						if sameMember(m, sm) && !containsSymbol(m.Overridden, sm) {
							m.Overridden = append(m.Overridden, sm)
						}
					}
				})
			}
		}
	}
}

func sameMember(a, b *Symbol) bool {
	if a.Name != b.Name || a.Kind != b.Kind || len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		ta, tb := a.Params[i].MatchType(), b.Params[i].MatchType()
		if ta != tb && !isTypeParameter(ta) && !isTypeParameter(tb) {
			return false
		}
	}
	return true
}

func containsSymbol(list []*Symbol, s *Symbol) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// isTypeParameter reports whether a type name looks like a generic
// parameter (T, E, K, V, R).
func isTypeParameter(name string) bool {
	return len(name) == 1 && unicode.IsUpper(rune(name[0]))
}

func accessorName(prefix, property string) string {
	if property == "" {
		return prefix
	}
	if prefix == "get" && strings.HasPrefix(property, "is") && len(property) > 2 && unicode.IsUpper(rune(property[2])) {
		return property
	}
	return prefix + strings.ToUpper(property[:1]) + property[1:]
}

// propertyNameOf returns the property name a platform getter or setter is
// exposed as, or "".
func propertyNameOf(m *Symbol) string {
	name := m.Name
	switch {
	case strings.HasPrefix(name, "get") && len(name) > 3 && len(m.Params) == 0:
		return decapitalize(name[3:])
	case strings.HasPrefix(name, "is") && len(name) > 2 && len(m.Params) == 0 && unicode.IsUpper(rune(name[2])):
		return name
	case strings.HasPrefix(name, "set") && len(name) > 3 && len(m.Params) == 1:
		return decapitalize(name[3:])
	}
	return ""
}

func decapitalize(s string) string {
	if s == "" || !unicode.IsUpper(rune(s[0])) {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}
