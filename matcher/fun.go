// Copyright © 2024 The ELPS authors

package matcher

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/luthersystems/kvet/signature"
	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
)

// ErrUnimplemented is returned when a matcher is configured with a
// criterion the engine cannot evaluate.
var ErrUnimplemented = errors.New("matcher criterion not implemented")

// ErrSignatureSyntax is returned (wrapped) by FromSignature for malformed
// signature text.
var ErrSignatureSyntax = signature.ErrSyntax

// FunMatcher matches calls, constructor invocations and property accesses
// against a declarative set of criteria. A FunMatcher is immutable after
// construction and safe to share between goroutines.
type FunMatcher struct {
	qualifiers  stringSet
	supertypes  stringSet
	names       stringSet
	namePattern string
	pattern     *regexp2.Regexp
	shapes      [][]ArgumentMatcher
	returnType  string
	extension   *bool
	suspend     *bool
	operator    *bool
	dynamic     *bool
	constructor bool

	cache *PatternCache
}

// Option configures a FunMatcher.
type Option func(*FunMatcher)

// Qualifier adds an accepted owner: the declaring type or package.
func Qualifier(name string) Option {
	return func(m *FunMatcher) { m.qualifiers.add(name) }
}

// Qualifiers adds several accepted owners.
func Qualifiers(names ...string) Option {
	return func(m *FunMatcher) { m.qualifiers.add(names...) }
}

// DefiningSupertype adds a type whose members, and their overrides, are
// accepted.
func DefiningSupertype(names ...string) Option {
	return func(m *FunMatcher) { m.supertypes.add(names...) }
}

// Name adds an accepted simple name.
func Name(name string) Option {
	return func(m *FunMatcher) { m.names.add(name) }
}

// Names adds several accepted simple names.
func Names(names ...string) Option {
	return func(m *FunMatcher) { m.names.add(names...) }
}

// NamePattern accepts names fully matching a JVM regular expression. When
// names are also configured either criterion suffices.
func NamePattern(pattern string) Option {
	return func(m *FunMatcher) { m.namePattern = pattern }
}

// Arguments adds an argument-shape alternative. Alternatives are ORed.
func Arguments(args ...ArgumentMatcher) Option {
	return func(m *FunMatcher) {
		m.shapes = append(m.shapes, append([]ArgumentMatcher{}, args...))
	}
}

// ArgumentShapes adds several argument-shape alternatives.
func ArgumentShapes(shapes ...[]ArgumentMatcher) Option {
	return func(m *FunMatcher) {
		for _, s := range shapes {
			m.shapes = append(m.shapes, append([]ArgumentMatcher{}, s...))
		}
	}
}

// NoArguments adds the empty argument-shape alternative.
func NoArguments() Option {
	return func(m *FunMatcher) { m.shapes = append(m.shapes, []ArgumentMatcher{}) }
}

// ReturnType requires the use-site return type to equal typeName.
func ReturnType(typeName string) Option {
	return func(m *FunMatcher) { m.returnType = typeName }
}

// Extension requires the extension flag to equal v.
func Extension(v bool) Option {
	return func(m *FunMatcher) { m.extension = &v }
}

// Suspend requires the suspend flag to equal v.
func Suspend(v bool) Option {
	return func(m *FunMatcher) { m.suspend = &v }
}

// Operator requires the operator flag to equal v.
func Operator(v bool) Option {
	return func(m *FunMatcher) { m.operator = &v }
}

// Dynamic is accepted for configuration compatibility but cannot be
// evaluated: NewFunMatcher fails with ErrUnimplemented.
func Dynamic(v bool) Option {
	return func(m *FunMatcher) { m.dynamic = &v }
}

// Constructor restricts the matcher to constructor invocations. Name
// criteria are ignored.
func Constructor() Option {
	return func(m *FunMatcher) { m.constructor = true }
}

// WithPatternCache compiles name patterns through c.
func WithPatternCache(c *PatternCache) Option {
	return func(m *FunMatcher) { m.cache = c }
}

// NewFunMatcher builds a matcher. It fails with ErrUnimplemented when a
// dynamic-call expectation is set and with a compile error when the name
// pattern is invalid.
func NewFunMatcher(opts ...Option) (*FunMatcher, error) {
	m := &FunMatcher{}
	for _, opt := range opts {
		opt(m)
	}
	if m.dynamic != nil {
		return nil, fmt.Errorf("dynamic call expectation: %w", ErrUnimplemented)
	}
	if m.namePattern != "" {
		if m.cache == nil {
			m.cache = NewPatternCache()
		}
		re, err := m.cache.Compile(m.namePattern)
		if err != nil {
			return nil, err
		}
		m.pattern = re
	}
	m.cache = nil
	return m, nil
}

// MustFun is like NewFunMatcher but panics on error. Checks call it when
// they are registered so that configuration mistakes surface immediately.
func MustFun(opts ...Option) *FunMatcher {
	m, err := NewFunMatcher(opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// FromSignature builds a matcher from signature text (see package
// signature). The owner becomes a qualifier, `*` accepts any name,
// `<init>` makes a constructor matcher and a parameter list becomes the
// single argument shape. Extra options are applied afterwards.
func FromSignature(text string, opts ...Option) (*FunMatcher, error) {
	d, err := signature.Parse(text)
	if err != nil {
		return nil, err
	}
	var all []Option
	if d.Owner != "" {
		all = append(all, Qualifier(d.Owner))
	}
	switch {
	case d.IsConstructor():
		all = append(all, Constructor())
	case d.Name != "*":
		all = append(all, Name(d.Name))
	}
	if d.HasParams {
		shape := make([]ArgumentMatcher, 0, len(d.Params)+1)
		for _, p := range d.Params {
			shape = append(shape, paramCriterion(p))
		}
		if d.OpenTail {
			shape = append(shape, restArgs())
		}
		all = append(all, Arguments(shape...))
	}
	if d.ReturnType != "" {
		all = append(all, ReturnType(d.ReturnType))
	}
	if d.Has("suspend") {
		all = append(all, Suspend(true))
	}
	if d.Has("operator") {
		all = append(all, Operator(true))
	}
	if d.Has("extension") {
		all = append(all, Extension(true))
	}
	return NewFunMatcher(append(all, opts...)...)
}

// paramCriterion converts one signature parameter. Simple type names are
// compared unqualified and a `?` suffix requires a nullable parameter.
func paramCriterion(p signature.Param) ArgumentMatcher {
	if p.Any {
		return AnyArgument()
	}
	m := Arg(p.Type)
	if !strings.Contains(p.Type, ".") {
		m = m.Unqualified()
	}
	if p.Nullable {
		m = m.Nullable(true)
	}
	if p.Vararg {
		m = m.Vararg()
	}
	return m
}

// Matches reports whether node matches. Declarations are matched against
// their own symbol; any other node is resolved through model.
func (m *FunMatcher) Matches(node tree.Node, model symbol.Model) bool {
	if tree.IsNil(node) || model == nil {
		return false
	}
	if _, ok := node.(tree.Decl); ok {
		return m.MatchesDeclaration(node, model)
	}
	c, ok := model.Call(node)
	if !ok {
		return false
	}
	return m.MatchesCall(c)
}

// MatchesDeclaration matches a function, constructor or property
// declaration node.
func (m *FunMatcher) MatchesDeclaration(decl tree.Node, model symbol.Model) bool {
	s, ok := model.Declared(decl)
	if !ok {
		return false
	}
	access := symbol.AccessCall
	if s.Kind == symbol.KindProperty {
		access = symbol.AccessRead
	}
	return m.MatchesCall(&symbol.ResolvedCall{Symbol: s, Access: access})
}

// MatchesCall matches an already resolved call or property access.
func (m *FunMatcher) MatchesCall(c *symbol.ResolvedCall) bool {
	if c == nil || c.Symbol == nil {
		return false
	}
	s := c.Symbol
	sig := c.UseSiteSignature()
	names := []string{s.Name}
	if s.Kind == symbol.KindProperty || s.Kind == symbol.KindVariable {
		switch c.Access {
		case symbol.AccessWrite:
			sig = setterSignature(sig)
			if s.SetterName != "" {
				names = append(names, s.SetterName)
			}
		default:
			sig = getterSignature(sig)
			if s.GetterName != "" {
				names = append(names, s.GetterName)
			}
		}
	}
	if s.PropertyName != "" {
		names = append(names, s.PropertyName)
	}
	return m.matchFlags(s) &&
		m.matchReturnType(sig) &&
		m.matchName(s, names) &&
		m.matchOwner(s, c.ReceiverType) &&
		m.matchArguments(sig.Params)
}

// getterSignature is the synthesized accessor of a property read: no
// parameters, returning the property type.
func getterSignature(prop symbol.Signature) symbol.Signature {
	return symbol.Signature{ReturnType: prop.ReturnType, ReturnNullable: prop.ReturnNullable}
}

// setterSignature is the synthesized accessor of a property write: one
// parameter of the property type, returning Unit.
func setterSignature(prop symbol.Signature) symbol.Signature {
	if len(prop.Params) == 1 && prop.ReturnType == symbol.TypeUnit {
		return prop
	}
	return symbol.Signature{
		Params:     []symbol.Param{{Name: "value", Type: prop.ReturnType, Nullable: prop.ReturnNullable}},
		ReturnType: symbol.TypeUnit,
	}
}

func (m *FunMatcher) matchFlags(s *symbol.Symbol) bool {
	return matchFlag(m.extension, s.Has(symbol.FlagExtension)) &&
		matchFlag(m.suspend, s.Has(symbol.FlagSuspend)) &&
		matchFlag(m.operator, s.Has(symbol.FlagOperator))
}

func matchFlag(want *bool, got bool) bool {
	return want == nil || *want == got
}

func (m *FunMatcher) matchReturnType(sig symbol.Signature) bool {
	return m.returnType == "" || sig.ReturnType == m.returnType
}

func (m *FunMatcher) matchName(s *symbol.Symbol, candidates []string) bool {
	if m.constructor {
		return s.IsConstructor()
	}
	if m.names.empty() && m.pattern == nil {
		return true
	}
	for _, name := range candidates {
		if m.names.has(name) {
			return true
		}
	}
	if m.pattern != nil {
		for _, name := range candidates {
			if matchPattern(m.pattern, name) {
				return true
			}
		}
	}
	return false
}

func (m *FunMatcher) matchOwner(s *symbol.Symbol, receiverType string) bool {
	if m.qualifiers.empty() && m.supertypes.empty() {
		return true
	}
	if receiverType != "" && (m.qualifiers.has(receiverType) || m.supertypes.has(receiverType)) {
		return true
	}
	if m.qualifiers.has(s.Owner) || m.supertypes.has(s.Owner) {
		return true
	}
	if m.supertypes.empty() || s.IsConstructor() {
		return false
	}
	for _, o := range s.Overridden {
		if o != nil && m.supertypes.has(o.Owner) {
			return true
		}
	}
	return false
}

func (m *FunMatcher) matchArguments(params []symbol.Param) bool {
	if len(m.shapes) == 0 {
		return true
	}
	for _, shape := range m.shapes {
		if matchShape(shape, params) {
			return true
		}
	}
	return false
}

// matchShape matches criteria positionally. A trailing vararg criterion
// accepts any number of remaining parameters, including none. When it
// covers any parameter the last one must be a vararg formal. A trailing
// open tail accepts any remaining parameters.
func matchShape(shape []ArgumentMatcher, params []symbol.Param) bool {
	n := len(shape)
	if n > 0 && (shape[n-1].vararg || shape[n-1].rest) {
		prefix := n - 1
		if len(params) < prefix {
			return false
		}
		if shape[prefix].vararg && len(params) > prefix && !params[len(params)-1].Vararg {
			return false
		}
		for i := 0; i < prefix; i++ {
			if !shape[i].Matches(params[i]) {
				return false
			}
		}
		for _, p := range params[prefix:] {
			if !shape[prefix].matchesTail(p) {
				return false
			}
		}
		return true
	}
	if len(params) != n {
		return false
	}
	for i := range shape {
		if !shape[i].Matches(params[i]) {
			return false
		}
	}
	return true
}

func (m *FunMatcher) String() string {
	var parts []string
	if m.constructor {
		parts = append(parts, "constructor")
	}
	if !m.qualifiers.empty() {
		parts = append(parts, "qualifiers="+m.qualifiers.String())
	}
	if !m.supertypes.empty() {
		parts = append(parts, "supertypes="+m.supertypes.String())
	}
	if !m.names.empty() {
		parts = append(parts, "names="+m.names.String())
	}
	if m.namePattern != "" {
		parts = append(parts, "pattern="+m.namePattern)
	}
	for _, shape := range m.shapes {
		args := make([]string, len(shape))
		for i, a := range shape {
			args[i] = a.String()
		}
		parts = append(parts, "("+strings.Join(args, ", ")+")")
	}
	if m.returnType != "" {
		parts = append(parts, "returns="+m.returnType)
	}
	return "FunMatcher{" + strings.Join(parts, " ") + "}"
}

// FunMatchers matches when any of its matchers does.
type FunMatchers []*FunMatcher

// Matches reports whether any matcher matches node.
func (ms FunMatchers) Matches(node tree.Node, model symbol.Model) bool {
	if tree.IsNil(node) || model == nil {
		return false
	}
	if _, ok := node.(tree.Decl); ok {
		for _, m := range ms {
			if m.MatchesDeclaration(node, model) {
				return true
			}
		}
		return false
	}
	c, ok := model.Call(node)
	if !ok {
		return false
	}
	return ms.MatchesCall(c)
}

// MatchesCall reports whether any matcher matches c.
func (ms FunMatchers) MatchesCall(c *symbol.ResolvedCall) bool {
	for _, m := range ms {
		if m.MatchesCall(c) {
			return true
		}
	}
	return false
}

type stringSet map[string]struct{}

func (s *stringSet) add(names ...string) {
	if *s == nil {
		*s = make(stringSet, len(names))
	}
	for _, n := range names {
		(*s)[n] = struct{}{}
	}
}

func (s stringSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s stringSet) empty() bool {
	return len(s) == 0
}

func (s stringSet) String() string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
