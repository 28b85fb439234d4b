// Copyright © 2024 The ELPS authors

package matcher

import (
	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
)

// FieldMatcher matches references to properties by name, declaring type
// and defining type. It works on the symbol a simple name refers to rather
// than on a resolved call, so it also applies to references the model only
// binds by name.
type FieldMatcher struct {
	names         stringSet
	qualifiers    stringSet
	definingTypes stringSet
}

// FieldOption configures a FieldMatcher.
type FieldOption func(*FieldMatcher)

// FieldNames adds accepted property names.
func FieldNames(names ...string) FieldOption {
	return func(m *FieldMatcher) { m.names.add(names...) }
}

// FieldQualifiers adds accepted declaring types.
func FieldQualifiers(names ...string) FieldOption {
	return func(m *FieldMatcher) { m.qualifiers.add(names...) }
}

// DefiningTypes adds types that the declaring type must be, or extend.
func DefiningTypes(names ...string) FieldOption {
	return func(m *FieldMatcher) { m.definingTypes.add(names...) }
}

// NewFieldMatcher builds a field matcher. With no options it matches every
// resolvable reference.
func NewFieldMatcher(opts ...FieldOption) *FieldMatcher {
	m := &FieldMatcher{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Matches reports whether ref, a simple name or a qualified expression
// whose selector is a simple name, refers to a matching property.
func (m *FieldMatcher) Matches(ref tree.Node, model symbol.Model) bool {
	if tree.IsNil(ref) || model == nil {
		return false
	}
	if q, ok := ref.(*tree.Qualified); ok {
		ref = q.Sel
	}
	s, ok := model.Reference(ref)
	if !ok {
		return false
	}
	name := s.Name
	if s.PropertyName != "" {
		name = s.PropertyName
	}
	if !m.names.empty() && !m.names.has(name) && !m.names.has(s.Name) {
		return false
	}
	if !m.qualifiers.empty() && !m.qualifiers.has(s.Owner) {
		return false
	}
	return m.matchDefiningType(s.Owner, model)
}

func (m *FieldMatcher) matchDefiningType(owner string, model symbol.Model) bool {
	if m.definingTypes.empty() {
		return true
	}
	if owner == "" {
		return false
	}
	if m.definingTypes.has(owner) {
		return true
	}
	for _, super := range model.Supertypes(owner) {
		if m.definingTypes.has(super) {
			return true
		}
	}
	return false
}
