// Copyright © 2024 The ELPS authors

package frontend

import (
	"strings"
	"unicode"

	"github.com/luthersystems/kvet/signature"
	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
)

// defaultImports are the packages every Kotlin file imports implicitly.
var defaultImports = []string{
	"kotlin",
	"kotlin.collections",
	"kotlin.io",
	"kotlin.text",
	"kotlin.ranges",
	"java.lang",
}

type classInfo struct {
	name       string
	decl       *tree.Class
	symbol     *symbol.Symbol
	supertypes []string
	members    map[string][]*symbol.Symbol
	ctors      []*symbol.Symbol
	overrides  []*symbol.Symbol
}

type binder struct {
	table    *symbol.Table
	lib      *symbol.Library
	file     *tree.File
	imports  map[string]string // simple or alias name to qualified name
	packages []string          // wildcard, own and default packages
	classes  map[string]*classInfo
	byDecl   map[*tree.Class]*classInfo
	order    []*classInfo
	funcs    map[string][]*symbol.Symbol
	props    []*symbol.Symbol
	required map[*symbol.Symbol]int
	labels   map[*Scope]string
}

// candidate is an overload considered for a call together with the
// receiver it would be called on.
type candidate struct {
	sym  *symbol.Symbol
	recv symbol.Type
}

// receiverInfo is the explicit receiver of a member call.
type receiverInfo struct {
	typ    symbol.Type
	static bool // the receiver names a type, not a value
}

// lambdaBinding describes what a lambda literal receives from its call.
type lambdaBinding struct {
	receiver bool // the lambda runs with an implicit `this`
	typ      symbol.Type
	label    string
}

// Bind resolves the names, calls and static types of file against its own
// declarations and lib. file must have been linked. lib may be nil.
func Bind(file *tree.File, lib *symbol.Library) *symbol.Table {
	if lib == nil {
		lib = symbol.NewLibrary()
	}
	b := &binder{
		table:    symbol.NewTable(lib),
		lib:      lib,
		file:     file,
		imports:  make(map[string]string),
		classes:  make(map[string]*classInfo),
		byDecl:   make(map[*tree.Class]*classInfo),
		funcs:    make(map[string][]*symbol.Symbol),
		required: make(map[*symbol.Symbol]int),
		labels:   make(map[*Scope]string),
	}
	b.prescan()
	root := NewScope(ScopeFile, nil, file)
	for _, p := range b.props {
		root.Define(p)
	}
	for _, d := range file.Decls {
		b.stmt(d, root)
	}
	return b.table
}

// prescan declares the classes, functions and properties of the file so
// that uses may precede declarations.
func (b *binder) prescan() {
	for _, imp := range b.file.Imports {
		if imp.Wildcard {
			b.packages = append(b.packages, imp.Path)
			continue
		}
		name := imp.Alias
		if name == "" {
			name = symbol.SimpleName(imp.Path)
		}
		b.imports[name] = imp.Path
	}
	if b.file.Package != "" {
		b.packages = append(b.packages, b.file.Package)
	}
	b.packages = append(b.packages, defaultImports...)

	b.declareClasses(b.file.Decls, b.file.Package)
	for _, ci := range b.order {
		b.declareMembers(ci)
	}
	for _, d := range b.file.Decls {
		switch d := d.(type) {
		case *tree.Function:
			s := b.functionSymbol(d, b.file.Package, symbol.FlagTopLevel)
			b.funcs[s.Name] = append(b.funcs[s.Name], s)
		case *tree.Property:
			b.props = append(b.props, b.propertySymbol(d, b.file.Package, symbol.FlagTopLevel))
		}
	}
	for _, ci := range b.order {
		b.linkOverrides(ci)
	}
}

func (b *binder) declareClasses(decls []tree.Node, prefix string) {
	for _, d := range decls {
		cl, ok := d.(*tree.Class)
		if !ok || cl.Name == "" {
			continue
		}
		qname := cl.Name
		if prefix != "" {
			qname = prefix + "." + cl.Name
		}
		ci := &classInfo{
			name:    qname,
			decl:    cl,
			members: make(map[string][]*symbol.Symbol),
			symbol: &symbol.Symbol{
				Owner:     prefix,
				Name:      cl.Name,
				Kind:      symbol.KindClass,
				Signature: symbol.Signature{ReturnType: qname},
			},
		}
		b.table.BindDeclaration(ci.symbol, cl)
		b.classes[qname] = ci
		b.byDecl[cl] = ci
		b.order = append(b.order, ci)
		b.declareClasses(cl.Members, qname)
	}
}

func (b *binder) declareMembers(ci *classInfo) {
	for _, st := range ci.decl.Supertypes {
		name, _ := b.declType(st)
		ci.supertypes = append(ci.supertypes, name)
	}
	if len(ci.supertypes) == 0 && ci.name != symbol.TypeAny {
		ci.supertypes = []string{symbol.TypeAny}
	}
	b.table.AddType(ci.name, ci.supertypes...)

	var flags symbol.Flags
	if ci.decl.Object {
		flags |= symbol.FlagStatic
	}
	add := func(s *symbol.Symbol) {
		ci.members[s.Name] = append(ci.members[s.Name], s)
	}
	for _, p := range ci.decl.Params {
		s := &symbol.Symbol{Owner: ci.name, Name: p.Name, Kind: symbol.KindProperty}
		s.ReturnType, s.ReturnNullable = b.declType(p.Type)
		b.table.BindDeclaration(s, p)
		add(s)
	}
	for _, m := range ci.decl.Members {
		switch m := m.(type) {
		case *tree.Function:
			s := b.functionSymbol(m, ci.name, flags)
			add(s)
			if hasModifier(m.Modifiers, "override") {
				ci.overrides = append(ci.overrides, s)
			}
		case *tree.Property:
			s := b.propertySymbol(m, ci.name, flags)
			add(s)
			if hasModifier(m.Modifiers, "override") {
				ci.overrides = append(ci.overrides, s)
			}
		}
	}
	if ci.decl.Interface || ci.decl.Object {
		return
	}
	ctor := &symbol.Symbol{
		Owner: ci.name,
		Name:  signature.ConstructorName,
		Kind:  symbol.KindConstructor,
		Flags: symbol.FlagConstructor,
		Signature: symbol.Signature{
			Params:     b.params(ci.decl.Params),
			ReturnType: ci.name,
		},
	}
	b.required[ctor] = requiredArgs(ci.decl.Params)
	ci.ctors = append(ci.ctors, ctor)
}

// linkOverrides fills in the override sets of members declared with the
// override modifier.
func (b *binder) linkOverrides(ci *classInfo) {
	for _, s := range ci.overrides {
		for _, st := range b.table.Supertypes(ci.name) {
			for _, m := range b.directMembers(st, s.Name) {
				if m != s && m.Kind == s.Kind && len(m.Params) == len(s.Params) && !containsSymbol(s.Overridden, m) {
					s.Overridden = append(s.Overridden, m)
				}
			}
		}
	}
}

func (b *binder) directMembers(typ, name string) []*symbol.Symbol {
	if ci, ok := b.classes[typ]; ok {
		return ci.members[name]
	}
	t, ok := b.lib.Type(typ)
	if !ok {
		return nil
	}
	var out []*symbol.Symbol
	for _, m := range t.Members {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

func (b *binder) functionSymbol(fn *tree.Function, owner string, flags symbol.Flags) *symbol.Symbol {
	s := &symbol.Symbol{Owner: owner, Name: fn.Name, Kind: symbol.KindFunction, Flags: flags}
	s.Params = b.params(fn.Params)
	b.required[s] = requiredArgs(fn.Params)
	switch {
	case fn.ReturnType != "":
		s.ReturnType, s.ReturnNullable = b.declType(fn.ReturnType)
	case fn.Body == nil:
		s.ReturnType = symbol.TypeUnit
	default:
		if _, ok := fn.Body.(*tree.Block); ok {
			s.ReturnType = symbol.TypeUnit
		}
	}
	for _, m := range fn.Modifiers {
		switch m {
		case "suspend":
			s.Flags |= symbol.FlagSuspend
		case "operator":
			s.Flags |= symbol.FlagOperator
		case "static":
			s.Flags |= symbol.FlagStatic
		}
	}
	if fn.ReceiverType != "" {
		s.Flags |= symbol.FlagExtension
		s.Receiver, _ = b.declType(fn.ReceiverType)
	}
	b.table.BindDeclaration(s, fn)
	return s
}

func (b *binder) propertySymbol(p *tree.Property, owner string, flags symbol.Flags) *symbol.Symbol {
	s := &symbol.Symbol{
		Owner:    owner,
		Name:     p.Name,
		Kind:     symbol.KindProperty,
		Flags:    flags,
		ReadOnly: p.ReadOnly,
	}
	if hasModifier(p.Modifiers, "static") {
		s.Flags |= symbol.FlagStatic
	}
	if p.Type != "" {
		s.ReturnType, s.ReturnNullable = b.declType(p.Type)
	}
	b.table.BindDeclaration(s, p)
	return s
}

func (b *binder) params(ps []*tree.Parameter) []symbol.Param {
	out := make([]symbol.Param, 0, len(ps))
	for _, p := range ps {
		typ, nullable := b.declType(p.Type)
		param := symbol.Param{Name: p.Name, Type: typ, Nullable: nullable, Vararg: p.Vararg}
		if p.Vararg {
			param.ElementType = typ
			param.Type = "kotlin.Array"
		}
		out = append(out, param)
	}
	return out
}

func requiredArgs(ps []*tree.Parameter) int {
	n := 0
	for _, p := range ps {
		if p.Default == nil && !p.Vararg {
			n++
		}
	}
	return n
}

// declType resolves a declared type to its qualified name.
func (b *binder) declType(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	nullable := strings.HasSuffix(text, "?")
	text = strings.TrimSuffix(text, "?")
	if strings.Contains(text, "->") {
		return "kotlin.Function", nullable
	}
	text = strings.TrimSuffix(strings.TrimPrefix(text, "("), ")")
	text = strings.TrimSuffix(text, "?")
	name, _ := b.resolveType(text)
	return name, nullable
}

// resolveType resolves a possibly qualified type name using the imports of
// the file. The second result reports whether the type is known.
func (b *binder) resolveType(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	first, rest, dotted := strings.Cut(name, ".")
	if q, ok := b.imports[first]; ok {
		if dotted {
			q += "." + rest
		}
		return q, b.knownType(q)
	}
	if dotted && b.knownType(name) {
		return name, true
	}
	if !dotted {
		for _, ci := range b.order {
			if ci.decl.Name == name {
				return ci.name, true
			}
		}
	}
	for _, pkg := range b.packages {
		if q := pkg + "." + name; b.knownType(q) {
			return q, true
		}
	}
	return name, false
}

func (b *binder) knownType(q string) bool {
	if _, ok := b.classes[q]; ok {
		return true
	}
	_, ok := b.lib.Type(q)
	return ok
}

// members returns the members named name visible on typ, searching source
// classes and then the library breadth-first.
func (b *binder) members(typ, name string) []*symbol.Symbol {
	if typ == "" {
		return nil
	}
	var out []*symbol.Symbol
	seen := make(map[string]bool)
	queue := []string{typ}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if seen[t] {
			continue
		}
		seen[t] = true
		if ci, ok := b.classes[t]; ok {
			out = append(out, ci.members[name]...)
			queue = append(queue, ci.supertypes...)
			continue
		}
		for _, m := range b.lib.Members(t, name) {
			if !containsSymbol(out, m) {
				out = append(out, m)
			}
		}
	}
	return out
}

func (b *binder) constructors(typ string) []*symbol.Symbol {
	if ci, ok := b.classes[typ]; ok {
		return ci.ctors
	}
	return b.lib.Constructors(typ)
}

// findProperty returns the property or platform accessor named name on
// typ.
func (b *binder) findProperty(typ, name string, access symbol.Access, static bool) *symbol.Symbol {
	for _, m := range b.members(typ, name) {
		if static != m.Has(symbol.FlagStatic) {
			continue
		}
		switch {
		case m.Kind == symbol.KindProperty && m.Name == name:
			return m
		case m.PropertyName == name && m.Name != name:
			isSetter := strings.HasPrefix(m.Name, "set")
			if isSetter == (access == symbol.AccessWrite) {
				return m
			}
		}
	}
	return nil
}

func (b *binder) assignable(from, to string) bool {
	if from == to || to == symbol.TypeAny || from == symbol.TypeNothing {
		return true
	}
	for _, st := range b.table.Supertypes(from) {
		if st == to {
			return true
		}
	}
	return false
}

func (b *binder) stmt(n tree.Node, sc *Scope) {
	switch n := n.(type) {
	case *tree.Class:
		b.class(n, sc)
	case *tree.Function:
		b.function(n, sc)
	case *tree.Property:
		b.property(n, sc)
	case *tree.Block:
		inner := NewScope(ScopeBlock, sc, n)
		for _, s := range n.Stmts {
			b.stmt(s, inner)
		}
	case *tree.Assignment:
		b.assignment(n, sc)
	case *tree.Bad:
		for _, x := range n.Nested {
			b.stmt(x, sc)
		}
	case tree.Expr:
		b.expr(n, sc)
	}
}

func (b *binder) class(cl *tree.Class, sc *Scope) {
	ci, ok := b.byDecl[cl]
	if !ok {
		// Local class.
		b.declareClasses([]tree.Node{cl}, "")
		ci, ok = b.byDecl[cl]
		if !ok {
			return
		}
		b.declareMembers(ci)
		b.linkOverrides(ci)
	}
	inner := NewScope(ScopeClass, sc, cl)
	inner.This = ci.symbol
	inner.Receiver = ci.name
	b.labels[inner] = cl.Name
	for _, p := range cl.Params {
		if p.Default != nil {
			b.expr(p.Default, inner)
		}
	}
	for _, m := range cl.Members {
		b.stmt(m, inner)
	}
}

func (b *binder) function(fn *tree.Function, sc *Scope) {
	sym, ok := b.table.Declared(fn)
	if !ok {
		sym = b.functionSymbol(fn, "", 0)
		sc.DefineFunction(sym)
	}
	fs := NewScope(ScopeFunction, sc, fn)
	b.labels[fs] = fn.Name
	if sym.Receiver != "" {
		fs.This = &symbol.Symbol{
			Name:      "this",
			Kind:      symbol.KindParameter,
			ReadOnly:  true,
			Signature: symbol.Signature{ReturnType: sym.Receiver},
		}
		fs.Receiver = sym.Receiver
	}
	for i, p := range fn.Params {
		ps := &symbol.Symbol{Name: p.Name, Kind: symbol.KindParameter, ReadOnly: true}
		if i < len(sym.Params) {
			ps.ReturnType = sym.Params[i].Type
			ps.ReturnNullable = sym.Params[i].Nullable
		}
		b.table.BindDeclaration(ps, p)
		fs.Define(ps)
		if p.Default != nil {
			b.expr(p.Default, fs)
		}
	}
	switch body := fn.Body.(type) {
	case *tree.Block:
		b.stmt(body, fs)
	case tree.Expr:
		t := b.expr(body, fs)
		if sym.ReturnType == "" {
			sym.ReturnType, sym.ReturnNullable = t.Name, t.Nullable
		}
	}
}

func (b *binder) property(p *tree.Property, sc *Scope) {
	var init symbol.Type
	if p.Initializer != nil {
		init = b.expr(p.Initializer, sc)
	}
	sym, ok := b.table.Declared(p)
	if !ok {
		sym = &symbol.Symbol{Name: p.Name, Kind: symbol.KindVariable, ReadOnly: p.ReadOnly}
		if p.Type != "" {
			sym.ReturnType, sym.ReturnNullable = b.declType(p.Type)
		}
		b.table.BindDeclaration(sym, p)
		defer sc.Define(sym)
	}
	switch {
	case p.Type != "":
		b.adaptLiteral(p.Initializer, sym.ReturnType)
	case sym.ReturnType == "":
		sym.ReturnType, sym.ReturnNullable = init.Name, init.Nullable
		if init.Flexible {
			sym.Flags |= symbol.FlagPlatform
		}
	}
}

func (b *binder) assignment(a *tree.Assignment, sc *Scope) {
	b.expr(a.Value, sc)
	var target symbol.Type
	switch t := a.Target.(type) {
	case *tree.Ident:
		target = b.ident(t, sc, symbol.AccessWrite)
	case *tree.Qualified:
		target = b.qualified(t, sc, symbol.AccessWrite)
	default:
		target = b.expr(t, sc)
	}
	if a.Op == "=" {
		b.adaptLiteral(a.Value, target.Name)
	}
}

// expr binds e and records its static type when known.
func (b *binder) expr(e tree.Expr, sc *Scope) symbol.Type {
	if tree.IsNil(e) {
		return symbol.Type{}
	}
	t := b.exprType(e, sc)
	if t.Name != "" {
		b.table.SetType(e, t)
	}
	return t
}

func (b *binder) exprType(e tree.Expr, sc *Scope) symbol.Type {
	switch e := e.(type) {
	case *tree.Ident:
		return b.ident(e, sc, symbol.AccessRead)
	case *tree.This:
		return b.this(e, sc)
	case *tree.Paren:
		return b.expr(e.X, sc)
	case *tree.Cast:
		b.expr(e.X, sc)
		name, nullable := b.declType(e.Type)
		return symbol.Type{Name: name, Nullable: nullable || e.Safe}
	case *tree.StringTemplate:
		for _, entry := range e.Entries {
			if te, ok := entry.(*tree.TemplateExpr); ok {
				b.expr(te.X, sc)
			}
		}
		return symbol.Type{Name: symbol.TypeString}
	case *tree.Binary:
		return b.binary(e, sc)
	case *tree.Unary:
		x := b.expr(e.X, sc)
		switch e.Op {
		case "!":
			return symbol.Type{Name: symbol.TypeBoolean}
		case "!!":
			return symbol.Type{Name: x.Name}
		}
		return x
	case *tree.Call:
		return b.call(e, sc, nil)
	case *tree.Qualified:
		return b.qualified(e, sc, symbol.AccessRead)
	case *tree.Lambda:
		b.lambda(e, sc, lambdaBinding{})
		return symbol.Type{}
	case *tree.Bad:
		for _, x := range e.Nested {
			b.stmt(x, sc)
		}
		return symbol.Type{}
	}
	t, _ := b.table.TypeOf(e)
	return t
}

func (b *binder) binary(e *tree.Binary, sc *Scope) symbol.Type {
	x := b.expr(e.X, sc)
	y := b.expr(e.Y, sc)
	switch e.Op {
	case "==", "!=", "===", "!==", "<", ">", "<=", ">=", "&&", "||", "in", "!in", "is", "!is":
		return symbol.Type{Name: symbol.TypeBoolean}
	case "?:":
		name := x.Name
		if name == "" || name == symbol.TypeNothing {
			name = y.Name
		}
		return symbol.Type{Name: name, Nullable: y.Nullable}
	case "+":
		if x.Name == symbol.TypeString {
			return x
		}
		return numeric(x, y)
	case "-", "*", "/", "%":
		return numeric(x, y)
	case "..":
		return symbol.Type{Name: "kotlin.ranges.IntRange"}
	}
	return symbol.Type{}
}

func numeric(x, y symbol.Type) symbol.Type {
	rank := map[string]int{
		symbol.TypeInt:    1,
		symbol.TypeLong:   2,
		symbol.TypeFloat:  3,
		symbol.TypeDouble: 4,
	}
	rx, okx := rank[x.Name]
	ry, oky := rank[y.Name]
	switch {
	case !okx || !oky:
		return symbol.Type{}
	case rx >= ry:
		return symbol.Type{Name: x.Name}
	default:
		return symbol.Type{Name: y.Name}
	}
}

func valueType(s *symbol.Symbol) symbol.Type {
	if s == nil {
		return symbol.Type{}
	}
	return symbol.Type{
		Name:     s.ReturnType,
		Nullable: s.ReturnNullable,
		Flexible: s.Has(symbol.FlagPlatform),
	}
}

func (b *binder) ident(id *tree.Ident, sc *Scope, access symbol.Access) symbol.Type {
	if sym := sc.Lookup(id.Name); sym != nil {
		b.table.BindReference(id, sym)
		if sym.Kind == symbol.KindProperty {
			b.table.BindCall(id, &symbol.ResolvedCall{Symbol: sym, Access: access})
		}
		return valueType(sym)
	}
	for s := sc; s != nil; s = s.Parent {
		if s.Receiver == "" {
			continue
		}
		if m := b.findProperty(s.Receiver, id.Name, access, false); m != nil {
			b.table.BindReference(id, m)
			b.table.BindCall(id, &symbol.ResolvedCall{Symbol: m, ReceiverType: s.Receiver, Access: access})
			return valueType(m)
		}
	}
	return symbol.Type{}
}

func (b *binder) this(e *tree.This, sc *Scope) symbol.Type {
	for s := sc; s != nil; s = s.Parent {
		if s.This == nil {
			continue
		}
		if e.Label != "" && b.labels[s] != e.Label {
			continue
		}
		b.table.BindReference(e, s.This)
		return symbol.Type{Name: s.Receiver, Nullable: s.This.ReturnNullable}
	}
	return symbol.Type{}
}

// dotted returns the dotted name spelled by a chain of identifiers, or "".
func dotted(e tree.Expr) string {
	switch e := e.(type) {
	case *tree.Ident:
		return e.Name
	case *tree.Qualified:
		sel, ok := e.Sel.(*tree.Ident)
		if !ok || e.Safe {
			return ""
		}
		if x := dotted(e.X); x != "" {
			return x + "." + sel.Name
		}
	}
	return ""
}

// receiver binds the receiver of a qualified expression. A receiver that
// names a type rather than a value is reported as static.
func (b *binder) receiver(x tree.Expr, sc *Scope) receiverInfo {
	if name := dotted(x); name != "" {
		first, _, _ := strings.Cut(name, ".")
		if sc.Lookup(first) == nil && !b.implicitMember(first, sc) {
			if q, ok := b.resolveType(name); ok {
				if ci, ok := b.classes[q]; ok {
					if id, ok := x.(*tree.Ident); ok {
						b.table.BindReference(id, ci.symbol)
					}
				}
				return receiverInfo{typ: symbol.Type{Name: q}, static: true}
			}
		}
	}
	return receiverInfo{typ: b.expr(x, sc)}
}

func (b *binder) implicitMember(name string, sc *Scope) bool {
	for s := sc; s != nil; s = s.Parent {
		if s.Receiver != "" && b.findProperty(s.Receiver, name, symbol.AccessRead, false) != nil {
			return true
		}
	}
	return false
}

func (b *binder) qualified(q *tree.Qualified, sc *Scope, access symbol.Access) symbol.Type {
	recv := b.receiver(q.X, sc)
	var t symbol.Type
	switch sel := q.Sel.(type) {
	case *tree.Call:
		t = b.call(sel, sc, &recv)
	case *tree.Ident:
		if m := b.findProperty(recv.typ.Name, sel.Name, access, recv.static); m != nil {
			b.table.BindReference(sel, m)
			b.table.BindCall(sel, &symbol.ResolvedCall{Symbol: m, ReceiverType: recv.typ.Name, Access: access})
			t = valueType(m)
		}
	default:
		t = b.expr(q.Sel, sc)
	}
	if q.Safe && t.Name != "" {
		t.Nullable = true
	}
	if t.Name != "" {
		b.table.SetType(q.Sel, t)
	}
	return t
}

func (b *binder) call(c *tree.Call, sc *Scope, recv *receiverInfo) symbol.Type {
	argTypes := make([]symbol.Type, len(c.Args))
	for i, a := range c.Args {
		if a == nil || tree.IsNil(a.Value) {
			continue
		}
		if _, ok := a.Value.(*tree.Lambda); ok {
			continue
		}
		argTypes[i] = b.expr(a.Value, sc)
	}
	name := tree.CallName(c)
	if name == "" {
		b.expr(c.Fun, sc)
		b.lambdas(c, sc, nil, symbol.Type{}, argTypes)
		return symbol.Type{}
	}
	best, ok := b.choose(b.candidates(name, sc, recv), c, argTypes)
	if !ok {
		b.lambdas(c, sc, nil, symbol.Type{}, argTypes)
		return symbol.Type{}
	}
	sym := best.sym
	rc := &symbol.ResolvedCall{Symbol: sym, ReceiverType: best.recv.Name, Access: symbol.AccessCall}
	b.table.BindCall(c, rc)
	b.adaptArgs(c, sym)
	result := b.lambdas(c, sc, sym, best.recv, argTypes)
	if sym.IsConstructor() {
		return symbol.Type{Name: sym.Owner}
	}
	bound := typeBindings(sym, c, best.recv, argTypes, result)
	if sig, ok := specialize(sym.Signature, bound); ok {
		rc.Signature = sig
	}
	if isTypeParameter(sym.ReturnType) {
		t, ok := bound[sym.ReturnType]
		if !ok {
			return symbol.Type{}
		}
		return symbol.Type{Name: t.Name, Nullable: t.Nullable || sym.ReturnNullable}
	}
	return valueType(sym)
}

// typeBindings infers the type parameters of s at call c. T is bound by a
// wildcard receiver or, for with-style functions, the first argument; R by
// the lambda result; any other parameter by the first argument passed for
// a formal of that type.
func typeBindings(s *symbol.Symbol, c *tree.Call, recv symbol.Type, argTypes []symbol.Type, result symbol.Type) map[string]symbol.Type {
	bound := make(map[string]symbol.Type)
	bind := func(name string, t symbol.Type) {
		if _, ok := bound[name]; !ok && t.Name != "" && isTypeParameter(name) {
			bound[name] = t
		}
	}
	switch {
	case s.Receiver == "*":
		bind("T", recv)
	case s.LambdaReceiver && len(argTypes) > 0:
		bind("T", argTypes[0])
	}
	bind("R", result)
	if idx, ok := paramIndex(s, c); ok {
		for i := range c.Args {
			bind(s.Params[idx[i]].MatchType(), argTypes[i])
		}
	}
	return bound
}

// specialize substitutes bound type parameters into sig. It reports false
// when nothing was substituted.
func specialize(sig symbol.Signature, bound map[string]symbol.Type) (symbol.Signature, bool) {
	changed := false
	out := symbol.Signature{
		Params:         make([]symbol.Param, len(sig.Params)),
		ReturnType:     sig.ReturnType,
		ReturnNullable: sig.ReturnNullable,
	}
	if t, ok := bound[sig.ReturnType]; ok {
		out.ReturnType = t.Name
		out.ReturnNullable = sig.ReturnNullable || t.Nullable
		changed = true
	}
	for i, p := range sig.Params {
		if t, ok := bound[p.MatchType()]; ok {
			if p.Vararg {
				p.ElementType = t.Name
			} else {
				p.Type = t.Name
			}
			changed = true
		}
		out.Params[i] = p
	}
	return out, changed
}

// candidates lists the overloads a call named name may resolve to, in
// the order Kotlin's scope tower would consider them.
func (b *binder) candidates(name string, sc *Scope, recv *receiverInfo) []candidate {
	var out []candidate
	add := func(recvType symbol.Type, syms []*symbol.Symbol, keep func(*symbol.Symbol) bool) {
		for _, s := range syms {
			if keep == nil || keep(s) {
				out = append(out, candidate{sym: s, recv: recvType})
			}
		}
	}
	isMethod := func(static bool) func(*symbol.Symbol) bool {
		return func(s *symbol.Symbol) bool {
			return s.Kind == symbol.KindFunction && s.Name == name && s.Has(symbol.FlagStatic) == static
		}
	}

	if recv != nil {
		if recv.static {
			add(recv.typ, b.members(recv.typ.Name, name), isMethod(true))
			if q, ok := b.resolveType(recv.typ.Name + "." + name); ok {
				add(symbol.Type{}, b.constructors(q), nil)
			}
			return out
		}
		add(recv.typ, b.members(recv.typ.Name, name), isMethod(false))
		out = append(out, b.extensions(name, recv.typ)...)
		return out
	}

	add(symbol.Type{}, sc.LookupFunctions(name), nil)
	var implicit symbol.Type
	for s := sc; s != nil; s = s.Parent {
		if s.Receiver == "" {
			continue
		}
		if implicit.Name == "" {
			implicit = symbol.Type{Name: s.Receiver}
		}
		add(symbol.Type{Name: s.Receiver}, b.members(s.Receiver, name), isMethod(false))
		add(symbol.Type{Name: s.Receiver}, b.members(s.Receiver, name), isMethod(true))
	}
	for _, s := range b.funcs[name] {
		if s.Receiver != "" {
			out = append(out, candidate{sym: s, recv: implicit})
		} else {
			out = append(out, candidate{sym: s})
		}
	}
	for _, s := range b.libraryFunctions(name) {
		if s.Receiver != "" {
			out = append(out, candidate{sym: s, recv: implicit})
		} else {
			out = append(out, candidate{sym: s})
		}
	}
	if q, ok := b.resolveType(name); ok {
		add(symbol.Type{}, b.constructors(q), nil)
	}
	return out
}

func (b *binder) libraryFunctions(name string) []*symbol.Symbol {
	var out []*symbol.Symbol
	if q, ok := b.imports[name]; ok {
		out = append(out, b.lib.Functions(q)...)
	}
	for _, pkg := range b.packages {
		for _, s := range b.lib.Functions(pkg + "." + name) {
			if !containsSymbol(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

// extensions lists the extension functions named name applicable to a
// receiver of type recv.
func (b *binder) extensions(name string, recv symbol.Type) []candidate {
	var out []candidate
	applies := func(s *symbol.Symbol) bool {
		if s.Receiver == "" {
			return false
		}
		return s.Receiver == "*" || recv.Name == "" || b.assignable(recv.Name, s.Receiver)
	}
	for _, s := range b.funcs[name] {
		if applies(s) {
			out = append(out, candidate{sym: s, recv: recv})
		}
	}
	for _, s := range b.libraryFunctions(name) {
		if applies(s) {
			out = append(out, candidate{sym: s, recv: recv})
		}
	}
	return out
}

// choose picks the best applicable overload. Ties go to the earliest
// candidate.
func (b *binder) choose(cands []candidate, c *tree.Call, argTypes []symbol.Type) (candidate, bool) {
	best, bestScore := -1, -1
	for i, cd := range cands {
		score, ok := b.score(cd.sym, c, argTypes)
		if ok && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return candidate{}, false
	}
	return cands[best], true
}

// paramIndex maps the value arguments of c (and its trailing lambda,
// reported at index len(c.Args)) to parameter indexes of s.
func paramIndex(s *symbol.Symbol, c *tree.Call) ([]int, bool) {
	out := make([]int, 0, len(c.Args)+1)
	pos := 0
	for _, a := range c.Args {
		if a != nil && a.Name != "" {
			found := -1
			for i, p := range s.Params {
				if p.Name == a.Name {
					found = i
				}
			}
			if found < 0 {
				return nil, false
			}
			out = append(out, found)
			continue
		}
		idx := pos
		if idx >= len(s.Params) {
			if len(s.Params) == 0 || !s.Params[len(s.Params)-1].Vararg {
				return nil, false
			}
			idx = len(s.Params) - 1
		}
		out = append(out, idx)
		if !s.Params[idx].Vararg {
			pos++
		}
	}
	if c.Lambda != nil {
		if len(s.Params) == 0 {
			return nil, false
		}
		out = append(out, len(s.Params)-1)
	}
	return out, true
}

func (b *binder) score(s *symbol.Symbol, c *tree.Call, argTypes []symbol.Type) (int, bool) {
	idx, ok := paramIndex(s, c)
	if !ok {
		return 0, false
	}
	required, known := b.required[s]
	if !known {
		required = len(s.Params)
		if len(s.Params) > 0 && s.Params[len(s.Params)-1].Vararg {
			required--
		}
	}
	covered := make(map[int]bool)
	for _, i := range idx {
		covered[i] = true
	}
	if len(covered) < required {
		return 0, false
	}
	score := 1
	for ai, pi := range idx {
		if ai >= len(c.Args) || c.Args[ai] == nil {
			continue
		}
		p := s.Params[pi]
		at := argTypes[ai]
		pt := p.Type
		if p.Vararg && !c.Args[ai].Spread {
			pt = p.MatchType()
		}
		switch {
		case at.Name == "" || pt == "" || pt == symbol.TypeAny || isTypeParameter(pt):
			score++
		case at.Name == pt:
			score += 3
		case at.Name == symbol.TypeNothing:
			if !p.Nullable {
				return 0, false
			}
			score += 2
		case isIntLiteral(c.Args[ai].Value) && isIntegral(pt):
			score += 2
		case b.assignable(at.Name, pt):
			score += 2
		default:
			return 0, false
		}
	}
	return score, true
}

// adaptArgs types integer literal arguments by their parameter, as the
// Kotlin compiler does for Long, Short and Byte parameters.
func (b *binder) adaptArgs(c *tree.Call, s *symbol.Symbol) {
	idx, ok := paramIndex(s, c)
	if !ok {
		return
	}
	for ai, pi := range idx {
		if ai < len(c.Args) && c.Args[ai] != nil {
			b.adaptLiteral(c.Args[ai].Value, s.Params[pi].MatchType())
		}
	}
}

func (b *binder) adaptLiteral(e tree.Expr, typ string) {
	if !isIntLiteral(e) || !isIntegral(typ) {
		return
	}
	for x := e; !tree.IsNil(x); {
		b.table.SetType(x, symbol.Type{Name: typ})
		switch y := x.(type) {
		case *tree.Paren:
			x = y.X
		case *tree.Unary:
			x = y.X
		default:
			return
		}
	}
}

func isIntLiteral(e tree.Expr) bool {
	switch e := tree.Unparen(e).(type) {
	case *tree.IntLit:
		return !e.Long
	case *tree.Unary:
		return (e.Op == "-" || e.Op == "+") && isIntLiteral(e.X)
	}
	return false
}

func isIntegral(typ string) bool {
	switch typ {
	case symbol.TypeInt, symbol.TypeLong, symbol.TypeShort, symbol.TypeByte:
		return true
	}
	return false
}

func (b *binder) lambdas(c *tree.Call, sc *Scope, s *symbol.Symbol, recv symbol.Type, argTypes []symbol.Type) symbol.Type {
	var result symbol.Type
	for i, a := range c.Args {
		if a == nil {
			continue
		}
		if l, ok := a.Value.(*tree.Lambda); ok {
			lb := lambdaBinding{label: tree.CallName(c)}
			if i == len(c.Args)-1 && c.Lambda == nil {
				lb = b.lambdaBinding(c, s, recv, argTypes)
			}
			result = b.lambda(l, sc, lb)
		}
	}
	if c.Lambda != nil {
		result = b.lambda(c.Lambda, sc, b.lambdaBinding(c, s, recv, argTypes))
	}
	return result
}

func (b *binder) lambdaBinding(c *tree.Call, s *symbol.Symbol, recv symbol.Type, argTypes []symbol.Type) lambdaBinding {
	lb := lambdaBinding{label: tree.CallName(c)}
	if s == nil {
		return lb
	}
	lb.receiver = s.LambdaReceiver
	switch {
	case s.Receiver != "":
		lb.typ = recv
	case s.LambdaReceiver && len(argTypes) > 0:
		lb.typ = argTypes[0]
	}
	return lb
}

// lambda binds a lambda literal and returns the type of its last
// expression.
func (b *binder) lambda(l *tree.Lambda, sc *Scope, lb lambdaBinding) symbol.Type {
	ls := NewScope(ScopeLambda, sc, l)
	b.labels[ls] = lb.label
	switch {
	case lb.receiver:
		this := &symbol.Symbol{
			Name:      "this",
			Kind:      symbol.KindImplicitReceiver,
			ReadOnly:  true,
			Signature: symbol.Signature{ReturnType: lb.typ.Name, ReturnNullable: lb.typ.Nullable},
		}
		b.table.BindDeclaration(this, l)
		ls.This = this
		ls.Receiver = lb.typ.Name
	case len(l.Params) == 0:
		it := &symbol.Symbol{
			Name:      "it",
			Kind:      symbol.KindImplicitParameter,
			ReadOnly:  true,
			Signature: symbol.Signature{ReturnType: lb.typ.Name, ReturnNullable: lb.typ.Nullable},
		}
		b.table.BindDeclaration(it, l)
		ls.Define(it)
	default:
		for _, p := range l.Params {
			ps := &symbol.Symbol{Name: p.Name, Kind: symbol.KindParameter, ReadOnly: true}
			switch {
			case p.Type != "":
				ps.ReturnType, ps.ReturnNullable = b.declType(p.Type)
			case len(l.Params) == 1:
				ps.ReturnType, ps.ReturnNullable = lb.typ.Name, lb.typ.Nullable
			}
			b.table.BindDeclaration(ps, p)
			ls.Define(ps)
		}
	}
	var last symbol.Type
	if l.Body == nil {
		return last
	}
	for i, s := range l.Body.Stmts {
		if e, ok := s.(tree.Expr); ok && i == len(l.Body.Stmts)-1 {
			last = b.expr(e, ls)
			continue
		}
		b.stmt(s, ls)
	}
	return last
}

func hasModifier(mods []string, m string) bool {
	for _, x := range mods {
		if x == m {
			return true
		}
	}
	return false
}

func containsSymbol(list []*symbol.Symbol, s *symbol.Symbol) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func isTypeParameter(name string) bool {
	return len(name) == 1 && unicode.IsUpper(rune(name[0]))
}
