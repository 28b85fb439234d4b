// Copyright © 2024 The ELPS authors

package tree

// Import is a single import directive of a file.
type Import struct {
	Path     string // fully qualified name, without a trailing ".*"
	Alias    string
	Wildcard bool
}

// File is the root of a parsed source file.
type File struct {
	base
	Name    string
	Package string
	Imports []Import
	Decls   []Node
}

// Class is a class, interface or object declaration.
type Class struct {
	base
	Name       string
	Interface  bool
	Object     bool
	Supertypes []string
	// Params are the primary constructor parameters.
	Params  []*Parameter
	Members []Node
}

// Function is a named function declaration.
type Function struct {
	base
	Name         string
	ReceiverType string // non-empty for extension functions
	Modifiers    []string
	Params       []*Parameter
	ReturnType   string
	Body         Node // *Block, an Expr for expression bodies, or nil
}

// Property is a val/var declaration, either a member, top-level or local.
type Property struct {
	base
	Name        string
	ReadOnly    bool // declared with val
	Local       bool
	Modifiers   []string
	Type        string
	Initializer Expr
}

// Parameter is a function or lambda parameter.
type Parameter struct {
	base
	Name    string
	Type    string
	Vararg  bool
	Default Expr
}

// Block is a sequence of statements.
type Block struct {
	base
	Stmts []Node
}

// Assignment is `Target Op Value` where Op is "=", "+=", etc.
type Assignment struct {
	base
	Op     string
	Target Expr
	Value  Expr
}

// Ident is a simple name reference.
type Ident struct {
	base
	Name string
}

// This is a `this` or `this@label` expression.
type This struct {
	base
	Label string
}

// StringTemplate is a string literal. Entries are *TemplateText and
// *TemplateExpr nodes in source order.
type StringTemplate struct {
	base
	Raw     bool
	Entries []Node
}

// TemplateText is a literal segment of a string template with escapes
// already decoded.
type TemplateText struct {
	base
	Text string
}

// TemplateExpr is an interpolated `$name` or `${expr}` segment.
type TemplateExpr struct {
	base
	X Expr
}

// IntLit is an integer literal.
type IntLit struct {
	base
	Text  string
	Value int64
	Long  bool
}

// FloatLit is a floating point literal.
type FloatLit struct {
	base
	Text string
}

// BoolLit is true or false.
type BoolLit struct {
	base
	Value bool
}

// NullLit is the null literal.
type NullLit struct {
	base
}

// CharLit is a character literal.
type CharLit struct {
	base
	Value rune
}

// Paren is a parenthesized expression.
type Paren struct {
	base
	X Expr
}

// Cast is `X as Type` or `X as? Type`.
type Cast struct {
	base
	X    Expr
	Type string
	Safe bool
}

// Binary is `X Op Y`.
type Binary struct {
	base
	Op string
	X  Expr
	Y  Expr
}

// Unary is a prefix or postfix operator application.
type Unary struct {
	base
	Op      string
	Postfix bool
	X       Expr
}

// Call is `Fun(Args) Lambda`. Fun is usually an *Ident; the receiver of a
// member call is held by the enclosing *Qualified.
type Call struct {
	base
	Fun    Expr
	Args   []*Argument
	Lambda *Lambda // trailing lambda, if any
}

// Argument is one value argument of a call.
type Argument struct {
	base
	Name   string
	Spread bool
	Value  Expr
}

// Qualified is `X.Sel` or `X?.Sel`. Sel is an *Ident or a *Call.
type Qualified struct {
	base
	X    Expr
	Sel  Expr
	Safe bool
}

// Lambda is a lambda literal. A lambda without declared parameters may
// still bind an implicit parameter or receiver; see package symbol.
type Lambda struct {
	base
	Params []*Parameter
	Body   *Block
}

// Bad stands for source the frontend could not convert: syntax errors and
// constructs the engine does not model (if, when, try, indexing). Nested
// holds the convertible parts found inside it so that traversals still
// reach them.
type Bad struct {
	base
	Text   string
	Nested []Node
}

func (*File) Kind() Kind           { return KindFile }
func (*Class) Kind() Kind          { return KindClass }
func (*Function) Kind() Kind       { return KindFunction }
func (*Property) Kind() Kind       { return KindProperty }
func (*Parameter) Kind() Kind      { return KindParameter }
func (*Block) Kind() Kind          { return KindBlock }
func (*Assignment) Kind() Kind     { return KindAssignment }
func (*Ident) Kind() Kind          { return KindIdent }
func (*This) Kind() Kind           { return KindThis }
func (*StringTemplate) Kind() Kind { return KindStringTemplate }
func (*TemplateText) Kind() Kind   { return KindTemplateText }
func (*TemplateExpr) Kind() Kind   { return KindTemplateExpr }
func (*IntLit) Kind() Kind         { return KindIntLit }
func (*FloatLit) Kind() Kind       { return KindFloatLit }
func (*BoolLit) Kind() Kind        { return KindBoolLit }
func (*NullLit) Kind() Kind        { return KindNullLit }
func (*CharLit) Kind() Kind        { return KindCharLit }
func (*Paren) Kind() Kind          { return KindParen }
func (*Cast) Kind() Kind           { return KindCast }
func (*Binary) Kind() Kind         { return KindBinary }
func (*Unary) Kind() Kind          { return KindUnary }
func (*Call) Kind() Kind           { return KindCall }
func (*Argument) Kind() Kind       { return KindArgument }
func (*Qualified) Kind() Kind      { return KindQualified }
func (*Lambda) Kind() Kind         { return KindLambda }
func (*Bad) Kind() Kind            { return KindBad }

func (*Ident) exprNode()          {}
func (*This) exprNode()           {}
func (*StringTemplate) exprNode() {}
func (*IntLit) exprNode()         {}
func (*FloatLit) exprNode()       {}
func (*BoolLit) exprNode()        {}
func (*NullLit) exprNode()        {}
func (*CharLit) exprNode()        {}
func (*Paren) exprNode()          {}
func (*Cast) exprNode()           {}
func (*Binary) exprNode()         {}
func (*Unary) exprNode()          {}
func (*Call) exprNode()           {}
func (*Qualified) exprNode()      {}
func (*Lambda) exprNode()         {}
func (*Bad) exprNode()            {}

func (c *Class) DeclName() string     { return c.Name }
func (f *Function) DeclName() string  { return f.Name }
func (p *Property) DeclName() string  { return p.Name }
func (p *Parameter) DeclName() string { return p.Name }

func (f *File) Children() []Node {
	return append([]Node(nil), f.Decls...)
}

func (c *Class) Children() []Node {
	var out []Node
	for _, p := range c.Params {
		out = append(out, p)
	}
	return append(out, c.Members...)
}

func (f *Function) Children() []Node {
	var out []Node
	for _, p := range f.Params {
		out = append(out, p)
	}
	return appendNonNil(out, f.Body)
}

func (p *Property) Children() []Node {
	return appendNonNil(nil, p.Initializer)
}

func (p *Parameter) Children() []Node {
	return appendNonNil(nil, p.Default)
}

func (b *Block) Children() []Node {
	return append([]Node(nil), b.Stmts...)
}

func (a *Assignment) Children() []Node {
	return appendNonNil(nil, a.Target, a.Value)
}

func (*Ident) Children() []Node { return nil }
func (*This) Children() []Node  { return nil }

func (s *StringTemplate) Children() []Node {
	return append([]Node(nil), s.Entries...)
}

func (*TemplateText) Children() []Node { return nil }

func (t *TemplateExpr) Children() []Node {
	return appendNonNil(nil, t.X)
}

func (*IntLit) Children() []Node   { return nil }
func (*FloatLit) Children() []Node { return nil }
func (*BoolLit) Children() []Node  { return nil }
func (*NullLit) Children() []Node  { return nil }
func (*CharLit) Children() []Node  { return nil }

func (p *Paren) Children() []Node {
	return appendNonNil(nil, p.X)
}

func (c *Cast) Children() []Node {
	return appendNonNil(nil, c.X)
}

func (b *Binary) Children() []Node {
	return appendNonNil(nil, b.X, b.Y)
}

func (u *Unary) Children() []Node {
	return appendNonNil(nil, u.X)
}

func (c *Call) Children() []Node {
	out := appendNonNil(nil, c.Fun)
	for _, a := range c.Args {
		out = append(out, a)
	}
	if c.Lambda != nil {
		out = append(out, c.Lambda)
	}
	return out
}

func (a *Argument) Children() []Node {
	return appendNonNil(nil, a.Value)
}

func (q *Qualified) Children() []Node {
	return appendNonNil(nil, q.X, q.Sel)
}

func (l *Lambda) Children() []Node {
	var out []Node
	for _, p := range l.Params {
		out = append(out, p)
	}
	if l.Body != nil {
		out = append(out, l.Body)
	}
	return out
}

func (b *Bad) Children() []Node {
	return append([]Node(nil), b.Nested...)
}

// appendNonNil appends the nodes that are not nil, including typed nil
// pointers stored in an interface.
func appendNonNil(out []Node, nodes ...Node) []Node {
	for _, n := range nodes {
		if !IsNil(n) {
			out = append(out, n)
		}
	}
	return out
}
