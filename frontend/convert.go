// Copyright © 2024 The ELPS authors

package frontend

import (
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/luthersystems/kvet/tree"
)

// converter lowers a tree-sitter Kotlin CST into the engine's syntax tree.
// Constructs the engine does not model become *tree.Bad nodes that keep
// their convertible children.
type converter struct {
	src []byte
}

var binaryKinds = map[string]bool{
	"additive_expression":       true,
	"multiplicative_expression": true,
	"comparison_expression":     true,
	"equality_expression":       true,
	"conjunction_expression":    true,
	"disjunction_expression":    true,
	"elvis_expression":          true,
	"range_expression":          true,
	"infix_expression":          true,
	"check_expression":          true,
}

var typeKinds = map[string]bool{
	"user_type":          true,
	"nullable_type":      true,
	"function_type":      true,
	"parenthesized_type": true,
	"type_identifier":    true,
	"non_nullable_type":  true,
	"type_reference":     true,
	"type_arguments":     true,
	"type_parameters":    true,
	"type_constraints":   true,
}

func isComment(t string) bool {
	switch t {
	case "comment", "line_comment", "multiline_comment", "block_comment":
		return true
	}
	return false
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

func span(n *sitter.Node) tree.Span {
	start, end := n.StartPoint(), n.EndPoint()
	return tree.Span{
		Start: tree.Pos{Line: int(start.Row) + 1, Col: int(start.Column) + 1},
		End:   tree.Pos{Line: int(end.Row) + 1, Col: int(end.Column) + 1},
	}
}

func setSpan[T tree.Node](node T, n *sitter.Node) T {
	tree.SetSpan(node, span(n))
	return node
}

// children returns all children of n.
func children(n *sitter.Node) []*sitter.Node {
	count := int(n.ChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if ch := n.Child(i); ch != nil {
			out = append(out, ch)
		}
	}
	return out
}

// operands returns the named children of n plus anonymous null keywords,
// skipping comments.
func operands(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, ch := range children(n) {
		if isComment(ch.Type()) {
			continue
		}
		if ch.IsNamed() || ch.Type() == "null" {
			out = append(out, ch)
		}
	}
	return out
}

func childOfType(n *sitter.Node, types ...string) *sitter.Node {
	for _, ch := range children(n) {
		for _, t := range types {
			if ch.Type() == t {
				return ch
			}
		}
	}
	return nil
}

func (c *converter) file(root *sitter.Node, name string) *tree.File {
	f := &tree.File{Name: name}
	for _, ch := range children(root) {
		switch ch.Type() {
		case "package_header":
			if id := childOfType(ch, "identifier"); id != nil {
				f.Package = compact(c.text(id))
			}
		case "import_list":
			for _, imp := range children(ch) {
				if imp.Type() == "import_header" {
					f.Imports = append(f.Imports, c.importHeader(imp))
				}
			}
		case "import_header":
			f.Imports = append(f.Imports, c.importHeader(ch))
		case "statements":
			f.Decls = append(f.Decls, c.statements(ch)...)
		case "shebang_line", "file_annotation":
		default:
			if !ch.IsNamed() || isComment(ch.Type()) {
				continue
			}
			if d := c.stmt(ch); d != nil {
				f.Decls = append(f.Decls, d)
			}
		}
	}
	return setSpan(f, root)
}

func (c *converter) importHeader(n *sitter.Node) tree.Import {
	var imp tree.Import
	if id := childOfType(n, "identifier"); id != nil {
		imp.Path = compact(c.text(id))
	}
	if alias := childOfType(n, "import_alias"); alias != nil {
		if id := childOfType(alias, "type_identifier", "simple_identifier"); id != nil {
			imp.Alias = c.text(id)
		}
	}
	if childOfType(n, "wildcard_import") != nil || strings.HasSuffix(compact(c.text(n)), ".*") {
		imp.Wildcard = true
		imp.Path = strings.TrimSuffix(imp.Path, ".*")
	}
	return imp
}

// stmt converts a statement or declaration. It returns nil for nodes
// that carry no semantics (comments, labels).
func (c *converter) stmt(n *sitter.Node) tree.Node {
	switch n.Type() {
	case "property_declaration":
		return c.property(n, true)
	case "function_declaration":
		return c.function(n)
	case "class_declaration", "object_declaration":
		return c.class(n)
	case "assignment":
		return c.assignment(n)
	case "block", "statements", "control_structure_body":
		return setSpan(&tree.Block{Stmts: c.statements(n)}, n)
	case "label", "annotation", "type_alias", ";":
		return nil
	}
	if isComment(n.Type()) {
		return nil
	}
	return c.expr(n)
}

// statements converts the statements nested in a block, flattening
// statement list wrappers.
func (c *converter) statements(n *sitter.Node) []tree.Node {
	var out []tree.Node
	for _, ch := range children(n) {
		if !ch.IsNamed() {
			continue
		}
		if ch.Type() == "statements" {
			out = append(out, c.statements(ch)...)
			continue
		}
		if s := c.stmt(ch); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (c *converter) block(n *sitter.Node) *tree.Block {
	return setSpan(&tree.Block{Stmts: c.statements(n)}, n)
}

func (c *converter) class(n *sitter.Node) *tree.Class {
	cl := &tree.Class{Object: n.Type() == "object_declaration"}
	for _, ch := range children(n) {
		switch ch.Type() {
		case "interface":
			cl.Interface = true
		case "type_identifier", "simple_identifier":
			if cl.Name == "" {
				cl.Name = c.text(ch)
			}
		case "primary_constructor", "class_parameters":
			cl.Params = append(cl.Params, c.classParams(ch)...)
		case "delegation_specifier", "delegation_specifiers", "annotated_delegation_specifier":
			cl.Supertypes = append(cl.Supertypes, c.supertypes(ch)...)
		case "class_body", "enum_class_body":
			cl.Members = c.classBody(ch)
		}
	}
	return setSpan(cl, n)
}

func (c *converter) classParams(n *sitter.Node) []*tree.Parameter {
	var out []*tree.Parameter
	for _, ch := range children(n) {
		switch ch.Type() {
		case "class_parameters":
			out = append(out, c.classParams(ch)...)
		case "class_parameter":
			p := &tree.Parameter{}
			expectDefault := false
			for _, part := range children(ch) {
				switch {
				case part.Type() == "modifiers":
					p.Vararg = strings.Contains(c.text(part), "vararg")
				case part.Type() == "simple_identifier" && p.Name == "":
					p.Name = c.text(part)
				case typeKinds[part.Type()] && p.Type == "":
					p.Type = c.typeText(part)
				case part.Type() == "=":
					expectDefault = true
				case expectDefault && (part.IsNamed() || part.Type() == "null"):
					p.Default = c.expr(part)
					expectDefault = false
				}
			}
			out = append(out, setSpan(p, ch))
		}
	}
	return out
}

func (c *converter) supertypes(n *sitter.Node) []string {
	var out []string
	for _, ch := range children(n) {
		switch ch.Type() {
		case "delegation_specifier", "annotated_delegation_specifier":
			out = append(out, c.supertypes(ch)...)
		case "constructor_invocation", "explicit_delegation":
			if t := childOfType(ch, "user_type"); t != nil {
				out = append(out, c.typeText(t))
			}
		case "user_type", "nullable_type":
			out = append(out, c.typeText(ch))
		}
	}
	return out
}

func (c *converter) classBody(n *sitter.Node) []tree.Node {
	var out []tree.Node
	for _, ch := range children(n) {
		switch ch.Type() {
		case "property_declaration":
			out = append(out, c.property(ch, false))
		case "function_declaration":
			out = append(out, c.function(ch))
		case "class_declaration", "object_declaration":
			out = append(out, c.class(ch))
		case "companion_object":
			// Companion members are reached through the type name.
			body := childOfType(ch, "class_body")
			if body == nil {
				continue
			}
			for _, m := range c.classBody(body) {
				switch m := m.(type) {
				case *tree.Function:
					m.Modifiers = append(m.Modifiers, "static")
				case *tree.Property:
					m.Modifiers = append(m.Modifiers, "static")
				}
				out = append(out, m)
			}
		case "anonymous_initializer":
			if b := childOfType(ch, "block"); b != nil {
				out = append(out, c.block(b))
			}
		case "secondary_constructor", "enum_entry", "getter", "setter":
			if ch.NamedChildCount() > 0 {
				out = append(out, c.bad(ch))
			}
		}
	}
	return out
}

func (c *converter) modifiers(n *sitter.Node) []string {
	var out []string
	for _, ch := range children(n) {
		if !ch.IsNamed() || ch.Type() == "annotation" || isComment(ch.Type()) {
			continue
		}
		out = append(out, strings.Fields(c.text(ch))...)
	}
	return out
}

func (c *converter) function(n *sitter.Node) *tree.Function {
	f := &tree.Function{}
	seenName, seenParams, expectBody := false, false, false
	for _, ch := range children(n) {
		t := ch.Type()
		switch {
		case t == "modifiers":
			f.Modifiers = c.modifiers(ch)
		case t == "simple_identifier" && !seenName:
			f.Name = c.text(ch)
			seenName = true
		case t == "function_value_parameters":
			f.Params = c.params(ch)
			seenParams = true
		case t == "function_body":
			f.Body = c.functionBody(ch)
		case t == "block":
			f.Body = c.block(ch)
		case t == "=":
			expectBody = true
		case typeKinds[t] && t != "type_parameters" && t != "type_constraints":
			if !seenName {
				f.ReceiverType = c.typeText(ch)
			} else if seenParams && f.ReturnType == "" {
				f.ReturnType = c.typeText(ch)
			}
		case expectBody && ch.IsNamed():
			f.Body = c.expr(ch)
			expectBody = false
		}
	}
	return setSpan(f, n)
}

func (c *converter) params(n *sitter.Node) []*tree.Parameter {
	var out []*tree.Parameter
	vararg, expectDefault := false, false
	for _, ch := range children(n) {
		switch t := ch.Type(); {
		case t == "parameter_modifiers":
			vararg = strings.Contains(c.text(ch), "vararg")
		case t == "parameter":
			p := &tree.Parameter{Vararg: vararg}
			if id := childOfType(ch, "simple_identifier"); id != nil {
				p.Name = c.text(id)
			}
			for _, part := range children(ch) {
				if typeKinds[part.Type()] {
					p.Type = c.typeText(part)
					break
				}
			}
			out = append(out, setSpan(p, ch))
			vararg = false
		case t == "=":
			expectDefault = true
		case expectDefault && (ch.IsNamed() || t == "null"):
			if len(out) > 0 {
				out[len(out)-1].Default = c.expr(ch)
			}
			expectDefault = false
		}
	}
	return out
}

// functionBody converts a function_body node. The grammar inlines the
// braces of a block body, so `{ ... }` arrives as the braces plus an
// optional statements child rather than as a block node.
func (c *converter) functionBody(n *sitter.Node) tree.Node {
	if b := childOfType(n, "block"); b != nil {
		return c.block(b)
	}
	if childOfType(n, "{") != nil {
		return c.block(n)
	}
	ops := operands(n)
	if len(ops) == 0 {
		return nil
	}
	return c.expr(ops[0])
}

func (c *converter) property(n *sitter.Node, local bool) *tree.Property {
	p := &tree.Property{Local: local}
	expectInit := false
	for _, ch := range children(n) {
		t := ch.Type()
		switch {
		case t == "modifiers":
			p.Modifiers = c.modifiers(ch)
		case t == "val":
			p.ReadOnly = true
		case t == "binding_pattern_kind":
			p.ReadOnly = strings.TrimSpace(c.text(ch)) == "val"
		case t == "variable_declaration":
			if id := childOfType(ch, "simple_identifier"); id != nil {
				p.Name = c.text(id)
			}
			for _, part := range children(ch) {
				if typeKinds[part.Type()] {
					p.Type = c.typeText(part)
					break
				}
			}
		case t == "multi_variable_declaration":
			p.Name = compact(c.text(ch))
		case t == "=":
			expectInit = true
		case expectInit && (ch.IsNamed() || t == "null") && !isComment(t):
			p.Initializer = c.expr(ch)
			expectInit = false
		}
	}
	return setSpan(p, n)
}

func (c *converter) assignment(n *sitter.Node) tree.Node {
	ops := operands(n)
	if len(ops) < 2 {
		return c.bad(n)
	}
	target, value := ops[0], ops[len(ops)-1]
	op := strings.TrimSpace(string(c.src[target.EndByte():value.StartByte()]))
	return setSpan(&tree.Assignment{
		Op:     op,
		Target: c.assignable(target),
		Value:  c.expr(value),
	}, n)
}

func (c *converter) assignable(n *sitter.Node) tree.Expr {
	if n.Type() != "directly_assignable_expression" {
		return c.expr(n)
	}
	ops := operands(n)
	switch {
	case len(ops) == 1:
		return c.expr(ops[0])
	case len(ops) == 2 && ops[1].Type() == "navigation_suffix":
		return c.navigation(n, ops[0], ops[1])
	}
	return c.bad(n)
}

func (c *converter) expr(n *sitter.Node) tree.Expr {
	t := n.Type()
	switch t {
	case "simple_identifier":
		return setSpan(&tree.Ident{Name: c.text(n)}, n)
	case "this_expression":
		th := &tree.This{}
		if i := strings.IndexByte(c.text(n), '@'); i >= 0 {
			th.Label = c.text(n)[i+1:]
		}
		return setSpan(th, n)
	case "parenthesized_expression":
		ops := operands(n)
		if len(ops) == 0 {
			return c.bad(n)
		}
		return setSpan(&tree.Paren{X: c.expr(ops[0])}, n)
	case "string_literal", "line_string_literal", "multi_line_string_literal":
		return c.template(n)
	case "integer_literal", "hex_literal", "bin_literal", "long_literal", "unsigned_literal":
		return c.intLit(n)
	case "real_literal":
		return setSpan(&tree.FloatLit{Text: c.text(n)}, n)
	case "boolean_literal":
		return setSpan(&tree.BoolLit{Value: c.text(n) == "true"}, n)
	case "character_literal":
		return c.charLit(n)
	case "null", "null_literal":
		return setSpan(&tree.NullLit{}, n)
	case "call_expression":
		return c.call(n)
	case "navigation_expression":
		ops := operands(n)
		if len(ops) == 2 && ops[1].Type() == "navigation_suffix" {
			return c.navigation(n, ops[0], ops[1])
		}
	case "as_expression":
		return c.cast(n)
	case "prefix_expression", "postfix_expression":
		return c.unary(n)
	case "lambda_literal":
		return c.lambda(n)
	case "annotated_lambda":
		if l := childOfType(n, "lambda_literal"); l != nil {
			return c.lambda(l)
		}
	}
	if binaryKinds[t] {
		return c.binary(n)
	}
	return c.bad(n)
}

// bad wraps an unmodelled construct, converting its children.
func (c *converter) bad(n *sitter.Node) *tree.Bad {
	b := &tree.Bad{Text: n.Type()}
	for _, ch := range operands(n) {
		if typeKinds[ch.Type()] {
			continue
		}
		if s := c.stmt(ch); s != nil {
			b.Nested = append(b.Nested, s)
		}
	}
	return setSpan(b, n)
}

func (c *converter) navigation(n, recv, suffix *sitter.Node) tree.Expr {
	sel := childOfType(suffix, "simple_identifier")
	if sel == nil {
		return c.bad(n)
	}
	q := &tree.Qualified{
		X:    c.expr(recv),
		Sel:  setSpan(&tree.Ident{Name: c.text(sel)}, sel),
		Safe: strings.HasPrefix(strings.TrimSpace(c.text(suffix)), "?."),
	}
	return setSpan(q, n)
}

// call converts a call expression. A member call `x.f(a)` becomes a
// qualified expression whose selector is the call `f(a)`.
func (c *converter) call(n *sitter.Node) tree.Expr {
	ops := operands(n)
	if len(ops) == 0 {
		return c.bad(n)
	}
	callee := ops[0]
	call := &tree.Call{}
	suffix := childOfType(n, "call_suffix")
	if suffix != nil {
		call.Args, call.Lambda = c.callSuffix(suffix)
	}
	// `f(a) { ... }` parses as a call whose callee is the call `f(a)` and
	// whose suffix holds only the lambda. The lambda belongs to f.
	if callee.Type() == "call_expression" && call.Lambda != nil && childOfType(suffix, "value_arguments") == nil {
		fun := c.call(callee)
		if inner := trailingTarget(fun); inner != nil {
			inner.Call.Lambda = call.Lambda
			tree.SetSpan(inner.Call, tree.Span{Start: inner.Call.Pos(), End: span(n).End})
			if inner.Qualified != nil {
				tree.SetSpan(inner.Qualified, span(n))
				return inner.Qualified
			}
			return inner.Call
		}
		call.Fun = fun
		return setSpan(call, n)
	}
	if callee.Type() == "navigation_expression" {
		parts := operands(callee)
		if len(parts) == 2 && parts[1].Type() == "navigation_suffix" {
			if sel := childOfType(parts[1], "simple_identifier"); sel != nil {
				call.Fun = setSpan(&tree.Ident{Name: c.text(sel)}, sel)
				tree.SetSpan(call, tree.Span{Start: span(sel).Start, End: span(n).End})
				q := &tree.Qualified{
					X:    c.expr(parts[0]),
					Sel:  call,
					Safe: strings.HasPrefix(strings.TrimSpace(c.text(parts[1])), "?."),
				}
				return setSpan(q, n)
			}
		}
	}
	call.Fun = c.expr(callee)
	return setSpan(call, n)
}

type lambdaTarget struct {
	Call      *tree.Call
	Qualified *tree.Qualified
}

// trailingTarget returns the call a trailing lambda attaches to when e is
// a plain or member call that has no lambda of its own.
func trailingTarget(e tree.Expr) *lambdaTarget {
	switch e := e.(type) {
	case *tree.Call:
		if e.Lambda == nil {
			return &lambdaTarget{Call: e}
		}
	case *tree.Qualified:
		if sel, ok := e.Sel.(*tree.Call); ok && sel.Lambda == nil {
			return &lambdaTarget{Call: sel, Qualified: e}
		}
	}
	return nil
}

func (c *converter) callSuffix(n *sitter.Node) ([]*tree.Argument, *tree.Lambda) {
	var (
		args   []*tree.Argument
		lambda *tree.Lambda
	)
	for _, ch := range children(n) {
		switch ch.Type() {
		case "value_arguments":
			for _, arg := range children(ch) {
				if arg.Type() == "value_argument" {
					args = append(args, c.argument(arg))
				}
			}
		case "annotated_lambda":
			if l := childOfType(ch, "lambda_literal"); l != nil {
				lambda = c.lambda(l)
			}
		case "lambda_literal":
			lambda = c.lambda(ch)
		}
	}
	return args, lambda
}

func (c *converter) argument(n *sitter.Node) *tree.Argument {
	arg := &tree.Argument{}
	named := false
	for _, ch := range children(n) {
		switch ch.Type() {
		case "=":
			named = true
		case "*":
			arg.Spread = true
		}
	}
	ops := operands(n)
	if named && len(ops) >= 2 {
		arg.Name = c.text(ops[0])
		ops = ops[1:]
	}
	if len(ops) > 0 {
		arg.Value = c.expr(ops[len(ops)-1])
	}
	return setSpan(arg, n)
}

func (c *converter) lambda(n *sitter.Node) *tree.Lambda {
	l := &tree.Lambda{}
	body := &tree.Block{}
	for _, ch := range children(n) {
		switch ch.Type() {
		case "lambda_parameters":
			for _, p := range children(ch) {
				if p.Type() != "variable_declaration" && p.Type() != "multi_variable_declaration" {
					continue
				}
				param := &tree.Parameter{}
				if id := childOfType(p, "simple_identifier"); id != nil && p.Type() == "variable_declaration" {
					param.Name = c.text(id)
				} else {
					param.Name = compact(c.text(p))
				}
				for _, part := range children(p) {
					if typeKinds[part.Type()] {
						param.Type = c.typeText(part)
						break
					}
				}
				l.Params = append(l.Params, setSpan(param, p))
			}
		case "statements":
			body.Stmts = append(body.Stmts, c.statements(ch)...)
		default:
			if ch.IsNamed() && !isComment(ch.Type()) {
				if s := c.stmt(ch); s != nil {
					body.Stmts = append(body.Stmts, s)
				}
			}
		}
	}
	l.Body = setSpan(body, n)
	return setSpan(l, n)
}

func (c *converter) template(n *sitter.Node) tree.Expr {
	raw := strings.HasPrefix(c.text(n), `"""`)
	st := &tree.StringTemplate{Raw: raw}
	addText := func(s string, at *sitter.Node) {
		if k := len(st.Entries); k > 0 {
			if prev, ok := st.Entries[k-1].(*tree.TemplateText); ok {
				prev.Text += s
				prev.Span.End = span(at).End
				return
			}
		}
		st.Entries = append(st.Entries, setSpan(&tree.TemplateText{Text: s}, at))
	}
	addExpr := func(x tree.Expr, at *sitter.Node) {
		st.Entries = append(st.Entries, setSpan(&tree.TemplateExpr{X: x}, at))
	}
	for _, ch := range children(n) {
		switch ch.Type() {
		case "string_content", "line_str_text", "multi_line_str_text":
			if raw {
				addText(c.text(ch), ch)
			} else {
				addText(unescape(c.text(ch)), ch)
			}
		case "escape_sequence", "character_escape_seq", "line_str_escaped_char":
			addText(unescape(c.text(ch)), ch)
		case "interpolated_identifier":
			addExpr(setSpan(&tree.Ident{Name: c.text(ch)}, ch), ch)
		case "interpolated_expression", "interpolation", "line_str_ref", "multi_line_str_ref":
			ops := operands(ch)
			if len(ops) == 0 {
				name := strings.TrimPrefix(c.text(ch), "$")
				addExpr(setSpan(&tree.Ident{Name: name}, ch), ch)
				continue
			}
			addExpr(c.expr(ops[0]), ch)
		case "simple_identifier":
			addExpr(c.expr(ch), ch)
		default:
			if ch.IsNamed() && !isComment(ch.Type()) {
				addExpr(c.expr(ch), ch)
			}
		}
	}
	return setSpan(st, n)
}

func (c *converter) intLit(n *sitter.Node) tree.Expr {
	text := c.text(n)
	lit := &tree.IntLit{Text: text}
	s := strings.ReplaceAll(text, "_", "")
	if strings.HasSuffix(s, "L") || strings.HasSuffix(s, "l") {
		lit.Long = true
		s = s[:len(s)-1]
	}
	s = strings.TrimRight(s, "uU")
	base := 10
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		base, s = 2, s[2:]
	}
	if v, err := strconv.ParseInt(s, base, 64); err == nil {
		lit.Value = v
	} else if u, err := strconv.ParseUint(s, base, 64); err == nil {
		lit.Value = int64(u)
	}
	return setSpan(lit, n)
}

func (c *converter) charLit(n *sitter.Node) tree.Expr {
	inner := strings.TrimSuffix(strings.TrimPrefix(c.text(n), "'"), "'")
	r, _ := utf8.DecodeRuneInString(unescape(inner))
	return setSpan(&tree.CharLit{Value: r}, n)
}

func (c *converter) cast(n *sitter.Node) tree.Expr {
	ops := operands(n)
	if len(ops) < 2 {
		return c.bad(n)
	}
	cast := &tree.Cast{X: c.expr(ops[0]), Type: c.typeText(ops[len(ops)-1])}
	for _, ch := range children(n) {
		if ch.Type() == "as?" {
			cast.Safe = true
		}
	}
	return setSpan(cast, n)
}

func (c *converter) unary(n *sitter.Node) tree.Expr {
	ops := operands(n)
	if len(ops) == 0 {
		return c.bad(n)
	}
	u := &tree.Unary{Postfix: n.Type() == "postfix_expression"}
	if u.Postfix {
		x := ops[0]
		u.X = c.expr(x)
		u.Op = strings.TrimSpace(string(c.src[x.EndByte():n.EndByte()]))
	} else {
		x := ops[len(ops)-1]
		u.X = c.expr(x)
		u.Op = strings.TrimSpace(string(c.src[n.StartByte():x.StartByte()]))
	}
	if u.Op == "" || strings.ContainsAny(u.Op, "@ \t\n") {
		// Annotated or labeled expressions are transparent.
		return u.X
	}
	return setSpan(u, n)
}

func (c *converter) binary(n *sitter.Node) tree.Expr {
	ops := operands(n)
	if len(ops) < 2 {
		return c.bad(n)
	}
	x, y := ops[0], ops[len(ops)-1]
	b := &tree.Binary{X: c.expr(x)}
	if len(ops) == 3 && n.Type() == "infix_expression" {
		b.Op = c.text(ops[1])
	} else {
		b.Op = strings.TrimSpace(string(c.src[x.EndByte():y.StartByte()]))
	}
	if typeKinds[y.Type()] {
		b.Y = setSpan(&tree.Bad{Text: c.typeText(y)}, y)
	} else {
		b.Y = c.expr(y)
	}
	return setSpan(b, n)
}

// typeText returns the source text of a type with whitespace and type
// arguments removed.
func (c *converter) typeText(n *sitter.Node) string {
	s := compact(c.text(n))
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// unescape decodes Kotlin string escapes. Malformed escapes are kept
// verbatim.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i+1 >= len(s) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case '0':
			b.WriteByte(0)
		case '\\', '\'', '"', '$':
			b.WriteByte(s[i])
		case 'u':
			if i+4 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
					b.WriteRune(rune(v))
					i += 4
					continue
				}
			}
			b.WriteString(`\u`)
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
