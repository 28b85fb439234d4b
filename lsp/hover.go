// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/kvet/resolve"
	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
)

// textDocumentHover handles the textDocument/hover request. It shows the
// symbol under the cursor and, when the expression folds to a constant,
// its static value.
func (s *Server) textDocumentHover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	unit, err := doc.Unit(context.Background(), s.lib)
	if err != nil {
		return nil, nil
	}

	target := hoverTarget(nodeAt(unit.File, fromLSPPosition(params.Position)))
	if target == nil {
		return nil, nil
	}
	r := resolve.New(unit.Model, s.linter.ResolveOptions...)
	content := buildHoverContent(symbolOf(unit.Model, target), staticValue(r, target))
	if content == "" {
		return nil, nil
	}

	rng := nodeRange(target)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: content,
		},
		Range: &rng,
	}, nil
}

// hoverTarget widens n to the node a hover describes: the call whose name
// is under the cursor, or the nearest enclosing expression or declaration.
func hoverTarget(n tree.Node) tree.Node {
	for ; !tree.IsNil(n); n = n.Parent() {
		switch n := n.(type) {
		case *tree.Property, *tree.Function, *tree.Parameter, *tree.Class:
			return n
		case tree.Expr:
			if c, ok := n.Parent().(*tree.Call); ok && c.Fun == n {
				return c
			}
			return n
		}
	}
	return nil
}

// symbolOf returns the symbol n calls, refers to or declares.
func symbolOf(model symbol.Model, n tree.Node) *symbol.Symbol {
	if rc, ok := model.Call(n); ok {
		return rc.Symbol
	}
	if sym, ok := model.Reference(n); ok {
		return sym
	}
	if sym, ok := model.Declared(n); ok {
		return sym
	}
	return nil
}

// staticValue renders the constant n evaluates to. For a property the
// initializer is evaluated.
func staticValue(r *resolve.Resolver, n tree.Node) string {
	var e tree.Expr
	switch n := n.(type) {
	case *tree.Property:
		e = n.Initializer
	case tree.Expr:
		e = n
	}
	if tree.IsNil(e) {
		return ""
	}
	v, ok := r.Format(e)
	if !ok {
		return ""
	}
	return v
}

// buildHoverContent builds Markdown hover text.
func buildHoverContent(sym *symbol.Symbol, value string) string {
	var sb strings.Builder
	if sym != nil {
		// Header: **kind** `name`
		fmt.Fprintf(&sb, "**%s** `%s`", sym.Kind, sym.Name)
		fmt.Fprintf(&sb, "\n\n```kotlin\n%s\n```", sym)
	}
	if value != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Static value: `%s`", value)
	}
	return sb.String()
}
