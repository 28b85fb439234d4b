// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
)

// textDocumentDocumentSymbol handles the textDocument/documentSymbol request.
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	unit, err := doc.Unit(context.Background(), s.lib)
	if err != nil {
		return nil, nil
	}
	// Return as []DocumentSymbol (the preferred hierarchical form).
	return documentSymbols(unit.Model, unit.File.Decls, false), nil
}

// documentSymbols outlines declarations. Local declarations inside
// function bodies are not reported.
func documentSymbols(model symbol.Model, decls []tree.Node, member bool) []protocol.DocumentSymbol {
	symbols := []protocol.DocumentSymbol{}
	for _, d := range decls {
		var ds protocol.DocumentSymbol
		switch d := d.(type) {
		case *tree.Class:
			ds = protocol.DocumentSymbol{Name: d.Name, Kind: classKind(d)}
			ds.Children = documentSymbols(model, d.Members, true)
		case *tree.Function:
			ds = protocol.DocumentSymbol{Name: d.Name, Kind: protocol.SymbolKindFunction}
			if member {
				ds.Kind = protocol.SymbolKindMethod
			}
		case *tree.Property:
			ds = protocol.DocumentSymbol{Name: d.Name, Kind: protocol.SymbolKindProperty}
			if d.ReadOnly && hasModifier(d.Modifiers, "const") {
				ds.Kind = protocol.SymbolKindConstant
			}
		default:
			continue
		}
		if ds.Name == "" || !d.Pos().IsValid() {
			continue
		}
		ds.Detail = symbolDetail(model, d)
		ds.Range = nodeRange(d)
		ds.SelectionRange = ds.Range
		symbols = append(symbols, ds)
	}
	return symbols
}

func classKind(c *tree.Class) protocol.SymbolKind {
	switch {
	case c.Interface:
		return protocol.SymbolKindInterface
	case c.Object:
		return protocol.SymbolKindObject
	default:
		return protocol.SymbolKindClass
	}
}

// symbolDetail builds a short detail string (e.g., function signature).
func symbolDetail(model symbol.Model, decl tree.Node) *string {
	sym, ok := model.Declared(decl)
	if !ok {
		return nil
	}
	s := sym.String()
	return &s
}

func hasModifier(mods []string, m string) bool {
	for _, x := range mods {
		if x == m {
			return true
		}
	}
	return false
}
