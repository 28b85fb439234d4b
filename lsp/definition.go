// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/kvet/tree"
)

// textDocumentDefinition handles the textDocument/definition request.
// Only declarations in the same file are navigable; library stubs have no
// source.
func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
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
	sym := symbolOf(unit.Model, target)
	if sym == nil {
		return nil, nil
	}
	decl, ok := unit.Model.Declaration(sym)
	if !ok || tree.IsNil(decl) || !decl.Pos().IsValid() {
		return nil, nil
	}

	return protocol.Location{
		URI:   params.TextDocument.URI,
		Range: nodeRange(decl),
	}, nil
}
