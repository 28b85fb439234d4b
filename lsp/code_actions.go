// Copyright © 2024 The ELPS authors

package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/kvet/lint"
)

// textDocumentCodeAction handles the textDocument/codeAction request.
// It offers a nolint suppression for each lint diagnostic in the context.
func (s *Server) textDocumentCodeAction(_ *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}

	// If the client only wants specific kinds, check we support them.
	if len(params.Context.Only) > 0 {
		if !slicesContains(params.Context.Only, protocol.CodeActionKindQuickFix) {
			return nil, nil
		}
	}

	doc.mu.Lock()
	content := doc.Content
	doc.mu.Unlock()

	var actions []protocol.CodeAction
	for _, diag := range params.Context.Diagnostics {
		// Only handle diagnostics from our source.
		if diag.Source == nil || *diag.Source != diagnosticSource || diag.Code == nil {
			continue
		}
		analyzer := fmt.Sprintf("%v", diag.Code.Value)
		// Syntax errors cannot be suppressed.
		if analyzer == "" || analyzer == lint.SyntaxAnalyzer {
			continue
		}
		actions = append(actions,
			suppressLintAction(params.TextDocument.URI, diag, analyzer, content))
	}

	if len(actions) == 0 {
		return nil, nil
	}
	return actions, nil
}

// suppressLintAction creates a code action that adds a // nolint:analyzer
// comment to the end of the diagnostic line.
func suppressLintAction(uri string, diag protocol.Diagnostic, analyzer, content string) protocol.CodeAction {
	line := int(diag.Range.Start.Line)
	lines := strings.Split(content, "\n")
	lineEnd := 0
	if line >= 0 && line < len(lines) {
		lineEnd = len(strings.TrimRight(lines[line], "\r"))
	}

	kind := protocol.CodeActionKindQuickFix
	insertPos := protocol.Position{Line: diag.Range.Start.Line, Character: safeUint(lineEnd)}
	return protocol.CodeAction{
		Title:       fmt.Sprintf("Suppress with // nolint:%s", analyzer),
		Kind:        &kind,
		Diagnostics: []protocol.Diagnostic{diag},
		Edit: &protocol.WorkspaceEdit{
			Changes: map[string][]protocol.TextEdit{
				uri: {
					{
						Range:   protocol.Range{Start: insertPos, End: insertPos},
						NewText: " // nolint:" + analyzer,
					},
				},
			},
		},
	}
}

func slicesContains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
