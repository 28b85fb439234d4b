// Copyright © 2024 The ELPS authors

package lsp

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/luthersystems/kvet/lint"
)

const (
	debounceDelay = 300 * time.Millisecond

	// diagnosticSource is the source of every published diagnostic.
	diagnosticSource = "kvet"
)

// textDocumentDidOpen handles the textDocument/didOpen notification.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureNotify(ctx)
	doc := s.docs.Open(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		params.TextDocument.Text,
	)
	s.analyzeAndPublish(doc)
	return nil
}

// textDocumentDidChange handles the textDocument/didChange notification.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(ctx)
	// With full sync, the last content change is the complete document.
	var content string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			content = c.Text
		}
	}

	doc := s.docs.Change(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		content,
	)

	// Debounce: delay analysis to avoid thrashing during rapid edits.
	s.debounceMu.Lock()
	if t, ok := s.debounce[doc.URI]; ok {
		t.Stop()
	}
	s.debounce[doc.URI] = time.AfterFunc(s.delay, func() {
		defer s.recoverAnalysis(doc.URI)
		d := s.docs.Get(doc.URI)
		if d != nil {
			s.analyzeAndPublish(d)
		}
	})
	s.debounceMu.Unlock()
	return nil
}

// textDocumentDidSave handles the textDocument/didSave notification.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.captureNotify(ctx)
	// Cancel any pending debounce and publish immediately.
	s.cancelDebounce(params.TextDocument.URI)

	doc := s.docs.Get(params.TextDocument.URI)
	if doc != nil {
		s.analyzeAndPublish(doc)
	}
	return nil
}

// textDocumentDidClose handles the textDocument/didClose notification.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.cancelDebounce(params.TextDocument.URI)

	// Clear diagnostics for the closed file.
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})

	s.docs.Close(params.TextDocument.URI)
	return nil
}

func (s *Server) cancelDebounce(uri string) {
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.debounceMu.Unlock()
}

// recoverAnalysis keeps a panicking analyzer from crashing the server.
func (s *Server) recoverAnalysis(uri string) {
	if r := recover(); r != nil {
		s.log.WithFields(logrus.Fields{"uri": uri, "panic": r}).Error("analysis panicked")
	}
}

// analyzeAndPublish lints a document and publishes the resulting
// diagnostics to the client.
func (s *Server) analyzeAndPublish(doc *Document) {
	ctx := context.Background()

	doc.mu.Lock()
	unit, err := doc.load(ctx, s.lib)
	uri := doc.URI
	version := doc.Version
	doc.mu.Unlock()

	log := s.log.WithFields(logrus.Fields{"uri": uri, "version": version})
	diags := []protocol.Diagnostic{}
	if err != nil {
		diags = append(diags, protocol.Diagnostic{
			Severity: severity(protocol.DiagnosticSeverityError),
			Source:   strPtr(diagnosticSource),
			Message:  err.Error(),
		})
	} else {
		lintDiags, err := s.linter.LintUnit(ctx, unit)
		if err != nil {
			log.WithError(err).Warn("lint failed")
		}
		for _, d := range lintDiags {
			diags = append(diags, convertLintDiagnostic(uri, d))
		}
	}
	log.WithField("diagnostics", len(diags)).Debug("publishing diagnostics")

	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     uintPtr(version),
		Diagnostics: diags,
	})
}

// convertLintDiagnostic converts a lint.Diagnostic to an LSP Diagnostic.
// Secondary locations become related information; notes are appended to
// the message.
func convertLintDiagnostic(uri string, d lint.Diagnostic) protocol.Diagnostic {
	msg := d.Message
	if len(d.Notes) > 0 {
		msg += "\n" + strings.Join(d.Notes, "\n")
	}
	sev := mapLintSeverity(d.Severity)
	out := protocol.Diagnostic{
		Range:    lintRange(d.Pos, d.End),
		Severity: &sev,
		Source:   strPtr(diagnosticSource),
		Code:     &protocol.IntegerOrString{Value: d.Analyzer},
		Message:  msg,
	}
	for _, r := range d.Secondary {
		loc := uri
		if r.Pos.File != "" && r.Pos.File != d.Pos.File {
			loc = pathToURI(r.Pos.File)
		}
		out.RelatedInformation = append(out.RelatedInformation, protocol.DiagnosticRelatedInformation{
			Location: protocol.Location{URI: loc, Range: lintRange(r.Pos, r.End)},
			Message:  r.Message,
		})
	}
	return out
}

// mapLintSeverity converts a lint.Severity to a protocol.DiagnosticSeverity.
func mapLintSeverity(sev lint.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case lint.SeverityError:
		return protocol.DiagnosticSeverityError
	case lint.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case lint.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityWarning
	}
}

func severity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func strPtr(s string) *string {
	return &s
}

func uintPtr(n int32) *protocol.UInteger {
	u := safeUint(int(n))
	return &u
}
