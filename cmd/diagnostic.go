// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"io"

	"github.com/luthersystems/kvet/diagnostic"
	lintpkg "github.com/luthersystems/kvet/lint"
)

func colorMode() (diagnostic.ColorMode, error) {
	mode, ok := diagnostic.ParseColorMode(colorFlag)
	if !ok {
		return diagnostic.ColorAuto, usageError(fmt.Errorf("invalid --color %q: want auto, always or never", colorFlag))
	}
	return mode, nil
}

func newRenderer() (*diagnostic.Renderer, error) {
	mode, err := colorMode()
	if err != nil {
		return nil, err
	}
	return &diagnostic.Renderer{Color: mode}, nil
}

func severity(s lintpkg.Severity) diagnostic.Severity {
	switch s {
	case lintpkg.SeverityError:
		return diagnostic.SeverityError
	case lintpkg.SeverityInfo:
		return diagnostic.SeverityNote
	default:
		return diagnostic.SeverityWarning
	}
}

// span converts a lint range. The end column of a lint range is exclusive
// and is only kept when the range ends on its starting line.
func span(pos, end lintpkg.Position, label string, secondary bool) diagnostic.Span {
	s := diagnostic.Span{
		File:      pos.File,
		Line:      pos.Line,
		Col:       pos.Col,
		Label:     label,
		Secondary: secondary,
	}
	if end.Line == pos.Line && end.Col > pos.Col {
		s.EndCol = end.Col - 1
	}
	return s
}

// lintDiagToDiagnostic converts a lint.Diagnostic to a diagnostic.Diagnostic.
func lintDiagToDiagnostic(ld lintpkg.Diagnostic) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{
		Severity: severity(ld.Severity),
		Code:     ld.Analyzer,
		Message:  ld.Message,
	}
	if ld.Pos.Line > 0 {
		d.Spans = append(d.Spans, span(ld.Pos, ld.End, "", false))
	}
	for _, r := range ld.Secondary {
		if r.Pos.Line > 0 {
			d.Spans = append(d.Spans, span(r.Pos, r.End, r.Message, true))
		}
	}
	d.Notes = append(d.Notes, ld.Notes...)
	if ld.Analyzer != lintpkg.SyntaxAnalyzer {
		d.Notes = append(d.Notes, "to suppress: add \"// nolint:"+ld.Analyzer+"\" at the end of this line")
	}
	return d
}

// renderLintDiagnostics renders lint diagnostics with diagnostic formatting to w.
func renderLintDiagnostics(r *diagnostic.Renderer, w io.Writer, diags []lintpkg.Diagnostic) {
	ds := make([]diagnostic.Diagnostic, 0, len(diags))
	for _, ld := range diags {
		ds = append(ds, lintDiagToDiagnostic(ld))
	}
	_ = r.RenderAll(w, ds)
}
