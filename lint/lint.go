// Copyright © 2024 The ELPS authors

// Package lint provides static analysis for Kotlin source files.
//
// The linter is modeled after go vet: each check is an independent Analyzer
// that receives a bound syntax tree and reports diagnostics. The framework
// handles parsing, binding, running analyzers, collecting results, and
// formatting output.
//
// Analyzers are composable and extensible. Embedders can define custom
// checks alongside the built-in set.
package lint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/luthersystems/kvet/frontend"
	"github.com/luthersystems/kvet/resolve"
	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
)

// TracerName is the instrumentation name of the linter's spans.
const TracerName = "github.com/luthersystems/kvet/lint"

// SyntaxAnalyzer is the analyzer name attached to syntax error diagnostics.
const SyntaxAnalyzer = "syntax"

// Severity indicates the severity level of a lint diagnostic.
type Severity int

const (
	severityUnset Severity = iota // unexported zero sentinel for default detection
	SeverityError
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// ParseSeverity parses the names produced by Severity.String. The empty
// string parses as the unset severity.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(name) {
	case "":
		return severityUnset, nil
	case "error":
		return SeverityError, nil
	case "warning":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	default:
		return severityUnset, fmt.Errorf("unknown severity: %q", name)
	}
}

// MarshalJSON serializes the severity as a JSON string.
// An unset severity (zero value) is marshaled as "warning".
func (s Severity) MarshalJSON() ([]byte, error) {
	if s == severityUnset {
		return json.Marshal("warning")
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON deserializes a severity from a JSON string.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	sev, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	if sev == severityUnset {
		return fmt.Errorf("unknown severity: %q", str)
	}
	*s = sev
	return nil
}

// Analyzer defines a single lint check.
type Analyzer struct {
	// Name is a short identifier for this check (e.g. "weak-hash").
	Name string

	// Doc is a human-readable description. The first line is a short summary.
	Doc string

	// Severity is the default severity for diagnostics from this analyzer.
	Severity Severity

	// Run executes the check. It should call pass.Report() for each finding.
	Run func(pass *Pass) error
}

// Pass provides context to a running analyzer.
type Pass struct {
	// Analyzer is the currently running check.
	Analyzer *Analyzer

	// Filename is the source file being analyzed.
	Filename string

	// Unit is the parsed and bound file.
	Unit *frontend.Unit

	// File is the root of the syntax tree. It is Unit.File.
	File *tree.File

	// Model answers resolution and typing questions about File.
	Model symbol.Model

	// Resolver resolves expressions of File to their static values.
	Resolver *resolve.Resolver

	ctx context.Context

	// diagnostics collects reported findings.
	diagnostics []Diagnostic
}

// Context returns the context of the lint run.
func (p *Pass) Context() context.Context {
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}

// Report records a diagnostic finding.
func (p *Pass) Report(d Diagnostic) {
	d.Analyzer = p.Analyzer.Name
	if d.Severity == severityUnset {
		d.Severity = p.Analyzer.Severity
	}
	p.diagnostics = append(p.diagnostics, d)
}

// ReportWithNotes records a diagnostic with additional hint text.
func (p *Pass) ReportWithNotes(d Diagnostic, notes ...string) {
	d.Notes = append(d.Notes, notes...)
	p.Report(d)
}

// Reportf is a convenience for reporting a diagnostic at a node.
func (p *Pass) Reportf(n tree.Node, format string, args ...interface{}) {
	p.Report(p.At(n, format, args...))
}

// At builds a diagnostic covering n without reporting it.
func (p *Pass) At(n tree.Node, format string, args ...interface{}) Diagnostic {
	d := Diagnostic{Message: fmt.Sprintf(format, args...)}
	if !tree.IsNil(n) {
		d.Pos = p.position(n.Pos())
		d.End = p.position(n.End())
	}
	return d
}

// ReportValue reports a diagnostic at n whose message depends on the static
// value v.
func (p *Pass) ReportValue(n tree.Node, v resolve.Value, format string, args ...interface{}) {
	p.Report(p.ValueAt(n, v, format, args...))
}

// ValueAt builds a diagnostic at n like At. The declarations v was resolved
// through are attached as secondary locations.
func (p *Pass) ValueAt(n tree.Node, v resolve.Value, format string, args ...interface{}) Diagnostic {
	d := p.At(n, format, args...)
	for _, decl := range v.Declarations {
		if tree.IsNil(decl) || decl == n {
			continue
		}
		d.Secondary = append(d.Secondary, Related{
			Pos:     p.position(decl.Pos()),
			End:     p.position(decl.End()),
			Message: "value defined here",
		})
	}
	return d
}

func (p *Pass) position(pos tree.Pos) Position {
	return Position{File: p.Filename, Line: pos.Line, Col: pos.Col}
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	// Pos is the source location of the problem.
	Pos Position `json:"pos"`

	// End is the end of the problem's source range. Its Line is zero
	// when unknown.
	End Position `json:"end"`

	// Message is a human-readable description of the problem.
	Message string `json:"message"`

	// Analyzer is the name of the check that found this problem.
	Analyzer string `json:"analyzer"`

	// Severity is the severity level of the diagnostic.
	Severity Severity `json:"severity"`

	// Notes are optional hint text lines for the user.
	Notes []string `json:"notes,omitempty"`

	// Secondary are related locations, such as the declarations a value
	// was traced through.
	Secondary []Related `json:"secondary,omitempty"`
}

// Related is a secondary location of a diagnostic.
type Related struct {
	Pos     Position `json:"pos"`
	End     Position `json:"end"`
	Message string   `json:"message"`
}

// Position identifies a location in source code.
type Position struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col,omitempty"`
}

// String returns the position in file:line format.
func (p Position) String() string {
	if p.Line == 0 {
		return p.File
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// String returns the diagnostic in go vet style: file:line: message (analyzer)
// with optional note and secondary location lines appended.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s (%s)", d.Pos, d.Message, d.Analyzer)
	for _, r := range d.Secondary {
		s += fmt.Sprintf("\n  %s: %s", r.Pos, r.Message)
	}
	for _, n := range d.Notes {
		s += "\n  = note: " + n
	}
	return s
}

// Linter runs a set of analyzers over source files. A Linter may be used by
// concurrent goroutines once configured.
type Linter struct {
	Analyzers []*Analyzer

	// Library holds the stub declarations calls are resolved against.
	// When nil the embedded default library is used.
	Library *symbol.Library

	// ResolveOptions configure the resolver handed to analyzers.
	ResolveOptions []resolve.Option

	// Workers bounds the files LintFiles analyzes in parallel. Values
	// below 1 mean GOMAXPROCS.
	Workers int

	// Log receives per-file debug events. When nil nothing is logged.
	Log logrus.FieldLogger

	// Tracer creates the linter's spans. When nil the global tracer
	// provider is used.
	Tracer trace.Tracer

	libOnce sync.Once
	lib     *symbol.Library
}

var discard = func() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}()

func (l *Linter) logger() logrus.FieldLogger {
	if l.Log != nil {
		return l.Log
	}
	return discard
}

func (l *Linter) tracer() trace.Tracer {
	if l.Tracer != nil {
		return l.Tracer
	}
	return otel.Tracer(TracerName)
}

func (l *Linter) library() *symbol.Library {
	l.libOnce.Do(func() {
		l.lib = l.Library
		if l.lib == nil {
			l.lib = symbol.DefaultLibrary()
		}
	})
	return l.lib
}

func (l *Linter) workers() int {
	if l.Workers > 0 {
		return l.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// LintFile parses, binds and analyzes a single source file and returns all
// diagnostics. Syntax errors are reported as diagnostics of the "syntax"
// analyzer; only unreadable input and failing analyzers produce an error.
func (l *Linter) LintFile(ctx context.Context, source []byte, filename string) ([]Diagnostic, error) {
	ctx, span := l.tracer().Start(ctx, "kvet.lint.file",
		trace.WithAttributes(attribute.String("kvet.file", filename)))
	defer span.End()

	unit, err := frontend.Load(ctx, source, filename, l.library())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	all, err := l.LintUnit(ctx, unit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("kvet.diagnostics", len(all)))
	return all, nil
}

// LintUnit analyzes an already loaded file.
func (l *Linter) LintUnit(ctx context.Context, unit *frontend.Unit) ([]Diagnostic, error) {
	filename := unit.Name
	log := l.logger().WithField("file", filename)
	resolver := resolve.New(unit.Model, l.ResolveOptions...)

	var all []Diagnostic
	for _, e := range unit.Errors {
		all = append(all, Diagnostic{
			Pos:      Position{File: filename, Line: e.Span.Start.Line, Col: e.Span.Start.Col},
			End:      Position{File: filename, Line: e.Span.End.Line, Col: e.Span.End.Col},
			Message:  fmt.Sprintf("syntax error near %q", e.Text),
			Analyzer: SyntaxAnalyzer,
			Severity: SeverityError,
		})
	}

	for _, analyzer := range l.Analyzers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, span := l.tracer().Start(ctx, "kvet.lint.analyzer",
			trace.WithAttributes(attribute.String("kvet.analyzer", analyzer.Name)))
		pass := &Pass{
			Analyzer: analyzer,
			Filename: filename,
			Unit:     unit,
			File:     unit.File,
			Model:    unit.Model,
			Resolver: resolver,
			ctx:      ctx,
		}
		if err := analyzer.Run(pass); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return nil, fmt.Errorf("%s: analyzer %s: %w", filename, analyzer.Name, err)
		}
		span.SetAttributes(attribute.Int("kvet.diagnostics", len(pass.diagnostics)))
		span.End()
		log.WithFields(logrus.Fields{
			"analyzer":    analyzer.Name,
			"diagnostics": len(pass.diagnostics),
		}).Debug("analyzer finished")
		// Set file on diagnostics that don't have one
		for i := range pass.diagnostics {
			if pass.diagnostics[i].Pos.File == "" {
				pass.diagnostics[i].Pos.File = filename
			}
		}
		all = append(all, pass.diagnostics...)
	}

	// Filter suppressed diagnostics (// nolint comments)
	all = filterSuppressed(all, nolintLines(unit))
	sortDiagnostics(all)
	log.WithField("diagnostics", len(all)).Debug("file linted")
	return all, nil
}

// LintFiles reads and analyzes the files at paths in parallel. The result
// is sorted by file and position, independent of scheduling. The first
// error cancels the remaining files.
func (l *Linter) LintFiles(ctx context.Context, paths []string) ([]Diagnostic, error) {
	results := make([][]Diagnostic, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			diags, err := l.LintFile(ctx, src, path)
			if err != nil {
				return err
			}
			results[i] = diags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var all []Diagnostic
	for _, r := range results {
		all = append(all, r...)
	}
	sortDiagnostics(all)
	return all, nil
}

func sortDiagnostics(all []Diagnostic) {
	// Sort by file, then line, then column
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i].Pos, all[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return all[i].Analyzer < all[j].Analyzer
	})
}

// filterSuppressed removes diagnostics on lines with nolint directives.
func filterSuppressed(diags []Diagnostic, lines map[int]string) []Diagnostic {
	if len(lines) == 0 {
		return diags
	}
	var filtered []Diagnostic
	for _, d := range diags {
		directive, ok := lines[d.Pos.Line]
		if !ok {
			filtered = append(filtered, d)
			continue
		}
		// Empty directive = suppress all
		if directive == "" {
			continue
		}
		// Check if this specific analyzer is suppressed
		suppressed := false
		for _, name := range strings.Split(directive, ",") {
			if strings.TrimSpace(name) == d.Analyzer {
				suppressed = true
				break
			}
		}
		if !suppressed {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// nolintLines maps line numbers to nolint directives: "" suppresses every
// analyzer, otherwise a comma separated list of analyzer names. A trailing
// comment applies to its own line; a comment alone on its line applies to
// the next line.
func nolintLines(u *frontend.Unit) map[int]string {
	lines := make(map[int]string)
	var src [][]byte
	for _, c := range u.Comments {
		directive, ok := parseNolint(c.Text)
		if !ok {
			continue
		}
		line := c.Span.Start.Line
		if src == nil {
			src = bytes.Split(u.Source, []byte("\n"))
		}
		if line-1 < len(src) && c.Span.Start.Col > 0 {
			text := src[line-1]
			col := c.Span.Start.Col - 1
			if col <= len(text) && len(bytes.TrimSpace(text[:col])) == 0 {
				line++
			}
		}
		lines[line] = directive
	}
	return lines
}

func parseNolint(comment string) (string, bool) {
	text := strings.TrimSpace(comment)
	// Strip comment delimiters
	switch {
	case strings.HasPrefix(text, "//"):
		text = strings.TrimPrefix(text, "//")
	case strings.HasPrefix(text, "/*"):
		text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
	}
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "nolint") {
		return "", false
	}
	rest := strings.TrimPrefix(text, "nolint")
	if rest == "" || strings.HasPrefix(rest, " ") {
		return "", true
	}
	if strings.HasPrefix(rest, ":") {
		names := strings.TrimPrefix(rest, ":")
		if i := strings.IndexAny(names, " \t"); i >= 0 {
			names = names[:i]
		}
		return names, true
	}
	return "", false
}

// FormatText writes diagnostics in go vet text format.
func FormatText(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String()) //nolint:errcheck // best-effort output to writer
	}
}

// FormatJSON writes diagnostics as JSON.
func FormatJSON(w io.Writer, diags []Diagnostic) error {
	if diags == nil {
		diags = []Diagnostic{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(diags)
}
