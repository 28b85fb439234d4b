// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Renderer formats diagnostics as Rust-style annotated source snippets. The
// zero value renders with color auto-detection and reads sources from disk.
type Renderer struct {
	// Color controls ANSI color output. Default is ColorAuto.
	Color ColorMode

	// SourceReader reads source file contents. If nil, os.ReadFile is used.
	SourceReader func(string) ([]byte, error)
}

// Render writes a single diagnostic to w.
func (r *Renderer) Render(w io.Writer, d Diagnostic) error {
	p := choosePalette(r.Color, fileFromWriter(w))
	bw := bufio.NewWriter(w)
	ew := &errWriter{w: bw}

	// Header: "error: message" or "warning[code]: message"
	r.writeHeader(ew, d, p)

	// Source spans
	sources := make(map[string][]string)
	prevFile := ""
	for i, span := range d.Spans {
		showLoc := i == 0 || !span.Secondary || span.File != prevFile
		r.writeSpan(ew, span, p, sources, showLoc)
		prevFile = span.File
	}

	// Notes
	for _, note := range d.Notes {
		ew.printf("   %s=%s note: %s\n", p.boldCyan, p.reset, note)
	}

	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

// RenderAll writes all diagnostics to w separated by blank lines.
func (r *Renderer) RenderAll(w io.Writer, diags []Diagnostic) error {
	for i, d := range diags {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := r.Render(w, d); err != nil {
			return err
		}
	}
	return nil
}

// errWriter wraps a writer and captures the first error, short-circuiting
// subsequent writes. This avoids checking every fmt.Fprintf return value.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, a...)
}

func (ew *errWriter) print(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (r *Renderer) writeHeader(ew *errWriter, d Diagnostic, p palette) {
	var sevColor, sevText string
	switch d.Severity {
	case SeverityError:
		sevColor = p.boldRed
		sevText = "error"
	case SeverityWarning:
		sevColor = p.yellow
		sevText = "warning"
	case SeverityNote:
		sevColor = p.boldCyan
		sevText = "note"
	}
	if d.Code != "" {
		sevText += "[" + d.Code + "]"
	}
	ew.printf("%s%s%s%s:%s %s%s%s\n",
		sevColor, p.bold, sevText, p.reset,
		p.reset,
		p.bold, d.Message, p.reset)
}

func (r *Renderer) writeSpan(ew *errWriter, span Span, p palette, sources map[string][]string, showLoc bool) {
	// Location line: "  --> file:line:col"
	if showLoc {
		loc := span.File
		if span.Line > 0 {
			loc = fmt.Sprintf("%s:%d", span.File, span.Line)
			if span.Col > 0 {
				loc = fmt.Sprintf("%s:%d:%d", span.File, span.Line, span.Col)
			}
		}
		ew.printf("  %s-->%s %s\n", p.boldBlue, p.reset, loc)
	}

	// Try to read and display the source line
	source, ok := r.sourceLine(sources, span.File, span.Line)
	if !ok {
		// No source available: just show the location line with a gutter
		ew.printf("   %s|%s\n", p.boldBlue, p.reset)
		return
	}

	lineStr := fmt.Sprintf("%d", span.Line)
	pad := strings.Repeat(" ", len(lineStr))

	// Empty gutter line
	if showLoc {
		ew.printf(" %s%s |%s\n", p.boldBlue, pad, p.reset)
	}

	// Source line with line number
	// Replace tabs with spaces for consistent alignment
	displaySource := strings.ReplaceAll(source, "\t", "    ")
	ew.printf(" %s%s |%s  %s\n", p.boldBlue, lineStr, p.reset, displaySource)

	// Underline
	col := span.Col
	endCol := span.EndCol
	if col <= 0 {
		col = 1
	}
	switch {
	case span.EndLine > span.Line:
		// Multi-line span: underline to the end of the first line
		endCol = len(source)
	case endCol <= 0:
		endCol = r.detectEndCol(source, col)
	}
	if endCol < col {
		endCol = col
	}

	// Account for tab expansion in positioning
	prefix := ""
	if col > 1 && col-1 <= len(source) {
		prefix = source[:col-1]
	}
	marked := ""
	if col-1 < len(source) {
		marked = source[col-1 : min(endCol, len(source))]
	}
	displayCol := displayWidth(prefix)
	underLen := max(displayWidth(marked), 1)

	mark, color := "^", p.boldRed
	if span.Secondary {
		mark, color = "-", p.boldBlue
	}
	underPad := strings.Repeat(" ", displayCol)
	underline := strings.Repeat(mark, underLen)

	ew.printf(" %s%s |%s  %s%s%s%s", p.boldBlue, pad, p.reset, underPad, color, underline, p.reset)
	if span.Label != "" {
		ew.printf(" %s%s%s", color, span.Label, p.reset)
	}
	ew.print("\n")

	// Trailing gutter
	ew.printf(" %s%s |%s\n", p.boldBlue, pad, p.reset)
}

// sourceLine returns line of file, reading each file at most once per
// rendered diagnostic.
func (r *Renderer) sourceLine(cache map[string][]string, file string, line int) (string, bool) {
	if line <= 0 || file == "" {
		return "", false
	}
	lines, ok := cache[file]
	if !ok {
		lines = r.readSource(file)
		cache[file] = lines
	}
	if line > len(lines) {
		return "", false
	}
	return lines[line-1], true
}

func (r *Renderer) readSource(file string) []string {
	reader := r.SourceReader
	if reader == nil {
		reader = func(name string) ([]byte, error) {
			return os.ReadFile(name) //nolint:gosec // reads user-specified source files for display
		}
	}
	data, err := reader(file)
	if err != nil {
		return nil
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// detectEndCol scans from col to find the end of the current token.
func (r *Renderer) detectEndCol(source string, col int) int {
	if col <= 0 || col > len(source) {
		return col
	}
	end := col - 1 // 0-based
	for end < len(source) {
		ch, size := utf8.DecodeRuneInString(source[end:])
		if ch == ' ' || ch == '\t' || ch == ')' || ch == ']' || ch == '(' || ch == '[' || ch == '.' || ch == ',' {
			break
		}
		end += size
	}
	if end == col-1 {
		return col // single character
	}
	return end // convert back to 1-based end column
}

// displayWidth returns the display width of a string, expanding tabs to 4 spaces.
func displayWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

// fileFromWriter attempts to extract an *os.File from a writer for terminal
// detection. Returns nil if the writer is not backed by a file.
func fileFromWriter(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}
