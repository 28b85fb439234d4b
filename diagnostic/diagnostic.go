// Copyright © 2024 The ELPS authors

// Package diagnostic provides Rust-style annotated rendering of findings
// for the kvet CLI. It is intentionally independent of the lint package so
// that any command can render messages without creating import cycles.
package diagnostic

// Severity indicates the severity level of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "unknown"
	}
}

// Span identifies a region of source code to highlight in the diagnostic.
type Span struct {
	File    string // path for reading source; display name if unreadable
	Line    int    // 1-based line number
	Col     int    // 1-based start column
	EndLine int    // 1-based end line (0 = same as Line)
	EndCol  int    // 1-based end column, inclusive (0 = auto-detect from source)
	Label   string // text shown under the underline

	// Secondary marks related locations. They are underlined with '-'
	// instead of '^' and do not repeat the location header when they
	// are in the file of the preceding span.
	Secondary bool
}

// Diagnostic represents a single error, warning, or note with optional
// source annotations and trailing notes.
type Diagnostic struct {
	Severity Severity
	// Code is the name of the check that produced the diagnostic, shown
	// as "warning[code]".
	Code    string
	Message string
	Spans   []Span
	Notes   []string // "= note:" lines
}
