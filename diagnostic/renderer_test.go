// Copyright © 2024 The ELPS authors

package diagnostic

import (
	"bytes"
	"strings"
	"testing"
)

// testRenderer returns a Renderer with colors disabled and a fake source reader.
func testRenderer(sources map[string]string) *Renderer {
	return &Renderer{
		Color: ColorNever,
		SourceReader: func(name string) ([]byte, error) {
			s, ok := sources[name]
			if !ok {
				return nil, &fakeErr{name}
			}
			return []byte(s), nil
		},
	}
}

type fakeErr struct{ name string }

func (e *fakeErr) Error() string { return "not found: " + e.name }

func TestRenderError(t *testing.T) {
	r := testRenderer(map[string]string{
		"Test.kt": "val md = MessageDigest.getInstance(\"MD5\")",
	})

	d := Diagnostic{
		Severity: SeverityError,
		Code:     "weak-hash",
		Message:  "weak hash algorithm \"MD5\"",
		Spans: []Span{
			{File: "Test.kt", Line: 1, Col: 10, EndCol: 41, Label: "digest created here"},
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()

	// Verify key structural elements
	assertContains(t, got, "error[weak-hash]: weak hash algorithm \"MD5\"")
	assertContains(t, got, "--> Test.kt:1:10")
	assertContains(t, got, "val md = MessageDigest.getInstance(\"MD5\")")
	assertContains(t, got, "  "+strings.Repeat(" ", 9)+strings.Repeat("^", 32)+" digest created here")
}

func TestRenderWarning(t *testing.T) {
	r := testRenderer(map[string]string{
		"Test.kt": "val a = 1\nval password = \"hunter2\"",
	})

	d := Diagnostic{
		Severity: SeverityWarning,
		Message:  "hardcoded secret in \"password\"",
		Spans: []Span{
			{File: "Test.kt", Line: 2, Col: 1, EndCol: 26},
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	assertContains(t, got, "warning: hardcoded secret in \"password\"")
	assertContains(t, got, "--> Test.kt:2:1")
	assertContains(t, got, " 2 |  val password = \"hunter2\"")
	assertNotContains(t, got, "val a = 1")
}

func TestRenderNoSource(t *testing.T) {
	r := testRenderer(nil)

	d := Diagnostic{
		Severity: SeverityError,
		Message:  "some error",
		Spans: []Span{
			{File: "<stdin>", Line: 5, Col: 3},
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	assertContains(t, got, "error: some error")
	assertContains(t, got, "--> <stdin>:5:3")
	// Should have a gutter but no source line
	assertContains(t, got, "|")
	assertNotContains(t, got, "^")
}

func TestRenderNotes(t *testing.T) {
	r := testRenderer(map[string]string{
		"Test.kt": "Cipher.getInstance(\"DES\")",
	})

	d := Diagnostic{
		Severity: SeverityWarning,
		Message:  "weak cipher algorithm \"DES\"",
		Spans: []Span{
			{File: "Test.kt", Line: 1, Col: 1, EndCol: 25},
		},
		Notes: []string{
			"use an authenticated mode such as \"AES/GCM/NoPadding\"",
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	assertContains(t, got, "= note: use an authenticated mode such as \"AES/GCM/NoPadding\"")
}

func TestRenderSecondarySpans(t *testing.T) {
	r := testRenderer(map[string]string{
		"Test.kt": "const val ALGO = \"SHA-1\"\n\nfun f() {\n    MessageDigest.getInstance(ALGO)\n}",
	})

	d := Diagnostic{
		Severity: SeverityWarning,
		Message:  "weak hash algorithm \"SHA-1\"",
		Spans: []Span{
			{File: "Test.kt", Line: 4, Col: 5, EndCol: 34},
			{File: "Test.kt", Line: 1, Col: 1, EndCol: 24, Label: "value defined here", Secondary: true},
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	if n := strings.Count(got, "-->"); n != 1 {
		t.Errorf("expected one location header, got %d:\n%s", n, got)
	}
	assertContains(t, got, " 4 |      MessageDigest.getInstance(ALGO)")
	assertContains(t, got, " 1 |  const val ALGO = \"SHA-1\"")
	assertContains(t, got, strings.Repeat("-", 24)+" value defined here")
}

func TestRenderSecondaryOtherFile(t *testing.T) {
	r := testRenderer(map[string]string{
		"A.kt": "f(X)",
		"B.kt": "val X = 1",
	})

	d := Diagnostic{
		Severity: SeverityWarning,
		Message:  "finding",
		Spans: []Span{
			{File: "A.kt", Line: 1, Col: 1, EndCol: 4},
			{File: "B.kt", Line: 1, Col: 1, EndCol: 9, Secondary: true},
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	assertContains(t, got, "--> A.kt:1:1")
	assertContains(t, got, "--> B.kt:1:1")
}

func TestRenderMultiLineSpan(t *testing.T) {
	r := testRenderer(map[string]string{
		"Test.kt": "val x = listOf(\n    1,\n)",
	})

	d := Diagnostic{
		Severity: SeverityNote,
		Message:  "multi-line",
		Spans:    []Span{{File: "Test.kt", Line: 1, Col: 9, EndLine: 3, EndCol: 1}},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	assertContains(t, got, "note: multi-line")
	assertContains(t, got, strings.Repeat(" ", 8)+strings.Repeat("^", 7))
}

func TestRenderAutoDetectEndCol(t *testing.T) {
	r := testRenderer(map[string]string{
		"Test.kt": "val seed = Random(42L)",
	})

	d := Diagnostic{
		Severity: SeverityWarning,
		Message:  "random generator seeded with constant 42",
		Spans: []Span{
			{File: "Test.kt", Line: 1, Col: 12}, // EndCol=0 → auto-detect
		},
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	// "Random" starts at col 12 and is 6 chars → should produce "^^^^^^"
	assertContains(t, got, "^^^^^^")
	assertNotContains(t, got, "^^^^^^^")
}

func TestRenderMultipleDiagnostics(t *testing.T) {
	r := testRenderer(map[string]string{
		"Test.kt": "val a = Random(1L)\nval b = Random(2L)\nval c = Random()",
	})

	diags := []Diagnostic{
		{
			Severity: SeverityWarning,
			Message:  "random generator seeded with constant 1",
			Spans:    []Span{{File: "Test.kt", Line: 1, Col: 9, EndCol: 18}},
		},
		{
			Severity: SeverityWarning,
			Message:  "random generator seeded with constant 2",
			Spans:    []Span{{File: "Test.kt", Line: 2, Col: 9, EndCol: 18}},
		},
	}

	var buf bytes.Buffer
	if err := r.RenderAll(&buf, diags); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	// Should have both diagnostics separated by blank line
	parts := strings.Split(got, "\n\n")
	if len(parts) < 2 {
		t.Errorf("expected diagnostics separated by blank line, got:\n%s", got)
	}
	assertContains(t, got, "seeded with constant 1")
	assertContains(t, got, "seeded with constant 2")
}

func TestRenderNoSpans(t *testing.T) {
	r := testRenderer(nil)

	d := Diagnostic{
		Severity: SeverityError,
		Message:  "library error: file not found",
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	assertContains(t, got, "error: library error: file not found")
	// Should be just the header, no arrows or source
	assertNotContains(t, got, "-->")
}

func TestRenderColor(t *testing.T) {
	r := testRenderer(map[string]string{"Test.kt": "x"})
	r.Color = ColorAlways
	d := Diagnostic{Severity: SeverityError, Message: "m", Spans: []Span{{File: "Test.kt", Line: 1, Col: 1}}}

	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		t.Fatal(err)
	}
	assertContains(t, buf.String(), "\033[1;31m")

	if mode, ok := ParseColorMode("never"); !ok || mode != ColorNever {
		t.Errorf("ParseColorMode(never) = %v, %v", mode, ok)
	}
	if _, ok := ParseColorMode("sometimes"); ok {
		t.Error("ParseColorMode accepted an unknown mode")
	}
	if IsTerminal(nil) {
		t.Error("IsTerminal(nil) = true")
	}
}

func assertContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("output does not contain %q:\n%s", want, got)
	}
}

func assertNotContains(t *testing.T, got, unwanted string) {
	t.Helper()
	if strings.Contains(got, unwanted) {
		t.Errorf("output unexpectedly contains %q:\n%s", unwanted, got)
	}
}
