// Copyright © 2024 The ELPS authors

package lint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/luthersystems/kvet/frontend"
	"github.com/luthersystems/kvet/matcher"
)

// lintSource runs all default analyzers on the given source and returns diagnostics.
func lintSource(t *testing.T, source string) []Diagnostic {
	t.Helper()
	l := &Linter{Analyzers: DefaultAnalyzers()}
	diags, err := l.LintFile(context.Background(), []byte(source), "Test.kt")
	require.NoError(t, err)
	return diags
}

// lintCheck runs a single analyzer on the given source.
func lintCheck(t *testing.T, analyzer *Analyzer, source string) []Diagnostic {
	t.Helper()
	l := &Linter{Analyzers: []*Analyzer{analyzer}}
	diags, err := l.LintFile(context.Background(), []byte(source), "Test.kt")
	require.NoError(t, err)
	return diags
}

// assertHasDiag checks that at least one diagnostic contains the given substring.
func assertHasDiag(t *testing.T, diags []Diagnostic, substr string) {
	t.Helper()
	for _, d := range diags {
		if strings.Contains(d.Message, substr) {
			return
		}
	}
	var msgs []string
	for _, d := range diags {
		msgs = append(msgs, d.String())
	}
	t.Errorf("expected diagnostic containing %q, got: %v", substr, msgs)
}

// assertNoDiags checks that there are no diagnostics.
func assertNoDiags(t *testing.T, diags []Diagnostic) {
	t.Helper()
	if len(diags) > 0 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.String())
		}
		t.Errorf("expected no diagnostics, got %d: %v", len(diags), msgs)
	}
}

// assertDiagOnLine checks that a diagnostic exists on the given line with the given substring.
func assertDiagOnLine(t *testing.T, diags []Diagnostic, line int, substr string) {
	t.Helper()
	for _, d := range diags {
		if d.Pos.Line == line && strings.Contains(d.Message, substr) {
			return
		}
	}
	var msgs []string
	for _, d := range diags {
		msgs = append(msgs, fmt.Sprintf("line %d: %s", d.Pos.Line, d.Message))
	}
	t.Errorf("expected diagnostic on line %d containing %q, got: %v", line, substr, msgs)
}

func TestPosition_String_FileOnly(t *testing.T) {
	p := Position{File: "Test.kt"}
	assert.Equal(t, "Test.kt", p.String())
}

func TestPosition_String_FileLine(t *testing.T) {
	p := Position{File: "Test.kt", Line: 10}
	assert.Equal(t, "Test.kt:10", p.String())
}

func TestPosition_String_FileLineCol(t *testing.T) {
	p := Position{File: "Test.kt", Line: 10, Col: 5}
	assert.Equal(t, "Test.kt:10:5", p.String())
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		Pos:      Position{File: "Test.kt", Line: 5, Col: 3},
		Message:  "weak hash algorithm \"MD5\"",
		Analyzer: "weak-hash",
		Notes:    []string{"use SHA-256 or stronger"},
		Secondary: []Related{
			{Pos: Position{File: "Test.kt", Line: 2, Col: 1}, Message: "value defined here"},
		},
	}
	want := "Test.kt:5:3: weak hash algorithm \"MD5\" (weak-hash)\n" +
		"  Test.kt:2:1: value defined here\n" +
		"  = note: use SHA-256 or stronger"
	assert.Equal(t, want, d.String())
}

func TestSeverity_JSON(t *testing.T) {
	for _, sev := range []Severity{SeverityError, SeverityWarning, SeverityInfo} {
		data, err := json.Marshal(sev)
		require.NoError(t, err)
		var got Severity
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, sev, got)
	}
	data, err := json.Marshal(severityUnset)
	require.NoError(t, err)
	assert.Equal(t, `"warning"`, string(data))

	var s Severity
	assert.Error(t, json.Unmarshal([]byte(`"fatal"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`""`), &s))

	_, err = ParseSeverity("loud")
	assert.Error(t, err)
	sev, err := ParseSeverity("Info")
	require.NoError(t, err)
	assert.Equal(t, SeverityInfo, sev)
}

func TestLintFile_AnalyzerError(t *testing.T) {
	failing := &Analyzer{
		Name: "failing",
		Run: func(pass *Pass) error {
			return errors.New("boom")
		},
	}
	l := &Linter{Analyzers: []*Analyzer{failing}}
	_, err := l.LintFile(context.Background(), []byte("fun f() {}\n"), "Test.kt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Test.kt: analyzer failing: boom")
}

func TestLintFile_SyntaxError(t *testing.T) {
	diags := lintSource(t, "fun f( {\n")
	require.NotEmpty(t, diags)
	assert.Equal(t, SyntaxAnalyzer, diags[0].Analyzer)
	assert.Equal(t, SeverityError, diags[0].Severity)
	assert.Contains(t, diags[0].Message, "syntax error")
}

func TestLintFile_InvalidUTF8(t *testing.T) {
	l := &Linter{Analyzers: DefaultAnalyzers()}
	_, err := l.LintFile(context.Background(), []byte{0xff, 0xfe}, "Bad.kt")
	assert.ErrorIs(t, err, frontend.ErrInvalidContent)
}

func TestLintFile_DefaultSeverity(t *testing.T) {
	custom := &Analyzer{
		Name: "every-file",
		Run: func(pass *Pass) error {
			pass.Reportf(pass.File, "seen")
			return nil
		},
	}
	diags := lintCheck(t, custom, "fun f() {}\n")
	require.Len(t, diags, 1)
	assert.Equal(t, "every-file", diags[0].Analyzer)
	assert.Equal(t, "Test.kt", diags[0].Pos.File)
	assert.Equal(t, 1, diags[0].Pos.Line)
}

const weakHashSource = `import java.security.MessageDigest

fun f() {
    val md = MessageDigest.getInstance("MD5")
}
`

func TestWeakHash_Positive_Literal(t *testing.T) {
	diags := lintCheck(t, AnalyzerWeakHash, weakHashSource)
	require.Len(t, diags, 1)
	assertDiagOnLine(t, diags, 4, `weak hash algorithm "MD5"`)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
	assert.Equal(t, []string{"use SHA-256 or stronger"}, diags[0].Notes)
	assert.Empty(t, diags[0].Secondary)
}

func TestWeakHash_Positive_ScopeFunctionAlias(t *testing.T) {
	source := `import java.security.MessageDigest

const val ALGO = "SHA-1"

fun f() {
    ALGO.let { MessageDigest.getInstance(it) }
}
`
	diags := lintCheck(t, AnalyzerWeakHash, source)
	require.Len(t, diags, 1)
	assertDiagOnLine(t, diags, 6, `"SHA-1"`)
	require.Len(t, diags[0].Secondary, 1)
	assert.Equal(t, 3, diags[0].Secondary[0].Pos.Line)
	assert.Equal(t, "value defined here", diags[0].Secondary[0].Message)
}

func TestWeakHash_Positive_VariableChain(t *testing.T) {
	source := `import java.security.MessageDigest

fun f() {
    val a = "md5"
    val b = a
    MessageDigest.getInstance(b)
}
`
	diags := lintCheck(t, AnalyzerWeakHash, source)
	require.Len(t, diags, 1)
	assertDiagOnLine(t, diags, 6, `"md5"`)
	require.Len(t, diags[0].Secondary, 2)
	assert.Equal(t, 5, diags[0].Secondary[0].Pos.Line)
	assert.Equal(t, 4, diags[0].Secondary[1].Pos.Line)
}

func TestWeakHash_Negative(t *testing.T) {
	tests := map[string]string{
		"strong": `import java.security.MessageDigest

fun f() {
    MessageDigest.getInstance("SHA-256")
}
`,
		"parameter": `import java.security.MessageDigest

fun f(algo: String) {
    MessageDigest.getInstance(algo)
}
`,
		"mutable": `import java.security.MessageDigest

fun f() {
    var algo = "MD5"
    algo = "SHA-256"
    MessageDigest.getInstance(algo)
}
`,
		"unrelated": `fun getInstance(name: String) = name

fun f() {
    getInstance("MD5")
}
`,
	}
	for name, source := range tests {
		t.Run(name, func(t *testing.T) {
			assertNoDiags(t, lintCheck(t, AnalyzerWeakHash, source))
		})
	}
}

func TestCipherWeakness(t *testing.T) {
	tests := []struct {
		transformation string
		weak           bool
	}{
		{"DES/CBC/PKCS5Padding", true},
		{"DESede", true},
		{"RC4", true},
		{"AES/ECB/PKCS5Padding", true},
		{"AES", true},
		{"aes", true},
		{"AES/GCM/NoPadding", false},
		{"AES/CBC/PKCS5Padding", false},
		{"ChaCha20-Poly1305", false},
	}
	for _, test := range tests {
		t.Run(test.transformation, func(t *testing.T) {
			assert.Equal(t, test.weak, cipherWeakness(test.transformation) != "")
		})
	}
}

func TestWeakCipher_Positive(t *testing.T) {
	source := `import javax.crypto.Cipher

fun f() {
    val des = Cipher.getInstance("DES/CBC/PKCS5Padding")
    val ecb = Cipher.getInstance("AES/ECB/PKCS5Padding")
    val plain = Cipher.getInstance("AES")
    val gcm = Cipher.getInstance("AES/GCM/NoPadding")
}
`
	diags := lintCheck(t, AnalyzerWeakCipher, source)
	require.Len(t, diags, 3)
	assertDiagOnLine(t, diags, 4, `weak cipher algorithm "DES"`)
	assertDiagOnLine(t, diags, 5, "uses ECB mode")
	assertDiagOnLine(t, diags, 6, "defaults to ECB mode")
}

func TestWeakCipher_Positive_WithReceiver(t *testing.T) {
	source := `import javax.crypto.Cipher

fun f() {
    with("RC4") {
        Cipher.getInstance(this)
    }
}
`
	diags := lintCheck(t, AnalyzerWeakCipher, source)
	assertDiagOnLine(t, diags, 5, `weak cipher algorithm "RC4"`)
}

func TestHardcodedSecret_Positive(t *testing.T) {
	source := `class Client {
    val password = "hunter2"
    val apiKey = "k-" + "123"
}
`
	diags := lintCheck(t, AnalyzerHardcodedSecret, source)
	require.Len(t, diags, 2)
	assertDiagOnLine(t, diags, 2, `hardcoded secret in "password"`)
	assertDiagOnLine(t, diags, 3, `hardcoded secret in "apiKey"`)
}

func TestHardcodedSecret_Positive_LookupDefault(t *testing.T) {
	source := `fun f() {
    val dbPassword = System.getProperty("db.password", "changeme")
}
`
	diags := lintCheck(t, AnalyzerHardcodedSecret, source)
	assertDiagOnLine(t, diags, 2, `"dbPassword"`)
}

func TestHardcodedSecret_Negative(t *testing.T) {
	source := `fun f() {
    var password = "initial"
    val secret = System.getenv("SECRET")
    val greeting = "hello"
    val token = ""
}
`
	assertNoDiags(t, lintCheck(t, AnalyzerHardcodedSecret, source))
}

func TestHardcodedSecret_CustomPattern(t *testing.T) {
	a, err := NewHardcodedSecret(`(?i)^pin$`)
	require.NoError(t, err)
	diags := lintCheck(t, a, `val pin = "1234"
val password = "hunter2"
`)
	require.Len(t, diags, 1)
	assertDiagOnLine(t, diags, 1, `"pin"`)

	_, err = NewHardcodedSecret(`(`)
	assert.Error(t, err)
}

func TestPredictableSeed(t *testing.T) {
	source := `import java.security.SecureRandom
import java.util.Random

fun f() {
    val seed = 7L
    val a = Random(42L)
    SecureRandom().apply {
        setSeed(seed)
    }
    val b = Random()
    val c = Random(System.nanoTime())
}
`
	diags := lintCheck(t, AnalyzerPredictableSeed, source)
	require.Len(t, diags, 2)
	assertDiagOnLine(t, diags, 6, "constant 42")
	assertDiagOnLine(t, diags, 8, "constant 7")
	require.Len(t, diags[1].Secondary, 1)
	assert.Equal(t, 5, diags[1].Secondary[0].Pos.Line)
}

func TestPredictableSeed_Arithmetic(t *testing.T) {
	source := `import java.util.Random

fun f() {
    val base = 40L
    Random(6L * 7L)
    Random(base + 2L)
    Random(base / 0L)
}
`
	diags := lintCheck(t, AnalyzerPredictableSeed, source)
	require.Len(t, diags, 2)
	assertDiagOnLine(t, diags, 5, "constant 42")
	assertDiagOnLine(t, diags, 6, "constant 42")
}

func TestWebViewDebugging(t *testing.T) {
	source := `import android.webkit.WebView

fun f() {
    val debug = true
    WebView.setWebContentsDebuggingEnabled(debug)
    WebView.setWebContentsDebuggingEnabled(false)
}
`
	diags := lintCheck(t, AnalyzerWebViewDebugging, source)
	require.Len(t, diags, 1)
	assertDiagOnLine(t, diags, 5, "remote debugging enabled")
}

func TestSizeCompareZero(t *testing.T) {
	source := `fun f(items: List<String>, name: String) {
    val a = items.size == 0
    val b = 0 == name.length
    val c = items.size > 0
    val d = items.size == 1
    val e = items.isEmpty()
}
`
	diags := lintCheck(t, AnalyzerSizeCompareZero, source)
	require.Len(t, diags, 3)
	assertDiagOnLine(t, diags, 2, "use isEmpty() instead of comparing size with 0")
	assertDiagOnLine(t, diags, 3, "use isEmpty() instead of comparing length with 0")
	assertDiagOnLine(t, diags, 4, "use isNotEmpty()")
	assert.Equal(t, SeverityInfo, diags[0].Severity)
}

func TestForbiddenCalls(t *testing.T) {
	a, err := NewForbiddenCalls([]ForbiddenCall{
		{Signature: "java.lang.System.getenv(kotlin.String)", Message: "read settings through Config"},
		{Signature: "java.security.MessageDigest.getAlgorithm()", Severity: SeverityError},
	})
	require.NoError(t, err)
	source := `import java.security.MessageDigest

fun f() {
    val home = System.getenv("HOME")
    val md = MessageDigest.getInstance("SHA-256")
    val name = md.algorithm
}
`
	diags := lintCheck(t, a, source)
	require.Len(t, diags, 2)
	assertDiagOnLine(t, diags, 4, "read settings through Config")
	assertDiagOnLine(t, diags, 6, "call to java.security.MessageDigest.getAlgorithm is forbidden")
	assert.Equal(t, SeverityWarning, diags[0].Severity)
	assert.Equal(t, SeverityError, diags[1].Severity)
	assert.Equal(t, ForbiddenCallName, diags[0].Analyzer)
}

func TestForbiddenCalls_BadSignature(t *testing.T) {
	_, err := NewForbiddenCalls([]ForbiddenCall{{Signature: "java.lang.System.exit(kotlin.Int"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, matcher.ErrSignatureSyntax)
}

func TestNolint(t *testing.T) {
	source := `import java.security.MessageDigest
import javax.crypto.Cipher

fun f() {
    MessageDigest.getInstance("MD5") // nolint
    MessageDigest.getInstance("MD5") // nolint:weak-cipher
    // nolint:weak-hash
    MessageDigest.getInstance("MD5")
    Cipher.getInstance("DES") // nolint:weak-hash,weak-cipher
}
`
	diags := lintSource(t, source)
	require.Len(t, diags, 1)
	assertDiagOnLine(t, diags, 6, "weak hash")
}

func TestParseNolint(t *testing.T) {
	tests := []struct {
		comment   string
		directive string
		ok        bool
	}{
		{"// nolint", "", true},
		{"//nolint:weak-hash", "weak-hash", true},
		{"// nolint:a,b trailing text", "a,b", true},
		{"/* nolint */", "", true},
		{"// nolinter", "", false},
		{"// regular comment", "", false},
	}
	for _, test := range tests {
		t.Run(test.comment, func(t *testing.T) {
			directive, ok := parseNolint(test.comment)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.directive, directive)
		})
	}
}

func TestSelect(t *testing.T) {
	all := DefaultAnalyzers()
	got, err := Select(all, nil, []string{"size-compare-zero"})
	require.NoError(t, err)
	assert.Len(t, got, len(all)-1)

	got, err = Select(all, []string{"weak-hash", "weak-cipher"}, []string{"weak-cipher"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "weak-hash", got[0].Name)

	_, err = Select(all, []string{"no-such-check"}, nil)
	assert.ErrorContains(t, err, "no-such-check")
}

func TestAnalyzerNamesAndDoc(t *testing.T) {
	names := AnalyzerNames()
	assert.Equal(t, []string{
		"hardcoded-secret",
		"predictable-seed",
		"size-compare-zero",
		"weak-cipher",
		"weak-hash",
		"webview-debugging",
	}, names)
	doc := AnalyzerDoc()
	for _, name := range names {
		assert.Contains(t, doc, "  "+name+" (")
	}
	for _, line := range strings.Split(doc, "\n") {
		assert.LessOrEqual(t, len(line), 80, line)
	}
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	diags := lintCheck(t, AnalyzerWeakHash, weakHashSource)
	require.NoError(t, FormatJSON(&buf, diags))
	var got []Diagnostic
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "weak-hash", got[0].Analyzer)
	assert.Equal(t, SeverityWarning, got[0].Severity)
}

func TestFormatText(t *testing.T) {
	var buf bytes.Buffer
	FormatText(&buf, lintCheck(t, AnalyzerWeakHash, weakHashSource))
	assert.True(t, strings.HasPrefix(buf.String(), "Test.kt:4:"))
	assert.Contains(t, buf.String(), "(weak-hash)")
}

func TestLintFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
		return path
	}
	b := write("B.kt", weakHashSource)
	a := write("A.kt", weakHashSource)
	clean := write("C.kt", "fun f() {}\n")

	l := &Linter{Analyzers: DefaultAnalyzers(), Workers: 2}
	diags, err := l.LintFiles(context.Background(), []string{b, clean, a})
	require.NoError(t, err)
	require.Len(t, diags, 2)
	assert.Equal(t, a, diags[0].Pos.File)
	assert.Equal(t, b, diags[1].Pos.File)

	_, err = l.LintFiles(context.Background(), []string{a, filepath.Join(dir, "missing.kt")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLintFiles_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	path := filepath.Join(dir, "A.kt")
	require.NoError(t, os.WriteFile(path, []byte(weakHashSource), 0o600))
	l := &Linter{Analyzers: DefaultAnalyzers()}
	_, err := l.LintFiles(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLintFile_Spans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	l := &Linter{
		Analyzers: []*Analyzer{AnalyzerWeakHash, AnalyzerWeakCipher},
		Tracer:    tp.Tracer(TracerName),
	}
	_, err := l.LintFile(context.Background(), []byte(weakHashSource), "Test.kt")
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 3)
	var names []string
	for _, s := range spans {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"kvet.lint.analyzer", "kvet.lint.analyzer", "kvet.lint.file"}, names)
	file := spans[2]
	for _, s := range spans[:2] {
		assert.Equal(t, file.SpanContext().SpanID(), s.Parent().SpanID())
	}
}

func TestLintFile_Logging(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	l := &Linter{Analyzers: []*Analyzer{AnalyzerWeakHash}, Log: log}
	_, err := l.LintFile(context.Background(), []byte(weakHashSource), "Test.kt")
	require.NoError(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "analyzer finished", entries[0].Message)
	assert.Equal(t, "weak-hash", entries[0].Data["analyzer"])
	assert.Equal(t, 1, entries[0].Data["diagnostics"])
	assert.Equal(t, "file linted", entries[1].Message)
	assert.Equal(t, "Test.kt", entries[1].Data["file"])
}
