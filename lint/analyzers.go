// Copyright © 2024 The ELPS authors

package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/luthersystems/kvet/matcher"
	"github.com/luthersystems/kvet/symbol"
	"github.com/luthersystems/kvet/tree"
)

var (
	stringArg = matcher.Arg(symbol.TypeString)
	longArg   = matcher.Arg(symbol.TypeLong)
	boolArg   = matcher.Arg(symbol.TypeBoolean)
)

var messageDigestGetInstance = matcher.MustFun(
	matcher.Qualifier("java.security.MessageDigest"),
	matcher.Name("getInstance"),
	matcher.ArgumentShapes(
		[]matcher.ArgumentMatcher{stringArg},
		[]matcher.ArgumentMatcher{stringArg, stringArg},
	),
)

var weakDigests = map[string]bool{
	"MD2":   true,
	"MD4":   true,
	"MD5":   true,
	"SHA":   true,
	"SHA1":  true,
	"SHA-1": true,
}

// AnalyzerWeakHash reports message digests created for broken hash
// algorithms.
var AnalyzerWeakHash = &Analyzer{
	Name:     "weak-hash",
	Severity: SeverityWarning,
	Doc:      "Report MessageDigest instances created for MD2, MD4, MD5 or SHA-1.\n\nThese algorithms are vulnerable to collision attacks and must not be used to protect integrity or to hash secrets. The algorithm name is traced through read-only variables, scope functions and lookups with a default value.",
	Run: func(pass *Pass) error {
		WalkCalls(pass.File, func(c *tree.Call) {
			if !messageDigestGetInstance.Matches(c, pass.Model) {
				return
			}
			arg := Arg(c, 0)
			v := pass.Resolver.Resolve(arg)
			name, ok := pass.Resolver.String(arg)
			if !ok || !weakDigests[strings.ToUpper(name)] {
				return
			}
			d := pass.ValueAt(ReportNode(c), v, "weak hash algorithm %q", name)
			pass.ReportWithNotes(d, "use SHA-256 or stronger")
		})
		return nil
	},
}

var cipherGetInstance = matcher.MustFun(
	matcher.Qualifier("javax.crypto.Cipher"),
	matcher.Name("getInstance"),
	matcher.ArgumentShapes(
		[]matcher.ArgumentMatcher{stringArg},
		[]matcher.ArgumentMatcher{stringArg, stringArg},
	),
)

var weakCiphers = map[string]bool{
	"DES":      true,
	"DESEDE":   true,
	"RC2":      true,
	"RC4":      true,
	"ARCFOUR":  true,
	"BLOWFISH": true,
}

// cipherWeakness explains why a cipher transformation of the form
// algorithm[/mode[/padding]] is weak, or returns "".
func cipherWeakness(transformation string) string {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(transformation)), "/")
	alg := parts[0]
	switch {
	case weakCiphers[alg]:
		return fmt.Sprintf("weak cipher algorithm %q", parts[0])
	case len(parts) > 1 && parts[1] == "ECB":
		return fmt.Sprintf("cipher transformation %q uses ECB mode", transformation)
	case alg == "AES" && len(parts) == 1:
		return fmt.Sprintf("cipher transformation %q defaults to ECB mode", transformation)
	}
	return ""
}

// AnalyzerWeakCipher reports ciphers created for broken algorithms or the
// ECB block mode.
var AnalyzerWeakCipher = &Analyzer{
	Name:     "weak-cipher",
	Severity: SeverityWarning,
	Doc:      "Report Cipher instances using DES, 3DES, RC2, RC4, Blowfish or ECB mode.\n\nA transformation naming only AES selects ECB mode on most providers, which leaks patterns of the plaintext.",
	Run: func(pass *Pass) error {
		WalkCalls(pass.File, func(c *tree.Call) {
			if !cipherGetInstance.Matches(c, pass.Model) {
				return
			}
			arg := Arg(c, 0)
			v := pass.Resolver.Resolve(arg)
			transformation, ok := pass.Resolver.String(arg)
			if !ok {
				return
			}
			msg := cipherWeakness(transformation)
			if msg == "" {
				return
			}
			d := pass.ValueAt(ReportNode(c), v, "%s", msg)
			pass.ReportWithNotes(d, `use an authenticated mode such as "AES/GCM/NoPadding"`)
		})
		return nil
	},
}

// DefaultSecretNames matches property names that usually hold credentials.
const DefaultSecretNames = `(?i)(passw(or)?d|secret|api_?key|access_?key|private_?key|auth_?token|credentials?)`

// AnalyzerHardcodedSecret reports read-only properties with credential-like
// names initialized to string constants.
var AnalyzerHardcodedSecret = mustHardcodedSecret(DefaultSecretNames)

// NewHardcodedSecret returns the hardcoded-secret analyzer matching property
// names against pattern.
func NewHardcodedSecret(pattern string) (*Analyzer, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("secret name pattern: %w", err)
	}
	return &Analyzer{
		Name:     "hardcoded-secret",
		Severity: SeverityWarning,
		Doc:      "Report read-only properties with credential-like names initialized to a string constant.\n\nThe initializer is folded statically, so secrets assembled from constants, templates or the default of a property lookup are found too.",
		Run: func(pass *Pass) error {
			WalkProperties(pass.File, func(p *tree.Property) {
				if !p.ReadOnly || tree.IsNil(p.Initializer) {
					return
				}
				if ok, err := re.MatchString(p.Name); err != nil || !ok {
					return
				}
				s, ok := pass.Resolver.String(p.Initializer)
				if !ok || strings.TrimSpace(s) == "" {
					return
				}
				v := pass.Resolver.Resolve(p.Initializer)
				d := pass.ValueAt(p, v, "hardcoded secret in %q", p.Name)
				pass.ReportWithNotes(d, "load secrets from the environment or a secret store")
			})
			return nil
		},
	}, nil
}

func mustHardcodedSecret(pattern string) *Analyzer {
	a, err := NewHardcodedSecret(pattern)
	if err != nil {
		panic(err)
	}
	return a
}

var seededRandom = matcher.FunMatchers{
	matcher.MustFun(
		matcher.Qualifiers("java.util.Random", "java.security.SecureRandom"),
		matcher.Constructor(),
		matcher.Arguments(longArg),
	),
	matcher.MustFun(
		matcher.Qualifiers("java.util.Random", "java.security.SecureRandom"),
		matcher.Name("setSeed"),
		matcher.Arguments(longArg),
	),
}

// AnalyzerPredictableSeed reports random number generators seeded with a
// statically known value.
var AnalyzerPredictableSeed = &Analyzer{
	Name:     "predictable-seed",
	Severity: SeverityWarning,
	Doc:      "Report Random and SecureRandom seeded with a constant.\n\nA generator seeded with a value known at compile time produces the same sequence on every run.",
	Run: func(pass *Pass) error {
		WalkCalls(pass.File, func(c *tree.Call) {
			if !seededRandom.Matches(c, pass.Model) {
				return
			}
			arg := Arg(c, 0)
			seed, ok := pass.Resolver.Long(arg)
			if !ok {
				return
			}
			v := pass.Resolver.Resolve(arg)
			pass.ReportValue(ReportNode(c), v, "random generator seeded with constant %d", seed)
		})
		return nil
	},
}

var webViewDebugging = matcher.MustFun(
	matcher.Qualifier("android.webkit.WebView"),
	matcher.Name("setWebContentsDebuggingEnabled"),
	matcher.Arguments(boolArg),
)

// AnalyzerWebViewDebugging reports WebView remote debugging switched on.
var AnalyzerWebViewDebugging = &Analyzer{
	Name:     "webview-debugging",
	Severity: SeverityWarning,
	Doc:      "Report WebView.setWebContentsDebuggingEnabled(true).\n\nRemote debugging exposes the content of every WebView of the application and must not be enabled in release builds.",
	Run: func(pass *Pass) error {
		WalkCalls(pass.File, func(c *tree.Call) {
			if !webViewDebugging.Matches(c, pass.Model) {
				return
			}
			arg := Arg(c, 0)
			if on, ok := pass.Resolver.Bool(arg); !ok || !on {
				return
			}
			v := pass.Resolver.Resolve(arg)
			pass.ReportValue(ReportNode(c), v, "WebView remote debugging enabled")
		})
		return nil
	},
}

var sizeField = matcher.NewFieldMatcher(
	matcher.FieldNames("size", "length"),
	matcher.DefiningTypes(
		"kotlin.collections.Collection",
		"kotlin.collections.Map",
		"kotlin.CharSequence",
		"kotlin.Array",
		"kotlin.ByteArray",
	),
)

// AnalyzerSizeCompareZero reports emptiness tests written as a comparison
// of size or length with zero.
var AnalyzerSizeCompareZero = &Analyzer{
	Name:     "size-compare-zero",
	Severity: SeverityInfo,
	Doc:      "Report `x.size == 0` and similar comparisons on collections and strings.\n\nisEmpty() and isNotEmpty() state the intent directly.",
	Run: func(pass *Pass) error {
		WalkBinary(pass.File, func(b *tree.Binary) {
			field, zero, swapped := b.X, b.Y, false
			if !sizeField.Matches(tree.Unparen(field), pass.Model) {
				field, zero, swapped = b.Y, b.X, true
				if !sizeField.Matches(tree.Unparen(field), pass.Model) {
					return
				}
			}
			if n, ok := pass.Resolver.Int(zero); !ok || n != 0 {
				return
			}
			op := b.Op
			if swapped {
				op = mirror(op)
			}
			var replacement string
			switch op {
			case "==", "<=":
				replacement = "isEmpty()"
			case "!=", ">":
				replacement = "isNotEmpty()"
			default:
				return
			}
			pass.Reportf(b, "use %s instead of comparing %s with 0", replacement, selectorName(field))
		}, "==", "!=", ">", "<", "<=", ">=")
		return nil
	},
}

func mirror(op string) string {
	switch op {
	case ">":
		return "<"
	case "<":
		return ">"
	case ">=":
		return "<="
	case "<=":
		return ">="
	}
	return op
}

func selectorName(e tree.Expr) string {
	if id, ok := tree.Selector(tree.Unparen(e)).(*tree.Ident); ok {
		return id.Name
	}
	return "size"
}

// DefaultAnalyzers returns the built-in set of lint checks.
func DefaultAnalyzers() []*Analyzer {
	return []*Analyzer{
		AnalyzerWeakHash,
		AnalyzerWeakCipher,
		AnalyzerHardcodedSecret,
		AnalyzerPredictableSeed,
		AnalyzerWebViewDebugging,
		AnalyzerSizeCompareZero,
	}
}

// AnalyzerNames returns a sorted list of all default analyzer names.
func AnalyzerNames() []string {
	analyzers := DefaultAnalyzers()
	names := make([]string, len(analyzers))
	for i, a := range analyzers {
		names[i] = a.Name
	}
	sort.Strings(names)
	return names
}

// AnalyzerDoc returns a formatted documentation string for all analyzers.
func AnalyzerDoc() string {
	var b strings.Builder
	for _, a := range DefaultAnalyzers() {
		fmt.Fprintf(&b, "  %s (%s)\n", a.Name, a.Severity)
		summary := strings.SplitN(a.Doc, "\n", 2)[0]
		fmt.Fprintf(&b, "%s\n\n", indent.String(wordwrap.String(summary, 68), 4))
	}
	return b.String()
}

// Select returns the analyzers of all whose names are in enable (every
// analyzer when enable is empty) and not in disable. Unknown names are an
// error.
func Select(all []*Analyzer, enable, disable []string) ([]*Analyzer, error) {
	known := make(map[string]bool, len(all))
	for _, a := range all {
		known[a.Name] = true
	}
	check := func(names []string) (map[string]bool, error) {
		set := make(map[string]bool, len(names))
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			if !known[n] {
				return nil, fmt.Errorf("unknown check %q", n)
			}
			set[n] = true
		}
		return set, nil
	}
	on, err := check(enable)
	if err != nil {
		return nil, err
	}
	off, err := check(disable)
	if err != nil {
		return nil, err
	}
	var out []*Analyzer
	for _, a := range all {
		if len(on) > 0 && !on[a.Name] {
			continue
		}
		if off[a.Name] {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
