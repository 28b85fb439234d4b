// Copyright © 2024 The ELPS authors

package lint

import (
	"fmt"

	"github.com/luthersystems/kvet/matcher"
	"github.com/luthersystems/kvet/tree"
)

// ForbiddenCallName is the name of the analyzer built by NewForbiddenCalls.
const ForbiddenCallName = "forbidden-call"

// ForbiddenCall declares calls a project does not allow. Signature uses the
// signature syntax of package matcher, e.g.
// "java.lang.System.exit(kotlin.Int)" or "kotlin.io.println(*)".
type ForbiddenCall struct {
	Signature string
	// Message replaces the default diagnostic message.
	Message  string
	Severity Severity
}

type forbiddenRule struct {
	ForbiddenCall
	matcher *matcher.FunMatcher
}

// NewForbiddenCalls compiles calls into a single analyzer reporting every
// call, constructor invocation or property access matching one of them.
func NewForbiddenCalls(calls []ForbiddenCall) (*Analyzer, error) {
	cache := matcher.NewPatternCache()
	rules := make([]forbiddenRule, 0, len(calls))
	for i, fc := range calls {
		m, err := matcher.FromSignature(fc.Signature, matcher.WithPatternCache(cache))
		if err != nil {
			return nil, fmt.Errorf("forbidden call %d (%q): %w", i+1, fc.Signature, err)
		}
		rules = append(rules, forbiddenRule{ForbiddenCall: fc, matcher: m})
	}
	return &Analyzer{
		Name:     ForbiddenCallName,
		Severity: SeverityWarning,
		Doc:      "Report calls forbidden by the project configuration.",
		Run: func(pass *Pass) error {
			tree.Inspect(pass.File, func(n tree.Node) bool {
				switch n := n.(type) {
				case *tree.Call:
					reportForbidden(pass, rules, n, ReportNode(n))
				case *tree.Ident:
					// Property accesses; calls were handled on the Call node.
					if _, ok := n.Parent().(*tree.Call); !ok {
						reportForbidden(pass, rules, n, accessNode(n))
					}
				}
				return true
			})
			return nil
		},
	}, nil
}

func reportForbidden(pass *Pass, rules []forbiddenRule, n tree.Node, at tree.Node) {
	c, ok := pass.Model.Call(n)
	if !ok {
		return
	}
	for _, r := range rules {
		if !r.matcher.MatchesCall(c) {
			continue
		}
		d := pass.At(at, "%s", r.message(c.Symbol.QualifiedName()))
		d.Severity = r.Severity
		pass.Report(d)
		return
	}
}

func (r forbiddenRule) message(name string) string {
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("call to %s is forbidden", name)
}

func accessNode(id *tree.Ident) tree.Node {
	if q, ok := id.Parent().(*tree.Qualified); ok && q.Sel == id {
		return q
	}
	return id
}
