// Copyright © 2024 The ELPS authors

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luthersystems/kvet/frontend"
	"github.com/luthersystems/kvet/resolve"
	"github.com/luthersystems/kvet/tree"
)

// ResolveCommand creates the "resolve" cobra command.
func ResolveCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)

	return &cobra.Command{
		Use:   "resolve FILE:LINE",
		Short: "Show the static values of call arguments on a line",
		Long: `Show how kvet sees the calls on one line of a Kotlin file: the function
or constructor each call resolves to, and for each argument the constant it
folds to together with the declarations it was traced through.

Example:
  kvet resolve Crypto.kt:12

  12:15 java.security.MessageDigest.getInstance
    [0] algo => "MD5" (via 10:5)`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, line, err := parseLocation(args[0])
			if err != nil {
				return usageError(err)
			}
			conf, err := cfg.load()
			if err != nil {
				return err
			}
			l, err := cfg.linter(conf)
			if err != nil {
				return err
			}
			ropts, err := conf.ResolveOptions()
			if err != nil {
				return usageError(err)
			}
			src, err := os.ReadFile(path) //nolint:gosec // CLI tool reads user-specified files
			if err != nil {
				return usageError(err)
			}
			unit, err := frontend.Load(cmd.Context(), src, path, l.Library)
			if err != nil {
				return err
			}
			for _, serr := range unit.Errors {
				cfg.logger().WithField("file", path).Warn(serr.Error())
			}
			r := resolve.New(unit.Model, ropts...)
			if n := describeLine(cmd.OutOrStdout(), unit, r, line); n == 0 {
				return usageError(fmt.Errorf("%s:%d: no calls on this line", path, line))
			}
			return nil
		},
	}
}

// parseLocation splits FILE:LINE.
func parseLocation(arg string) (string, int, error) {
	i := strings.LastIndexByte(arg, ':')
	if i <= 0 {
		return "", 0, fmt.Errorf("location %q: want FILE:LINE", arg)
	}
	line, err := strconv.Atoi(arg[i+1:])
	if err != nil || line < 1 {
		return "", 0, fmt.Errorf("location %q: invalid line number", arg)
	}
	return arg[:i], line, nil
}

// describeLine writes every call starting on line and returns how many
// there were.
func describeLine(w io.Writer, unit *frontend.Unit, r *resolve.Resolver, line int) int {
	var calls []*tree.Call
	tree.Inspect(unit.File, func(n tree.Node) bool {
		if c, ok := n.(*tree.Call); ok && c.Pos().Line == line {
			calls = append(calls, c)
		}
		return true
	})
	for _, c := range calls {
		name := tree.CallName(c)
		if rc, ok := unit.Model.Call(c); ok && rc.Symbol != nil {
			name = rc.Symbol.QualifiedName()
		}
		fmt.Fprintf(w, "%s %s\n", c.Pos(), name)
		for i, arg := range c.Args {
			label := strconv.Itoa(i)
			if arg.Name != "" {
				label = arg.Name
			}
			fmt.Fprintf(w, "  [%s] %s => %s%s\n", label,
				sourceText(unit.Source, arg.Value), argumentValue(unit.Source, r, arg.Value), via(r, arg.Value))
		}
	}
	return len(calls)
}

// argumentValue is the constant e folds to, or the source of the
// expression it resolves to when it is not constant.
func argumentValue(src []byte, r *resolve.Resolver, e tree.Expr) string {
	if v, ok := r.Format(e); ok {
		return v
	}
	if v := r.Resolve(e); !tree.IsNil(v.Expr) && v.Expr != e {
		return sourceText(src, v.Expr)
	}
	return "?"
}

func via(r *resolve.Resolver, e tree.Expr) string {
	decls := r.Resolve(e).Declarations
	if len(decls) == 0 {
		return ""
	}
	locs := make([]string, len(decls))
	for i, d := range decls {
		locs[i] = d.Pos().String()
	}
	return " (via " + strings.Join(locs, ", ") + ")"
}

// sourceText returns the source text n spans, collapsed to one line.
func sourceText(src []byte, n tree.Node) string {
	if tree.IsNil(n) {
		return ""
	}
	start, ok := offset(src, n.Pos())
	if !ok {
		return ""
	}
	end, ok := offset(src, n.End())
	if !ok || end < start {
		end = len(src)
	}
	return strings.Join(strings.Fields(string(src[start:end])), " ")
}

// offset converts a 1-based line and byte column to a byte offset.
func offset(src []byte, p tree.Pos) (int, bool) {
	if !p.IsValid() || p.Col < 1 {
		return 0, false
	}
	i := 0
	for line := 1; line < p.Line; line++ {
		j := bytes.IndexByte(src[i:], '\n')
		if j < 0 {
			return 0, false
		}
		i += j + 1
	}
	o := i + p.Col - 1
	if o > len(src) {
		return 0, false
	}
	return o, true
}
