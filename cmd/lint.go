// Copyright © 2024 The ELPS authors

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luthersystems/kvet/lint"
)

const stdinName = "<stdin>"

// LintCommand creates the "lint" cobra command. Embedders can pass
// WithLibrary to declare their own APIs or WithViper to supply
// configuration.
func LintCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)

	var (
		jsonOut  bool
		plain    bool
		checks   string
		listAll  bool
		excludes []string
	)

	cmd := &cobra.Command{
		Use:   "lint [flags] [files...]",
		Short: "Run static security checks on Kotlin source files",
		Long: `Run static security checks on Kotlin source files.

Each check is an independent analyzer that examines the bound syntax tree
and reports diagnostics. Arguments are folded to constants where possible,
so a weak algorithm name stored in a property, passed through a scope
function, or built from a template is still found.

With no files, reads from stdin. With files, analyzes each file and reports
all findings to stderr. A pattern ending in "/..." expands to every .kt and
.kts file below the directory.

Exit codes:
  0  No problems found
  1  One or more problems were reported
  2  Bad invocation (invalid flags or configuration, unreadable files)

To suppress a specific diagnostic, add a comment on the same line:
  val md = MessageDigest.getInstance("MD5") // nolint:weak-hash

A comment alone on a line suppresses the line below it. To suppress all
checks on a line:
  val md = MessageDigest.getInstance("MD5") // nolint

Available checks (use --checks to select specific ones):
` + lint.AnalyzerDoc() + `
Examples:
  kvet lint Crypto.kt                                  # Lint a single file
  kvet lint --json Crypto.kt                           # Output diagnostics as JSON
  kvet lint --checks=weak-hash,weak-cipher ./...       # Run only specific checks
  kvet lint --list                                     # List available checks
  kvet lint --exclude='build' --exclude='*Test.kt' ./...  # Exclude files
  cat Crypto.kt | kvet lint                            # Lint from stdin`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := cfg.load()
			if err != nil {
				return err
			}
			if checks != "" {
				conf.Checks = strings.Split(checks, ",")
				if err := conf.Validate(); err != nil {
					return usageError(err)
				}
			}

			if listAll {
				analyzers, err := conf.Analyzers()
				if err != nil {
					return usageError(err)
				}
				for _, a := range analyzers {
					fmt.Fprintln(cmd.OutOrStdout(), a.Name)
				}
				return nil
			}

			l, err := cfg.linter(conf)
			if err != nil {
				return err
			}

			var (
				diags []lint.Diagnostic
				stdin []byte
			)
			if len(args) == 0 {
				stdin, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return usageError(fmt.Errorf("reading stdin: %w", err))
				}
				diags, err = l.LintFile(cmd.Context(), stdin, stdinName)
			} else {
				var paths []string
				paths, err = expandArgs(args)
				if err != nil {
					return usageError(err)
				}
				paths = filterExcludes(paths, excludes)
				cfg.logger().WithField("files", len(paths)).Debug("linting")
				diags, err = l.LintFiles(cmd.Context(), paths)
			}
			if err != nil {
				return usageError(err)
			}

			if len(diags) == 0 {
				return nil
			}
			switch {
			case jsonOut:
				if err := lint.FormatJSON(cmd.OutOrStdout(), diags); err != nil {
					return err
				}
			case plain:
				lint.FormatText(cmd.ErrOrStderr(), diags)
			default:
				r, err := newRenderer()
				if err != nil {
					return err
				}
				r.SourceReader = stdinReader(stdin)
				renderLintDiagnostics(r, cmd.ErrOrStderr(), diags)
			}
			return errFindings
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false,
		"Output diagnostics as JSON.")
	cmd.Flags().BoolVar(&plain, "plain", false,
		"Print one line per diagnostic in go vet format.")
	cmd.Flags().StringVar(&checks, "checks", "",
		"Comma-separated list of checks to run (default: all).")
	cmd.Flags().BoolVar(&listAll, "list", false,
		"List available checks and exit.")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil,
		"Glob pattern for files to exclude (may be repeated).")

	return cmd
}

// stdinReader reads sources for the renderer, serving stdin's content
// under its display name.
func stdinReader(stdin []byte) func(string) ([]byte, error) {
	return func(name string) ([]byte, error) {
		if name == stdinName && stdin != nil {
			return bytes.Clone(stdin), nil
		}
		return os.ReadFile(name) //nolint:gosec // CLI tool reads user-specified files
	}
}
