// Copyright © 2021 The ELPS authors

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/luthersystems/kvet/docs"
	"github.com/luthersystems/kvet/lint"
)

const docWidth = 72

// DocCommand creates the "doc" cobra command.
func DocCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)
	var guide bool

	cmd := &cobra.Command{
		Use:   "doc [flags] [CHECK]",
		Short: "Show documentation for kvet checks",
		Long: `Show the documentation of a check, including checks configured through
forbidden_calls. Without an argument every available check is summarized.
Use -g to print the user guide covering value tracing, configuration and
stub libraries.

Examples:
  kvet doc                 Summarize all checks
  kvet doc weak-hash       Show docs for the weak-hash check
  kvet doc -g              Show the user guide`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if guide {
				_, err := io.WriteString(cmd.OutOrStdout(), docs.Guide)
				return err
			}
			conf, err := cfg.load()
			if err != nil {
				return err
			}
			// Show every check regardless of the configured selection.
			conf.Checks, conf.Disable = nil, nil
			analyzers, err := conf.Analyzers()
			if err != nil {
				return usageError(err)
			}

			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush() //nolint:errcheck // best-effort flush on exit
			if len(args) == 0 {
				for _, a := range analyzers {
					writeDocSummary(out, a)
				}
				return nil
			}
			for _, a := range analyzers {
				if a.Name == args[0] {
					writeDoc(out, a)
					return nil
				}
			}
			return usageError(fmt.Errorf("unknown check %q", args[0]))
		},
	}

	cmd.Flags().BoolVarP(&guide, "guide", "g", false,
		"Print the user guide.")

	return cmd
}

func writeDocSummary(w io.Writer, a *lint.Analyzer) {
	summary, _, _ := strings.Cut(a.Doc, "\n")
	fmt.Fprintf(w, "%s (%s)\n", a.Name, a.Severity)
	fmt.Fprintf(w, "%s\n\n", indent.String(wordwrap.String(summary, docWidth-4), 4))
}

func writeDoc(w io.Writer, a *lint.Analyzer) {
	fmt.Fprintf(w, "%s (%s)\n\n", a.Name, a.Severity)
	for _, para := range strings.Split(a.Doc, "\n\n") {
		fmt.Fprintf(w, "%s\n\n", indent.String(wordwrap.String(para, docWidth-4), 4))
	}
	fmt.Fprintf(w, "Suppress with: // nolint:%s\n", a.Name)
}
