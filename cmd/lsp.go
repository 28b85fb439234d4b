// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luthersystems/kvet/lsp"
)

// LSPCommand creates the "lsp" cobra command. The server lints with the
// same configuration as the lint command.
func LSPCommand(opts ...Option) *cobra.Command {
	cfg := newCmdConfig(opts)

	var (
		stdio bool
		port  int
	)

	cmd := &cobra.Command{
		Use:   "lsp [flags]",
		Short: "Start the kvet Language Server Protocol server",
		Long: `Start an LSP server for Kotlin source files.

The language server publishes kvet diagnostics as files are opened and
edited, and provides hover with resolved static values, go-to-definition
within a file, document symbols, folding ranges and a quick fix adding a
nolint comment.

Transport modes:
  --stdio      Use stdin/stdout for LSP communication (default)
  --port N     Listen for an LSP client on TCP port N

Examples:
  kvet lsp                           Start with stdio transport
  kvet lsp --port 7998               Start with TCP on port 7998`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			conf, err := cfg.load()
			if err != nil {
				return err
			}
			l, err := cfg.linter(conf)
			if err != nil {
				return err
			}
			srv := lsp.New(lsp.WithLinter(l), lsp.WithLogger(cfg.logger()))

			if !stdio && port > 0 {
				addr := fmt.Sprintf("localhost:%d", port)
				if err := srv.RunTCP(addr); err != nil {
					return fmt.Errorf("lsp server: %w", err)
				}
				return nil
			}
			if err := srv.RunStdio(); err != nil {
				return fmt.Errorf("lsp server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false,
		"Use stdin/stdout for LSP communication (default behavior)")
	cmd.Flags().IntVar(&port, "port", 0,
		"TCP port for LSP server (use instead of --stdio)")

	return cmd
}
