// Copyright © 2018 The ELPS authors

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luthersystems/kvet/config"
)

var (
	cfgFile   string
	colorFlag string
	logLevel  string
	traceFlag bool

	// logger is shared by every command. Output goes to stderr so that
	// the stdio LSP transport and --json output stay clean.
	logger = logrus.New()

	shutdownTracing = func(context.Context) error { return nil }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kvet",
	Short: "kvet: static security checks for Kotlin",
	Long: `kvet finds insecure API usage in Kotlin source. Calls and constructors
are matched against declared signatures, and their arguments are traced
through properties, scope functions (let, also, apply, run, with) and
constant templates back to literal values.

Getting started:
  kvet lint File.kt             Run all checks on a file
  kvet lint ./...               Run all checks on every .kt file below .
  kvet doc weak-hash            Show documentation for a check
  kvet resolve File.kt:12       Show the static values of the calls on line 12
  kvet lsp                      Start the language server

Configuration is read from --config, or from .kvet.yaml in the current
directory or $HOME. Every setting may be overridden by a KVET_ environment
variable, for example KVET_WORKERS=4.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		lvl, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return usageError(err)
		}
		logger.SetLevel(lvl)
		if traceFlag {
			shutdown, err := setupTracing(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			shutdownTracing = shutdown
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx := context.Background()
	err := rootCmd.ExecuteContext(ctx)
	if terr := shutdownTracing(ctx); terr != nil {
		logger.WithError(terr).Warn("flush traces")
	}
	if err != nil && !errors.Is(err, errFindings) {
		fmt.Fprintln(os.Stderr, "kvet:", err)
	}
	os.Exit(exitCode(err))
}

func init() {
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .kvet.yaml in . or $HOME)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto",
		`Control colored output: "auto", "always", or "never".`)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Log level written to stderr (debug, info, warn, error).")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false,
		"Write OpenTelemetry spans of the run to stderr.")

	rootCmd.AddCommand(LintCommand(), DocCommand(), ResolveCommand(), LSPCommand())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".kvet")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			logger.WithError(err).Error("read config")
			os.Exit(exitUsage)
		}
		return
	}
	logger.WithField("file", viper.ConfigFileUsed()).Debug("using config file")
}
