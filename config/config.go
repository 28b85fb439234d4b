// Copyright © 2024 The ELPS authors

// Package config decodes and validates kvet configuration read through
// viper, and builds the linter it describes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/luthersystems/kvet/lint"
	"github.com/luthersystems/kvet/matcher"
	"github.com/luthersystems/kvet/resolve"
	"github.com/luthersystems/kvet/symbol"
)

// EnvPrefix is the prefix of environment variables overriding settings.
const EnvPrefix = "KVET"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the decoded configuration.
type Config struct {
	// Checks selects the analyzers to run. Empty means all.
	Checks []string `mapstructure:"checks"`
	// Disable removes analyzers from the selection.
	Disable []string `mapstructure:"disable"`
	// Library lists stub library YAML files merged into the default one.
	Library []string `mapstructure:"library"`
	// ScopeFunctions replaces the default scope function table when set.
	ScopeFunctions []ScopeFunction `mapstructure:"scope_functions"`
	MaxScopeHops   int             `mapstructure:"max_scope_hops"`
	ForbiddenCalls []ForbiddenCall `mapstructure:"forbidden_calls"`
	// Workers bounds parallel files; 0 means GOMAXPROCS.
	Workers     int    `mapstructure:"workers"`
	SecretNames string `mapstructure:"secret_names"`
}

// ScopeFunction is a scope function entry. Receiver is "receiver" or
// "argument".
type ScopeFunction struct {
	Name     string `mapstructure:"name"`
	Owner    string `mapstructure:"owner"`
	Receiver string `mapstructure:"receiver"`
}

// ForbiddenCall is a project-specific forbidden call.
type ForbiddenCall struct {
	Signature string `mapstructure:"signature"`
	Message   string `mapstructure:"message"`
	Severity  string `mapstructure:"severity"`
}

// SetDefaults registers default values and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("checks", []string{})
	v.SetDefault("disable", []string{})
	v.SetDefault("library", []string{})
	v.SetDefault("max_scope_hops", resolve.DefaultMaxHops)
	v.SetDefault("workers", 0)
	v.SetDefault("secret_names", lint.DefaultSecretNames)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{MaxScopeHops: resolve.DefaultMaxHops, SecretNames: lint.DefaultSecretNames}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate reports the first problem of c.
func (c *Config) Validate() error {
	if c.MaxScopeHops < 0 {
		return invalid("max_scope_hops must not be negative, got %d", c.MaxScopeHops)
	}
	if c.Workers < 0 {
		return invalid("workers must not be negative, got %d", c.Workers)
	}
	for i, sf := range c.ScopeFunctions {
		if sf.Name == "" {
			return invalid("scope_functions[%d]: missing name", i)
		}
		if _, err := resolve.ParseSource(sf.Receiver); err != nil {
			return invalid("scope_functions[%d]: %v", i, err)
		}
	}
	if c.SecretNames != "" {
		if _, err := regexp2.Compile(c.SecretNames, regexp2.None); err != nil {
			return invalid("secret_names: %v", err)
		}
	}
	for i, fc := range c.ForbiddenCalls {
		if _, err := matcher.FromSignature(fc.Signature); err != nil {
			return invalid("forbidden_calls[%d]: %v", i, err)
		}
		if _, err := lint.ParseSeverity(fc.Severity); err != nil {
			return invalid("forbidden_calls[%d]: %v", i, err)
		}
	}
	known := make(map[string]bool)
	for _, name := range c.checkNames() {
		known[name] = true
	}
	for _, list := range [][]string{c.Checks, c.Disable} {
		for _, name := range list {
			if !known[strings.TrimSpace(name)] {
				return invalid("unknown check %q", name)
			}
		}
	}
	return nil
}

func (c *Config) checkNames() []string {
	names := lint.AnalyzerNames()
	if len(c.ForbiddenCalls) > 0 {
		names = append(names, lint.ForbiddenCallName)
	}
	return names
}

// Analyzers builds the selected analyzers.
func (c *Config) Analyzers() ([]*lint.Analyzer, error) {
	var all []*lint.Analyzer
	for _, a := range lint.DefaultAnalyzers() {
		if a == lint.AnalyzerHardcodedSecret && c.SecretNames != "" && c.SecretNames != lint.DefaultSecretNames {
			custom, err := lint.NewHardcodedSecret(c.SecretNames)
			if err != nil {
				return nil, err
			}
			a = custom
		}
		all = append(all, a)
	}
	if len(c.ForbiddenCalls) > 0 {
		calls := make([]lint.ForbiddenCall, len(c.ForbiddenCalls))
		for i, fc := range c.ForbiddenCalls {
			sev, err := lint.ParseSeverity(fc.Severity)
			if err != nil {
				return nil, err
			}
			calls[i] = lint.ForbiddenCall{Signature: fc.Signature, Message: fc.Message, Severity: sev}
		}
		forbidden, err := lint.NewForbiddenCalls(calls)
		if err != nil {
			return nil, err
		}
		all = append(all, forbidden)
	}
	return lint.Select(all, c.Checks, c.Disable)
}

// ResolveOptions returns the resolver options c describes.
func (c *Config) ResolveOptions() ([]resolve.Option, error) {
	opts := []resolve.Option{resolve.WithMaxHops(c.MaxScopeHops)}
	if len(c.ScopeFunctions) > 0 {
		fns := make([]resolve.ScopeFunction, len(c.ScopeFunctions))
		for i, sf := range c.ScopeFunctions {
			src, err := resolve.ParseSource(sf.Receiver)
			if err != nil {
				return nil, err
			}
			owner := sf.Owner
			if owner == "" {
				owner = resolve.StdlibOwner
			}
			fns[i] = resolve.ScopeFunction{Owner: owner, Name: sf.Name, Source: src}
		}
		opts = append(opts, resolve.WithScopeFunctions(fns))
	}
	return opts, nil
}

// LoadLibrary returns the default stub library merged with the files of
// c.Library.
func (c *Config) LoadLibrary() (*symbol.Library, error) {
	lib := symbol.DefaultLibrary()
	for _, path := range c.Library {
		f, err := os.Open(path) //nolint:gosec // user-specified library files
		if err != nil {
			return nil, err
		}
		extra, err := symbol.LoadLibrary(f)
		f.Close() //nolint:errcheck // read-only file
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		lib.Merge(extra)
	}
	return lib, nil
}

// Linter builds the linter c describes.
func (c *Config) Linter(log logrus.FieldLogger) (*lint.Linter, error) {
	analyzers, err := c.Analyzers()
	if err != nil {
		return nil, err
	}
	opts, err := c.ResolveOptions()
	if err != nil {
		return nil, err
	}
	lib, err := c.LoadLibrary()
	if err != nil {
		return nil, err
	}
	return &lint.Linter{
		Analyzers:      analyzers,
		Library:        lib,
		ResolveOptions: opts,
		Workers:        c.Workers,
		Log:            log,
	}, nil
}
