// Copyright © 2024 The ELPS authors

package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/luthersystems/kvet/config"
	"github.com/luthersystems/kvet/lint"
	"github.com/luthersystems/kvet/symbol"
)

// Option configures an exported command factory (LintCommand, LSPCommand).
type Option func(*cmdConfig)

type cmdConfig struct {
	viper   *viper.Viper
	log     logrus.FieldLogger
	library *symbol.Library
}

// WithViper reads configuration from v instead of the global viper.
func WithViper(v *viper.Viper) Option {
	return func(c *cmdConfig) { c.viper = v }
}

// WithLogger sets the logger handed to the linter and server.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *cmdConfig) { c.log = log }
}

// WithLibrary merges lib into the stub library calls are resolved
// against, so that embedders can declare their own APIs.
func WithLibrary(lib *symbol.Library) Option {
	return func(c *cmdConfig) { c.library = lib }
}

func newCmdConfig(opts []Option) *cmdConfig {
	c := &cmdConfig{}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *cmdConfig) logger() logrus.FieldLogger {
	if c.log != nil {
		return c.log
	}
	return logger
}

// load decodes the configuration. Invalid configuration is a usage error.
func (c *cmdConfig) load() (*config.Config, error) {
	v := c.viper
	if v == nil {
		v = viper.GetViper()
	}
	config.SetDefaults(v)
	conf, err := config.Load(v)
	if err != nil {
		return nil, usageError(err)
	}
	return conf, nil
}

// linter builds the linter conf describes, with the injected library
// merged in.
func (c *cmdConfig) linter(conf *config.Config) (*lint.Linter, error) {
	l, err := conf.Linter(c.logger())
	if err != nil {
		return nil, usageError(err)
	}
	if c.library != nil {
		l.Library.Merge(c.library)
	}
	return l, nil
}
