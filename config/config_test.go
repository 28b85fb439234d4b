// Copyright © 2024 The ELPS authors

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luthersystems/kvet/lint"
	"github.com/luthersystems/kvet/resolve"
)

func loadYAML(t *testing.T, text string) (*Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(text)))
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	c, err := loadYAML(t, "")
	require.NoError(t, err)
	assert.Equal(t, resolve.DefaultMaxHops, c.MaxScopeHops)
	assert.Equal(t, lint.DefaultSecretNames, c.SecretNames)
	assert.Empty(t, c.Checks)
	assert.Zero(t, c.Workers)

	analyzers, err := c.Analyzers()
	require.NoError(t, err)
	assert.Len(t, analyzers, len(lint.DefaultAnalyzers()))
}

func TestLoad_File(t *testing.T) {
	c, err := loadYAML(t, `
checks: [weak-hash, weak-cipher, forbidden-call]
disable: [weak-cipher]
max_scope_hops: 3
workers: 2
scope_functions:
  - name: let
  - name: using
    owner: com.example
    receiver: argument
forbidden_calls:
  - signature: java.lang.System.getenv(kotlin.String)
    message: read settings through Config
    severity: error
`)
	require.NoError(t, err)
	assert.Equal(t, 3, c.MaxScopeHops)
	assert.Equal(t, 2, c.Workers)
	require.Len(t, c.ScopeFunctions, 2)
	assert.Equal(t, ScopeFunction{Name: "using", Owner: "com.example", Receiver: "argument"}, c.ScopeFunctions[1])
	require.Len(t, c.ForbiddenCalls, 1)
	assert.Equal(t, "error", c.ForbiddenCalls[0].Severity)

	analyzers, err := c.Analyzers()
	require.NoError(t, err)
	var names []string
	for _, a := range analyzers {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"weak-hash", lint.ForbiddenCallName}, names)

	opts, err := c.ResolveOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("KVET_MAX_SCOPE_HOPS", "7")
	c, err := loadYAML(t, "")
	require.NoError(t, err)
	assert.Equal(t, 7, c.MaxScopeHops)
}

func TestValidate(t *testing.T) {
	tests := map[string]string{
		"unknown check":         "checks: [no-such-check]",
		"unknown disabled":      "disable: [nope]",
		"forbidden not enabled": "checks: [forbidden-call]",
		"negative hops":         "max_scope_hops: -1",
		"negative workers":      "workers: -2",
		"bad receiver":          "scope_functions: [{name: let, receiver: sideways}]",
		"missing name":          "scope_functions: [{receiver: receiver}]",
		"bad secret pattern":    "secret_names: '('",
		"bad signature":         "forbidden_calls: [{signature: 'a.b(c'}]",
		"bad severity":          "forbidden_calls: [{signature: 'a.b()', severity: loud}]",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadYAML(t, text)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestAnalyzers_CustomSecretNames(t *testing.T) {
	c := Default()
	c.SecretNames = `(?i)^pin$`
	c.Checks = []string{"hardcoded-secret"}
	l, err := c.Linter(nil)
	require.NoError(t, err)
	diags, err := l.LintFile(context.Background(), []byte("val pin = \"1234\"\nval password = \"x\"\n"), "Test.kt")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, 1, diags[0].Pos.Line)
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`types:
  - name: com.example.Vault
    supertypes: [kotlin.Any]
    members:
      - "static open(kotlin.String): com.example.Vault"
`), 0o600))

	c := Default()
	c.Library = []string{path}
	lib, err := c.LoadLibrary()
	require.NoError(t, err)
	assert.Len(t, lib.Members("com.example.Vault", "open"), 1)
	_, ok := lib.Type("java.security.MessageDigest")
	assert.True(t, ok)

	c.Library = []string{filepath.Join(dir, "missing.yaml")}
	_, err = c.LoadLibrary()
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("types: [{name: X, members: ['f(']}]\n"), 0o600))
	c.Library = []string{bad}
	_, err = c.LoadLibrary()
	assert.ErrorContains(t, err, bad)
}

func TestLinter_ForbiddenCalls(t *testing.T) {
	c := Default()
	c.ForbiddenCalls = []ForbiddenCall{{Signature: "java.lang.System.getenv(kotlin.String)", Severity: "error"}}
	c.Checks = []string{lint.ForbiddenCallName}
	require.NoError(t, c.Validate())
	l, err := c.Linter(nil)
	require.NoError(t, err)
	diags, err := l.LintFile(context.Background(), []byte("fun f() {\n    System.getenv(\"HOME\")\n}\n"), "Test.kt")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, lint.SeverityError, diags[0].Severity)
	assert.Equal(t, 2, diags[0].Pos.Line)
}
