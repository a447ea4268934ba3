// Package main provides tests for the leapcalc CLI.
package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapcalc/internal/cli"
	"github.com/leapstack-labs/leapcalc/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(config.ResetConfig)
	t.Chdir(t.TempDir())

	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapcalc v")
}

func TestHelpCommand(t *testing.T) {
	out, _, err := run(t, "--help")
	require.NoError(t, err)

	for _, expected := range []string{"eval", "tokens", "repl", "batch", "serve", "history"} {
		assert.Contains(t, out, expected)
	}
}

func TestEvalEndToEnd(t *testing.T) {
	out, _, err := run(t, "eval", "-o", "text", "(1 + 2) * -3")
	require.NoError(t, err)
	assert.Equal(t, "-9\n", out)
}

func TestEvalEndToEnd_Error(t *testing.T) {
	_, stderr, err := run(t, "eval", "-o", "text", "4 / (2 - 2)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
	assert.Contains(t, stderr, "^")
}
