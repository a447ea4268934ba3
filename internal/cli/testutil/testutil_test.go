package testutil

import (
	"os"
	"testing"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteExprFile(t *testing.T) {
	path := WriteExprFile(t, "1+1", "# note")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1+1\n# note\n", string(b))
}

func TestExecuteCommand(t *testing.T) {
	cmd := &cobra.Command{
		Use: "echo",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(args)
			cmd.PrintErrln("done")
			return nil
		},
	}

	stdout, stderr, err := ExecuteCommand(t, cmd, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "[a b]\n", stdout)
	assert.Equal(t, "done\n", stderr)
}

func TestTestRenderer(t *testing.T) {
	tr := NewTestRenderer(output.ModeAuto)
	tr.Header(1, "Title")
	tr.Success("ok")
	tr.Error("bad")

	AssertNoANSI(t, tr.Output())
	AssertValidMarkdown(t, tr.Output())
	assert.Contains(t, tr.Output(), "# Title")
	assert.Contains(t, tr.ErrorOutput(), "bad")

	tr.Reset()
	assert.Empty(t, tr.Output())
}
