package commands

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	clitest "github.com/leapstack-labs/leapcalc/internal/cli/testutil"
	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/internal/history"
	"github.com/leapstack-labs/leapcalc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader replays lines and records prompts.
type fakeReader struct {
	lines   []string
	errs    map[int]error
	prompts []string
	n       int
}

func (f *fakeReader) Readline() (string, error) {
	i := f.n
	f.n++
	if err, ok := f.errs[i]; ok {
		return "", err
	}
	if i >= len(f.lines) {
		return "", io.EOF
	}
	return f.lines[i], nil
}

func (f *fakeReader) SetPrompt(p string) {
	f.prompts = append(f.prompts, p)
}

func newREPLContext(t *testing.T, store history.Store) (*CommandContext, *clitest.TestRenderer) {
	t.Helper()
	tr := clitest.NewTestRenderer(output.ModeText)
	eng := engine.New(engine.Config{History: store, Logger: testutil.NewTestLogger(t)})
	return &CommandContext{
		Logger:   testutil.NewTestLogger(t),
		Engine:   eng,
		Renderer: tr.Renderer,
	}, tr
}

func TestREPL_Evaluates(t *testing.T) {
	cmdCtx, tr := newREPLContext(t, nil)
	rl := &fakeReader{lines: []string{"1 + 2", "", "  ", "7 / 0", "2 * 21"}}

	require.NoError(t, runREPL(context.Background(), cmdCtx, rl))
	assert.Equal(t, "3\n42\n", tr.Output())
	assert.Contains(t, tr.ErrorOutput(), "division by zero")
	assert.Contains(t, tr.ErrorOutput(), "^")
}

func TestREPL_MultiLine(t *testing.T) {
	cmdCtx, tr := newREPLContext(t, nil)
	rl := &fakeReader{lines: []string{"(1 +", "2", ") * 3", "(4", "", "5"}}

	require.NoError(t, runREPL(context.Background(), cmdCtx, rl))
	assert.Equal(t, "9\n5\n", tr.Output())
	assert.Contains(t, tr.ErrorOutput(), "never closed")
	assert.Contains(t, rl.prompts, replContPrompt)
}

func TestREPL_EOFEvaluatesPendingInput(t *testing.T) {
	cmdCtx, tr := newREPLContext(t, nil)
	rl := &fakeReader{lines: []string{"2 * (3 +", "4"}}

	require.NoError(t, runREPL(context.Background(), cmdCtx, rl))
	assert.Equal(t, "", tr.Output())
	assert.Contains(t, tr.ErrorOutput(), "never closed")
}

func TestREPL_InterruptDiscardsInput(t *testing.T) {
	cmdCtx, tr := newREPLContext(t, nil)
	rl := &fakeReader{
		lines: []string{"(1 +", "", "8"},
		errs:  map[int]error{1: readline.ErrInterrupt},
	}

	require.NoError(t, runREPL(context.Background(), cmdCtx, rl))
	assert.Equal(t, "8\n", tr.Output())
	assert.Empty(t, tr.ErrorOutput())
}

func TestREPL_DotCommands(t *testing.T) {
	cmdCtx, tr := newREPLContext(t, nil)
	rl := &fakeReader{lines: []string{".help", ".tokens 1+a", ".tokens", ".history", ".bogus", ".quit", "1+1"}}

	require.NoError(t, runREPL(context.Background(), cmdCtx, rl))

	out := tr.Output()
	assert.Contains(t, out, ".tokens <expr>")
	assert.Contains(t, out, "INT")
	assert.Contains(t, out, "NAME")
	assert.Equal(t, 6, rl.n, ".quit stops the loop")

	errOut := tr.ErrorOutput()
	assert.Contains(t, errOut, "usage: .tokens")
	assert.Contains(t, errOut, "history is not enabled")
	assert.Contains(t, errOut, "unknown command: .bogus")
}

func TestREPL_History(t *testing.T) {
	ctx := context.Background()
	store, err := history.Open(ctx, history.DriverSQLite, filepath.Join(t.TempDir(), "h.db"), testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	cmdCtx, tr := newREPLContext(t, store)
	rl := &fakeReader{lines: []string{"6*7", "(1", "", ".history 5"}}

	require.NoError(t, runREPL(ctx, cmdCtx, rl))
	assert.Contains(t, tr.Output(), "6*7")
	assert.Contains(t, tr.Output(), "= 42")

	records, err := store.List(ctx, history.ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, history.SourceREPL, records[0].Source)
}

func TestParenBalance(t *testing.T) {
	assert.Equal(t, 0, parenBalance("1+2"))
	assert.Equal(t, 2, parenBalance("((1"))
	assert.Equal(t, -1, parenBalance("1)"))
}
