package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapcalc/internal/cli/config"
	"github.com/leapstack-labs/leapcalc/internal/history"
	"github.com/spf13/cobra"
)

const (
	replPrompt     = "calc> "
	replContPrompt = "  ...> "
)

// lineReader is the part of readline the REPL loop needs.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var historyFile string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive evaluation session",
		Long: `Start an interactive session that evaluates one expression per line.

An expression with unclosed parentheses continues on the next line; an
empty line evaluates what has been typed so far. Lines starting with a dot
are session commands, see .help.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if historyFile == "" {
				historyFile = config.DefaultHistoryFile
			}
			if err := os.MkdirAll(filepath.Dir(historyFile), 0750); err != nil {
				cmdCtx.Logger.Warn("failed to create REPL history directory", "error", err)
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          replPrompt,
				HistoryFile:     historyFile,
				AutoComplete:    newREPLCompleter(),
				InterruptPrompt: "^C",
				EOFPrompt:       ".quit",
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to initialize REPL: %w", err)
			}
			defer func() { _ = rl.Close() }()

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "leapcalc REPL")
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
			_, _ = fmt.Fprintln(cmd.OutOrStdout())

			return runREPL(cmd.Context(), cmdCtx, rl)
		},
	}

	cmd.Flags().StringVar(&historyFile, "history-file", "", "Line history file (default "+config.DefaultHistoryFile+")")

	return cmd
}

// runREPL reads lines until EOF or .quit.
func runREPL(ctx context.Context, cmdCtx *CommandContext, rl lineReader) error {
	var buf strings.Builder

	reset := func() {
		buf.Reset()
		rl.SetPrompt(replPrompt)
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			// Input still pending at Ctrl-D is evaluated, not dropped.
			if strings.TrimSpace(buf.String()) != "" {
				evalREPLLine(ctx, cmdCtx, buf.String())
			}
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)

		if buf.Len() == 0 {
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, ".") {
				if quit := handleREPLCommand(ctx, cmdCtx, trimmed); quit {
					return nil
				}
				continue
			}
		}

		if trimmed != "" {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(line)
			if parenBalance(buf.String()) > 0 {
				rl.SetPrompt(replContPrompt)
				continue
			}
		}

		evalREPLLine(ctx, cmdCtx, buf.String())
		reset()
	}
}

func evalREPLLine(ctx context.Context, cmdCtx *CommandContext, expr string) {
	r := cmdCtx.Renderer
	res := cmdCtx.Engine.Evaluate(ctx, expr, history.SourceREPL)
	if res.Err != nil {
		if diag := formatDiagnostic(expr, res.Err); diag != "" {
			_, _ = fmt.Fprintln(r.ErrWriter(), diag)
		}
		r.Error(res.Err.Error())
		return
	}
	r.Println(r.Styles().Result.Render(strconv.FormatInt(res.Value, 10)))
}

// parenBalance counts unclosed parentheses.
func parenBalance(s string) int {
	n := 0
	for _, c := range s {
		switch c {
		case '(':
			n++
		case ')':
			n--
		}
	}
	return n
}

// handleREPLCommand runs a dot-command and reports whether to quit.
func handleREPLCommand(ctx context.Context, cmdCtx *CommandContext, line string) bool {
	r := cmdCtx.Renderer
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(command) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.Writer())

	case ".tokens":
		if rest == "" {
			r.Error("usage: .tokens <expression>")
			return false
		}
		toks, err := cmdCtx.Engine.Tokenize(rest)
		if err != nil {
			r.Error(err.Error())
			return false
		}
		for _, tok := range toks {
			kind := r.Styles().Token.Render(fmt.Sprintf("%-6s", tok.Kind))
			r.Printf("%s %-12s %s\n", kind, tok.Literal(), r.Muted(tok.Pos().String()))
		}

	case ".history":
		printREPLHistory(ctx, cmdCtx, rest)

	case ".clear":
		_, _ = fmt.Fprint(r.Writer(), "\033[H\033[2J")

	default:
		r.Error(fmt.Sprintf("unknown command: %s (type .help for commands)", command))
	}
	return false
}

func printREPLHistory(ctx context.Context, cmdCtx *CommandContext, arg string) {
	r := cmdCtx.Renderer
	store := cmdCtx.Engine.History()
	if store == nil {
		r.Error("history is not enabled (use --history or set history.enabled)")
		return
	}

	limit := 10
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			r.Error("usage: .history [count]")
			return
		}
		limit = n
	}

	records, err := store.List(ctx, history.ListOptions{Limit: limit})
	if err != nil {
		r.Error(err.Error())
		return
	}
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		r.Printf("%-24s = %s\n", rec.Expression, recordOutcome(rec))
	}
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help               Show this help message
  .tokens <expr>      Show the tokens of an expression
  .history [count]    Show recent evaluations (requires history)
  .clear              Clear the screen
  .quit / .exit       Exit the REPL

Tips:
  - Unclosed parentheses continue on the next line
  - An empty line evaluates a pending multi-line expression
  - Ctrl-C discards the current input
`
	_, _ = fmt.Fprintln(w, help)
}

func newREPLCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".tokens"),
		readline.PcItem(".history"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
