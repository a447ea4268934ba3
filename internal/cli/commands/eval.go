package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/leapcalc/internal/history"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// EvalOptions holds options for the eval command.
type EvalOptions struct {
	File string
}

// EvalOutput is the structured result of the eval command.
type EvalOutput struct {
	Expression string       `json:"expression" yaml:"expression"`
	Result     *int64       `json:"result,omitempty" yaml:"result,omitempty"`
	Error      *ErrorOutput `json:"error,omitempty" yaml:"error,omitempty"`
}

// errNoExpression is returned when no input was provided.
var errNoExpression = errors.New("no expression given (pass it as arguments, with --file, or on stdin)")

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	opts := &EvalOptions{}

	cmd := &cobra.Command{
		Use:   "eval [expression...]",
		Short: "Evaluate an integer expression",
		Long: `Evaluate an integer arithmetic expression.

Supports +, -, *, / with the usual precedence, unary plus and minus, and
parentheses. Arithmetic is on signed 64-bit integers; division truncates
toward zero.

The expression is read from the arguments (joined by spaces), from a file,
or from stdin when it is not a terminal.

An expression starting with '-' must follow "--" so that it is not read as
a flag.`,
		Example: `  leapcalc eval "(2 + 3) * 4"
  leapcalc eval 1 + 2
  leapcalc eval -- -5+3
  leapcalc eval -o json -- --5
  echo "7 / 2" | leapcalc eval
  leapcalc eval -o json "1 / 0"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args, opts)
		},
	}
	cmd.SetFlagErrorFunc(expressionFlagError)

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the expression from a file")

	return cmd
}

// expressionFlagError adds a hint when an unknown flag is really an
// expression with a leading minus, such as -5+3 or --5.
func expressionFlagError(cmd *cobra.Command, err error) error {
	arg := unknownFlagArg(err.Error())
	if !looksLikeExpression(arg) {
		return err
	}
	return fmt.Errorf("%w (to evaluate an expression starting with '-', put it after --: %s -- %s)",
		err, cmd.CommandPath(), arg)
}

// unknownFlagArg extracts the offending argument from a pflag error.
func unknownFlagArg(msg string) string {
	switch {
	case strings.HasPrefix(msg, "unknown shorthand flag: "):
		if i := strings.LastIndex(msg, " in "); i >= 0 {
			return msg[i+len(" in "):]
		}
	case strings.HasPrefix(msg, "unknown flag: "):
		return strings.TrimPrefix(msg, "unknown flag: ")
	}
	return ""
}

func looksLikeExpression(arg string) bool {
	if !strings.HasPrefix(arg, "-") {
		return false
	}
	rest := strings.TrimLeft(arg, "-+")
	if rest == "" {
		return false
	}
	c := rest[0]
	return c == '(' || (c >= '0' && c <= '9')
}

// readExpression resolves the expression from args, file or stdin.
func readExpression(cmd *cobra.Command, args []string, file string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if file != "" {
		b, err := os.ReadFile(file) //nolint:gosec // path comes from the command line
		if err != nil {
			return "", fmt.Errorf("failed to read expression: %w", err)
		}
		return string(b), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errNoExpression
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errNoExpression
	}
	return string(b), nil
}

func runEval(cmd *cobra.Command, args []string, opts *EvalOptions) error {
	expr, err := readExpression(cmd, args, opts.File)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	res := cmdCtx.Engine.Evaluate(cmd.Context(), expr, history.SourceCLI)

	out := EvalOutput{Expression: strings.TrimSpace(res.Expression), Error: newErrorOutput(res.Err)}
	if res.Err == nil {
		v := res.Value
		out.Result = &v
	}

	if ok, err := r.Structured(out); ok {
		if err != nil {
			return err
		}
		return res.Err
	}

	if res.Err != nil {
		if diag := formatDiagnostic(expr, res.Err); diag != "" {
			_, _ = fmt.Fprintln(r.ErrWriter(), diag)
		}
		return res.Err
	}

	r.Println(res.Value)
	return nil
}
