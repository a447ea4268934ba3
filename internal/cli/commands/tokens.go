package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapcalc/pkg/token"
	"github.com/spf13/cobra"
)

// TokenOutput is a token in structured output.
type TokenOutput struct {
	Kind     string `json:"kind" yaml:"kind"`
	Text     string `json:"text" yaml:"text"`
	Value    uint64 `json:"value,omitempty" yaml:"value,omitempty"`
	Overflow bool   `json:"overflow,omitempty" yaml:"overflow,omitempty"`
	Line     int    `json:"line" yaml:"line"`
	Column   int    `json:"column" yaml:"column"`
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:     "tokens [expression...]",
		Aliases: []string{"tokenize", "lex"},
		Short:   "Show the tokens of an expression",
		Long: `Split input into integer literals, names and single characters and
print the resulting token stream. Useful to see how an expression is read
before it is evaluated. Input starting with '-' must follow "--".`,
		Example: `  leapcalc tokens "a25 + 0x1F"
  leapcalc tokens --radix-prefixes "0x1F"
  leapcalc tokens -- -5+3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(cmd, args, file)
		},
	}
	cmd.SetFlagErrorFunc(expressionFlagError)

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the input from a file")

	return cmd
}

func runTokens(cmd *cobra.Command, args []string, file string) error {
	src, err := readExpression(cmd, args, file)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	toks, err := cmdCtx.Engine.Tokenize(src)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	out := make([]TokenOutput, len(toks))
	for i, tok := range toks {
		out[i] = tokenOutput(tok)
	}
	if ok, err := r.Structured(out); ok {
		return err
	}

	if len(toks) == 0 {
		r.Println(r.Muted("(no tokens)"))
		return nil
	}

	rows := make([][]string, len(toks))
	for i, tok := range toks {
		note := ""
		if tok.Overflow {
			note = "overflow"
		}
		rows[i] = []string{strconv.Itoa(i + 1), tok.Kind.String(), tok.Literal(), tok.Pos().String(), note}
	}
	r.Table([]string{"#", "Kind", "Text", "Position", "Note"}, rows)
	r.Println(r.Muted(fmt.Sprintf("%d tokens", len(toks))))
	return nil
}

func tokenOutput(tok token.Token) TokenOutput {
	out := TokenOutput{
		Kind:     tok.Kind.String(),
		Text:     tok.Literal(),
		Overflow: tok.Overflow,
		Line:     tok.Span.Start.Line,
		Column:   tok.Span.Start.Column,
	}
	if tok.Kind == token.IntLiteral {
		out.Value = tok.Value
	}
	return out
}
