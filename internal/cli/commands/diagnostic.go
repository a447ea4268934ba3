package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/parser"
)

// ErrorOutput describes an evaluation error in structured output.
type ErrorOutput struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column  int    `json:"column,omitempty" yaml:"column,omitempty"`
}

func newErrorOutput(err error) *ErrorOutput {
	if err == nil {
		return nil
	}
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return &ErrorOutput{Kind: pe.Kind.String(), Message: pe.Message, Line: pe.Pos.Line, Column: pe.Pos.Column}
	}
	return &ErrorOutput{Kind: "Error", Message: err.Error()}
}

// formatDiagnostic renders the offending source line with a caret under
// the error column. It returns "" for errors without a position.
func formatDiagnostic(src string, err error) string {
	var pe *parser.ParseError
	if !errors.As(err, &pe) || !pe.Pos.IsValid() {
		return ""
	}

	lines := strings.Split(src, "\n")
	if pe.Pos.Line > len(lines) {
		return ""
	}
	line := strings.TrimRight(lines[pe.Pos.Line-1], "\r")

	// Keep tabs so the caret lines up with the source.
	var pad strings.Builder
	col := 1
	for _, r := range line {
		if col >= pe.Pos.Column {
			break
		}
		if r == '\t' {
			pad.WriteRune('\t')
		} else {
			pad.WriteRune(' ')
		}
		col++
	}
	for ; col < pe.Pos.Column; col++ {
		pad.WriteRune(' ')
	}

	return fmt.Sprintf("%4d | %s\n     | %s^", pe.Pos.Line, line, pad.String())
}
