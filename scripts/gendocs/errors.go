package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapcalc/pkg/parser"
)

var errorExamples = map[parser.ErrorKind]string{
	parser.UnexpectedEndOfInput: "1 +",
	parser.UnexpectedToken:      "1 2",
	parser.UnmatchedParenthesis: "(1 + 2",
	parser.DivisionByZero:       "4 / (2 - 2)",
	parser.IntegerOverflow:      "9223372036854775808",
}

// generateErrorDocs writes the evaluation error reference page. Messages
// are produced by evaluating the examples, so they stay in sync.
func generateErrorDocs(outDir string) error {
	log.Printf("Generating error docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Errors", "Evaluation error kinds")
	w.GeneratedMarker()

	w.Header(1, "Errors")
	w.Paragraph("A failed evaluation reports exactly one error with a kind and the line and column where it was found.")

	headers := []string{"Kind", "Meaning", "Example", "Message"}
	var rows [][]string
	for _, kind := range parser.Kinds() {
		example, msg := "-", "-"
		if src, ok := errorExamples[kind]; ok {
			example = InlineCode(src)
			_, err := parser.Evaluate(src)
			var pe *parser.ParseError
			if !errors.As(err, &pe) || pe.Kind != kind {
				return fmt.Errorf("example %q does not produce %s: %v", src, kind, err)
			}
			msg = pe.Error()
		}
		rows = append(rows, []string{InlineCode(kind.String()), cleanDescription(kind.Sentinel().Error()), example, msg})
	}
	w.Table(headers, rows)

	log.Printf("  Generated errors.md")
	return os.WriteFile(filepath.Join(outDir, "errors.md"), w.Bytes(), 0600)
}
