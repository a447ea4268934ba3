package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineSize bounds a single line of a batch file.
const maxLineSize = 1 << 20

// Item is one expression read from a batch file.
type Item struct {
	Line int
	Expr string
}

// ReadExpressions reads one expression per line. Blank lines and lines
// starting with # are skipped.
func ReadExpressions(r io.Reader) ([]Item, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var items []Item
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		items = append(items, Item{Line: line, Expr: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read expressions at line %d: %w", line+1, err)
	}
	return items, nil
}

// ReadFile reads expressions from path.
func ReadFile(path string) ([]Item, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadExpressions(f)
}
