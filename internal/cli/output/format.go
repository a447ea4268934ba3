package output

import (
	"fmt"
	"strings"
)

// FormatHeader formats a markdown header of the given level.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue formats a markdown list item with a bold key.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}

// FormatCode wraps s in an inline code span.
func FormatCode(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}
