// Package output renders command results for terminals, pipes and tools.
package output

import "strings"

// Mode selects how command output is rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeJSON     Mode = "json"
	ModeYAML     Mode = "yaml"
	ModeMarkdown Mode = "markdown"
)

// ParseMode normalizes a configured output format. Unknown values fall back
// to ModeAuto.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "table":
		return ModeText
	case "json":
		return ModeJSON
	case "yaml", "yml":
		return ModeYAML
	case "markdown", "md":
		return ModeMarkdown
	default:
		return ModeAuto
	}
}

// Structured reports whether the mode is meant for machines.
func (m Mode) Structured() bool {
	return m == ModeJSON || m == ModeYAML
}
