package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Result  lipgloss.Style
	Token   lipgloss.Style
}

// NewStyles builds styles bound to a lipgloss renderer, so color output
// follows the destination writer rather than os.Stdout.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Underline(true),
		Header2: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    lr.NewStyle().Bold(true),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("12")),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Result:  lr.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		Token:   lr.NewStyle().Foreground(lipgloss.Color("6")),
	}
}
