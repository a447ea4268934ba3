package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapcalc/internal/cli"
	"github.com/leapstack-labs/leapcalc/internal/cli/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// separatorNote explains how to pass an expression that starts with '-'.
const separatorNote = "Arguments after `--` are never read as flags. " +
	"Use it for expressions that start with a minus sign, such as `leapcalc eval -- -5+3`."

// generateCLIDocs writes an index page plus one page per command, nested
// commands included (history list becomes history-list.md).
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	pages := map[string][]byte{"index.md": cliIndexPage(root)}
	for _, cmd := range documentedCommands(root) {
		pages[pageName(cmd)+".md"] = commandPage(cmd)
	}

	for name, content := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), content, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

// documentedCommands returns every visible command below root, depth first.
func documentedCommands(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		if !cmd.IsAvailableCommand() || cmd.Name() == "help" {
			continue
		}
		out = append(out, cmd)
		out = append(out, documentedCommands(cmd)...)
	}
	return out
}

// pageName is the command path without the binary name, joined by dashes.
func pageName(cmd *cobra.Command) string {
	path := strings.Fields(cmd.CommandPath())
	return strings.Join(path[1:], "-")
}

// takesExpression reports whether cmd reads an expression from its arguments.
func takesExpression(cmd *cobra.Command) bool {
	return strings.Contains(cmd.Use, "[expression...]")
}

func cliIndexPage(root *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for leapcalc")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/leapcalc/cmd/leapcalc@latest")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range documentedCommands(root) {
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(strings.TrimPrefix(cmd.CommandPath(), root.Name()+" ")), pageName(cmd))
		rows = append(rows, []string{link, aliasList(cmd), cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Aliases", "Description"}, rows)

	w.Header(2, "Global Options")
	w.Paragraph("Options bound to a configuration key can also be set in " +
		InlineCode(config.ConfigFileNames[0]) + " or through the listed environment variable. " +
		"Precedence: flag, environment, config file, default.")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Negative Expressions")
	w.Paragraph(separatorNote)

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "An evaluation failed, or the command could not run (details on stderr)"},
	})

	return w.Bytes()
}

func commandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.CommandPath(), cleanDescription(cmd.Short))
	w.GeneratedMarker()

	w.Header(1, cmd.CommandPath())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	w.CodeBlock("bash", cmd.UseLine())

	if len(cmd.Aliases) > 0 {
		w.Paragraph("Aliases: " + aliasList(cmd))
	}

	if cmd.HasAvailableSubCommands() {
		w.Header(2, "Subcommands")
		var rows [][]string
		for _, sub := range cmd.Commands() {
			if !sub.IsAvailableCommand() {
				continue
			}
			link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(sub.Name()), pageName(sub))
			rows = append(rows, []string{link, cleanDescription(sub.Short)})
		}
		w.Table([]string{"Subcommand", "Description"}, rows)
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalNonPersistentFlags())
	}

	if takesExpression(cmd) {
		w.Header(2, "Negative Expressions")
		w.Paragraph(separatorNote)
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}

	if cmd.HasAvailableInheritedFlags() {
		w.Paragraph("Global options are listed on the [CLI reference](/cli/index).")
	}

	return w.Bytes()
}

func aliasList(cmd *cobra.Command) string {
	aliases := make([]string, len(cmd.Aliases))
	for i, a := range cmd.Aliases {
		aliases[i] = InlineCode(a)
	}
	return strings.Join(aliases, ", ")
}

// writeFlagsTable lists flags with the configuration key and environment
// variable they set, when they set one.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			name = InlineCode("-"+f.Shorthand) + ", " + name
		}
		key, env := "", ""
		if k := config.FlagConfigKey(f.Name); k != "" {
			key, env = InlineCode(k), InlineCode(config.EnvVar(k))
		}
		rows = append(rows, []string{name, key, env, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Config key", "Environment", "Description"}, rows)
}

// dedent strips the two-space indent cobra examples are written with.
func dedent(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "  ")
	}
	return strings.Join(lines, "\n")
}
