// Package cli provides the Cobra command structure for tmscope.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tmscope/internal/logging"
)

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewRootCommand creates the root tmscope command with all subcommands.
func NewRootCommand(info BuildInfo) *cobra.Command {
	var debug bool
	var configPath string
	var color string
	var grammars []string

	rootCmd := &cobra.Command{
		Use:   "tmscope",
		Short: "Scope trees for source files from TextMate grammars",
		Long: `tmscope parses text with TextMate grammars (JSON or YAML) and
produces a tree of nested, scope-named regions. It answers which scope covers
a character, keeps the tree current across edits without reparsing the whole
document, and parses whole directories or the fenced code blocks of Markdown
files.`,
		Version: info.Version,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if debug {
				logging.SetLevel("debug")
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags.
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&color, "color", "auto",
		"colorize output: auto, always, never")
	rootCmd.PersistentFlags().StringSliceVar(&grammars, "grammars", nil,
		"grammar directory or file to load (repeatable)")

	// Add subcommands.
	rootCmd.AddCommand(newParseCommand())
	rootCmd.AddCommand(newScopeCommand())
	rootCmd.AddCommand(newEditCommand())
	rootCmd.AddCommand(newGrammarsCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newFencesCommand())
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newVersionCommand(info))

	// Apply styled help formatting.
	helpFormatter := NewHelpFormatter(color, os.Stdout)
	helpFormatter.ApplyToCommand(rootCmd)

	return rootCmd
}
