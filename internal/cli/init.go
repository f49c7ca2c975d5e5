package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/config"
)

// configFilePermissions is the file mode for configuration files (world-readable).
const configFilePermissions = 0644

// initFlags holds the flags for the init command.
type initFlags struct {
	force    bool
	format   string
	output   string
	grammars []string
}

func newInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new tmscope configuration file",
		Long: `Create a new .tmscope.yml configuration file in the current directory
with the default limits and the grammar directories to load.

Examples:
  tmscope init                          Create .tmscope.yml
  tmscope init --grammar-dir grammars   Point grammar_paths at ./grammars
  tmscope init --format json            Create .tmscope.json instead
  tmscope init --output custom.yml      Write to a custom file path`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Overwrite existing configuration file")
	cmd.Flags().StringVar(&flags.format, "format", "yaml", "Output format: yaml or json")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file path (default: .tmscope.yml or .tmscope.json)")
	cmd.Flags().StringSliceVar(&flags.grammars, "grammar-dir", nil, "Grammar directories to list in grammar_paths")

	return cmd
}

func runInit(flags *initFlags) error {
	logger := logging.NewInteractive()

	if flags.format != "yaml" && flags.format != "json" {
		return &UsageError{Arg: "--format", Reason: fmt.Sprintf("invalid format %q: must be yaml or json", flags.format)}
	}

	outputPath := flags.output
	if outputPath == "" {
		if flags.format == "json" {
			outputPath = ".tmscope.json"
		} else {
			outputPath = ".tmscope.yml"
		}
	}

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if _, err := os.Stat(absPath); err == nil {
		if !flags.force {
			return fmt.Errorf("file %q already exists; use --force to overwrite", outputPath)
		}
		logger.Warn("overwriting existing file", logging.FieldPath, outputPath)
	}

	content, err := config.GenerateTemplate(config.TemplateOptions{
		Format:       flags.format,
		GrammarPaths: flags.grammars,
	})
	if err != nil {
		return fmt.Errorf("generate template: %w", err)
	}

	if err := os.WriteFile(absPath, content, configFilePermissions); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	logger.Info("created configuration file", logging.FieldPath, outputPath)
	logger.Info("run 'tmscope grammars' to see the grammars it loads")

	return nil
}
