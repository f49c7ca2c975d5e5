package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tmscope/pkg/markdown"
	"github.com/yaklabco/tmscope/pkg/source"
)

func newFencesCommand() *cobra.Command {
	var tree bool

	cmd := &cobra.Command{
		Use:   "fences FILE.md",
		Short: "List fenced code blocks of a Markdown file and their scopes",
		Long: `Find every fenced code block of a Markdown file, pick a grammar from its
info string (or its content) and parse the body. Offsets are characters of
the Markdown file.

Examples:
  tmscope fences README.md
  tmscope fences README.md --tree`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd, nil)
			if err != nil {
				return err
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			blocks := markdown.ParseFences(src, env.registry, env.parseOptions())
			out := cmd.OutOrStdout()
			if len(blocks) == 0 {
				fmt.Fprintln(out, env.styles.Dim.Render("No fenced code blocks"))
				return nil
			}

			text := source.New(string(src))
			formatter := env.treeFormatter()
			failed := 0
			for _, b := range blocks {
				lang := b.Language
				if lang == "" {
					lang = "-"
				}
				fmt.Fprintf(out, "%s %s %s %s\n",
					env.styles.FilePath.Render(fmt.Sprintf("line %d", b.Line)),
					env.styles.Dim.Render(fmt.Sprintf("%d-%d", b.Region.Begin(), b.Region.End())),
					lang,
					env.styles.ScopeName.Render(b.Scope))
				if b.Err != nil {
					failed++
					fmt.Fprintln(out, "  "+env.styles.Failure.Render(b.Err.Error()))
					continue
				}
				if tree {
					fmt.Fprint(out, formatter.Format(&b.Root.Node, text))
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d blocks: %w", failed, len(blocks), ErrParseFailures)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&tree, "tree", false, "print the scope tree of every block")

	return cmd
}
