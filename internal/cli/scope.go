package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newScopeCommand() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "scope FILE OFFSET...",
		Short: "Print the scope name at character offsets",
		Long: `Print the full scope name and the extent of the innermost scope at each
character offset of a file. Offsets count Unicode characters from 0.

Examples:
  tmscope scope main.cpp 0 42 117`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			offsets, err := parseOffsets(args[1:])
			if err != nil {
				return err
			}

			env, err := loadEnvironment(cmd, nil)
			if err != nil {
				return err
			}
			doc, _, err := env.openDocument(cmd.Context(), args[0], scope, nil)
			if err != nil {
				return err
			}
			if doc.Err() != nil {
				env.logger.Warn("no scopes available", "error", doc.Err())
			}

			f := env.treeFormatter()
			out := cmd.OutOrStdout()
			for _, p := range offsets {
				fmt.Fprint(out, f.FormatScope(p, doc.ScopeName(p), doc.ScopeExtent(p)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "grammar scope to parse with instead of the file name")

	return cmd
}

func parseOffsets(args []string) ([]int, error) {
	offsets := make([]int, 0, len(args))
	for _, arg := range args {
		p, err := strconv.Atoi(arg)
		if err != nil || p < 0 {
			return nil, &UsageError{Arg: arg, Reason: "offset must be a non-negative integer"}
		}
		offsets = append(offsets, p)
	}
	return offsets, nil
}
