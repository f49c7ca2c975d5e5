package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tmscope/pkg/config"
)

// grammarInfo represents a grammar in JSON output.
type grammarInfo struct {
	Scope     string   `json:"scope"`
	Name      string   `json:"name,omitempty"`
	FileTypes []string `json:"file_types,omitempty"`
}

func newGrammarsCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "grammars",
		Short: "List registered grammars",
		Long: `List every grammar loaded from the configured grammar paths with its scope
name, display name and the file types it claims.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadEnvironment(cmd, nil)
			if err != nil {
				return err
			}
			entries := env.registry.Scopes()
			out := cmd.OutOrStdout()

			if config.OutputFormat(format) == config.FormatJSON {
				infos := make([]grammarInfo, 0, len(entries))
				for _, e := range entries {
					infos = append(infos, grammarInfo{Scope: e.ScopeName, Name: e.Name, FileTypes: e.FileTypes})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(infos); err != nil {
					return fmt.Errorf("encoding grammars: %w", err)
				}
				return nil
			}

			fmt.Fprint(out, newTable(env).FormatGrammars(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json")

	return cmd
}
