package cli

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/document"
	"github.com/yaklabco/tmscope/pkg/fsutil"
	"github.com/yaklabco/tmscope/pkg/metrics"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

// ErrVerifyMismatch is returned by edit --verify when the updated tree
// differs from a fresh parse of the edited text.
var ErrVerifyMismatch = errors.New("incremental tree differs from full reparse")

type editFlags struct {
	scope  string
	at     int
	remove int
	insert string
	verify bool
	stats  bool
	write  bool
	backup bool
}

func newEditCommand() *cobra.Command {
	flags := &editFlags{}

	cmd := &cobra.Command{
		Use:   "edit FILE",
		Short: "Apply an edit incrementally and print the updated tree",
		Long: `Parse a file, replace --remove characters at offset --at with --insert,
update the tree incrementally and print it. The file itself is only changed
with --write, and never if it was modified while tmscope worked on it.

Examples:
  tmscope edit main.cpp --at 10 --insert "int x;"
  tmscope edit main.cpp --at 10 --remove 3 --verify
  tmscope edit main.cpp --at 0 --insert "// header\n" --write --backup`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.scope, "scope", "", "grammar scope to parse with instead of the file name")
	cmd.Flags().IntVar(&flags.at, "at", 0, "character offset of the edit")
	cmd.Flags().IntVar(&flags.remove, "remove", 0, "number of characters removed at --at")
	cmd.Flags().StringVar(&flags.insert, "insert", "", "text inserted at --at")
	cmd.Flags().BoolVar(&flags.verify, "verify", false, "compare the updated tree with a full reparse")
	cmd.Flags().BoolVar(&flags.stats, "stats", false, "print engine statistics after the tree")
	cmd.Flags().BoolVar(&flags.write, "write", false, "write the edited text back to the file")
	cmd.Flags().BoolVar(&flags.backup, "backup", false, "keep the original as FILE"+fsutil.BackupSuffix+" when writing")

	return cmd
}

func runEdit(cmd *cobra.Command, path string, flags *editFlags) error {
	env, err := loadEnvironment(cmd, nil)
	if err != nil {
		return err
	}

	collector := metrics.New()
	doc, snap, err := env.openDocument(cmd.Context(), path, flags.scope, collector)
	if err != nil {
		return err
	}

	newText, edit, err := spliceText(doc.Text().Runes(), flags.at, flags.remove, flags.insert)
	if err != nil {
		return err
	}
	if err := doc.ApplyEdit(edit, newText); err != nil {
		return fmt.Errorf("apply edit: %w", err)
	}
	env.logger.Debug("applied edit",
		logging.FieldPosition, edit.Position,
		logging.FieldRemoved, edit.CharsRemoved,
		logging.FieldAdded, edit.CharsAdded,
	)
	if doc.Err() != nil {
		return fmt.Errorf("%s: %w: %w", path, ErrRunaway, doc.Err())
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, env.treeFormatter().Format(&doc.Root().Node, doc.Text()))

	if flags.verify {
		if err := verifyEdit(doc, env); err != nil {
			return err
		}
		fmt.Fprintln(out, env.styles.Success.Render("Tree matches a full reparse"))
	}
	if flags.write {
		if err := fsutil.Save(cmd.Context(), snap, []byte(newText), flags.backup); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		env.logger.Info("wrote file", logging.FieldPath, path)
	}
	if flags.stats {
		return env.printMetrics(out, collector)
	}
	return nil
}

// spliceText replaces remove runes at at with insert.
func spliceText(runes []rune, at, remove int, insert string) (string, syntax.Edit, error) {
	switch {
	case at < 0 || at > len(runes):
		return "", syntax.Edit{}, &UsageError{Arg: "--at", Reason: fmt.Sprintf("offset %d outside text of %d characters", at, len(runes))}
	case remove < 0 || at+remove > len(runes):
		return "", syntax.Edit{}, &UsageError{Arg: "--remove", Reason: fmt.Sprintf("cannot remove %d characters at %d", remove, at)}
	}

	text := string(runes[:at]) + insert + string(runes[at+remove:])
	return text, syntax.Edit{
		Position:     at,
		CharsRemoved: remove,
		CharsAdded:   utf8.RuneCountInString(insert),
	}, nil
}

func verifyEdit(doc *document.Document, env *environment) error {
	fresh, err := document.Open(doc.Text().String(), doc.Grammar().Clone(), document.Options{
		Parse:  env.parseOptions(),
		Logger: env.logger,
	})
	if err != nil {
		return fmt.Errorf("reparse: %w", err)
	}
	if fresh.Root() == nil || !syntax.Equal(&doc.Root().Node, &fresh.Root().Node) {
		return ErrVerifyMismatch
	}
	return nil
}
