package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/config"
	"github.com/yaklabco/tmscope/pkg/document"
	"github.com/yaklabco/tmscope/pkg/fsutil"
	"github.com/yaklabco/tmscope/pkg/metrics"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

// ErrRunaway is returned when a grammar had to be stopped.
var ErrRunaway = errors.New("grammar stopped without finishing the tree")

type parseFlags struct {
	scope  string
	format string
	stats  bool
}

func newParseCommand() *cobra.Command {
	flags := &parseFlags{}

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the scope tree of a file",
		Long: `Parse a file with the grammar its name selects and print the scope tree.

Examples:
  tmscope parse main.cpp                 # Tree of a C++ file
  tmscope parse Info.plist --format json # Tree as JSON
  tmscope parse notes.txt --scope source.c`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.scope, "scope", "", "grammar scope to parse with instead of the file name")
	cmd.Flags().StringVar(&flags.format, "format", string(config.FormatTree), "output format: tree, json")
	cmd.Flags().BoolVar(&flags.stats, "stats", false, "print engine statistics after the tree")

	return cmd
}

func runParse(cmd *cobra.Command, path string, flags *parseFlags) error {
	format := config.OutputFormat(flags.format)
	if !format.IsValid() {
		return &UsageError{Arg: "--format", Reason: fmt.Sprintf("unknown format %q", flags.format)}
	}

	env, err := loadEnvironment(cmd, nil)
	if err != nil {
		return err
	}

	collector := metrics.New()
	doc, _, err := env.openDocument(cmd.Context(), path, flags.scope, collector)
	if err != nil {
		return err
	}
	if doc.Err() != nil {
		return fmt.Errorf("%s: %w: %w", path, ErrRunaway, doc.Err())
	}

	out := cmd.OutOrStdout()
	if format == config.FormatJSON {
		if err := writeTreeJSON(out, doc); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, env.treeFormatter().Format(&doc.Root().Node, doc.Text()))
	}

	if flags.stats {
		return env.printMetrics(out, collector)
	}
	return nil
}

// openDocument reads path and parses it with the grammar chosen by
// grammarFor. The snapshot lets edit write the file back safely.
func (e *environment) openDocument(
	ctx context.Context, path, scope string, observer document.Observer,
) (*document.Document, *fsutil.Snapshot, error) {
	content, snap, err := fsutil.ReadFile(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	g, err := e.grammarFor(path, content, scope)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.FromContext(ctx)
	doc, err := document.Open(string(content), g, document.Options{
		Parse:    e.parseOptions(),
		Logger:   logger,
		Observer: observer,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	if doc.Root() != nil {
		logger.Debug("parsed", logging.FieldPath, path, logging.FieldNodes, doc.Root().Count())
	}
	return doc, snap, nil
}

func (e *environment) printMetrics(w io.Writer, collector *metrics.Collector) error {
	sum, err := collector.Summary()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	fmt.Fprint(w, "\n"+e.styles.FormatMetrics(sum))
	return nil
}

// nodeJSON is the JSON form of a tree node.
type nodeJSON struct {
	Name     string      `json:"name,omitempty"`
	Begin    int         `json:"begin"`
	End      int         `json:"end"`
	Text     string      `json:"text,omitempty"`
	Unclosed bool        `json:"unclosed,omitempty"`
	Children []*nodeJSON `json:"children,omitempty"`
}

func toJSON(n *syntax.Node, doc *document.Document) *nodeJSON {
	out := &nodeJSON{
		Name:     n.Name,
		Begin:    n.Region.Begin(),
		End:      n.Region.End(),
		Unclosed: n.Unclosed,
	}
	if n.IsLeaf() {
		out.Text = doc.Text().Slice(n.Region.Begin(), n.Region.End())
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, toJSON(child, doc))
	}
	return out
}

func writeTreeJSON(w io.Writer, doc *document.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toJSON(&doc.Root().Node, doc)); err != nil {
		return fmt.Errorf("encoding tree: %w", err)
	}
	return nil
}
