package pretty

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yaklabco/tmscope/pkg/region"
	"github.com/yaklabco/tmscope/pkg/source"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

const (
	treeIndent   = "  "
	ellipsis     = "..."
	minDataWidth = 8
)

// TreeFormatter renders scope trees for the terminal.
type TreeFormatter struct {
	styles    *Styles
	termWidth int
}

// NewTreeFormatter creates a TreeFormatter. Leaf data is truncated so that
// lines fit in termWidth columns; a non-positive width disables truncation.
func NewTreeFormatter(styles *Styles, termWidth int) *TreeFormatter {
	return &TreeFormatter{styles: styles, termWidth: termWidth}
}

// Format renders the tree rooted at root, one node per line, children
// indented below their parent. Leaves show the text they cover.
func (f *TreeFormatter) Format(root *syntax.Node, text *source.Text) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	_ = syntax.Walk(root, func(node *syntax.Node, depth int) error {
		f.writeNode(&b, node, depth, text)
		return nil
	})
	return b.String()
}

func (f *TreeFormatter) writeNode(b *strings.Builder, node *syntax.Node, depth int, text *source.Text) {
	prefix := f.styles.Guide.Render(strings.Repeat(treeIndent, depth))
	line := prefix + f.styles.Region.Render(formatRegion(node.Region)) + " " + f.scope(node.Name)
	if node.Unclosed {
		line += " " + f.styles.Unclosed.Render("(unclosed)")
	}
	if node.IsLeaf() && text != nil {
		data := strconv.Quote(text.Slice(node.Region.Begin(), node.Region.End()))
		if f.termWidth > 0 {
			room := f.termWidth - lipgloss.Width(line) - 1
			data = truncate(data, max(room, minDataWidth))
		}
		line += " " + f.styles.Data.Render(data)
	}
	b.WriteString(line)
	b.WriteByte('\n')
}

func (f *TreeFormatter) scope(name string) string {
	if name == "" {
		return f.styles.Dim.Render("(anonymous)")
	}
	return f.styles.ScopeName.Render(name)
}

// FormatScope renders the answer to a scope query at point.
func (f *TreeFormatter) FormatScope(point int, name string, extent region.Region) string {
	if name == "" {
		return fmt.Sprintf("%s %s\n", f.styles.Region.Render(strconv.Itoa(point)), f.styles.Dim.Render("(no scope)"))
	}
	return fmt.Sprintf("%s %s %s\n",
		f.styles.Region.Render(strconv.Itoa(point)),
		f.styles.Dim.Render(formatRegion(extent)),
		f.styles.ScopeName.Render(name))
}

func formatRegion(r region.Region) string {
	return fmt.Sprintf("%d-%d", r.Begin(), r.End())
}

// truncate shortens s to at most width runes, marking the cut.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= len(ellipsis) {
		return string(runes[:width])
	}
	return string(runes[:width-len(ellipsis)]) + ellipsis
}
