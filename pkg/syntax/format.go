package syntax

import (
	"fmt"
	"strings"

	"github.com/yaklabco/tmscope/pkg/source"
)

// Format renders the tree rooted at n, one node per line indented by two
// spaces per level. Leaves include the text they cover.
//
//	0-17: "source.c++"
//	  0-5: "storage.type.c++" - Data: "class"
func (n *Node) Format(text *source.Text) string {
	var b strings.Builder
	_ = Walk(n, func(node *Node, depth int) error {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(&b, "%d-%d: %q", node.Region.Begin(), node.Region.End(), node.Name)
		if node.IsLeaf() && text != nil {
			fmt.Fprintf(&b, " - Data: %q", text.Slice(node.Region.Begin(), node.Region.End()))
		}
		if node.Unclosed {
			b.WriteString(" (unclosed)")
		}
		b.WriteByte('\n')
		return nil
	})
	return b.String()
}
