// Package syntax builds and maintains the scope tree of a document: the
// nested, named regions produced by running a grammar over text.
package syntax

import (
	"sort"

	"github.com/yaklabco/tmscope/pkg/region"
)

// Node is one scope-tagged span of the tree.
//
// Children do not overlap, are ordered by start offset, and lie inside
// Region. The tree is mutated in place by incremental updates and must not
// be shared between goroutines while a document is being edited.
type Node struct {
	// Name is the scope name of the span. Structural nodes may be unnamed.
	Name string

	// Region is the span covered by the node.
	Region region.Region

	// Children are the nested spans.
	Children []*Node

	// Unclosed marks a begin/end node whose end pattern never matched; it
	// was closed at the next line break or the end of the text.
	Unclosed bool
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

func (n *Node) append(child *Node) {
	n.Children = append(n.Children, child)
}

// UpdateRegion grows the region of n and of every descendant so that each
// covers all of its children, and returns the resulting region.
func (n *Node) UpdateRegion() region.Region {
	for _, child := range n.Children {
		n.Region = n.Region.Union(child.UpdateRegion())
	}
	return n.Region
}

// Adjust shifts n and its descendants for an edit at pos that changed the
// text length by delta.
func (n *Node) Adjust(pos, delta int) {
	n.Region.Adjust(pos, delta)
	for _, child := range n.Children {
		child.Adjust(pos, delta)
	}
}

// sortChildren orders the children by start offset, keeping the relative
// order of children that start together.
func (n *Node) sortChildren() {
	sort.SliceStable(n.Children, func(i, j int) bool {
		return n.Children[i].Region.Begin() < n.Children[j].Region.Begin()
	})
}

// Equal reports whether a and b describe the same tree.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || a.Region != b.Region || a.Unclosed != b.Unclosed ||
		len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	total := 1
	for _, child := range n.Children {
		total += child.Count()
	}
	return total
}

// RootNode is the root of a document's tree. Its name is the scope name of
// the grammar and its region spans the whole text.
type RootNode struct {
	Node
}

// Adjust shifts the whole tree for an edit at pos that changed the text
// length by delta. The root itself always keeps starting at 0.
func (r *RootNode) Adjust(pos, delta int) {
	r.Region = region.New(0, max(0, r.Region.End()+delta))
	for _, child := range r.Children {
		child.Adjust(pos, delta)
	}
}
