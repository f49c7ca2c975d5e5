// Package scope answers "which scope is at this offset" queries against a
// syntax tree.
package scope

import (
	"sort"
	"strings"

	"github.com/yaklabco/tmscope/pkg/region"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

// Resolver finds the innermost node covering an offset and the scope name
// of the path leading to it.
//
// It remembers the path of the last query. A query whose offset is still
// covered by part of that path restarts the descent from the deepest such
// node instead of the root, which makes the left-to-right scans done while
// highlighting cheap. The result is always the same as a descent from the
// root.
//
// A Resolver is not safe for concurrent use, and must be Reset whenever the
// tree it reads changes.
type Resolver struct {
	root *syntax.Node

	// path[0] is the root; names[i] is the scope name of path[:i+1].
	path  []*syntax.Node
	names []string

	hits   int
	misses int
}

// NewResolver creates a resolver over the tree rooted at root. root may be
// nil, in which case every query comes back empty.
func NewResolver(root *syntax.Node) *Resolver {
	return &Resolver{root: root}
}

// Reset drops the cached path and switches to a new tree.
func (r *Resolver) Reset(root *syntax.Node) {
	r.root = root
	r.path = r.path[:0]
	r.names = r.names[:0]
}

// ScopeName returns the space-separated names of every named node from the
// root down to the innermost node covering point. It is empty when no node
// covers point.
func (r *Resolver) ScopeName(point int) string {
	_, name := r.Resolve(point)
	return name
}

// ScopeExtent returns the region of the innermost node covering point, or
// an empty region when there is none.
func (r *Resolver) ScopeExtent(point int) region.Region {
	node, _ := r.Resolve(point)
	if node == nil {
		return region.Region{}
	}
	return node.Region
}

// Resolve returns the innermost node covering point together with its
// scope name.
func (r *Resolver) Resolve(point int) (*syntax.Node, string) {
	if r.root == nil {
		return nil, ""
	}
	search := region.New(point, point+1)

	// Keep the deepest cached node that still covers the query.
	depth := len(r.path)
	for depth > 0 && !r.path[depth-1].Region.FullyCovers(search) {
		depth--
	}
	if depth > 0 {
		r.hits++
	} else {
		r.misses++
		if !r.root.Region.FullyCovers(search) {
			r.path, r.names = r.path[:0], r.names[:0]
			return nil, ""
		}
		r.path = append(r.path[:0], r.root)
		r.names = append(r.names[:0], r.root.Name)
		depth = 1
	}
	r.path, r.names = r.path[:depth], r.names[:depth]

	for node := r.path[depth-1]; ; {
		child := coveringChild(node, search)
		if child == nil {
			break
		}
		r.path = append(r.path, child)
		r.names = append(r.names, join(r.names[len(r.names)-1], child.Name))
		node = child
	}

	return r.path[len(r.path)-1], r.names[len(r.names)-1]
}

// Stats returns how many queries reused the cached path and how many
// started from the root.
func (r *Resolver) Stats() (hits, misses int) {
	return r.hits, r.misses
}

// coveringChild returns the child of n that fully covers search. Children
// are ordered and disjoint, so there is at most one.
func coveringChild(n *syntax.Node, search region.Region) *syntax.Node {
	children := n.Children
	idx := sort.Search(len(children), func(i int) bool {
		cr := children[i].Region
		return cr.Begin() >= search.Begin() || cr.FullyCovers(search)
	})
	for ; idx < len(children); idx++ {
		child := children[idx]
		if child.Region.Begin() > search.Begin() {
			break
		}
		if child.Region.FullyCovers(search) {
			return child
		}
	}
	return nil
}

func join(prefix, name string) string {
	switch {
	case name == "":
		return prefix
	case prefix == "":
		return name
	default:
		return strings.Join([]string{prefix, name}, " ")
	}
}
