package syntax

import (
	"time"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/region"
)

// Edit describes a change to the text: CharsRemoved characters at Position
// were replaced by CharsAdded new ones.
type Edit struct {
	Position     int
	CharsRemoved int
	CharsAdded   int
}

// Delta returns the change in text length.
func (e Edit) Delta() int { return e.CharsAdded - e.CharsRemoved }

// Update brings root in line with an edit. The parser must already hold
// the text as it is after the edit. Nodes outside the lines touched by the
// edit are shifted but not re-parsed, unless they end at a deletion or
// contain an unclosed block.
func (p *Parser) Update(root *RootNode, edit Edit) error {
	start := time.Now()

	root.Adjust(edit.Position, edit.Delta())
	span := root.widen(p.EditSpan(edit), edit)
	if err := root.UpdateChildren(span, p); err != nil {
		return err
	}

	p.opts.Logger.Debug("updated",
		logging.FieldPosition, edit.Position,
		logging.FieldRemoved, edit.CharsRemoved,
		logging.FieldAdded, edit.CharsAdded,
		logging.FieldNodes, len(root.Children),
		logging.FieldDuration, time.Since(start))
	return nil
}

// EditSpan returns the whole lines of the current text that cover
// [Position, Position+max(CharsAdded, |Delta|)].
func (p *Parser) EditSpan(edit Edit) region.Region {
	n := p.text.Len()
	pos := min(max(edit.Position, 0), n)
	extent := max(edit.CharsAdded, abs(edit.Delta()))
	end := min(pos+extent, n)

	begin := p.text.LineStart(pos)
	stop := p.text.LineEnd(end)
	if begin == stop && begin > 0 {
		// An edit at the very end of the text: take the last line.
		begin = p.text.LineStart(begin - 1)
	}
	return region.New(begin, stop)
}

// UpdateChildren re-parses span and replaces the top-level children it
// touches. When a new node runs past the span, the children it overlaps are
// replaced as well and the larger range is parsed again, until the new
// nodes fit.
func (r *RootNode) UpdateChildren(span region.Region, p *Parser) error {
	var fresh []*Node
	affected := span
	r.Children, affected, _ = removeIntersecting(r.Children, affected)
	for {
		nodes, err := p.ParseRegion(affected)
		if err != nil {
			return err
		}
		fresh = nodes

		reach := affected.End()
		for _, n := range nodes {
			reach = max(reach, n.Region.End())
		}
		if reach <= affected.End() {
			break
		}

		var removed bool
		r.Children, affected, removed = removeIntersecting(r.Children, region.New(affected.Begin(), reach))
		if !removed {
			break
		}
	}

	r.Children = append(r.Children, fresh...)
	r.sortChildren()
	r.Region = region.New(0, p.text.Len())
	r.UpdateRegion()
	return nil
}

// widen grows span backwards over the top-level children an edit can change
// without touching them: a node whose end delimiter was just deleted ends
// exactly at the edit, and a node holding an unclosed block looks for its
// end across the whole rest of the text.
func (r *RootNode) widen(span region.Region, edit Edit) region.Region {
	for _, child := range r.Children {
		cr := child.Region
		if cr.End() > span.Begin() {
			break
		}
		if (edit.CharsRemoved > 0 && cr.End() == edit.Position) || hasUnclosed(child) {
			span = span.Union(cr)
		}
	}
	return span
}

func hasUnclosed(n *Node) bool {
	if n.Unclosed {
		return true
	}
	for _, child := range n.Children {
		if hasUnclosed(child) {
			return true
		}
	}
	return false
}

// removeIntersecting drops the children that overlap span, or are empty and
// sit inside it, and returns span grown to cover everything dropped.
// Children never overlap each other, so one pass is enough.
func removeIntersecting(children []*Node, span region.Region) ([]*Node, region.Region, bool) {
	kept := children[:0]
	removed := false
	for _, child := range children {
		cr := child.Region
		if cr.Intersects(span) || (cr.IsEmpty() && span.Contains(cr.Begin())) {
			span = span.Union(cr)
			removed = true
			continue
		}
		kept = append(kept, child)
	}
	return kept, span, removed
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
