// Package region provides the half-open character interval used for every
// span in a parse tree.
package region

import "fmt"

// Region is a half-open interval [Begin, End) over character offsets.
// The zero value is the empty region at offset 0.
type Region struct {
	begin int
	end   int
}

// New returns the region spanning a and b. The bounds are ordered, so
// New(5, 3) is the same as New(3, 5).
func New(a, b int) Region {
	if a > b {
		a, b = b, a
	}
	return Region{begin: a, end: b}
}

// Begin returns the inclusive start offset.
func (r Region) Begin() int { return r.begin }

// End returns the exclusive end offset.
func (r Region) End() int { return r.end }

// Len returns the number of characters in the region.
func (r Region) Len() int { return r.end - r.begin }

// IsEmpty returns true if the region has zero length.
func (r Region) IsEmpty() bool { return r.begin == r.end }

// Contains reports whether point lies within the region. The end offset is
// included so that a caret sitting right after a token still belongs to it.
func (r Region) Contains(point int) bool {
	return r.begin <= point && point <= r.end
}

// FullyCovers reports whether other lies entirely inside r.
func (r Region) FullyCovers(other Region) bool {
	return r.Contains(other.begin) && other.end <= r.end
}

// Intersection returns the overlap of r and other, or the zero region if
// they do not touch.
func (r Region) Intersection(other Region) Region {
	if !r.Contains(other.begin) && !other.Contains(r.begin) {
		return Region{}
	}
	return Region{begin: max(r.begin, other.begin), end: min(r.end, other.end)}
}

// Intersects reports whether r and other share at least one character.
// Empty regions intersect nothing.
func (r Region) Intersects(other Region) bool {
	return r.Intersection(other).Len() > 0
}

// Union returns the smallest region covering both r and other.
func (r Region) Union(other Region) Region {
	return Region{begin: min(r.begin, other.begin), end: max(r.end, other.end)}
}

// SetBegin moves the start offset. Offsets past End are clamped to End.
func (r *Region) SetBegin(p int) {
	r.begin = min(p, r.end)
}

// SetEnd moves the end offset. Offsets before Begin are clamped to Begin.
func (r *Region) SetEnd(p int) {
	r.end = max(p, r.begin)
}

// Adjust updates the region in place for an edit at pos that changed the
// text length by delta.
//
// For an insertion (delta > 0) every offset at or after pos moves right by
// delta. For a deletion (delta < 0) the characters [pos, pos-delta) are
// gone: offsets inside that range collapse onto pos and offsets after it
// move left by -delta. Offsets before pos never move. The mapping is
// monotonic, so Begin never passes End.
func (r *Region) Adjust(pos, delta int) {
	r.begin = shift(r.begin, pos, delta)
	r.end = shift(r.end, pos, delta)
}

func shift(offset, pos, delta int) int {
	switch {
	case offset < pos:
		return offset
	case delta >= 0:
		return offset + delta
	case offset < pos-delta:
		return pos
	default:
		return offset + delta
	}
}

// String formats the region as "[begin - end)".
func (r Region) String() string {
	return fmt.Sprintf("[%d - %d)", r.begin, r.end)
}
