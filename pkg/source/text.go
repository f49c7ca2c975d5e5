// Package source holds document text in the form the grammar engine
// consumes: a rune slice addressed by character offset, plus a line-break
// index and an identity that changes whenever the content does.
package source

import (
	"sort"
	"sync/atomic"
)

//nolint:gochecknoglobals // Process-wide identity counter.
var nextID atomic.Uint64

// Text is an immutable snapshot of document content.
//
// Every Text gets a distinct ID, so caches keyed by ID are invalidated by
// constructing a new Text rather than by comparing content.
type Text struct {
	id     uint64
	runes  []rune
	breaks []int // offsets of '\n' and '\r' characters, ascending
}

// New creates a Text from s.
func New(s string) *Text {
	return FromRunes([]rune(s))
}

// FromRunes creates a Text that takes ownership of runes.
func FromRunes(runes []rune) *Text {
	t := &Text{
		id:    nextID.Add(1),
		runes: runes,
	}
	for i, r := range runes {
		if r == '\n' || r == '\r' {
			t.breaks = append(t.breaks, i)
		}
	}
	return t
}

// ID returns the identity of this snapshot.
func (t *Text) ID() uint64 { return t.id }

// Runes returns the underlying characters. Callers must not modify them.
func (t *Text) Runes() []rune { return t.runes }

// Len returns the number of characters.
func (t *Text) Len() int { return len(t.runes) }

// String returns the whole text.
func (t *Text) String() string { return string(t.runes) }

// Slice returns the text in [a, b), clamped to the valid range.
func (t *Text) Slice(a, b int) string {
	a = clamp(a, 0, len(t.runes))
	b = clamp(b, a, len(t.runes))
	return string(t.runes[a:b])
}

// IsLineBreak reports whether the character at pos is '\n' or '\r'.
func (t *Text) IsLineBreak(pos int) bool {
	if pos < 0 || pos >= len(t.runes) {
		return false
	}
	r := t.runes[pos]
	return r == '\n' || r == '\r'
}

// NextLineBreak returns the offset of the first line-break character at or
// after pos, or -1 if there is none.
func (t *Text) NextLineBreak(pos int) int {
	idx := sort.SearchInts(t.breaks, pos)
	if idx >= len(t.breaks) {
		return -1
	}
	return t.breaks[idx]
}

// SkipLineBreaks returns the first offset at or after pos that is not a
// line-break character.
func (t *Text) SkipLineBreaks(pos int) int {
	for t.IsLineBreak(pos) {
		pos++
	}
	return pos
}

// LineStart returns the offset of the first character of the line
// containing pos.
func (t *Text) LineStart(pos int) int {
	pos = clamp(pos, 0, len(t.runes))
	idx := sort.SearchInts(t.breaks, pos)
	if idx == 0 {
		return 0
	}
	return t.breaks[idx-1] + 1
}

// LineEnd returns the offset just past the line break that terminates the
// line containing pos, or Len if that line is the last one.
func (t *Text) LineEnd(pos int) int {
	next := t.NextLineBreak(clamp(pos, 0, len(t.runes)))
	if next < 0 {
		return len(t.runes)
	}
	if t.runes[next] == '\r' && next+1 < len(t.runes) && t.runes[next+1] == '\n' {
		return next + 2
	}
	return next + 1
}

// LineAt converts an offset into 1-based line and column numbers.
// A "\r\n" pair counts as two line-break characters, as it does for
// NextLineBreak.
func (t *Text) LineAt(pos int) (int, int) {
	pos = clamp(pos, 0, len(t.runes))
	idx := sort.SearchInts(t.breaks, pos)
	return idx + 1, pos - t.LineStart(pos) + 1
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
