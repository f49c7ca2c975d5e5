package regex

import "github.com/yaklabco/tmscope/pkg/source"

// Matcher is a Regex bound to a per-session search cursor.
//
// It remembers the position it last scanned from and the match that scan
// produced. A later search on the same text from a position at or after the
// remembered one is answered from the cursor when the remembered match still
// starts at or after the new position, or when the scan found nothing at
// all. Every other request scans again, so results never depend on the
// order of calls.
//
// A Matcher is not safe for concurrent use.
type Matcher struct {
	re      *Regex
	textID  uint64
	scanPos int
	match   Match
	primed  bool

	hits   int
	misses int
}

// NewMatcher binds re to a fresh cursor. re may be nil, in which case the
// Matcher never matches.
func NewMatcher(re *Regex) Matcher {
	return Matcher{re: re}
}

// Regex returns the underlying expression.
func (m *Matcher) Regex() *Regex { return m.re }

// Valid reports whether the Matcher can ever match.
func (m *Matcher) Valid() bool { return m.re.Valid() }

// Find returns the left-most match in text starting at or after from.
func (m *Matcher) Find(text *source.Text, from int) (Match, bool, error) {
	if !m.re.Valid() {
		return nil, false, nil
	}

	if m.primed && m.textID == text.ID() && !m.re.anchored && from >= m.scanPos {
		if m.match == nil {
			m.hits++
			return nil, false, nil
		}
		if m.match.Begin() >= from {
			m.hits++
			return m.match, true, nil
		}
	}

	m.misses++
	found, ok, err := m.re.FindAt(text, from)
	if err != nil {
		m.primed = false
		return nil, false, err
	}
	m.textID = text.ID()
	m.scanPos = from
	m.match = found
	m.primed = true
	return found, ok, nil
}

// Reset drops the cursor.
func (m *Matcher) Reset() {
	m.primed = false
	m.match = nil
	m.scanPos = 0
	m.textID = 0
}

// Stats returns how many searches were answered from the cursor and how
// many needed a scan.
func (m *Matcher) Stats() (hits, misses int) {
	return m.hits, m.misses
}
