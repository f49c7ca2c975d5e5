// Package regex wraps regexp2 with the search contract the grammar engine
// needs: left-most match at or after a position, capture offsets in
// characters, and a forward-scanning cursor cache.
//
// regexp2 is used instead of the standard library because TextMate grammars
// are written for Oniguruma and routinely rely on lookbehind, backreferences,
// atomic groups and \G, none of which RE2 supports.
package regex

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/yaklabco/tmscope/pkg/source"
)

// DefaultTimeout bounds a single search so that a catastrophic pattern
// cannot hang a parse.
const DefaultTimeout = 250 * time.Millisecond

// ErrDisabled is returned by Err for a pattern that failed to compile.
var ErrDisabled = errors.New("regex disabled")

// Options controls compilation.
type Options struct {
	// Timeout bounds one search. Zero means DefaultTimeout; negative disables
	// the limit.
	Timeout time.Duration
}

func (o Options) timeout() time.Duration {
	switch {
	case o.Timeout == 0:
		return DefaultTimeout
	case o.Timeout < 0:
		return 0
	default:
		return o.Timeout
	}
}

// Regex is a compiled pattern. It is immutable after Compile and safe to
// share between grammar instances and goroutines.
type Regex struct {
	pattern  string
	re       *regexp2.Regexp
	err      error
	opts     Options
	backrefs bool
	anchored bool
}

// Compile compiles pattern. It never returns nil: a pattern that fails to
// compile yields a disabled Regex that never matches and reports the
// failure through Err.
func Compile(pattern string, opts Options) *Regex {
	r := &Regex{
		pattern:  pattern,
		opts:     opts,
		backrefs: hasBackReference(pattern),
		anchored: strings.Contains(pattern, `\G`),
	}
	if pattern == "" {
		r.err = fmt.Errorf("%w: empty pattern", ErrDisabled)
		return r
	}

	re, err := regexp2.Compile(pattern, regexp2.Multiline)
	if err != nil {
		r.err = fmt.Errorf("%w: %q: %w", ErrDisabled, pattern, err)
		return r
	}
	if d := opts.timeout(); d > 0 {
		re.MatchTimeout = d
	}
	r.re = re
	return r
}

// Pattern returns the source text of the expression.
func (r *Regex) Pattern() string {
	if r == nil {
		return ""
	}
	return r.pattern
}

// Err returns the compile error, or nil for a usable Regex.
func (r *Regex) Err() error { return r.err }

// Valid reports whether the Regex compiled.
func (r *Regex) Valid() bool { return r != nil && r.re != nil }

// HasBackReferences reports whether the pattern contains \1..\9. For an end
// pattern these refer to the captures of the matching begin pattern and
// must be substituted with Resolve before searching.
func (r *Regex) HasBackReferences() bool { return r != nil && r.backrefs }

// Anchored reports whether the pattern uses \G, which ties its result to
// the exact search start.
func (r *Regex) Anchored() bool { return r != nil && r.anchored }

// FindAt returns the left-most match that starts at or after from.
func (r *Regex) FindAt(text *source.Text, from int) (Match, bool, error) {
	if !r.Valid() || from < 0 || from > text.Len() {
		return nil, false, nil
	}

	m, err := r.re.FindRunesMatchStartingAt(text.Runes(), from)
	if err != nil {
		return nil, false, fmt.Errorf("search %q at %d: %w", r.pattern, from, err)
	}
	if m == nil {
		return nil, false, nil
	}
	return toMatch(m), true, nil
}

// Resolve returns a copy of r in which every back reference \N is replaced
// by the literal text captured by group N of m. Groups that did not
// participate are replaced with nothing.
func (r *Regex) Resolve(text *source.Text, m Match) *Regex {
	if !r.backrefs {
		return r
	}
	return Compile(r.Expand(text, m), r.opts)
}

// Expand returns the pattern source with back references substituted as
// described for Resolve.
func (r *Regex) Expand(text *source.Text, m Match) string {
	if !r.backrefs {
		return r.pattern
	}

	var b strings.Builder
	src := r.pattern
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '\\' || i+1 >= len(src) {
			b.WriteByte(c)
			continue
		}
		next := src[i+1]
		if next >= '1' && next <= '9' {
			if g, ok := m.Group(int(next - '0')); ok {
				b.WriteString(regexp2.Escape(text.Slice(g.Begin(), g.End())))
			}
		} else {
			b.WriteByte(c)
			b.WriteByte(next)
		}
		i++
	}
	return b.String()
}

func toMatch(m *regexp2.Match) Match {
	groups := m.Groups()
	out := make(Match, 2*len(groups))
	for i, g := range groups {
		if len(g.Captures) == 0 {
			out[2*i], out[2*i+1] = -1, -1
			continue
		}
		out[2*i] = g.Index
		out[2*i+1] = g.Index + g.Length
	}
	return out
}

// hasBackReference reports whether pattern contains an unescaped \1..\9.
func hasBackReference(pattern string) bool {
	for i := 0; i < len(pattern)-1; i++ {
		if pattern[i] != '\\' {
			continue
		}
		if next := pattern[i+1]; next >= '1' && next <= '9' {
			return true
		}
		i++
	}
	return false
}

// MatchString reports whether s contains a match.
func (r *Regex) MatchString(s string) (bool, error) {
	if !r.Valid() {
		return false, nil
	}
	ok, err := r.re.MatchString(s)
	if err != nil {
		return false, fmt.Errorf("search %q: %w", r.pattern, err)
	}
	return ok, nil
}
