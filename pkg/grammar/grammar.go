package grammar

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/regex"
	"github.com/yaklabco/tmscope/pkg/source"
)

// maxEndPatterns bounds the per-pattern cache of end expressions expanded
// from back references.
const maxEndPatterns = 64

// Provider supplies definitions for cross-grammar includes.
type Provider interface {
	Definition(scope string) (*Definition, bool)
}

// Option configures a Grammar instance.
type Option func(*Grammar)

// WithProvider sets the source of grammars referenced by scope name.
func WithProvider(p Provider) Option {
	return func(g *Grammar) { g.provider = p }
}

// WithLogger sets the logger for include and search failures.
func WithLogger(l *log.Logger) Option {
	return func(g *Grammar) {
		if l != nil {
			g.log = l
		}
	}
}

// Result is a match found for a pattern. Grammar is the instance that owns
// the matched rule, which differs from the searched instance when the match
// came through a cross-grammar include.
type Result struct {
	Grammar *Grammar
	Pattern PatternID
	Match   regex.Match
}

// Rule returns the matched pattern.
func (r Result) Rule() *Pattern { return r.Grammar.def.Pattern(r.Pattern) }

// Stats counts pattern-level cache use.
type Stats struct {
	Hits   int
	Misses int
}

// Add returns the sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{Hits: s.Hits + o.Hits, Misses: s.Misses + o.Misses}
}

// patternState is the mutable search state of one pattern inside one
// Grammar instance.
type patternState struct {
	match regex.Matcher
	begin regex.Matcher
	end   regex.Matcher
	ends  map[string]*regex.Regex

	// Result cache for Find.
	primed    bool
	textID    uint64
	cachedPos int
	found     bool
	result    Result

	// Children still able to match at or after liveFrom in liveText.
	live     []PatternID
	liveText uint64
	liveFrom int

	busy   bool
	warned bool
}

// Grammar is a Definition bound to the mutable search state of one parse
// session. A Grammar must not be used by more than one goroutine; every
// document owns its own instance (see Definition.Instantiate and Clone).
type Grammar struct {
	def      *Definition
	provider Provider
	log      *log.Logger

	base     *Grammar
	parent   *Grammar
	included map[string]*Grammar

	state []patternState
	stats Stats

	// guardHits counts searches cut short by the recursion guard. It is
	// only meaningful on the base instance.
	guardHits int
}

// Instantiate creates a Grammar instance with fresh caches.
func (d *Definition) Instantiate(opts ...Option) *Grammar {
	g := &Grammar{def: d, log: logging.Default()}
	for _, opt := range opts {
		opt(g)
	}
	g.base = g
	g.init()
	return g
}

func (g *Grammar) init() {
	g.included = map[string]*Grammar{}
	g.state = make([]patternState, len(g.def.patterns))
	for i := range g.def.patterns {
		p := &g.def.patterns[i]
		st := &g.state[i]
		st.match = regex.NewMatcher(p.Match)
		st.begin = regex.NewMatcher(p.Begin)
		st.end = regex.NewMatcher(p.End)
	}
}

// Clone returns an independent instance of the same definition with empty
// caches.
func (g *Grammar) Clone() *Grammar {
	return g.def.Instantiate(WithProvider(g.provider), WithLogger(g.log))
}

// Reset drops every cache of g and of the grammars it included.
func (g *Grammar) Reset() {
	g.stats = Stats{}
	g.guardHits = 0
	for scope, inc := range g.included {
		if inc != nil && inc.parent == g {
			inc.Reset()
		} else if inc == nil {
			delete(g.included, scope)
		}
	}
	for i := range g.state {
		st := &g.state[i]
		st.match.Reset()
		st.begin.Reset()
		st.end.Reset()
		*st = patternState{match: st.match, begin: st.begin, end: st.end}
	}
}

// Definition returns the immutable definition behind g.
func (g *Grammar) Definition() *Definition { return g.def }

// ScopeName returns the scope of the grammar.
func (g *Grammar) ScopeName() string { return g.def.ScopeName }

// Rule returns the pattern with the given id.
func (g *Grammar) Rule(id PatternID) *Pattern { return g.def.Pattern(id) }

// Stats returns the cache counters of g and every grammar it included.
func (g *Grammar) Stats() Stats {
	seen := map[*Grammar]bool{}
	var walk func(*Grammar) Stats
	walk = func(x *Grammar) Stats {
		if x == nil || seen[x] {
			return Stats{}
		}
		seen[x] = true
		s := x.stats
		for _, inc := range x.included {
			s = s.Add(walk(inc))
		}
		return s
	}
	return walk(g)
}

// Find returns the best match of pattern id at or after pos:
//
//   - a match rule searches its regex;
//   - a begin/end rule searches its begin regex;
//   - an include delegates to the rule or grammar it refers to;
//   - a container returns the earliest match among its children, the
//     earlier declared child winning ties.
//
// Results are cached per pattern and reused while the text is unchanged
// and the query position does not pass the cached match.
func (g *Grammar) Find(text *source.Text, id PatternID, pos int) (Result, bool) {
	st := &g.state[id]
	volatile := g.def.volatile[id]

	if !volatile && st.primed && st.textID == text.ID() && pos >= st.cachedPos {
		if !st.found {
			g.stats.Hits++
			return Result{}, false
		}
		if st.result.Match.Begin() >= pos {
			g.stats.Hits++
			return st.result, true
		}
	}
	g.stats.Misses++

	// A rule that reaches itself through includes without consuming input
	// cannot contribute anything new.
	if st.busy {
		g.base.guardHits++
		return Result{}, false
	}

	guard := g.base.guardHits
	st.busy = true
	res, ok := g.find(text, id, pos)
	st.busy = false

	st.primed = g.base.guardHits == guard
	st.textID = text.ID()
	st.cachedPos = pos
	st.found = ok
	st.result = res
	return res, ok
}

func (g *Grammar) find(text *source.Text, id PatternID, pos int) (Result, bool) {
	p := g.def.Pattern(id)
	st := &g.state[id]

	switch p.Kind {
	case KindMatch:
		m, ok := g.search(&st.match, st, text, pos)
		return Result{Grammar: g, Pattern: id, Match: m}, ok
	case KindBeginEnd:
		m, ok := g.search(&st.begin, st, text, pos)
		return Result{Grammar: g, Pattern: id, Match: m}, ok
	case KindInclude:
		target, tid := g.resolveInclude(p, st)
		if target == nil {
			return Result{}, false
		}
		return target.Find(text, tid, pos)
	default:
		return g.searchChildren(text, id, pos)
	}
}

// FindChildren returns the earliest match among the children of pattern id
// at or after pos. It is used to search inside an open begin/end block.
func (g *Grammar) FindChildren(text *source.Text, id PatternID, pos int) (Result, bool) {
	return g.searchChildren(text, id, pos)
}

func (g *Grammar) searchChildren(text *source.Text, id PatternID, pos int) (Result, bool) {
	p := g.def.Pattern(id)
	st := &g.state[id]

	if st.live == nil || st.liveText != text.ID() || pos < st.liveFrom {
		st.live = append(st.live[:0], p.Children...)
		st.liveText = text.ID()
		st.liveFrom = pos
	}

	var (
		best  Result
		found bool
	)
	live := st.live
	n := 0
	for i, child := range live {
		guard := g.base.guardHits
		r, ok := g.Find(text, child, pos)
		if !ok {
			// No match at or after pos: the child is exhausted for this
			// text unless its result depended on the search start.
			if g.def.volatile[child] || g.base.guardHits != guard {
				live[n] = child
				n++
			}
			continue
		}
		live[n] = child
		n++
		if !found || r.Match.Begin() < best.Match.Begin() {
			best, found = r, true
		}
		if best.Match.Begin() == pos {
			n += copy(live[n:], live[i+1:])
			break
		}
	}
	if n < len(live) {
		st.liveFrom = max(st.liveFrom, pos)
	}
	st.live = live[:n]
	return best, found
}

// FindEnd searches the end regex of the begin/end pattern id at or after
// pos. begin is the match that opened the block; back references in the
// end regex refer to its captures.
func (g *Grammar) FindEnd(text *source.Text, id PatternID, pos int, begin regex.Match) (regex.Match, bool) {
	p := g.def.Pattern(id)
	st := &g.state[id]
	if !p.End.Valid() {
		return nil, false
	}

	if !p.End.HasBackReferences() {
		return g.search(&st.end, st, text, pos)
	}

	expanded := p.End.Expand(text, begin)
	re, ok := st.ends[expanded]
	if !ok {
		if st.ends == nil || len(st.ends) >= maxEndPatterns {
			st.ends = map[string]*regex.Regex{}
		}
		re = p.End.Resolve(text, begin)
		st.ends[expanded] = re
	}
	m, found, err := re.FindAt(text, pos)
	if err != nil {
		g.warnOnce(st, "end search failed", logging.FieldPattern, re.Pattern(), logging.FieldError, err)
		return nil, false
	}
	return m, found
}

func (g *Grammar) search(m *regex.Matcher, st *patternState, text *source.Text, pos int) (regex.Match, bool) {
	found, ok, err := m.Find(text, pos)
	if err != nil {
		g.warnOnce(st, "search failed", logging.FieldPattern, m.Regex().Pattern(), logging.FieldError, err)
		return nil, false
	}
	return found, ok
}

// resolveInclude returns the instance and pattern an include refers to, or
// nil when the reference cannot be resolved.
func (g *Grammar) resolveInclude(p *Pattern, st *patternState) (*Grammar, PatternID) {
	switch {
	case p.target != NoPattern:
		return g, p.target
	case p.Include == "$self":
		return g, 0
	case p.Include == "$base":
		return g.base, 0
	case p.Include == "" || strings.HasPrefix(p.Include, "#"):
		g.warnOnce(st, "unresolved include", logging.FieldInclude, p.Include)
		return nil, NoPattern
	}

	scope, key, _ := strings.Cut(p.Include, "#")
	target := g.includeGrammar(scope)
	if target == nil {
		g.warnOnce(st, "unknown grammar in include", logging.FieldInclude, p.Include)
		return nil, NoPattern
	}
	if key == "" {
		return target, 0
	}
	tid, ok := target.def.repository[key]
	if !ok {
		g.warnOnce(st, "unresolved include", logging.FieldInclude, p.Include)
		return nil, NoPattern
	}
	return target, tid
}

// includeGrammar returns the instance used for scope. An instance already
// active further up the include chain is reused so that mutually including
// grammars terminate; otherwise a new instance owned by g is created.
func (g *Grammar) includeGrammar(scope string) *Grammar {
	for x := g; x != nil; x = x.parent {
		if x.def.ScopeName == scope {
			return x
		}
	}
	if inc, ok := g.included[scope]; ok {
		return inc
	}
	if g.provider == nil {
		g.included[scope] = nil
		return nil
	}

	def, ok := g.provider.Definition(scope)
	if !ok {
		g.included[scope] = nil
		return nil
	}
	inc := &Grammar{
		def:      def,
		provider: g.provider,
		log:      g.log,
		base:     g.base,
		parent:   g,
	}
	inc.init()
	g.included[scope] = inc
	return inc
}

func (g *Grammar) warnOnce(st *patternState, msg string, keyvals ...any) {
	if st.warned {
		return
	}
	st.warned = true
	g.log.Warn(msg, append([]any{logging.FieldScope, g.def.ScopeName}, keyvals...)...)
}
