package grammar

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/regex"
)

// Keys recognized in a decoded grammar tree.
const (
	keyScopeName      = "scopeName"
	keyName           = "name"
	keyFileTypes      = "fileTypes"
	keyFirstLineMatch = "firstLineMatch"
	keyPatterns       = "patterns"
	keyRepository     = "repository"
	keyInclude        = "include"
	keyMatch          = "match"
	keyBegin          = "begin"
	keyEnd            = "end"
	keyContentName    = "contentName"
	keyCaptures       = "captures"
	keyBeginCaptures  = "beginCaptures"
	keyEndCaptures    = "endCaptures"
)

// ErrNoRootPattern is returned when a grammar tree has no top-level
// "patterns" list, so there is nothing to parse with.
var ErrNoRootPattern = errors.New("grammar has no root patterns")

// LoadOptions controls how a decoded grammar tree is compiled.
type LoadOptions struct {
	// Regex is passed to every compiled expression.
	Regex regex.Options

	// Logger receives warnings about rules that had to be disabled.
	// Defaults to logging.Default().
	Logger *log.Logger
}

func (o LoadOptions) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Default()
}

// Definition is a loaded grammar: its metadata and an arena of immutable
// Patterns. A Definition is safe to share; parsing happens through Grammar
// instances created with Instantiate.
type Definition struct {
	ScopeName      string
	Name           string
	FileTypes      []string
	FirstLineMatch string

	firstLine  *regex.Regex
	patterns   []Pattern
	repository map[string]PatternID
	// volatile marks patterns whose result can depend on the exact search
	// start, directly or through a nested rule; their results are neither
	// reused nor pruned.
	volatile []bool
}

// Root returns the entry point of the grammar.
func (d *Definition) Root() *Pattern { return &d.patterns[0] }

// Pattern returns the pattern with the given id.
func (d *Definition) Pattern(id PatternID) *Pattern { return &d.patterns[id] }

// Len returns the number of patterns in the arena.
func (d *Definition) Len() int { return len(d.patterns) }

// Repository returns the top-level repository entry named key.
func (d *Definition) Repository(key string) (*Pattern, bool) {
	id, ok := d.repository[key]
	if !ok {
		return nil, false
	}
	return &d.patterns[id], true
}

// RepositoryKeys returns the top-level repository keys in sorted order.
func (d *Definition) RepositoryKeys() []string {
	keys := make([]string, 0, len(d.repository))
	for k := range d.repository {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MatchesFirstLine reports whether line satisfies the grammar's
// firstLineMatch expression.
func (d *Definition) MatchesFirstLine(line string) bool {
	if !d.firstLine.Valid() {
		return false
	}
	ok, err := d.firstLine.MatchString(line)
	return err == nil && ok
}

// repoScope is one level of nested repositories used to resolve "#key".
type repoScope struct {
	parent  int
	entries map[string]PatternID
}

type loader struct {
	def     *Definition
	opts    LoadOptions
	log     *log.Logger
	scopes  []repoScope
	scopeOf []int // per pattern: the repository scope its include resolves in
}

// Load compiles a decoded grammar tree (maps, lists and scalars as produced
// by a JSON, YAML or property-list decoder) into a Definition.
//
// Malformed rules are skipped or loaded as empty containers; regexes that
// fail to compile are disabled and logged. The only hard failure is a tree
// without a top-level "patterns" list.
func Load(tree map[string]any, opts LoadOptions) (*Definition, error) {
	if _, ok := tree[keyPatterns]; !ok {
		return nil, ErrNoRootPattern
	}

	def := &Definition{
		ScopeName:      strings.TrimSpace(asString(tree[keyScopeName])),
		Name:           strings.TrimSpace(asString(tree[keyName])),
		FileTypes:      asStrings(tree[keyFileTypes]),
		FirstLineMatch: asString(tree[keyFirstLineMatch]),
		repository:     map[string]PatternID{},
	}
	l := &loader{
		def:    def,
		opts:   opts,
		log:    opts.logger().With(logging.FieldScope, def.ScopeName),
		scopes: []repoScope{{parent: -1, entries: def.repository}},
	}

	if def.FirstLineMatch != "" {
		def.firstLine = l.compile(def.FirstLineMatch, keyFirstLineMatch)
	}

	// The root pattern takes id 0; its name is the display name of the
	// grammar and never becomes a node name.
	root := l.alloc(NoPattern, 0)
	def.patterns[root].Name = def.Name
	l.loadRepository(tree[keyRepository], 0)
	def.patterns[root].Children = l.loadList(tree[keyPatterns], root, 0)

	l.resolveIncludes()
	def.volatile = computeVolatile(def)
	return def, nil
}

// alloc appends an empty pattern to the arena.
func (l *loader) alloc(parent PatternID, scope int) PatternID {
	id := PatternID(len(l.def.patterns))
	l.def.patterns = append(l.def.patterns, Pattern{ID: id, Parent: parent, target: NoPattern})
	l.scopeOf = append(l.scopeOf, scope)
	return id
}

func (l *loader) loadRepository(v any, scope int) {
	entries, ok := asMap(v)
	if !ok {
		return
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Allocate every entry before loading any, so entries may refer to
	// each other regardless of order.
	ids := make([]PatternID, len(keys))
	for i, k := range keys {
		ids[i] = l.alloc(NoPattern, scope)
		l.scopes[scope].entries[k] = ids[i]
	}
	for i, k := range keys {
		m, ok := asMap(entries[k])
		if !ok {
			l.log.Warn("repository entry is not a rule", logging.FieldKey, k)
			continue
		}
		l.fill(ids[i], m, scope)
	}
}

func (l *loader) loadList(v any, parent PatternID, scope int) []PatternID {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	ids := make([]PatternID, 0, len(items))
	for _, item := range items {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		id := l.alloc(parent, scope)
		l.fill(id, m, scope)
		ids = append(ids, id)
	}
	return ids
}

// fill populates the pattern id from its decoded map.
func (l *loader) fill(id PatternID, m map[string]any, scope int) {
	p := Pattern{
		ID:            id,
		Parent:        l.def.patterns[id].Parent,
		target:        NoPattern,
		Name:          strings.TrimSpace(asString(m[keyName])),
		ContentName:   strings.TrimSpace(asString(m[keyContentName])),
		Include:       strings.TrimSpace(asString(m[keyInclude])),
		Captures:      toCaptures(m[keyCaptures]),
		BeginCaptures: toCaptures(m[keyBeginCaptures]),
		EndCaptures:   toCaptures(m[keyEndCaptures]),
	}

	match, hasMatch := m[keyMatch].(string)
	begin, hasBegin := m[keyBegin].(string)
	end, hasEnd := m[keyEnd].(string)

	switch {
	case hasMatch:
		p.Kind = KindMatch
		p.Match = l.compile(match, keyMatch)
	case hasBegin:
		p.Kind = KindBeginEnd
		p.Begin = l.compile(begin, keyBegin)
		if hasEnd {
			p.End = l.compile(end, keyEnd)
		} else {
			l.log.Warn("begin rule without end", logging.FieldPattern, begin)
		}
	case p.Include != "":
		p.Kind = KindInclude
	default:
		p.Kind = KindContainer
	}

	// A rule's own repository is visible to its children.
	childScope := scope
	if _, ok := m[keyRepository]; ok {
		l.scopes = append(l.scopes, repoScope{parent: scope, entries: map[string]PatternID{}})
		childScope = len(l.scopes) - 1
		l.loadRepository(m[keyRepository], childScope)
	}

	l.def.patterns[id] = p
	if p.Kind == KindContainer || p.Kind == KindBeginEnd {
		children := l.loadList(m[keyPatterns], id, childScope)
		l.def.patterns[id].Children = children
	}
}

func (l *loader) compile(expr, key string) *regex.Regex {
	re := regex.Compile(expr, l.opts.Regex)
	if err := re.Err(); err != nil {
		l.log.Warn("disabled regex", logging.FieldKey, key, logging.FieldError, err)
	}
	return re
}

// resolveIncludes binds every "#key" include to its repository entry,
// searching the innermost repository first.
func (l *loader) resolveIncludes() {
	for i := range l.def.patterns {
		p := &l.def.patterns[i]
		if p.Kind != KindInclude || !strings.HasPrefix(p.Include, "#") {
			continue
		}
		key := p.Include[1:]
		for s := l.scopeOf[i]; s >= 0; s = l.scopes[s].parent {
			if target, ok := l.scopes[s].entries[key]; ok {
				p.target = target
				break
			}
		}
		if p.target == NoPattern {
			l.log.Warn("include not found in repository", logging.FieldInclude, p.Include)
		}
	}
}

// computeVolatile marks patterns that are anchored, can reach an anchored
// pattern through children or in-grammar includes, or delegate to another
// grammar.
func computeVolatile(def *Definition) []bool {
	const (
		visiting = iota + 1
		done
	)
	state := make([]uint8, len(def.patterns))
	volatile := make([]bool, len(def.patterns))

	var visit func(id PatternID) bool
	visit = func(id PatternID) bool {
		switch state[id] {
		case done:
			return volatile[id]
		case visiting:
			return false
		}
		state[id] = visiting

		p := &def.patterns[id]
		v := p.anchored()
		switch p.Kind {
		case KindContainer:
			for _, c := range p.Children {
				if visit(c) {
					v = true
				}
			}
		case KindInclude:
			switch {
			case p.target != NoPattern:
				v = visit(p.target)
			case p.Include == "$self":
				v = visit(0)
			default:
				// Other grammars are only known at search time.
				v = true
			}
		}

		volatile[id] = v
		state[id] = done
		return v
	}

	for i := range def.patterns {
		visit(PatternID(i))
	}
	return volatile
}

// toCaptures converts a {"1": {"name": ...}} map to Captures sorted by
// index. Entries with a non-numeric key or without a name are skipped.
func toCaptures(v any) Captures {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	var out Captures
	for k, raw := range m {
		idx, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || idx < 0 {
			continue
		}
		sub, ok := asMap(raw)
		if !ok {
			continue
		}
		name, ok := sub[keyName].(string)
		if !ok {
			continue
		}
		out = append(out, Capture{Index: idx, Name: strings.TrimSpace(name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case fmt.Stringer:
			out = append(out, s.String())
		default:
			if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
	}
	return out
}

// asMap accepts both map[string]any and the map[any]any that YAML decoders
// produce for mappings with non-string keys (such as unquoted capture
// indexes).
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
