package grammar

import "github.com/yaklabco/tmscope/pkg/regex"

// PatternID indexes a Pattern inside the arena of its Definition.
type PatternID int32

// NoPattern marks an absent or unresolved reference.
const NoPattern PatternID = -1

// Kind discriminates the four shapes a rule can take. It is decided once,
// when the rule is loaded.
type Kind uint8

// Rule kinds, in the precedence used when a definition carries several of
// the defining keys.
const (
	// KindContainer only groups child patterns.
	KindContainer Kind = iota
	// KindMatch is a single regex rule.
	KindMatch
	// KindBeginEnd opens at Begin, closes at End and nests Children between.
	KindBeginEnd
	// KindInclude refers to another rule or grammar.
	KindInclude
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindMatch:
		return "match"
	case KindBeginEnd:
		return "begin-end"
	case KindInclude:
		return "include"
	default:
		return "unknown"
	}
}

// Capture assigns a scope name to a numbered capture group.
type Capture struct {
	Index int
	Name  string
}

// Captures is ordered by ascending Index.
type Captures []Capture

// Pattern is one rule of a grammar. Patterns are immutable once their
// Definition is loaded and may be shared between grammar instances; all
// mutable search state lives in Grammar.
type Pattern struct {
	ID   PatternID
	Kind Kind

	// Name is the scope contributed by a match. It may be empty.
	Name string

	// ContentName scopes the text between the begin and end matches of a
	// KindBeginEnd rule.
	ContentName string

	// Include is the raw reference of a KindInclude rule: "#key", "$self",
	// "$base", "scope.name" or "scope.name#key".
	Include string

	Match *regex.Regex
	Begin *regex.Regex
	End   *regex.Regex

	Captures      Captures
	BeginCaptures Captures
	EndCaptures   Captures

	// Children are the nested rules, in declaration order.
	Children []PatternID

	// Parent is the enclosing rule, or NoPattern for the root and for
	// repository entries.
	Parent PatternID

	// target is the repository entry a "#key" include resolves to.
	target PatternID
}

// IsRoot reports whether p is the entry point of its grammar.
func (p *Pattern) IsRoot() bool { return p.ID == 0 }

// Target returns the repository pattern a "#key" include resolved to, or
// NoPattern.
func (p *Pattern) Target() PatternID { return p.target }

// BeginCapturesOrDefault returns BeginCaptures, or Captures when the rule
// declares no begin-specific ones.
func (p *Pattern) BeginCapturesOrDefault() Captures {
	if len(p.BeginCaptures) > 0 {
		return p.BeginCaptures
	}
	return p.Captures
}

// EndCapturesOrDefault returns EndCaptures, or Captures when the rule
// declares no end-specific ones.
func (p *Pattern) EndCapturesOrDefault() Captures {
	if len(p.EndCaptures) > 0 {
		return p.EndCaptures
	}
	return p.Captures
}

// anchored reports whether the rule's own regex depends on the exact
// search start (\G), which makes its results position-sensitive.
func (p *Pattern) anchored() bool {
	switch p.Kind {
	case KindMatch:
		return p.Match.Anchored()
	case KindBeginEnd:
		return p.Begin.Anchored()
	default:
		return false
	}
}
