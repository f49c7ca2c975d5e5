package syntax

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/grammar"
	"github.com/yaklabco/tmscope/pkg/regex"
	"github.com/yaklabco/tmscope/pkg/region"
	"github.com/yaklabco/tmscope/pkg/source"
)

// Parse limits.
const (
	// DefaultMaxIterations is the number of consecutive search steps that may
	// end without moving forward before a parse is abandoned.
	DefaultMaxIterations = 10000

	// DefaultMaxDepth bounds the nesting of begin/end blocks.
	DefaultMaxDepth = 512
)

// ErrRunawayGrammar is returned when a grammar stops making progress or
// nests beyond the depth limit. Callers should treat the document as
// having no scope information rather than fail.
var ErrRunawayGrammar = errors.New("grammar made no progress")

// Options controls a Parser.
type Options struct {
	// MaxIterations defaults to DefaultMaxIterations.
	MaxIterations int

	// MaxDepth defaults to DefaultMaxDepth.
	MaxDepth int

	// Logger defaults to logging.Default().
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}

// Parser runs a grammar over a text.
//
// A Parser and its Grammar are used by one goroutine at a time.
type Parser struct {
	grammar *grammar.Grammar
	text    *source.Text
	opts    Options

	stall int
	depth int
}

// NewParser creates a parser for text using g.
func NewParser(g *grammar.Grammar, text *source.Text, opts Options) *Parser {
	return &Parser{grammar: g, text: text, opts: opts.withDefaults()}
}

// Grammar returns the grammar instance the parser drives.
func (p *Parser) Grammar() *grammar.Grammar { return p.grammar }

// Text returns the text being parsed.
func (p *Parser) Text() *source.Text { return p.text }

// SetText replaces the text. Pattern caches keyed on the previous text are
// invalidated by the change of identity.
func (p *Parser) SetText(text *source.Text) { p.text = text }

// Parse builds the tree for the whole text.
func (p *Parser) Parse() (*RootNode, error) {
	start := time.Now()

	root := &RootNode{Node: Node{
		Name:   p.grammar.ScopeName(),
		Region: region.New(0, p.text.Len()),
	}}
	children, err := p.ParseRegion(root.Region)
	if err != nil {
		return nil, err
	}
	root.Children = children
	root.UpdateRegion()

	p.opts.Logger.Debug("parsed",
		logging.FieldScope, p.grammar.ScopeName(),
		logging.FieldNodes, root.Count(),
		logging.FieldDuration, time.Since(start))
	return root, nil
}

// ParseRegion returns the top-level nodes that intersect r. Parsing starts
// at r.Begin() and stops at the first node that reaches r.End(); that node
// may extend beyond r.
func (p *Parser) ParseRegion(r region.Region) ([]*Node, error) {
	p.stall = 0
	p.depth = 0

	var nodes []*Node
	for pos := r.Begin(); pos < r.End(); {
		res, ok := p.grammar.Find(p.text, 0, pos)
		if !ok {
			break
		}

		// Nothing on the rest of this line: jump to the next one instead of
		// probing every character.
		if nl := p.text.NextLineBreak(pos); nl >= 0 && nl <= res.Match.Begin() {
			pos = p.text.SkipLineBreaks(nl)
			p.stall = 0
			continue
		}

		n, err := p.createNode(res)
		if err != nil {
			return nil, err
		}
		if r.Intersects(n.Region) {
			nodes = append(nodes, n)
		}

		next := n.Region.End()
		if err := p.advance(pos, next); err != nil {
			return nil, err
		}
		pos = next
	}
	return nodes, nil
}

// advance records a search step from one offset to the next and fails once
// too many consecutive steps made no progress.
func (p *Parser) advance(from, to int) error {
	if to > from {
		p.stall = 0
		return nil
	}
	p.stall++
	if p.stall > p.opts.MaxIterations {
		return fmt.Errorf("%w: stuck at offset %d in %s", ErrRunawayGrammar, from, p.grammar.ScopeName())
	}
	return nil
}

// createNode builds the node for a match found by the grammar.
func (p *Parser) createNode(res grammar.Result) (*Node, error) {
	rule := res.Rule()
	m := res.Match
	node := &Node{Name: rule.Name, Region: m.Region()}

	if rule.Kind != grammar.KindBeginEnd {
		addCaptures(node, m, rule.Captures)
		node.UpdateRegion()
		return node, nil
	}

	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.opts.MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d at offset %d", ErrRunawayGrammar, p.opts.MaxDepth, m.Begin())
	}

	addCaptures(node, m, rule.BeginCapturesOrDefault())

	inner := node
	var content *Node
	if rule.ContentName != "" {
		content = &Node{Name: rule.ContentName, Region: region.New(m.End(), m.End())}
		inner = content
	}

	var (
		g        = res.Grammar
		text     = p.text
		endMatch regex.Match
		endPos   int
		nested   bool
	)
	for i := m.End(); ; {
		em, ok := g.FindEnd(text, res.Pattern, i, m)
		if !ok {
			// No end from here on: close at the next line break if nothing
			// was nested yet, otherwise right after the last nested node.
			node.Unclosed = true
			endPos = i
			if !nested {
				if endPos = text.NextLineBreak(i); endPos < 0 {
					endPos = text.Len()
				}
			}
			p.opts.Logger.Debug("unterminated block",
				logging.FieldScope, g.ScopeName(),
				logging.FieldPattern, rule.Name,
				logging.FieldPosition, m.Begin())
			break
		}

		if len(rule.Children) > 0 {
			child, ok := g.FindChildren(text, res.Pattern, i)
			if ok && startsBeforeEnd(child.Match, em, m) {
				n, err := p.createNode(child)
				if err != nil {
					return nil, err
				}
				inner.append(n)
				nested = true

				next := n.Region.End()
				if err := p.advance(i, next); err != nil {
					return nil, err
				}
				i = next

				// A zero-width end at a line break (such as "$") would match
				// again on every following line once the nested node has
				// consumed the break; close the block there instead.
				if !(em.Region().IsEmpty() && text.IsLineBreak(em.End()) && i == em.End()+1) {
					continue
				}
			}
		}

		endMatch = em
		endPos = em.End()
		break
	}

	if content != nil {
		contentEnd := endPos
		if endMatch != nil {
			contentEnd = endMatch.Begin()
		}
		content.Region.SetEnd(contentEnd)
		content.UpdateRegion()
		if !content.Region.IsEmpty() || len(content.Children) > 0 {
			node.append(content)
		}
	}

	if endMatch != nil {
		addCaptures(node, endMatch, rule.EndCapturesOrDefault())
	}

	node.Region.SetEnd(endPos)
	node.UpdateRegion()
	node.sortChildren()
	return node, nil
}

// startsBeforeEnd reports whether a nested match should be taken before the
// end match: it starts earlier, or at the same offset while the block is
// still empty so that the block makes progress.
func startsBeforeEnd(child, end, begin regex.Match) bool {
	return child.Begin() < end.Begin() ||
		(child.Begin() == end.Begin() && begin.Region().IsEmpty())
}

// addCaptures attaches a node for every named capture group of m. Each
// capture is nested in the nearest earlier group that covers it and has a
// node of its own, or in parent. Groups that did not participate or matched
// nothing are skipped.
func addCaptures(parent *Node, m regex.Match, captures grammar.Captures) {
	if len(captures) == 0 {
		return
	}

	groups := m.NumGroups()
	created := make([]*Node, groups)
	touched := []*Node{parent}

	for _, c := range captures {
		if c.Index >= groups {
			continue
		}
		r, ok := m.Group(c.Index)
		if !ok || r.IsEmpty() {
			continue
		}

		child := &Node{Name: c.Name, Region: r}
		created[c.Index] = child

		owner := parent
		for j := enclosingGroup(m, c.Index); j >= 0; j = enclosingGroup(m, j) {
			if created[j] != nil {
				owner = created[j]
				break
			}
		}
		owner.append(child)
		touched = append(touched, child)
	}

	for _, n := range touched {
		n.sortChildren()
	}
}

// enclosingGroup returns the nearest group before i whose range covers
// group i, or -1.
func enclosingGroup(m regex.Match, i int) int {
	gi, ok := m.Group(i)
	if !ok {
		return -1
	}
	for j := i - 1; j >= 0; j-- {
		if gj, ok := m.Group(j); ok && gj.FullyCovers(gi) {
			return j
		}
	}
	return -1
}
