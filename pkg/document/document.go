// Package document ties a text, the grammar instance it is parsed with,
// its syntax tree and a scope resolver together, and keeps them in step as
// the text is edited.
package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/grammar"
	"github.com/yaklabco/tmscope/pkg/region"
	"github.com/yaklabco/tmscope/pkg/scope"
	"github.com/yaklabco/tmscope/pkg/source"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

// Sentinel errors.
var (
	// ErrNoGrammar is returned when a document is opened without a grammar.
	ErrNoGrammar = errors.New("document has no grammar")

	// ErrInvalidEdit is returned when an edit does not fit the current text
	// or disagrees with the length of the new text.
	ErrInvalidEdit = errors.New("invalid edit")
)

// Observer receives timing and cache figures from a document. It is
// implemented by metrics.Collector.
type Observer interface {
	ObserveParse(scope string, d time.Duration, nodes int)
	ObserveUpdate(scope string, d time.Duration)
	ObserveRunaway(scope string)
	ObserveCache(scope string, hits, misses int)
}

// Options configures a Document.
type Options struct {
	Parse    syntax.Options
	Logger   *log.Logger
	Observer Observer
}

// Document is one open text. It is not safe for concurrent use; every
// document owns its grammar instance.
type Document struct {
	opts     Options
	log      *log.Logger
	grammar  *grammar.Grammar
	parser   *syntax.Parser
	root     *syntax.RootNode
	resolver *scope.Resolver
	err      error
	stats    grammar.Stats
}

// Open parses text with g. A grammar that runs away does not make Open
// fail: the document simply has no tree and Err reports why.
func Open(text string, g *grammar.Grammar, opts Options) (*Document, error) {
	if g == nil {
		return nil, ErrNoGrammar
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Parse.Logger == nil {
		opts.Parse.Logger = opts.Logger
	}

	d := &Document{
		opts:     opts,
		log:      opts.Logger,
		resolver: scope.NewResolver(nil),
	}
	d.bind(g, source.New(text))
	d.reparse()
	return d, nil
}

func (d *Document) bind(g *grammar.Grammar, text *source.Text) {
	d.grammar = g
	d.parser = syntax.NewParser(g, text, d.opts.Parse)
	d.stats = g.Stats()
}

// Text returns the current text.
func (d *Document) Text() *source.Text { return d.parser.Text() }

// Grammar returns the grammar instance owned by the document.
func (d *Document) Grammar() *grammar.Grammar { return d.grammar }

// Root returns the syntax tree, or nil when the last parse failed.
func (d *Document) Root() *syntax.RootNode { return d.root }

// Err returns the error that left the document without a tree, if any.
func (d *Document) Err() error { return d.err }

// ScopeName returns the scope name at point, or "" when there is none.
func (d *Document) ScopeName(point int) string {
	return d.resolver.ScopeName(point)
}

// ScopeExtent returns the region of the innermost node at point.
func (d *Document) ScopeExtent(point int) region.Region {
	return d.resolver.ScopeExtent(point)
}

// SetGrammar switches the document to another grammar and parses it again
// from scratch.
func (d *Document) SetGrammar(g *grammar.Grammar) error {
	if g == nil {
		return ErrNoGrammar
	}
	d.bind(g, d.parser.Text())
	d.reparse()
	return nil
}

// SetText replaces the whole text and parses it again.
func (d *Document) SetText(text string) {
	d.parser.SetText(source.New(text))
	d.reparse()
}

// ApplyEdit installs newText, the result of applying edit to the current
// text, and updates the tree incrementally.
func (d *Document) ApplyEdit(edit syntax.Edit, newText string) error {
	old := d.parser.Text().Len()
	text := source.New(newText)
	if err := validate(edit, old, text.Len()); err != nil {
		return err
	}

	d.parser.SetText(text)
	if d.root == nil {
		d.reparse()
		return nil
	}

	start := time.Now()
	if err := d.parser.Update(d.root, edit); err != nil {
		d.fail(err)
		return nil
	}
	d.resolver.Reset(&d.root.Node)
	if d.opts.Observer != nil {
		d.opts.Observer.ObserveUpdate(d.grammar.ScopeName(), time.Since(start))
	}
	d.observeCache()
	return nil
}

func validate(edit syntax.Edit, oldLen, newLen int) error {
	switch {
	case edit.Position < 0 || edit.CharsRemoved < 0 || edit.CharsAdded < 0:
		return fmt.Errorf("%w: negative field in %+v", ErrInvalidEdit, edit)
	case edit.Position+edit.CharsRemoved > oldLen:
		return fmt.Errorf("%w: removes past the end of %d characters", ErrInvalidEdit, oldLen)
	case oldLen+edit.Delta() != newLen:
		return fmt.Errorf("%w: expected %d characters after the edit, got %d",
			ErrInvalidEdit, oldLen+edit.Delta(), newLen)
	}
	return nil
}

func (d *Document) reparse() {
	start := time.Now()
	root, err := d.parser.Parse()
	if err != nil {
		d.fail(err)
		return
	}
	d.root, d.err = root, nil
	d.resolver.Reset(&root.Node)
	if d.opts.Observer != nil {
		d.opts.Observer.ObserveParse(d.grammar.ScopeName(), time.Since(start), root.Count())
	}
	d.observeCache()
}

// fail drops the tree after a parse error. Highlighting falls back to no
// scopes at all.
func (d *Document) fail(err error) {
	d.root, d.err = nil, err
	d.resolver.Reset(nil)
	d.log.Error("parse failed", logging.FieldScope, d.grammar.ScopeName(), logging.FieldError, err)
	if d.opts.Observer != nil && errors.Is(err, syntax.ErrRunawayGrammar) {
		d.opts.Observer.ObserveRunaway(d.grammar.ScopeName())
	}
	d.observeCache()
}

func (d *Document) observeCache() {
	now := d.grammar.Stats()
	if d.opts.Observer != nil {
		d.opts.Observer.ObserveCache(d.grammar.ScopeName(), now.Hits-d.stats.Hits, now.Misses-d.stats.Misses)
	}
	d.stats = now
}
