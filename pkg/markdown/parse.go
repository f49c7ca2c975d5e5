package markdown

import (
	"fmt"

	"github.com/yaklabco/tmscope/pkg/grammar"
	"github.com/yaklabco/tmscope/pkg/langdetect"
	"github.com/yaklabco/tmscope/pkg/region"
	"github.com/yaklabco/tmscope/pkg/source"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

// Block is a fence together with the tree parsed from its body.
type Block struct {
	Fence

	// Scope is the grammar the body was parsed with.
	Scope string

	// Root is the tree of the body, with regions in offsets of the Markdown
	// document. It is nil when Err is set.
	Root *syntax.RootNode
	Err  error
}

// ParseFences parses the body of every fenced block of src. A failing
// block does not stop the others; its error is kept in Block.Err.
func ParseFences(src []byte, reg *grammar.Registry, opts syntax.Options) []Block {
	fences := Fences(src)
	blocks := make([]Block, 0, len(fences))
	for _, f := range fences {
		b := Block{Fence: f, Scope: ScopeForFence(reg, f)}
		b.Root, b.Err = parseBody(reg, b, opts)
		blocks = append(blocks, b)
	}
	return blocks
}

// ScopeForFence picks a grammar scope for a fence. The language word is
// tried as a file extension, then as a scope name, then through language
// detection; a body without any usable hint is detected from its content.
func ScopeForFence(reg *grammar.Registry, f Fence) string {
	lang := f.Language
	if lang != "" {
		if reg.HasExtension(lang) {
			return reg.ScopeForExtension(lang)
		}
		if _, ok := reg.Definition(lang); ok {
			return lang
		}
		if scope := langdetect.Scope(lang); registered(reg, scope) {
			return scope
		}
	}
	if scope := langdetect.ScopeFor("", []byte(f.Text)); registered(reg, scope) {
		return scope
	}
	return reg.ScopeForExtension("")
}

func registered(reg *grammar.Registry, scope string) bool {
	_, ok := reg.Definition(scope)
	return ok && scope != langdetect.PlainTextScope
}

func parseBody(reg *grammar.Registry, b Block, opts syntax.Options) (*syntax.RootNode, error) {
	g, err := reg.ForScope(b.Scope)
	if err != nil {
		return nil, err
	}
	root, err := syntax.NewParser(g, source.New(b.Text), opts).Parse()
	if err != nil {
		return nil, fmt.Errorf("fence at line %d: %w", b.Line, err)
	}
	shift(&root.Node, b.Region.Begin())
	return root, nil
}

// shift moves every region of the tree by offset.
func shift(n *syntax.Node, offset int) {
	_ = syntax.Walk(n, func(node *syntax.Node, _ int) error {
		node.Region = region.New(node.Region.Begin()+offset, node.Region.End()+offset)
		return nil
	})
}
