package syntax_test

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/grammar"
	"github.com/yaklabco/tmscope/pkg/region"
	"github.com/yaklabco/tmscope/pkg/source"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

func quietOptions() syntax.Options {
	return syntax.Options{Logger: logging.Discard()}
}

func fixtures(t *testing.T) *grammar.Registry {
	t.Helper()
	reg := grammar.NewRegistry(grammar.LoadOptions{Logger: logging.Discard()})
	_, err := reg.LoadDir(filepath.Join("..", "..", "testdata", "grammars"))
	require.NoError(t, err)
	return reg
}

func inline(t *testing.T, tree map[string]any) *grammar.Grammar {
	t.Helper()
	if _, ok := tree["scopeName"]; !ok {
		tree["scopeName"] = "source.test"
	}
	def, err := grammar.Load(tree, grammar.LoadOptions{Logger: logging.Discard()})
	require.NoError(t, err)
	return def.Instantiate(grammar.WithLogger(logging.Discard()))
}

func parse(t *testing.T, g *grammar.Grammar, text string) (*syntax.RootNode, *syntax.Parser) {
	t.Helper()
	p := syntax.NewParser(g, source.New(text), quietOptions())
	root, err := p.Parse()
	require.NoError(t, err)
	checkInvariants(t, &root.Node)
	return root, p
}

// outline flattens a tree into "indent begin-end name" lines.
func outline(n *syntax.Node) []string {
	var lines []string
	_ = syntax.Walk(n, func(node *syntax.Node, depth int) error {
		lines = append(lines, fmt.Sprintf("%s%d-%d %s",
			strings.Repeat("  ", depth), node.Region.Begin(), node.Region.End(), node.Name))
		return nil
	})
	return lines
}

// checkInvariants asserts that every node covers its children and that
// siblings are ordered and disjoint.
func checkInvariants(t *testing.T, n *syntax.Node) {
	t.Helper()
	_ = syntax.Walk(n, func(node *syntax.Node, _ int) error {
		prevEnd := node.Region.Begin()
		for _, child := range node.Children {
			assert.True(t, node.Region.FullyCovers(child.Region),
				"%s %s does not cover %s %s", node.Name, node.Region, child.Name, child.Region)
			assert.GreaterOrEqual(t, child.Region.Begin(), prevEnd,
				"%s %s overlaps its previous sibling", child.Name, child.Region)
			prevEnd = child.Region.End()
		}
		return nil
	})
}

func TestParse_CppClass(t *testing.T) {
	t.Parallel()

	g, err := fixtures(t).ForScope("source.c++")
	require.NoError(t, err)

	root, _ := parse(t, g, "class hoge {\n  void foo();\n};")

	assert.Equal(t, []string{
		"0-29 source.c++",
		"  0-28 meta.class-struct-block.c++",
		"    0-5 storage.type.c++",
		"    6-10 entity.name.type.c++",
		"    11-28 meta.block.c++",
		"      15-19 storage.type.c",
		"      19-24 meta.function-call.c",
		"        20-23 support.function.any-method.c",
		"        23-24 punctuation.definition.parameters.c",
	}, outline(&root.Node))
}

func TestParse_Deterministic(t *testing.T) {
	t.Parallel()

	reg := fixtures(t)
	text := "namespace n {\nclass A {\n  int f(char c) { return 0x10; } /* c */\n};\n}\n// end\n"

	g1, err := reg.ForScope("source.c++")
	require.NoError(t, err)
	first, _ := parse(t, g1, text)

	g2, err := reg.ForScope("source.c++")
	require.NoError(t, err)
	second, _ := parse(t, g2, text)

	// Same instance, warm caches.
	p := syntax.NewParser(g1, source.New(text), quietOptions())
	third, err := p.Parse()
	require.NoError(t, err)

	assert.True(t, syntax.Equal(&first.Node, &second.Node))
	assert.True(t, syntax.Equal(&first.Node, &third.Node))
}

func TestParse_SkipsLinesWithoutMatches(t *testing.T) {
	t.Parallel()

	g := inline(t, map[string]any{
		"patterns": []any{map[string]any{"match": "k", "name": "kw"}},
	})
	root, _ := parse(t, g, "aaa\n\r\nbkb\n\nzzz")

	assert.Equal(t, []string{
		"0-14 source.test",
		"  7-8 kw",
	}, outline(&root.Node))
}

func TestParse_MatchCapturesNest(t *testing.T) {
	t.Parallel()

	g := inline(t, map[string]any{
		"patterns": []any{map[string]any{
			"match": `((a)(b))(x)?c`,
			"name":  "word",
			"captures": map[string]any{
				"1": map[string]any{"name": "pair"},
				"2": map[string]any{"name": "first"},
				"3": map[string]any{"name": "second"},
				"4": map[string]any{"name": "never"},
			},
		}},
	})
	root, _ := parse(t, g, "abc")

	assert.Equal(t, []string{
		"0-3 source.test",
		"  0-3 word",
		"    0-2 pair",
		"      0-1 first",
		"      1-2 second",
	}, outline(&root.Node))
}

func TestParse_BeginEndWithContentName(t *testing.T) {
	t.Parallel()

	g := inline(t, map[string]any{
		"patterns": []any{map[string]any{
			"begin":       `"`,
			"end":         `"`,
			"name":        "string",
			"contentName": "string.content",
			"beginCaptures": map[string]any{
				"0": map[string]any{"name": "open"},
			},
			"endCaptures": map[string]any{
				"0": map[string]any{"name": "close"},
			},
			"patterns": []any{map[string]any{"match": `\\.`, "name": "escape"}},
		}},
	})
	root, _ := parse(t, g, `x "a\nb" y`)

	assert.Equal(t, []string{
		"0-10 source.test",
		"  2-8 string",
		"    2-3 open",
		"    3-7 string.content",
		"      4-6 escape",
		"    7-8 close",
	}, outline(&root.Node))
}

func TestParse_UnterminatedBlockClosesAtLineBreak(t *testing.T) {
	t.Parallel()

	g := inline(t, map[string]any{
		"patterns": []any{map[string]any{"begin": `\[`, "end": `\]`, "name": "list"}},
	})
	root, _ := parse(t, g, "x[ab\ncd")

	require.Len(t, root.Children, 1)
	list := root.Children[0]
	assert.Equal(t, region.New(1, 4), list.Region)
	assert.True(t, list.Unclosed)

	atEOF, _ := parse(t, g, "x[ab")
	require.Len(t, atEOF.Children, 1)
	assert.Equal(t, region.New(1, 4), atEOF.Children[0].Region)
	assert.True(t, atEOF.Children[0].Unclosed)
}

func TestParse_BrokenEndFallsBack(t *testing.T) {
	t.Parallel()

	g := inline(t, map[string]any{
		"patterns": []any{map[string]any{"begin": `<`, "end": `(`, "name": "tag"}},
	})
	root, _ := parse(t, g, "<a>\n<b>")

	require.Len(t, root.Children, 2)
	assert.Equal(t, region.New(0, 3), root.Children[0].Region)
	assert.True(t, root.Children[0].Unclosed)
	assert.Equal(t, region.New(4, 7), root.Children[1].Region)
}

func TestParse_ZeroWidthLineEndStopsAfterConsumedBreak(t *testing.T) {
	t.Parallel()

	g := inline(t, map[string]any{
		"patterns": []any{map[string]any{
			"begin":    `^#`,
			"end":      `$`,
			"name":     "directive",
			"patterns": []any{map[string]any{"match": `\\\n`, "name": "continuation"}},
		}},
	})
	root, _ := parse(t, g, "#ab\\\ncd\n")

	assert.Equal(t, []string{
		"0-8 source.test",
		"  0-5 directive",
		"    3-5 continuation",
	}, outline(&root.Node))
}

func TestParse_RunawayGrammar(t *testing.T) {
	t.Parallel()

	g := inline(t, map[string]any{
		"patterns": []any{map[string]any{"match": `(?=x)`, "name": "nothing"}},
	})
	p := syntax.NewParser(g, source.New("ax"), syntax.Options{MaxIterations: 5, Logger: logging.Discard()})

	root, err := p.Parse()
	require.ErrorIs(t, err, syntax.ErrRunawayGrammar)
	assert.Nil(t, root)
}

func TestParse_DepthLimit(t *testing.T) {
	t.Parallel()

	g := inline(t, map[string]any{
		"patterns": []any{map[string]any{"include": "#nest"}},
		"repository": map[string]any{
			"nest": map[string]any{
				"begin":    "a",
				"end":      "(?=;)",
				"patterns": []any{map[string]any{"include": "#nest"}},
			},
		},
	})

	p := syntax.NewParser(g, source.New("aaaaa;"), syntax.Options{MaxDepth: 3, Logger: logging.Discard()})
	_, err := p.Parse()
	require.ErrorIs(t, err, syntax.ErrRunawayGrammar)

	p = syntax.NewParser(g.Clone(), source.New("aaa;"), syntax.Options{MaxDepth: 3, Logger: logging.Discard()})
	root, err := p.Parse()
	require.NoError(t, err)
	assert.Equal(t, 4, root.Count())
}

func TestNode_Format(t *testing.T) {
	t.Parallel()

	g := inline(t, map[string]any{
		"patterns": []any{map[string]any{
			"begin": `\(`, "end": `\)`, "name": "group",
			"patterns": []any{map[string]any{"match": `\d+`, "name": "num"}},
		}},
	})
	text := "f(12)"
	root, _ := parse(t, g, text)

	assert.Equal(t,
		"0-5: \"source.test\"\n"+
			"  1-5: \"group\"\n"+
			"    2-4: \"num\" - Data: \"12\"\n",
		root.Format(source.New(text)))
}
