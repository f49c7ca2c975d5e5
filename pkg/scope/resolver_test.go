package scope_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/grammar"
	"github.com/yaklabco/tmscope/pkg/region"
	"github.com/yaklabco/tmscope/pkg/scope"
	"github.com/yaklabco/tmscope/pkg/source"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

const xmlDecl = `<?xml version="1.0" encoding="UTF-8"?>`

func plistParser(t *testing.T, text string) (*syntax.RootNode, *syntax.Parser) {
	t.Helper()
	reg := grammar.NewRegistry(grammar.LoadOptions{Logger: logging.Discard()})
	_, err := reg.LoadFile(filepath.Join("..", "..", "testdata", "grammars", "plist.tmLanguage.json"))
	require.NoError(t, err)
	g, err := reg.ForScope("text.xml.plist")
	require.NoError(t, err)

	p := syntax.NewParser(g, source.New(text), syntax.Options{Logger: logging.Discard()})
	root, err := p.Parse()
	require.NoError(t, err)
	return root, p
}

func TestResolver_XMLDeclaration(t *testing.T) {
	t.Parallel()

	root, _ := plistParser(t, xmlDecl)
	r := scope.NewResolver(&root.Node)

	tests := []struct {
		point  int
		extent region.Region
		name   string
	}{
		{
			point:  10,
			extent: region.New(5, 13),
			name:   "text.xml.plist meta.tag.preprocessor.xml entity.other.attribute-name.xml",
		},
		{
			point:  14,
			extent: region.New(14, 15),
			name: "text.xml.plist meta.tag.preprocessor.xml string.quoted.double.xml " +
				"punctuation.definition.string.begin.xml",
		},
		{
			point:  16,
			extent: region.New(14, 19),
			name:   "text.xml.plist meta.tag.preprocessor.xml string.quoted.double.xml",
		},
		{
			point:  1,
			extent: region.New(0, 2),
			name:   "text.xml.plist meta.tag.preprocessor.xml punctuation.definition.tag.xml",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.extent, r.ScopeExtent(tt.point), "extent at %d", tt.point)
		assert.Equal(t, tt.name, r.ScopeName(tt.point), "name at %d", tt.point)
	}
}

func TestResolver_OutsideTree(t *testing.T) {
	t.Parallel()

	root, _ := plistParser(t, xmlDecl)
	r := scope.NewResolver(&root.Node)

	assert.Empty(t, r.ScopeName(len(xmlDecl)))
	assert.Equal(t, region.Region{}, r.ScopeExtent(-1))

	empty := scope.NewResolver(nil)
	assert.Empty(t, empty.ScopeName(0))
}

// coldScopes resolves every offset with a fresh resolver.
func coldScopes(root *syntax.Node, n int) []string {
	out := make([]string, n)
	for i := range n {
		out[i] = scope.NewResolver(root).ScopeName(i)
	}
	return out
}

func TestResolver_CachedMatchesCold(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "docs", "example.plist"))
	require.NoError(t, err)
	text := string(data)

	root, p := plistParser(t, text)
	n := len([]rune(text))
	want := coldScopes(&root.Node, n)

	r := scope.NewResolver(&root.Node)
	for i := range n {
		assert.Equal(t, want[i], r.ScopeName(i), "forward at %d", i)
	}
	for i := n - 1; i >= 0; i -= 7 {
		assert.Equal(t, want[i], r.ScopeName(i), "backward at %d", i)
	}
	hits, misses := r.Stats()
	assert.Positive(t, hits)
	assert.Positive(t, misses)

	// Insert an attribute into the first line and keep using the resolver
	// after a reset.
	insert := ` standalone="yes"`
	pos := len(`<?xml version="1.0" encoding="UTF-8"`)
	edited := text[:pos] + insert + text[pos:]
	p.SetText(source.New(edited))
	require.NoError(t, p.Update(root, syntax.Edit{Position: pos, CharsAdded: len(insert)}))

	r.Reset(&root.Node)
	n = len([]rune(edited))
	want = coldScopes(&root.Node, n)
	for i := range n {
		assert.Equal(t, want[i], r.ScopeName(i), "after edit at %d", i)
	}
	assert.Equal(t,
		"text.xml.plist meta.tag.preprocessor.xml entity.other.attribute-name.xml",
		r.ScopeName(pos+3))
}
