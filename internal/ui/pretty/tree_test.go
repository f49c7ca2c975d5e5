package pretty_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/tmscope/internal/ui/pretty"
	"github.com/yaklabco/tmscope/pkg/region"
	"github.com/yaklabco/tmscope/pkg/source"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

func sampleTree() (*syntax.Node, *source.Text) {
	text := source.New("class a {};")
	root := &syntax.Node{
		Name:   "source.c++",
		Region: region.New(0, 11),
		Children: []*syntax.Node{
			{Name: "storage.type.c++", Region: region.New(0, 5)},
			{Name: "entity.name.type.c++", Region: region.New(6, 7)},
			{
				Region:   region.New(8, 10),
				Unclosed: true,
				Children: []*syntax.Node{
					{Name: "punctuation.section.block.begin.c++", Region: region.New(8, 9)},
				},
			},
		},
	}
	return root, text
}

func TestTreeFormatter_Format(t *testing.T) {
	t.Parallel()

	root, text := sampleTree()
	f := pretty.NewTreeFormatter(pretty.NewStyles(false), 0)

	got := f.Format(root, text)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, "0-11 source.c++", lines[0])
	assert.Equal(t, `  0-5 storage.type.c++ "class"`, lines[1])
	assert.Equal(t, `  6-7 entity.name.type.c++ "a"`, lines[2])
	assert.Equal(t, "  8-10 (anonymous) (unclosed)", lines[3])
	assert.Equal(t, `    8-9 punctuation.section.block.begin.c++ "{"`, lines[4])
}

func TestTreeFormatter_NilRoot(t *testing.T) {
	t.Parallel()

	f := pretty.NewTreeFormatter(pretty.NewStyles(false), 80)
	assert.Empty(t, f.Format(nil, nil))
}

func TestTreeFormatter_TruncatesData(t *testing.T) {
	t.Parallel()

	text := source.New(strings.Repeat("x", 200))
	root := &syntax.Node{Name: "string.quoted", Region: region.New(0, 200)}
	f := pretty.NewTreeFormatter(pretty.NewStyles(false), 40)

	got := strings.TrimSuffix(f.Format(root, text), "\n")
	assert.LessOrEqual(t, len(got), 40)
	assert.True(t, strings.HasSuffix(got, "..."), "got %q", got)
}

func TestTreeFormatter_FormatScope(t *testing.T) {
	t.Parallel()

	f := pretty.NewTreeFormatter(pretty.NewStyles(false), 0)

	assert.Equal(t, "10 5-13 text.xml.plist meta.tag\n",
		f.FormatScope(10, "text.xml.plist meta.tag", region.New(5, 13)))
	assert.Equal(t, "99 (no scope)\n", f.FormatScope(99, "", region.Region{}))
}
