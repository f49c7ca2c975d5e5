package regex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/tmscope/pkg/regex"
	"github.com/yaklabco/tmscope/pkg/region"
	"github.com/yaklabco/tmscope/pkg/source"
)

func TestFindAt_Captures(t *testing.T) {
	t.Parallel()

	re := regex.Compile(`(<\?)\s*([-_a-zA-Z0-9]+)`, regex.Options{})
	require.NoError(t, re.Err())

	m, ok, err := re.FindAt(source.New(`<?xml version="1.0" encoding="UTF-8"?>`), 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, regex.Match{0, 5, 0, 2, 2, 5}, m)
	assert.Equal(t, 3, m.NumGroups())
}

func TestFindAt_LeftMostAtOrAfter(t *testing.T) {
	t.Parallel()

	re := regex.Compile(`\d+`, regex.Options{})
	txt := source.New("a1 b22 c333")

	tests := []struct {
		from int
		want region.Region
		ok   bool
	}{
		{0, region.New(1, 2), true},
		{2, region.New(4, 6), true},
		{5, region.New(5, 6), true},
		{10, region.New(10, 11), true},
		{11, region.Region{}, false},
		{40, region.Region{}, false},
	}

	for _, tc := range tests {
		m, ok, err := re.FindAt(txt, tc.from)
		require.NoError(t, err)
		require.Equal(t, tc.ok, ok, "from %d", tc.from)
		if ok {
			assert.Equal(t, tc.want, m.Region(), "from %d", tc.from)
		}
	}
}

func TestFindAt_OnigurumaFeatures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		text    string
		want    region.Region
	}{
		{"lookbehind", `(?<=\$)\w+`, "cost $total", region.New(6, 11)},
		{"backreference", `(['"]).*?\1`, `say "hi" now`, region.New(4, 8)},
		{"atomic group", `(?>ab|a)c`, "xabc", region.New(1, 4)},
		{"line anchors", `^end$`, "start\nend\nmore", region.New(6, 9)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			re := regex.Compile(tc.pattern, regex.Options{})
			require.NoError(t, re.Err())
			m, ok, err := re.FindAt(source.New(tc.text), 0)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tc.want, m.Region())
		})
	}
}

func TestCompile_FailureDisables(t *testing.T) {
	t.Parallel()

	re := regex.Compile(`(unclosed`, regex.Options{})
	require.Error(t, re.Err())
	assert.ErrorIs(t, re.Err(), regex.ErrDisabled)
	assert.False(t, re.Valid())

	_, ok, err := re.FindAt(source.New("(unclosed"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	empty := regex.Compile("", regex.Options{})
	assert.False(t, empty.Valid())
}

func TestMatch_GroupNotParticipating(t *testing.T) {
	t.Parallel()

	re := regex.Compile(`(a)|(b)`, regex.Options{})
	m, ok, err := re.FindAt(source.New("b"), 0)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok = m.Group(1)
	assert.False(t, ok)
	g, ok := m.Group(2)
	assert.True(t, ok)
	assert.Equal(t, region.New(0, 1), g)
	_, ok = m.Group(7)
	assert.False(t, ok)
}

func TestResolve_SubstitutesEscapedCaptures(t *testing.T) {
	t.Parallel()

	begin := regex.Compile(`<<(\S+)`, regex.Options{})
	end := regex.Compile(`^\1$`, regex.Options{})
	assert.True(t, end.HasBackReferences())
	assert.False(t, begin.HasBackReferences())

	txt := source.New("<<E.O.F\nbody\nEXOXF\nE.O.F\n")
	bm, ok, err := begin.FindAt(txt, 0)
	require.NoError(t, err)
	require.True(t, ok)

	resolved := end.Resolve(txt, bm)
	require.NoError(t, resolved.Err())
	assert.Equal(t, `^E\.O\.F$`, resolved.Pattern())

	em, ok, err := resolved.FindAt(txt, bm.End())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, region.New(19, 24), em.Region())
}

func TestHasBackReferences_IgnoresEscapedBackslash(t *testing.T) {
	t.Parallel()

	assert.False(t, regex.Compile(`\\1`, regex.Options{}).HasBackReferences())
	assert.True(t, regex.Compile(`\\\1`, regex.Options{}).HasBackReferences())
}

func TestMatcher_ForwardCursor(t *testing.T) {
	t.Parallel()

	m := regex.NewMatcher(regex.Compile(`x`, regex.Options{}))
	txt := source.New("ab x cd x")

	first, ok, err := m.Find(txt, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, first.Begin())

	// Still before the remembered match: served from the cursor.
	again, ok, err := m.Find(txt, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, again.Begin())

	// Past the remembered match: scan again.
	next, ok, err := m.Find(txt, 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 8, next.Begin())

	// Backwards: scan again rather than trusting the cursor.
	back, ok, err := m.Find(txt, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, back.Begin())

	hits, misses := m.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 3, misses)
}

func TestMatcher_NoMatchIsRemembered(t *testing.T) {
	t.Parallel()

	m := regex.NewMatcher(regex.Compile(`z`, regex.Options{}))
	txt := source.New("abc")

	_, ok, err := m.Find(txt, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = m.Find(txt, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	hits, misses := m.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestMatcher_NewTextInvalidates(t *testing.T) {
	t.Parallel()

	m := regex.NewMatcher(regex.Compile(`x`, regex.Options{}))
	_, ok, err := m.Find(source.New("aaa"), 0)
	require.NoError(t, err)
	require.False(t, ok)

	got, ok, err := m.Find(source.New("aax"), 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Begin())
}

func TestMatcher_AgreesWithColdSearch(t *testing.T) {
	t.Parallel()

	re := regex.Compile(`\b\w`, regex.Options{})
	txt := source.New("one two  three\nfour")
	m := regex.NewMatcher(re)

	positions := []int{0, 1, 5, 4, 4, 9, 14, 2, 19, 15, 0}
	for _, pos := range positions {
		warm, warmOK, err := m.Find(txt, pos)
		require.NoError(t, err)
		cold, coldOK, err := re.FindAt(txt, pos)
		require.NoError(t, err)
		require.Equal(t, coldOK, warmOK, "pos %d", pos)
		assert.Equal(t, cold, warm, "pos %d", pos)
	}
}

func TestMatcher_NilRegex(t *testing.T) {
	t.Parallel()

	m := regex.NewMatcher(nil)
	assert.False(t, m.Valid())
	_, ok, err := m.Find(source.New("abc"), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}
