package grammar_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/grammar"
)

const grammarDir = "../../testdata/grammars"

func quiet() grammar.LoadOptions {
	return grammar.LoadOptions{Logger: logging.Discard()}
}

func loadFixture(t *testing.T, name string) *grammar.Definition {
	t.Helper()
	def, err := grammar.LoadFile(filepath.Join(grammarDir, name), quiet())
	require.NoError(t, err)
	return def
}

func TestLoadFile_CppGrammar(t *testing.T) {
	t.Parallel()

	def := loadFixture(t, "cpp.tmLanguage.json")

	assert.Equal(t, "source.c++", def.ScopeName)
	assert.Equal(t, "C++", def.Name)
	require.Len(t, def.FileTypes, 13)
	assert.Equal(t, "cpp", def.FileTypes[0])
	assert.Equal(t, `-\*- C\+\+ -\*-`, def.FirstLineMatch)
	assert.True(t, def.MatchesFirstLine("// -*- C++ -*-"))
	assert.False(t, def.MatchesFirstLine("#!/bin/sh"))

	root := def.Root()
	assert.True(t, root.IsRoot())
	require.NotEmpty(t, root.Children)

	first := def.Pattern(root.Children[0])
	assert.Equal(t, grammar.KindInclude, first.Kind)
	assert.Equal(t, "#special_block", first.Include)
	assert.NotEqual(t, grammar.NoPattern, first.Target())

	modifier := def.Pattern(root.Children[2])
	assert.Equal(t, grammar.KindMatch, modifier.Kind)
	assert.Equal(t, `\b(friend|explicit|virtual)\b`, modifier.Match.Pattern())
	assert.Equal(t, "storage.modifier.c++", modifier.Name)

	dtor := def.Pattern(root.Children[4])
	assert.Equal(t, grammar.KindBeginEnd, dtor.Kind)
	assert.Len(t, dtor.BeginCaptures, 2)
	assert.Len(t, dtor.EndCaptures, 1)
	assert.Equal(t, "meta.function.destructor.c++", dtor.Name)
	assert.Len(t, dtor.Children, 1)

	block, ok := def.Repository("block")
	require.True(t, ok)
	assert.Equal(t, grammar.KindBeginEnd, block.Kind)
	assert.Equal(t, `\{`, block.Begin.Pattern())
	assert.Equal(t, `\}`, block.End.Pattern())
	assert.Equal(t, "meta.block.c++", block.Name)
	require.Len(t, block.Children, 2)

	call := def.Pattern(block.Children[0])
	assert.Len(t, call.Captures, 2)
	assert.Equal(t, "meta.function-call.c", call.Name)

	assert.Equal(t, []string{"block", "special_block"}, def.RepositoryKeys())
}

func TestLoadFile_YAMLIntegerCaptureKeys(t *testing.T) {
	t.Parallel()

	def := loadFixture(t, "c.tmLanguage.yaml")
	assert.Equal(t, "source.c", def.ScopeName)

	var str *grammar.Pattern
	for _, id := range def.Root().Children {
		if p := def.Pattern(id); p.Name == "string.quoted.double.c" {
			str = p
		}
	}
	require.NotNil(t, str)
	require.Len(t, str.BeginCaptures, 1)
	assert.Equal(t, grammar.Capture{Index: 0, Name: "punctuation.definition.string.begin.c"}, str.BeginCaptures[0])
}

func TestLoad_NoRootPatterns(t *testing.T) {
	t.Parallel()

	_, err := grammar.Load(map[string]any{"scopeName": "source.empty"}, quiet())
	require.ErrorIs(t, err, grammar.ErrNoRootPattern)
}

func TestLoad_KindPrecedence(t *testing.T) {
	t.Parallel()

	def, err := grammar.Load(map[string]any{
		"scopeName": "source.test",
		"patterns": []any{
			map[string]any{"match": "a", "begin": "b", "end": "c", "include": "#x"},
			map[string]any{"begin": "b", "end": "c", "include": "#x"},
			map[string]any{"include": "#x", "patterns": []any{map[string]any{"match": "q"}}},
			map[string]any{"end": "c"},
			map[string]any{"begin": "b"},
			"not a rule",
		},
	}, quiet())
	require.NoError(t, err)

	kids := def.Root().Children
	require.Len(t, kids, 5)
	assert.Equal(t, grammar.KindMatch, def.Pattern(kids[0]).Kind)
	assert.Equal(t, grammar.KindBeginEnd, def.Pattern(kids[1]).Kind)
	assert.Equal(t, grammar.KindInclude, def.Pattern(kids[2]).Kind)
	assert.Empty(t, def.Pattern(kids[2]).Children)
	assert.Equal(t, grammar.KindContainer, def.Pattern(kids[3]).Kind)
	assert.Equal(t, grammar.KindBeginEnd, def.Pattern(kids[4]).Kind)
	assert.Nil(t, def.Pattern(kids[4]).End)
}

func TestLoad_BrokenRegexIsDisabled(t *testing.T) {
	t.Parallel()

	def, err := grammar.Load(map[string]any{
		"scopeName": "source.test",
		"patterns":  []any{map[string]any{"match": "(unclosed", "name": "broken"}},
	}, quiet())
	require.NoError(t, err)

	p := def.Pattern(def.Root().Children[0])
	assert.False(t, p.Match.Valid())
	assert.Error(t, p.Match.Err())
}

func TestLoad_NestedRepositoryShadows(t *testing.T) {
	t.Parallel()

	def, err := grammar.Load(map[string]any{
		"scopeName": "source.test",
		"patterns": []any{
			map[string]any{
				"begin": "<",
				"end":   ">",
				"repository": map[string]any{
					"item": map[string]any{"match": "inner"},
				},
				"patterns": []any{map[string]any{"include": "#item"}},
			},
			map[string]any{"include": "#item"},
			map[string]any{"include": "#missing"},
		},
		"repository": map[string]any{
			"item": map[string]any{"match": "outer"},
		},
	}, quiet())
	require.NoError(t, err)

	root := def.Root()
	block := def.Pattern(root.Children[0])
	inner := def.Pattern(def.Pattern(block.Children[0]).Target())
	outer := def.Pattern(def.Pattern(root.Children[1]).Target())
	assert.Equal(t, "inner", inner.Match.Pattern())
	assert.Equal(t, "outer", outer.Match.Pattern())
	assert.Equal(t, grammar.NoPattern, def.Pattern(root.Children[2]).Target())
}

func TestLoad_TrimsNames(t *testing.T) {
	t.Parallel()

	def, err := grammar.Load(map[string]any{
		"scopeName": "  source.test \n",
		"patterns":  []any{map[string]any{"match": "x", "name": " keyword.x "}},
	}, quiet())
	require.NoError(t, err)
	assert.Equal(t, "source.test", def.ScopeName)
	assert.Equal(t, "keyword.x", def.Pattern(def.Root().Children[0]).Name)
}
