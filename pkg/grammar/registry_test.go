package grammar_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/tmscope/pkg/grammar"
)

func fixtureRegistry(t *testing.T) *grammar.Registry {
	t.Helper()
	reg := grammar.NewRegistry(quiet())
	n, err := reg.LoadDir(grammarDir)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return reg
}

func TestRegistry_LoadDir(t *testing.T) {
	t.Parallel()

	reg := fixtureRegistry(t)
	assert.Equal(t, 4, reg.Len())

	scopes := reg.Scopes()
	names := make([]string, 0, len(scopes))
	for _, e := range scopes {
		names = append(names, e.ScopeName)
	}
	assert.Equal(t, []string{"source.c", "source.c++", "text.plain", "text.xml.plist"}, names)
	assert.Equal(t, "Property List (XML)", scopes[3].Name)
}

func TestRegistry_Lookups(t *testing.T) {
	t.Parallel()

	reg := fixtureRegistry(t)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"extension", "main.cpp", "source.c++"},
		{"case sensitive extension", "legacy.C", "source.c++"},
		{"c", "lib.c", "source.c"},
		{"plist", "Info.plist", "text.xml.plist"},
		{"unknown falls back", "notes.md", grammar.DefaultScope},
		{"no extension", "README", grammar.DefaultScope},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, reg.ScopeForPath(tc.path))
			g, err := reg.ForPath(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, g.ScopeName())
		})
	}

	assert.Equal(t, "source.c++", reg.ScopeForExtension(".hpp"))
	assert.True(t, reg.HasExtension("cc"))
	assert.False(t, reg.HasExtension("md"))
}

func TestRegistry_ForScope(t *testing.T) {
	t.Parallel()

	reg := fixtureRegistry(t)

	a, err := reg.ForScope("source.c++")
	require.NoError(t, err)
	b, err := reg.ForScope("source.c++")
	require.NoError(t, err)
	assert.NotSame(t, a, b, "every caller owns its own instance")
	assert.Same(t, a.Definition(), b.Definition())

	_, err = reg.ForScope("missing scope")
	require.ErrorIs(t, err, grammar.ErrUnknownScope)
}

func TestRegistry_ForFirstLine(t *testing.T) {
	t.Parallel()

	reg := fixtureRegistry(t)

	g, ok := reg.ForFirstLine("/* -*- C++ -*- */")
	require.True(t, ok)
	assert.Equal(t, "source.c++", g.ScopeName())

	_, ok = reg.ForFirstLine("plain words")
	assert.False(t, ok)
}

func TestRegistry_FirstRegistrationWins(t *testing.T) {
	t.Parallel()

	reg := grammar.NewRegistry(quiet())
	first := mustLoad(t, rule("scopeName", "source.a", "fileTypes", []any{"x"}, "patterns", []any{}))
	dup := mustLoad(t, rule("scopeName", "source.a", "patterns", []any{}))
	other := mustLoad(t, rule("scopeName", "source.b", "fileTypes", []any{"x", "y"}, "patterns", []any{}))

	assert.True(t, reg.Register(first))
	assert.False(t, reg.Register(dup))
	assert.True(t, reg.Register(other))

	def, ok := reg.Definition("source.a")
	require.True(t, ok)
	assert.Same(t, first, def)
	assert.Equal(t, "source.a", reg.ScopeForExtension("x"))
	assert.Equal(t, "source.b", reg.ScopeForExtension("y"))

	reg.SetExtension("x", "source.b")
	assert.Equal(t, "source.b", reg.ScopeForExtension("x"))

	reg.SetDefaultScope("source.a")
	assert.Equal(t, "source.a", reg.ScopeForExtension("zzz"))

	reg.Reset()
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_LoadDirReportsBadFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.json"), []byte(`{"scopeName":"source.ok","patterns":[]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"scopeName":`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.yaml"), []byte("scopeName: source.none\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.tmLanguage"), []byte("<plist/>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o600))

	reg := grammar.NewRegistry(quiet())
	n, err := reg.LoadDir(dir)
	require.Error(t, err)
	assert.Equal(t, 1, n)

	_, ok := reg.Definition("source.ok")
	assert.True(t, ok)
}

func TestDecode_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want grammar.Format
		err  bool
	}{
		{"a/Go.tmLanguage.json", grammar.FormatJSON, false},
		{"b.YAML", grammar.FormatYAML, false},
		{"c.yml", grammar.FormatYAML, false},
		{"XML.tmLanguage", grammar.FormatPlist, false},
		{"theme.tmTheme", "", true},
	}
	for _, tc := range tests {
		got, err := grammar.FormatFromPath(tc.path)
		if tc.err {
			require.ErrorIs(t, err, grammar.ErrUnsupportedFormat, tc.path)
			continue
		}
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.want, got, tc.path)
	}

	_, err := grammar.Decode([]byte("<plist/>"), grammar.FormatPlist)
	require.ErrorIs(t, err, grammar.ErrUnsupportedFormat)

	tree, err := grammar.Decode([]byte("scopeName: source.y\npatterns: []\n"), grammar.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "source.y", tree["scopeName"])
}
