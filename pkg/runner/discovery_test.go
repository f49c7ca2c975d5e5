package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/pkg/grammar"
	"github.com/yaklabco/tmscope/pkg/runner"
)

func registry(t *testing.T) *grammar.Registry {
	t.Helper()
	reg := grammar.NewRegistry(grammar.LoadOptions{Logger: logging.Discard()})
	if _, err := reg.LoadDir(filepath.Join("..", "..", "testdata", "grammars")); err != nil {
		t.Fatalf("load grammars: %v", err)
	}
	return reg
}

// tree writes files under a temporary directory and returns it.
func tree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("setup mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("setup write: %v", err)
		}
	}
	return dir
}

func rel(t *testing.T, dir string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		r, err := filepath.Rel(dir, f)
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		out = append(out, filepath.ToSlash(r))
	}
	return out
}

func TestDiscover_ClaimedExtensions(t *testing.T) {
	t.Parallel()

	dir := tree(t, map[string]string{
		"main.cpp":        "int x;",
		"lib/util.c":      "int y;",
		"lib/info.plist":  "<plist/>",
		"notes.txt":       "plain",
		"README.md":       "# hi",
		".hidden/x.cpp":   "int z;",
		"build/.cache.cc": "int w;",
	})

	files, err := runner.Discover(context.Background(), registry(t), runner.Options{WorkingDir: dir})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	want := []string{"lib/info.plist", "lib/util.c", "main.cpp", "notes.txt"}
	if got := rel(t, dir, files); !slices.Equal(got, want) {
		t.Errorf("Discover() = %v, want %v", got, want)
	}
}

func TestDiscover_ExplicitExtensions(t *testing.T) {
	t.Parallel()

	dir := tree(t, map[string]string{
		"a.cpp": "",
		"b.c":   "",
		"c.md":  "",
	})

	files, err := runner.Discover(context.Background(), registry(t), runner.Options{
		WorkingDir: dir,
		Extensions: []string{".md", "c"},
	})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{"b.c", "c.md"}
	if got := rel(t, dir, files); !slices.Equal(got, want) {
		t.Errorf("Discover() = %v, want %v", got, want)
	}
}

func TestDiscover_Globs(t *testing.T) {
	t.Parallel()

	dir := tree(t, map[string]string{
		"src/a.cpp":        "",
		"src/gen/b.cpp":    "",
		"vendor/c.cpp":     "",
		"test/d_test.cpp":  "",
		"test/fixture.cpp": "",
	})

	tests := []struct {
		name    string
		include []string
		exclude []string
		want    []string
	}{
		{
			name:    "exclude directory",
			exclude: []string{"vendor/**"},
			want:    []string{"src/a.cpp", "src/gen/b.cpp", "test/d_test.cpp", "test/fixture.cpp"},
		},
		{
			name:    "exclude anywhere",
			exclude: []string{"**/gen", "vendor"},
			want:    []string{"src/a.cpp", "test/d_test.cpp", "test/fixture.cpp"},
		},
		{
			name:    "include base name",
			include: []string{"*_test.cpp"},
			want:    []string{"test/d_test.cpp"},
		},
		{
			name:    "include prefix",
			include: []string{"src/**"},
			exclude: []string{"src/gen/**"},
			want:    []string{"src/a.cpp"},
		},
	}

	reg := registry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			files, err := runner.Discover(context.Background(), reg, runner.Options{
				WorkingDir:   dir,
				IncludeGlobs: tt.include,
				ExcludeGlobs: tt.exclude,
			})
			if err != nil {
				t.Fatalf("Discover() error = %v", err)
			}
			if got := rel(t, dir, files); !slices.Equal(got, tt.want) {
				t.Errorf("Discover() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiscover_ExplicitFileAndDuplicates(t *testing.T) {
	t.Parallel()

	dir := tree(t, map[string]string{
		"Makefile": "all:",
		"a.cpp":    "",
	})

	files, err := runner.Discover(context.Background(), registry(t), runner.Options{
		WorkingDir: dir,
		Paths:      []string{"Makefile", ".", "a.cpp"},
	})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{"Makefile", "a.cpp"}
	if got := rel(t, dir, files); !slices.Equal(got, want) {
		t.Errorf("Discover() = %v, want %v", got, want)
	}
}

func TestDiscover_MissingPath(t *testing.T) {
	t.Parallel()

	_, err := runner.Discover(context.Background(), registry(t), runner.Options{
		WorkingDir: t.TempDir(),
		Paths:      []string{"nope"},
	})
	if err == nil {
		t.Fatal("Discover() expected an error for a missing path")
	}
}

func TestDiscover_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Discover(ctx, registry(t), runner.Options{WorkingDir: t.TempDir()})
	if err == nil {
		t.Fatal("Discover() expected an error after cancellation")
	}
}
