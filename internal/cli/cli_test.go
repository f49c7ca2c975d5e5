package cli_test

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/yaklabco/tmscope/internal/cli"
)

func testInfo() cli.BuildInfo {
	return cli.BuildInfo{
		Version: "test-version",
		Commit:  "test-commit",
		Date:    "test-date",
	}
}

func TestNewRootCommand(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())

	if cmd == nil {
		t.Fatal("NewRootCommand returned nil")
	}

	if cmd.Use != "tmscope" {
		t.Errorf("expected Use to be 'tmscope', got %q", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if cmd.Long == "" {
		t.Error("expected Long description to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())

	expectedSubcommands := []string{"parse", "scope", "edit", "grammars", "run", "fences", "init", "version"}

	for _, name := range expectedSubcommands {
		subCmd, _, err := cmd.Find([]string{name})
		if err != nil {
			t.Errorf("expected subcommand %q to exist, got error: %v", name, err)
			continue
		}

		if subCmd.Name() != name {
			t.Errorf("expected subcommand name %q, got %q", name, subCmd.Name())
		}
	}
}

func TestGlobalFlags(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())

	for _, name := range []string{"debug", "config", "color", "grammars"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected global flag %q", name)
		}
	}
}

func TestCommandFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		command string
		flags   []string
	}{
		{"parse", []string{"scope", "format", "stats"}},
		{"scope", []string{"scope"}},
		{"edit", []string{"scope", "at", "remove", "insert", "verify", "stats", "write", "backup"}},
		{"grammars", []string{"format"}},
		{"run", []string{"jobs", "ignore", "include", "ext", "detect", "files", "compact", "metrics", "metrics-out", "serve-metrics"}},
		{"fences", []string{"tree"}},
		{"init", []string{"force", "format", "output", "grammar-dir"}},
	}

	cmd := cli.NewRootCommand(testInfo())
	for _, tt := range tests {
		sub, _, err := cmd.Find([]string{tt.command})
		if err != nil {
			t.Fatalf("%s command not found: %v", tt.command, err)
		}
		for _, flag := range tt.flags {
			if sub.Flags().Lookup(flag) == nil {
				t.Errorf("expected flag --%s on %s", flag, tt.command)
			}
		}
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"tmscope", "test-version", "test-commit", "test-date"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in version output, got %q", want, out)
		}
	}
}

func TestHelpIsStyled(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(testInfo())

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Usage:", "Commands:", "parse", "--grammars"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in help output", want)
		}
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, cli.ExitSuccess},
		{"usage", &cli.UsageError{Arg: "x", Reason: "bad"}, cli.ExitInvalidUsage},
		{"config", errors.Join(cli.ErrConfig, errors.New("bad key")), cli.ExitConfigError},
		{"failures", cli.ErrParseFailures, cli.ExitParseFailures},
		{"runaway", cli.ErrRunaway, cli.ExitParseFailures},
		{"verify", cli.ErrVerifyMismatch, cli.ExitParseFailures},
		{"missing file", fs.ErrNotExist, cli.ExitIOError},
		{"other", errors.New("boom"), cli.ExitInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := cli.ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
