package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yaklabco/tmscope/internal/configloader"
	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/internal/ui/pretty"
	"github.com/yaklabco/tmscope/pkg/config"
	"github.com/yaklabco/tmscope/pkg/grammar"
	"github.com/yaklabco/tmscope/pkg/langdetect"
	"github.com/yaklabco/tmscope/pkg/regex"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

// ErrConfig wraps failures to resolve the configuration.
var ErrConfig = errors.New("configuration error")

// environment is what every command needs once flags are parsed: the
// resolved configuration, a registry with the configured grammars and the
// output styles.
type environment struct {
	cfg      *config.Config
	registry *grammar.Registry
	logger   *log.Logger
	workDir  string
	styles   *pretty.Styles
	width    int
}

// loadEnvironment resolves the configuration for cmd, overlaying cli, and
// loads the grammars it names.
func loadEnvironment(cmd *cobra.Command, cli *config.Config) (*environment, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cli == nil {
		cli = &config.Config{}
	}

	flags := cmd.Flags()
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("get config flag: %w", err)
	}
	if flags.Changed("color") {
		color, _ := flags.GetString("color")
		cli.Color = config.ColorMode(color)
	}
	if flags.Changed("grammars") {
		cli.GrammarPaths, _ = flags.GetStringSlice("grammars")
	}
	if debug, _ := flags.GetBool("debug"); debug {
		cli.LogLevel = "debug"
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	loaded, err := configloader.Load(ctx, configloader.LoadOptions{
		WorkingDir:   workDir,
		ExplicitPath: configPath,
		CLIConfig:    cli,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	cfg := loaded.Config

	// The configured level applies to the default logger; a logger handed in
	// through the context keeps its own.
	logging.SetLevel(cfg.LogLevel)
	logger := logging.FromContext(ctx)
	cmd.SetContext(logging.WithLogger(ctx, logger))
	for _, warning := range loaded.Warnings {
		logger.Warn(warning)
	}
	if len(loaded.LoadedFrom) > 0 {
		logger.Debug("loaded configuration from", logging.FieldFiles, loaded.LoadedFrom)
	}

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	return &environment{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		workDir:  workDir,
		styles:   pretty.NewStyles(pretty.IsColorEnabled(string(cfg.Color), out)),
		width:    pretty.TerminalWidth(out),
	}, nil
}

// buildRegistry loads every configured grammar path, file or directory.
func buildRegistry(cfg *config.Config, logger *log.Logger) (*grammar.Registry, error) {
	registry := grammar.NewRegistry(grammar.LoadOptions{
		Regex:  regex.Options{Timeout: cfg.RegexTimeout},
		Logger: logger,
	})

	for _, path := range cfg.GrammarPaths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("grammar path: %w", err)
		}
		if !info.IsDir() {
			if _, err := registry.LoadFile(path); err != nil {
				return nil, fmt.Errorf("load grammar: %w", err)
			}
			continue
		}
		n, err := registry.LoadDir(path)
		if err != nil {
			return nil, fmt.Errorf("load grammars: %w", err)
		}
		logger.Debug("loaded grammars", logging.FieldPath, path, logging.FieldFiles, n)
	}

	for ext, scope := range cfg.Extensions {
		registry.SetExtension(ext, scope)
	}
	registry.SetDefaultScope(cfg.DefaultScope)
	return registry, nil
}

func (e *environment) parseOptions() syntax.Options {
	return syntax.Options{
		MaxIterations: e.cfg.MaxIterations,
		MaxDepth:      e.cfg.MaxDepth,
		Logger:        e.logger,
	}
}

// grammarFor picks the grammar of a single file: an explicit scope, then
// the file name, then (when enabled) the first line and the content.
func (e *environment) grammarFor(path string, content []byte, scope string) (*grammar.Grammar, error) {
	if scope != "" {
		g, err := e.registry.ForScope(scope)
		if err != nil {
			return nil, fmt.Errorf("grammar for %s: %w", path, err)
		}
		return g, nil
	}

	scope = e.registry.ScopeForPath(path)
	if e.cfg.ShouldDetectLanguage() && scope == e.cfg.DefaultScope {
		line, _, _ := bytes.Cut(content, []byte("\n"))
		if g, ok := e.registry.ForFirstLine(string(bytes.TrimRight(line, "\r"))); ok {
			return g, nil
		}
		if detected := langdetect.ScopeFor(path, content); e.registered(detected) {
			scope = detected
		}
	}

	g, err := e.registry.ForScope(scope)
	if err != nil {
		return nil, fmt.Errorf("grammar for %s: %w", path, err)
	}
	e.logger.Debug("selected grammar", logging.FieldPath, path, logging.FieldScope, g.ScopeName())
	return g, nil
}

func (e *environment) registered(scope string) bool {
	_, ok := e.registry.Definition(scope)
	return ok
}

func (e *environment) treeFormatter() *pretty.TreeFormatter {
	return pretty.NewTreeFormatter(e.styles, e.width)
}
