package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TemplateOptions controls configuration template generation.
type TemplateOptions struct {
	// Format is "yaml" (default) or "json".
	Format string

	// GrammarPaths are written into the template when set.
	GrammarPaths []string
}

// GenerateTemplate returns a starter configuration file.
func GenerateTemplate(opts TemplateOptions) ([]byte, error) {
	switch strings.ToLower(opts.Format) {
	case "", "yaml", "yml":
		return yamlTemplate(opts), nil
	case "json":
		cfg := NewConfig()
		cfg.GrammarPaths = opts.GrammarPaths
		data, err := json.MarshalIndent(jsonView(cfg), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode template: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown template format %q", opts.Format)
	}
}

func yamlTemplate(opts TemplateOptions) []byte {
	var b strings.Builder
	b.WriteString("# tmscope configuration\n\n")
	b.WriteString("# Directories or files grammars are loaded from.\n")
	if len(opts.GrammarPaths) == 0 {
		b.WriteString("grammar_paths: []\n")
	} else {
		b.WriteString("grammar_paths:\n")
		for _, p := range opts.GrammarPaths {
			fmt.Fprintf(&b, "  - %q\n", p)
		}
	}
	fmt.Fprintf(&b, `
# Scope used for files no grammar claims.
default_scope: %s

# Extra extension to scope mappings.
# extensions:
#   inl: source.c++

# debug, info, warn or error
# log_level: %s

# Parser limits.
# max_iterations: %d
# max_depth: %d
# regex_timeout: %s

# Number of parallel workers (0 = one per CPU)
# jobs: 0

# auto, always or never
# color: auto

# Guess the grammar of unclaimed files from their content.
# detect_language: false

# File patterns to ignore (glob patterns)
# ignore:
#   - "vendor/**"
`, DefaultScope, DefaultLogLevel, DefaultMaxIterations, DefaultMaxDepth, DefaultRegexTimeout)
	return []byte(b.String())
}

// jsonView mirrors the YAML keys for JSON output.
func jsonView(c *Config) map[string]any {
	return map[string]any{
		"grammar_paths":   c.GrammarPaths,
		"default_scope":   c.DefaultScope,
		"extensions":      c.Extensions,
		"log_level":       c.LogLevel,
		"max_iterations":  c.MaxIterations,
		"max_depth":       c.MaxDepth,
		"regex_timeout":   c.RegexTimeout.String(),
		"jobs":            c.Jobs,
		"color":           c.Color,
		"ignore":          c.Ignore,
		"detect_language": c.ShouldDetectLanguage(),
	}
}
