// Package config defines the configuration types for tmscope.
// These types are plain data with no knowledge of where values come from.
package config

import "time"

// Defaults.
const (
	DefaultScope         = "text.plain"
	DefaultLogLevel      = "info"
	DefaultMaxIterations = 10000
	DefaultMaxDepth      = 512
	DefaultRegexTimeout  = 250 * time.Millisecond
)

// ColorMode controls colored output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// IsValid reports whether m is a known mode.
func (m ColorMode) IsValid() bool {
	switch m {
	case ColorAuto, ColorAlways, ColorNever:
		return true
	default:
		return false
	}
}

// OutputFormat selects how trees are printed.
type OutputFormat string

const (
	FormatTree OutputFormat = "tree"
	FormatJSON OutputFormat = "json"
)

// IsValid reports whether f is a known format.
func (f OutputFormat) IsValid() bool {
	return f == FormatTree || f == FormatJSON
}

// Config is the root configuration structure.
type Config struct {
	// GrammarPaths are directories (or files) grammars are loaded from.
	GrammarPaths []string `yaml:"grammar_paths"`

	// DefaultScope is used for files no grammar claims.
	DefaultScope string `yaml:"default_scope"`

	// Extensions maps extra file extensions to grammar scopes.
	Extensions map[string]string `yaml:"extensions"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// MaxIterations bounds consecutive parser steps without progress.
	MaxIterations int `yaml:"max_iterations"`

	// MaxDepth bounds nesting of begin/end blocks.
	MaxDepth int `yaml:"max_depth"`

	// RegexTimeout bounds a single regex search, such as "250ms".
	RegexTimeout time.Duration `yaml:"regex_timeout"`

	// Jobs is the number of parallel workers; 0 means one per CPU.
	Jobs int `yaml:"jobs"`

	// Color is auto, always or never.
	Color ColorMode `yaml:"color"`

	// Ignore contains glob patterns of files to skip.
	Ignore []string `yaml:"ignore"`

	// DetectLanguage guesses the grammar of unclaimed files from content.
	DetectLanguage *bool `yaml:"detect_language"`

	// CLI-only options.

	// Format selects tree or JSON output.
	Format OutputFormat `yaml:"-"`
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	detect := false
	return &Config{
		DefaultScope:   DefaultScope,
		Extensions:     make(map[string]string),
		LogLevel:       DefaultLogLevel,
		MaxIterations:  DefaultMaxIterations,
		MaxDepth:       DefaultMaxDepth,
		RegexTimeout:   DefaultRegexTimeout,
		Color:          ColorAuto,
		DetectLanguage: &detect,
		Format:         FormatTree,
	}
}

// ShouldDetectLanguage reports whether content detection is on.
func (c *Config) ShouldDetectLanguage() bool {
	return c != nil && c.DetectLanguage != nil && *c.DetectLanguage
}
