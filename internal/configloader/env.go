package configloader

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yaklabco/tmscope/pkg/config"
)

// envVarPrefix is the prefix of every tmscope environment variable.
const envVarPrefix = "TMSCOPE_"

type envFieldType int

const (
	envTypeString envFieldType = iota
	envTypeBool
	envTypeInt
	envTypeDuration
	envTypeSlice
)

type envMapping struct {
	field       string
	typ         envFieldType
	description string
}

// envMappings maps variable names (without prefix) to config fields.
//
//nolint:gochecknoglobals // Read-only lookup table.
var envMappings = map[string]envMapping{
	"GRAMMAR_PATHS":   {"grammar_paths", envTypeSlice, "Comma-separated grammar directories or files"},
	"DEFAULT_SCOPE":   {"default_scope", envTypeString, "Scope for files no grammar claims"},
	"LOG_LEVEL":       {"log_level", envTypeString, "Log level: debug, info, warn or error"},
	"MAX_ITERATIONS":  {"max_iterations", envTypeInt, "Parser steps without progress before giving up"},
	"MAX_DEPTH":       {"max_depth", envTypeInt, "Maximum nesting of begin/end blocks"},
	"REGEX_TIMEOUT":   {"regex_timeout", envTypeDuration, "Time limit of one regex search, e.g. 250ms"},
	"JOBS":            {"jobs", envTypeInt, "Number of parallel workers (0 = auto)"},
	"COLOR":           {"color", envTypeString, "Colored output: auto, always or never"},
	"IGNORE":          {"ignore", envTypeSlice, "Comma-separated ignore patterns"},
	"DETECT_LANGUAGE": {"detect_language", envTypeBool, "Guess grammars from content: true or false"},
}

// LoadFromEnv applies TMSCOPE_* overrides to cfg.
func LoadFromEnv(cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	for suffix, mapping := range envMappings {
		name := envVarPrefix + suffix
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		if err := applyEnvValue(cfg, mapping, value, name); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvValue(cfg *config.Config, mapping envMapping, value, name string) error {
	switch mapping.typ {
	case envTypeString:
		switch mapping.field {
		case "default_scope":
			cfg.DefaultScope = value
		case "log_level":
			cfg.LogLevel = value
		case "color":
			cfg.Color = config.ColorMode(value)
		default:
			return fmt.Errorf("unknown string field: %s", mapping.field)
		}
	case envTypeBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %q (expected true/false/1/0)", name, value)
		}
		cfg.DetectLanguage = &b
	case envTypeInt:
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %q", name, value)
		}
		switch mapping.field {
		case "max_iterations":
			cfg.MaxIterations = i
		case "max_depth":
			cfg.MaxDepth = i
		case "jobs":
			cfg.Jobs = i
		default:
			return fmt.Errorf("unknown integer field: %s", mapping.field)
		}
	case envTypeDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %q", name, value)
		}
		cfg.RegexTimeout = d
	case envTypeSlice:
		parts := parseSliceValue(value)
		switch mapping.field {
		case "grammar_paths":
			cfg.GrammarPaths = parts
		case "ignore":
			cfg.Ignore = parts
		default:
			return fmt.Errorf("unknown slice field: %s", mapping.field)
		}
	default:
		return fmt.Errorf("unknown field type for %s", name)
	}
	return nil
}

// parseSliceValue splits a comma-separated list, dropping empty items.
func parseSliceValue(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// GetEnvVarName returns the environment variable for a config field, or "".
func GetEnvVarName(field string) string {
	for suffix, mapping := range envMappings {
		if mapping.field == field {
			return envVarPrefix + suffix
		}
	}
	return ""
}

// EnvVar describes one supported environment variable.
type EnvVar struct {
	Name        string
	Description string
}

// ListEnvVars returns the supported environment variables sorted by name.
func ListEnvVars() []EnvVar {
	vars := make([]EnvVar, 0, len(envMappings))
	for suffix, mapping := range envMappings {
		vars = append(vars, EnvVar{Name: envVarPrefix + suffix, Description: mapping.description})
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars
}
