package configloader

import (
	"maps"

	"github.com/yaklabco/tmscope/pkg/config"
)

// merge combines two configurations, override taking precedence:
//   - scalars: override wins when non-zero
//   - Extensions: merged key by key
//   - slices: override replaces base when non-nil
//   - DetectLanguage: override wins when set
func merge(base, override *config.Config) *config.Config {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	result := *base

	if override.DefaultScope != "" {
		result.DefaultScope = override.DefaultScope
	}
	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}
	if override.MaxIterations != 0 {
		result.MaxIterations = override.MaxIterations
	}
	if override.MaxDepth != 0 {
		result.MaxDepth = override.MaxDepth
	}
	if override.RegexTimeout != 0 {
		result.RegexTimeout = override.RegexTimeout
	}
	if override.Jobs != 0 {
		result.Jobs = override.Jobs
	}
	if override.Color != "" {
		result.Color = override.Color
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.DetectLanguage != nil {
		detect := *override.DetectLanguage
		result.DetectLanguage = &detect
	}

	if base.Extensions != nil || override.Extensions != nil {
		result.Extensions = make(map[string]string, len(base.Extensions)+len(override.Extensions))
		maps.Copy(result.Extensions, base.Extensions)
		maps.Copy(result.Extensions, override.Extensions)
	}

	if override.GrammarPaths != nil {
		result.GrammarPaths = override.GrammarPaths
	}
	if override.Ignore != nil {
		result.Ignore = override.Ignore
	}

	return &result
}

// MergeAll merges configurations in order, later ones taking precedence.
func MergeAll(configs ...*config.Config) *config.Config {
	if len(configs) == 0 {
		return nil
	}
	result := configs[0]
	for _, cfg := range configs[1:] {
		result = merge(result, cfg)
	}
	return result
}
