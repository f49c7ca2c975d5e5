// Package runner parses many files concurrently.
package runner

import (
	"github.com/yaklabco/tmscope/pkg/grammar"
	"github.com/yaklabco/tmscope/pkg/metrics"
	"github.com/yaklabco/tmscope/pkg/syntax"
)

// Options controls a multi-file run.
type Options struct {
	// Paths are the files or directories to process. Defaults to ".".
	Paths []string

	// WorkingDir resolves relative Paths. Defaults to the process working
	// directory.
	WorkingDir string

	// Extensions restricts discovery to these extensions (with or without
	// the leading dot). Empty means every extension a registered grammar
	// claims.
	Extensions []string

	// IncludeGlobs, when set, keep only files matching one of them.
	IncludeGlobs []string

	// ExcludeGlobs skip matching files and directories.
	ExcludeGlobs []string

	// FollowSymlinks traverses directory symlinks.
	FollowSymlinks bool

	// Jobs is the number of workers; 0 or less means runtime.NumCPU().
	Jobs int

	// DetectLanguage falls back to firstLineMatch and content detection for
	// files whose name no grammar claims.
	DetectLanguage bool

	// KeepTrees keeps every syntax tree in the result.
	KeepTrees bool

	// Parse is passed to every parser.
	Parse syntax.Options

	// Metrics, when set, receives per-file figures.
	Metrics *metrics.Collector
}

// effectivePaths returns the paths to process, defaulting to ".".
func (o Options) effectivePaths() []string {
	if len(o.Paths) == 0 {
		return []string{"."}
	}
	return o.Paths
}

// claims returns the predicate deciding which files discovery keeps.
func (o Options) claims(reg *grammar.Registry) func(path string) bool {
	if len(o.Extensions) > 0 {
		exts := make(map[string]bool, len(o.Extensions))
		for _, e := range o.Extensions {
			exts[normalizeExt(e)] = true
		}
		return func(path string) bool { return exts[normalizeExt(extOf(path))] }
	}
	return func(path string) bool {
		return reg.HasExtension(extOf(path)) || reg.HasExtension(baseOf(path))
	}
}
