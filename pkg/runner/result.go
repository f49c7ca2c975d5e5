package runner

import (
	"time"

	"github.com/yaklabco/tmscope/pkg/syntax"
)

// FileOutcome is the result of parsing one file.
type FileOutcome struct {
	// Path is the absolute path of the file.
	Path string

	// Scope is the grammar the file was parsed with.
	Scope string

	// Chars is the length of the file in characters.
	Chars int

	// Nodes counts the nodes of the tree, root included.
	Nodes int

	// Unclosed counts begin/end blocks that ran out of text.
	Unclosed int

	// Duration is the time spent parsing.
	Duration time.Duration

	// Root is the tree, kept only with Options.KeepTrees.
	Root *syntax.RootNode

	// Error is set if the file could not be read or parsed.
	Error error
}

// Stats aggregates a run.
type Stats struct {
	FilesDiscovered int
	FilesProcessed  int
	FilesErrored    int

	Bytes    int64
	Chars    int
	Nodes    int
	Unclosed int

	// FilesByScope counts processed files per grammar scope.
	FilesByScope map[string]int
}

// Result is the overall runner result.
type Result struct {
	// Files are ordered by path.
	Files []FileOutcome

	Stats Stats
}

// HasFailures reports whether any file failed.
func (r *Result) HasFailures() bool {
	if r == nil {
		return false
	}
	return r.Stats.FilesErrored > 0
}

func newStats() Stats {
	return Stats{FilesByScope: make(map[string]int)}
}

func (r *Result) accumulate(outcome FileOutcome, size int64) {
	r.Files = append(r.Files, outcome)
	if outcome.Error != nil {
		r.Stats.FilesErrored++
		return
	}
	r.Stats.FilesProcessed++
	r.Stats.Bytes += size
	r.Stats.Chars += outcome.Chars
	r.Stats.Nodes += outcome.Nodes
	r.Stats.Unclosed += outcome.Unclosed
	r.Stats.FilesByScope[outcome.Scope]++
}
