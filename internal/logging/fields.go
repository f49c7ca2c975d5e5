// Package logging provides a structured logging wrapper around charmbracelet/log.
package logging

// Field name constants for structured logging.
// Using constants prevents typos and enables IDE autocomplete.
const (
	// Common fields.
	FieldError      = "error"
	FieldPath       = "path"
	FieldPaths      = "paths"
	FieldFiles      = "files"
	FieldWorkingDir = "working_dir"
	FieldAddr       = "addr"

	// Configuration fields.
	FieldJobs     = "jobs"
	FieldLogLevel = "log_level"

	// Grammar fields.
	FieldScope   = "scope"
	FieldKey     = "key"
	FieldPattern = "pattern"
	FieldInclude = "include"
	FieldGrammar = "grammar"
	FieldFormat  = "format"

	// Parse fields.
	FieldPosition   = "position"
	FieldRemoved    = "removed"
	FieldAdded      = "added"
	FieldNodes      = "nodes"
	FieldIterations = "iterations"
	FieldDuration   = "duration"

	// Statistics fields.
	FieldFilesDiscovered = "files_discovered"
	FieldFilesProcessed  = "files_processed"
	FieldFilesFailed     = "files_failed"
	FieldCacheHits       = "cache_hits"
	FieldCacheMisses     = "cache_misses"

	// Version fields.
	FieldVersion = "version"
	FieldCommit  = "commit"
	FieldBuilt   = "built"
)
