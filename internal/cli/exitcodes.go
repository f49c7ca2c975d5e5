package cli

import (
	"errors"
	"io/fs"

	"github.com/yaklabco/tmscope/pkg/runner"
)

// Exit codes for tmscope.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitParseFailures indicates that some input could not be parsed, a
	// runaway grammar was stopped or an edit did not verify.
	ExitParseFailures = 1

	// ExitInvalidUsage indicates invalid command-line usage.
	ExitInvalidUsage = 64

	// ExitConfigError indicates configuration or grammar file errors.
	ExitConfigError = 65

	// ExitInternalError indicates an internal error.
	ExitInternalError = 70

	// ExitIOError indicates file I/O errors.
	ExitIOError = 74
)

// ExitCodeFromResult determines the exit code of a multi-file run.
func ExitCodeFromResult(result *runner.Result) int {
	if result.HasFailures() {
		return ExitParseFailures
	}
	return ExitSuccess
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitInvalidUsage
	case errors.Is(err, ErrConfig):
		return ExitConfigError
	case errors.Is(err, ErrParseFailures), errors.Is(err, ErrRunaway), errors.Is(err, ErrVerifyMismatch):
		return ExitParseFailures
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return ExitIOError
	default:
		return ExitInternalError
	}
}

// UsageError reports a malformed argument.
type UsageError struct {
	Arg    string
	Reason string
}

func (e *UsageError) Error() string {
	return "invalid argument " + e.Arg + ": " + e.Reason
}
