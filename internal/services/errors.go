package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedCorpus marks input corpus lines that cannot be parsed.
	ErrMalformedCorpus = errors.New("malformed corpus")
	// ErrPreconditionMissing marks required model or lexicon files that are
	// absent before any work begins.
	ErrPreconditionMissing = errors.New("precondition missing")
	// ErrUnknownSymbol marks grammar labels with no symbol-table entry.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrExternalTool marks collaborator processes that exited non-zero or
	// produced unparseable output.
	ErrExternalTool = errors.New("external tool failure")
	// ErrPartialTable marks a table build that aborted after partial output
	// had been written; the partial output is removed before this surfaces.
	ErrPartialTable = errors.New("partial table aborted")
	// ErrConfiguration marks unusable configuration values.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps a pipeline error to the process exit code reported by the CLI.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrMalformedCorpus):
		return 2
	case errors.Is(err, ErrPreconditionMissing):
		return 3
	case errors.Is(err, ErrUnknownSymbol):
		return 4
	case errors.Is(err, ErrExternalTool):
		return 5
	case errors.Is(err, ErrPartialTable):
		return 6
	case errors.Is(err, ErrConfiguration):
		return 7
	default:
		return 1
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
