package lang

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lectern/internal/logging"
	"lectern/internal/services"
)

// ExtendedLexicon locates the extender's outputs.
type ExtendedLexicon struct {
	// Dir holds the extended pronunciation dictionary.
	Dir string
	// HomophonesPath points at the homophone table the extender derived from
	// the extended pronunciations. Empty when the extender emitted none.
	HomophonesPath string
}

// Extender grows a base pronunciation dictionary to cover a prompt corpus.
type Extender interface {
	Extend(ctx context.Context, baseDictDir, corpusPath, outDir string) (ExtendedLexicon, error)
}

// ExtenderOption configures the CLI extender.
type ExtenderOption func(*ExtenderCLI)

// WithExtenderExecutor injects a custom executor (primarily for tests).
func WithExtenderExecutor(exec Executor) ExtenderOption {
	return func(e *ExtenderCLI) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// ExtenderCLI invokes the configured extender command:
//
//	<binary> <base-dict-dir> <corpus> <out-dir>
type ExtenderCLI struct {
	binary string
	logger *slog.Logger
	exec   Executor
}

// NewExtenderCLI constructs a command-backed extender.
func NewExtenderCLI(binary string, logger *slog.Logger, opts ...ExtenderOption) (*ExtenderCLI, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("lexicon extender binary required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &ExtenderCLI{binary: binary, logger: logger, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extend runs the extender and verifies its output contract: an extended
// lexicon file must exist afterwards. A homophones file is optional.
func (e *ExtenderCLI) Extend(ctx context.Context, baseDictDir, corpusPath, outDir string) (ExtendedLexicon, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return ExtendedLexicon{}, fmt.Errorf("create extender output dir: %w", err)
	}

	args := []string{baseDictDir, corpusPath, outDir}
	err := e.exec.Run(ctx, e.binary, args, func(line string) {
		e.logger.Debug("lexicon extender", logging.String("line", line))
	})
	if err != nil {
		return ExtendedLexicon{}, services.Wrap(services.ErrExternalTool, "lexicon", e.binary, "", err)
	}

	if _, statErr := os.Stat(filepath.Join(outDir, "lexicon.txt")); statErr != nil {
		return ExtendedLexicon{}, services.Wrap(services.ErrExternalTool, "lexicon", e.binary,
			"extender did not emit lexicon.txt", statErr)
	}

	result := ExtendedLexicon{Dir: outDir}
	homophones := filepath.Join(outDir, "homophones.txt")
	if _, statErr := os.Stat(homophones); statErr == nil {
		result.HomophonesPath = homophones
	}
	return result, nil
}

var _ Extender = (*ExtenderCLI)(nil)
