package lang

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lectern/internal/logging"
	"lectern/internal/services"
)

// Builder turns an extended dictionary into a language directory: symbol
// tables, L_disambig.fst, and disambiguation metadata.
type Builder interface {
	Build(ctx context.Context, dictDir, rubbishLabel, tmpDir, langDir string) error
}

// BuilderOption configures the CLI builder.
type BuilderOption func(*BuilderCLI)

// WithBuilderExecutor injects a custom executor (primarily for tests).
func WithBuilderExecutor(exec Executor) BuilderOption {
	return func(b *BuilderCLI) {
		if exec != nil {
			b.exec = exec
		}
	}
}

// BuilderCLI invokes the configured builder command:
//
//	<binary> <dict-dir> <rubbish-label> <tmp-dir> <lang-dir>
type BuilderCLI struct {
	binary string
	logger *slog.Logger
	exec   Executor
}

// NewBuilderCLI constructs a command-backed builder.
func NewBuilderCLI(binary string, logger *slog.Logger, opts ...BuilderOption) (*BuilderCLI, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("language builder binary required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	b := &BuilderCLI{binary: binary, logger: logger, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build runs the builder. Output completeness is verified later by
// symtab.Load; here only process failure is handled.
func (b *BuilderCLI) Build(ctx context.Context, dictDir, rubbishLabel, tmpDir, langDir string) error {
	for _, dir := range []string{tmpDir, langDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create builder dir: %w", err)
		}
	}

	args := []string{dictDir, rubbishLabel, tmpDir, langDir}
	err := b.exec.Run(ctx, b.binary, args, func(line string) {
		b.logger.Debug("language builder", logging.String("line", line))
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "lang", b.binary, "", err)
	}
	return nil
}

var _ Builder = (*BuilderCLI)(nil)
