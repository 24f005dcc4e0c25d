package graphs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"lectern/internal/logging"
	"lectern/internal/services"
)

// Archive file names inside a graph table directory.
const (
	ArchiveName = "graphs.fsts"
	IndexName   = "graphs.scp"
	NumPDFsName = "num_pdfs"
)

// Job names the inputs of one compiler invocation. The compiler reads
// normalized grammars from its stdin stream and emits the archive plus its
// index into OutDir.
type Job struct {
	TreePath        string
	ModelPath       string
	LexiconFSTPath  string
	DisambigIntPath string
	OutDir          string
}

// Compiler turns a stream of normalized grammar records into a graph archive.
type Compiler interface {
	Compile(ctx context.Context, job Job, stream func(w io.Writer) error) error
}

// CompilerOption configures the CLI compiler.
type CompilerOption func(*CompilerCLI)

// WithScales overrides the transition and self-loop scales.
func WithScales(transition, selfLoop float64) CompilerOption {
	return func(c *CompilerCLI) {
		c.transitionScale = transition
		c.selfLoopScale = selfLoop
	}
}

// CompilerCLI invokes the external batch compiler:
//
//	<binary> --transition-scale=T --self-loop-scale=S \
//	    --read-disambig-syms=<disambig.int> <tree> <model> <L_disambig.fst> \
//	    ark:- ark,scp:<out>/graphs.fsts,<out>/graphs.scp
type CompilerCLI struct {
	binary          string
	transitionScale float64
	selfLoopScale   float64
	logger          *slog.Logger
}

// NewCompilerCLI constructs a command-backed compiler with default scales of
// 1.0 and 0.1.
func NewCompilerCLI(binary string, logger *slog.Logger, opts ...CompilerOption) (*CompilerCLI, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("graph compiler binary required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &CompilerCLI{binary: binary, transitionScale: 1.0, selfLoopScale: 0.1, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compile runs the compiler, feeding stream into its stdin. The compiler's
// stderr is surfaced only on failure; the tool logs progress there even on
// success.
func (c *CompilerCLI) Compile(ctx context.Context, job Job, stream func(w io.Writer) error) error {
	args := []string{
		"--transition-scale=" + formatScale(c.transitionScale),
		"--self-loop-scale=" + formatScale(c.selfLoopScale),
		"--read-disambig-syms=" + job.DisambigIntPath,
		job.TreePath,
		job.ModelPath,
		job.LexiconFSTPath,
		"ark:-",
		"ark,scp:" + filepath.Join(job.OutDir, ArchiveName) + "," + filepath.Join(job.OutDir, IndexName),
	}
	c.logger.Debug("running graph compiler",
		logging.String("binary", c.binary),
		logging.String("out_dir", job.OutDir))

	cmd := exec.CommandContext(ctx, c.binary, args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "graphs", c.binary, "stdin pipe", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "graphs", c.binary, "start", err)
	}

	streamErr := stream(stdin)
	closeErr := stdin.Close()
	waitErr := cmd.Wait()

	if waitErr != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			waitErr = fmt.Errorf("%w: %s", waitErr, tail(detail, 512))
		}
		return services.Wrap(services.ErrExternalTool, "graphs", c.binary, "", waitErr)
	}
	if streamErr != nil {
		return fmt.Errorf("stream grammars to %s: %w", c.binary, streamErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s stdin: %w", c.binary, closeErr)
	}
	return nil
}

var _ Compiler = (*CompilerCLI)(nil)

func formatScale(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
