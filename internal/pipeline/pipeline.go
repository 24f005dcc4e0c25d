package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"lectern/internal/config"
	"lectern/internal/grammar"
	"lectern/internal/graphs"
	"lectern/internal/lang"
	"lectern/internal/ledger"
	"lectern/internal/logging"
)

// Request names the inputs of one compilation run.
type Request struct {
	// CorpusPath is the prompt corpus: one "<id> <prompt>" line per utterance.
	CorpusPath string
	// ModelDir holds the acoustic model (final.mdl and tree) and receives the
	// published graph table.
	ModelDir string
	// LexiconDir is the base pronunciation dictionary the extender grows.
	LexiconDir string
	// WorkDir is the parent under which the run-scoped workspace is created.
	WorkDir string
}

// Result summarizes a finished run.
type Result struct {
	RunID      string
	TableDir   string
	Utterances int
	Duration   time.Duration
}

// Pipeline wires the run's collaborators together. Construct with New;
// collaborators default to the configured external tools and can be swapped
// through options.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger

	extender    lang.Extender
	builder     lang.Builder
	compiler    graphs.Compiler
	synthesizer grammar.Synthesizer
	store       *ledger.Store
}

// Option overrides a collaborator, primarily for tests.
type Option func(*Pipeline)

// WithExtender substitutes the lexicon extender.
func WithExtender(e lang.Extender) Option {
	return func(p *Pipeline) { p.extender = e }
}

// WithBuilder substitutes the language directory builder.
func WithBuilder(b lang.Builder) Option {
	return func(p *Pipeline) { p.builder = b }
}

// WithCompiler substitutes the graph compiler.
func WithCompiler(c graphs.Compiler) Option {
	return func(p *Pipeline) { p.compiler = c }
}

// WithSynthesizer pins the grammar synthesizer, bypassing the configured
// choice between the built-in recipes and an external command.
func WithSynthesizer(s grammar.Synthesizer) Option {
	return func(p *Pipeline) { p.synthesizer = s }
}

// WithLedger attaches a run ledger.
func WithLedger(store *ledger.Store) Option {
	return func(p *Pipeline) { p.store = store }
}

// New validates configuration and assembles a Pipeline.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline requires configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	p := &Pipeline{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(p)
	}

	var err error
	if p.extender == nil {
		if p.extender, err = lang.NewExtenderCLI(cfg.Tools.LexiconExtender, logger); err != nil {
			return nil, fmt.Errorf("extender: %w", err)
		}
	}
	if p.builder == nil {
		if p.builder, err = lang.NewBuilderCLI(cfg.Tools.LangBuilder, logger); err != nil {
			return nil, fmt.Errorf("builder: %w", err)
		}
	}
	if p.compiler == nil {
		cli, err := graphs.NewCompilerCLI(cfg.Tools.GraphCompiler, logger,
			graphs.WithScales(cfg.Compile.TransitionScale, cfg.Compile.SelfLoopScale))
		if err != nil {
			return nil, fmt.Errorf("compiler: %w", err)
		}
		p.compiler = cli
	}
	return p, nil
}

// workers resolves the synthesis/normalization pool size.
func (p *Pipeline) workers() int {
	if n := p.cfg.Compile.Workers; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// newSynthesizer builds the per-run grammar synthesizer. An external
// synthesizer command takes precedence when configured; otherwise the
// built-in recipes run with the configured weights and the homophone classes
// the extender emitted.
func (p *Pipeline) newSynthesizer(homophones grammar.Homophones, homophonesPath string) (grammar.Synthesizer, error) {
	if p.synthesizer != nil {
		return p.synthesizer, nil
	}
	if p.cfg.Tools.GrammarSynthesizer != "" {
		return grammar.NewCommand(p.cfg.Tools.GrammarSynthesizer, homophonesPath, p.cfg.Labels.Rubbish)
	}
	w := p.cfg.Weights
	return grammar.NewBuiltin(grammar.Options{
		Weights: grammar.Weights{
			Correct:      w.Correct,
			Rubbish:      w.Rubbish,
			Skip:         w.Skip,
			Repeat:       w.Repeat,
			JumpForward:  w.JumpForward,
			JumpBackward: w.JumpBackward,
			Truncation:   w.Truncation,
			PrematureEnd: w.PrematureEnd,
			FinalState:   w.FinalState,
		},
		Homophones:       homophones,
		RubbishLabel:     p.cfg.Labels.Rubbish,
		SkipLabel:        p.cfg.Labels.Skip,
		TruncationSuffix: p.cfg.Labels.TruncationSuffix,
	})
}
