package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lectern/internal/corpus"
	"lectern/internal/deps"
	"lectern/internal/grammar"
	"lectern/internal/graphs"
	"lectern/internal/lang"
	"lectern/internal/ledger"
	"lectern/internal/logging"
	"lectern/internal/normalize"
	"lectern/internal/services"
	"lectern/internal/symtab"
	"lectern/internal/workspace"
)

// lockRetryDelay paces attempts to take the model directory lock while
// another run holds it.
const lockRetryDelay = 250 * time.Millisecond

// Run executes one full compilation run. Preconditions are checked before
// any filesystem state is created; afterwards all intermediate work lives in
// a run-scoped workspace that is removed on return.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)

	if err := p.preflight(req); err != nil {
		return nil, err
	}
	if err := deps.RequireAll(deps.FromConfig(p.cfg)); err != nil {
		return nil, err
	}

	utterances, err := corpus.ReadFile(req.CorpusPath)
	if err != nil {
		return nil, err
	}
	logger.Info("corpus loaded",
		logging.String("path", req.CorpusPath),
		logging.Int("utterances", len(utterances)))

	p.recordBegin(ctx, logger, ledger.Run{
		ID:         runID,
		CorpusPath: req.CorpusPath,
		ModelDir:   req.ModelDir,
		Utterances: len(utterances),
		StartedAt:  started.UTC(),
	})

	result, err := p.run(ctx, logger, req, runID, utterances)
	p.recordFinish(ctx, logger, runID, err)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(started)
	logger.Info("run complete",
		logging.String("table", result.TableDir),
		logging.Int("utterances", result.Utterances),
		logging.Duration("duration", result.Duration))
	return result, nil
}

// preflight verifies all run inputs exist. This happens before the workspace
// is created so a doomed run leaves no trace.
func (p *Pipeline) preflight(req Request) error {
	checks := []struct {
		path string
		what string
	}{
		{req.CorpusPath, "corpus file"},
		{filepath.Join(req.ModelDir, "final.mdl"), "acoustic model"},
		{filepath.Join(req.ModelDir, "tree"), "decision tree"},
		{filepath.Join(req.LexiconDir, "lexicon.txt"), "base lexicon"},
	}
	for _, check := range checks {
		if _, err := os.Stat(check.path); err != nil {
			return services.Wrap(services.ErrPreconditionMissing, "preflight", check.what, check.path, err)
		}
	}
	if req.WorkDir == "" {
		return services.Wrap(services.ErrPreconditionMissing, "preflight", "work directory", "not set", nil)
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, req Request, runID string, utterances []corpus.Utterance) (*Result, error) {
	ws, err := workspace.Acquire(req.WorkDir, runID, p.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := ws.Release(); releaseErr != nil {
			logger.Warn("workspace cleanup failed", logging.Error(releaseErr))
		}
	}()

	language, homophones, homophonesPath, err := p.buildLanguage(ctx, logger, req, ws)
	if err != nil {
		return nil, err
	}

	synth, err := p.newSynthesizer(homophones, homophonesPath)
	if err != nil {
		return nil, err
	}
	records, err := p.normalizeAll(ctx, synth, language, utterances)
	if err != nil {
		return nil, err
	}
	logger.Info("grammars normalized", logging.Int("count", len(records)))

	tableDir, err := p.publish(ctx, logger, req.ModelDir, language, records, runID)
	if err != nil {
		return nil, err
	}
	p.recordUtterances(ctx, logger, runID, utterances)
	return &Result{RunID: runID, TableDir: tableDir, Utterances: len(records)}, nil
}

// buildLanguage stages the base dictionary, extends it over the corpus, and
// builds the language directory, returning its loaded symbol tables plus any
// homophone classes the extender derived.
func (p *Pipeline) buildLanguage(ctx context.Context, logger *slog.Logger, req Request, ws *workspace.Workspace) (*symtab.Language, grammar.Homophones, string, error) {
	ctx = services.WithStage(ctx, "lang")
	logger = logging.WithContext(ctx, p.logger)

	stagedDict := ws.Path("dict")
	if err := lang.StageDict(req.LexiconDir, stagedDict); err != nil {
		return nil, nil, "", err
	}

	extendedDir, err := ws.Subdir("dict_extended")
	if err != nil {
		return nil, nil, "", err
	}
	extended, err := p.extender.Extend(ctx, stagedDict, req.CorpusPath, extendedDir)
	if err != nil {
		return nil, nil, "", err
	}
	var homophones grammar.Homophones
	if extended.HomophonesPath != "" {
		if homophones, err = grammar.ReadHomophonesFile(extended.HomophonesPath); err != nil {
			return nil, nil, "", err
		}
		logger.Debug("homophone classes loaded", logging.Int("words", len(homophones)))
	}

	langTmp, err := ws.Subdir("lang_tmp")
	if err != nil {
		return nil, nil, "", err
	}
	langDir := ws.Path("lang")
	if err := p.builder.Build(ctx, extended.Dir, p.cfg.Labels.Rubbish, langTmp, langDir); err != nil {
		return nil, nil, "", err
	}
	language, err := symtab.Load(langDir)
	if err != nil {
		return nil, nil, "", err
	}
	logger.Info("language directory built",
		logging.Int("words", language.Words.Len()),
		logging.Int("phones", language.Phones.Len()))
	return language, homophones, extended.HomophonesPath, nil
}

// normalizeAll synthesizes and normalizes every utterance on a bounded
// worker pool. Results land in a slice indexed by corpus position, so output
// order always matches corpus order regardless of completion order. The
// first failure cancels the remaining workers.
func (p *Pipeline) normalizeAll(ctx context.Context, synth grammar.Synthesizer, language *symtab.Language, utterances []corpus.Utterance) ([]normalize.Record, error) {
	ctx = services.WithStage(ctx, "normalize")
	normalizer, err := normalize.New(language)
	if err != nil {
		return nil, err
	}

	records := make([]normalize.Record, len(utterances))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, utt := range utterances {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			uctx := services.WithUtteranceID(gctx, utt.ID)
			gram, err := synth.Synthesize(uctx, utt.ID, utt.Prompt)
			if err != nil {
				return fmt.Errorf("utterance %s: %w", utt.ID, err)
			}
			if !gram.Deterministic() {
				p.logger.Debug("synthesized grammar is nondeterministic",
					logging.String("utterance", utt.ID))
			}
			rec, err := normalizer.Normalize(gram)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// publish compiles the normalized grammars and installs the table, holding
// an advisory lock so concurrent runs against the same model directory
// serialize their table replacement.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, modelDir string, language *symtab.Language, records []normalize.Record, runID string) (string, error) {
	ctx = services.WithStage(ctx, "graphs")
	logger = logging.WithContext(ctx, p.logger)
	lock := flock.New(filepath.Join(modelDir, ".graphs.lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", fmt.Errorf("acquire model directory lock: %w", err)
	}
	if !locked {
		return "", fmt.Errorf("model directory %s is locked by another run", modelDir)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logger.Warn("failed to release model directory lock", logging.Error(unlockErr))
		}
	}()

	assembler, err := graphs.NewAssembler(p.compiler, p.cfg.Tools.ModelInfo, p.logger)
	if err != nil {
		return "", err
	}
	return assembler.Assemble(ctx, modelDir, language, records, runID)
}

// Ledger writes are observational. Failures are logged and swallowed so a
// broken ledger cannot fail an otherwise healthy run.

func (p *Pipeline) recordBegin(ctx context.Context, logger *slog.Logger, run ledger.Run) {
	if p.store == nil {
		return
	}
	if err := p.store.BeginRun(ctx, run); err != nil {
		logger.Warn("ledger begin failed", logging.Error(err))
	}
}

func (p *Pipeline) recordUtterances(ctx context.Context, logger *slog.Logger, runID string, utterances []corpus.Utterance) {
	if p.store == nil {
		return
	}
	counts := make(map[string]int, len(utterances))
	for _, utt := range utterances {
		counts[utt.ID] = len(utt.Prompt)
	}
	if err := p.store.RecordUtterances(ctx, runID, counts); err != nil {
		logger.Warn("ledger utterance record failed", logging.Error(err))
	}
}

func (p *Pipeline) recordFinish(ctx context.Context, logger *slog.Logger, runID string, runErr error) {
	if p.store == nil {
		return
	}
	if err := p.store.FinishRun(ctx, runID, runErr); err != nil {
		logger.Warn("ledger finish failed", logging.Error(err))
	}
}
