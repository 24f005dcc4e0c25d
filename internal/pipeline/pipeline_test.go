package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/grammar"
	"lectern/internal/graphs"
	"lectern/internal/ledger"
	"lectern/internal/pipeline"
	"lectern/internal/services"
	"lectern/internal/testsupport"
)

func newRequest(t *testing.T, corpusLines ...string) pipeline.Request {
	t.Helper()
	if len(corpusLines) == 0 {
		corpusLines = []string{"utt001 the cat sat", "utt002 the dog ran"}
	}
	return pipeline.Request{
		CorpusPath: testsupport.WriteCorpus(t, t.TempDir(), corpusLines...),
		ModelDir:   testsupport.NewModelDir(t),
		LexiconDir: testsupport.NewDictDir(t, "the", "cat", "sat", "dog", "ran"),
		WorkDir:    t.TempDir(),
	}
}

func assertWorkspaceGone(t *testing.T, workDir string) {
	t.Helper()
	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace survived the run: %v", entries)
	}
}

func TestRunPublishesTable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t)

	p, err := pipeline.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(t.Context(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID == "" || res.Utterances != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.TableDir != filepath.Join(req.ModelDir, "graphs") {
		t.Fatalf("unexpected table dir: %q", res.TableDir)
	}

	table, err := graphs.ReadTable(res.TableDir)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(table.Entries) != 2 || table.Entries[0].ID != "utt001" || table.Entries[1].ID != "utt002" {
		t.Fatalf("unexpected entries: %+v", table.Entries)
	}
	if table.NumPDFs != 100 {
		t.Fatalf("unexpected pdf count: %d", table.NumPDFs)
	}
	assertWorkspaceGone(t, req.WorkDir)
}

func TestRunPreservesCorpusOrderAcrossWorkers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(4))
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = fmt.Sprintf("utt%03d the cat sat", i)
	}
	req := newRequest(t, lines...)

	p, err := pipeline.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(t.Context(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	table, err := graphs.ReadTable(res.TableDir)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(table.Entries) != len(lines) {
		t.Fatalf("expected %d entries, got %d", len(lines), len(table.Entries))
	}
	for i, e := range table.Entries {
		want := fmt.Sprintf("utt%03d", i)
		if e.ID != want {
			t.Fatalf("entry %d out of order: got %s want %s", i, e.ID, want)
		}
	}
}

func TestRunMissingModelIsPreconditionBeforeWorkspace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t)
	if err := os.Remove(filepath.Join(req.ModelDir, "final.mdl")); err != nil {
		t.Fatalf("remove model: %v", err)
	}

	p, err := pipeline.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(t.Context(), req)
	if !errors.Is(err, services.ErrPreconditionMissing) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	assertWorkspaceGone(t, req.WorkDir)
}

func TestRunMalformedCorpus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t)
	req.CorpusPath = testsupport.WriteCorpus(t, t.TempDir(), "utt001 the cat", "", "utt002 the dog")

	p, err := pipeline.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(t.Context(), req)
	if !errors.Is(err, services.ErrMalformedCorpus) {
		t.Fatalf("expected malformed corpus error, got %v", err)
	}
	assertWorkspaceGone(t, req.WorkDir)
}

func TestRunExternalToolFailureCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Tools.LangBuilder = testsupport.FailingTool(t, t.TempDir(), "prep.sh", "lang builder exploded")
	req := newRequest(t)

	p, err := pipeline.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(t.Context(), req)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	assertWorkspaceGone(t, req.WorkDir)
	if _, statErr := os.Stat(filepath.Join(req.ModelDir, "graphs")); !os.IsNotExist(statErr) {
		t.Fatal("graph table exists after failed run")
	}
}

type badLabelSynthesizer struct{}

func (badLabelSynthesizer) Synthesize(_ context.Context, id string, _ []string) (*grammar.Grammar, error) {
	return &grammar.Grammar{
		ID:     id,
		Arcs:   []grammar.Arc{{From: 0, To: 1, InLabel: "zzgarbled", OutLabel: "zzgarbled", Weight: 0.5}},
		Finals: []grammar.Final{{State: 1}},
	}, nil
}

func TestRunUnknownSymbolNamesUtterance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t, "utt001 the cat sat")

	p, err := pipeline.New(cfg, nil, pipeline.WithSynthesizer(badLabelSynthesizer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(t.Context(), req)
	if !errors.Is(err, services.ErrUnknownSymbol) {
		t.Fatalf("expected unknown symbol error, got %v", err)
	}
	for _, want := range []string{"utt001", "zzgarbled"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error does not name %q: %v", want, err)
		}
	}
	assertWorkspaceGone(t, req.WorkDir)
}

func TestRunRecordsLedgerOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLedger())
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer store.Close()
	req := newRequest(t)

	p, err := pipeline.New(cfg, nil, pipeline.WithLedger(store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(t.Context(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	run, err := store.GetRun(t.Context(), res.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != ledger.StatusSucceeded || run.Utterances != 2 {
		t.Fatalf("unexpected ledger run: %+v", run)
	}

	// a failing run is recorded as failed
	failReq := newRequest(t)
	failCfg := testsupport.NewConfig(t, testsupport.WithLedger())
	failCfg.Ledger.Path = cfg.Ledger.Path
	failCfg.Tools.LangBuilder = testsupport.FailingTool(t, t.TempDir(), "prep.sh", "boom")
	failP, err := pipeline.New(failCfg, nil, pipeline.WithLedger(store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := failP.Run(t.Context(), failReq); err == nil {
		t.Fatal("expected failing run")
	}
	runs, err := store.ListRuns(t.Context(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 ledger runs, got %d", len(runs))
	}
	var sawFailed bool
	for _, r := range runs {
		if r.Status == ledger.StatusFailed && r.Error != "" {
			sawFailed = true
		}
	}
	if !sawFailed {
		t.Fatal("failed run not recorded in ledger")
	}
}

func TestRunReplacesPreviousTable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t)

	p, err := pipeline.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Run(t.Context(), req); err != nil {
		t.Fatalf("first run: %v", err)
	}

	req.CorpusPath = testsupport.WriteCorpus(t, t.TempDir(), "utt101 the cat")
	res, err := p.Run(t.Context(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	table, err := graphs.ReadTable(res.TableDir)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(table.Entries) != 1 || table.Entries[0].ID != "utt101" {
		t.Fatalf("previous table not replaced: %+v", table.Entries)
	}
}

// blockingBuilder parks until its context is canceled, standing in for a
// long-running language build while the run is interrupted.
type blockingBuilder struct {
	started chan struct{}
}

func (b *blockingBuilder) Build(ctx context.Context, _, _, _, _ string) error {
	close(b.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestRunInterruptLeavesNoWorkspace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	req := newRequest(t)
	builder := &blockingBuilder{started: make(chan struct{})}

	p, err := pipeline.New(cfg, nil, pipeline.WithBuilder(builder))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, runErr := p.Run(ctx, req)
		done <- runErr
	}()

	<-builder.started
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled run, got %v", err)
	}
	assertWorkspaceGone(t, req.WorkDir)
	if _, statErr := os.Stat(filepath.Join(req.ModelDir, "graphs")); !os.IsNotExist(statErr) {
		t.Fatal("graph table exists after interrupted run")
	}
}

func TestRunSameInputsYieldIdenticalTables(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	corpusPath := testsupport.WriteCorpus(t, t.TempDir(),
		"utt001 the cat sat", "utt002 the dog ran")
	lexiconDir := testsupport.NewDictDir(t, "the", "cat", "sat", "dog", "ran")

	tables := make([]*graphs.Table, 2)
	for i := range tables {
		req := pipeline.Request{
			CorpusPath: corpusPath,
			ModelDir:   testsupport.NewModelDir(t),
			LexiconDir: lexiconDir,
			WorkDir:    t.TempDir(),
		}
		p, err := pipeline.New(cfg, nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		res, err := p.Run(t.Context(), req)
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		if tables[i], err = graphs.ReadTable(res.TableDir); err != nil {
			t.Fatalf("ReadTable %d: %v", i+1, err)
		}
	}

	for _, name := range []string{"words.txt", "phones.txt", "disambig.int", "num_pdfs"} {
		first, err := os.ReadFile(filepath.Join(tables[0].Dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		second, err := os.ReadFile(filepath.Join(tables[1].Dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !bytes.Equal(first, second) {
			t.Fatalf("%s differs between runs:\n%q\n%q", name, first, second)
		}
	}
	if len(tables[0].Entries) != len(tables[1].Entries) {
		t.Fatalf("entry counts differ: %d vs %d", len(tables[0].Entries), len(tables[1].Entries))
	}
	for i := range tables[0].Entries {
		if tables[0].Entries[i].ID != tables[1].Entries[i].ID {
			t.Fatalf("entry %d differs: %q vs %q",
				i, tables[0].Entries[i].ID, tables[1].Entries[i].ID)
		}
	}
}
