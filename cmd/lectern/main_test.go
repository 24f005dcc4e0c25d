package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/services"
	"lectern/internal/testsupport"
)

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// a second init without --overwrite refuses to clobber
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error for existing config file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowAndValidate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"config", "show"}, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[tools]")
	requireContains(t, out, "transition_scale")

	out, _, err = runCLI(t, []string{"config", "validate"}, configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration OK")
}

func TestGrammarCommandPrintsFST(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"grammar", "the", "cat"}, configPath)
	if err != nil {
		t.Fatalf("grammar: %v", err)
	}
	for _, want := range []string{"the", "cat", "<SPOKEN_NOISE>", "[SKP]"} {
		requireContains(t, out, want)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 5 {
		t.Fatalf("suspiciously small grammar:\n%s", out)
	}
}

func TestCompileCommandEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	dataDir := t.TempDir()
	testsupport.WriteCorpus(t, dataDir, "utt001 the cat sat", "utt002 the dog ran")
	modelDir := testsupport.NewModelDir(t)
	dictDir := testsupport.NewDictDir(t, "the", "cat", "sat", "dog", "ran")
	workDir := t.TempDir()

	out, _, err := runCLI(t, []string{"compile", dictDir, modelDir, dataDir, workDir}, configPath)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	requireContains(t, out, "Compiled 2 graphs")

	showOut, _, err := runCLI(t, []string{"table", "show", modelDir}, configPath)
	if err != nil {
		t.Fatalf("table show: %v", err)
	}
	requireContains(t, showOut, "utt001")
	requireContains(t, showOut, "utt002")
	requireContains(t, showOut, "Graphs: 2")
}

func TestCompileCommandMissingModel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	dataDir := t.TempDir()
	testsupport.WriteCorpus(t, dataDir, "utt001 the cat")
	dictDir := testsupport.NewDictDir(t, "the", "cat")

	_, _, err := runCLI(t, []string{"compile", dictDir, t.TempDir(), dataDir, t.TempDir()}, configPath)
	if !errors.Is(err, services.ErrPreconditionMissing) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if services.ExitCode(err) != 3 {
		t.Fatalf("unexpected exit code %d for %v", services.ExitCode(err), err)
	}
}

func TestTableShowMissingTable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, []string{"table", "show", t.TempDir()}, configPath)
	if !errors.Is(err, services.ErrPreconditionMissing) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestRunsCommandDisabledLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"runs"}, configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "disabled")
}

func TestRunsCommandListsLedgerRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLedger())
	configPath := writeTestConfig(t, cfg)

	dataDir := t.TempDir()
	testsupport.WriteCorpus(t, dataDir, "utt001 the cat sat")
	modelDir := testsupport.NewModelDir(t)
	dictDir := testsupport.NewDictDir(t, "the", "cat", "sat")

	if _, _, err := runCLI(t, []string{"compile", dictDir, modelDir, dataDir, t.TempDir()}, configPath); err != nil {
		t.Fatalf("compile: %v", err)
	}

	out, _, err := runCLI(t, []string{"runs"}, configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "succeeded")
}
