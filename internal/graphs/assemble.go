package graphs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lectern/internal/fileutil"
	"lectern/internal/logging"
	"lectern/internal/normalize"
	"lectern/internal/services"
	"lectern/internal/symtab"
)

// TableDirName is where the finished graph table lives under a model
// directory.
const TableDirName = "graphs"

// Assembler compiles normalized grammars and publishes the resulting table
// under the model directory. The table is self-contained: archive, index,
// the symbol tables it was built against, and the model's pdf count.
type Assembler struct {
	compiler        Compiler
	modelInfoBinary string
	logger          *slog.Logger
}

// NewAssembler wires a compiler and the model info tool together.
func NewAssembler(compiler Compiler, modelInfoBinary string, logger *slog.Logger) (*Assembler, error) {
	if compiler == nil {
		return nil, fmt.Errorf("compiler required")
	}
	modelInfoBinary = strings.TrimSpace(modelInfoBinary)
	if modelInfoBinary == "" {
		return nil, fmt.Errorf("model info binary required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{compiler: compiler, modelInfoBinary: modelInfoBinary, logger: logger}, nil
}

// Assemble builds the graph table for records against modelDir and lang.
// Work happens in a run-scoped staging directory next to the final location;
// only a fully validated table is renamed into place, replacing any previous
// table. On failure the staging directory is removed and, where partial
// compiler output was involved, the error carries the partial-table marker.
func (a *Assembler) Assemble(ctx context.Context, modelDir string, lang *symtab.Language, records []normalize.Record, runID string) (string, error) {
	if len(records) == 0 {
		return "", services.Wrap(services.ErrPartialTable, "graphs", "assemble", "no grammars to compile", nil)
	}

	staging := filepath.Join(modelDir, fmt.Sprintf("%s.tmp-%s", TableDirName, runID))
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	final := filepath.Join(modelDir, TableDirName)

	published := false
	defer func() {
		if published {
			return
		}
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			a.logger.Warn("failed to remove staging dir",
				logging.String("dir", staging), logging.Error(rmErr))
		}
	}()

	if err := a.build(ctx, staging, final, modelDir, lang, records); err != nil {
		return "", err
	}

	if err := os.RemoveAll(final); err != nil {
		return "", fmt.Errorf("remove previous table: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		return "", fmt.Errorf("publish table: %w", err)
	}
	published = true
	a.logger.Info("graph table published",
		logging.String("dir", final),
		logging.Int("graphs", len(records)))
	return final, nil
}

func (a *Assembler) build(ctx context.Context, staging, final, modelDir string, lang *symtab.Language, records []normalize.Record) error {
	job := Job{
		TreePath:        filepath.Join(modelDir, "tree"),
		ModelPath:       filepath.Join(modelDir, "final.mdl"),
		LexiconFSTPath:  lang.LexiconFSTPath(),
		DisambigIntPath: lang.DisambigIntPath(),
		OutDir:          staging,
	}
	err := a.compiler.Compile(ctx, job, func(w io.Writer) error {
		return StreamRecords(w, records)
	})
	if err != nil {
		return err
	}

	if err := a.validateIndex(staging, final, records); err != nil {
		return err
	}

	numPDFs, err := NumPDFs(ctx, a.modelInfoBinary, job.ModelPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(staging, NumPDFsName), []byte(fmt.Sprintf("%d\n", numPDFs)), 0o644); err != nil {
		return fmt.Errorf("write pdf count: %w", err)
	}

	copies := map[string]string{
		lang.WordsPath():       "words.txt",
		lang.PhonesPath():      "phones.txt",
		lang.DisambigIntPath(): "disambig.int",
	}
	for src, name := range copies {
		if err := fileutil.CopyFileVerified(src, filepath.Join(staging, name)); err != nil {
			return fmt.Errorf("copy %s into table: %w", name, err)
		}
	}
	return nil
}

// validateIndex checks that the compiler indexed every requested utterance
// and nothing else, then rewrites index paths from the staging directory to
// the final location so the index stays valid after the rename.
func (a *Assembler) validateIndex(staging, final string, records []normalize.Record) error {
	indexPath := filepath.Join(staging, IndexName)
	entries, err := readIndexFile(indexPath)
	if err != nil {
		return services.Wrap(services.ErrPartialTable, "graphs", "index", "", err)
	}

	indexed := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		indexed[e.ID] = struct{}{}
	}
	var missing []string
	for _, rec := range records {
		if _, ok := indexed[rec.ID]; !ok {
			missing = append(missing, rec.ID)
		}
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrPartialTable, "graphs", "index",
			fmt.Sprintf("%d of %d utterances missing from index (first: %s)",
				len(missing), len(records), missing[0]), nil)
	}
	if len(entries) != len(records) {
		return services.Wrap(services.ErrPartialTable, "graphs", "index",
			fmt.Sprintf("index holds %d entries for %d utterances", len(entries), len(records)), nil)
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s:%s\n", e.ID, filepath.Join(final, ArchiveName), e.Offset)
	}
	if err := os.WriteFile(indexPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("rewrite index: %w", err)
	}
	return nil
}

// indexEntry is one line of a script-file index: an utterance ID and the
// archive position its graph starts at.
type indexEntry struct {
	ID     string
	Path   string
	Offset string
}

func readIndexFile(path string) ([]indexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	var entries []indexEntry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("index line %d: expected \"<id> <path>:<offset>\", got %q", lineNo, line)
		}
		archive, offset, ok := strings.Cut(fields[1], ":")
		if !ok {
			return nil, fmt.Errorf("index line %d: location %q carries no offset", lineNo, fields[1])
		}
		entries = append(entries, indexEntry{ID: fields[0], Path: archive, Offset: offset})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return entries, nil
}
