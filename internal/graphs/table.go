package graphs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lectern/internal/services"
)

// Entry is one graph in a published table.
type Entry struct {
	ID      string
	Archive string
	Offset  int64
}

// Table is a published graph table as seen by readers.
type Table struct {
	Dir     string
	NumPDFs int
	Entries []Entry
}

// ReadTable loads a published table's index and pdf count. A directory with
// no index is reported as a missing precondition; an index that cannot be
// parsed, or one whose sidecars are absent, marks the table as partial.
func ReadTable(dir string) (*Table, error) {
	indexPath := filepath.Join(dir, IndexName)
	if _, err := os.Stat(indexPath); err != nil {
		return nil, services.Wrap(services.ErrPreconditionMissing, "graphs", "read table",
			fmt.Sprintf("no index at %s", indexPath), err)
	}

	raw, err := readIndexFile(indexPath)
	if err != nil {
		return nil, services.Wrap(services.ErrPartialTable, "graphs", "read table", "", err)
	}

	table := &Table{Dir: dir, Entries: make([]Entry, 0, len(raw))}
	for _, e := range raw {
		offset, convErr := strconv.ParseInt(e.Offset, 10, 64)
		if convErr != nil {
			return nil, services.Wrap(services.ErrPartialTable, "graphs", "read table",
				fmt.Sprintf("utterance %s: offset %q", e.ID, e.Offset), nil)
		}
		table.Entries = append(table.Entries, Entry{ID: e.ID, Archive: e.Path, Offset: offset})
	}

	numRaw, err := os.ReadFile(filepath.Join(dir, NumPDFsName))
	if err != nil {
		return nil, services.Wrap(services.ErrPartialTable, "graphs", "read table", "pdf count sidecar", err)
	}
	table.NumPDFs, err = strconv.Atoi(strings.TrimSpace(string(numRaw)))
	if err != nil {
		return nil, services.Wrap(services.ErrPartialTable, "graphs", "read table",
			fmt.Sprintf("pdf count %q", strings.TrimSpace(string(numRaw))), nil)
	}

	for _, name := range []string{ArchiveName, "words.txt", "phones.txt"} {
		if _, statErr := os.Stat(filepath.Join(dir, name)); statErr != nil {
			return nil, services.Wrap(services.ErrPartialTable, "graphs", "read table",
				fmt.Sprintf("missing %s", name), statErr)
		}
	}
	return table, nil
}
