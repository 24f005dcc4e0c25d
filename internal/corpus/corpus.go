// Package corpus reads the spoken-reading text corpus: one utterance per
// line, the first whitespace-delimited token being the utterance ID and the
// remainder the prompt the reader was shown.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"lectern/internal/services"
)

// Utterance is one corpus record. Prompt words are NFC-normalized so they
// compare byte-wise against lexicon and symbol-table entries.
type Utterance struct {
	ID     string
	Prompt []string
}

// Text returns the prompt as a single space-joined string.
func (u Utterance) Text() string {
	return strings.Join(u.Prompt, " ")
}

// ReadFile loads a corpus from disk. See Read.
func ReadFile(path string) ([]Utterance, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedCorpus, "corpus", "open", path, err)
	}
	defer file.Close()
	return Read(file)
}

// Read parses a corpus stream, preserving input order. Blank lines are
// rejected: a line that cannot contribute an utterance ID fails the whole
// run. Duplicate IDs are rejected because the graph table is keyed by ID.
func Read(r io.Reader) ([]Utterance, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var utterances []Utterance
	seen := make(map[string]int)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := norm.NFC.String(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil, services.Wrap(services.ErrMalformedCorpus, "corpus", "",
				fmt.Sprintf("line %d has no utterance id", lineNo), nil)
		}
		id := fields[0]
		if prev, ok := seen[id]; ok {
			return nil, services.Wrap(services.ErrMalformedCorpus, "corpus", "",
				fmt.Sprintf("duplicate utterance id %q on lines %d and %d", id, prev, lineNo), nil)
		}
		seen[id] = lineNo
		utterances = append(utterances, Utterance{ID: id, Prompt: fields[1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrMalformedCorpus, "corpus", "read", "", err)
	}
	if len(utterances) == 0 {
		return nil, services.Wrap(services.ErrMalformedCorpus, "corpus", "", "corpus is empty", nil)
	}
	return utterances, nil
}
