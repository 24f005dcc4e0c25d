package symtab

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"lectern/internal/services"
)

// Language bundles the language-directory artifacts every downstream stage
// reads: the word and phone tables, the disambiguation-symbol set, and the
// path of the disambiguated lexicon transducer.
type Language struct {
	Dir    string
	Words  *Table
	Phones *Table

	// Disambig lists the reserved disambiguation symbols (#0, #1, ...) the
	// builder inserted. The set is forwarded verbatim to the normalizer and
	// the compiler, never recomputed.
	Disambig []string
	// WordDisambig is the subset of Disambig present in the word table, in
	// file order. The normalizer draws epsilon replacements from it.
	WordDisambig []string
}

// LexiconFSTPath returns the disambiguated lexicon transducer location.
func (l *Language) LexiconFSTPath() string {
	return filepath.Join(l.Dir, "L_disambig.fst")
}

// WordsPath returns the word symbol table location.
func (l *Language) WordsPath() string {
	return filepath.Join(l.Dir, "words.txt")
}

// PhonesPath returns the phone symbol table location.
func (l *Language) PhonesPath() string {
	return filepath.Join(l.Dir, "phones.txt")
}

// DisambigIntPath returns the integer phone-level disambiguation list the
// compiler consumes.
func (l *Language) DisambigIntPath() string {
	return filepath.Join(l.Dir, "phones", "disambig.int")
}

// Load reads a language directory produced by the builder. An incomplete
// directory is an external-tool failure: the builder contract was not met.
func Load(dir string) (*Language, error) {
	lang := &Language{Dir: dir}

	var err error
	if lang.Words, err = ReadTableFile(filepath.Join(dir, "words.txt")); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "lang", "load words.txt", "", err)
	}
	if lang.Phones, err = ReadTableFile(filepath.Join(dir, "phones.txt")); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "lang", "load phones.txt", "", err)
	}
	if lang.Disambig, err = readSymbolList(filepath.Join(dir, "phones", "disambig.txt")); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "lang", "load disambig.txt", "", err)
	}
	if len(lang.Disambig) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "lang", "",
			"builder emitted no disambiguation symbols", nil)
	}
	for _, sym := range lang.Disambig {
		if _, ok := lang.Words.ID(sym); ok {
			lang.WordDisambig = append(lang.WordDisambig, sym)
		}
	}
	if len(lang.WordDisambig) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "lang", "",
			"no disambiguation symbol is present in the word table", nil)
	}
	if _, err := os.Stat(lang.LexiconFSTPath()); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "lang", "",
			"builder did not emit L_disambig.fst", err)
	}

	return lang, nil
}

func readSymbolList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var symbols []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		sym := strings.TrimSpace(scanner.Text())
		if sym == "" {
			continue
		}
		symbols = append(symbols, sym)
	}
	return symbols, scanner.Err()
}
