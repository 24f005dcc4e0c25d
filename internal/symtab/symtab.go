// Package symtab loads the symbol tables and disambiguation metadata emitted
// by the language-directory builder. Tables are read-only after construction
// and safe to share across normalization workers without locking.
package symtab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"lectern/internal/services"
)

// Epsilon is the conventional symbol for the empty label.
const Epsilon = "<eps>"

// Table is a bijective mapping between symbols and dense non-negative
// integers, as found in words.txt and phones.txt.
type Table struct {
	ids   map[string]int64
	names map[int64]string
}

// ReadTable parses "symbol id" lines into a Table. Duplicate symbols or IDs
// make the table non-bijective and are rejected.
func ReadTable(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	t := &Table{ids: make(map[string]int64), names: make(map[int64]string)}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("symbol table line %d: expected \"symbol id\", got %q", lineNo, line)
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("symbol table line %d: bad id %q", lineNo, fields[1])
		}
		if _, ok := t.ids[fields[0]]; ok {
			return nil, fmt.Errorf("symbol table line %d: duplicate symbol %q", lineNo, fields[0])
		}
		if _, ok := t.names[id]; ok {
			return nil, fmt.Errorf("symbol table line %d: duplicate id %d", lineNo, id)
		}
		t.ids[fields[0]] = id
		t.names[id] = fields[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read symbol table: %w", err)
	}
	if len(t.ids) == 0 {
		return nil, fmt.Errorf("symbol table is empty")
	}
	return t, nil
}

// ReadTableFile loads a symbol table from disk.
func ReadTableFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbol table %s: %w", path, err)
	}
	defer file.Close()
	t, err := ReadTable(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ID returns the integer for a symbol.
func (t *Table) ID(symbol string) (int64, bool) {
	id, ok := t.ids[symbol]
	return id, ok
}

// Lookup is ID with the miss converted to an UnknownSymbol pipeline error.
func (t *Table) Lookup(symbol string) (int64, error) {
	id, ok := t.ids[symbol]
	if !ok {
		return 0, services.Wrap(services.ErrUnknownSymbol, "", "",
			fmt.Sprintf("symbol %q has no table entry", symbol), nil)
	}
	return id, nil
}

// Symbol returns the symbol for an integer.
func (t *Table) Symbol(id int64) (string, bool) {
	name, ok := t.names[id]
	return name, ok
}

// Len reports the number of entries.
func (t *Table) Len() int {
	return len(t.ids)
}
