// Package normalize converts textual per-utterance grammars into the
// integer-symbol, disambiguated form the batched graph compiler consumes.
//
// Two transformations happen per grammar: epsilon-labeled arcs that sit at
// non-initial, non-final positions are redirected to a word-level
// disambiguation symbol (bare epsilons do not survive determinization), and
// every symbolic label is mapped to its integer via the word table. A label
// with no table entry fails that utterance with an UnknownSymbol error; the
// normalizer holds no per-utterance state, so sibling utterances are never
// corrupted.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"lectern/internal/grammar"
	"lectern/internal/symtab"
)

// Record is one normalized grammar, identified by its utterance ID and ready
// to stream into the compiler. Text is integer-label OpenFST text.
type Record struct {
	ID   string
	Text string
}

// Normalizer integerizes grammars against a fixed language directory. Safe
// for concurrent use: the symbol tables are read-only.
type Normalizer struct {
	words      *symtab.Table
	disambigID int64
	epsilonID  int64
}

// New builds a Normalizer from the language directory's word table and
// disambiguation metadata. The first word-level disambiguation symbol serves
// as the epsilon replacement.
func New(lang *symtab.Language) (*Normalizer, error) {
	if len(lang.WordDisambig) == 0 {
		return nil, fmt.Errorf("language directory carries no word-level disambiguation symbol")
	}
	disambigID, err := lang.Words.Lookup(lang.WordDisambig[0])
	if err != nil {
		return nil, err
	}
	epsilonID, err := lang.Words.Lookup(symtab.Epsilon)
	if err != nil {
		return nil, err
	}
	return &Normalizer{words: lang.Words, disambigID: disambigID, epsilonID: epsilonID}, nil
}

// Normalize produces the integer form of one grammar. Arc order is preserved
// so identical inputs yield identical bytes.
func (n *Normalizer) Normalize(g *grammar.Grammar) (Record, error) {
	finals := make(map[int]struct{}, len(g.Finals))
	for _, final := range g.Finals {
		finals[final.State] = struct{}{}
	}

	var b strings.Builder
	for _, arc := range g.Arcs {
		inID, err := n.lookupLabel(g.ID, arc.InLabel)
		if err != nil {
			return Record{}, err
		}
		outID, err := n.lookupLabel(g.ID, arc.OutLabel)
		if err != nil {
			return Record{}, err
		}
		if inID == n.epsilonID && !n.resolvable(arc, finals) {
			inID = n.disambigID
		}
		fmt.Fprintf(&b, "%d %d %d %d %s\n", arc.From, arc.To, inID, outID, formatWeight(arc.Weight))
	}
	for _, final := range g.Finals {
		fmt.Fprintf(&b, "%d %s\n", final.State, formatWeight(final.Weight))
	}
	return Record{ID: g.ID, Text: b.String()}, nil
}

// resolvable reports whether an epsilon input label can stay bare: epsilons
// leaving the initial state or entering a final state do not break
// determinization of the composed graph.
func (n *Normalizer) resolvable(arc grammar.Arc, finals map[int]struct{}) bool {
	if arc.From == 0 {
		return true
	}
	_, toFinal := finals[arc.To]
	return toFinal
}

func (n *Normalizer) lookupLabel(uttID, label string) (int64, error) {
	id, err := n.words.Lookup(label)
	if err != nil {
		return 0, fmt.Errorf("utterance %s: %w", uttID, err)
	}
	return id, nil
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'g', -1, 64)
}
