package grammar

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Epsilon is the empty-label symbol used on annotation-only arcs.
const Epsilon = "<eps>"

// Arc is one weighted transition of a textual acceptor. Weight holds relative
// odds until Normalize converts it to a log-semiring cost.
type Arc struct {
	From     int
	To       int
	InLabel  string
	OutLabel string
	Weight   float64
}

// Final marks a final state. PrematureEnd finals carry odds like arcs;
// the true end state carries a literal cost (see Literal).
type Final struct {
	State   int
	Weight  float64
	Literal bool
}

// word tracks the acceptor states bracketing one prompt word.
type word struct {
	label string
	start int
	final int
}

// promptFST builds the acceptor for one prompt word by word. State 0 is the
// initial state.
type promptFST struct {
	words      []word
	arcs       map[int][]Arc
	finals     map[int]Final
	stateCount int
	homophones Homophones
}

func newPromptFST(h Homophones) *promptFST {
	return &promptFST{
		arcs:       map[int][]Arc{0: nil},
		finals:     make(map[int]Final),
		stateCount: 1,
		homophones: h,
	}
}

// addNextWord appends the next prompt word, chaining its start state to the
// previous word's final state.
func (p *promptFST) addNextWord(label string) {
	start := 0
	if len(p.words) > 0 {
		start = p.words[len(p.words)-1].final
	}
	p.words = append(p.words, word{label: label, start: start, final: p.newState()})
}

func (p *promptFST) newState() int {
	state := p.stateCount
	p.stateCount++
	p.arcs[state] = nil
	return state
}

// addArc appends an arc unless the source state already has an outgoing arc
// whose input label equals or is a homophone of the new one. Recipes rely on
// this to keep the acceptor deterministic, so insertion order is load-bearing:
// correct paths go in before miscue paths.
func (p *promptFST) addArc(from, to int, inLabel, outLabel string, weight float64) {
	for _, existing := range p.arcs[from] {
		if existing.InLabel == inLabel {
			return
		}
		if inLabel != Epsilon && p.homophones.Equivalent(existing.InLabel, inLabel) {
			return
		}
	}
	p.arcs[from] = append(p.arcs[from], Arc{From: from, To: to, InLabel: inLabel, OutLabel: outLabel, Weight: weight})
}

// addAlternateArc is addArc minus the homophone check, for paths that
// deliberately accept a phonetically-equivalent alternate. Exact duplicate
// input labels are still rejected.
func (p *promptFST) addAlternateArc(from, to int, inLabel, outLabel string, weight float64) {
	for _, existing := range p.arcs[from] {
		if existing.InLabel == inLabel {
			return
		}
	}
	p.arcs[from] = append(p.arcs[from], Arc{From: from, To: to, InLabel: inLabel, OutLabel: outLabel, Weight: weight})
}

func (p *promptFST) addFinal(state int, weight float64, literal bool) {
	if _, ok := p.finals[state]; ok {
		return
	}
	p.finals[state] = Final{State: state, Weight: weight, Literal: literal}
}

// isDeterministic reports whether any state has two outgoing arcs with the
// same input label. Epsilon counts like any other label.
func (p *promptFST) isDeterministic() bool {
	for _, arcs := range p.arcs {
		seen := make(map[string]struct{}, len(arcs))
		for _, arc := range arcs {
			if _, ok := seen[arc.InLabel]; ok {
				return false
			}
			seen[arc.InLabel] = struct{}{}
		}
	}
	return true
}

// build normalizes the per-state odds into costs and freezes the acceptor.
func (p *promptFST) build(id string) *Grammar {
	g := &Grammar{ID: id}

	states := make([]int, 0, len(p.arcs))
	for state := range p.arcs {
		states = append(states, state)
	}
	sort.Ints(states)

	for _, state := range states {
		total := 0.0
		for _, arc := range p.arcs[state] {
			total += arc.Weight
		}
		if final, ok := p.finals[state]; ok && !final.Literal {
			total += final.Weight
		}

		for _, arc := range p.arcs[state] {
			arc.Weight = -math.Log(arc.Weight / total)
			g.Arcs = append(g.Arcs, arc)
		}
		if final, ok := p.finals[state]; ok {
			if !final.Literal {
				final.Weight = -math.Log(final.Weight / total)
			}
			g.Finals = append(g.Finals, Final{State: final.State, Weight: final.Weight, Literal: true})
		}
	}
	return g
}

// Grammar is a synthesized acceptor in cost form, ready for normalization
// and batch compilation.
type Grammar struct {
	ID     string
	Arcs   []Arc
	Finals []Final
}

// Deterministic reports whether no state has two outgoing arcs sharing an
// input label. The built-in recipes always produce deterministic grammars;
// an external synthesizer may not.
func (g *Grammar) Deterministic() bool {
	seen := make(map[[2]string]struct{}, len(g.Arcs))
	for _, arc := range g.Arcs {
		key := [2]string{strconv.Itoa(arc.From), arc.InLabel}
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

// Text renders the grammar in OpenFST text format: arc lines
// "src dst ilabel olabel cost" followed by final-state lines "state cost".
func (g *Grammar) Text() string {
	var b strings.Builder
	for _, arc := range g.Arcs {
		fmt.Fprintf(&b, "%d %d %s %s %s\n", arc.From, arc.To, arc.InLabel, arc.OutLabel, formatWeight(arc.Weight))
	}
	for _, final := range g.Finals {
		fmt.Fprintf(&b, "%d %s\n", final.State, formatWeight(final.Weight))
	}
	return b.String()
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'g', -1, 64)
}
