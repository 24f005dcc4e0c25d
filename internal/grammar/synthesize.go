package grammar

import (
	"context"
	"errors"
)

// Weights carries the relative odds of miscue transitions. FinalState is a
// literal log-semiring weight applied to the true end state.
type Weights struct {
	Correct      float64
	Rubbish      float64
	Skip         float64
	Repeat       float64
	JumpForward  float64
	JumpBackward float64
	Truncation   float64
	PrematureEnd float64
	FinalState   float64
}

// Synthesizer produces one miscue-tolerant grammar per utterance. Implementations
// must be safe for concurrent use: the pipeline calls Synthesize from a worker
// pool.
type Synthesizer interface {
	Synthesize(ctx context.Context, id string, prompt []string) (*Grammar, error)
}

// Options configures the built-in synthesizer.
type Options struct {
	Weights    Weights
	Homophones Homophones
	// RubbishLabel is accepted anywhere the grammar permits unmodeled speech.
	RubbishLabel string
	// SkipLabel annotates skipped-word paths on the output side.
	SkipLabel string
	// TruncationSuffix, when non-empty, enables truncated-pronunciation arcs:
	// a prompt word w gains a self-arc consuming w+suffix. Requires the
	// lexicon extender to emit matching truncated entries.
	TruncationSuffix string
}

// Builtin synthesizes grammars in process using the native construction.
type Builtin struct {
	opts Options
}

// NewBuiltin validates options and returns a ready synthesizer.
func NewBuiltin(opts Options) (*Builtin, error) {
	if opts.RubbishLabel == "" {
		return nil, errors.New("rubbish label required")
	}
	if opts.SkipLabel == "" {
		return nil, errors.New("skip label required")
	}
	w := opts.Weights
	for _, odds := range []float64{w.Correct, w.Rubbish, w.Skip, w.Repeat, w.JumpForward, w.JumpBackward, w.Truncation, w.PrematureEnd} {
		if odds <= 0 {
			return nil, errors.New("miscue weights must be positive odds")
		}
	}
	if w.FinalState < 0 {
		return nil, errors.New("final state weight must not be negative")
	}
	return &Builtin{opts: opts}, nil
}

// Synthesize builds the acceptor for one prompt. The recipes always consume a
// label where possible and avoid duplicate input labels per state, so the
// result stays deterministic and fast to compose.
func (b *Builtin) Synthesize(_ context.Context, id string, prompt []string) (*Grammar, error) {
	fst := newPromptFST(b.opts.Homophones)
	for _, label := range prompt {
		fst.addNextWord(label)
	}

	if len(fst.words) == 0 {
		// Nothing but noise can be said against an empty prompt.
		fst.addArc(0, 0, b.opts.RubbishLabel, b.opts.RubbishLabel, b.opts.Weights.Rubbish)
		fst.addFinal(0, b.opts.Weights.FinalState, true)
		return fst.build(id), nil
	}

	b.addCorrectPaths(fst)
	b.addRubbishPaths(fst)
	b.addSkipPaths(fst)
	b.addRepeatPaths(fst)
	b.addJumpPaths(fst)
	if b.opts.TruncationSuffix != "" {
		b.addTruncationPaths(fst)
	}
	b.addPrematureEndPaths(fst)

	return fst.build(id), nil
}

// addCorrectPaths adds the prompt itself, plus arcs accepting each word's
// homophones: a reader saying a phonetically-equivalent word has not misread.
func (b *Builtin) addCorrectPaths(fst *promptFST) {
	for _, w := range fst.words {
		fst.addArc(w.start, w.final, w.label, w.label, b.opts.Weights.Correct)
		for _, alt := range b.opts.Homophones.Alternates(w.label) {
			fst.addAlternateArc(w.start, w.final, alt, alt, b.opts.Weights.Correct)
		}
	}
	fst.addFinal(fst.words[len(fst.words)-1].final, b.opts.Weights.FinalState, true)
}

func (b *Builtin) addRubbishPaths(fst *promptFST) {
	for _, w := range fst.words {
		fst.addArc(w.start, w.start, b.opts.RubbishLabel, b.opts.RubbishLabel, b.opts.Weights.Rubbish)
	}
	last := fst.words[len(fst.words)-1]
	fst.addArc(last.final, last.final, b.opts.RubbishLabel, b.opts.RubbishLabel, b.opts.Weights.Rubbish)
}

// addSkipPaths lets the reader jump over one word. Skips of repeated words
// are not modeled so a skip is always notated at the end of a repeated
// sequence.
func (b *Builtin) addSkipPaths(fst *promptFST) {
	words := fst.words
	for i := 0; i+1 < len(words); i++ {
		w, next := words[i], words[i+1]
		if w.label == next.label {
			continue
		}
		skipState := fst.newState()
		fst.addArc(w.start, skipState, next.label, b.opts.SkipLabel, b.opts.Weights.Skip)
		fst.addArc(skipState, next.final, Epsilon, next.label, b.opts.Weights.Correct)
	}
	last := words[len(words)-1]
	fst.addArc(last.start, last.final, Epsilon, b.opts.SkipLabel, b.opts.Weights.Skip)
}

// addRepeatPaths lets the reader say a word again. Repeats inside an already
// repeated sequence are not modeled, mirroring the skip convention.
func (b *Builtin) addRepeatPaths(fst *promptFST) {
	words := fst.words
	for i := 0; i+1 < len(words); i++ {
		w, next := words[i], words[i+1]
		if w.label == next.label {
			continue
		}
		fst.addArc(w.final, w.final, w.label, w.label, b.opts.Weights.Repeat)
	}
	last := words[len(words)-1]
	fst.addArc(last.final, last.final, last.label, last.label, b.opts.Weights.Repeat)
}

// addJumpPaths models losing the place in the prompt: forward jumps over
// several words, and backward jumps that restart an earlier word. Single-word
// jumps are already covered by skip and repeat paths.
func (b *Builtin) addJumpPaths(fst *promptFST) {
	words := fst.words
	for i := range words {
		for j := i + 2; j < len(words); j++ {
			fst.addArc(words[i].start, words[j].final, words[j].label, words[j].label, b.opts.Weights.JumpForward)
		}
		for j := 0; j < i; j++ {
			fst.addArc(words[i].final, words[j].final, words[j].label, words[j].label, b.opts.Weights.JumpBackward)
		}
	}
}

// addTruncationPaths models an incomplete pronunciation followed by another
// attempt: consuming the truncated variant keeps the reader at the word's
// start state.
func (b *Builtin) addTruncationPaths(fst *promptFST) {
	for _, w := range fst.words {
		truncated := w.label + b.opts.TruncationSuffix
		fst.addArc(w.start, w.start, truncated, truncated, b.opts.Weights.Truncation)
	}
}

// addPrematureEndPaths lets the utterance stop at any word boundary.
func (b *Builtin) addPrematureEndPaths(fst *promptFST) {
	fst.addFinal(0, b.opts.Weights.PrematureEnd, false)
	for i := 0; i+1 < len(fst.words); i++ {
		fst.addFinal(fst.words[i].final, b.opts.Weights.PrematureEnd, false)
	}
}

var _ Synthesizer = (*Builtin)(nil)
