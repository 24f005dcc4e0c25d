// Package grammar synthesizes miscue-tolerant grammars: weighted finite-state
// acceptors that accept a reading prompt together with plausible reading
// errors (hesitations and noise, skipped words, repetitions, jumps, truncated
// pronunciations, premature stops).
//
// Transition weights are expressed as relative odds and normalized per state
// so outgoing probabilities sum to one, then converted to log-semiring costs
// (a cost is the negative logarithm of the probability). Homophone-aware arc
// deduplication keeps the acceptor deterministic: no state carries two
// outgoing arcs whose input labels could sound alike.
//
// The built-in synthesizer implements the construction natively; a
// command-backed synthesizer delegates to an external tool per utterance.
// Both satisfy Synthesizer, so the pipeline can swap or stub them.
package grammar
