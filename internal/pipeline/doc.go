// Package pipeline orchestrates a full graph-compilation run: corpus
// reading, lexicon extension, language directory construction, per-utterance
// grammar synthesis and normalization, and batched graph compilation into a
// published table under the model directory.
//
// Each run works inside a run-scoped workspace that is removed when the run
// ends, success or failure. The published graph table is the only output
// that survives.
package pipeline
