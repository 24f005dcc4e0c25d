// Package services defines shared utilities consumed by the pipeline stages
// and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and utterance IDs for
//     logging correlation.
//   - Structured error markers plus the Wrap helper that classify failures
//     (malformed corpus, missing precondition, unknown symbol, external tool,
//     partial table) consistently across the pipeline.
//
// Use these helpers when wiring new stage logic so operational behaviour
// stays uniform across the pipeline.
package services
