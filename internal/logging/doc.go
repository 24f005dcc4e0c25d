// Package logging assembles the structured slog loggers used across the
// pipeline.
//
// It owns the console/JSON handler plumbing and exposes context-aware helpers
// so stage code automatically tags log lines with run IDs, stage names, and
// utterance IDs. Prefer these constructors over hand-rolled slog setup so
// every component emits data with the same shape.
package logging
