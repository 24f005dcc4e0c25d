package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"lectern/internal/logging"
	"lectern/internal/services"
)

func TestConsoleHandlerRendersAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("normalized utterances", logging.Int("count", 3), logging.String("corpus", "data/text"))

	line := buf.String()
	for _, want := range []string{"INFO", "normalized utterances", "count=3", "corpus=data/text"} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q missing %q", line, want)
		}
	}
}

func TestJSONHandlerEmitsLowercaseLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("compiler slow", logging.Float64("seconds", 12.5))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if payload["msg"] != "compiler slow" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextStampsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(t.Context(), "run-9")
	ctx = services.WithStage(ctx, "synthesize")
	ctx = services.WithUtteranceID(ctx, "utt001")

	logging.WithContext(ctx, logger).Info("grammar ready")

	line := buf.String()
	for _, want := range []string{"run_id=run-9", "stage=synthesize", "utterance_id=utt001"} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q missing %q", line, want)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("should not panic", logging.Error(nil))
}
