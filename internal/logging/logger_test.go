package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	return slog.New(newConsoleHandler(buf, levelVar))
}

func TestConsoleLineFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelInfo)

	logger.Info("record promoted", String(FieldBookID, "B002V00TOO"))

	line := buf.String()
	if !strings.Contains(line, " INFO record promoted book_id=B002V00TOO") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("expected newline-terminated record, got %q", line)
	}
}

func TestConsoleComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewComponentLogger(newTestLogger(&buf, slog.LevelInfo), "resolver")

	logger.Info("outcome cached")

	if !strings.Contains(buf.String(), " INFO resolver: outcome cached") {
		t.Fatalf("unexpected line: %q", buf.String())
	}
	if strings.Contains(buf.String(), "component=") {
		t.Fatalf("component must be lifted out of the attr tail: %q", buf.String())
	}
}

func TestConsoleQuotesAwkwardValues(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelInfo)

	logger.Warn("lookup failed",
		String(FieldQuery, "final empire"),
		Error(errors.New("no route to host")))

	line := buf.String()
	if !strings.Contains(line, `query="final empire"`) {
		t.Fatalf("expected quoted query, got %q", line)
	}
	if !strings.Contains(line, `error="no route to host"`) {
		t.Fatalf("expected quoted error, got %q", line)
	}
}

func TestConsoleGroupsFlattenToDottedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelInfo).WithGroup("request")

	logger.Info("handled", String("id", "abc123"))

	if !strings.Contains(buf.String(), "request.id=abc123") {
		t.Fatalf("unexpected line: %q", buf.String())
	}
}

func TestConsoleBoundAttrsRenderOnEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelInfo).With(String(FieldRequestID, "req-1"))

	logger.Info("first")
	logger.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, "request_id=req-1") {
			t.Fatalf("expected bound attr on line %q", line)
		}
	}
}

func TestConsoleLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelWarn)

	logger.Info("ignored")
	if buf.Len() != 0 {
		t.Fatalf("expected info suppressed, got %q", buf.String())
	}

	logger.Warn("kept")
	if !strings.Contains(buf.String(), " WARN kept") {
		t.Fatalf("unexpected line: %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected unsupported format to be rejected")
	}
}
