package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelscan/internal/services"
)

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "reelscan.log")

	logger, err := New(Options{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("capture finished", Args(String(FieldJobID, "job-1"))...)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "capture finished") {
		t.Fatalf("log output missing message: %q", string(data))
	}
	if !strings.Contains(string(data), "job_id=job-1") {
		t.Fatalf("log output missing job attribute: %q", string(data))
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestJSONHandlerFieldNames(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, levelVar))

	logger.Info("transcription complete", Args(
		String(FieldProvider, "whisper"),
		Int("sentences", 4),
	)...)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log record: %v", err)
	}
	if record["msg"] != "transcription complete" {
		t.Fatalf("msg = %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("level = %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("ts field missing")
	}
	if record["provider"] != "whisper" {
		t.Fatalf("provider = %v", record["provider"])
	}
}

func TestPrettyHandlerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := NewComponentLogger(slog.New(newPrettyHandler(&buf, levelVar)), "pipeline")

	logger.Info("stage started", Args(String(FieldStage, "audio-extraction"))...)

	line := buf.String()
	if !strings.Contains(line, "pipeline: stage started") {
		t.Fatalf("component prefix missing: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be folded into prefix: %q", line)
	}
	if !strings.Contains(line, "stage=audio-extraction") {
		t.Fatalf("stage attribute missing: %q", line)
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, levelVar))

	logger.Info("should be dropped")
	logger.Warn("should be written")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Fatalf("info record not filtered: %q", out)
	}
	if !strings.Contains(out, "should be written") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestWithContextAddsJobMetadata(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, levelVar))

	ctx := services.WithJobID(context.Background(), "9f2c")
	ctx = services.WithStage(ctx, "transcription")
	ctx = services.WithProvider(ctx, "scribe")

	WithContext(ctx, logger).Info("provider attempt")

	line := buf.String()
	for _, want := range []string{"job_id=9f2c", "stage=transcription", "provider=scribe"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled at any level")
	}
}
