package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"reelscribe/internal/services"
)

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger = NewComponentLogger(logger, "worker")
	logger.Info("job leased", String(FieldJobID, "job-1"), Int("attempts", 2))

	line := buf.String()
	if !strings.Contains(line, "[worker]") {
		t.Fatalf("missing component: %q", line)
	}
	if !strings.Contains(line, "job leased") {
		t.Fatalf("missing message: %q", line)
	}
	if !strings.Contains(line, "job_id=job-1") || !strings.Contains(line, "attempts=2") {
		t.Fatalf("missing attrs: %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected info suppressed at warn level, got %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected warn emitted, got %q", buf.String())
	}
}

func TestJSONHandlerKeys(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl))

	logger.Info("hello", String("k", "v"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("parse json log: %v", err)
	}
	if payload["msg"] != "hello" {
		t.Fatalf("expected msg key, got %v", payload)
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl))

	ctx := services.WithJobID(context.Background(), "job-9")
	ctx = services.WithWorkspaceID(ctx, "ws-1")
	ctx = services.WithStage(ctx, "transcribe")

	WithContext(ctx, logger).Info("ping")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("parse json log: %v", err)
	}
	if payload[FieldJobID] != "job-9" || payload[FieldWorkspaceID] != "ws-1" || payload[FieldStage] != "transcribe" {
		t.Fatalf("missing context fields: %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
