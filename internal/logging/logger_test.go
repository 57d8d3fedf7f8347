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
	"time"

	"subjectsort/internal/services"
)

func TestConsoleHandlerRendersComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	NewComponentLogger(logger, "scheduler").Info("worker added",
		Int("live", 3),
		String(FieldSubject, "数学"),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO scheduler: worker added") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "live=3") || !strings.Contains(line, "subject=数学") {
		t.Fatalf("expected attrs in line: %q", line)
	}
}

func TestConsoleHandlerSuppressesBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	logger.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestNewJSONFormatWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("classified", String(FieldSubject, "物理"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("parse json log line %q: %v", data, err)
	}
	if record["msg"] != "classified" {
		t.Fatalf("unexpected msg field: %v", record["msg"])
	}
	if record["subject"] != "物理" {
		t.Fatalf("unexpected subject field: %v", record["subject"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	ctx := services.WithRunID(context.Background(), "run-9")
	ctx = services.WithStage(ctx, "classifying")
	WithContext(ctx, logger).Info("request sent")

	line := buf.String()
	if !strings.Contains(line, "run_id=run-9") || !strings.Contains(line, "stage=classifying") {
		t.Fatalf("expected context fields in line: %q", line)
	}
}

func TestCleanupOldLogsPrunesMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "run-1.log")
	recent := filepath.Join(dir, "run-2.log")
	keep := filepath.Join(dir, LogFileName)
	for _, path := range []string{old, recent, keep} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(keep, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	CleanupOldLogs(NewNop(), dir, "*.log", 7, keep)

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected %s pruned, stat err=%v", old, err)
	}
	if _, err := os.Stat(recent); err != nil {
		t.Fatalf("expected %s kept: %v", recent, err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("expected excluded %s kept: %v", keep, err)
	}
}
