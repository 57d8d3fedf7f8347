package main

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"subjectsort/internal/config"
	"subjectsort/internal/journal"
	"subjectsort/internal/testsupport"
)

func TestHistoryCommandListsRunsAndFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Features = config.Features{}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	ctx := context.Background()
	store := testsupport.MustOpenJournal(t, cfg)
	run, err := store.StartRun(ctx, "run-uuid", cfg.Paths.SourceDir, 2, 3)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	moved := &journal.FileRecord{
		RunID:     run.ID,
		Path:      filepath.Join(cfg.Paths.SourceDir, "作文范文.docx"),
		Subject:   "语文",
		Reason:    "filename",
		Status:    journal.FileMoved,
		FinalPath: filepath.Join(cfg.Paths.TargetDir, "语文", "作文范文.docx"),
	}
	failed := &journal.FileRecord{
		RunID:        run.ID,
		Path:         filepath.Join(cfg.Paths.SourceDir, "broken.pdf"),
		Subject:      "未知",
		Reason:       "content",
		Status:       journal.FileFailed,
		ErrorMessage: "target full",
		ErrorKind:    "external_tool",
	}
	for _, rec := range []*journal.FileRecord{moved, failed} {
		if err := store.RecordFile(ctx, rec); err != nil {
			t.Fatalf("RecordFile: %v", err)
		}
	}
	if err := store.FinishRun(ctx, run.ID, journal.RunCompleted, 1, 1, ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, stdout, "completed")
	requireContains(t, stdout, cfg.Paths.SourceDir)

	stdout, _, err = runCLI(t, []string{"history", strconv.FormatInt(run.ID, 10)}, configPath)
	if err != nil {
		t.Fatalf("history %d: %v", run.ID, err)
	}
	requireContains(t, stdout, "作文范文.docx")
	requireContains(t, stdout, "语文")
	requireContains(t, stdout, "target full")
}

func TestHistoryCommandWithoutRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Features = config.Features{}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	stdout, _, err := runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, stdout, "No runs recorded yet.")
}

func TestHistoryCommandRejectsBadRunID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Features = config.Features{}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	_, _, err := runCLI(t, []string{"history", "abc"}, configPath)
	if err == nil {
		t.Fatal("expected an error for a non-numeric run id")
	}
	requireContains(t, err.Error(), "invalid run id")
}
