package journal_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"subjectsort/internal/journal"
	"subjectsort/internal/testsupport"
)

func TestOpenCreatesSchemaAndRoundTripsRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	run, err := store.StartRun(ctx, "run-uuid-1", cfg.Paths.SourceDir, 3, 2)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected run ID to be assigned")
	}
	if run.Status != journal.RunRunning {
		t.Fatalf("expected running status, got %q", run.Status)
	}
	if run.UUID != "run-uuid-1" {
		t.Fatalf("unexpected run uuid: %q", run.UUID)
	}
	if run.FinishedAt != nil {
		t.Fatal("expected unfinished run")
	}

	records := []*journal.FileRecord{
		{RunID: run.ID, Path: "/in/数学试卷.pdf", Subject: "数学", Reason: "filename", Status: journal.FileMoved, FinalPath: "/out/数学/数学试卷.pdf", DurationMS: 12},
		{RunID: run.ID, Path: "/in/homework.docx", Subject: "数学", Reason: "content", Status: journal.FileMoved, FinalPath: "/out/数学/homework.docx", DurationMS: 840},
		{RunID: run.ID, Path: "/in/broken.zip", Status: journal.FileFailed, ErrorMessage: "archive unreadable", ErrorKind: "external_tool"},
	}
	for _, rec := range records {
		if err := store.RecordFile(ctx, rec); err != nil {
			t.Fatalf("RecordFile failed: %v", err)
		}
		if rec.ID == 0 {
			t.Fatal("expected file record ID to be assigned")
		}
	}

	if err := store.FinishRun(ctx, run.ID, journal.RunCompleted, 2, 1, ""); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	fetched, err := store.RunByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunByID failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected run to exist")
	}
	if fetched.Status != journal.RunCompleted {
		t.Fatalf("expected completed status, got %q", fetched.Status)
	}
	if fetched.Processed != 2 || fetched.Failed != 1 {
		t.Fatalf("unexpected counters: processed=%d failed=%d", fetched.Processed, fetched.Failed)
	}
	if fetched.FinishedAt == nil {
		t.Fatal("expected finished timestamp")
	}
	if fetched.Duration() < 0 {
		t.Fatalf("expected non-negative duration, got %v", fetched.Duration())
	}

	files, err := store.RunFiles(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunFiles failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 file records, got %d", len(files))
	}
	if files[0].Path != "/in/数学试卷.pdf" || files[2].Status != journal.FileFailed {
		t.Fatalf("unexpected file ordering: %#v", files)
	}
	if files[2].ErrorKind != "external_tool" {
		t.Fatalf("unexpected error kind: %q", files[2].ErrorKind)
	}

	failures, err := store.RunFiles(ctx, run.ID, journal.FileFailed)
	if err != nil {
		t.Fatalf("RunFiles filtered failed: %v", err)
	}
	if len(failures) != 1 || failures[0].Path != "/in/broken.zip" {
		t.Fatalf("unexpected failures: %#v", failures)
	}

	totals, err := store.SubjectTotals(ctx, run.ID)
	if err != nil {
		t.Fatalf("SubjectTotals failed: %v", err)
	}
	if totals["数学"] != 2 {
		t.Fatalf("unexpected totals: %v", totals)
	}
	if _, ok := totals[""]; ok {
		t.Fatalf("failed files must not contribute to totals: %v", totals)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	run, err := first.StartRun(context.Background(), "run-uuid-2", cfg.Paths.SourceDir, 1, 1)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := testsupport.MustOpenJournal(t, cfg)
	fetched, err := second.RunByID(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("RunByID after reopen: %v", err)
	}
	if fetched == nil || fetched.UUID != "run-uuid-2" {
		t.Fatalf("expected persisted run after reopen, got %#v", fetched)
	}
}

func TestRecentRunsOrdersNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		run, err := store.StartRun(ctx, fmt.Sprintf("uuid-%d", i), cfg.Paths.SourceDir, i, 1)
		if err != nil {
			t.Fatalf("StartRun %d failed: %v", i, err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("expected newest first, got %d then %d", runs[0].ID, runs[1].ID)
	}
}

func TestRecordFileValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	if err := store.RecordFile(ctx, nil); err == nil {
		t.Fatal("expected error for nil record")
	}
	if err := store.RecordFile(ctx, &journal.FileRecord{Path: "/in/a.txt", Status: journal.FileMoved}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestPruneOlderThanKeepsRunningRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	finished := testsupport.StartRun(t, store, "uuid-finished", 1)
	if err := store.FinishRun(ctx, finished.ID, journal.RunCompleted, 1, 0, ""); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	running := testsupport.StartRun(t, store, "uuid-running", 1)

	pruned, err := store.PruneOlderThan(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PruneOlderThan failed: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned run, got %d", pruned)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != running.ID {
		t.Fatalf("expected only running run to survive, got %#v", runs)
	}
}

func TestCheckHealthReportsHealthyDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %#v", health)
	}
	if store.Path() == "" {
		t.Fatal("expected journal path")
	}
}
