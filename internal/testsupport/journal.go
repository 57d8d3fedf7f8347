package testsupport

import (
	"context"
	"testing"

	"subjectsort/internal/config"
	"subjectsort/internal/journal"
)

// MustOpenJournal opens a journal.Store for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StartRun creates a running journal entry for tests using the provided
// store.
func StartRun(t testing.TB, store *journal.Store, uuid string, total int) *journal.Run {
	t.Helper()

	run, err := store.StartRun(context.Background(), uuid, "/tmp/source", total, 2)
	if err != nil {
		t.Fatalf("store.StartRun: %v", err)
	}
	return run
}
