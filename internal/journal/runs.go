package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = "id, uuid, source_dir, status, total, processed, failed, workers, error_message, started_at, finished_at"

// StartRun inserts a running journal entry for a new invocation.
func (s *Store) StartRun(ctx context.Context, uuid, sourceDir string, total, workers int) (*Run, error) {
	if uuid == "" {
		return nil, errors.New("run uuid is required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (
            uuid, source_dir, status, total, processed, failed, workers, started_at
        ) VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		uuid,
		sourceDir,
		RunRunning,
		total,
		workers,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.RunByID(ctx, id)
}

// FinishRun records the terminal state and counters for a run.
func (s *Store) FinishRun(ctx context.Context, id int64, status RunStatus, processed, failed int, errorMessage string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE runs
         SET status = ?, processed = ?, failed = ?, error_message = ?, finished_at = ?
         WHERE id = ?`,
		status,
		processed,
		failed,
		nullableString(errorMessage),
		timestamp,
		id,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RunByID fetches a run by journal row identifier.
func (s *Store) RunByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RecentRuns returns the newest runs first. A non-positive limit selects a
// default window.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneOlderThan deletes finished runs started before the cutoff. Their file
// records are removed by cascade.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM runs WHERE started_at < ? AND status != ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
		RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           int64
		uuid         string
		sourceDir    string
		statusStr    string
		total        int
		processed    int
		failed       int
		workers      int
		errorMessage sql.NullString
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&uuid,
		&sourceDir,
		&statusStr,
		&total,
		&processed,
		&failed,
		&workers,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		UUID:         uuid,
		SourceDir:    sourceDir,
		Status:       RunStatus(statusStr),
		Total:        total,
		Processed:    processed,
		Failed:       failed,
		Workers:      workers,
		ErrorMessage: errorMessage.String,
	}

	if started, err := parseTimeString(startedRaw.String); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}
