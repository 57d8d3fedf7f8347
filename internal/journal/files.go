package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const fileColumns = "id, run_id, path, subject, reason, status, final_path, error_message, error_kind, duration_ms, recorded_at"

// RecordFile appends the outcome for one file to its run. The record's ID
// and RecordedAt fields are populated on success.
func (s *Store) RecordFile(ctx context.Context, rec *FileRecord) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	if rec.RunID == 0 {
		return errors.New("record missing run id")
	}
	rec.RecordedAt = time.Now().UTC()

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO run_files (
            run_id, path, subject, reason, status, final_path,
            error_message, error_kind, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Path,
		nullableString(rec.Subject),
		nullableString(rec.Reason),
		rec.Status,
		nullableString(rec.FinalPath),
		nullableString(rec.ErrorMessage),
		nullableString(rec.ErrorKind),
		rec.DurationMS,
		rec.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert file record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// RunFiles returns a run's file records filtered by status set (or all
// records when no status is provided), ordered by insertion.
func (s *Store) RunFiles(ctx context.Context, runID int64, statuses ...FileStatus) ([]*FileRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + fileColumns + ` FROM run_files WHERE run_id = ?`
	orderClause := ` ORDER BY id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ensureContext(ctx), baseQuery+orderClause, runID)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, 0, len(statuses)+1)
		args = append(args, runID)
		for _, status := range statuses {
			args = append(args, status)
		}
		query := baseQuery + ` AND status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ensureContext(ctx), query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var records []*FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SubjectTotals counts a run's moved files grouped by subject label.
func (s *Store) SubjectTotals(ctx context.Context, runID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT subject, COUNT(1) FROM run_files WHERE run_id = ? AND status = ? GROUP BY subject`,
		runID,
		FileMoved,
	)
	if err != nil {
		return nil, fmt.Errorf("subject totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var subject sql.NullString
		var count int
		if err := rows.Scan(&subject, &count); err != nil {
			return nil, err
		}
		totals[subject.String] = count
	}
	return totals, rows.Err()
}

func scanFile(scanner interface{ Scan(dest ...any) error }) (*FileRecord, error) {
	var (
		id           int64
		runID        int64
		path         string
		subject      sql.NullString
		reason       sql.NullString
		statusStr    string
		finalPath    sql.NullString
		errorMessage sql.NullString
		errorKind    sql.NullString
		durationMS   sql.NullInt64
		recordedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&path,
		&subject,
		&reason,
		&statusStr,
		&finalPath,
		&errorMessage,
		&errorKind,
		&durationMS,
		&recordedRaw,
	); err != nil {
		return nil, err
	}

	rec := &FileRecord{
		ID:           id,
		RunID:        runID,
		Path:         path,
		Subject:      subject.String,
		Reason:       reason.String,
		Status:       FileStatus(statusStr),
		FinalPath:    finalPath.String,
		ErrorMessage: errorMessage.String,
		ErrorKind:    errorKind.String,
		DurationMS:   durationMS.Int64,
	}
	if recorded, err := parseTimeString(recordedRaw.String); err == nil {
		rec.RecordedAt = recorded
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
