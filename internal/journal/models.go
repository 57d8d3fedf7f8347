package journal

import "time"

// RunStatus describes the lifecycle of a sorting run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
)

// FileStatus describes the terminal state of one file within a run.
type FileStatus string

const (
	FileMoved   FileStatus = "moved"
	FileFailed  FileStatus = "failed"
	FileSkipped FileStatus = "skipped"
)

// Run records one invocation of the sorter over a source directory.
type Run struct {
	ID           int64
	UUID         string
	SourceDir    string
	Status       RunStatus
	Total        int
	Processed    int
	Failed       int
	Workers      int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Duration returns the wall-clock span of the run. Unfinished runs measure
// up to now.
func (r *Run) Duration() time.Duration {
	if r == nil || r.StartedAt.IsZero() {
		return 0
	}
	end := time.Now().UTC()
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	if end.Before(r.StartedAt) {
		return 0
	}
	return end.Sub(r.StartedAt)
}

// FileRecord captures the outcome for a single file. RunID references the
// journal row of the owning run, not its UUID.
type FileRecord struct {
	ID           int64
	RunID        int64
	Path         string
	Subject      string
	Reason       string
	Status       FileStatus
	FinalPath    string
	ErrorMessage string
	ErrorKind    string
	DurationMS   int64
	RecordedAt   time.Time
}

// DatabaseHealth reports journal diagnostics for the check command.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	Error            string
}
