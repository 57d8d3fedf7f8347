// Package scratch removes leftover extraction directories from the work
// directory. Extraction cleans up after itself; these helpers catch what a
// killed process left behind.
package scratch

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subjectsort/internal/extract"
	"subjectsort/internal/logging"
)

// DefaultMaxAge is how long a scratch directory may sit before startup
// cleanup treats it as abandoned. Extraction holds its directories for
// seconds, so a generous cutoff never races a live run.
const DefaultMaxAge = 24 * time.Hour

// CleanResult contains the outcome of a cleanup pass.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes scratch directories older than maxAge. Only
// directories carrying an extraction prefix are touched; the journal and
// anything else sharing the work directory stay put.
func CleanStale(workDir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return result
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: workDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() || !hasScratchPrefix(entry.Name()) {
			continue
		}

		dirPath := filepath.Join(workDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("stale scratch directory not removed",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check work_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"))
			}
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale scratch directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())))
		}
	}

	return result
}

func hasScratchPrefix(name string) bool {
	for _, prefix := range extract.ScratchPrefixes() {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
