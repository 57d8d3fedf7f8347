// Package mover files classified documents into per-subject folders without
// ever overwriting or losing data.
//
// Each destination name is claimed with an exclusive create before the file
// moves, so concurrent workers can never race onto the same name. Collisions
// probe name_1, name_2, ... until a free name claims. Same-volume moves
// rename over the claim; cross-volume moves fall back to a verified copy and
// remove the source only after the copy checks out. Any failure releases the
// claim and leaves the source untouched.
package mover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"subjectsort/internal/fileutil"
	"subjectsort/internal/logging"
	"subjectsort/internal/services"
	"subjectsort/internal/textutil"
)

// maxCollisionProbes bounds the rename probe loop.
const maxCollisionProbes = 9999

// Mover places files under targetRoot/<label>.
type Mover struct {
	targetRoot string
	logger     *slog.Logger
}

// Option configures a Mover.
type Option func(*Mover)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mover) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates a Mover rooted at targetRoot.
func New(targetRoot string, opts ...Option) *Mover {
	m := &Mover{
		targetRoot: targetRoot,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PrepareFolders creates the subject folders up front so an empty run still
// leaves the target layout in place.
func (m *Mover) PrepareFolders(labels []string) error {
	for _, label := range labels {
		dir := m.subjectDir(label)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, "mover", "prepare folders",
				fmt.Sprintf("cannot create %s", dir), err)
		}
	}
	return nil
}

// Move relocates source into the label's folder and returns the final path.
// On any error the source file is left where it was.
func (m *Mover) Move(ctx context.Context, source, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := os.Stat(source); err != nil {
		return "", services.Wrap(services.ErrNotFound, "mover", "move",
			"source file missing", err)
	}

	dir := m.subjectDir(label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "mover", "move",
			fmt.Sprintf("cannot create %s", dir), err)
	}

	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		// Dotfiles parse as pure extension; treat the whole name as the stem.
		stem, ext = base, ""
	}

	for attempt := 0; attempt <= maxCollisionProbes; attempt++ {
		candidate := filepath.Join(dir, candidateName(stem, ext, attempt))
		claimed, err := claimTarget(candidate)
		if err != nil {
			return "", services.Wrap(services.ErrConfiguration, "mover", "move",
				fmt.Sprintf("cannot claim %s", candidate), err)
		}
		if !claimed {
			continue
		}

		if err := m.relocate(source, candidate); err != nil {
			// Release the claim; the source has not been touched.
			_ = os.Remove(candidate)
			return "", err
		}

		m.logger.Info("file moved",
			logging.String("file", base),
			logging.String(logging.FieldSubject, label),
			logging.String("final", filepath.Base(candidate)))
		return candidate, nil
	}

	return "", services.Wrap(services.ErrValidation, "mover", "move",
		fmt.Sprintf("no free name for %s after %d probes", base, maxCollisionProbes), nil)
}

func (m *Mover) subjectDir(label string) string {
	safe := textutil.SanitizeFileName(label)
	if safe == "" {
		safe = "_"
	}
	return filepath.Join(m.targetRoot, safe)
}

// relocate renames when source and destination share a volume and falls
// back to copy-then-delete across volumes. The destination is the caller's
// claimed placeholder, so the rename only ever replaces our own file.
func (m *Mover) relocate(source, destination string) error {
	err := os.Rename(source, destination)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return services.Wrap(services.ErrConfiguration, "mover", "move",
			"rename failed", err)
	}

	if err := fileutil.CopyFileVerified(source, destination); err != nil {
		return services.Wrap(services.ErrConfiguration, "mover", "move",
			"cross-volume copy failed", err)
	}
	if err := os.Remove(source); err != nil {
		// The caller unwinds the copy on error, so a retry starts from the
		// intact source instead of stacking duplicates next to it.
		return services.Wrap(services.ErrConfiguration, "mover", "move",
			fmt.Sprintf("copied to %s but could not remove the source", destination), err)
	}
	return nil
}

// claimTarget creates the destination exclusively. A false return means the
// name is taken.
func claimTarget(path string) (bool, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	return true, file.Close()
}

func candidateName(stem, ext string, attempt int) string {
	if attempt == 0 {
		return stem + ext
	}
	return fmt.Sprintf("%s_%d%s", stem, attempt, ext)
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}
