package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"subjectsort/internal/cascade"
	"subjectsort/internal/classify"
	"subjectsort/internal/config"
	"subjectsort/internal/extract"
	"subjectsort/internal/journal"
	"subjectsort/internal/logging"
	"subjectsort/internal/mover"
	"subjectsort/internal/notifications"
	"subjectsort/internal/preflight"
	"subjectsort/internal/scheduler"
	"subjectsort/internal/scratch"
)

const runLockName = "subjectsort.lock"

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Classify every file in the source directory and sort it into subject folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			return runSort(cmd, cfg)
		},
	}
}

func runSort(cmd *cobra.Command, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.NewForDir(cfg.Paths.LogDir, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "*.log", cfg.Logging.RetentionDays,
		filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	scratch.CleanStale(cfg.Paths.WorkDir, scratch.DefaultMaxAge, logger)

	runLock := flock.New(filepath.Join(cfg.Paths.LogDir, runLockName))
	locked, err := runLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another subjectsort run is active (lock: %s)", runLock.Path())
	}
	defer func() {
		if err := runLock.Unlock(); err != nil {
			logger.Warn("run lock not released", logging.Error(err))
		}
	}()

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	if failed := preflight.Failed(preflight.RunAll(ctx, cfg)); len(failed) > 0 {
		for _, result := range failed {
			fmt.Fprintln(out, renderStatusLine(result.Name, statusError, result.Detail, colorize))
		}
		return fmt.Errorf("environment is not ready; fix the checks above or see 'subjectsort check'")
	}
	if missing := preflight.MissingRequired(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
		for _, status := range missing {
			fmt.Fprintln(out, renderStatusLine(status.Name, statusError, status.Detail, colorize))
		}
		return fmt.Errorf("required tools are missing; install them or disable the features that need them")
	}

	paths, err := scanSource(cfg)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		logger.Info("source directory has no eligible files",
			logging.String("source_dir", cfg.Paths.SourceDir))
		fmt.Fprintln(out, "No files to sort.")
		return nil
	}

	store, err := journal.Open(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("journal not closed", logging.Error(err))
		}
	}()

	subjects := cfg.SubjectSet()
	fileMover := mover.New(cfg.Paths.TargetDir, mover.WithLogger(logger))
	if err := fileMover.PrepareFolders(subjects.Labels()); err != nil {
		return fmt.Errorf("prepare subject folders: %w", err)
	}

	gate := scheduler.NewGate()
	client := classify.NewClient(classify.ConfigFrom(cfg), subjects, classify.WithLogger(logger))
	extractor := extract.New(extract.ConfigFrom(cfg), extract.WithLogger(logger))
	chain := cascade.New(client, extractor, subjects, cfg.Features,
		cascade.WithGate(gate),
		cascade.WithLogger(logger))
	pool := scheduler.New(chain, fileMover,
		scheduler.WithJournal(store),
		scheduler.WithLogger(logger),
		scheduler.WithWorkerCount(cfg.Workers.Count),
		scheduler.WithSourceDir(cfg.Paths.SourceDir),
		scheduler.WithGate(gate))

	notifier := notifications.NewService(cfg)
	notify := func(err error) {
		if err != nil {
			logger.Debug("notification not sent", logging.Error(err))
		}
	}

	workers, _ := scheduler.Workers(cfg.Workers.Count, len(paths))
	fmt.Fprintf(out, "Sorting %d files from %s with %d workers\n", len(paths), cfg.Paths.SourceDir, workers)
	notify(notifier.NotifyRunStarted(ctx, len(paths), workers))

	summary, err := pool.Run(ctx, paths)
	if err != nil {
		notify(notifier.NotifyError(context.Background(), err, "run"))
		return err
	}

	printSummary(out, summary)
	// Completion outlives a cancelled run context so the final state still
	// reaches the notification topic.
	notify(notifier.NotifyRunCompleted(context.Background(), summary.Processed, summary.Failed, summary.Skipped, summary.Duration))

	pruneJournal(store, cfg, logger)

	if summary.Aborted {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("run aborted")
	}
	return nil
}

// scanSource lists the files eligible for a run: regular files directly
// under the source directory, filtered by the extension whitelist and the
// hidden-file toggle, in name order.
func scanSource(cfg *config.Config) ([]string, error) {
	entries, err := os.ReadDir(cfg.Paths.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	allowed := make(map[string]struct{}, len(cfg.Scan.Extensions))
	for _, ext := range cfg.Scan.Extensions {
		allowed[ext] = struct{}{}
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !cfg.Scan.IncludeHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[extract.NormalizeExt(filepath.Ext(name))]; !ok {
				continue
			}
		}
		paths = append(paths, filepath.Join(cfg.Paths.SourceDir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

func printSummary(w io.Writer, summary scheduler.Summary) {
	if len(summary.Subjects) > 0 {
		labels := make([]string, 0, len(summary.Subjects))
		for label := range summary.Subjects {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		rows := make([][]string, 0, len(labels))
		for _, label := range labels {
			rows = append(rows, []string{label, strconv.Itoa(summary.Subjects[label])})
		}
		fmt.Fprintln(w, renderTableWithFooter(
			[]string{"SUBJECT", "FILES"},
			rows,
			[]string{"TOTAL", strconv.Itoa(summary.Processed)},
			[]columnAlignment{alignLeft, alignRight},
		))
	}

	line := fmt.Sprintf("Sorted %d of %d files (%d failed, %d skipped) in %s",
		summary.Processed, summary.Total, summary.Failed, summary.Skipped,
		summary.Duration.Round(time.Second))
	if summary.PeakWorkers > summary.BaseWorkers {
		line += fmt.Sprintf(" with %d workers (peak %d)", summary.BaseWorkers, summary.PeakWorkers)
	} else {
		line += fmt.Sprintf(" with %d workers", summary.BaseWorkers)
	}
	if summary.Aborted {
		line += " [aborted]"
	}
	fmt.Fprintln(w, line)
}

func pruneJournal(store *journal.Store, cfg *config.Config, logger *slog.Logger) {
	if cfg.Logging.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -cfg.Logging.RetentionDays)
	pruned, err := store.PruneOlderThan(context.Background(), cutoff)
	if err != nil {
		logger.Warn("journal prune failed", logging.Error(err))
		return
	}
	if pruned > 0 {
		logger.Info("pruned old journal runs", logging.Int64("runs", pruned))
	}
}
