package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"subjectsort/internal/config"
	"subjectsort/internal/journal"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recent sorting runs or the files of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				runID, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid run id %q", args[0])
				}
				return showRunFiles(cmd, cfg, runID)
			}
			return showRecentRuns(cmd, cfg, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs to list")

	return cmd
}

func showRecentRuns(cmd *cobra.Command, cfg *config.Config, limit int) error {
	store, err := journal.Open(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(run.ID, 10),
			string(run.Status),
			run.SourceDir,
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Processed),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Workers),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			formatRunDuration(run),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "STATUS", "SOURCE", "TOTAL", "SORTED", "FAILED", "WORKERS", "STARTED", "DURATION"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignRight},
	))
	return nil
}

func showRunFiles(cmd *cobra.Command, cfg *config.Config, runID int64) error {
	store, err := journal.Open(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	run, err := store.RunByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run %d: %w", runID, err)
	}
	records, err := store.RunFiles(ctx, runID)
	if err != nil {
		return fmt.Errorf("load files for run %d: %w", runID, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %d (%s) from %s: %d total, %d sorted, %d failed, %d workers, %s\n",
		run.ID, run.Status, run.SourceDir, run.Total, run.Processed, run.Failed,
		run.Workers, formatRunDuration(run))
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error: %s\n", run.ErrorMessage)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No file records for this run.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			filepath.Base(rec.Path),
			rec.Subject,
			rec.Reason,
			string(rec.Status),
			fileResult(rec),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"FILE", "SUBJECT", "REASON", "STATUS", "RESULT"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	return nil
}

func fileResult(rec *journal.FileRecord) string {
	switch rec.Status {
	case journal.FileMoved:
		return rec.FinalPath
	case journal.FileFailed:
		return truncateMessage(rec.ErrorMessage, 60)
	default:
		return ""
	}
}

func formatRunDuration(run *journal.Run) string {
	d := run.Duration()
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func truncateMessage(message string, limit int) string {
	runes := []rune(message)
	if len(runes) <= limit {
		return message
	}
	return string(runes[:limit]) + "..."
}
