package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subjectsort/internal/config"
	"subjectsort/internal/preflight"
)

func newCheckCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, the classification API, and external tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			return runCheck(cmd, cfg)
		},
	}
}

func runCheck(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	ready := true

	for _, line := range renderSectionHeader("Environment", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range preflight.RunAll(ctx, cfg) {
		kind := statusOK
		if !result.Passed {
			kind = statusError
			ready = false
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}

	if statuses := preflight.CheckSystemDeps(cfg); len(statuses) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("External Tools", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, status := range statuses {
			kind := statusOK
			detail := status.Detail
			switch {
			case status.Available:
				if detail == "" {
					detail = status.Command
				}
			case status.Optional:
				kind = statusWarn
				detail += " (optional)"
			default:
				kind = statusError
				ready = false
			}
			fmt.Fprintln(out, renderStatusLine(status.Name, kind, detail, colorize))
		}
	}

	fmt.Fprintln(out)
	if !ready {
		return fmt.Errorf("environment is not ready")
	}
	fmt.Fprintln(out, "Environment is ready.")
	return nil
}
