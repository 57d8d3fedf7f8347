package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subjectsort/internal/config"
)

func newConfigCommand(cmdCtx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(cmdCtx))
	configCmd.AddCommand(newConfigShowCommand(cmdCtx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the API key (or export SUBJECTSORT_API_KEY) before sorting.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagPath string
			if cmdCtx.configFlag != nil {
				flagPath = strings.TrimSpace(*cmdCtx.configFlag)
			}
			cfg, path, exists, err := config.Load(flagPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			workers := "auto"
			if cfg.Workers.Count > 0 {
				workers = strconv.Itoa(cfg.Workers.Count)
			}
			extensions := "all"
			if len(cfg.Scan.Extensions) > 0 {
				extensions = strings.Join(cfg.Scan.Extensions, ", ")
			}

			rows := [][]string{
				{"Source directory", cfg.Paths.SourceDir},
				{"Target directory", cfg.Paths.TargetDir},
				{"Work directory", cfg.Paths.WorkDir},
				{"Log directory", cfg.Paths.LogDir},
				{"API base URL", cfg.API.BaseURL},
				{"API model", cfg.API.Model},
				{"API key set", yesNo(cfg.API.Key != "")},
				{"Subjects", strings.Join(cfg.Subjects.Labels, ", ")},
				{"Fallback subject", cfg.Subjects.Fallback},
				{"Extensions", extensions},
				{"Include hidden files", yesNo(cfg.Scan.IncludeHidden)},
				{"Workers", workers},
				{"OCR", yesNo(cfg.Features.OCR)},
				{"Audio", yesNo(cfg.Features.Audio)},
				{"Archives", yesNo(cfg.Features.Archive)},
				{"Notifications", yesNo(cfg.Notifications.NtfyTopic != "")},
				{"Log format", cfg.Logging.Format},
				{"Log level", cfg.Logging.Level},
				{"Retention days", strconv.Itoa(cfg.Logging.RetentionDays)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"SETTING", "VALUE"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
