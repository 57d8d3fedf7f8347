package preflight

import (
	"context"

	"subjectsort/internal/config"
	"subjectsort/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Source directory", cfg.Paths.SourceDir))
	results = append(results, CheckDirectoryAccess("Target directory", cfg.Paths.TargetDir))
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))

	results = append(results, CheckAPI(ctx, cfg))

	if cfg.Features.OCR {
		results = append(results, CheckOCRLanguage(ctx, cfg))
	}

	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// MissingRequired filters binary statuses down to non-optional tools that
// did not resolve.
func MissingRequired(statuses []deps.Status) []deps.Status {
	var missing []deps.Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
