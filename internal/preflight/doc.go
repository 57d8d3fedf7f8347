// Package preflight provides readiness checks for the classification
// endpoint, the configured directories, and the external tools content
// extraction shells out to.
//
// These checks run in two contexts:
//   - The run command calls RunAll before scheduling any files, so a doomed
//     run fails in seconds instead of part way through a directory.
//   - The check command renders RunAll and CheckSystemDeps together as the
//     environment report.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
