// Package services defines shared utilities consumed by the classification
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, task paths, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     handling consistent across extraction, classification, and moves.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across components.
package services
