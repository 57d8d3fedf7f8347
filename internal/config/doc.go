// Package config loads, normalizes, and validates subjectsort configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SUBJECTSORT_API_KEY. The Config type centralizes every knob the CLI and
// pipeline need, so source/target directories, the classification endpoint,
// and feature toggles are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a well-formed label set, and clear validation errors.
package config
