// Package textutil provides text processing utilities for excerpt cleaning
// and filename sanitization.
//
// The primary use cases are:
//   - Normalizing extracted file content into compact excerpts safe to send
//     to the classification endpoint
//   - Bounding excerpt length without splitting multi-byte runes
//   - Sanitizing labels and path segments for safe filesystem use
//
// Cleaning keeps letters, digits, underscores, and whitespace (CJK included),
// drops everything else, and collapses whitespace runs to single spaces.
package textutil
