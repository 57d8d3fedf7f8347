package textutil

import (
	"strings"
	"unicode"
)

// CleanExcerpt normalizes raw extracted text into a compact excerpt. Letters,
// digits, underscores, and whitespace survive; punctuation, symbols, and
// control characters are dropped. Whitespace runs collapse to a single space
// and the result is trimmed.
func CleanExcerpt(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	pendingSpace := false
	wrote := false
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = wrote
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
			wrote = true
		}
	}
	return b.String()
}

// CollapseWhitespace replaces every whitespace run with a single space and
// trims the ends. Unlike CleanExcerpt it preserves punctuation.
func CollapseWhitespace(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// TruncateRunes bounds value to at most limit runes. Multi-byte runes are
// never split. A non-positive limit returns the empty string.
func TruncateRunes(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for idx := range value {
		if count == limit {
			return value[:idx]
		}
		count++
	}
	return value
}

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename or
// label destined for a path segment. Slashes, backslashes, colons, and
// asterisks become dashes; other unsafe characters are removed.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}
