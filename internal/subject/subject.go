// Package subject defines the closed label set used for classification
// outcomes and the coercion rules that keep every result inside it.
package subject

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultLabels lists the stock subject labels in match-priority order.
// The final entry is the catch-all for files nothing else claims.
var DefaultLabels = []string{"语文", "数学", "英语", "物理", "化学", "生物"}

// DefaultFallback is the catch-all label applied when classification cannot
// produce a confident answer.
const DefaultFallback = "未知"

// Set is an ordered closed set of subject labels. The fallback label is
// always a member and always sorts last for matching purposes.
type Set struct {
	labels   []string
	folded   []string
	fallback string
}

// New builds a Set from the provided labels plus the fallback. Empty and
// duplicate entries are dropped; the fallback is appended when absent so the
// set always contains a catch-all.
func New(labels []string, fallback string) Set {
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = DefaultFallback
	}

	cleaned := make([]string, 0, len(labels)+1)
	seen := make(map[string]struct{}, len(labels)+1)
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		key := foldString(label)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, label)
	}
	if _, ok := seen[foldString(fallback)]; !ok {
		cleaned = append(cleaned, fallback)
	}

	folded := make([]string, len(cleaned))
	for i, label := range cleaned {
		folded[i] = foldString(label)
	}

	return Set{labels: cleaned, folded: folded, fallback: fallback}
}

// Default returns the stock label set.
func Default() Set {
	return New(DefaultLabels, DefaultFallback)
}

// Labels returns a copy of the member labels in set order.
func (s Set) Labels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Fallback returns the catch-all label.
func (s Set) Fallback() string {
	return s.fallback
}

// Len reports the number of member labels, fallback included.
func (s Set) Len() int {
	return len(s.labels)
}

// Contains reports whether the input matches a member label after trimming
// and case folding.
func (s Set) Contains(input string) bool {
	_, ok := s.member(input)
	return ok
}

// Canonicalize maps arbitrary input onto a member label. Inputs that match a
// member (ignoring surrounding whitespace and letter case) return the
// canonical spelling; everything else collapses to the fallback.
func (s Set) Canonicalize(input string) string {
	if label, ok := s.member(input); ok {
		return label
	}
	return s.fallback
}

// ScanFirst finds the member label whose first occurrence appears earliest in
// the supplied content. Ties on position resolve in set order. The boolean is
// false when no member label occurs at all.
func (s Set) ScanFirst(content string) (string, bool) {
	folded := foldString(content)
	best := -1
	bestLabel := ""
	for i, needle := range s.folded {
		if needle == "" {
			continue
		}
		idx := strings.Index(folded, needle)
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best {
			best = idx
			bestLabel = s.labels[i]
		}
	}
	if best < 0 {
		return "", false
	}
	return bestLabel, true
}

func (s Set) member(input string) (string, bool) {
	key := foldString(strings.TrimSpace(input))
	if key == "" {
		return "", false
	}
	for i, folded := range s.folded {
		if folded == key {
			return s.labels[i], true
		}
	}
	return "", false
}

func foldString(value string) string {
	return cases.Fold().String(value)
}
