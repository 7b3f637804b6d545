package section

import (
	"regexp"
	"strings"
)

var (
	labelStripRe    = regexp.MustCompile(`[^A-Za-z0-9\s_-]`)
	whitespaceRunRe = regexp.MustCompile(`\s+`)
	termStripRe     = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)
)

// SanitizeLabel makes a group key filesystem-safe: characters outside
// [A-Za-z0-9 _-] are stripped, whitespace runs become single underscores,
// the result is truncated to 50 characters, with "Untitled" as the
// non-empty fallback.
func SanitizeLabel(label string) string {
	s := labelStripRe.ReplaceAllString(label, "")
	s = whitespaceRunRe.ReplaceAllString(s, "_")
	if len(s) > 50 {
		s = s[:50]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "Untitled"
	}
	return s
}

// GenerateLabel derives a cluster's human-readable label from its top
// centroid terms: the first term's unigram half, special characters
// stripped, title-cased, truncated to 45 characters, falling back to
// "General".
func GenerateLabel(topTerms []string) string {
	if len(topTerms) == 0 {
		return "General"
	}

	first := strings.SplitN(topTerms[0], "_", 2)[0]
	first = strings.TrimSpace(termStripRe.ReplaceAllString(first, ""))
	if first == "" {
		return "General"
	}

	words := strings.Split(first, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	label := strings.Join(words, " ")

	if len(label) > 45 {
		label = label[:45]
	}
	label = strings.TrimSpace(labelStripRe.ReplaceAllString(label, ""))
	if label == "" {
		return "General"
	}
	return label
}
