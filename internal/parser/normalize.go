package parser

import (
	"regexp"
	"strings"
)

var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`[^`]+`")
	bareURLRe    = regexp.MustCompile(`https?://\S+`)
	punctRe      = regexp.MustCompile(`[^\w\s]`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
)

// Normalize strips markup from markdown content for vectorization: fenced
// and inline code, bare URLs, and image tags are removed; link and wiki-link
// markup collapses to its display text; remaining punctuation becomes
// spaces; whitespace runs collapse. Pure function: identical output for
// identical input on every call. Lowercasing is the vectorizer's job.
func Normalize(content string) string {
	s := fencedCodeRe.ReplaceAllString(content, "")
	s = inlineCodeRe.ReplaceAllString(s, "")
	s = bareURLRe.ReplaceAllString(s, "")
	s = imageRe.ReplaceAllString(s, "")
	s = linkRe.ReplaceAllString(s, "$1")
	s = wikiLinkRe.ReplaceAllString(s, "$1")
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
