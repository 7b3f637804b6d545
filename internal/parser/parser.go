// Package parser turns one Markdown file into a structured note: front
// matter, headings, links, images, and the derived note identifier.
package parser

import (
	"regexp"
	"strings"

	"github.com/eniileme/nuclinotion/internal/models"
)

var (
	headingRe  = regexp.MustCompile(`(?m)^(#+)\s+(.*)$`)
	linkRe     = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	wikiLinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	imageRe    = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	noteIDRe   = regexp.MustCompile(`(?i)([a-f0-9]{6,})\.md$`)
	mdExtRe    = regexp.MustCompile(`(?i)\.md$`)
)

// Parse builds a Note from the file's relative path and raw text.
// Malformed front matter never fails; it degrades to "no front matter".
func Parse(relativePath, rawText string) *models.Note {
	fm, body := splitFrontMatter(rawText)

	return &models.Note{
		Filename:          relativePath,
		Title:             deriveTitle(fm, relativePath),
		Content:           body,
		NormalizedContent: Normalize(body),
		Tags:              extractTags(fm),
		Headings:          ExtractHeadings(body),
		Links:             ExtractLinks(body),
		Images:            ExtractImages(body),
		NoteID:            ExtractNoteID(relativePath),
		FrontMatter:       fm,
	}
}

// splitFrontMatter separates a leading front-matter block (between lines of
// exactly "---") from the body. The block is a restricted key:value format:
// one mapping per line, optional surrounding quotes stripped, a bracketed
// comma list becomes an ordered string list. Blank lines and lines starting
// with "#" inside the block are ignored. Without a well-formed block, the
// mapping is empty and the content stays untouched.
func splitFrontMatter(content string) (map[string]interface{}, string) {
	fm := map[string]interface{}{}

	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t\r") != "---" {
		return fm, content
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\r") == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return fm, content
	}

	for _, line := range lines[1:end] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		colon := strings.Index(trimmed, ":")
		if colon < 0 {
			continue
		}
		key := strings.TrimSpace(trimmed[:colon])
		value := strings.TrimSpace(trimmed[colon+1:])
		value = stripQuotes(value)

		if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
			inner := value[1 : len(value)-1]
			var items []string
			for _, item := range strings.Split(inner, ",") {
				items = append(items, stripAllQuotes(strings.TrimSpace(item)))
			}
			fm[key] = items
		} else {
			fm[key] = value
		}
	}

	body := strings.Join(lines[end+1:], "\n")
	return fm, body
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func stripAllQuotes(s string) string {
	return strings.NewReplacer(`"`, "", `'`, "").Replace(s)
}

// deriveTitle resolves the title: front-matter title/Title key, else the
// filename with the extension stripped and -/_ replaced by spaces.
func deriveTitle(fm map[string]interface{}, relativePath string) string {
	for _, key := range []string{"title", "Title"} {
		if v, ok := fm[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	stem := mdExtRe.ReplaceAllString(relativePath, "")
	return strings.NewReplacer("-", " ", "_", " ").Replace(stem)
}

// extractTags reads the tags/Tags front-matter key: a list or a
// comma-separated string, defaulting to an empty list.
func extractTags(fm map[string]interface{}) []string {
	var raw interface{}
	for _, key := range []string{"tags", "Tags"} {
		if v, ok := fm[key]; ok {
			raw = v
			break
		}
	}

	tags := []string{}
	switch v := raw.(type) {
	case []string:
		tags = append(tags, v...)
	case string:
		if v != "" {
			for _, t := range strings.Split(v, ",") {
				tags = append(tags, strings.TrimSpace(t))
			}
		}
	}
	return tags
}

// ExtractHeadings returns every heading with level, trimmed text, and
// 1-based line number.
func ExtractHeadings(content string) []models.Heading {
	var out []models.Heading
	for _, m := range headingRe.FindAllStringSubmatchIndex(content, -1) {
		level := m[3] - m[2]
		text := strings.TrimSpace(content[m[4]:m[5]])
		out = append(out, models.Heading{
			Level: level,
			Text:  text,
			Line:  lineOf(content, m[0]),
		})
	}
	return out
}

// ExtractLinks returns all inline links followed by all wiki links. The
// ordering matters: the rewriter's mapping collisions resolve in this order.
// A link is internal iff its target starts with neither "http" nor "mailto:".
func ExtractLinks(content string) []models.Link {
	var out []models.Link

	for _, m := range linkRe.FindAllStringSubmatchIndex(content, -1) {
		text := content[m[2]:m[3]]
		href := content[m[4]:m[5]]
		out = append(out, models.Link{
			Text:       text,
			Href:       href,
			IsInternal: isInternal(href),
			Line:       lineOf(content, m[0]),
		})
	}

	for _, m := range wikiLinkRe.FindAllStringSubmatchIndex(content, -1) {
		text := content[m[2]:m[3]]
		out = append(out, models.Link{
			Text:       text,
			Href:       text,
			IsInternal: true,
			IsWikiLink: true,
			Line:       lineOf(content, m[0]),
		})
	}

	return out
}

// ExtractImages returns every ![alt](src) occurrence.
func ExtractImages(content string) []models.Image {
	var out []models.Image
	for _, m := range imageRe.FindAllStringSubmatchIndex(content, -1) {
		out = append(out, models.Image{
			Alt:  content[m[2]:m[3]],
			Src:  content[m[4]:m[5]],
			Line: lineOf(content, m[0]),
		})
	}
	return out
}

// ExtractNoteID returns the trailing run of 6+ hex characters before the
// .md extension, or empty if absent.
func ExtractNoteID(filename string) string {
	m := noteIDRe.FindStringSubmatch(filename)
	if m == nil {
		return ""
	}
	return m[1]
}

func isInternal(href string) bool {
	return !strings.HasPrefix(href, "http") && !strings.HasPrefix(href, "mailto:")
}

// lineOf computes the 1-based line number of a byte offset.
func lineOf(content string, offset int) int {
	return strings.Count(content[:offset], "\n") + 1
}
