// Package rewrite resolves internal cross-references and image links against
// the new section layout and the asset index, and produces rewritten notes.
package rewrite

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/eniileme/nuclinotion/internal/assets"
	"github.com/eniileme/nuclinotion/internal/models"
)

var (
	linkRe     = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	wikiLinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	imageRe    = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
)

// BuildLinkMapping maps every note's original filename and resolved title
// to its new "<sectionLabel>/<filename>" path. Collisions resolve
// last-write-wins in section order, then note order within a section.
func BuildLinkMapping(sections []*models.Section) map[string]string {
	mapping := make(map[string]string)
	for _, s := range sections {
		for _, n := range s.Notes {
			newPath := path.Join(s.Label, n.Filename)
			mapping[n.Filename] = newPath
			mapping[n.Title] = newPath
		}
	}
	return mapping
}

// BuildImageMapping maps every resolvable image source to its packaged
// asset path "assets/<noteId-or-unassigned>/<basename>".
func BuildImageMapping(sections []*models.Section, index *models.AssetIndex) map[string]string {
	mapping := make(map[string]string)
	for _, s := range sections {
		for _, n := range s.Notes {
			for _, img := range n.Images {
				asset := assets.Find(img.Src, n.NoteID, index)
				if asset == nil {
					continue
				}
				dir := "assets/unassigned"
				if n.NoteID != "" {
					dir = "assets/" + n.NoteID
				}
				mapping[img.Src] = path.Join(dir, filepath.Base(asset.Path))
			}
		}
	}
	return mapping
}

// Rewrite produces one RewrittenNote per input note, in section order. Links
// and images whose targets resolve are rewritten to inline-link form at the
// mapped path; external links and unresolved references are left
// byte-for-byte unchanged, the latter counted per note.
func Rewrite(sections []*models.Section, index *models.AssetIndex) []*models.RewrittenNote {
	linkMapping := BuildLinkMapping(sections)
	imageMapping := BuildImageMapping(sections, index)

	var out []*models.RewrittenNote
	for _, s := range sections {
		for _, n := range s.Notes {
			content, links, missedLinks := rewriteLinks(n.Content, linkMapping)
			content, images, missedImages := rewriteImages(content, imageMapping)
			out = append(out, &models.RewrittenNote{
				Note:             n,
				NewPath:          path.Join(s.Label, n.Filename),
				NewContent:       content,
				RewrittenLinks:   links,
				RewrittenImages:  images,
				UnresolvedLinks:  missedLinks,
				UnresolvedImages: missedImages,
			})
		}
	}
	return out
}

// rewriteLinks handles inline links first, then wiki links. Image syntax is
// skipped here; the image pass owns it.
func rewriteLinks(content string, mapping map[string]string) (string, int, int) {
	rewritten, unresolved := 0, 0

	content = replaceMatches(content, linkRe, func(match string, start int, groups []string) string {
		if start > 0 && content[start-1] == '!' {
			return match
		}
		text, href := groups[0], groups[1]
		if strings.HasPrefix(href, "http") || strings.HasPrefix(href, "mailto:") {
			return match
		}
		if newHref, ok := mapping[href]; ok {
			rewritten++
			return fmt.Sprintf("[%s](%s)", text, newHref)
		}
		unresolved++
		return match
	})

	content = replaceMatches(content, wikiLinkRe, func(match string, _ int, groups []string) string {
		text := groups[0]
		if newHref, ok := mapping[text]; ok {
			rewritten++
			return fmt.Sprintf("[%s](%s)", text, newHref)
		}
		unresolved++
		return match
	})

	return content, rewritten, unresolved
}

func rewriteImages(content string, mapping map[string]string) (string, int, int) {
	rewritten, unresolved := 0, 0
	content = replaceMatches(content, imageRe, func(match string, _ int, groups []string) string {
		alt, src := groups[0], groups[1]
		if newSrc, ok := mapping[src]; ok {
			rewritten++
			return fmt.Sprintf("![%s](%s)", alt, newSrc)
		}
		unresolved++
		return match
	})
	return content, rewritten, unresolved
}

// replaceMatches rewrites every match of re, giving the callback the full
// match, its start offset, and the capture groups.
func replaceMatches(content string, re *regexp.Regexp, fn func(match string, start int, groups []string) string) string {
	matches := re.FindAllStringSubmatchIndex(content, -1)
	if matches == nil {
		return content
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		groups := make([]string, 0, len(m)/2-1)
		for g := 1; g < len(m)/2; g++ {
			groups = append(groups, content[m[2*g]:m[2*g+1]])
		}
		b.WriteString(content[last:m[0]])
		b.WriteString(fn(content[m[0]:m[1]], m[0], groups))
		last = m[1]
	}
	b.WriteString(content[last:])
	return b.String()
}
