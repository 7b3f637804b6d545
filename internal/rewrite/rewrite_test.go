package rewrite

import (
	"strings"
	"testing"

	"github.com/eniileme/nuclinotion/internal/models"
	"github.com/eniileme/nuclinotion/internal/parser"
)

func sectionOf(label string, notes ...*models.Note) *models.Section {
	return &models.Section{ID: "s", Label: label, Notes: notes}
}

func parsed(filename, content string) *models.Note {
	return parser.Parse(filename, content)
}

func TestBuildLinkMapping_FilenameAndTitle(t *testing.T) {
	n := parsed("budget.md", "---\ntitle: Budget Plan\n---\nbody")
	mapping := BuildLinkMapping([]*models.Section{sectionOf("Finance", n)})

	if mapping["budget.md"] != "Finance/budget.md" {
		t.Errorf("filename mapping = %q", mapping["budget.md"])
	}
	if mapping["Budget Plan"] != "Finance/budget.md" {
		t.Errorf("title mapping = %q", mapping["Budget Plan"])
	}
}

func TestBuildLinkMapping_LastWriteWins(t *testing.T) {
	first := parsed("a.md", "---\ntitle: Shared\n---\nx")
	second := parsed("b.md", "---\ntitle: Shared\n---\ny")
	mapping := BuildLinkMapping([]*models.Section{
		sectionOf("One", first),
		sectionOf("Two", second),
	})
	// The later note (section order, then note order) owns the colliding
	// title key.
	if mapping["Shared"] != "Two/b.md" {
		t.Errorf("colliding title maps to %q, want Two/b.md", mapping["Shared"])
	}
}

func TestRewrite_InternalLinksResolve(t *testing.T) {
	a := parsed("a.md", "See [b note](b.md) and [[B Title]].")
	b := parsed("b.md", "---\ntitle: B Title\n---\ncontent")
	sections := []*models.Section{sectionOf("Alpha", a), sectionOf("Beta", b)}

	out := Rewrite(sections, models.NewAssetIndex())
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	got := out[0]
	if !strings.Contains(got.NewContent, "[b note](Beta/b.md)") {
		t.Errorf("inline link not rewritten: %q", got.NewContent)
	}
	if !strings.Contains(got.NewContent, "[B Title](Beta/b.md)") {
		t.Errorf("wiki link not rewritten: %q", got.NewContent)
	}
	if got.RewrittenLinks != 2 {
		t.Errorf("rewritten links = %d, want 2", got.RewrittenLinks)
	}
	if got.UnresolvedLinks != 0 {
		t.Errorf("unresolved links = %d, want 0", got.UnresolvedLinks)
	}
}

func TestRewrite_ExternalLinksUntouched(t *testing.T) {
	content := "Visit [site](https://example.com) or [mail](mailto:a@b.c)."
	n := parsed("a.md", content)
	out := Rewrite([]*models.Section{sectionOf("S", n)}, models.NewAssetIndex())
	if out[0].NewContent != content {
		t.Errorf("external links changed: %q", out[0].NewContent)
	}
	if out[0].RewrittenLinks != 0 || out[0].UnresolvedLinks != 0 {
		t.Errorf("counters = %d/%d, want 0/0",
			out[0].RewrittenLinks, out[0].UnresolvedLinks)
	}
}

func TestRewrite_UnresolvedLinkLeftUnchanged(t *testing.T) {
	content := "Broken [gone](missing.md) here."
	n := parsed("a.md", content)
	out := Rewrite([]*models.Section{sectionOf("S", n)}, models.NewAssetIndex())
	if out[0].NewContent != content {
		t.Errorf("unresolved link changed: %q", out[0].NewContent)
	}
	if out[0].UnresolvedLinks != 1 {
		t.Errorf("unresolved = %d, want 1", out[0].UnresolvedLinks)
	}
}

func TestRewrite_UnresolvedImageLeftUnchanged(t *testing.T) {
	content := "An image ![x](missing.png) here."
	n := parsed("a.md", content)
	out := Rewrite([]*models.Section{sectionOf("S", n)}, models.NewAssetIndex())
	if out[0].NewContent != content {
		t.Errorf("unresolved image changed: %q", out[0].NewContent)
	}
	if out[0].UnresolvedImages < 1 {
		t.Errorf("unresolved images = %d, want >= 1", out[0].UnresolvedImages)
	}
	// The image must not be double-counted as an unresolved link.
	if out[0].UnresolvedLinks != 0 {
		t.Errorf("unresolved links = %d, want 0", out[0].UnresolvedLinks)
	}
}

func TestRewrite_ImageResolvesThroughAssetIndex(t *testing.T) {
	n := parsed("note deadbeef01.md", "![chart](chart.png)")
	index := models.NewAssetIndex()
	asset := models.AssetFile{Filename: "chart.png", Path: "/tmp/assets/deadbeef01/chart.png", NoteID: "deadbeef01"}
	index.ByNoteID["deadbeef01"] = []models.AssetFile{asset}
	index.ByFilename["chart.png"] = asset

	out := Rewrite([]*models.Section{sectionOf("S", n)}, index)
	if !strings.Contains(out[0].NewContent, "![chart](assets/deadbeef01/chart.png)") {
		t.Errorf("image not rewritten: %q", out[0].NewContent)
	}
	if out[0].RewrittenImages != 1 {
		t.Errorf("rewritten images = %d, want 1", out[0].RewrittenImages)
	}
}

func TestRewrite_RoundTripAllInternalResolve(t *testing.T) {
	a := parsed("a.md", "Link to [b](b.md) and [c](c.md) and [web](https://x.y).")
	b := parsed("b.md", "Link to [a](a.md).")
	c := parsed("c.md", "No links.")
	sections := []*models.Section{sectionOf("One", a, b), sectionOf("Two", c)}

	out := Rewrite(sections, models.NewAssetIndex())
	for _, rn := range out {
		if rn.UnresolvedLinks != 0 {
			t.Errorf("%s: unresolved = %d, want 0", rn.Note.Filename, rn.UnresolvedLinks)
		}
	}
	if !strings.Contains(out[0].NewContent, "(One/b.md)") || !strings.Contains(out[0].NewContent, "(Two/c.md)") {
		t.Errorf("rewritten content = %q", out[0].NewContent)
	}
	if !strings.Contains(out[0].NewContent, "[web](https://x.y)") {
		t.Errorf("external link altered: %q", out[0].NewContent)
	}
}

func TestRewrite_CoversEveryNoteOnce(t *testing.T) {
	notes := []*models.Note{parsed("a.md", "x"), parsed("b.md", "y"), parsed("c.md", "z")}
	sections := []*models.Section{
		sectionOf("S1", notes[0], notes[1]),
		sectionOf("S2", notes[2]),
	}
	out := Rewrite(sections, models.NewAssetIndex())
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	seen := make(map[string]bool)
	for _, rn := range out {
		if seen[rn.Note.Filename] {
			t.Errorf("note %q rewritten twice", rn.Note.Filename)
		}
		seen[rn.Note.Filename] = true
	}
}
