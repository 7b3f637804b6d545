// Package models defines the domain types for Nuclinotion.
package models

// Note is one parsed Markdown file from the uploaded notes archive.
// Identity is the relative file path within the archive. A Note is created
// once during parsing and never mutated afterwards; rewriting wraps it into
// a RewrittenNote instead.
type Note struct {
	Filename          string                 `json:"filename"`
	Title             string                 `json:"title"`
	Content           string                 `json:"-"`
	NormalizedContent string                 `json:"-"`
	Tags              []string               `json:"tags,omitempty"`
	Headings          []Heading              `json:"headings,omitempty"`
	Links             []Link                 `json:"links,omitempty"`
	Images            []Image                `json:"images,omitempty"`
	NoteID            string                 `json:"note_id,omitempty"`
	FrontMatter       map[string]interface{} `json:"frontmatter,omitempty"`
}

// Heading is one markdown heading with its 1-based source line.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Line  int    `json:"line"`
}

// Link is one markdown link occurrence. Wiki links carry their display text
// as the target.
type Link struct {
	Text       string `json:"text"`
	Href       string `json:"href"`
	IsInternal bool   `json:"is_internal"`
	IsWikiLink bool   `json:"is_wiki_link"`
	Line       int    `json:"line"`
}

// Image is one markdown image occurrence.
type Image struct {
	Alt  string `json:"alt"`
	Src  string `json:"src"`
	Line int    `json:"line"`
}

// RewrittenNote pairs a Note with its new path and rewritten content.
type RewrittenNote struct {
	Note             *Note  `json:"-"`
	NewPath          string `json:"new_path"`
	NewContent       string `json:"-"`
	RewrittenLinks   int    `json:"rewritten_links"`
	RewrittenImages  int    `json:"rewritten_images"`
	UnresolvedLinks  int    `json:"unresolved_links"`
	UnresolvedImages int    `json:"unresolved_images"`
}

// Section is one topical group of notes in the output layout. Sections
// partition the corpus: every note belongs to exactly one section.
type Section struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Notes        []*Note  `json:"-"`
	IndexContent string   `json:"-"`
	NoteCount    int      `json:"note_count"`
	SampleTitles []string `json:"sample_titles,omitempty"`
}

// Cluster is an intermediate K-means group, converted 1:1 into a Section.
// Only non-empty groups produce a Cluster.
type Cluster struct {
	ID       string
	Label    string
	Notes    []*Note
	TopTerms []string
	Centroid []float64
}
