package mcpserver

// ArchiveFormatContract describes the input archives organize_archive
// accepts and the grouping strategies it offers.
const ArchiveFormatContract = `# Nuclinotion Archive Format Contract

organize_archive consumes one or two zip archives and produces a
reorganized, import-ready bundle.

## Notes archive (required)

A zip containing Markdown files. Nested directories are preserved in
titles but notes are regrouped into sections, so layout does not matter.

` + "```" + `
notes.zip
├── Projects/
│   └── Roadmap 3fa9c2d1ab.md
├── inbox.md
└── Meeting Notes.md
` + "```" + `

Rules:

1. Only ` + "`" + `.md` + "`" + ` files are processed; everything else in the notes
   archive is ignored.
2. A trailing hexadecimal id in the filename (6 or more hex digits
   before ` + "`" + `.md` + "`" + `) links a note to its asset folder.
3. Front matter is optional. A ` + "`" + `title` + "`" + ` key overrides the
   filename-derived title; a ` + "`" + `tags` + "`" + ` key feeds the tags strategy.

## Assets archive (optional)

A zip of images and attachments. Files inside a folder named by a hex
note id belong to that note; everything else is carried over into an
` + "`" + `unassigned` + "`" + ` folder.

` + "```" + `
assets.zip
├── 3fa9c2d1ab/
│   └── diagram.png
└── logo.svg
` + "```" + `

## Grouping strategies

- ` + "`" + `cluster` + "`" + ` (default): TF-IDF vectors over note text, K-means with
  cosine distance. ` + "`" + `clustering_k` + "`" + ` picks the section count; leave it
  unset for an automatic choice based on corpus size.
- ` + "`" + `headings` + "`" + `: groups by each note's first top-level heading.
- ` + "`" + `tags` + "`" + `: groups by each note's first front-matter tag.

## Output

A ` + "`" + `notion_ready.zip` + "`" + ` with one folder per section (each holding an
` + "`" + `index.md` + "`" + ` and its notes), an ` + "`" + `assets/` + "`" + ` tree, and a
` + "`" + `RUN_REPORT.md` + "`" + ` summarizing the run. Internal links and image
references are rewritten to the new layout; anything that cannot be
resolved is left untouched and counted in the report.
`
