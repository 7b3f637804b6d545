// Package assets indexes the extracted assets archive and resolves image
// references against it.
package assets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/eniileme/nuclinotion/internal/models"
)

var hexDirRe = regexp.MustCompile(`^(?i)[a-f0-9]{6,}$`)

// BuildIndex walks the extracted assets directory once and builds the three
// read-only views: lowercased-basename lookup (last wins on duplicates),
// assets grouped by the hex note-identifier directory they live in, and the
// residual unassigned list. A missing directory yields an empty index.
func BuildIndex(assetsDir string) (*models.AssetIndex, error) {
	index := models.NewAssetIndex()

	info, err := os.Stat(assetsDir)
	if err != nil || !info.IsDir() {
		return index, nil
	}

	err = filepath.WalkDir(assetsDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}

		asset := models.AssetFile{
			Filename: strings.ToLower(d.Name()),
			Path:     p,
			Size:     fi.Size(),
		}

		parent := filepath.Base(filepath.Dir(p))
		if filepath.Dir(p) != assetsDir && hexDirRe.MatchString(parent) {
			asset.NoteID = parent
			index.ByNoteID[parent] = append(index.ByNoteID[parent], asset)
		} else {
			index.Unassigned = append(index.Unassigned, asset)
		}

		index.ByFilename[asset.Filename] = asset
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assets: scan %s: %w", assetsDir, err)
	}
	return index, nil
}

// Find resolves an image source against the index: first by basename inside
// the note's own identifier directory, then by a case-insensitive global
// filename lookup. A nil return means the reference stays unrewritten.
func Find(src, noteID string, index *models.AssetIndex) *models.AssetFile {
	key := strings.ToLower(src)

	if noteID != "" {
		for _, a := range index.ByNoteID[noteID] {
			if a.Filename == key {
				found := a
				return &found
			}
		}
	}

	if a, ok := index.ByFilename[key]; ok {
		return &a
	}
	return nil
}
