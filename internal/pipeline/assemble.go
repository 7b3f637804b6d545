package pipeline

import (
	"path"
	"path/filepath"

	"github.com/eniileme/nuclinotion/internal/models"
	"github.com/eniileme/nuclinotion/internal/storage"
)

// assemble materializes the final output tree inside the workspace: one
// directory per section with its index and rewritten notes, plus the
// assets/ tree. Duplicate basenames within one destination folder overwrite
// silently.
func assemble(store storage.Provider, sections []*models.Section, rewritten []*models.RewrittenNote, index *models.AssetIndex) error {
	for _, s := range sections {
		indexPath := path.Join(outputSubdir, s.Label, "index.md")
		if err := store.Write(indexPath, []byte(s.IndexContent)); err != nil {
			return err
		}
	}

	for _, rn := range rewritten {
		notePath := path.Join(outputSubdir, rn.NewPath)
		if err := store.Write(notePath, []byte(rn.NewContent)); err != nil {
			return err
		}
	}

	for noteID, files := range index.ByNoteID {
		for _, a := range files {
			dest := path.Join(outputSubdir, "assets", noteID, filepath.Base(a.Path))
			if err := store.Copy(a.Path, dest); err != nil {
				return err
			}
		}
	}
	for _, a := range index.Unassigned {
		dest := path.Join(outputSubdir, "assets", "unassigned", filepath.Base(a.Path))
		if err := store.Copy(a.Path, dest); err != nil {
			return err
		}
	}
	return nil
}
