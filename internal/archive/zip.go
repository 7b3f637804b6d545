// Package archive implements zip extraction and directory packaging. Entry
// paths are preserved byte-for-byte (case-sensitive) because link
// resolution depends on exact filenames.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Extract materializes every file in the zip at its relative path under
// destRoot, creating parent directories as needed. Entries that would
// escape destRoot are rejected.
func Extract(zipPath, destRoot string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", zipPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return fmt.Errorf("archive: create dest root: %w", err)
	}
	absRoot, err := filepath.Abs(destRoot)
	if err != nil {
		return fmt.Errorf("archive: resolve dest root: %w", err)
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		target := filepath.Join(absRoot, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, absRoot+string(os.PathSeparator)) {
			return fmt.Errorf("archive: entry escapes destination: %s", f.Name)
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("archive: mkdir for %s: %w", f.Name, err)
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("archive: open entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("archive: write %s: %w", f.Name, err)
	}
	return nil
}

// Create zips sourceDir into zipPath. Entries mirror the directory tree
// exactly: slash-separated relative paths, no added prefix.
func Create(sourceDir, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", zipPath, err)
	}
	defer out.Close()

	w := zip.NewWriter(out)

	err = filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, p)
		if err != nil {
			return err
		}
		entry, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(entry, src)
		return err
	})
	if err != nil {
		w.Close()
		return fmt.Errorf("archive: pack %s: %w", sourceDir, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: finalize %s: %w", zipPath, err)
	}
	return nil
}
