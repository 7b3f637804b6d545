// Package storage defines the job-workspace file store abstraction.
package storage

// Provider is the interface for file operations inside one job workspace.
// All paths are relative to the workspace root.
type Provider interface {
	// ListMarkdown returns the relative paths of every .md file under dir,
	// in walk order.
	ListMarkdown(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Copy duplicates the file at absolute source path src to the relative
	// destination path inside the workspace.
	Copy(src, dest string) error
}
