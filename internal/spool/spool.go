// Package spool manages per-job temp workspaces and upload staging
// directories under one root, with TTL metadata for expiry sweeps.
package spool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const metaFile = "meta.json"

// Meta is the TTL record written into every job workspace.
type Meta struct {
	JobID     string    `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its TTL at now.
func (m Meta) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

// Spool owns a root directory with jobs/ and uploads/ subtrees. Each job
// owns its own workspace; nothing reads or writes another job's workspace.
type Spool struct {
	root string
	ttl  time.Duration
}

// New creates a spool rooted at dir. ttl governs workspace expiry.
func New(dir string, ttl time.Duration) (*Spool, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("spool: resolve root: %w", err)
	}
	for _, sub := range []string{"jobs", "uploads"} {
		if err := os.MkdirAll(filepath.Join(abs, sub), 0o755); err != nil {
			return nil, fmt.Errorf("spool: create %s dir: %w", sub, err)
		}
	}
	return &Spool{root: abs, ttl: ttl}, nil
}

// Root returns the spool root directory.
func (s *Spool) Root() string { return s.root }

// JobsRoot returns the directory holding all job workspaces.
func (s *Spool) JobsRoot() string { return filepath.Join(s.root, "jobs") }

// JobDir returns the workspace directory for a job.
func (s *Spool) JobDir(jobID string) string {
	return filepath.Join(s.root, "jobs", jobID)
}

// UploadDir returns the chunk staging directory for an upload session.
func (s *Spool) UploadDir(uploadID string) string {
	return filepath.Join(s.root, "uploads", uploadID)
}

// FinalizedUploadPath returns where an assembled upload lands.
func (s *Spool) FinalizedUploadPath(uploadID, fileName string) string {
	return filepath.Join(s.root, "uploads", uploadID+"_"+filepath.Base(fileName))
}

// CreateJob materializes a job workspace and writes its TTL record.
func (s *Spool) CreateJob(jobID string, now time.Time) (string, error) {
	dir := s.JobDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("spool: create job dir: %w", err)
	}
	meta := Meta{
		JobID:     jobID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.writeMeta(dir, meta); err != nil {
		return "", err
	}
	return dir, nil
}

// CreateUpload materializes an upload staging directory.
func (s *Spool) CreateUpload(uploadID string) (string, error) {
	dir := s.UploadDir(uploadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("spool: create upload dir: %w", err)
	}
	return dir, nil
}

// ReadMeta loads a job workspace's TTL record.
func (s *Spool) ReadMeta(jobID string) (Meta, error) {
	var meta Meta
	data, err := os.ReadFile(filepath.Join(s.JobDir(jobID), metaFile))
	if err != nil {
		return meta, fmt.Errorf("spool: read meta for %s: %w", jobID, err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("spool: parse meta for %s: %w", jobID, err)
	}
	return meta, nil
}

// RemoveJob deletes a job workspace.
func (s *Spool) RemoveJob(jobID string) error {
	if err := os.RemoveAll(s.JobDir(jobID)); err != nil {
		return fmt.Errorf("spool: remove job %s: %w", jobID, err)
	}
	return nil
}

// RemoveUpload deletes an upload staging directory.
func (s *Spool) RemoveUpload(uploadID string) error {
	if err := os.RemoveAll(s.UploadDir(uploadID)); err != nil {
		return fmt.Errorf("spool: remove upload %s: %w", uploadID, err)
	}
	return nil
}

// SweepExpired removes every job workspace whose TTL record is past now.
// Workspaces with a missing or unreadable record are removed too. Returns
// the number of workspaces removed.
func (s *Spool) SweepExpired(now time.Time) (int, error) {
	entries, err := os.ReadDir(s.JobsRoot())
	if err != nil {
		return 0, fmt.Errorf("spool: read jobs root: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.ReadMeta(e.Name())
		if err != nil || meta.Expired(now) {
			if rmErr := s.RemoveJob(e.Name()); rmErr == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (s *Spool) writeMeta(dir string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("spool: marshal meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), data, 0o644); err != nil {
		return fmt.Errorf("spool: write meta: %w", err)
	}
	return nil
}
