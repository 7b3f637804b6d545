// Package jobstore provides a SQLite-backed key-value store for job status
// snapshots and chunked-upload metadata. Writes are last-write-wins by key.
package jobstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eniileme/nuclinotion/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	state      TEXT NOT NULL DEFAULT 'uploading',
	progress   INTEGER NOT NULL DEFAULT 0,
	message    TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	result     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_expires ON jobs(expires_at);

CREATE TABLE IF NOT EXISTS uploads (
	id           TEXT PRIMARY KEY,
	file_name    TEXT NOT NULL,
	file_size    INTEGER NOT NULL DEFAULT 0,
	total_chunks INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL
);
`

// UploadMeta describes one chunked-upload session.
type UploadMeta struct {
	ID          string    `json:"upload_id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	TotalChunks int       `json:"total_chunks"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the persistence interface for job and upload records. Consumers
// should depend on this interface rather than the concrete *DB type.
type Store interface {
	PutStatus(status *models.JobStatus) error
	GetStatus(id string) (*models.JobStatus, error)
	DeleteJob(id string) error
	ExpiredJobIDs(now time.Time) ([]string, error)
	PutUpload(meta UploadMeta) error
	GetUpload(id string) (*UploadMeta, error)
	DeleteUpload(id string) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// DB wraps a sql.DB with job-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("jobstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobstore: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
