package jobstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eniileme/nuclinotion/internal/apperr"
	"github.com/eniileme/nuclinotion/internal/models"
)

// PutStatus inserts or replaces a job's status snapshot. The result payload
// is stored as JSON text; last write wins.
func (db *DB) PutStatus(status *models.JobStatus) error {
	resultJSON := ""
	if status.Result != nil {
		data, err := json.Marshal(status.Result)
		if err != nil {
			return fmt.Errorf("jobstore: marshal result: %w", err)
		}
		resultJSON = string(data)
	}

	_, err := db.conn.Exec(`
		INSERT INTO jobs (id, state, progress, message, error, result, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state      = excluded.state,
			progress   = excluded.progress,
			message    = excluded.message,
			error      = excluded.error,
			result     = excluded.result,
			expires_at = excluded.expires_at
	`, status.ID, status.State, status.Progress, status.Message, status.Error,
		resultJSON, status.CreatedAt, status.ExpiresAt)
	if err != nil {
		return fmt.Errorf("jobstore: upsert job %s: %w", status.ID, err)
	}
	return nil
}

// GetStatus returns a job's latest status snapshot.
func (db *DB) GetStatus(id string) (*models.JobStatus, error) {
	var (
		st         models.JobStatus
		resultJSON string
	)
	err := db.conn.QueryRow(`
		SELECT id, state, progress, message, error, result, created_at, expires_at
		FROM jobs WHERE id = ?
	`, id).Scan(&st.ID, &st.State, &st.Progress, &st.Message, &st.Error,
		&resultJSON, &st.CreatedAt, &st.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("jobstore: job %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("jobstore: get job %s: %w", id, err)
	}

	if resultJSON != "" {
		var result models.JobResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return nil, fmt.Errorf("jobstore: parse result for %s: %w", id, err)
		}
		st.Result = &result
	}
	return &st, nil
}

// DeleteJob removes a job record.
func (db *DB) DeleteJob(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("jobstore: delete job %s: %w", id, err)
	}
	return nil
}

// ExpiredJobIDs returns every job whose expiry is past now.
func (db *DB) ExpiredJobIDs(now time.Time) ([]string, error) {
	rows, err := db.conn.Query(`SELECT id FROM jobs WHERE expires_at < ?`, now)
	if err != nil {
		return nil, fmt.Errorf("jobstore: expired jobs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// PutUpload inserts or replaces an upload session record.
func (db *DB) PutUpload(meta UploadMeta) error {
	_, err := db.conn.Exec(`
		INSERT INTO uploads (id, file_name, file_size, total_chunks, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name    = excluded.file_name,
			file_size    = excluded.file_size,
			total_chunks = excluded.total_chunks
	`, meta.ID, meta.FileName, meta.FileSize, meta.TotalChunks, meta.CreatedAt)
	if err != nil {
		return fmt.Errorf("jobstore: upsert upload %s: %w", meta.ID, err)
	}
	return nil
}

// GetUpload returns an upload session record.
func (db *DB) GetUpload(id string) (*UploadMeta, error) {
	var m UploadMeta
	err := db.conn.QueryRow(`
		SELECT id, file_name, file_size, total_chunks, created_at
		FROM uploads WHERE id = ?
	`, id).Scan(&m.ID, &m.FileName, &m.FileSize, &m.TotalChunks, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("jobstore: upload %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("jobstore: get upload %s: %w", id, err)
	}
	return &m, nil
}

// DeleteUpload removes an upload session record.
func (db *DB) DeleteUpload(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM uploads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("jobstore: delete upload %s: %w", id, err)
	}
	return nil
}
