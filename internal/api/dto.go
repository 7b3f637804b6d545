package api

import (
	"github.com/eniileme/nuclinotion/internal/models"
)

// ProcessRequest is the JSON body for starting a job from archives
// already on the server, typically finalized chunked uploads.
type ProcessRequest struct {
	NotesZipPath     string `json:"notes_zip_path" validate:"required"`
	AssetsZipPath    string `json:"assets_zip_path,omitempty"`
	ClusteringK      int    `json:"clustering_k,omitempty"`
	GroupingStrategy string `json:"grouping_strategy,omitempty"`
}

// JobStatusResponse is the status payload (aliased from the domain layer).
type JobStatusResponse = models.JobStatus

// InitiateUploadRequest opens a chunked-upload session.
type InitiateUploadRequest struct {
	FileName    string `json:"file_name" validate:"required"`
	FileSize    int64  `json:"file_size"`
	TotalChunks int    `json:"total_chunks" validate:"required"`
}

// InitiateUploadResponse carries the new session id.
type InitiateUploadResponse struct {
	UploadID string `json:"upload_id" validate:"required"`
}

// FinalizeUploadResponse carries the assembled archive path and digest.
type FinalizeUploadResponse struct {
	Path     string `json:"path" validate:"required"`
	Checksum string `json:"checksum" validate:"required"`
}

// CleanupResponse reports how many expired jobs were reclaimed.
type CleanupResponse struct {
	Removed int `json:"removed"`
}
