package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eniileme/nuclinotion/internal/apperr"
	"github.com/eniileme/nuclinotion/internal/jobservice"
	"github.com/eniileme/nuclinotion/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc            *jobservice.Service
	maxUploadBytes int64
}

// NewHandler creates a new Handler. maxUploadMB caps multipart bodies.
func NewHandler(svc *jobservice.Service, maxUploadMB int64) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 200
	}
	return &Handler{svc: svc, maxUploadBytes: maxUploadMB << 20}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error, context string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(context, slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// SubmitJob handles POST /api/jobs (multipart/form-data).
//
// Fields: notesZip (required file), assetsZip (optional file),
// clusteringK (optional int, 0 = auto), groupingStrategy (optional,
// one of cluster|headings|tags).
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	notesFile, notesHeader, err := r.FormFile("notesZip")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'notesZip' field in multipart form"))
		return
	}
	defer notesFile.Close()

	notesPath, err := h.svc.StageArchive(notesHeader.Filename, notesFile)
	if err != nil {
		writeError(w, err, "stage notes archive failed")
		return
	}

	assetsPath := ""
	if assetsFile, assetsHeader, err := r.FormFile("assetsZip"); err == nil {
		defer assetsFile.Close()
		assetsPath, err = h.svc.StageArchive(assetsHeader.Filename, assetsFile)
		if err != nil {
			writeError(w, err, "stage assets archive failed")
			return
		}
	}

	opts := models.ProcessingOptions{
		Strategy: r.FormValue("groupingStrategy"),
	}
	if k := r.FormValue("clusteringK"); k != "" {
		n, convErr := strconv.Atoi(k)
		if convErr != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("clusteringK must be an integer"))
			return
		}
		opts.ClusteringK = n
	}

	status, err := h.svc.Submit(r.Context(), notesPath, assetsPath, opts)
	if err != nil {
		writeError(w, err, "submit job failed")
		return
	}
	writeJSON(w, http.StatusAccepted, status)
}

// ProcessPaths handles POST /api/jobs/process (JSON body with server-side
// archive paths, typically from finalized chunked uploads).
func (h *Handler) ProcessPaths(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.NotesZipPath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("notes_zip_path is required"))
		return
	}

	status, err := h.svc.Submit(r.Context(), req.NotesZipPath, req.AssetsZipPath, models.ProcessingOptions{
		ClusteringK: req.ClusteringK,
		Strategy:    req.GroupingStrategy,
	})
	if err != nil {
		writeError(w, err, "process job failed")
		return
	}
	writeJSON(w, http.StatusAccepted, status)
}

// JobStatus handles GET /api/jobs/{id}/status.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.svc.Status(r.Context(), id)
	if err != nil {
		writeError(w, err, "job status failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// JobReport handles GET /api/jobs/{id}/report.
func (h *Handler) JobReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.svc.Report(r.Context(), id)
	if err != nil {
		writeError(w, err, "job report failed")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report))
}

// Download handles GET /api/jobs/{id}/download.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, err := h.svc.DownloadPath(r.Context(), id)
	if err != nil {
		writeError(w, err, "job download failed")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="notion_ready.zip"`)
	w.Header().Set("Content-Type", "application/zip")
	http.ServeFile(w, r, path)
}

// InitiateUpload handles POST /api/uploads/initiate.
func (h *Handler) InitiateUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req InitiateUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	id, err := h.svc.InitiateUpload(r.Context(), req.FileName, req.FileSize, req.TotalChunks)
	if err != nil {
		writeError(w, err, "initiate upload failed")
		return
	}
	writeJSON(w, http.StatusCreated, InitiateUploadResponse{UploadID: id})
}

// UploadChunk handles POST /api/uploads/{id}/chunks/{index}
// (multipart/form-data, field "chunk").
func (h *Handler) UploadChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("chunk too large or invalid multipart"))
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("chunk index must be an integer"))
		return
	}

	chunk, _, err := r.FormFile("chunk")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'chunk' field in multipart form"))
		return
	}
	defer chunk.Close()

	if err := h.svc.SaveChunk(r.Context(), chi.URLParam(r, "id"), index, chunk); err != nil {
		writeError(w, err, "save chunk failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FinalizeUpload handles POST /api/uploads/{id}/finalize.
func (h *Handler) FinalizeUpload(w http.ResponseWriter, r *http.Request) {
	path, sum, err := h.svc.FinalizeUpload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "finalize upload failed")
		return
	}
	writeJSON(w, http.StatusOK, FinalizeUploadResponse{Path: path, Checksum: sum})
}

// Cleanup handles POST /api/cleanup.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.svc.CleanupExpired(r.Context())
	if err != nil {
		writeError(w, err, "cleanup failed")
		return
	}
	writeJSON(w, http.StatusOK, CleanupResponse{Removed: removed})
}
