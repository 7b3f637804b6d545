package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eniileme/nuclinotion/internal/jobservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// maxUploadMB caps multipart upload bodies.
func NewRouter(svc *jobservice.Service, authEnabled bool, token string, sseHandler http.Handler, maxUploadMB int64) chi.Router {
	h := NewHandler(svc, maxUploadMB)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Jobs.
	r.Post("/jobs", h.SubmitJob)
	r.Post("/jobs/process", h.ProcessPaths)
	r.Get("/jobs/{id}/status", h.JobStatus)
	r.Get("/jobs/{id}/report", h.JobReport)
	r.Get("/jobs/{id}/download", h.Download)

	// Chunked uploads for archives too large for one request.
	r.Post("/uploads/initiate", h.InitiateUpload)
	r.Post("/uploads/{id}/chunks/{index}", h.UploadChunk)
	r.Post("/uploads/{id}/finalize", h.FinalizeUpload)

	// Maintenance.
	r.Post("/cleanup", h.Cleanup)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
