// Package jobservice coordinates job submission, chunked uploads, status
// tracking, and artifact delivery.
package jobservice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eniileme/nuclinotion/internal/apperr"
	"github.com/eniileme/nuclinotion/internal/checksum"
	"github.com/eniileme/nuclinotion/internal/jobstore"
	"github.com/eniileme/nuclinotion/internal/models"
	"github.com/eniileme/nuclinotion/internal/pipeline"
	"github.com/eniileme/nuclinotion/internal/spool"
)

// NotifyFunc receives every job status transition.
type NotifyFunc func(models.JobStatus)

// Service owns the job lifecycle from upload to download.
type Service struct {
	spool    *spool.Spool
	store    jobstore.Store
	logger   *slog.Logger
	notify   NotifyFunc
	defaults models.ProcessingOptions
	ttl      time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithNotify registers a callback invoked on every status transition.
func WithNotify(fn NotifyFunc) Option {
	return func(s *Service) { s.notify = fn }
}

// WithDefaults sets the processing options applied when a submission
// leaves them unset.
func WithDefaults(opts models.ProcessingOptions) Option {
	return func(s *Service) { s.defaults = opts }
}

// WithTTL sets how long job artifacts are retained.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// NewService creates a job service.
func NewService(sp *spool.Spool, store jobstore.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		spool:    sp,
		store:    store,
		logger:   logger,
		defaults: models.ProcessingOptions{Strategy: models.StrategyCluster},
		ttl:      24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StageArchive streams an uploaded archive into the spool and returns the
// staged path. The caller hands the path to Submit.
func (s *Service) StageArchive(fileName string, r io.Reader) (string, error) {
	id := uuid.NewString()
	dest := s.spool.FinalizedUploadPath(id, fileName)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("jobservice: stage archive: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("jobservice: stage archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("jobservice: stage archive: %w", err)
	}
	return dest, nil
}

// Submit creates a job for the given archives and starts processing in
// the background. The returned status is the job's initial snapshot;
// callers poll Status or subscribe to events for progress.
func (s *Service) Submit(ctx context.Context, notesZipPath, assetsZipPath string, opts models.ProcessingOptions) (*models.JobStatus, error) {
	if notesZipPath == "" {
		return nil, fmt.Errorf("jobservice: notes archive is required: %w", apperr.ErrInvalidInput)
	}
	if opts.Strategy == "" {
		opts.Strategy = s.defaults.Strategy
	}
	if opts.ClusteringK == models.AutoK {
		opts.ClusteringK = s.defaults.ClusteringK
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("jobservice: %w: %v", apperr.ErrInvalidInput, err)
	}

	jobID := uuid.NewString()
	now := time.Now()

	workDir, err := s.spool.CreateJob(jobID, now)
	if err != nil {
		return nil, err
	}

	notesPath, err := s.ingest(workDir, notesZipPath, "notes.zip")
	if err != nil {
		s.spool.RemoveJob(jobID)
		return nil, err
	}
	assetsPath := ""
	if assetsZipPath != "" {
		assetsPath, err = s.ingest(workDir, assetsZipPath, "assets.zip")
		if err != nil {
			s.spool.RemoveJob(jobID)
			return nil, err
		}
	}

	p := pipeline.New(jobID, workDir,
		pipeline.WithExpiry(now.Add(s.ttl)),
		pipeline.WithStatusFunc(s.persist))

	initial := p.Status()
	if err := s.store.PutStatus(&initial); err != nil {
		s.spool.RemoveJob(jobID)
		return nil, err
	}

	go func() {
		if _, err := p.Process(notesPath, assetsPath, opts); err != nil {
			s.logger.Error("job failed",
				slog.String("job", jobID),
				slog.String("error", err.Error()))
			return
		}
		s.logger.Info("job complete", slog.String("job", jobID))
	}()

	return &initial, nil
}

// Status returns the persisted status of a job.
func (s *Service) Status(ctx context.Context, id string) (*models.JobStatus, error) {
	return s.store.GetStatus(id)
}

// Report returns the run report of a finished job.
func (s *Service) Report(ctx context.Context, id string) (string, error) {
	status, err := s.store.GetStatus(id)
	if err != nil {
		return "", err
	}
	if status.State != models.StateReady || status.Result == nil {
		return "", fmt.Errorf("jobservice: job %s has no report yet: %w", id, apperr.ErrInvalidInput)
	}
	return status.Result.ReportContent, nil
}

// DownloadPath returns the path of a ready job's output archive.
func (s *Service) DownloadPath(ctx context.Context, id string) (string, error) {
	status, err := s.store.GetStatus(id)
	if err != nil {
		return "", err
	}
	if status.State != models.StateReady || status.Result == nil {
		return "", fmt.Errorf("jobservice: job %s is not ready: %w", id, apperr.ErrInvalidInput)
	}
	if _, err := os.Stat(status.Result.ZipPath); err != nil {
		return "", fmt.Errorf("jobservice: job %s artifact missing: %w", id, apperr.ErrNotFound)
	}
	return status.Result.ZipPath, nil
}

// InitiateUpload opens a chunked-upload session and returns its id.
func (s *Service) InitiateUpload(ctx context.Context, fileName string, fileSize int64, totalChunks int) (string, error) {
	if fileName == "" || totalChunks < 1 || fileSize < 0 {
		return "", fmt.Errorf("jobservice: invalid upload parameters: %w", apperr.ErrInvalidInput)
	}
	id := uuid.NewString()
	if _, err := s.spool.CreateUpload(id); err != nil {
		return "", err
	}
	meta := jobstore.UploadMeta{
		ID:          id,
		FileName:    filepath.Base(fileName),
		FileSize:    fileSize,
		TotalChunks: totalChunks,
		CreatedAt:   time.Now(),
	}
	if err := s.store.PutUpload(meta); err != nil {
		s.spool.RemoveUpload(id)
		return "", err
	}
	return id, nil
}

// SaveChunk stores one chunk of an upload session. Chunks may arrive in
// any order; re-sending a chunk overwrites it.
func (s *Service) SaveChunk(ctx context.Context, uploadID string, index int, r io.Reader) error {
	meta, err := s.store.GetUpload(uploadID)
	if err != nil {
		return err
	}
	if index < 0 || index >= meta.TotalChunks {
		return fmt.Errorf("jobservice: chunk index %d out of range [0,%d): %w",
			index, meta.TotalChunks, apperr.ErrInvalidInput)
	}

	path := filepath.Join(s.spool.UploadDir(uploadID), chunkName(index))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("jobservice: write chunk: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("jobservice: write chunk: %w", err)
	}
	return f.Close()
}

// FinalizeUpload concatenates all chunks in order into a single archive,
// verifies completeness, and returns the assembled path with its SHA-256
// digest. The staging directory and session record are removed.
func (s *Service) FinalizeUpload(ctx context.Context, uploadID string) (string, string, error) {
	meta, err := s.store.GetUpload(uploadID)
	if err != nil {
		return "", "", err
	}

	dir := s.spool.UploadDir(uploadID)
	for i := 0; i < meta.TotalChunks; i++ {
		if _, err := os.Stat(filepath.Join(dir, chunkName(i))); err != nil {
			return "", "", fmt.Errorf("jobservice: chunk %d of %d missing: %w",
				i, meta.TotalChunks, apperr.ErrInvalidInput)
		}
	}

	dest := s.spool.FinalizedUploadPath(uploadID, meta.FileName)
	out, err := os.Create(dest)
	if err != nil {
		return "", "", fmt.Errorf("jobservice: assemble upload: %w", err)
	}
	for i := 0; i < meta.TotalChunks; i++ {
		chunk, err := os.Open(filepath.Join(dir, chunkName(i)))
		if err != nil {
			out.Close()
			os.Remove(dest)
			return "", "", fmt.Errorf("jobservice: assemble upload: %w", err)
		}
		_, copyErr := io.Copy(out, chunk)
		chunk.Close()
		if copyErr != nil {
			out.Close()
			os.Remove(dest)
			return "", "", fmt.Errorf("jobservice: assemble upload: %w", copyErr)
		}
	}
	if err := out.Close(); err != nil {
		return "", "", fmt.Errorf("jobservice: assemble upload: %w", err)
	}

	sum, err := checksum.SumFile(dest)
	if err != nil {
		return "", "", err
	}

	if err := s.spool.RemoveUpload(uploadID); err != nil {
		s.logger.Warn("remove upload staging failed",
			slog.String("upload", uploadID),
			slog.String("error", err.Error()))
	}
	if err := s.store.DeleteUpload(uploadID); err != nil {
		s.logger.Warn("delete upload record failed",
			slog.String("upload", uploadID),
			slog.String("error", err.Error()))
	}

	return dest, sum, nil
}

// CleanupExpired removes every job past its TTL and returns the count.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	now := time.Now()
	removed := 0

	ids, err := s.store.ExpiredJobIDs(now)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.spool.RemoveJob(id); err != nil {
			s.logger.Warn("cleanup: remove workspace failed",
				slog.String("job", id),
				slog.String("error", err.Error()))
			continue
		}
		if err := s.store.DeleteJob(id); err != nil {
			s.logger.Warn("cleanup: delete status failed",
				slog.String("job", id),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	swept, err := s.spool.SweepExpired(now)
	if err != nil {
		return removed, err
	}
	return removed + swept, nil
}

// persist writes a status transition through to the store and fans it
// out to the notifier.
func (s *Service) persist(status models.JobStatus) {
	if err := s.store.PutStatus(&status); err != nil {
		s.logger.Error("persist status failed",
			slog.String("job", status.ID),
			slog.String("error", err.Error()))
	}
	if s.notify != nil {
		s.notify(status)
	}
}

// ingest moves an archive into the job workspace so the janitor reclaims
// it together with everything else the job produced. A same-filesystem
// rename is attempted first; staged uploads live on the same volume as
// workspaces so the copy fallback is rare.
func (s *Service) ingest(workDir, src, destName string) (string, error) {
	dest := filepath.Join(workDir, destName)
	if err := os.Rename(src, dest); err == nil {
		return dest, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("jobservice: open archive: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("jobservice: ingest archive: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("jobservice: ingest archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("jobservice: ingest archive: %w", err)
	}
	if strings.HasPrefix(src, s.spool.Root()) {
		os.Remove(src)
	}
	return dest, nil
}

func chunkName(i int) string {
	return fmt.Sprintf("chunk_%d", i)
}
