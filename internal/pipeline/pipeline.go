// Package pipeline runs the content-organization batch transformation for
// one job: extract, parse, group into sections, rewrite references,
// assemble the output tree, and package it.
package pipeline

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/eniileme/nuclinotion/internal/apperr"
	"github.com/eniileme/nuclinotion/internal/archive"
	"github.com/eniileme/nuclinotion/internal/assets"
	"github.com/eniileme/nuclinotion/internal/models"
	"github.com/eniileme/nuclinotion/internal/parser"
	"github.com/eniileme/nuclinotion/internal/rewrite"
	"github.com/eniileme/nuclinotion/internal/section"
	"github.com/eniileme/nuclinotion/internal/storage"
)

const (
	notesSubdir  = "notes"
	assetsSubdir = "assets"
	outputSubdir = "notion_ready"
	outputZip    = "notion_ready.zip"
	reportFile   = "RUN_REPORT.md"
)

// StatusFunc receives a status snapshot after each pipeline stage. It is
// invoked synchronously by the single pipeline goroutine, so implementations
// need no locking within one job.
type StatusFunc func(status models.JobStatus)

// Pipeline executes one job inside its own workspace. A Pipeline instance
// runs exactly once; every internal failure is fatal to the job.
type Pipeline struct {
	jobID    string
	workDir  string
	builder  *section.Builder
	onStatus StatusFunc
	status   models.JobStatus
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStatusFunc installs the status callback.
func WithStatusFunc(fn StatusFunc) Option {
	return func(p *Pipeline) { p.onStatus = fn }
}

// WithSectionBuilder injects a custom section builder, for example one with
// a fixed clustering random source.
func WithSectionBuilder(b *section.Builder) Option {
	return func(p *Pipeline) { p.builder = b }
}

// WithExpiry sets when the job's artifacts expire.
func WithExpiry(t time.Time) Option {
	return func(p *Pipeline) { p.status.ExpiresAt = t }
}

// New creates a pipeline owning the given workspace directory.
func New(jobID, workDir string, opts ...Option) *Pipeline {
	now := time.Now()
	p := &Pipeline{
		jobID:   jobID,
		workDir: workDir,
		builder: section.NewBuilder(nil),
		status: models.JobStatus{
			ID:        jobID,
			State:     models.StateUploading,
			Message:   "Initializing...",
			CreatedAt: now,
			ExpiresAt: now.Add(24 * time.Hour),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Status returns the current status snapshot.
func (p *Pipeline) Status() models.JobStatus {
	return p.status
}

// Process runs the whole pipeline over the uploaded archives and returns the
// job result. assetsZipPath may be empty. On failure the job transitions to
// the terminal error state and the error is returned; there is no partial
// success.
func (p *Pipeline) Process(notesZipPath, assetsZipPath string, opts models.ProcessingOptions) (*models.JobResult, error) {
	result, err := p.run(notesZipPath, assetsZipPath, opts)
	if err != nil {
		p.update(models.StateError, 0, "Processing failed", err.Error())
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) run(notesZipPath, assetsZipPath string, opts models.ProcessingOptions) (*models.JobResult, error) {
	started := time.Now()

	if notesZipPath == "" {
		return nil, fmt.Errorf("pipeline: notes archive is required: %w", apperr.ErrInvalidInput)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: options: %w", err)
	}

	p.update(models.StateScanning, 10, "Preparing workspace...", "")
	store, err := storage.NewFS(p.workDir)
	if err != nil {
		return nil, err
	}

	p.update(models.StateScanning, 20, "Extracting notes...", "")
	notesDir := filepath.Join(p.workDir, notesSubdir)
	if err := archive.Extract(notesZipPath, notesDir); err != nil {
		return nil, err
	}

	assetsDir := filepath.Join(p.workDir, assetsSubdir)
	if assetsZipPath != "" {
		p.update(models.StateScanning, 30, "Extracting assets...", "")
		if err := archive.Extract(assetsZipPath, assetsDir); err != nil {
			return nil, err
		}
	}

	p.update(models.StateScanning, 40, "Scanning markdown files...", "")
	notes, err := p.parseNotes(store)
	if err != nil {
		return nil, err
	}

	p.update(models.StateScanning, 50, "Indexing assets...", "")
	assetIndex, err := assets.BuildIndex(assetsDir)
	if err != nil {
		return nil, err
	}

	p.update(models.StateClustering, 60, "Analyzing content...", "")
	sections, info, err := p.builder.Build(notes, opts)
	if err != nil {
		return nil, err
	}
	slog.Info("sections built",
		slog.String("job_id", p.jobID),
		slog.String("strategy", info.Strategy),
		slog.Int("sections", len(sections)))

	p.update(models.StateRewriting, 70, "Rewriting links and images...", "")
	rewritten := rewrite.Rewrite(sections, assetIndex)

	p.update(models.StatePackaging, 80, "Generating output structure...", "")
	if err := assemble(store, sections, rewritten, assetIndex); err != nil {
		return nil, err
	}

	p.update(models.StatePackaging, 90, "Generating report...", "")
	report := buildReport(reportInput{
		notes:      notes,
		sections:   sections,
		rewritten:  rewritten,
		assetIndex: assetIndex,
		info:       info,
		started:    started,
	})
	if err := store.Write(path.Join(outputSubdir, reportFile), []byte(report)); err != nil {
		return nil, err
	}

	p.update(models.StatePackaging, 95, "Creating download package...", "")
	zipPath := filepath.Join(p.workDir, outputZip)
	if err := archive.Create(filepath.Join(p.workDir, outputSubdir), zipPath); err != nil {
		return nil, err
	}

	unresolvedLinks, unresolvedImages := 0, 0
	for _, rn := range rewritten {
		unresolvedLinks += rn.UnresolvedLinks
		unresolvedImages += rn.UnresolvedImages
	}

	result := &models.JobResult{
		Sections:         sections,
		TotalNotes:       len(notes),
		TotalAssets:      len(assetIndex.ByFilename),
		UnresolvedLinks:  unresolvedLinks,
		UnresolvedImages: unresolvedImages,
		ReportContent:    report,
		ZipPath:          zipPath,
	}

	p.status.Result = result
	p.update(models.StateReady, 100, "Processing complete!", "")
	return result, nil
}

// parseNotes reads and parses every markdown file in the extracted notes
// tree. Zero markdown files is a fatal input error.
func (p *Pipeline) parseNotes(store storage.Provider) ([]*models.Note, error) {
	files, err := store.ListMarkdown(notesSubdir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("pipeline: no markdown files found in the uploaded archive: %w", apperr.ErrInvalidInput)
	}

	notes := make([]*models.Note, 0, len(files))
	for _, rel := range files {
		data, err := store.Read(path.Join(notesSubdir, rel))
		if err != nil {
			return nil, err
		}
		notes = append(notes, parser.Parse(rel, string(data)))
	}
	return notes, nil
}

// update advances the status snapshot and reports it through the callback.
// Called after the work for the stage completed, never before.
func (p *Pipeline) update(state string, progress int, message, errText string) {
	p.status.State = state
	p.status.Progress = progress
	p.status.Message = message
	p.status.Error = errText
	if p.onStatus != nil {
		p.onStatus(p.status)
	}
}
