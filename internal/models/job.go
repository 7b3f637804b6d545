package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Job states. Strictly forward-moving: uploading → scanning → clustering →
// rewriting → packaging → ready, with error reachable from any state and
// terminal.
const (
	StateUploading  = "uploading"
	StateScanning   = "scanning"
	StateClustering = "clustering"
	StateRewriting  = "rewriting"
	StatePackaging  = "packaging"
	StateReady      = "ready"
	StateError      = "error"
)

// Grouping strategies for the section builder.
const (
	StrategyCluster  = "cluster"
	StrategyHeadings = "headings"
	StrategyTags     = "tags"
)

// AutoK requests the heuristic k = max(6, min(40, floor(sqrt(n/2)))).
const AutoK = 0

// ProcessingOptions selects how notes are grouped into sections.
// ClusteringK is ignored unless Strategy is "cluster"; AutoK (zero) means
// the heuristic value is computed from the corpus size.
type ProcessingOptions struct {
	ClusteringK int    `json:"clustering_k"`
	Strategy    string `json:"grouping_strategy"`
}

// Validate checks the options.
func (o ProcessingOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Strategy, validation.Required,
			validation.In(StrategyCluster, StrategyHeadings, StrategyTags)),
		validation.Field(&o.ClusteringK, validation.Min(0)),
	)
}

// JobStatus is the progress record for one pipeline run. It is mutated by a
// single writer (the pipeline) and becomes immutable once ready or error is
// reached; everyone else reads snapshots.
type JobStatus struct {
	ID        string     `json:"id"`
	State     string     `json:"status"`
	Progress  int        `json:"progress"`
	Message   string     `json:"message"`
	Error     string     `json:"error,omitempty"`
	Result    *JobResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Terminal reports whether the status can no longer change.
func (s *JobStatus) Terminal() bool {
	return s.State == StateReady || s.State == StateError
}

// JobResult is populated once a job reaches the ready state.
type JobResult struct {
	Sections         []*Section `json:"sections"`
	TotalNotes       int        `json:"total_notes"`
	TotalAssets      int        `json:"total_assets"`
	UnresolvedLinks  int        `json:"unresolved_links"`
	UnresolvedImages int        `json:"unresolved_images"`
	ReportContent    string     `json:"report_content"`
	ZipPath          string     `json:"zip_path"`
}
