// Package store persists jobs, per-lead results, and the job log trail.
package store

import (
	"context"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	OwnerID string          `json:"owner_id,omitempty"`
	Status  model.JobStatus `json:"status,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the enrichment engine.
// Every call is atomic; callers sequence them to get ordering
// guarantees (status is always written before subscribers are told).
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, ownerID, name string, leads []model.Lead) (*model.Job, error)
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, errorMessage string) error
	UpdateJobProgress(ctx context.Context, jobID string, progress model.JobProgress) error
	SetJobArtifact(ctx context.Context, jobID, artifactPath string) error

	// Lead results
	AppendLeadResult(ctx context.Context, result *model.LeadResult) error
	ListLeadResults(ctx context.Context, jobID string) ([]model.LeadResult, error)
	DeleteLeadResults(ctx context.Context, jobID string) (int, error)

	// Log trail
	AppendLog(ctx context.Context, jobID string, level model.LogLevel, message string) error
	ListLogs(ctx context.Context, jobID string, limit int) ([]model.JobLogEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
