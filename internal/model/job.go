package model

import "time"

// JobStatus represents the current state of an enrichment job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions
// (other than an explicit retry of a failed job).
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job represents one batch enrichment job over a list of leads.
type Job struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Name            string    `json:"name"`
	Status          JobStatus `json:"status"`
	Leads           []Lead    `json:"leads,omitempty"`
	TotalLeads      int       `json:"total_leads"`
	ProcessedLeads  int       `json:"processed_leads"`
	EnrichedLeads   int       `json:"enriched_leads"`
	HighScoreLeads  int       `json:"high_score_leads"`
	ProgressPercent int       `json:"progress_percent"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	ArtifactPath    string    `json:"artifact_path,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// JobProgress holds the counters updated after each completed batch.
type JobProgress struct {
	ProcessedLeads  int `json:"processed_leads"`
	EnrichedLeads   int `json:"enriched_leads"`
	HighScoreLeads  int `json:"high_score_leads"`
	ProgressPercent int `json:"progress_percent"`
}

// LogLevel classifies job log entries.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// JobLogEntry is one append-only log line attached to a job.
type JobLogEntry struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
