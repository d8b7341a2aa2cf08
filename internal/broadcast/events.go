package broadcast

import (
	"github.com/sells-group/lead-enrichment/internal/model"
)

// StatusPayload mirrors the job fields a status event carries.
type StatusPayload struct {
	Status          model.JobStatus `json:"status"`
	TotalLeads      int             `json:"total_leads"`
	ProcessedLeads  int             `json:"processed_leads"`
	ProgressPercent int             `json:"progress_percent"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// ProgressPayload carries the counters written after each batch.
type ProgressPayload struct {
	ProcessedLeads  int `json:"processed_leads"`
	EnrichedLeads   int `json:"enriched_leads"`
	HighScoreLeads  int `json:"high_score_leads"`
	ProgressPercent int `json:"progress_percent"`
}

// LogPayload carries a single log line.
type LogPayload struct {
	Level   model.LogLevel `json:"level"`
	Message string         `json:"message"`
}

// CompletePayload points at the exported artifact.
type CompletePayload struct {
	ArtifactPath string `json:"artifact_path,omitempty"`
}

// ErrorPayload carries the terminal failure message.
type ErrorPayload struct {
	Message string `json:"message"`
}

func StatusEvent(job *model.Job) Event {
	return Event{
		JobID: job.ID,
		Type:  EventStatus,
		Payload: StatusPayload{
			Status:          job.Status,
			TotalLeads:      job.TotalLeads,
			ProcessedLeads:  job.ProcessedLeads,
			ProgressPercent: job.ProgressPercent,
			ErrorMessage:    job.ErrorMessage,
		},
	}
}

func ProgressEvent(jobID string, p model.JobProgress) Event {
	return Event{
		JobID: jobID,
		Type:  EventProgress,
		Payload: ProgressPayload{
			ProcessedLeads:  p.ProcessedLeads,
			EnrichedLeads:   p.EnrichedLeads,
			HighScoreLeads:  p.HighScoreLeads,
			ProgressPercent: p.ProgressPercent,
		},
	}
}

func LogEvent(jobID string, level model.LogLevel, message string) Event {
	return Event{
		JobID:   jobID,
		Type:    EventLog,
		Payload: LogPayload{Level: level, Message: message},
	}
}

func CompleteEvent(jobID, artifactPath string) Event {
	return Event{
		JobID:   jobID,
		Type:    EventComplete,
		Payload: CompletePayload{ArtifactPath: artifactPath},
	}
}

func ErrorEvent(jobID, message string) Event {
	return Event{
		JobID:   jobID,
		Type:    EventError,
		Payload: ErrorPayload{Message: message},
	}
}
