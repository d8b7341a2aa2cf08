package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-enrichment/internal/model"
)

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "0f3a9b1c", truncateID("0f3a9b1c-dead-beef-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}

func TestComputeJobStats(t *testing.T) {
	now := time.Now()
	jobs := []model.Job{
		{
			Status:         model.JobStatusCompleted,
			ProcessedLeads: 10, EnrichedLeads: 9, HighScoreLeads: 3,
			CreatedAt: now.Add(-30 * time.Second), UpdatedAt: now,
		},
		{
			Status:         model.JobStatusCompleted,
			ProcessedLeads: 5, EnrichedLeads: 5, HighScoreLeads: 1,
			CreatedAt: now.Add(-10 * time.Second), UpdatedAt: now,
		},
		{Status: model.JobStatusFailed, ProcessedLeads: 2},
		{Status: model.JobStatusProcessing},
		{Status: model.JobStatusPending},
	}

	s := computeJobStats(jobs)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.InFlight)
	assert.Equal(t, 17, s.Leads)
	assert.Equal(t, 14, s.Enriched)
	assert.Equal(t, 4, s.HighScore)
	assert.InDelta(t, 20.0, s.AvgDurSecs, 0.5)
}

func TestComputeJobStats_Empty(t *testing.T) {
	s := computeJobStats(nil)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.AvgDurSecs)
}

func TestFormatJobsList(t *testing.T) {
	jobs := []model.Job{
		{
			ID:      "0f3a9b1c-dead-beef-0000-000000000000",
			OwnerID: "user-1",
			Name:    "a-very-long-job-name-that-needs-truncation.csv",
			Status:  model.JobStatusProcessing,

			ProgressPercent: 40,
			ProcessedLeads:  4,
			TotalLeads:      10,
		},
	}

	var buf bytes.Buffer
	formatJobsList(&buf, jobs)
	out := buf.String()

	assert.Contains(t, out, "0f3a9b1c")
	assert.NotContains(t, out, "dead-beef")
	assert.Contains(t, out, "user-1")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "40%")
	assert.Contains(t, out, "4/10")
}

func TestFormatJobStats(t *testing.T) {
	var buf bytes.Buffer
	formatJobStats(&buf, jobStats{Total: 3, Completed: 2, Failed: 1, AvgDurSecs: 12.34})
	out := buf.String()

	assert.Contains(t, out, "Total jobs:")
	assert.Contains(t, out, "12.3s")
}
