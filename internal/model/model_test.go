package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}

func TestLeadResultHighScore(t *testing.T) {
	assert.True(t, LeadResult{Score: 70}.HighScore(70))
	assert.True(t, LeadResult{Score: 100}.HighScore(70))
	assert.False(t, LeadResult{Score: 69}.HighScore(70))
}

func TestEvidenceMerge(t *testing.T) {
	var e Evidence
	e.Merge(Evidence{DNS: &DNSEvidence{HasAddress: true}})
	e.Merge(Evidence{Traffic: &TrafficEvidence{GlobalRank: 42}})

	assert.True(t, e.DNS.HasAddress)
	assert.Equal(t, 42, e.Traffic.GlobalRank)
	assert.Nil(t, e.Registration)

	// A later non-nil field replaces an earlier one.
	e.Merge(Evidence{DNS: &DNSEvidence{HasAddress: true, HasMX: true}})
	assert.True(t, e.DNS.HasMX)

	// Nil fields never clobber existing ones.
	e.Merge(Evidence{})
	assert.NotNil(t, e.DNS)
	assert.NotNil(t, e.Traffic)
}
