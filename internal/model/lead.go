package model

import "time"

// Lead is a single input row to be enriched.
type Lead struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Company      string `json:"company,omitempty"`
	Domain       string `json:"domain,omitempty"`
	IndustryHint string `json:"industry_hint,omitempty"`
}

// LeadResult is the persisted outcome of enriching one lead.
type LeadResult struct {
	ID             string         `json:"id"`
	JobID          string         `json:"job_id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Domain         string         `json:"domain"`
	CompanyName    string         `json:"company_name,omitempty"`
	Industry       string         `json:"industry"`
	Score          int            `json:"score"`
	ScoreBreakdown map[string]int `json:"score_breakdown,omitempty"`
	Evidence       Evidence       `json:"evidence,omitempty"`
	RiskFlags      []string       `json:"risk_flags,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// HighScore reports whether the result clears the given threshold.
func (r LeadResult) HighScore(threshold int) bool {
	return r.Score >= threshold
}
