package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	name             TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	leads            TEXT NOT NULL,
	total_leads      INTEGER NOT NULL DEFAULT 0,
	processed_leads  INTEGER NOT NULL DEFAULT 0,
	enriched_leads   INTEGER NOT NULL DEFAULT 0,
	high_score_leads INTEGER NOT NULL DEFAULT 0,
	progress_percent INTEGER NOT NULL DEFAULT 0,
	error_message    TEXT NOT NULL DEFAULT '',
	artifact_path    TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS lead_results (
	id           TEXT PRIMARY KEY,
	job_id       TEXT NOT NULL REFERENCES jobs(id),
	name         TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL,
	domain       TEXT NOT NULL DEFAULT '',
	company_name TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	score        INTEGER NOT NULL DEFAULT 0,
	breakdown    TEXT,
	evidence     TEXT,
	risk_flags   TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS job_logs (
	id         TEXT PRIMARY KEY,
	job_id     TEXT NOT NULL REFERENCES jobs(id),
	level      TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs(owner_id);
CREATE INDEX IF NOT EXISTS idx_lead_results_job_id ON lead_results(job_id);
CREATE INDEX IF NOT EXISTS idx_job_logs_job_id ON job_logs(job_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, ownerID, name string, leads []model.Lead) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	leadsJSON, err := json.Marshal(leads)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal leads")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, owner_id, name, status, leads, total_leads, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, name, string(model.JobStatusPending), string(leadsJSON), len(leads), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
	}

	return &model.Job{
		ID:         id,
		OwnerID:    ownerID,
		Name:       name,
		Status:     model.JobStatusPending,
		Leads:      leads,
		TotalLeads: len(leads),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, status, leads, total_leads, processed_leads, enriched_leads,
		        high_score_leads, progress_percent, error_message, artifact_path, created_at, updated_at
		 FROM jobs WHERE id = ?`,
		jobID,
	)
	return scanJob(row)
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, owner_id, name, status, leads, total_leads, processed_leads, enriched_leads,
	                 high_score_leads, progress_percent, error_message, artifact_path, created_at, updated_at
	          FROM jobs WHERE 1=1`
	var args []any

	if filter.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, errorMessage string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), errorMessage, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job status %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) UpdateJobProgress(ctx context.Context, jobID string, p model.JobProgress) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET processed_leads = ?, enriched_leads = ?, high_score_leads = ?,
		        progress_percent = ?, updated_at = ?
		 WHERE id = ?`,
		p.ProcessedLeads, p.EnrichedLeads, p.HighScoreLeads, p.ProgressPercent, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job progress %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) SetJobArtifact(ctx context.Context, jobID, artifactPath string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET artifact_path = ?, updated_at = ? WHERE id = ?`,
		artifactPath, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set job artifact %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) AppendLeadResult(ctx context.Context, result *model.LeadResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	breakdownJSON, err := json.Marshal(result.ScoreBreakdown)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal breakdown")
	}
	evidenceJSON, err := json.Marshal(result.Evidence)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evidence")
	}
	flagsJSON, err := json.Marshal(result.RiskFlags)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal risk flags")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lead_results (id, job_id, name, email, domain, company_name, industry, score, breakdown, evidence, risk_flags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.JobID, result.Name, result.Email, result.Domain, result.CompanyName,
		result.Industry, result.Score, string(breakdownJSON), string(evidenceJSON), string(flagsJSON), result.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert lead result for job %s", result.JobID)
}

func (s *SQLiteStore) ListLeadResults(ctx context.Context, jobID string) ([]model.LeadResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, name, email, domain, company_name, industry, score, breakdown, evidence, risk_flags, created_at
		 FROM lead_results WHERE job_id = ? ORDER BY created_at ASC, id ASC`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list lead results")
	}
	defer rows.Close()

	var results []model.LeadResult
	for rows.Next() {
		var r model.LeadResult
		var breakdownJSON, evidenceJSON, flagsJSON sql.NullString

		if err := rows.Scan(&r.ID, &r.JobID, &r.Name, &r.Email, &r.Domain, &r.CompanyName,
			&r.Industry, &r.Score, &breakdownJSON, &evidenceJSON, &flagsJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead result")
		}
		if err := unmarshalLeadResultJSON(&r, nullBytes(breakdownJSON), nullBytes(evidenceJSON), nullBytes(flagsJSON)); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list lead results iterate")
}

func (s *SQLiteStore) DeleteLeadResults(ctx context.Context, jobID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM lead_results WHERE job_id = ?`,
		jobID,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete lead results")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) AppendLog(ctx context.Context, jobID string, level model.LogLevel, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_logs (id, job_id, level, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), jobID, string(level), message, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: append log for job %s", jobID)
}

func (s *SQLiteStore) ListLogs(ctx context.Context, jobID string, limit int) ([]model.JobLogEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, level, message, created_at FROM job_logs
		 WHERE job_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list logs")
	}
	defer rows.Close()

	var entries []model.JobLogEntry
	for rows.Next() {
		var e model.JobLogEntry
		if err := rows.Scan(&e.ID, &e.JobID, &e.Level, &e.Message, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan log entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list logs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*model.Job, error) {
	var j model.Job
	var leadsJSON string

	err := row.Scan(&j.ID, &j.OwnerID, &j.Name, &j.Status, &leadsJSON, &j.TotalLeads,
		&j.ProcessedLeads, &j.EnrichedLeads, &j.HighScoreLeads, &j.ProgressPercent,
		&j.ErrorMessage, &j.ArtifactPath, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("job not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}

	if err := json.Unmarshal([]byte(leadsJSON), &j.Leads); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal leads")
	}
	return &j, nil
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}

// unmarshalLeadResultJSON fills the JSON-encoded columns of a lead result.
func unmarshalLeadResultJSON(r *model.LeadResult, breakdown, evidence, flags []byte) error {
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &r.ScoreBreakdown); err != nil {
			return eris.Wrap(err, "store: unmarshal breakdown")
		}
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &r.Evidence); err != nil {
			return eris.Wrap(err, "store: unmarshal evidence")
		}
	}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &r.RiskFlags); err != nil {
			return eris.Wrap(err, "store: unmarshal risk flags")
		}
	}
	return nil
}
