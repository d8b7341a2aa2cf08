package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"update_job_status":   `UPDATE jobs SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
	"update_job_progress": `UPDATE jobs SET processed_leads = $1, enriched_leads = $2, high_score_leads = $3, progress_percent = $4, updated_at = $5 WHERE id = $6`,
	"get_job":             `SELECT id, owner_id, name, status, leads, total_leads, processed_leads, enriched_leads, high_score_leads, progress_percent, error_message, artifact_path, created_at, updated_at FROM jobs WHERE id = $1`,
	"insert_lead_result":  `INSERT INTO lead_results (id, job_id, name, email, domain, company_name, industry, score, breakdown, evidence, risk_flags, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
	"insert_job_log":      `INSERT INTO job_logs (id, job_id, level, message, created_at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	owner_id         TEXT NOT NULL,
	name             TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	leads            JSONB NOT NULL,
	total_leads      INTEGER NOT NULL DEFAULT 0,
	processed_leads  INTEGER NOT NULL DEFAULT 0,
	enriched_leads   INTEGER NOT NULL DEFAULT 0,
	high_score_leads INTEGER NOT NULL DEFAULT 0,
	progress_percent INTEGER NOT NULL DEFAULT 0,
	error_message    TEXT NOT NULL DEFAULT '',
	artifact_path    TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS lead_results (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	job_id       TEXT NOT NULL REFERENCES jobs(id),
	name         TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL,
	domain       TEXT NOT NULL DEFAULT '',
	company_name TEXT NOT NULL DEFAULT '',
	industry     TEXT NOT NULL DEFAULT '',
	score        INTEGER NOT NULL DEFAULT 0,
	breakdown    JSONB,
	evidence     JSONB,
	risk_flags   JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS job_logs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	job_id     TEXT NOT NULL REFERENCES jobs(id),
	level      TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs(owner_id);
CREATE INDEX IF NOT EXISTS idx_lead_results_job_id ON lead_results(job_id);
CREATE INDEX IF NOT EXISTS idx_job_logs_job_id ON job_logs(job_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, ownerID, name string, leads []model.Lead) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	leadsJSON, err := json.Marshal(leads)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal leads")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, owner_id, name, status, leads, total_leads, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, ownerID, name, string(model.JobStatusPending), leadsJSON, len(leads), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
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

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var j model.Job
	var leadsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, status, leads, total_leads, processed_leads, enriched_leads,
		        high_score_leads, progress_percent, error_message, artifact_path, created_at, updated_at
		 FROM jobs WHERE id = $1`,
		jobID,
	).Scan(&j.ID, &j.OwnerID, &j.Name, &j.Status, &leadsJSON, &j.TotalLeads,
		&j.ProcessedLeads, &j.EnrichedLeads, &j.HighScoreLeads, &j.ProgressPercent,
		&j.ErrorMessage, &j.ArtifactPath, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}

	if err := json.Unmarshal(leadsJSON, &j.Leads); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal leads")
	}
	return &j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, owner_id, name, status, leads, total_leads, processed_leads, enriched_leads,
	                 high_score_leads, progress_percent, error_message, artifact_path, created_at, updated_at
	          FROM jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.OwnerID != "" {
		query += fmt.Sprintf(` AND owner_id = $%d`, argIdx)
		args = append(args, filter.OwnerID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		var leadsJSON []byte

		if err := rows.Scan(&j.ID, &j.OwnerID, &j.Name, &j.Status, &leadsJSON, &j.TotalLeads,
			&j.ProcessedLeads, &j.EnrichedLeads, &j.HighScoreLeads, &j.ProgressPercent,
			&j.ErrorMessage, &j.ArtifactPath, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		if err := json.Unmarshal(leadsJSON, &j.Leads); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal leads")
		}
		jobs = append(jobs, j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, errorMessage string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		string(status), errorMessage, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job status %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) UpdateJobProgress(ctx context.Context, jobID string, p model.JobProgress) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET processed_leads = $1, enriched_leads = $2, high_score_leads = $3,
		        progress_percent = $4, updated_at = $5
		 WHERE id = $6`,
		p.ProcessedLeads, p.EnrichedLeads, p.HighScoreLeads, p.ProgressPercent, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job progress %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) SetJobArtifact(ctx context.Context, jobID, artifactPath string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET artifact_path = $1, updated_at = $2 WHERE id = $3`,
		artifactPath, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set job artifact %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) AppendLeadResult(ctx context.Context, result *model.LeadResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	breakdownJSON, err := json.Marshal(result.ScoreBreakdown)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal breakdown")
	}
	evidenceJSON, err := json.Marshal(result.Evidence)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evidence")
	}
	flagsJSON, err := json.Marshal(result.RiskFlags)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal risk flags")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO lead_results (id, job_id, name, email, domain, company_name, industry, score, breakdown, evidence, risk_flags, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		result.ID, result.JobID, result.Name, result.Email, result.Domain, result.CompanyName,
		result.Industry, result.Score, breakdownJSON, evidenceJSON, flagsJSON, result.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert lead result for job %s", result.JobID)
}

func (s *PostgresStore) ListLeadResults(ctx context.Context, jobID string) ([]model.LeadResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, name, email, domain, company_name, industry, score, breakdown, evidence, risk_flags, created_at
		 FROM lead_results WHERE job_id = $1 ORDER BY created_at ASC, id ASC`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list lead results")
	}
	defer rows.Close()

	var results []model.LeadResult
	for rows.Next() {
		var r model.LeadResult
		var breakdownJSON, evidenceJSON, flagsJSON []byte

		if err := rows.Scan(&r.ID, &r.JobID, &r.Name, &r.Email, &r.Domain, &r.CompanyName,
			&r.Industry, &r.Score, &breakdownJSON, &evidenceJSON, &flagsJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead result")
		}
		if err := unmarshalLeadResultJSON(&r, breakdownJSON, evidenceJSON, flagsJSON); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list lead results iterate")
}

func (s *PostgresStore) DeleteLeadResults(ctx context.Context, jobID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM lead_results WHERE job_id = $1`,
		jobID,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete lead results")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) AppendLog(ctx context.Context, jobID string, level model.LogLevel, message string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_logs (id, job_id, level, message, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), jobID, string(level), message, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: append log for job %s", jobID)
}

func (s *PostgresStore) ListLogs(ctx context.Context, jobID string, limit int) ([]model.JobLogEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, level, message, created_at FROM job_logs
		 WHERE job_id = $1 ORDER BY created_at ASC, id ASC LIMIT $2`,
		jobID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list logs")
	}
	defer rows.Close()

	var entries []model.JobLogEntry
	for rows.Next() {
		var e model.JobLogEntry
		if err := rows.Scan(&e.ID, &e.JobID, &e.Level, &e.Message, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan log entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list logs iterate")
}
