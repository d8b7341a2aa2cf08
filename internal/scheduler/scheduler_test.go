package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-enrichment/internal/broadcast"
	"github.com/sells-group/lead-enrichment/internal/model"
	"github.com/sells-group/lead-enrichment/internal/store"
)

// stubRunner records processed jobs and delegates to a configurable fn.
type stubRunner struct {
	mu   sync.Mutex
	runs []string
	fn   func(ctx context.Context, job *model.Job) error
}

func (r *stubRunner) Run(ctx context.Context, job *model.Job) error {
	r.mu.Lock()
	r.runs = append(r.runs, job.ID)
	r.mu.Unlock()
	if r.fn != nil {
		return r.fn(ctx, job)
	}
	return nil
}

func (r *stubRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

type env struct {
	store  store.Store
	bus    *broadcast.Broadcaster
	runner *stubRunner
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	return &env{
		store:  s,
		bus:    broadcast.New(&broadcast.OwnerAuthorizer{Jobs: s}, s),
		runner: &stubRunner{},
	}
}

func (e *env) newScheduler(cfg Config) *Scheduler {
	return New(e.store, e.bus, e.runner, cfg)
}

func (e *env) createJob(t *testing.T) *model.Job {
	t.Helper()
	job, err := e.store.CreateJob(context.Background(), "user-1", "leads.csv",
		[]model.Lead{{Email: "jane@acme.com"}})
	require.NoError(t, err)
	return job
}

func (e *env) jobStatus(t *testing.T, jobID string) model.JobStatus {
	t.Helper()
	job, err := e.store.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	return job.Status
}

func TestEnqueueAndProcess(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The real runner marks its job completed; the stub does the same.
	e.runner.fn = func(ctx context.Context, job *model.Job) error {
		return e.store.UpdateJobStatus(ctx, job.ID, model.JobStatusCompleted, "")
	}

	s := e.newScheduler(Config{Concurrency: 2})
	s.Start(ctx)

	job := e.createJob(t)
	require.NoError(t, s.Enqueue(ctx, job.ID))

	require.Eventually(t, func() bool {
		return e.jobStatus(t, job.ID) == model.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, e.runner.runCount())
}

func TestEnqueue_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	e.runner.fn = func(ctx context.Context, job *model.Job) error {
		<-release
		return e.store.UpdateJobStatus(ctx, job.ID, model.JobStatusCompleted, "")
	}

	s := e.newScheduler(Config{Concurrency: 2})
	s.Start(ctx)

	job := e.createJob(t)
	require.NoError(t, s.Enqueue(ctx, job.ID))
	require.NoError(t, s.Enqueue(ctx, job.ID))
	require.NoError(t, s.Enqueue(ctx, job.ID))

	close(release)
	require.Eventually(t, func() bool {
		return e.jobStatus(t, job.ID) == model.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, e.runner.runCount())
}

func TestEnqueue_RejectsNonPending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	job := e.createJob(t)
	require.NoError(t, e.store.UpdateJobStatus(ctx, job.ID, model.JobStatusCompleted, ""))

	s := e.newScheduler(Config{})
	err := s.Enqueue(ctx, job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only pending jobs")
}

func TestEnqueue_RejectsUnknownJob(t *testing.T) {
	e := newEnv(t)
	s := e.newScheduler(Config{})
	assert.Error(t, s.Enqueue(context.Background(), "missing"))
}

func TestEnqueue_QueueFull(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// No workers are started, so the queue never drains.
	s := e.newScheduler(Config{QueueDepth: 1})

	first := e.createJob(t)
	second := e.createJob(t)
	require.NoError(t, s.Enqueue(ctx, first.ID))

	err := s.Enqueue(ctx, second.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")

	// A rejected job is not left marked active.
	require.Error(t, s.Enqueue(ctx, second.ID))
	assert.Contains(t, err.Error(), "queue full")
}

func TestRunnerFailureMarksJobFailed(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.runner.fn = func(context.Context, *model.Job) error {
		return eris.New("provider meltdown")
	}

	s := e.newScheduler(Config{Concurrency: 1})
	s.Start(ctx)

	job := e.createJob(t)
	require.NoError(t, s.Enqueue(ctx, job.ID))

	require.Eventually(t, func() bool {
		return e.jobStatus(t, job.ID) == model.JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	got, err := e.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Contains(t, got.ErrorMessage, "provider meltdown")

	logs, err := e.store.ListLogs(ctx, job.ID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, model.LogLevelError, logs[len(logs)-1].Level)
}

func TestCancelRunningJob(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.runner.fn = func(ctx context.Context, _ *model.Job) error {
		<-ctx.Done()
		return ctx.Err()
	}

	s := e.newScheduler(Config{Concurrency: 1})
	s.Start(ctx)

	job := e.createJob(t)
	require.NoError(t, s.Enqueue(ctx, job.ID))

	require.Eventually(t, func() bool {
		return s.Cancel(ctx, job.ID) == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return e.jobStatus(t, job.ID) == model.JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	got, err := e.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "job cancelled", got.ErrorMessage)
}

func TestCancel_NotRunning(t *testing.T) {
	e := newEnv(t)
	s := e.newScheduler(Config{})

	job := e.createJob(t)
	err := s.Cancel(context.Background(), job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestRetryFailedJob(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.runner.fn = func(ctx context.Context, job *model.Job) error {
		return e.store.UpdateJobStatus(ctx, job.ID, model.JobStatusCompleted, "")
	}

	job := e.createJob(t)
	require.NoError(t, e.store.UpdateJobStatus(ctx, job.ID, model.JobStatusFailed, "boom"))
	require.NoError(t, e.store.UpdateJobProgress(ctx, job.ID,
		model.JobProgress{ProcessedLeads: 1, ProgressPercent: 100}))
	require.NoError(t, e.store.AppendLeadResult(ctx,
		&model.LeadResult{JobID: job.ID, Email: "jane@acme.com", Score: 40}))

	s := e.newScheduler(Config{Concurrency: 1})
	s.Start(ctx)
	require.NoError(t, s.Retry(ctx, job.ID))

	require.Eventually(t, func() bool {
		return e.jobStatus(t, job.ID) == model.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	// Stale results and counters were cleared before the rerun.
	results, err := e.store.ListLeadResults(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, e.runner.runCount())
}

func TestRetry_RejectsNonFailed(t *testing.T) {
	e := newEnv(t)
	s := e.newScheduler(Config{})

	job := e.createJob(t)
	err := s.Retry(context.Background(), job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only failed jobs")
}

func TestStallWarning(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blocked := make(chan struct{})
	e.runner.fn = func(ctx context.Context, _ *model.Job) error {
		defer close(blocked)
		<-ctx.Done()
		return ctx.Err()
	}

	s := e.newScheduler(Config{Concurrency: 1, StallWindow: 100 * time.Millisecond})
	s.Start(ctx)

	job := e.createJob(t)
	require.NoError(t, s.Enqueue(ctx, job.ID))

	require.Eventually(t, func() bool {
		logs, err := e.store.ListLogs(context.Background(), job.ID, 0)
		if err != nil {
			return false
		}
		for _, entry := range logs {
			if entry.Level == model.LogLevelWarn {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)

	// The stalled job was warned about, never cancelled.
	assert.Equal(t, model.JobStatusProcessing, e.jobStatus(t, job.ID))
	cancel()
	<-blocked
}

func TestStallWarning_OrphanedProcessingJob(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A job left in processing by a previous run of the process. No
	// worker holds it, so only the store knows it exists.
	job := e.createJob(t)
	require.NoError(t, e.store.UpdateJobStatus(ctx, job.ID, model.JobStatusProcessing, ""))

	s := e.newScheduler(Config{Concurrency: 1, StallWindow: 50 * time.Millisecond})
	s.Start(ctx)

	require.Eventually(t, func() bool {
		logs, err := e.store.ListLogs(context.Background(), job.ID, 0)
		if err != nil {
			return false
		}
		for _, entry := range logs {
			if entry.Level == model.LogLevelWarn {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, model.JobStatusProcessing, e.jobStatus(t, job.ID))
	assert.Zero(t, e.runner.runCount())
}
