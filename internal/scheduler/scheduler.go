// Package scheduler runs enrichment jobs on a fixed worker pool.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enrichment/internal/broadcast"
	"github.com/sells-group/lead-enrichment/internal/model"
	"github.com/sells-group/lead-enrichment/internal/resilience"
	"github.com/sells-group/lead-enrichment/internal/store"
)

// JobRunner processes one job end to end. A non-nil error means the
// job failed and must be marked accordingly.
type JobRunner interface {
	Run(ctx context.Context, job *model.Job) error
}

// Config holds worker pool parameters.
type Config struct {
	// Concurrency is the number of jobs processed in parallel.
	Concurrency int
	// QueueDepth bounds how many jobs may wait for a worker.
	QueueDepth int
	// StallWindow is how long a processing job may go without a
	// persisted update before the stall detector warns. Advisory
	// only; no job is cancelled automatically.
	StallWindow time.Duration
}

type jobHandle struct {
	cancel  context.CancelFunc
	running bool
}

// Scheduler accepts jobs, hands them to a bounded worker pool, and
// tracks their lifecycle through the store. Status transitions are
// always persisted before subscribers are notified.
type Scheduler struct {
	store  store.Store
	bus    *broadcast.Broadcaster
	runner JobRunner
	cfg    Config
	retry  resilience.RetryConfig

	queue chan string
	wg    sync.WaitGroup

	mu     sync.Mutex
	active map[string]*jobHandle
}

func New(st store.Store, bus *broadcast.Broadcaster, runner JobRunner, cfg Config) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 64
	}
	return &Scheduler{
		store:  st,
		bus:    bus,
		runner: runner,
		cfg:    cfg,
		retry:  resilience.DefaultRetryConfig(),
		queue:  make(chan string, cfg.QueueDepth),
		active: make(map[string]*jobHandle),
	}
}

// Start launches the worker pool and the stall detector. Workers drain
// the queue until ctx is cancelled; call Wait to block for shutdown.
func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.cfg.Concurrency; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	if s.cfg.StallWindow > 0 {
		s.wg.Add(1)
		go s.watchStalls(ctx)
	}
	zap.L().Info("scheduler started",
		zap.Int("concurrency", s.cfg.Concurrency),
		zap.Int("queue_depth", s.cfg.QueueDepth))
}

// Wait blocks until all workers have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Enqueue submits a pending job for processing. Submitting a job that
// is already queued or running is a no-op.
func (s *Scheduler) Enqueue(ctx context.Context, jobID string) error {
	s.mu.Lock()
	if _, ok := s.active[jobID]; ok {
		s.mu.Unlock()
		return nil
	}
	s.active[jobID] = &jobHandle{}
	s.mu.Unlock()

	job, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*model.Job, error) {
		return s.store.GetJob(ctx, jobID)
	})
	if err != nil {
		s.release(jobID)
		return eris.Wrapf(err, "scheduler: enqueue %s", jobID)
	}
	if job.Status != model.JobStatusPending {
		s.release(jobID)
		return eris.Errorf("scheduler: job %s is %s, only pending jobs can be enqueued", jobID, job.Status)
	}

	select {
	case s.queue <- jobID:
		return nil
	default:
		s.release(jobID)
		return eris.Errorf("scheduler: queue full, cannot enqueue %s", jobID)
	}
}

// Retry resets a failed job and puts it back on the queue. Previous
// results and counters are cleared so the rerun starts from scratch.
func (s *Scheduler) Retry(ctx context.Context, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return eris.Wrapf(err, "scheduler: retry %s", jobID)
	}
	if job.Status != model.JobStatusFailed {
		return eris.Errorf("scheduler: job %s is %s, only failed jobs can be retried", jobID, job.Status)
	}

	if _, err := s.store.DeleteLeadResults(ctx, jobID); err != nil {
		return eris.Wrapf(err, "scheduler: clear results for %s", jobID)
	}
	if err := s.store.UpdateJobProgress(ctx, jobID, model.JobProgress{}); err != nil {
		return eris.Wrapf(err, "scheduler: reset progress for %s", jobID)
	}
	if err := s.writeStatus(ctx, jobID, model.JobStatusPending, ""); err != nil {
		return err
	}
	if err := s.store.AppendLog(ctx, jobID, model.LogLevelInfo, "job requeued for retry"); err != nil {
		return eris.Wrapf(err, "scheduler: log retry for %s", jobID)
	}

	return s.Enqueue(ctx, jobID)
}

// Cancel stops a running job. Jobs that are queued but not yet picked
// up, or already terminal, cannot be cancelled.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.active[jobID]
	if !ok || !handle.running {
		return eris.Errorf("scheduler: job %s is not running", jobID)
	}
	handle.cancel()
	return nil
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-s.queue:
			s.process(ctx, jobID)
		}
	}
}

func (s *Scheduler) process(ctx context.Context, jobID string) {
	defer s.release(jobID)

	job, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*model.Job, error) {
		return s.store.GetJob(ctx, jobID)
	})
	if err != nil {
		zap.L().Error("failed to load queued job",
			zap.String("job_id", jobID),
			zap.String("class", resilience.ClassifyError(err)),
			zap.Error(err))
		return
	}
	if job.Status != model.JobStatusPending {
		zap.L().Warn("skipping job in unexpected state",
			zap.String("job_id", jobID),
			zap.String("status", string(job.Status)))
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if handle, ok := s.active[jobID]; ok {
		handle.cancel = cancel
		handle.running = true
	}
	s.mu.Unlock()

	if err := s.writeStatus(ctx, jobID, model.JobStatusProcessing, ""); err != nil {
		zap.L().Error("failed to mark job processing", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	zap.L().Info("job started", zap.String("job_id", jobID), zap.Int("leads", job.TotalLeads))

	if err := s.runner.Run(jobCtx, job); err != nil {
		s.fail(ctx, jobID, err)
		return
	}
	zap.L().Info("job completed", zap.String("job_id", jobID))
}

// fail marks the job failed and records why. Failure writes use the
// parent context so a cancelled job can still be marked.
func (s *Scheduler) fail(ctx context.Context, jobID string, cause error) {
	msg := cause.Error()
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		msg = "job cancelled"
	}

	zap.L().Error("job failed",
		zap.String("job_id", jobID),
		zap.String("class", resilience.ClassifyError(cause)),
		zap.Error(cause))

	if err := s.writeStatus(ctx, jobID, model.JobStatusFailed, msg); err != nil {
		zap.L().Error("failed to mark job failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if err := s.store.AppendLog(ctx, jobID, model.LogLevelError, msg); err != nil {
		zap.L().Error("failed to log job failure", zap.String("job_id", jobID), zap.Error(err))
	}
	s.bus.Publish(broadcast.ErrorEvent(jobID, msg))
}

// writeStatus persists a status transition with retry, then notifies
// subscribers.
func (s *Scheduler) writeStatus(ctx context.Context, jobID string, status model.JobStatus, errorMessage string) error {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("store", "update_job_status")

	err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return s.store.UpdateJobStatus(ctx, jobID, status, errorMessage)
	})
	if err != nil {
		return eris.Wrapf(err, "scheduler: set job %s status %s", jobID, status)
	}

	if job, err := s.store.GetJob(ctx, jobID); err == nil {
		s.bus.Publish(broadcast.StatusEvent(job))
	}
	return nil
}

func (s *Scheduler) release(jobID string) {
	s.mu.Lock()
	delete(s.active, jobID)
	s.mu.Unlock()
}

// watchStalls periodically warns about processing jobs whose persisted
// state has not moved within the stall window.
func (s *Scheduler) watchStalls(ctx context.Context) {
	defer s.wg.Done()

	interval := s.cfg.StallWindow / 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkStalls(ctx)
		}
	}
}

// checkStalls scans the store rather than the in-memory active set so
// that jobs orphaned in processing by a restart are also caught.
func (s *Scheduler) checkStalls(ctx context.Context) {
	jobs, err := s.store.ListJobs(ctx, store.JobFilter{Status: model.JobStatusProcessing})
	if err != nil {
		zap.L().Error("failed to list processing jobs for stall check", zap.Error(err))
		return
	}

	for _, job := range jobs {
		idle := time.Since(job.UpdatedAt)
		if idle < s.cfg.StallWindow {
			continue
		}

		zap.L().Warn("job appears stalled",
			zap.String("job_id", job.ID),
			zap.Duration("idle", idle))

		msg := "no progress recorded within the stall window"
		if err := s.store.AppendLog(ctx, job.ID, model.LogLevelWarn, msg); err != nil {
			zap.L().Error("failed to log stall warning", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		s.bus.Publish(broadcast.LogEvent(job.ID, model.LogLevelWarn, msg))
	}
}
