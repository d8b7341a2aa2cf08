// Package runner drives a single job through batched lead enrichment.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-enrichment/internal/broadcast"
	"github.com/sells-group/lead-enrichment/internal/export"
	"github.com/sells-group/lead-enrichment/internal/model"
	"github.com/sells-group/lead-enrichment/internal/store"
)

// Enricher produces a result for one lead. Implementations never
// return an error; a lead that cannot be enriched yields a degraded
// result instead.
type Enricher interface {
	Enrich(ctx context.Context, lead model.Lead) model.LeadResult
}

// Config holds batching parameters.
type Config struct {
	BatchSize          int
	Delay              time.Duration
	HighScoreThreshold int
}

// Runner processes a job's leads in fixed-size batches, persisting
// results and progress as it goes. State is always written to the
// store before subscribers are notified.
type Runner struct {
	store    store.Store
	bus      *broadcast.Broadcaster
	enricher Enricher
	exporter export.Exporter
	cfg      Config
}

func New(st store.Store, bus *broadcast.Broadcaster, enricher Enricher, exporter export.Exporter, cfg Config) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	return &Runner{store: st, bus: bus, enricher: enricher, exporter: exporter, cfg: cfg}
}

// Run enriches every lead of the job and marks it completed. A non-nil
// return means the job must be marked failed by the caller; partial
// results written so far stay persisted.
func (r *Runner) Run(ctx context.Context, job *model.Job) error {
	total := len(job.Leads)
	limiter := rate.NewLimiter(rate.Every(r.cfg.Delay), 1)

	// Cancellation is observed only at batch boundaries. Units already
	// in flight finish, and their results and counters must land even
	// while the job context is being torn down.
	persistCtx := context.WithoutCancel(ctx)

	var processed, enriched, highScore int
	for start := 0; start < total; start += r.cfg.BatchSize {
		// The first wait is free; every later one enforces the
		// inter-batch delay and observes cancellation.
		if err := limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "runner: wait between batches")
		}

		end := start + r.cfg.BatchSize
		if end > total {
			end = total
		}
		batch := job.Leads[start:end]

		results := make([]model.LeadResult, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, lead := range batch {
			g.Go(func() error {
				res := r.enricher.Enrich(gctx, lead)
				res.JobID = job.ID
				if err := r.store.AppendLeadResult(persistCtx, &res); err != nil {
					return eris.Wrapf(err, "runner: persist result for %s", lead.Email)
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		// Every unit persists exactly one result, so enriched tracks
		// the persisted count, degraded results included.
		processed += len(batch)
		enriched += len(batch)
		for _, res := range results {
			if res.HighScore(r.cfg.HighScoreThreshold) {
				highScore++
			}
		}

		progress := model.JobProgress{
			ProcessedLeads:  processed,
			EnrichedLeads:   enriched,
			HighScoreLeads:  highScore,
			ProgressPercent: processed * 100 / total,
		}
		if err := r.store.UpdateJobProgress(persistCtx, job.ID, progress); err != nil {
			return eris.Wrap(err, "runner: update progress")
		}
		r.bus.Publish(broadcast.ProgressEvent(job.ID, progress))

		msg := fmt.Sprintf("processed %d/%d leads", processed, total)
		if err := r.store.AppendLog(persistCtx, job.ID, model.LogLevelInfo, msg); err != nil {
			return eris.Wrap(err, "runner: append log")
		}
		r.bus.Publish(broadcast.LogEvent(job.ID, model.LogLevelInfo, msg))

		zap.L().Info("batch complete",
			zap.String("job_id", job.ID),
			zap.Int("processed", processed),
			zap.Int("total", total))

		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "runner: job cancelled")
		}
	}

	return r.finish(ctx, job)
}

// finish exports the artifact and marks the job completed.
func (r *Runner) finish(ctx context.Context, job *model.Job) error {
	results, err := r.store.ListLeadResults(ctx, job.ID)
	if err != nil {
		return eris.Wrap(err, "runner: list results for export")
	}

	artifact, err := r.exporter.Export(ctx, job, results)
	if err != nil {
		return eris.Wrap(err, "runner: export results")
	}
	if err := r.store.SetJobArtifact(ctx, job.ID, artifact); err != nil {
		return eris.Wrap(err, "runner: record artifact")
	}

	if err := r.store.UpdateJobStatus(ctx, job.ID, model.JobStatusCompleted, ""); err != nil {
		return eris.Wrap(err, "runner: mark completed")
	}
	r.bus.Publish(broadcast.CompleteEvent(job.ID, artifact))
	return nil
}
