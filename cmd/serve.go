package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enrichment/internal/broadcast"
	"github.com/sells-group/lead-enrichment/internal/export"
	"github.com/sells-group/lead-enrichment/internal/model"
	"github.com/sells-group/lead-enrichment/internal/runner"
	"github.com/sells-group/lead-enrichment/internal/scheduler"
	"github.com/sells-group/lead-enrichment/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enrichment job server",
	Long:  "Runs the HTTP API and the background worker pool that processes enrichment jobs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		unit, err := initUnit()
		if err != nil {
			return err
		}

		bus := broadcast.New(&broadcast.OwnerAuthorizer{Jobs: st}, st)
		r := runner.New(st, bus, unit, export.NewXLSX(cfg.Export.Dir), runner.Config{
			BatchSize:          cfg.Batch.Size,
			Delay:              cfg.Batch.Delay(),
			HighScoreThreshold: cfg.Batch.HighScoreThreshold,
		})
		sched := scheduler.New(st, bus, r, scheduler.Config{
			Concurrency: cfg.Scheduler.Concurrency,
			QueueDepth:  cfg.Scheduler.QueueDepth,
			StallWindow: cfg.Scheduler.StallWindow(),
		})
		sched.Start(ctx)

		if err := requeuePending(ctx, st, sched); err != nil {
			return err
		}

		api := &apiServer{store: st, bus: bus, sched: sched}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		sched.Wait()
		return nil
	},
}

// requeuePending puts jobs that were waiting when the process last
// stopped back on the queue.
func requeuePending(ctx context.Context, st store.Store, sched *scheduler.Scheduler) error {
	pending, err := st.ListJobs(ctx, store.JobFilter{Status: model.JobStatusPending})
	if err != nil {
		return eris.Wrap(err, "list pending jobs")
	}
	for _, job := range pending {
		if err := sched.Enqueue(ctx, job.ID); err != nil {
			zap.L().Warn("could not requeue pending job",
				zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if len(pending) > 0 {
		zap.L().Info("requeued pending jobs", zap.Int("count", len(pending)))
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
