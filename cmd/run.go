package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enrichment/internal/broadcast"
	"github.com/sells-group/lead-enrichment/internal/export"
	"github.com/sells-group/lead-enrichment/internal/model"
	"github.com/sells-group/lead-enrichment/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run <leads.csv>",
	Short: "Run an enrichment job from a CSV file",
	Long:  "Creates a job from a CSV of leads, processes it in batches, and writes the results workbook.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "open %s", args[0])
		}
		defer f.Close() //nolint:errcheck

		leads, err := parseLeadsCSV(f)
		if err != nil {
			return err
		}
		if len(leads) == 0 {
			return eris.New("no leads found in input")
		}

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

		owner, _ := cmd.Flags().GetString("owner")
		job, err := st.CreateJob(ctx, owner, args[0], leads)
		if err != nil {
			return eris.Wrap(err, "create job")
		}
		zap.L().Info("job created", zap.String("job_id", job.ID), zap.Int("leads", len(leads)))

		bus := broadcast.New(&broadcast.OwnerAuthorizer{Jobs: st}, st)
		r := runner.New(st, bus, unit, export.NewXLSX(cfg.Export.Dir), runner.Config{
			BatchSize:          cfg.Batch.Size,
			Delay:              cfg.Batch.Delay(),
			HighScoreThreshold: cfg.Batch.HighScoreThreshold,
		})

		if err := st.UpdateJobStatus(ctx, job.ID, model.JobStatusProcessing, ""); err != nil {
			return eris.Wrap(err, "mark processing")
		}
		if err := r.Run(ctx, job); err != nil {
			if markErr := st.UpdateJobStatus(ctx, job.ID, model.JobStatusFailed, err.Error()); markErr != nil {
				zap.L().Error("failed to mark job failed", zap.Error(markErr))
			}
			return eris.Wrap(err, "run job")
		}

		done, err := st.GetJob(ctx, job.ID)
		if err != nil {
			return eris.Wrap(err, "load finished job")
		}

		fmt.Printf("Job %s completed\n", truncateID(done.ID))
		fmt.Printf("  Processed:  %d\n", done.ProcessedLeads)
		fmt.Printf("  Enriched:   %d\n", done.EnrichedLeads)
		fmt.Printf("  High score: %d\n", done.HighScoreLeads)
		fmt.Printf("  Artifact:   %s\n", done.ArtifactPath)
		return nil
	},
}

// parseLeadsCSV reads leads from CSV. The first row is a header;
// recognized columns are name, email, company, domain, and industry in
// any order. Rows without an email are skipped.
func parseLeadsCSV(r io.Reader) ([]model.Lead, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["email"]; !ok {
		return nil, eris.New("csv must have an email column")
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var leads []model.Lead
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read csv row")
		}

		email := field(row, "email")
		if email == "" {
			continue
		}
		leads = append(leads, model.Lead{
			Name:         field(row, "name"),
			Email:        email,
			Company:      field(row, "company"),
			Domain:       field(row, "domain"),
			IndustryHint: field(row, "industry"),
		})
	}
	return leads, nil
}

func init() {
	runCmd.Flags().String("owner", "cli", "owner id recorded on the job")
	rootCmd.AddCommand(runCmd)
}
