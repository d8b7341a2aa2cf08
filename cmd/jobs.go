package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-enrichment/internal/model"
	"github.com/sells-group/lead-enrichment/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect enrichment jobs",
	Long:  "Commands for listing, viewing, and summarizing enrichment jobs.",
}

// -- jobs list --

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrichment jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		owner, _ := cmd.Flags().GetString("owner")
		limit, _ := cmd.Flags().GetInt("limit")

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			OwnerID: owner,
			Status:  model.JobStatus(status),
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "jobs list")
		}

		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.")
			return nil
		}

		formatJobsList(os.Stdout, jobs)
		return nil
	},
}

// -- jobs show --

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show full details of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	},
}

// -- jobs logs --

var jobsLogsCmd = &cobra.Command{
	Use:   "logs <job-id>",
	Short: "Show the log trail of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		logs, err := st.ListLogs(ctx, args[0], limit)
		if err != nil {
			return eris.Wrap(err, "jobs logs")
		}

		for _, entry := range logs {
			fmt.Printf("%s  %-5s  %s\n",
				entry.CreatedAt.Format("2006-01-02 15:04:05"),
				entry.Level,
				entry.Message,
			)
		}
		return nil
	},
}

// -- jobs stats --

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate job statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		jobs, err := st.ListJobs(ctx, store.JobFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "jobs stats")
		}

		formatJobStats(os.Stdout, computeJobStats(jobs))
		return nil
	},
}

func init() {
	jobsListCmd.Flags().String("status", "", "filter by job status (pending, processing, completed, failed)")
	jobsListCmd.Flags().String("owner", "", "filter by owner id")
	jobsListCmd.Flags().Int("limit", 50, "max number of jobs to display")

	jobsLogsCmd.Flags().Int("limit", 200, "max number of log lines to display")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsLogsCmd)
	jobsCmd.AddCommand(jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}

// jobStats holds aggregate statistics computed from a set of jobs.
type jobStats struct {
	Total      int
	Completed  int
	Failed     int
	InFlight   int
	Leads      int
	Enriched   int
	HighScore  int
	AvgDurSecs float64
}

// computeJobStats computes aggregate statistics from a list of jobs.
func computeJobStats(jobs []model.Job) jobStats {
	var s jobStats
	s.Total = len(jobs)

	var totalDurSecs float64
	var durCount int

	for _, j := range jobs {
		switch j.Status {
		case model.JobStatusCompleted:
			s.Completed++
			totalDurSecs += j.UpdatedAt.Sub(j.CreatedAt).Seconds()
			durCount++
		case model.JobStatusFailed:
			s.Failed++
		default:
			s.InFlight++
		}
		s.Leads += j.ProcessedLeads
		s.Enriched += j.EnrichedLeads
		s.HighScore += j.HighScoreLeads
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDurSecs / float64(durCount)
	}
	return s
}

// formatJobsList writes a tabular list of jobs to w.
func formatJobsList(out io.Writer, jobs []model.Job) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tOWNER\tNAME\tSTATUS\tPROGRESS\tLEADS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t----\t------\t--------\t-----\t-------")

	for _, j := range jobs {
		name := j.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%d/%d\t%s\n",
			truncateID(j.ID),
			j.OwnerID,
			name,
			j.Status,
			j.ProgressPercent,
			j.ProcessedLeads,
			j.TotalLeads,
			j.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatJobStats writes aggregate stats to w.
func formatJobStats(out io.Writer, s jobStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total jobs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Completed:\t%d\n", s.Completed)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "In flight:\t%d\n", s.InFlight)
	_, _ = fmt.Fprintf(w, "Leads processed:\t%d\n", s.Leads)
	_, _ = fmt.Fprintf(w, "Leads enriched:\t%d\n", s.Enriched)
	_, _ = fmt.Fprintf(w, "High score leads:\t%d\n", s.HighScore)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
