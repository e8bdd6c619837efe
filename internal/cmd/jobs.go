package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/seqforge/prosol/pkg/jobs"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect job records",
	Long: `Inspect job records written by the prosol server.

This command group reads the on-disk job store directly, so it works even
when no server is running:

- stable job ids
- predictable on-disk locations
- optional JSON output for machine parsing

Cancellation goes through the server's /jobs/{job_id}/cancel endpoint;
records on disk are never mutated here.`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	RunE:  runJobsList,
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job_id>",
	Short: "Show status for a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsStatus,
}

var jobsLogsCmd = &cobra.Command{
	Use:   "logs <job_id>",
	Short: "Show the log for a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsLogs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsLogsCmd)

	jobsListCmd.Flags().Bool("json", false, "Output as JSON")
	jobsListCmd.Flags().String("status", "", "Filter by state (pending, running, completed, failed, cancelled)")
	jobsStatusCmd.Flags().Bool("json", false, "Output as JSON")
	jobsLogsCmd.Flags().Int("tail", jobs.DefaultTail, "Show last N lines (0 = whole log)")
}

func jobsStore() *jobs.Store {
	return jobs.NewStore(filepath.Join(cfg.Jobs.DataDir, "jobs"))
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	statusFilter, _ := cmd.Flags().GetString("status")

	var filter jobs.State
	if statusFilter != "" {
		st, err := jobs.ParseState(statusFilter)
		if err != nil {
			return err
		}
		filter = st
	}

	store := jobsStore()
	records, err := store.List()
	if err != nil {
		return err
	}
	if filter != "" {
		kept := records[:0]
		for _, rec := range records {
			if rec.State == filter {
				kept = append(kept, rec)
			}
		}
		records = kept
	}
	if len(records) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No jobs found")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "JOB ID\tNAME\tKIND\tSTATE\tCREATED\tFINISHED")
	for _, rec := range records {
		name := rec.Name
		if name == "" {
			name = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortJobID(rec.ID),
			name,
			rec.Kind,
			rec.State,
			rec.CreatedAt.UTC().Format(time.RFC3339),
			formatOptionalTime(rec.FinishedAt),
		)
	}

	return nil
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store := jobsStore()
	jobID, err := resolveJobID(store, args[0])
	if err != nil {
		return err
	}

	rec, err := store.Get(jobID)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	_, _ = fmt.Fprintf(os.Stdout, "job_id=%s\n", rec.ID)
	if rec.Name != "" {
		_, _ = fmt.Fprintf(os.Stdout, "name=%s\n", rec.Name)
	}
	_, _ = fmt.Fprintf(os.Stdout, "kind=%s\n", rec.Kind)
	_, _ = fmt.Fprintf(os.Stdout, "state=%s\n", rec.State)
	_, _ = fmt.Fprintf(os.Stdout, "created_at=%s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
	if rec.StartedAt != nil {
		_, _ = fmt.Fprintf(os.Stdout, "started_at=%s\n", rec.StartedAt.UTC().Format(time.RFC3339))
	}
	if rec.FinishedAt != nil {
		_, _ = fmt.Fprintf(os.Stdout, "finished_at=%s\n", rec.FinishedAt.UTC().Format(time.RFC3339))
	}
	if rec.Error != nil {
		_, _ = fmt.Fprintf(os.Stdout, "error_kind=%s\n", rec.Error.Kind)
		_, _ = fmt.Fprintf(os.Stdout, "error=%s\n", rec.Error.Message)
	}
	if rec.Result != nil {
		for key, path := range rec.Result.Artifacts {
			_, _ = fmt.Fprintf(os.Stdout, "artifact.%s=%s\n", key, path)
		}
	}

	return nil
}

func runJobsLogs(cmd *cobra.Command, args []string) error {
	tailN, _ := cmd.Flags().GetInt("tail")
	if tailN < 0 {
		tailN = 0
	}

	store := jobsStore()
	jobID, err := resolveJobID(store, args[0])
	if err != nil {
		return err
	}

	logPath := store.LogPath(jobID)
	if tailN == 0 {
		f, err := os.Open(logPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		defer func() { _ = f.Close() }()
		_, err = io.Copy(os.Stdout, f)
		return err
	}

	lines, _, err := jobs.ReadTail(logPath, tailN)
	if err != nil {
		return err
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(os.Stdout, line)
	}
	return nil
}

func shortJobID(jobID string) string {
	jobID = strings.TrimSpace(jobID)
	if len(jobID) <= 12 {
		return jobID
	}
	return jobID[:12]
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// resolveJobID accepts a full job id or a unique prefix (table-friendly
// short ids).
func resolveJobID(store *jobs.Store, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("job_id is required")
	}

	// Exact match first.
	if _, err := store.Get(input); err == nil {
		return input, nil
	}

	records, err := store.List()
	if err != nil {
		return "", err
	}
	matches := make([]string, 0, 2)
	for _, rec := range records {
		if strings.HasPrefix(rec.ID, input) {
			matches = append(matches, rec.ID)
		}
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("job not found: %s", input)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("job id prefix is ambiguous (%d matches); use the full job_id", len(matches))
	}
	return matches[0], nil
}
