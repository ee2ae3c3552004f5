package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var (
	jobsProfile string
	jobsStatus  string
	jobsLimit   int
	jobsJSON    bool
	jobJSON     bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List ingestion jobs",
	Long:  `Lists recorded ingestion jobs, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runJobs,
}

var jobCmd = &cobra.Command{
	Use:   "job [job-id]",
	Short: "Show one ingestion job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJob,
}

func init() {
	jobsCmd.Flags().StringVarP(&jobsProfile, "profile", "p", "", "only jobs of this profile")
	jobsCmd.Flags().StringVarP(&jobsStatus, "status", "s", "", "only jobs with this status")
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", domain.DefaultJobListLimit, "maximum number of jobs")
	jobsCmd.Flags().BoolVar(&jobsJSON, "json", false, "output as JSON")
	jobCmd.Flags().BoolVar(&jobJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(jobCmd)
}

func runJobs(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return fmt.Errorf("ingestion service: %w", errNotConfigured)
	}

	status := domain.JobStatus(strings.ToLower(jobsStatus))
	if status != "" && !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, jobsStatus)
	}

	jobs, err := ingestionService.ListJobs(commandContext(cmd), domain.JobFilter{
		Profile: jobsProfile,
		Status:  status,
		Limit:   jobsLimit,
	})
	if err != nil {
		return fmt.Errorf("listing jobs failed: %w", err)
	}

	if jobsJSON {
		if jobs == nil {
			jobs = []domain.Job{}
		}
		return printJSON(cmd, jobs)
	}
	if len(jobs) == 0 {
		cmd.Println("No jobs found.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.Header
			}
			return st.Header.UnsetBold()
		}).
		Headers("JOB", "PROFILE", "STATUS", "PHASE", "FILES", "CHUNKS", "CREATED")
	for i := range jobs {
		j := &jobs[i]
		t.Row(
			j.ID,
			j.Profile,
			st.Status(string(j.Status)),
			string(j.Phase),
			fmt.Sprintf("%d/%d", j.FilesDone, j.FilesTotal),
			strconv.Itoa(j.ChunksDone),
			j.CreatedAt.Local().Format(time.DateTime),
		)
	}
	cmd.Println(t.Render())
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return fmt.Errorf("ingestion service: %w", errNotConfigured)
	}

	job, err := ingestionService.GetJob(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("getting job failed: %w", err)
	}
	if jobJSON {
		return printJSON(cmd, job)
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Printf("%s %s\n", st.Title.Render("Job:"), job.ID)
	cmd.Printf("  Profile:    %s\n", job.Profile)
	cmd.Printf("  Status:     %s\n", st.Status(string(job.Status)))
	cmd.Printf("  Phase:      %s\n", job.Phase)
	cmd.Printf("  Embedding:  %s %s (dim %d)\n", job.Provider, job.ModelName, job.ModelDim)
	cmd.Printf("  Store:      %s %s\n", job.VectorDB, job.Collection)
	cmd.Printf("  Truncate:   %t\n", job.Truncate)
	cmd.Printf("  Files:      %d/%d\n", job.FilesDone, job.FilesTotal)
	cmd.Printf("  Pages:      %d/%d\n", job.PagesDone, job.PagesTotal)
	cmd.Printf("  Chunks:     %d\n", job.ChunksDone)
	if job.CurrentFile != "" {
		cmd.Printf("  Current:    %s\n", job.CurrentFile)
	}
	if job.ChunksPerMin > 0 {
		cmd.Printf("  Rate:       %.1f chunks/min\n", job.ChunksPerMin)
	}
	if job.Error != "" {
		cmd.Printf("  Error:      %s\n", st.Error.Render(job.Error))
	}
	cmd.Printf("  Created:    %s\n", job.CreatedAt.Local().Format(time.DateTime))
	cmd.Printf("  Updated:    %s\n", job.UpdatedAt.Local().Format(time.DateTime))
	return nil
}
