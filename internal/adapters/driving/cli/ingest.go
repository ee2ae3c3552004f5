package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var (
	ingestTruncate bool
	ingestWait     bool
	ingestJSON     bool
	ingestPoll     time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [profile]",
	Short: "Run an ingestion job for a profile",
	Long: `Starts an ingestion job for the profile. Any job already active for the
profile is canceled first.

The job runs inside this process, so by default the command waits for it and
prints progress. With --wait=false the job id is printed and the job is
canceled when the command exits; use the MCP server (serve) for jobs that
outlive the caller.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestTruncate, "truncate", false, "drop and recreate the collection before upserting")
	ingestCmd.Flags().BoolVar(&ingestWait, "wait", true, "wait for the job to finish")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output as JSON")
	ingestCmd.Flags().DurationVar(&ingestPoll, "poll", 500*time.Millisecond, "progress refresh interval")
	_ = ingestCmd.Flags().MarkHidden("poll")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return fmt.Errorf("ingestion service: %w", errNotConfigured)
	}
	ctx := commandContext(cmd)

	res, err := ingestionService.Enqueue(ctx, args[0], ingestTruncate)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	if !ingestWait {
		if ingestJSON {
			return printJSON(cmd, res)
		}
		cmd.Printf("Job %s queued for profile %s (collection %s)\n", res.JobID, res.Profile, res.Collection)
		if res.CanceledPrevious > 0 {
			cmd.Printf("Canceled %d previous job(s)\n", res.CanceledPrevious)
		}
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	if !ingestJSON {
		cmd.Printf("%s %s\n", st.Title.Render("Ingesting"), res.Profile)
		cmd.Println(st.Muted.Render(fmt.Sprintf("job %s, collection %s", res.JobID, res.Collection)))
		if res.CanceledPrevious > 0 {
			cmd.Println(st.Warning.Render(fmt.Sprintf("canceled %d previous job(s)", res.CanceledPrevious)))
		}
	}

	job, err := waitForJob(ctx, cmd, res.JobID, !ingestJSON)
	if err != nil {
		return err
	}

	if ingestJSON {
		if err := printJSON(cmd, job); err != nil {
			return err
		}
	} else {
		printJobSummary(cmd, st, job)
	}

	switch job.Status {
	case domain.JobFailed:
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	case domain.JobCanceled:
		return fmt.Errorf("job %s canceled", job.ID)
	}
	return nil
}

// waitForJob blocks until the job exits, printing a progress line on each
// poll when progress is set. Terminals get the line rewritten in place.
func waitForJob(ctx context.Context, cmd *cobra.Command, id string, progress bool) (*domain.Job, error) {
	done := make(chan error, 1)
	go func() { done <- ingestionService.Wait(ctx, id) }()

	out := cmd.OutOrStdout()
	inPlace := isTerminal(out)
	ticker := time.NewTicker(ingestPoll)
	defer ticker.Stop()

	var last string
	for {
		select {
		case err := <-done:
			if inPlace && last != "" {
				fmt.Fprintln(out)
			}
			if err != nil {
				return nil, fmt.Errorf("waiting for job %s: %w", id, err)
			}
			return ingestionService.GetJob(ctx, id)

		case <-ticker.C:
			if !progress {
				continue
			}
			job, err := ingestionService.GetJob(ctx, id)
			if err != nil {
				continue
			}
			line := progressLine(job)
			if line == last {
				continue
			}
			last = line
			if inPlace {
				fmt.Fprintf(out, "\r\033[K%s", line)
			} else {
				fmt.Fprintln(out, line)
			}
		}
	}
}

func progressLine(job *domain.Job) string {
	line := fmt.Sprintf("[%s] files %d/%d pages %d/%d chunks %d",
		job.Phase, job.FilesDone, job.FilesTotal, job.PagesDone, job.PagesTotal, job.ChunksDone)
	if job.CurrentFile != "" {
		line += " " + job.CurrentFile
	}
	return line
}

func printJobSummary(cmd *cobra.Command, st *styles, job *domain.Job) {
	cmd.Printf("Job %s %s\n", job.ID, st.Status(string(job.Status)))
	cmd.Printf("  Files:   %d/%d\n", job.FilesDone, job.FilesTotal)
	cmd.Printf("  Pages:   %d/%d\n", job.PagesDone, job.PagesTotal)
	cmd.Printf("  Chunks:  %d\n", job.ChunksDone)
	if job.ChunksPerMin > 0 {
		cmd.Printf("  Rate:    %.1f chunks/min\n", job.ChunksPerMin)
	}
	if job.Error != "" {
		cmd.Printf("  Error:   %s\n", st.Error.Render(job.Error))
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
