package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var cancelProfile string

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel ingestion jobs",
	Long: `Without --profile, cancels every job running in this process.
With --profile, marks the profile's active jobs canceled in the job store,
including jobs left behind by a process that exited.`,
	Args: cobra.NoArgs,
	RunE: runCancel,
}

func init() {
	cancelCmd.Flags().StringVarP(&cancelProfile, "profile", "p", "", "cancel the active jobs of this profile")
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return fmt.Errorf("ingestion service: %w", errNotConfigured)
	}
	ctx := commandContext(cmd)

	if cancelProfile != "" {
		n, err := ingestionService.CancelProfile(ctx, cancelProfile)
		if err != nil {
			return fmt.Errorf("cancel failed: %w", err)
		}
		cmd.Printf("Canceled %d job(s) for profile %s\n", n, cancelProfile)
		return nil
	}

	ids, err := ingestionService.CancelAll(ctx)
	if err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	if len(ids) == 0 {
		cmd.Println("No running jobs.")
		return nil
	}
	cmd.Printf("Canceled %d job(s): %s\n", len(ids), strings.Join(ids, ", "))
	return nil
}
