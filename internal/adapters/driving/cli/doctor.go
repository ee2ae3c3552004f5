package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("one or more checks failed")

var doctorCmd = &cobra.Command{
	Use:   "doctor [profile]",
	Short: "Check a profile's embedding backends and vector store",
	Args:  cobra.ExactArgs(1),
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	if healthService == nil {
		return fmt.Errorf("health service: %w", errNotConfigured)
	}

	checks, err := healthService.Check(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("doctor failed: %w", err)
	}

	st := newStyles(cmd.OutOrStdout())
	healthy := true
	for _, c := range checks {
		mark := st.Success.Render("ok")
		if !c.OK {
			mark = st.Error.Render("FAIL")
			healthy = false
		}
		cmd.Printf("  %-4s %-12s %-10s %s\n", mark, c.Component, c.Name, st.Muted.Render(c.Latency.Round(time.Millisecond).String()))
		if c.Error != "" {
			cmd.Printf("       %s\n", c.Error)
		}
	}
	if !healthy {
		return errUnhealthy
	}
	return nil
}
