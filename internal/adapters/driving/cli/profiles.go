package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var profilesJSON bool

var errNoProfiles = errors.New("no profiles configured")

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List configured profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

func init() {
	profilesCmd.Flags().BoolVar(&profilesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, _ []string) error {
	if profileService == nil {
		return fmt.Errorf("profile service: %w", errNotConfigured)
	}

	profiles, err := profileService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("listing profiles failed: %w", err)
	}

	if profilesJSON {
		if profiles == nil {
			profiles = []domain.ProfileSummary{}
		}
		return printJSON(cmd, profiles)
	}
	if len(profiles) == 0 {
		return errNoProfiles
	}

	st := newStyles(cmd.OutOrStdout())
	for _, p := range profiles {
		if p.Error != "" {
			cmd.Printf("%s  %s\n", p.Name, st.Error.Render(p.Error))
			continue
		}
		cmd.Printf("%s  %s\n", st.Title.Render(p.Name), st.Muted.Render(fmt.Sprintf(
			"%d document(s), %s/%s dim %d, %s:%s",
			p.Documents, p.Primary, p.Model, p.Dim, p.VectorDB, p.Collection)))
	}
	return nil
}
