// Package cli provides the cobra command tree of sercha-ingest.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// ProfileWatcher reports changes to the profiles file.
type ProfileWatcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Services are the driving ports the commands call.
type Services struct {
	Ingestion driving.IngestionService
	Search    driving.SearchService
	Health    driving.HealthService
	Profiles  driving.ProfileService

	// Watcher is optional; serve --watch needs it.
	Watcher ProfileWatcher

	// MCPAddr is the default listen address of serve and mcp --http.
	MCPAddr string
}

// Options are the global flags handed to the Builder.
type Options struct {
	Verbose      bool
	LogFormat    string
	ProfilesPath string
}

// Builder wires Services for one invocation. The returned cleanup runs
// after the command finishes.
type Builder func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	globalOpts Options

	builder Builder
	cleanup func()

	ingestionService driving.IngestionService
	searchService    driving.SearchService
	healthService    driving.HealthService
	profileService   driving.ProfileService
	profileWatcher   ProfileWatcher
	mcpAddr          string
)

var errNotConfigured = errors.New("services not configured")

var rootCmd = &cobra.Command{
	Use:   "sercha-ingest",
	Short: "Ingest documents into a vector store and search them",
	Long: `sercha-ingest loads PDF and JSON documents listed in a profile, chunks
and embeds them, and upserts the vectors into Qdrant or pgvector. Jobs run in
the background, one active job per profile. The same operations are exposed
to AI assistants through an MCP server.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&globalOpts.LogFormat, "log-format", "", "log format: text or json")
	flags.StringVar(&globalOpts.ProfilesPath, "profiles", "", "path to the profiles file (YAML or TOML)")
}

// SetBuilder installs the wiring used before each command runs.
func SetBuilder(b Builder) {
	builder = b
}

// SetServices installs services directly. Used by tests and by callers
// that do their own wiring.
func SetServices(s *Services) {
	ingestionService = s.Ingestion
	searchService = s.Search
	healthService = s.Health
	profileService = s.Profiles
	profileWatcher = s.Watcher
	mcpAddr = s.MCPAddr
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer runCleanup()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(globalOpts.Verbose)
	if globalOpts.LogFormat != "" {
		if err := logger.SetFormat(globalOpts.LogFormat); err != nil {
			return err
		}
	}

	// version needs nothing wired.
	if cmd == versionCmd || builder == nil {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, done, err := builder(ctx, globalOpts)
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	SetServices(s)
	cleanup = done
	return nil
}

func runCleanup() {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
}

// commandContext returns the command context or Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
