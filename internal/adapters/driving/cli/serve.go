package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP HTTP server until interrupted",
	Long: `Serves the MCP tools over HTTP. Ingestion jobs started through the server
run in the background until they finish or the server stops. With --watch,
edits to the profiles file are reported as they happen; profiles are always
read fresh per request.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "http", "", "HTTP listen address (default from SERCHA_MCP_ADDR)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "watch the profiles file for changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr := serveAddr
	if addr == "" {
		addr = mcpAddr
	}
	if addr == "" {
		return fmt.Errorf("no listen address: pass --http or set SERCHA_MCP_ADDR")
	}

	if serveWatch && profileWatcher == nil {
		return fmt.Errorf("profile watcher: %w", errNotConfigured)
	}
	server, err := newMCPServer()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(commandContext(cmd))
	g.Go(func() error {
		return server.RunHTTP(ctx, addr)
	})

	if serveWatch {
		g.Go(func() error {
			return profileWatcher.Watch(ctx, func() { reportProfiles(ctx) })
		})
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", addr)
	return g.Wait()
}

// reportProfiles logs the profiles after a change so broken edits show
// up before the next request trips over them.
func reportProfiles(ctx context.Context) {
	if profileService == nil {
		return
	}
	profiles, err := profileService.List(ctx)
	if err != nil {
		logger.Warn("profiles.status err=%v", err)
		return
	}
	for _, p := range profiles {
		if p.Error != "" {
			logger.Warn("profiles.status.invalid name=%s err=%s", p.Name, p.Error)
			continue
		}
		logger.Info("profiles.status name=%s documents=%d collection=%s", p.Name, p.Documents, p.Collection)
	}
}
