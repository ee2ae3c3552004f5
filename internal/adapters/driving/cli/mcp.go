package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC. Use --http to
serve the streamable HTTP transport instead.

Tools: search, ingest_enqueue, ingest_cancel_all, job_get, job_list.
Resources: profiles://list, jobs://{job_id}.

Examples:
  # Stdio mode (for desktop assistants)
  sercha-ingest mcp

  # HTTP mode (for MCP Inspector, remote access)
  sercha-ingest mcp --http 127.0.0.1:8013

Assistant configuration:
  {
    "mcpServers": {
      "sercha-ingest": {
        "command": "/path/to/sercha-ingest",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "HTTP listen address (empty = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func newMCPServer() (*mcp.Server, error) {
	return mcp.NewServer(&mcp.Ports{
		Search:    searchService,
		Ingestion: ingestionService,
		Profiles:  profileService,
	})
}

func runMCP(cmd *cobra.Command, _ []string) error {
	server, err := newMCPServer()
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(commandContext(cmd), mcpHTTPAddr)
	}

	return server.Run(commandContext(cmd))
}
