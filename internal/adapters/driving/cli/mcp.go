package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deep-researcher/internal/adapters/driving/mcp"
	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search the
corpus, run research and read session history.

By default, the server communicates over stdio using JSON-RPC. Use --port
to serve streamable HTTP instead, for MCP Inspector or remote access.

Examples:
  # Stdio mode (default)
  deep-researcher mcp serve

  # HTTP mode
  deep-researcher mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "deep-researcher": {
        "command": "/path/to/deep-researcher",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	research := domain.DefaultResearchConfig()
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			research = settings.Research
		}
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Researcher:    svc.Researcher,
		Conversations: svc.Conversations,
		Ingest:        svc.Ingest,
		Research:      research,
		Version:       version,
	})
	if err != nil {
		return err
	}

	var addr string
	if port > 0 {
		addr = fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s/mcp\n", addr)
	}
	return server.Serve(commandContext(cmd), addr)
}
