package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vigil/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools:
  analyze_file            analyze one file {path, content?}
  rebuild_knowledge_base  ingest guidance {documents | dir}
  query_guidance          show the closest guidance sections {text, k?}

By default, the server communicates over stdio using JSON-RPC. Use --port
to start a streamable HTTP server instead. Use --root to confine file reads
to one directory.

Examples:
  # Stdio mode (default)
  vigil mcp serve --root ~/src/project

  # HTTP mode (for MCP Inspector, remote access)
  vigil mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "vigil": {
        "command": "/path/to/vigil",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().String("root", "", "only read files below this directory")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	root, err := cmd.Flags().GetString("root")
	if err != nil {
		return fmt.Errorf("getting root flag: %w", err)
	}

	analysis, kb, err := openAnalysis(cmd.Context())
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		Analysis:  analysis,
		Knowledge: kb,
	}

	var opts []mcp.Option
	if root != "" {
		opts = append(opts, mcp.WithRoot(root))
	}
	server, err := mcp.NewServer(ports, opts...)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
