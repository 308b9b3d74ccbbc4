package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mvp-joe/cdoc/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for symbol search",
	Long: `Start the Model Context Protocol (MCP) server that lets LLM-powered coding
assistants query the project's C/C++ inventory.

The MCP server:
- Loads indexed symbols from .cdoc/inventory.db
- Provides full-text symbol search via the cdoc_search tool
- Renders a file's inventory via the cdoc_symbols tool
- Reloads automatically when 'cdoc index' updates the database
- Communicates via stdio (standard MCP transport)

Run 'cdoc index' (or 'cdoc index --watch') first.

Example:
  cdoc mcp`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	root, cfg, err := loadProject()
	if err != nil {
		return err
	}

	restore, err := setupLogging(root, cfg)
	if err != nil {
		return err
	}
	defer restore()

	mcpConfig := &mcp.MCPServerConfig{
		ProjectPath:  root,
		DatabasePath: cfg.Storage.Database,
	}

	// stdout carries the protocol, so startup information goes to stderr.
	fmt.Fprintf(os.Stderr, "cdoc MCP Server\n")
	fmt.Fprintf(os.Stderr, "Project:  %s\n", root)
	fmt.Fprintf(os.Stderr, "Database: %s\n\n", mcp.ResolveDatabasePath(root, cfg.Storage.Database))

	server, err := mcp.NewMCPServer(ctx, mcpConfig, Version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	// Serve (blocks until shutdown)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}
