package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/mcp"
)

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "serve MCP over HTTP on this port (default: stdio)")
}

// serveCmd exposes the tool set to MCP clients.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tool set",
	Long: `Start the MCP server. Without flags it speaks the stdio transport for
a single client; with --port it serves streamable HTTP for many.

Examples:
  # Stdio transport, for an MCP client that spawns the process
  researchd serve

  # HTTP transport on the configured port
  researchd serve --port 8392`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := newRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	server, err := mcp.NewServer(&mcp.Config{
		Name:    "researchd",
		Version: version,
		Logger:  env.logger,
	}, env.factory)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cmd.Flags().Changed("port") {
		port := servePort
		if port == 0 {
			port = env.cfg.MCPPort
		}
		env.logger.Info("serving MCP over HTTP", zap.Int("port", port))
		return server.RunHTTP(ctx, port)
	}

	env.logger.Info("serving MCP over stdio")
	return server.Run(ctx)
}
