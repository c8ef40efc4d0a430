package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"roster/internal/app"
	"roster/internal/server"
)

var (
	serveConfigPath  string
	serveWatchConfig bool
	serveHost        string
	servePort        int
	serveTransport   string
	serveStore       string
	serveDBPath      string
	serveDebug       bool
	serveSilent      bool
	serveLogFormat   string
)

// serveCmd starts the MCP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the roster MCP server",
	Long: `Starts the roster server and exposes the task-orchestration tool
surface over the Model Context Protocol.

Transports:
  streamable-http (default)  HTTP endpoint at http://<host>:<port>/mcp
  sse                        SSE endpoint at http://<host>:<port>/sse
  stdio                      MCP over stdin/stdout; logs go to stderr

Storage:
  memory (default)           process-local, lost on exit
  sqlite                     durable single-file database (--db-path)

Workflow configuration is read from <config-path>/workflow.yaml and falls
back to the built-in default flows when the file is absent. With
--watch-config the file is re-read as soon as it changes; otherwise edits
are picked up within a minute.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := &app.Config{
		ConfigDir:   serveConfigPath,
		WatchConfig: serveWatchConfig,
		Host:        serveHost,
		Port:        servePort,
		Transport:   serveTransport,
		Store:       serveStore,
		DBPath:      serveDBPath,
		Debug:       serveDebug,
		Silent:      serveSilent,
		LogFormat:   serveLogFormat,
		Version:     rootCmd.Version,
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "Workflow configuration directory (default ~/.config/roster)")
	serveCmd.Flags().BoolVar(&serveWatchConfig, "watch-config", false, "Reload the workflow config when the file changes")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to bind")
	serveCmd.Flags().IntVar(&servePort, "port", 8090, "Port to bind")
	serveCmd.Flags().StringVar(&serveTransport, "transport", server.TransportStreamableHTTP, "MCP transport: streamable-http, sse, or stdio")
	serveCmd.Flags().StringVar(&serveStore, "store", app.StoreMemory, "Store backend: memory or sqlite")
	serveCmd.Flags().StringVar(&serveDBPath, "db-path", "", "SQLite database file (default <config-path>/roster.db)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveSilent, "silent", false, "Suppress all log output")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", "text", "Log format: text or json")
}
