package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for the roster application.
var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Task orchestration server for AI coding assistants",
	Long: `roster tracks hierarchical units of work - projects, features, tasks -
with explicit dependencies and config-driven workflow state machines,
and exposes them to AI assistants over the Model Context Protocol.

Start the server with 'roster serve', then point an MCP client at the
endpoint. 'roster next' and 'roster blocked' query a running server;
'roster flows' inspects the workflow configuration locally.`,
	// SilenceUsage keeps handled errors from re-printing the usage block.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main with
// the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the application version.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the CLI. Called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "roster version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
