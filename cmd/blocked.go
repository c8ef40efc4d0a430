package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"roster/internal/formatting"
	"roster/pkg/logging"
)

var (
	blockedEndpoint  string
	blockedTransport string
	blockedProject   string
	blockedFeature   string
	blockedDetail    bool
	blockedOutput    string
	blockedQuiet     bool
)

// blockedCmd lists tasks held back by open dependencies.
var blockedCmd = &cobra.Command{
	Use:   "blocked",
	Short: "Show blocked tasks from a running roster server",
	Long: `Queries a running roster server for tasks that cannot start because a
dependency has not reached its unblock threshold, along with the tasks
holding them. Scope the report with --project or --feature.`,
	Args: cobra.NoArgs,
	RunE: runBlocked,
}

func runBlocked(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logging.LevelError, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := dialServer(ctx, blockedEndpoint, blockedTransport)
	if err != nil {
		return err
	}
	defer c.Close()

	toolArgs := map[string]interface{}{
		"detail": blockedDetail,
	}
	if blockedProject != "" {
		toolArgs["project_id"] = blockedProject
	}
	if blockedFeature != "" {
		toolArgs["feature_id"] = blockedFeature
	}

	env, err := callServerTool(ctx, c, "get_blocked", toolArgs)
	if err != nil {
		return err
	}

	renderer := formatting.NewRenderer(cmd.OutOrStdout(), formatting.Options{Color: true, Quiet: blockedQuiet})
	if blockedOutput == "json" {
		return renderer.JSON(env)
	}
	if err := envelopeFailure(env); err != nil {
		return err
	}
	renderer.BlockedTasks(envelopeData(env))
	return nil
}

func init() {
	rootCmd.AddCommand(blockedCmd)

	blockedCmd.Flags().StringVar(&blockedEndpoint, "endpoint", "http://localhost:8090/mcp", "Server endpoint URL")
	blockedCmd.Flags().StringVar(&blockedTransport, "transport", "streamable-http", "Client transport: streamable-http or sse")
	blockedCmd.Flags().StringVar(&blockedProject, "project", "", "Limit to tasks under this project ID")
	blockedCmd.Flags().StringVar(&blockedFeature, "feature", "", "Limit to tasks under this feature ID")
	blockedCmd.Flags().BoolVar(&blockedDetail, "detail", false, "Include thresholds and blocker roles")
	blockedCmd.Flags().StringVar(&blockedOutput, "output", "table", "Output format: table or json")
	blockedCmd.Flags().BoolVar(&blockedQuiet, "quiet", false, "Suppress footers")
}
