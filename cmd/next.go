package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"roster/internal/formatting"
	"roster/pkg/logging"
)

var (
	nextEndpoint  string
	nextTransport string
	nextProject   string
	nextFeature   string
	nextLimit     int
	nextDetail    bool
	nextOutput    string
	nextQuiet     bool
)

// nextCmd asks a running server what to work on.
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show startable tasks from a running roster server",
	Long: `Queries a running roster server for tasks that are ready to start:
not yet begun, not blocked by open dependencies, ordered by priority,
complexity, and age. Scope the recommendation with --project or
--feature.`,
	Args: cobra.NoArgs,
	RunE: runNext,
}

func runNext(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logging.LevelError, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := dialServer(ctx, nextEndpoint, nextTransport)
	if err != nil {
		return err
	}
	defer c.Close()

	toolArgs := map[string]interface{}{
		"limit":  nextLimit,
		"detail": nextDetail,
	}
	if nextProject != "" {
		toolArgs["project_id"] = nextProject
	}
	if nextFeature != "" {
		toolArgs["feature_id"] = nextFeature
	}

	env, err := callServerTool(ctx, c, "get_next_item", toolArgs)
	if err != nil {
		return err
	}

	renderer := formatting.NewRenderer(cmd.OutOrStdout(), formatting.Options{Color: true, Quiet: nextQuiet})
	if nextOutput == "json" {
		return renderer.JSON(env)
	}
	if err := envelopeFailure(env); err != nil {
		return err
	}
	renderer.NextTasks(envelopeData(env))
	return nil
}

func init() {
	rootCmd.AddCommand(nextCmd)

	nextCmd.Flags().StringVar(&nextEndpoint, "endpoint", "http://localhost:8090/mcp", "Server endpoint URL")
	nextCmd.Flags().StringVar(&nextTransport, "transport", "streamable-http", "Client transport: streamable-http or sse")
	nextCmd.Flags().StringVar(&nextProject, "project", "", "Limit to tasks under this project ID")
	nextCmd.Flags().StringVar(&nextFeature, "feature", "", "Limit to tasks under this feature ID")
	nextCmd.Flags().IntVar(&nextLimit, "limit", 1, "Maximum number of recommendations (1-20)")
	nextCmd.Flags().BoolVar(&nextDetail, "detail", false, "Include summaries and parent IDs")
	nextCmd.Flags().StringVar(&nextOutput, "output", "table", "Output format: table or json")
	nextCmd.Flags().BoolVar(&nextQuiet, "quiet", false, "Suppress footers")
}
