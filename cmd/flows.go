package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"roster/internal/config"
	"roster/internal/formatting"
	"roster/internal/store/memory"
	"roster/internal/tools"
	"roster/pkg/logging"
)

var (
	flowsConfigPath string
	flowsType       string
	flowsTags       []string
	flowsCurrent    string
	flowsOutput     string
	flowsQuiet      bool
)

// flowsCmd inspects the workflow configuration without a running server.
var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Show the workflow flows a container type moves through",
	Long: `Resolves the active flow for a container type from the workflow
configuration and prints its status sequence.

Tags select specialized flows the same way entity tags do at runtime
(for example --tags bug picks the bug-fix flow for tasks). With
--current the matching status is marked in the sequence.`,
	Args: cobra.NoArgs,
	RunE: runFlows,
}

func runFlows(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logging.LevelError, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dir := flowsConfigPath
	if dir == "" {
		dir = config.GetDefaultConfigPathOrPanic()
	}
	loader := config.NewLoader(dir)

	// The flow path tool needs no entities; an empty store makes the local
	// provider behave exactly like a served one.
	provider := tools.New(memory.New(), loader.Load)

	types := []string{"project", "feature", "task"}
	if flowsType != "" {
		types = []string{flowsType}
	}

	renderer := formatting.NewRenderer(cmd.OutOrStdout(), formatting.Options{Color: true, Quiet: flowsQuiet})
	jsonOut := make(map[string]interface{}, len(types))

	for i, containerType := range types {
		toolArgs := map[string]interface{}{"container_type": containerType}
		if len(flowsTags) > 0 {
			tags := make([]interface{}, len(flowsTags))
			for j, tag := range flowsTags {
				tags[j] = tag
			}
			toolArgs["tags"] = tags
		}
		if flowsCurrent != "" {
			toolArgs["current_status"] = flowsCurrent
		}

		result, err := provider.ExecuteTool(ctx, "get_flow_path", toolArgs)
		if err != nil {
			return err
		}
		env, err := decodeEnvelope(localText(result))
		if err != nil {
			return err
		}
		if err := envelopeFailure(env); err != nil {
			return err
		}

		if flowsOutput == "json" {
			jsonOut[containerType] = envelopeData(env)
			continue
		}
		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		renderer.FlowPath(envelopeData(env))
	}

	if flowsOutput == "json" {
		return renderer.JSON(jsonOut)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(flowsCmd)

	flowsCmd.Flags().StringVar(&flowsConfigPath, "config-path", "", "Workflow configuration directory (default ~/.config/roster)")
	flowsCmd.Flags().StringVar(&flowsType, "type", "", "Container type: project, feature, or task (default all)")
	flowsCmd.Flags().StringSliceVar(&flowsTags, "tags", nil, "Tags used for flow selection")
	flowsCmd.Flags().StringVar(&flowsCurrent, "current", "", "Mark this status in the sequence")
	flowsCmd.Flags().StringVar(&flowsOutput, "output", "table", "Output format: table or json")
	flowsCmd.Flags().BoolVar(&flowsQuiet, "quiet", false, "Suppress footers and notes")
}
