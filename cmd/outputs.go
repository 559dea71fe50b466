package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	spaws "github.com/stackpilothq/stackpilot/internal/aws"
	"github.com/stackpilothq/stackpilot/internal/cli"
	"github.com/stackpilothq/stackpilot/internal/stack"
)

// outputsDeps holds the injectable dependencies for the outputs command.
type outputsDeps struct {
	describe spaws.DescribeStacksAPI
}

func newOutputsCommand() *cobra.Command {
	return newOutputsCommandWithDeps(nil)
}

func newOutputsCommandWithDeps(deps *outputsDeps) *cobra.Command {
	var stackName string

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Print a stack's outputs",
		Long:  "Print the named stack's outputs as key = value lines (or JSON with --json).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := deps
			if d == nil {
				cliCtx := cli.FromCommand(cmd)
				region, debug := "", false
				if cliCtx != nil {
					region, debug = cliCtx.Region, cliCtx.Debug
				}
				clients, err := initAWSClients(cmd.Context(), region, debug)
				if err != nil {
					return err
				}
				d = &outputsDeps{describe: clients.cfnClient}
			}
			return runOutputs(cmd, d, stackName)
		},
	}

	cmd.Flags().StringVar(&stackName, "stack", "", "Stack name (required)")
	_ = cmd.MarkFlagRequired("stack")

	return cmd
}

func runOutputs(cmd *cobra.Command, deps *outputsDeps, stackName string) error {
	ctx := cmd.Context()
	cliCtx := cli.FromCommand(cmd)
	w := cmd.OutOrStdout()

	ctrl := stack.NewController(nil, nil, deps.describe, nil, nil, stack.Options{StackName: stackName})
	outputs, err := ctrl.Outputs(ctx, stackName)
	if err != nil {
		return err
	}

	if cliCtx != nil && cliCtx.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"stack":   stackName,
			"outputs": outputs,
		})
	}

	for _, k := range sortedKeys(outputs) {
		fmt.Fprintf(w, "%s = %s\n", k, outputs[k])
	}
	return nil
}

// sortedKeys returns the map's keys in sorted order for stable output.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
