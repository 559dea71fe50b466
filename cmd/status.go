package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	spaws "github.com/stackpilothq/stackpilot/internal/aws"
	"github.com/stackpilothq/stackpilot/internal/cli"
	"github.com/stackpilothq/stackpilot/internal/stack"
)

// statusDeps holds the injectable dependencies for the status command.
type statusDeps struct {
	describe spaws.DescribeStacksAPI
}

func newStatusCommand() *cobra.Command {
	return newStatusCommandWithDeps(nil)
}

func newStatusCommandWithDeps(deps *statusDeps) *cobra.Command {
	var stackName string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print a stack's current status",
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
				d = &statusDeps{describe: clients.cfnClient}
			}
			return runStatus(cmd, d, stackName)
		},
	}

	cmd.Flags().StringVar(&stackName, "stack", "", "Stack name (required)")
	_ = cmd.MarkFlagRequired("stack")

	return cmd
}

func runStatus(cmd *cobra.Command, deps *statusDeps, stackName string) error {
	ctx := cmd.Context()
	cliCtx := cli.FromCommand(cmd)
	w := cmd.OutOrStdout()

	ctrl := stack.NewController(nil, nil, deps.describe, nil, nil, stack.Options{StackName: stackName})
	status, err := ctrl.Status(ctx, stackName)
	if err != nil {
		return err
	}

	if cliCtx != nil && cliCtx.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{
			"stack":  stackName,
			"status": status,
		})
	}

	fmt.Fprintln(w, status)
	return nil
}
