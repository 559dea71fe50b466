package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	spaws "github.com/stackpilothq/stackpilot/internal/aws"
	"github.com/stackpilothq/stackpilot/internal/cli"
	"github.com/stackpilothq/stackpilot/internal/display"
	"github.com/stackpilothq/stackpilot/internal/identity"
	"github.com/stackpilothq/stackpilot/internal/progress"
	"github.com/stackpilothq/stackpilot/internal/stack"
)

// deleteDeps holds the injectable dependencies for the delete command.
type deleteDeps struct {
	describe     spaws.DescribeStacksAPI
	events       spaws.DescribeStackEventsAPI
	deleteStack  spaws.DeleteStackAPI
	caller       identity.Caller
	pollInterval time.Duration
	noWait       bool
}

// newDeleteCommand creates the production delete command.
func newDeleteCommand() *cobra.Command {
	return newDeleteCommandWithDeps(nil)
}

// newDeleteCommandWithDeps creates the delete command with explicit
// dependencies for testing.
func newDeleteCommandWithDeps(deps *deleteDeps) *cobra.Command {
	var (
		stackName string
		noWait    bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a stack",
		Long: "Delete the named stack and wait until DELETE_COMPLETE. Deleting a " +
			"stack that does not exist succeeds.",
		Args: cobra.NoArgs,
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
				d = &deleteDeps{
					describe:     clients.cfnClient,
					events:       clients.cfnClient,
					deleteStack:  clients.cfnClient,
					caller:       clients.caller,
					pollInterval: clients.pollInterval(),
					noWait:       clients.userConfig.NoWait,
				}
			}
			if cmd.Flags().Changed("no-wait") {
				d.noWait = noWait
			}
			return runDelete(cmd, d, stackName)
		},
	}

	cmd.Flags().StringVar(&stackName, "stack", "", "Stack name (required)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return after submission without waiting for a terminal state")
	_ = cmd.MarkFlagRequired("stack")

	return cmd
}

// runDelete executes the delete command logic: confirm, delete, wait.
func runDelete(cmd *cobra.Command, deps *deleteDeps, stackName string) error {
	ctx := cmd.Context()
	cliCtx := cli.FromCommand(cmd)
	yes := cliCtx != nil && cliCtx.Yes
	jsonMode := cliCtx != nil && cliCtx.JSON
	w := cmd.OutOrStdout()

	// Confirmation: require the user to type the stack name unless --yes.
	if !yes {
		fmt.Fprintf(w, "This will permanently delete stack %q and all its resources.\n", stackName)
		fmt.Fprintf(w, "Type the stack name %q to confirm: ", stackName)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		if !scanner.Scan() {
			return fmt.Errorf("confirmation aborted")
		}
		input := strings.TrimSpace(scanner.Text())
		if input != stackName {
			return fmt.Errorf("confirmation %q does not match stack name %q — delete aborted", input, stackName)
		}
	}

	auditCommand("delete", stackName, deps.caller)

	// The create/update interfaces are unused on the delete path; the
	// controller only touches delete, describe, and events here.
	ctrl := stack.NewController(nil, nil, deps.describe, deps.events, deps.deleteStack, stack.Options{
		StackName:     stackName,
		FireAndForget: deps.noWait,
		PollInterval:  deps.pollInterval,
	})
	if !jsonMode {
		ctrl.WithSink(display.NewPrinter(w))
	}

	sp := progress.NewCommandSpinner(w, jsonMode)
	sp.Start(fmt.Sprintf("Deleting stack %s...", stackName))

	if err := ctrl.Delete(ctx, ""); err != nil {
		sp.Fail(fmt.Sprintf("Delete of stack %s failed", stackName))
		if jsonMode {
			return reportJSONError(w, stackName, err)
		}
		return err
	}

	if deps.noWait {
		sp.Stop(fmt.Sprintf("Stack %s delete submitted (not waiting for completion)", stackName))
	} else {
		sp.Stop(fmt.Sprintf("Stack %s deleted", stackName))
	}
	return nil
}
