package cmd

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	spaws "github.com/stackpilothq/stackpilot/internal/aws"
	"github.com/stackpilothq/stackpilot/internal/cli"
	"github.com/stackpilothq/stackpilot/internal/identity"
	"github.com/stackpilothq/stackpilot/internal/stack"
)

// cleanupDeps holds the injectable dependencies for the cleanup command.
type cleanupDeps struct {
	list         spaws.ListStacksAPI
	describe     spaws.DescribeStacksAPI
	events       spaws.DescribeStackEventsAPI
	deleteStack  spaws.DeleteStackAPI
	caller       identity.Caller
	pollInterval time.Duration
	noWait       bool
}

// newCleanupCommand creates the production cleanup command.
func newCleanupCommand() *cobra.Command {
	return newCleanupCommandWithDeps(nil)
}

// newCleanupCommandWithDeps creates the cleanup command with explicit
// dependencies for testing.
func newCleanupCommandWithDeps(deps *cleanupDeps) *cobra.Command {
	var (
		match      string
		minutesOld int
		dryRun     bool
		limit      int
		noWait     bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Bulk-delete stacks matching a name pattern and age threshold",
		Long: "Scan the full stack inventory, select stacks whose name matches the " +
			"pattern and that are older than the threshold, and delete them. " +
			"Per-stack failures are logged and never stop the rest of the batch.",
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
				d = &cleanupDeps{
					list:         clients.cfnClient,
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
			return runCleanup(cmd, d, match, minutesOld, dryRun, limit)
		},
	}

	cmd.Flags().StringVar(&match, "match", "", "Regular expression selecting stack names (required)")
	cmd.Flags().IntVar(&minutesOld, "minutes-old", 0, "Only delete stacks older than this many minutes (0 = any age)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log what would be deleted without deleting")
	cmd.Flags().IntVar(&limit, "limit", 0, "Delete at most the oldest N matched stacks (0 = no limit)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Submit deletes without waiting for terminal states")
	_ = cmd.MarkFlagRequired("match")

	return cmd
}

// runCleanup executes the cleanup command logic: compile the pattern, scan,
// and drive the lifecycle controller's delete path over the matched set.
func runCleanup(cmd *cobra.Command, deps *cleanupDeps, match string, minutesOld int, dryRun bool, limit int) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	pattern, err := regexp.Compile(match)
	if err != nil {
		return fmt.Errorf("invalid --match pattern: %w", err)
	}

	auditCommand("cleanup", match, deps.caller)

	// One controller serves every matched stack; the cleaner overrides the
	// target name per delete.
	ctrl := stack.NewController(nil, nil, deps.describe, deps.events, deps.deleteStack, stack.Options{
		FireAndForget: deps.noWait,
		PollInterval:  deps.pollInterval,
	})

	cleaner := stack.NewCleaner(deps.list, ctrl.Delete, w)
	return cleaner.Run(ctx, stack.CleanupOptions{
		Pattern:    pattern,
		MinutesOld: minutesOld,
		DryRun:     dryRun,
		Limit:      limit,
	})
}
