package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/stackpilothq/stackpilot/internal/cli"
)

// NewRootCommand creates and returns the root cobra command with all global
// persistent flags registered. Subcommands are attached here.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stackpilot",
		Short:         "Deploy and manage CloudFormation stacks",
		Long:          "Deploy CloudFormation stacks from templates, stream progress events, and bulk-clean stale stacks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := cli.NewCLIContext(cmd)
			cmd.SetContext(cli.WithContext(context.Background(), cliCtx))
			return nil
		},
	}

	rootCmd.PersistentFlags().Bool("verbose", false, "Show progress steps")
	rootCmd.PersistentFlags().Bool("debug", false, "Show AWS SDK call details")
	rootCmd.PersistentFlags().Bool("json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().Bool("yes", false, "Skip confirmation on destructive operations")
	rootCmd.PersistentFlags().String("region", "", "AWS region (overrides config)")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newDeployCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newOutputsCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newCleanupCommand())

	return rootCmd
}

// Execute creates the root command and runs it. Called from main.
func Execute() error {
	return NewRootCommand().Execute()
}
