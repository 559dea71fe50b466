package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackpilothq/stackpilot/internal/cli"
	"github.com/stackpilothq/stackpilot/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Display current configuration",
		Long:  "Display all stackpilot configuration values. Uses ~/.config/stackpilot/config.toml.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir := config.DefaultConfigDir()
			cfg, err := config.Load(configDir)
			if err != nil {
				return err
			}

			cliCtx := cli.FromCommand(cmd)
			if cliCtx != nil && cliCtx.JSON {
				return printConfigJSON(cmd, cfg)
			}

			return printConfigHuman(cmd, cfg)
		},
	}

	cmd.AddCommand(newConfigGetCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func printConfigJSON(cmd *cobra.Command, cfg *config.Config) error {
	data := map[string]any{
		"region":           cfg.Region,
		"poll_interval_ms": cfg.PollIntervalMs,
		"capability":       cfg.Capability,
		"no_wait":          cfg.NoWait,
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printConfigHuman(cmd *cobra.Command, cfg *config.Config) error {
	w := cmd.OutOrStdout()

	region := cfg.Region
	if region == "" {
		region = "(not set)"
	}

	_, err := fmt.Fprintf(w,
		"region           %s\n"+
			"poll_interval_ms %d\n"+
			"capability       %s\n"+
			"no_wait          %v\n",
		region,
		cfg.PollIntervalMs,
		cfg.Capability,
		cfg.NoWait,
	)
	return err
}
