package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/spf13/cobra"

	spaws "github.com/stackpilothq/stackpilot/internal/aws"
	"github.com/stackpilothq/stackpilot/internal/cli"
	"github.com/stackpilothq/stackpilot/internal/display"
	"github.com/stackpilothq/stackpilot/internal/identity"
	"github.com/stackpilothq/stackpilot/internal/progress"
	"github.com/stackpilothq/stackpilot/internal/stack"
	"github.com/stackpilothq/stackpilot/internal/template"
)

// deployDeps holds the injectable dependencies for the deploy command.
type deployDeps struct {
	create       spaws.CreateStackAPI
	update       spaws.UpdateStackAPI
	describe     spaws.DescribeStacksAPI
	events       spaws.DescribeStackEventsAPI
	deleteStack  spaws.DeleteStackAPI
	caller       identity.Caller
	pollInterval time.Duration
	capability   string
	noWait       bool
}

// newDeployCommand creates the production deploy command, wiring real AWS
// clients on first run.
func newDeployCommand() *cobra.Command {
	return newDeployCommandWithDeps(nil)
}

// newDeployCommandWithDeps creates the deploy command with explicit
// dependencies for testing.
func newDeployCommandWithDeps(deps *deployDeps) *cobra.Command {
	var (
		stackName    string
		templatePath string
		params       []string
		capability   string
		noWait       bool
		maxWait      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update a stack from a template",
		Long: "Create the stack if it does not exist, update it otherwise, and " +
			"stream stack events until the operation reaches a terminal state.",
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
				d = &deployDeps{
					create:       clients.cfnClient,
					update:       clients.cfnClient,
					describe:     clients.cfnClient,
					events:       clients.cfnClient,
					deleteStack:  clients.cfnClient,
					caller:       clients.caller,
					pollInterval: clients.pollInterval(),
					capability:   clients.userConfig.Capability,
					noWait:       clients.userConfig.NoWait,
				}
			}
			if cmd.Flags().Changed("no-wait") {
				d.noWait = noWait
			}
			if capability != "" {
				d.capability = capability
			}
			return runDeploy(cmd, d, stackName, templatePath, params, maxWait)
		},
	}

	cmd.Flags().StringVar(&stackName, "stack", "", "Stack name (required)")
	cmd.Flags().StringVar(&templatePath, "template", "", "Template file path, .json/.template/.yaml/.yml (required)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Template parameter as Key=Value (repeatable)")
	cmd.Flags().StringVar(&capability, "capability", "", "CloudFormation capability (default from config)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return after submission without waiting for a terminal state")
	cmd.Flags().DurationVar(&maxWait, "max-wait", 0, "Abort the wait after this duration (0 = wait indefinitely)")
	_ = cmd.MarkFlagRequired("stack")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

// runDeploy executes the deploy command logic: load template, submit the
// create-or-update, wait for terminal state, and print outputs.
func runDeploy(cmd *cobra.Command, deps *deployDeps, stackName, templatePath string, params []string, maxWait time.Duration) error {
	ctx := cmd.Context()
	cliCtx := cli.FromCommand(cmd)
	jsonMode := cliCtx != nil && cliCtx.JSON
	w := cmd.OutOrStdout()

	body, err := template.Load(templatePath)
	if err != nil {
		return err
	}

	parameters, err := parseParams(params)
	if err != nil {
		return err
	}

	var capabilities []cftypes.Capability
	if deps.capability != "" {
		capabilities = []cftypes.Capability{cftypes.Capability(deps.capability)}
	}

	auditCommand("deploy", stackName, deps.caller)

	ctrl := stack.NewController(deps.create, deps.update, deps.describe, deps.events, deps.deleteStack, stack.Options{
		StackName:     stackName,
		TemplateBody:  body,
		Parameters:    parameters,
		Capabilities:  capabilities,
		FireAndForget: deps.noWait,
		PollInterval:  deps.pollInterval,
		MaxWait:       maxWait,
	})
	if !jsonMode {
		ctrl.WithSink(display.NewPrinter(w))
	}

	sp := progress.NewCommandSpinner(w, jsonMode)
	sp.Start(fmt.Sprintf("Deploying stack %s...", stackName))

	if err := ctrl.CreateOrUpdate(ctx); err != nil {
		sp.Fail(fmt.Sprintf("Deploy of stack %s failed", stackName))
		if jsonMode {
			return reportJSONError(w, stackName, err)
		}
		return err
	}

	if deps.noWait {
		sp.Stop(fmt.Sprintf("Stack %s submitted (not waiting for completion)", stackName))
		return nil
	}
	sp.Stop(fmt.Sprintf("Stack %s deployed", stackName))

	outputs, err := ctrl.Outputs(ctx, stackName)
	if err != nil {
		return fmt.Errorf("collect outputs: %w", err)
	}

	if jsonMode {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"stack":   stackName,
			"outputs": outputs,
		})
	}

	if len(outputs) > 0 {
		fmt.Fprintln(w, "Outputs:")
		for _, k := range sortedKeys(outputs) {
			fmt.Fprintf(w, "  %s = %s\n", k, outputs[k])
		}
	}
	return nil
}

// parseParams converts repeated Key=Value flags to CloudFormation parameters.
func parseParams(params []string) ([]cftypes.Parameter, error) {
	out := make([]cftypes.Parameter, 0, len(params))
	for _, p := range params {
		key, value, found := strings.Cut(p, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected Key=Value", p)
		}
		out = append(out, cftypes.Parameter{
			ParameterKey:   aws.String(key),
			ParameterValue: aws.String(value),
		})
	}
	return out, nil
}
