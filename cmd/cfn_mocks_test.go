package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/spf13/cobra"

	"github.com/stackpilothq/stackpilot/internal/cli"
)

// ---------------------------------------------------------------------------
// Shared CloudFormation mocks for command tests
// ---------------------------------------------------------------------------

type stubCreateStack struct {
	output *cloudformation.CreateStackOutput
	err    error
	called bool
}

func (m *stubCreateStack) CreateStack(_ context.Context, _ *cloudformation.CreateStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error) {
	m.called = true
	return m.output, m.err
}

type stubUpdateStack struct {
	output *cloudformation.UpdateStackOutput
	err    error
	called bool
}

func (m *stubUpdateStack) UpdateStack(_ context.Context, _ *cloudformation.UpdateStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error) {
	m.called = true
	return m.output, m.err
}

type stubDescribeStacks struct {
	output *cloudformation.DescribeStacksOutput
	err    error
}

func (m *stubDescribeStacks) DescribeStacks(_ context.Context, _ *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	return m.output, m.err
}

type stubDescribeStackEvents struct {
	output *cloudformation.DescribeStackEventsOutput
	err    error
	calls  int
}

func (m *stubDescribeStackEvents) DescribeStackEvents(_ context.Context, _ *cloudformation.DescribeStackEventsInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error) {
	m.calls++
	return m.output, m.err
}

// stubDeleteStack records delete calls. The mutex matters for cleanup tests,
// where deletes run concurrently.
type stubDeleteStack struct {
	output *cloudformation.DeleteStackOutput
	err    error

	mu     sync.Mutex
	called bool
	names  []string
}

func (m *stubDeleteStack) DeleteStack(_ context.Context, params *cloudformation.DeleteStackInput, _ ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	m.mu.Lock()
	m.called = true
	m.names = append(m.names, aws.ToString(params.StackName))
	m.mu.Unlock()
	return m.output, m.err
}

type stubListStacks struct {
	output *cloudformation.ListStacksOutput
	err    error
}

func (m *stubListStacks) ListStacks(_ context.Context, _ *cloudformation.ListStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error) {
	return m.output, m.err
}

// terminalStackEvents returns an events stub whose single page carries a
// stack-level terminal status timestamped in the future, so any submission
// watermark passes.
func terminalStackEvents(status cftypes.ResourceStatus) *stubDescribeStackEvents {
	return &stubDescribeStackEvents{
		output: &cloudformation.DescribeStackEventsOutput{
			StackEvents: []cftypes.StackEvent{{
				EventId:        aws.String("ev-terminal"),
				Timestamp:      aws.Time(time.Now().Add(time.Hour)),
				ResourceType:   aws.String("AWS::CloudFormation::Stack"),
				ResourceStatus: status,
			}},
		},
	}
}

// describedStacks returns a describe stub reporting one stack in the given
// status with the given outputs.
func describedStacks(name string, status cftypes.StackStatus, outputs ...cftypes.Output) *stubDescribeStacks {
	return &stubDescribeStacks{
		output: &cloudformation.DescribeStacksOutput{
			Stacks: []cftypes.Stack{{
				StackName:   aws.String(name),
				StackStatus: status,
				Outputs:     outputs,
			}},
		},
	}
}

// newTestRoot creates a test root carrying the same persistent flags as the
// production root so subcommands see a populated CLIContext.
func newTestRoot(sub *cobra.Command) *cobra.Command {
	root := &cobra.Command{
		Use:           "stackpilot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := cli.NewCLIContext(cmd)
			cmd.SetContext(cli.WithContext(context.Background(), cliCtx))
			return nil
		},
	}
	root.PersistentFlags().Bool("verbose", false, "Show progress steps")
	root.PersistentFlags().Bool("debug", false, "Show AWS SDK call details")
	root.PersistentFlags().Bool("json", false, "Machine-readable JSON output")
	root.PersistentFlags().Bool("yes", false, "Skip confirmation on destructive operations")
	root.PersistentFlags().String("region", "", "AWS region (overrides config)")
	root.AddCommand(sub)
	return root
}
