package stack

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	spaws "github.com/stackpilothq/stackpilot/internal/aws"
)

// Options configures a Controller for one target stack.
type Options struct {
	// StackName is the CloudFormation stack name. Required.
	StackName string

	// TemplateBody is the serialized template submitted on create/update.
	TemplateBody string

	// Parameters are passed through to the provider unchanged.
	Parameters []cftypes.Parameter

	// Capabilities defaults to CAPABILITY_IAM when empty.
	Capabilities []cftypes.Capability

	// FireAndForget makes CreateOrUpdate and Delete return immediately
	// after submission instead of waiting for a terminal state.
	FireAndForget bool

	// PollInterval is the event-polling interval. Zero means
	// DefaultPollInterval.
	PollInterval time.Duration

	// MaxWait bounds the terminal-state wait. Zero means no bound.
	MaxWait time.Duration
}

// Controller orchestrates the stack lifecycle: it routes create-vs-update,
// submits the operation, and awaits the event tracker's terminal decision.
// One Controller manages one stack; the seen-event state lives inside each
// individual Await call, so a Controller is reusable across operations.
type Controller struct {
	describe    spaws.DescribeStacksAPI
	deleteStack spaws.DeleteStackAPI
	submitter   *Submitter
	tracker     *Tracker
	opts        Options

	// clock returns the current time. Injectable for tests.
	clock func() time.Time
}

// NewController constructs a Controller with all required CloudFormation
// interfaces.
func NewController(
	create spaws.CreateStackAPI,
	update spaws.UpdateStackAPI,
	describe spaws.DescribeStacksAPI,
	events spaws.DescribeStackEventsAPI,
	deleteStack spaws.DeleteStackAPI,
	opts Options,
) *Controller {
	if len(opts.Capabilities) == 0 {
		opts.Capabilities = []cftypes.Capability{cftypes.CapabilityCapabilityIam}
	}
	return &Controller{
		describe:    describe,
		deleteStack: deleteStack,
		submitter:   NewSubmitter(create, update),
		tracker:     NewTracker(events, opts.PollInterval).WithMaxWait(opts.MaxWait),
		opts:        opts,
		clock:       time.Now,
	}
}

// WithSink sets the destination for displayed stack events.
func (c *Controller) WithSink(sink EventSink) *Controller {
	c.tracker.WithSink(sink)
	return c
}

// CreateOrUpdate creates the stack if it does not exist, updates it
// otherwise, and waits for the operation's terminal state unless
// fire-and-forget mode is enabled. An update with no changes returns nil
// without polling.
func (c *Controller) CreateOrUpdate(ctx context.Context) error {
	action := ActionCreate
	if c.Exists(ctx, c.opts.StackName) {
		action = ActionUpdate
	}

	startedAt, noop, err := c.submitter.Submit(ctx, action, Request{
		StackName:    c.opts.StackName,
		TemplateBody: c.opts.TemplateBody,
		Parameters:   c.opts.Parameters,
		Capabilities: c.opts.Capabilities,
	})
	if err != nil {
		return err
	}
	if noop || c.opts.FireAndForget {
		return nil
	}

	return c.tracker.Await(ctx, action, c.opts.StackName, startedAt)
}

// Delete removes the stack and waits for DELETE_COMPLETE unless
// fire-and-forget mode is enabled. overrideName, when non-empty, targets a
// different stack than the configured one; the cleanup scanner uses this to
// re-enter the delete path per matched stack. Deleting a stack that does
// not exist succeeds.
func (c *Controller) Delete(ctx context.Context, overrideName string) error {
	name := c.opts.StackName
	if overrideName != "" {
		name = overrideName
	}

	startedAt := c.clock()
	if _, err := c.deleteStack.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: aws.String(name),
	}); err != nil {
		return fmt.Errorf("delete stack %q: %w", name, err)
	}

	if c.opts.FireAndForget {
		return nil
	}

	return c.tracker.Await(ctx, ActionDelete, name, startedAt)
}

// Exists reports whether the named stack is present in a settled state.
// Errors (including "stack does not exist") are absorbed as false: this
// check routes the create-vs-update decision and must never fail the
// operation on its own.
func (c *Controller) Exists(ctx context.Context, name string) bool {
	out, err := c.describe.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil || len(out.Stacks) == 0 {
		return false
	}
	return isExistingStatus(out.Stacks[0].StackStatus)
}

// Outputs returns the named stack's outputs as a key-to-value map.
func (c *Controller) Outputs(ctx context.Context, name string) (map[string]string, error) {
	out, err := c.describe.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("describe stack %q: %w", name, err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("stack %q not found", name)
	}

	outputs := make(map[string]string, len(out.Stacks[0].Outputs))
	for _, o := range out.Stacks[0].Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return outputs, nil
}

// Status returns the named stack's current status string.
func (c *Controller) Status(ctx context.Context, name string) (string, error) {
	out, err := c.describe.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("describe stack %q: %w", name, err)
	}
	if len(out.Stacks) == 0 {
		return "", fmt.Errorf("stack %q not found", name)
	}
	return string(out.Stacks[0].StackStatus), nil
}
