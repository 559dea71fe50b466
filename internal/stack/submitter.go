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

// Request carries everything needed to submit a create or update operation.
type Request struct {
	StackName    string
	TemplateBody string
	Parameters   []cftypes.Parameter
	Capabilities []cftypes.Capability
}

// Submitter routes a stack operation to CreateStack or UpdateStack and
// normalizes the "no updates" condition on update into a successful no-op.
type Submitter struct {
	create spaws.CreateStackAPI
	update spaws.UpdateStackAPI

	// clock returns the current time. Injectable for tests.
	clock func() time.Time
}

// NewSubmitter constructs a Submitter over the given CloudFormation clients.
func NewSubmitter(create spaws.CreateStackAPI, update spaws.UpdateStackAPI) *Submitter {
	return &Submitter{
		create: create,
		update: update,
		clock:  time.Now,
	}
}

// Submit issues the create or update call for req. The returned startedAt
// timestamp is taken immediately before submission; it is the watermark the
// event tracker uses to separate this operation's events from stale events
// left over from a previous one.
//
// An update that fails because the template produces no changes returns
// noop=true with a nil error: there is nothing to poll for.
func (s *Submitter) Submit(ctx context.Context, action Action, req Request) (startedAt time.Time, noop bool, err error) {
	startedAt = s.clock()

	switch action {
	case ActionCreate:
		_, err = s.create.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:    aws.String(req.StackName),
			TemplateBody: aws.String(req.TemplateBody),
			Parameters:   req.Parameters,
			Capabilities: req.Capabilities,
		})
		if err != nil {
			return startedAt, false, fmt.Errorf("create stack %q: %w", req.StackName, err)
		}
	case ActionUpdate:
		_, err = s.update.UpdateStack(ctx, &cloudformation.UpdateStackInput{
			StackName:    aws.String(req.StackName),
			TemplateBody: aws.String(req.TemplateBody),
			Parameters:   req.Parameters,
			Capabilities: req.Capabilities,
		})
		if err != nil {
			if classifyError(err) == errNoUpdates {
				// Stack already matches the template. Idempotent no-op.
				return startedAt, true, nil
			}
			return startedAt, false, fmt.Errorf("update stack %q: %w", req.StackName, err)
		}
	default:
		return startedAt, false, fmt.Errorf("unsupported submit action %q", action)
	}

	return startedAt, false, nil
}
