// Package aws provides thin wrappers around AWS SDK clients used by
// stackpilot. This file defines narrow interfaces for the CloudFormation
// operations the stack lifecycle needs. Each interface wraps exactly one
// AWS SDK method, enabling mock injection in tests.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
)

// ---------------------------------------------------------------------------
// CloudFormation stack management interfaces
// ---------------------------------------------------------------------------

// CreateStackAPI defines the subset of the CloudFormation API used for
// creating new stacks. Used by the submitter when the target stack does not
// exist yet.
type CreateStackAPI interface {
	CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
}

// UpdateStackAPI defines the subset of the CloudFormation API used for
// updating existing stacks. Used by the submitter when the target stack
// already exists.
type UpdateStackAPI interface {
	UpdateStack(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
}

// DescribeStacksAPI defines the subset of the CloudFormation API used for
// querying stack status and outputs. Used by the existence check and the
// outputs query.
type DescribeStacksAPI interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// DescribeStackEventsAPI defines the subset of the CloudFormation API used
// for streaming stack events during a create, update, or delete operation.
// The event tracker pages through this call on every poll tick.
type DescribeStackEventsAPI interface {
	DescribeStackEvents(ctx context.Context, params *cloudformation.DescribeStackEventsInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error)
}

// ListStacksAPI defines the subset of the CloudFormation API used for
// paginating the full stack inventory. Used by the cleanup scanner.
type ListStacksAPI interface {
	ListStacks(ctx context.Context, params *cloudformation.ListStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error)
}

// DeleteStackAPI defines the subset of the CloudFormation API used for
// deleting a stack. Used by the lifecycle controller's delete path and by
// the cleanup scanner.
type DeleteStackAPI interface {
	DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
}

// ---------------------------------------------------------------------------
// Compile-time interface satisfaction checks
// ---------------------------------------------------------------------------

var (
	_ CreateStackAPI         = (*cloudformation.Client)(nil)
	_ UpdateStackAPI         = (*cloudformation.Client)(nil)
	_ DescribeStacksAPI      = (*cloudformation.Client)(nil)
	_ DescribeStackEventsAPI = (*cloudformation.Client)(nil)
	_ ListStacksAPI          = (*cloudformation.Client)(nil)
	_ DeleteStackAPI         = (*cloudformation.Client)(nil)
)
