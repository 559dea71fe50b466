// Package stack implements the CloudFormation stack lifecycle: create-or-
// update submission, event polling until a terminal state, delete, outputs,
// and bulk cleanup. All AWS dependencies are injected via the narrow
// interfaces in internal/aws.
package stack

import (
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// Action identifies which lifecycle operation is in flight. It scopes the
// event tracker's terminal decision and labels displayed events.
type Action string

// Lifecycle actions.
const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// stackResourceType is the ResourceType of the top-level stack resource.
// Only events carrying this type decide operation-level success or failure;
// events for nested resources are display-only.
const stackResourceType = "AWS::CloudFormation::Stack"

// isSuccessTerminal reports whether a stack-level resource status ends the
// current operation successfully.
func isSuccessTerminal(s cftypes.ResourceStatus) bool {
	switch s {
	case cftypes.ResourceStatusCreateComplete,
		cftypes.ResourceStatusDeleteComplete,
		cftypes.ResourceStatusUpdateComplete:
		return true
	}
	return false
}

// isFailureTerminal reports whether a stack-level resource status ends the
// current operation as failed. Rollback-in-progress statuses count as
// failures: once a rollback starts the operation cannot succeed.
func isFailureTerminal(s cftypes.ResourceStatus) bool {
	switch s {
	case cftypes.ResourceStatusRollbackFailed,
		cftypes.ResourceStatusRollbackInProgress,
		cftypes.ResourceStatusRollbackComplete,
		cftypes.ResourceStatusUpdateRollbackInProgress,
		cftypes.ResourceStatusUpdateRollbackComplete,
		cftypes.ResourceStatusUpdateFailed,
		cftypes.ResourceStatusDeleteFailed:
		return true
	}
	return false
}

// isExistingStatus reports whether a stack status counts as "present" for
// the create-vs-update routing decision. Stacks mid-operation or already
// deleted do not count.
func isExistingStatus(s cftypes.StackStatus) bool {
	switch s {
	case cftypes.StackStatusCreateComplete,
		cftypes.StackStatusUpdateComplete,
		cftypes.StackStatusRollbackComplete,
		cftypes.StackStatusUpdateRollbackComplete:
		return true
	}
	return false
}

// cleanupStatusFilter is the server-side status filter applied when listing
// the stack inventory for a cleanup pass.
var cleanupStatusFilter = []cftypes.StackStatus{
	cftypes.StackStatusCreateComplete,
	cftypes.StackStatusCreateFailed,
	cftypes.StackStatusDeleteFailed,
	cftypes.StackStatusRollbackComplete,
	cftypes.StackStatusUpdateComplete,
}
