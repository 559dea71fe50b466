package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// GetCallerIdentityAPI defines the subset of the STS API used for resolving
// the invoking principal. The audit log records the caller ARN on every
// command that touches the provider.
type GetCallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

var _ GetCallerIdentityAPI = (*sts.Client)(nil)
