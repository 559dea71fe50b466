// Package identity derives the invoking principal from AWS STS caller
// identity. The caller ARN is recorded in the audit log for every command
// that touches the provider.
package identity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sts"

	spaws "github.com/stackpilothq/stackpilot/internal/aws"
)

// Caller holds the resolved caller identity.
// Name is the normalized friendly name; ARN is the full caller ARN.
type Caller struct {
	Name string
	ARN  string
}

// Resolver resolves the current AWS caller identity to a Caller.
type Resolver struct {
	client spaws.GetCallerIdentityAPI
}

// NewResolver creates a Resolver with the given STS client.
func NewResolver(client spaws.GetCallerIdentityAPI) *Resolver {
	return &Resolver{client: client}
}

// Resolve calls STS GetCallerIdentity and normalizes the ARN to a Caller.
func (r *Resolver) Resolve(ctx context.Context) (*Caller, error) {
	out, err := r.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("sts get-caller-identity: %w", err)
	}

	if out.Arn == nil {
		return nil, fmt.Errorf("sts get-caller-identity returned nil ARN")
	}

	name, err := NormalizeARN(*out.Arn)
	if err != nil {
		return nil, fmt.Errorf("normalize ARN: %w", err)
	}

	return &Caller{
		Name: name,
		ARN:  *out.Arn,
	}, nil
}
