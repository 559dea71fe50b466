// Package cmd provides CLI commands for stackpilot.
// This file defines the shared AWS client infrastructure used by commands
// to initialize SDK clients once per invocation.
package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go/middleware"

	"github.com/stackpilothq/stackpilot/internal/config"
	"github.com/stackpilothq/stackpilot/internal/identity"
	"github.com/stackpilothq/stackpilot/internal/logging"
)

// awsClients holds pre-initialized AWS SDK clients, the resolved caller
// identity, and the loaded user preferences.
type awsClients struct {
	cfnClient *cloudformation.Client
	caller    identity.Caller

	// userConfig holds the loaded preferences for region, poll interval,
	// capability, and wait mode.
	userConfig *config.Config
}

// initAWSClients loads the AWS SDK config, creates the CloudFormation
// client, resolves the caller identity for audit logging, and loads the
// stackpilot config. regionFlag, when non-empty, overrides the configured
// region. When debug is true, each SDK call is mirrored to stderr in
// addition to the per-call JSON log files.
func initAWSClients(ctx context.Context, regionFlag string, debug bool) (*awsClients, error) {
	userCfg, err := config.Load(config.DefaultConfigDir())
	if err != nil {
		return nil, fmt.Errorf("load stackpilot config: %w", err)
	}

	region := userCfg.Region
	if regionFlag != "" {
		region = regionFlag
	}

	var loadOpts []func(*awscfg.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(region))
	}

	// Per-call structured logs. Best-effort: a logging setup failure never
	// blocks the command.
	logDir := filepath.Join(config.DefaultConfigDir(), "logs")
	if apiLogger, logErr := logging.NewStructuredLogger(logDir, debug); logErr == nil {
		loadOpts = append(loadOpts, awscfg.WithAPIOptions(
			[]func(*middleware.Stack) error{apiCallLogging(apiLogger)},
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	// Resolve the caller for audit log attribution.
	resolver := identity.NewResolver(sts.NewFromConfig(cfg))
	caller, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	return &awsClients{
		cfnClient:  cloudformation.NewFromConfig(cfg),
		caller:     *caller,
		userConfig: userCfg,
	}, nil
}

// apiCallLogging returns a middleware registration that records every SDK
// operation (service, operation name, duration, outcome) through the
// structured logger.
func apiCallLogging(logger logging.Logger) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Initialize.Add(middleware.InitializeMiddlewareFunc("stackpilotAPICallLog",
			func(ctx context.Context, in middleware.InitializeInput, next middleware.InitializeHandler) (middleware.InitializeOutput, middleware.Metadata, error) {
				start := time.Now()
				out, md, err := next.HandleInitialize(ctx, in)
				logger.Log(awsmiddleware.GetServiceID(ctx), awsmiddleware.GetOperationName(ctx), time.Since(start), err)
				return out, md, err
			},
		), middleware.After)
	}
}

// pollInterval returns the configured poll interval as a time.Duration.
func (c *awsClients) pollInterval() time.Duration {
	if c.userConfig == nil || c.userConfig.PollIntervalMs <= 0 {
		return time.Duration(config.DefaultPollIntervalMs) * time.Millisecond
	}
	return time.Duration(c.userConfig.PollIntervalMs) * time.Millisecond
}
