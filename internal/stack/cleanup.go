package stack

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"golang.org/x/sync/errgroup"

	spaws "github.com/stackpilothq/stackpilot/internal/aws"
)

// cleanupConcurrency bounds how many deletes a cleanup pass keeps in flight
// at once, so a large match set does not hammer the provider API.
const cleanupConcurrency = 4

// DeleteFunc deletes one stack by name. The cleaner drives the lifecycle
// controller's delete path through this, keeping the scanner decoupled from
// the controller's construction.
type DeleteFunc func(ctx context.Context, name string) error

// CleanupOptions controls one cleanup pass.
type CleanupOptions struct {
	// Pattern selects stacks whose name it matches. Required.
	Pattern *regexp.Regexp

	// MinutesOld excludes stacks younger than this many minutes.
	// Zero disables the age filter.
	MinutesOld int

	// DryRun logs what would be deleted without deleting anything.
	DryRun bool

	// Limit keeps only the oldest N matched stacks. Zero means no limit.
	Limit int
}

// Cleaner scans the stack inventory and deletes stacks matching a name
// pattern and age threshold. Deletion is best-effort across the set: one
// stack failing never stops the rest.
type Cleaner struct {
	list   spaws.ListStacksAPI
	delete DeleteFunc
	out    io.Writer

	// clock returns the current time. Injectable for tests.
	clock func() time.Time
}

// NewCleaner constructs a Cleaner. out receives per-stack progress lines;
// pass io.Discard to silence them.
func NewCleaner(list spaws.ListStacksAPI, delete DeleteFunc, out io.Writer) *Cleaner {
	return &Cleaner{
		list:   list,
		delete: delete,
		out:    out,
		clock:  time.Now,
	}
}

// Run executes one cleanup pass: list, filter, sort oldest-first, apply the
// limit, then delete (or log, in dry-run mode). It returns an error only
// when the inventory itself cannot be listed; per-stack delete failures are
// reported on the output writer and counted, never fatal.
func (c *Cleaner) Run(ctx context.Context, opts CleanupOptions) error {
	if opts.Pattern == nil {
		return fmt.Errorf("cleanup requires a name pattern")
	}

	summaries, err := c.listAll(ctx)
	if err != nil {
		return fmt.Errorf("list stacks: %w", err)
	}

	matched := c.filter(summaries, opts)
	if len(matched) == 0 {
		fmt.Fprintf(c.out, "no stacks match %s\n", opts.Pattern)
		return nil
	}

	if opts.DryRun {
		for _, s := range matched {
			fmt.Fprintf(c.out, "[dry-run] would delete stack %s (created %s)\n",
				aws.ToString(s.StackName),
				aws.ToTime(s.CreationTime).Format(time.RFC3339))
		}
		return nil
	}

	// mu guards failed and the shared output writer: the progress lines
	// below are written from concurrent goroutines.
	var (
		mu     sync.Mutex
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cleanupConcurrency)
	for _, s := range matched {
		name := aws.ToString(s.StackName)
		g.Go(func() error {
			mu.Lock()
			fmt.Fprintf(c.out, "deleting stack %s\n", name)
			mu.Unlock()
			if delErr := c.delete(gctx, name); delErr != nil {
				mu.Lock()
				failed++
				fmt.Fprintf(c.out, "delete stack %s: %v\n", name, delErr)
				mu.Unlock()
			}
			// Never propagate: a per-stack failure must not cancel the group.
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintf(c.out, "cleanup finished: %d deleted, %d failed\n", len(matched)-failed, failed)
	return nil
}

// filter applies the client-side name and age filters, sorts the survivors
// oldest-first, and truncates to the limit. The returned slice is the
// immutable selection for this pass.
func (c *Cleaner) filter(summaries []cftypes.StackSummary, opts CleanupOptions) []cftypes.StackSummary {
	var cutoff time.Time
	if opts.MinutesOld > 0 {
		cutoff = c.clock().Add(-time.Duration(opts.MinutesOld) * time.Minute)
	}

	var matched []cftypes.StackSummary
	for _, s := range summaries {
		if !opts.Pattern.MatchString(aws.ToString(s.StackName)) {
			continue
		}
		if opts.MinutesOld > 0 && !aws.ToTime(s.CreationTime).Before(cutoff) {
			continue
		}
		matched = append(matched, s)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return aws.ToTime(matched[i].CreationTime).Before(aws.ToTime(matched[j].CreationTime))
	})

	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched
}

// listAll pages through ListStacks with the cleanup status filter until the
// continuation token is exhausted.
func (c *Cleaner) listAll(ctx context.Context) ([]cftypes.StackSummary, error) {
	var all []cftypes.StackSummary
	var token *string

	for {
		out, err := c.list.ListStacks(ctx, &cloudformation.ListStacksInput{
			NextToken:         token,
			StackStatusFilter: cleanupStatusFilter,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, out.StackSummaries...)

		if out.NextToken == nil || *out.NextToken == "" {
			return all, nil
		}
		token = out.NextToken
	}
}
