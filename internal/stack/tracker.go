package stack

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	spaws "github.com/stackpilothq/stackpilot/internal/aws"
)

// DefaultPollInterval is the delay between event-polling ticks when the
// caller does not configure one.
const DefaultPollInterval = 5 * time.Second

// EventSink receives each newly observed stack event, in chronological
// order, for display. Emit is called from the polling goroutine; sinks that
// write to shared destinations must synchronize themselves. A nil sink
// suppresses event output.
type EventSink interface {
	Emit(action Action, stackName string, ev cftypes.StackEvent)
}

// Ticker abstracts the polling timer so tests can drive ticks
// deterministically instead of waiting on wall-clock timers.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker with the given interval.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Tracker polls DescribeStackEvents for one stack until the operation that
// started at a given watermark reaches a terminal state.
//
// Each poll fetches the full event list (following pagination tokens),
// filters out events already seen this session, emits the remainder oldest-
// first, and inspects only the last new event: a stack-level event with a
// terminal status decides the operation. A failure status timestamped before
// the watermark belongs to a previous operation and counts as success.
type Tracker struct {
	events spaws.DescribeStackEventsAPI
	sink   EventSink

	pollInterval time.Duration

	// maxWait bounds the total wait. Zero means poll until terminal state
	// (or context cancellation), matching the provider's own lack of a
	// deadline on long-running operations.
	maxWait time.Duration

	// newTicker creates the polling timer. Overridable in tests.
	newTicker TickerFactory
}

// NewTracker constructs a Tracker polling at the given interval. A zero or
// negative interval falls back to DefaultPollInterval.
func NewTracker(events spaws.DescribeStackEventsAPI, pollInterval time.Duration) *Tracker {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Tracker{
		events:       events,
		pollInterval: pollInterval,
		newTicker:    newRealTicker,
	}
}

// WithSink sets the destination for displayed events.
func (t *Tracker) WithSink(sink EventSink) *Tracker {
	t.sink = sink
	return t
}

// WithMaxWait bounds the total polling duration. Zero disables the bound.
func (t *Tracker) WithMaxWait(d time.Duration) *Tracker {
	t.maxWait = d
	return t
}

// Await polls until the operation reaches a terminal state. It returns nil
// on success (including the stack disappearing entirely, which makes
// delete-of-nonexistent idempotent) and an error carrying the provider's
// status reason on failure.
//
// Polls never overlap: the next tick is not consumed until the previous
// fetch and decision have finished, so a slow fetch simply skips ticks.
func (t *Tracker) Await(ctx context.Context, action Action, stackName string, startedAt time.Time) error {
	seen := make(map[string]struct{})

	// First poll immediately; the submission may already have produced a
	// terminal event (short delete, fast failure).
	done, err := t.poll(ctx, action, stackName, startedAt, seen)
	if done || err != nil {
		return err
	}

	tick := t.newTicker(t.pollInterval)
	defer tick.Stop()

	var deadline <-chan time.Time
	if t.maxWait > 0 {
		timer := time.NewTimer(t.maxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("stack %q: no terminal state after %s", stackName, t.maxWait)
		case <-tick.C():
		}

		done, err := t.poll(ctx, action, stackName, startedAt, seen)
		if done || err != nil {
			return err
		}
	}
}

// poll runs one fetch-and-decide cycle. It returns done=true when the
// operation reached a terminal state; err is non-nil only for failures that
// should surface to the caller.
func (t *Tracker) poll(ctx context.Context, action Action, stackName string, startedAt time.Time, seen map[string]struct{}) (done bool, err error) {
	fetched, fetchErr := t.fetchAllEvents(ctx, stackName)

	// Collect events not yet seen this session, marking everything fetched
	// as seen so later ticks (and later pages of this fetch) skip them.
	var fresh []cftypes.StackEvent
	for _, ev := range fetched {
		id := aws.ToString(ev.EventId)
		if _, already := seen[id]; already {
			continue
		}
		seen[id] = struct{}{}
		fresh = append(fresh, ev)
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return aws.ToTime(fresh[i].Timestamp).Before(aws.ToTime(fresh[j].Timestamp))
	})

	if t.sink != nil {
		for _, ev := range fresh {
			t.sink.Emit(action, stackName, ev)
		}
	}

	if fetchErr != nil {
		switch classifyError(fetchErr) {
		case errNotFound:
			// Stack is gone. For deletes this is the normal exit; for other
			// actions there is nothing left to wait on.
			return true, nil
		case errThrottled:
			// Throttled mid-fetch: decide against whatever pages we already
			// have rather than failing the wait.
		default:
			return false, fmt.Errorf("fetch events for stack %q: %w", stackName, fetchErr)
		}
	}

	if len(fresh) == 0 {
		return false, nil
	}

	// Only the most recent new event decides, and only when it belongs to
	// the top-level stack resource. Nested resource events are display-only.
	last := fresh[len(fresh)-1]
	if aws.ToString(last.ResourceType) != stackResourceType {
		return false, nil
	}

	status := last.ResourceStatus
	ts := aws.ToTime(last.Timestamp)

	switch {
	case isFailureTerminal(status) && !ts.Before(startedAt):
		reason := aws.ToString(last.ResourceStatusReason)
		if reason == "" {
			reason = "no reason reported"
		}
		return true, fmt.Errorf("stack %q %s failed with %s: %s",
			stackName, action, status, reason)
	case isSuccessTerminal(status), isFailureTerminal(status):
		// Success, or a failure older than the watermark — a leftover from a
		// previous operation, not ours.
		return true, nil
	}

	return false, nil
}

// fetchAllEvents pages through DescribeStackEvents until the continuation
// token is exhausted. On error it returns the pages accumulated so far
// together with the error, so throttle recovery can still decide.
func (t *Tracker) fetchAllEvents(ctx context.Context, stackName string) ([]cftypes.StackEvent, error) {
	var all []cftypes.StackEvent
	var token *string

	for {
		out, err := t.events.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{
			StackName: aws.String(stackName),
			NextToken: token,
		})
		if err != nil {
			return all, err
		}
		all = append(all, out.StackEvents...)

		if out.NextToken == nil || *out.NextToken == "" {
			return all, nil
		}
		token = out.NextToken
	}
}
