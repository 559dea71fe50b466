package stack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// mockListStacks returns one canned page per call and records the
// continuation tokens it saw.
type mockListStacks struct {
	responses []*cloudformation.ListStacksOutput
	errs      []error
	tokens    []*string
	filters   [][]cftypes.StackStatus
	calls     int
}

func (m *mockListStacks) ListStacks(_ context.Context, params *cloudformation.ListStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error) {
	i := m.calls
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.calls++
	m.tokens = append(m.tokens, params.NextToken)
	m.filters = append(m.filters, params.StackStatusFilter)
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	return m.responses[i], err
}

// deleteRecorder is a thread-safe DeleteFunc that records the names it was
// asked to delete and fails the names listed in failNames.
type deleteRecorder struct {
	mu        sync.Mutex
	names     []string
	failNames map[string]bool
}

func (d *deleteRecorder) Delete(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	if d.failNames[name] {
		return errors.New("delete refused")
	}
	return nil
}

func (d *deleteRecorder) sorted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := append([]string(nil), d.names...)
	sort.Strings(out)
	return out
}

var cleanupNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// summary builds a stack summary created minutesAgo before cleanupNow.
func summary(name string, minutesAgo int) cftypes.StackSummary {
	return cftypes.StackSummary{
		StackName:    aws.String(name),
		StackStatus:  cftypes.StackStatusCreateComplete,
		CreationTime: aws.Time(cleanupNow.Add(-time.Duration(minutesAgo) * time.Minute)),
	}
}

func listPage(next string, summaries ...cftypes.StackSummary) *cloudformation.ListStacksOutput {
	out := &cloudformation.ListStacksOutput{StackSummaries: summaries}
	if next != "" {
		out.NextToken = aws.String(next)
	}
	return out
}

func newCleanerForTest(list *mockListStacks, del *deleteRecorder, out *bytes.Buffer) *Cleaner {
	c := NewCleaner(list, del.Delete, out)
	c.clock = func() time.Time { return cleanupNow }
	return c
}

func TestCleanupSelectsByPatternAndAge(t *testing.T) {
	list := &mockListStacks{
		responses: []*cloudformation.ListStacksOutput{
			listPage("",
				summary("TEST-alpha", 30),
				summary("TEST-beta", 90),
				summary("TEST-gamma", 120),
				summary("prod-api", 500),
			),
		},
	}
	del := &deleteRecorder{}
	var out bytes.Buffer
	c := newCleanerForTest(list, del, &out)

	err := c.Run(context.Background(), CleanupOptions{
		Pattern:    regexp.MustCompile(`^TEST-`),
		MinutesOld: 60,
	})
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	want := []string{"TEST-beta", "TEST-gamma"}
	if got := del.sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("deleted = %v, want %v", got, want)
	}
}

func TestCleanupLimitKeepsOldestFirst(t *testing.T) {
	list := &mockListStacks{
		responses: []*cloudformation.ListStacksOutput{
			listPage("",
				summary("TEST-alpha", 30),
				summary("TEST-beta", 90),
				summary("TEST-gamma", 120),
			),
		},
	}
	del := &deleteRecorder{}
	var out bytes.Buffer
	c := newCleanerForTest(list, del, &out)

	err := c.Run(context.Background(), CleanupOptions{
		Pattern:    regexp.MustCompile(`^TEST-`),
		MinutesOld: 60,
		Limit:      1,
	})
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	want := []string{"TEST-gamma"}
	if got := del.sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("deleted = %v, want oldest stack only %v", got, want)
	}
}

func TestCleanupZeroMinutesOldDisablesAgeFilter(t *testing.T) {
	list := &mockListStacks{
		responses: []*cloudformation.ListStacksOutput{
			listPage("", summary("TEST-fresh", 1), summary("TEST-old", 400)),
		},
	}
	del := &deleteRecorder{}
	var out bytes.Buffer
	c := newCleanerForTest(list, del, &out)

	err := c.Run(context.Background(), CleanupOptions{
		Pattern: regexp.MustCompile(`^TEST-`),
	})
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	want := []string{"TEST-fresh", "TEST-old"}
	if got := del.sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("deleted = %v, want %v", got, want)
	}
}

func TestCleanupDryRunDeletesNothing(t *testing.T) {
	list := &mockListStacks{
		responses: []*cloudformation.ListStacksOutput{
			listPage("", summary("TEST-beta", 90), summary("TEST-gamma", 120)),
		},
	}
	del := &deleteRecorder{}
	var out bytes.Buffer
	c := newCleanerForTest(list, del, &out)

	err := c.Run(context.Background(), CleanupOptions{
		Pattern:    regexp.MustCompile(`^TEST-`),
		MinutesOld: 60,
		DryRun:     true,
	})
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	if len(del.sorted()) != 0 {
		t.Errorf("dry run deleted %v, want no deletes", del.sorted())
	}
	text := out.String()
	if !strings.Contains(text, "[dry-run] would delete stack TEST-beta") ||
		!strings.Contains(text, "[dry-run] would delete stack TEST-gamma") {
		t.Errorf("dry-run output missing intent lines:\n%s", text)
	}
}

func TestCleanupFollowsListPagination(t *testing.T) {
	list := &mockListStacks{
		responses: []*cloudformation.ListStacksOutput{
			listPage("page-2", summary("TEST-one", 200)),
			listPage("", summary("TEST-two", 300)),
		},
	}
	del := &deleteRecorder{}
	var out bytes.Buffer
	c := newCleanerForTest(list, del, &out)

	err := c.Run(context.Background(), CleanupOptions{
		Pattern: regexp.MustCompile(`^TEST-`),
	})
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	if list.calls != 2 {
		t.Fatalf("ListStacks calls = %d, want 2", list.calls)
	}
	if list.tokens[0] != nil {
		t.Errorf("first call token = %v, want nil", aws.ToString(list.tokens[0]))
	}
	if aws.ToString(list.tokens[1]) != "page-2" {
		t.Errorf("second call token = %q, want page-2", aws.ToString(list.tokens[1]))
	}
	want := []string{"TEST-one", "TEST-two"}
	if got := del.sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("deleted = %v, want %v", got, want)
	}
}

func TestCleanupSendsStatusFilter(t *testing.T) {
	list := &mockListStacks{
		responses: []*cloudformation.ListStacksOutput{listPage("")},
	}
	del := &deleteRecorder{}
	var out bytes.Buffer
	c := newCleanerForTest(list, del, &out)

	if err := c.Run(context.Background(), CleanupOptions{Pattern: regexp.MustCompile(`.`)}); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	want := []cftypes.StackStatus{
		cftypes.StackStatusCreateComplete,
		cftypes.StackStatusCreateFailed,
		cftypes.StackStatusDeleteFailed,
		cftypes.StackStatusRollbackComplete,
		cftypes.StackStatusUpdateComplete,
	}
	if len(list.filters) == 0 || !reflect.DeepEqual(list.filters[0], want) {
		t.Errorf("status filter = %v, want %v", list.filters, want)
	}
}

func TestCleanupOneFailureDoesNotStopBatch(t *testing.T) {
	list := &mockListStacks{
		responses: []*cloudformation.ListStacksOutput{
			listPage("",
				summary("TEST-a", 100),
				summary("TEST-b", 200),
				summary("TEST-c", 300),
			),
		},
	}
	del := &deleteRecorder{failNames: map[string]bool{"TEST-b": true}}
	var out bytes.Buffer
	c := newCleanerForTest(list, del, &out)

	err := c.Run(context.Background(), CleanupOptions{Pattern: regexp.MustCompile(`^TEST-`)})
	if err != nil {
		t.Fatalf("Run() must not fail on per-stack delete errors, got: %v", err)
	}

	want := []string{"TEST-a", "TEST-b", "TEST-c"}
	if got := del.sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("deleted = %v, want all three attempted %v", got, want)
	}
	if !strings.Contains(out.String(), "cleanup finished: 2 deleted, 1 failed") {
		t.Errorf("summary line missing or wrong:\n%s", out.String())
	}
}

// overlapWriter reports whether two Write calls ever ran concurrently. The
// cleaner must serialize progress output because its deletes run in
// parallel goroutines sharing one writer.
type overlapWriter struct {
	active     atomic.Int32
	overlapped atomic.Bool
}

func (w *overlapWriter) Write(p []byte) (int, error) {
	if w.active.Add(1) > 1 {
		w.overlapped.Store(true)
	}
	time.Sleep(time.Millisecond)
	w.active.Add(-1)
	return len(p), nil
}

func TestCleanupSerializesProgressOutput(t *testing.T) {
	var summaries []cftypes.StackSummary
	failNames := map[string]bool{}
	for i := 0; i < 16; i++ {
		name := fmt.Sprintf("TEST-%02d", i)
		summaries = append(summaries, summary(name, 100+i))
		// Half the deletes fail so both progress lines are exercised.
		if i%2 == 0 {
			failNames[name] = true
		}
	}
	list := &mockListStacks{
		responses: []*cloudformation.ListStacksOutput{listPage("", summaries...)},
	}
	del := &deleteRecorder{failNames: failNames}
	w := &overlapWriter{}
	c := NewCleaner(list, del.Delete, w)
	c.clock = func() time.Time { return cleanupNow }

	if err := c.Run(context.Background(), CleanupOptions{Pattern: regexp.MustCompile(`^TEST-`)}); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	if w.overlapped.Load() {
		t.Fatal("concurrent deletes wrote to the shared output writer without serialization")
	}
	if got := len(del.sorted()); got != 16 {
		t.Fatalf("deleted %d stacks, want 16", got)
	}
}

func TestCleanupListErrorIsFatal(t *testing.T) {
	list := &mockListStacks{
		responses: []*cloudformation.ListStacksOutput{nil},
		errs:      []error{errors.New("AccessDenied")},
	}
	del := &deleteRecorder{}
	var out bytes.Buffer
	c := newCleanerForTest(list, del, &out)

	err := c.Run(context.Background(), CleanupOptions{Pattern: regexp.MustCompile(`.`)})
	if err == nil || !strings.Contains(err.Error(), "list stacks") {
		t.Fatalf("Run() = %v, want list failure surfaced", err)
	}
	if len(del.sorted()) != 0 {
		t.Errorf("deletes attempted after list failure: %v", del.sorted())
	}
}

func TestCleanupNoMatchesReportsAndSucceeds(t *testing.T) {
	list := &mockListStacks{
		responses: []*cloudformation.ListStacksOutput{
			listPage("", summary("prod-api", 500)),
		},
	}
	del := &deleteRecorder{}
	var out bytes.Buffer
	c := newCleanerForTest(list, del, &out)

	if err := c.Run(context.Background(), CleanupOptions{Pattern: regexp.MustCompile(`^TEST-`)}); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "no stacks match") {
		t.Errorf("expected no-match notice, got:\n%s", out.String())
	}
	if len(del.sorted()) != 0 {
		t.Errorf("deletes attempted with no matches: %v", del.sorted())
	}
}
