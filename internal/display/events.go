// Package display renders stack events as colorized console lines. It is a
// pure output collaborator: nothing here feeds back into lifecycle
// decisions.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/fatih/color"

	"github.com/stackpilothq/stackpilot/internal/stack"
)

// timestampLayout matches the console timestamp format used for event lines.
const timestampLayout = "2006-01-02 15:04:05"

var (
	statusGood    = color.New(color.FgGreen)
	statusBad     = color.New(color.FgRed)
	statusPending = color.New(color.FgYellow)
)

// Printer writes one line per stack event to an io.Writer. Safe for use as
// an EventSink from a polling goroutine.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter constructs a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Emit implements stack.EventSink.
func (p *Printer) Emit(action stack.Action, stackName string, ev cftypes.StackEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := string(ev.ResourceStatus)
	line := fmt.Sprintf("%s  %s  %s  %s  %s  %s",
		aws.ToTime(ev.Timestamp).Format(timestampLayout),
		action,
		stackName,
		aws.ToString(ev.ResourceType),
		aws.ToString(ev.LogicalResourceId),
		colorizeStatus(status),
	)
	if reason := aws.ToString(ev.ResourceStatusReason); reason != "" {
		line += "  " + reason
	}
	fmt.Fprintln(p.w, line)
}

// colorizeStatus colors a resource status string: green for clean
// completions, red for failures and anything rollback-related, yellow for
// in-progress statuses.
func colorizeStatus(status string) string {
	switch {
	case strings.Contains(status, "FAILED"), strings.Contains(status, "ROLLBACK"):
		return statusBad.Sprint(status)
	case strings.HasSuffix(status, "_COMPLETE"):
		return statusGood.Sprint(status)
	case strings.HasSuffix(status, "_IN_PROGRESS"):
		return statusPending.Sprint(status)
	}
	return status
}
