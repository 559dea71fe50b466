package cmd

import (
	"path/filepath"

	"github.com/stackpilothq/stackpilot/internal/config"
	"github.com/stackpilothq/stackpilot/internal/identity"
	"github.com/stackpilothq/stackpilot/internal/logging"
)

// auditCommand records a command invocation in the audit log. Best-effort:
// audit failures never block the command itself.
func auditCommand(command, stackName string, caller identity.Caller) {
	auditor, err := logging.NewAuditLogger(filepath.Join(config.DefaultConfigDir(), "audit.log"))
	if err != nil {
		return
	}
	defer auditor.Close()
	_ = auditor.LogCommand(command, stackName, caller.Name, caller.ARN)
}
