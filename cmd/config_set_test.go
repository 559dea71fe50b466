package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func runConfigArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	root := newTestRoot(newConfigCommand())
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestConfigSetPersistsValue(t *testing.T) {
	t.Setenv("STACKPILOT_CONFIG_DIR", t.TempDir())

	out, err := runConfigArgs(t, "config", "set", "poll_interval_ms", "2000")
	if err != nil {
		t.Fatalf("config set: %v", err)
	}
	if !strings.Contains(out, "Set poll_interval_ms = 2000") {
		t.Errorf("missing confirmation line: %s", out)
	}

	got, err := runConfigArgs(t, "config", "get", "poll_interval_ms")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if strings.TrimSpace(got) != "2000" {
		t.Errorf("config get = %q, want 2000", got)
	}
}

func TestConfigSetRejectsInvalidValue(t *testing.T) {
	t.Setenv("STACKPILOT_CONFIG_DIR", t.TempDir())

	_, err := runConfigArgs(t, "config", "set", "poll_interval_ms", "10")
	if err == nil || !strings.Contains(err.Error(), "invalid value for poll_interval_ms") {
		t.Fatalf("config set = %v, want validation error", err)
	}

	// Nothing persisted: get still shows the default.
	got, err := runConfigArgs(t, "config", "get", "poll_interval_ms")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if strings.TrimSpace(got) != "5000" {
		t.Errorf("config get = %q, want default 5000 after rejected set", got)
	}
}

func TestConfigSetUnknownKey(t *testing.T) {
	t.Setenv("STACKPILOT_CONFIG_DIR", t.TempDir())

	_, err := runConfigArgs(t, "config", "set", "bogus", "1")
	if err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Fatalf("config set = %v, want unknown-key error", err)
	}
}

func TestConfigGetUnknownKey(t *testing.T) {
	t.Setenv("STACKPILOT_CONFIG_DIR", t.TempDir())

	_, err := runConfigArgs(t, "config", "get", "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Fatalf("config get = %v, want unknown-key error", err)
	}
}

func TestConfigGetUnsetRegion(t *testing.T) {
	t.Setenv("STACKPILOT_CONFIG_DIR", t.TempDir())

	got, err := runConfigArgs(t, "config", "get", "region")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if strings.TrimSpace(got) != "(not set)" {
		t.Errorf("config get region = %q, want (not set)", got)
	}
}
