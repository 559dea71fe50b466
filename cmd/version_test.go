package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestVersionCommandHumanOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	root := newTestRoot(newVersionCommand())
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"stackpilot version:", "commit:", "date:"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q, got: %s", want, output)
		}
	}
}

func TestVersionCommandJSONOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	root := newTestRoot(newVersionCommand())
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"version", "--json"})

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload versionJSON
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if payload.Version == "" || payload.Commit == "" || payload.Date == "" {
		t.Errorf("JSON payload has empty fields: %+v", payload)
	}
}

func TestVersionCommandRejectsArgs(t *testing.T) {
	root := newTestRoot(newVersionCommand())
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"version", "extra"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for extra args, got nil")
	}
}
