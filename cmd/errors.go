package cmd

import (
	"encoding/json"
	"io"
)

// silentExitError is an error that carries no message text. It signals to
// main.go that the command failed (so os.Exit(1) is appropriate) but that
// the error has already been reported to the user (e.g., via structured JSON
// output on stdout). main.go checks err.Error() == "" before printing.
type silentExitError struct{}

func (silentExitError) Error() string { return "" }

// reportJSONError writes a machine-readable error object to w and returns a
// silentExitError so main exits non-zero without printing the error twice.
func reportJSONError(w io.Writer, stackName string, err error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]string{
		"stack": stackName,
		"error": err.Error(),
	})
	return silentExitError{}
}
