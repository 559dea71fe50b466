package stack

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// errKind is the result of classifying a provider error. CloudFormation
// signals "stack does not exist" and "no updates" as generic ValidationError
// responses, so classification is a string-matching contract against the
// service's actual message format. All matching rules live here so a change
// in the provider's wording needs exactly one edit.
type errKind int

const (
	errOther errKind = iota
	errNotFound
	errThrottled
	errNoUpdates
)

// noUpdatesMsg is the substring CloudFormation returns in a ValidationError
// when a stack update produces no changes. Matched case-insensitively.
const noUpdatesMsg = "no updates are to be performed"

// classifyError maps a provider error to an errKind.
func classifyError(err error) errKind {
	if err == nil {
		return errOther
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequestsException":
			return errThrottled
		}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, noUpdatesMsg):
		return errNoUpdates
	case strings.Contains(msg, "does not exist"):
		// Covers both service phrasings:
		//   ValidationError: Stack [name] does not exist
		//   ValidationError: Stack with id name does not exist
		return errNotFound
	case strings.Contains(lower, "rate exceeded") || strings.Contains(lower, "throttl"):
		return errThrottled
	}
	return errOther
}
