package reddit

import (
	"fmt"
	"strings"
)

// AuthError means Reddit rejected the refresh token (expired or revoked).
// Retrying will not help; callers must surface a terminal failure.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "reddit: refresh token rejected"
	}
	return fmt.Sprintf("reddit: refresh token rejected: %s", e.Reason)
}

// SubmitError carries the error list returned by the submit endpoint, or the
// HTTP status when the response was not parseable.
type SubmitError struct {
	StatusCode int
	Messages   []string
}

func (e *SubmitError) Error() string {
	if len(e.Messages) == 0 {
		return "Unknown error"
	}
	return strings.Join(e.Messages, "; ")
}
