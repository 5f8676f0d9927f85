package authority

import "fmt"

// ContextSwitchError reports a rejected active-principal switch. It
// carries the human-readable message from the server's error payload so
// UI callers can surface it; local state is left unchanged when it is
// returned.
type ContextSwitchError struct {
	// Message is the server-provided reason, if any.
	Message string
	// StatusCode is the HTTP status of the rejection, 0 when unknown.
	StatusCode int
}

// Error implements the error interface.
func (e *ContextSwitchError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("context switch rejected (status %d)", e.StatusCode)
	}
	return "context switch rejected: " + e.Message
}
