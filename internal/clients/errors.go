package clients

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized: 401/403 from a collaborator. Surfaced distinctly so
	// the caller can prompt re-authentication.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict: the order is already at or past the requested status.
	// Orchestrators treat this as a benign no-op and adopt the authoritative
	// record returned with it.
	ErrConflict = errors.New("status conflict")
)

// StatusError carries a non-2xx reply that is neither an auth failure nor a
// benign conflict.
type StatusError struct {
	Code int
	Msg  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote replied %d: %s", e.Code, e.Msg)
}
