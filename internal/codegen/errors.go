package codegen

import (
	"errors"
	"fmt"
)

// Reason values carried by *Error.
const (
	ReasonTransientExhausted = "transient-exhausted"
	ReasonNonTransient       = "non-transient"
	ReasonInvalidShape       = "invalid-shape"
	ReasonCancelled          = "cancelled"
)

// ErrInvalidShape is wrapped by every shape-validation failure.
var ErrInvalidShape = errors.New("invalid response shape")

// Error is returned by Client.Generate when no usable text was produced.
type Error struct {
	Reason   string
	Stage    string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("codegen %s: %s after %d attempt(s): %v", e.Stage, e.Reason, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf returns the Reason of a *Error in err's chain, or "".
func ReasonOf(err error) string {
	var cgErr *Error
	if errors.As(err, &cgErr) {
		return cgErr.Reason
	}
	return ""
}
