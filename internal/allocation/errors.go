// Package allocation implements the capacity, collision and timing rule
// engine guarding every ticket mutation, plus the pure data-shape
// validators for checkout payloads. The validator works on a snapshot of
// ticket and hold state that the caller loads under the per-show lock,
// which keeps this package free of any persistence concern and directly
// testable.
package allocation

import (
    "errors"
    "fmt"
    "strings"
)

// ErrUnauthorized is returned when the caller does not own the tickets
// or order targeted by a mutation.  Handlers translate this into an
// HTTP 403 response.
var ErrUnauthorized = errors.New("tickets do not belong to the requesting user")

// UnavailableError reports that a seat or standing target cannot be
// allocated: an exclusivity collision, exhausted capacity, or a timing
// window violation.  Reason is human readable and safe to surface to the
// client.  Handlers translate this into an HTTP 409 response.
type UnavailableError struct {
    Reason string
}

func (e *UnavailableError) Error() string { return e.Reason }

// Unavailable builds an UnavailableError with a formatted reason.
func Unavailable(format string, args ...interface{}) error {
    return &UnavailableError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports malformed checkout data (address or payment
// fields).  Fields carries one reason per offending field.  Handlers
// translate this into an HTTP 400 response.
type ValidationError struct {
    Fields []string
}

func (e *ValidationError) Error() string {
    return "validation failed: " + strings.Join(e.Fields, "; ")
}
