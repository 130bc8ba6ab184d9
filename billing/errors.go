package billing

import (
	"errors"
	"fmt"
)

// Domain error kinds. Storage failures (connection loss, unexpected
// constraint violations) are surfaced as-is and are distinct from these.
var (
	// ErrNotFound covers missing invoices/items/visits and, deliberately,
	// tenant mismatches: a caller must not be able to tell "not yours"
	// apart from "does not exist".
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned for mutations against a VOID invoice or any
	// other status precondition failure.
	ErrConflict = errors.New("conflict")

	// ErrDuplicateEvent signals that a charge event was already posted.
	// The charge poster treats it as its idempotent no-op case.
	ErrDuplicateEvent = errors.New("duplicate charge event")
)

// ValidationError reports malformed input: non-positive quantity, bad
// amount, empty void reason. Nothing is written when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
