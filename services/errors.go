package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the purchase and verification workflows. Handlers
// translate these into HTTP responses; messages that reach the client
// live in the handlers, details for operators go to the logger.
var (
	ErrInvalidCategory = errors.New("invalid ticket category")
	ErrSoldOut         = errors.New("ticket category is sold out")
	ErrNotConfigured   = errors.New("event is not configured")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrMissingCode     = errors.New("no ticket code provided")

	// ErrConflict is returned when a concurrent purchase consumed the
	// remaining capacity between the availability read and the
	// reservation. Retryable from the client's point of view.
	ErrConflict = errors.New("category capacity was claimed by a concurrent purchase")

	// ErrStorage wraps receipt upload failures. No ticket is created
	// when it is returned.
	ErrStorage = errors.New("failed to store bank transfer slip")
)

// ValidationError marks a missing or malformed purchase field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid field: %s", e.Field)
}

// InsufficientRemainingError is returned when the category still has
// capacity, just less than the requested quantity. Remaining carries
// the exact count for the user-facing message.
type InsufficientRemainingError struct {
	Remaining int
}

func (e *InsufficientRemainingError) Error() string {
	return fmt.Sprintf("only %d ticket(s) remaining for this category", e.Remaining)
}

// NotVerifiedError is returned by the verification check for tickets
// that exist but are not (yet) verified.
type NotVerifiedError struct {
	Status string
}

func (e *NotVerifiedError) Error() string {
	return fmt.Sprintf("ticket is %s", e.Status)
}
