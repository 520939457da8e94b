package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an entity is not found in the data store
// or is hidden by a soft-delete tombstone.
var ErrNotFound = errors.New("entity not found")

// ValidationError reports a payload that violates a catalog invariant,
// such as a non-positive cap or an inverted date range. The transport
// layer maps it to HTTP 422.
type ValidationError struct {
	Field  string // offending field, e.g. "impressions_limit"
	Reason string // human-readable constraint description
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid builds a *ValidationError for the given field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
