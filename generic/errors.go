/*
errors.go - Centralized error types for the finance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages (ledger, cards, categories) return these errors, and the
  API layer maps them to HTTP status codes without knowing the domain.

ERROR CATEGORIES:
  1. Validation errors - Malformed client input (amount, type, date, ...)
  2. Not-found errors  - Missing user document or missing record inside it
  3. Conflict errors   - Concurrent writers exhausted the retry budget,
                         or a document that must be unique already exists
  4. Store errors      - Low-level document store outcomes

USAGE:
  Check the category with errors.Is against the sentinels, or errors.As
  against the structured types when the details matter:

    if errors.Is(err, generic.ErrNotFound) {
        ...
    }

    var verr *generic.ValidationError
    if errors.As(err, &verr) {
        fmt.Println(verr.Field)
    }

SEE ALSO:
  - document.go: Store-level errors are produced there
  - api/errors.go: Error to HTTP status mapping
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the category of all user-correctable input errors.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is the category of all missing-resource errors.
	ErrNotFound = errors.New("not found")

	// ErrConflict is the category of concurrent-write and uniqueness errors.
	ErrConflict = errors.New("conflict")

	// ErrDocumentNotFound is returned by a DocumentStore when no document
	// exists for (collection, key).
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentExists is returned by DocumentStore.Create when the
	// document is already present.
	ErrDocumentExists = errors.New("document already exists")

	// ErrVersionConflict is returned by DocumentStore.Replace when the stored
	// version no longer matches the version the caller read.
	ErrVersionConflict = errors.New("document version conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError identifies the missing resource.
type NotFoundError struct {
	Resource string // e.g. "ledger", "transaction", "card"
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a write that could not be applied.
type ConflictError struct {
	Resource string
	Key      string
	Attempts int    // 0 when the conflict is a uniqueness violation
	Reason   string // optional human readable detail
}

func (e *ConflictError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s %s: concurrent modification after %d attempts", e.Resource, e.Key, e.Attempts)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: %s", e.Resource, e.Key, e.Reason)
	}
	return fmt.Sprintf("%s %s: conflict", e.Resource, e.Key)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDocumentNotFound)
}

// IsConflict returns true if the write lost a race or hit a uniqueness rule.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
