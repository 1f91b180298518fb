package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("schema validation failed")

	// ErrUnknownSchema indicates that no schema is registered for the
	// requested (version, component) pair. It is not a validation failure:
	// the document was never checked.
	ErrUnknownSchema = errors.New("no schema registered")
)

// ValidationError reports that a document was rejected by the schema of a
// given version and component kind.
type ValidationError struct {
	Version   string
	Component string

	// Rule names the CEL rule that failed, empty for structural failures.
	Rule string

	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s (schema %s) failed rule %s: %v", e.Component, e.Version, e.Rule, e.Err)
	}
	return fmt.Sprintf("%s (schema %s): %v", e.Component, e.Version, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports ErrValidation as matching.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Detail returns the validator's message without the component prefix.
func (e *ValidationError) Detail() string {
	if e.Err == nil {
		return ""
	}
	if e.Rule != "" {
		return fmt.Sprintf("rule %s: %v", e.Rule, e.Err)
	}
	return e.Err.Error()
}
