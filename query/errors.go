package query

import (
	"errors"
	"fmt"
)

var (
	// ErrBuild is matched by every *BuildError.
	ErrBuild = errors.New("query build failed")

	// ErrInvalidWildcardCategory is matched by *InvalidWildcardCategoryError.
	ErrInvalidWildcardCategory = errors.New("invalid wildcard category")
)

// BuildError reports a missing or inconsistent factory parameter.
type BuildError struct {
	// Field is the offending parameter, e.g. "outcome_op".
	Field  string
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("query: %s: %s", e.Field, e.Reason)
}

// Is reports ErrBuild as matching.
func (e *BuildError) Is(target error) bool {
	return target == ErrBuild
}

func missing(field string) error {
	return &BuildError{Field: field, Reason: "is required"}
}

// InvalidWildcardCategoryError reports a wildcard category other than gene
// or drug.
type InvalidWildcardCategoryError struct {
	Category string
}

func (e *InvalidWildcardCategoryError) Error() string {
	return fmt.Sprintf("query: wildcard category %q is not supported, want %s or %s",
		e.Category, wildcardCategories[0], wildcardCategories[1])
}

// Is reports ErrInvalidWildcardCategory as matching.
func (e *InvalidWildcardCategoryError) Is(target error) bool {
	return target == ErrInvalidWildcardCategory
}
