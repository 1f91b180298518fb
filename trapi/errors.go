package trapi

import (
	"errors"
	"fmt"

	"github.com/di2ag/chp-sdk/schema"
)

// Sentinel errors for query graph operations.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrUnsupportedSchemaVersion indicates a version tag outside the
	// supported revisions was used to create, serialize or validate.
	ErrUnsupportedSchemaVersion = errors.New("trapi version not supported")

	// ErrInvalidComponent indicates a node or edge was rejected by the
	// schema of its version.
	ErrInvalidComponent = errors.New("invalid trapi component")

	// ErrDanglingReference indicates an edge names a subject or object that
	// is not a node of the same graph.
	ErrDanglingReference = errors.New("edge references unknown node")

	// ErrConstraintTarget indicates a constraint was added without naming
	// exactly one node or edge.
	ErrConstraintTarget = errors.New("exactly one of node or edge must be targeted")

	// ErrConstraintName indicates a TRAPI 1.0 constraint whose name is
	// already a key of its owner, either another constraint or a field.
	ErrConstraintName = errors.New("constraint name already used on owner")

	// ErrMixedVersions indicates a decoded graph whose components do not
	// share one schema version's key shape.
	ErrMixedVersions = errors.New("query graph mixes schema versions")

	// ErrUnknownComponent indicates a node or edge identity that does not
	// exist in the graph.
	ErrUnknownComponent = errors.New("unknown query graph component")
)

// UnsupportedSchemaVersionError carries the rejected version tag.
type UnsupportedSchemaVersionError struct {
	Version string
}

func (e *UnsupportedSchemaVersionError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnsupportedSchemaVersion, e.Version)
}

// Is reports ErrUnsupportedSchemaVersion as matching.
func (e *UnsupportedSchemaVersionError) Is(target error) bool {
	return target == ErrUnsupportedSchemaVersion
}

// InvalidComponentError reports that a serialized component was rejected
// by the validator for its pinned version.
type InvalidComponentError struct {
	Version SchemaVersion

	// Component is the schema component kind, e.g. "QNode" or "QEdge".
	Component string

	// ID is the graph identity of the rejected component, if assigned.
	ID string

	Err *schema.ValidationError
}

func (e *InvalidComponentError) Error() string {
	label := e.Component
	if e.ID != "" {
		label += " " + e.ID
	}
	return fmt.Sprintf("Invalid TRAPI Component: %s in Schema v%s, exited with %s",
		label, e.Version, e.Detail())
}

// Detail returns the validator's message.
func (e *InvalidComponentError) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Detail()
}

// Unwrap returns the underlying validation error.
func (e *InvalidComponentError) Unwrap() error {
	return e.Err
}

// Is reports ErrInvalidComponent as matching.
func (e *InvalidComponentError) Is(target error) bool {
	return target == ErrInvalidComponent
}

// ConstraintNameError carries the colliding constraint name. Constraints
// are flattened into their owner under TRAPI 1.0, so a second constraint of
// the same name would overwrite the first on the wire.
type ConstraintNameError struct {
	// Owner is the node or edge identity.
	Owner string
	Name  string
}

func (e *ConstraintNameError) Error() string {
	return fmt.Sprintf("%v: %q on %s", ErrConstraintName, e.Name, e.Owner)
}

// Is reports ErrConstraintName as matching.
func (e *ConstraintNameError) Is(target error) bool {
	return target == ErrConstraintName
}

// GraphError reports a structural failure of a graph operation.
type GraphError struct {
	// Op is the graph operation that failed, e.g. "AddEdge".
	Op string

	// ID is the offending node or edge identity.
	ID string

	Err error
}

func (e *GraphError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("trapi: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("trapi: %s %s: %v", e.Op, e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *GraphError) Unwrap() error {
	return e.Err
}

// asComponentError converts a validator failure into an
// *InvalidComponentError; other errors are returned unchanged.
func asComponentError(version SchemaVersion, component, id string, err error) error {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return &InvalidComponentError{Version: version, Component: component, ID: id, Err: verr}
	}
	return err
}
