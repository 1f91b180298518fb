package trapi

import "slices"

// Constraint is a named filter or annotation attached to a node or edge,
// e.g. a numeric threshold on an outcome.
type Constraint struct {
	Name     string
	ID       string
	Operator string

	// Value is any JSON scalar or list.
	Value any

	UnitID   *string
	UnitName *string
}

// ConstraintOption configures optional Constraint fields.
type ConstraintOption func(*Constraint)

// WithUnit sets the unit of the constraint value.
func WithUnit(id, name string) ConstraintOption {
	return func(c *Constraint) {
		c.UnitID = &id
		c.UnitName = &name
	}
}

// NewConstraint creates a constraint.
func NewConstraint(name, id, operator string, value any, opts ...ConstraintOption) Constraint {
	c := Constraint{
		Name:     name,
		ID:       id,
		Operator: operator,
		Value:    value,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Serialize returns the wire form of the constraint for the given version.
// It returns an *UnsupportedSchemaVersionError for unknown versions.
func (c Constraint) Serialize(version SchemaVersion) (map[string]any, error) {
	s, err := serializerFor(version)
	if err != nil {
		return nil, err
	}
	return s.constraint(c), nil
}

// clone returns a copy that shares no mutable state with c.
func (c Constraint) clone() Constraint {
	out := c
	out.Value = cloneValue(c.Value)
	if c.UnitID != nil {
		id := *c.UnitID
		out.UnitID = &id
	}
	if c.UnitName != nil {
		name := *c.UnitName
		out.UnitName = &name
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []any:
		return append([]any(nil), val...)
	default:
		return v
	}
}

// checkFlatName rejects a TRAPI 1.0 constraint whose name is one of the
// owner's reserved keys or the name of a constraint it already carries.
func checkFlatName(version SchemaVersion, owner string, reserved []string, existing []Constraint, c Constraint) error {
	if version != V1_0 {
		return nil
	}
	taken := slices.Contains(reserved, c.Name) ||
		slices.ContainsFunc(existing, func(e Constraint) bool { return e.Name == c.Name })
	if taken {
		return &ConstraintNameError{Owner: owner, Name: c.Name}
	}
	return nil
}
