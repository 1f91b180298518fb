package trapi

import (
	"slices"

	"github.com/di2ag/chp-sdk/schema"
)

// Edge is a query graph edge from a subject node to an object node.
//
// Edges are created through QueryGraph.AddEdge and stay pinned to the
// graph's schema version.
type Edge struct {
	id          string
	subject     string
	object      string
	predicates  []string
	relation    *string
	constraints []Constraint

	version   SchemaVersion
	validator schema.Validator
}

func newEdge(version SchemaVersion, validator schema.Validator, id, subject, object string, predicates []string, relation *string) (*Edge, error) {
	if err := version.Validate(); err != nil {
		return nil, err
	}
	e := &Edge{
		id:         id,
		subject:    subject,
		object:     object,
		predicates: slices.Clone(predicates),
		version:    version,
		validator:  validator,
	}
	if relation != nil {
		r := *relation
		e.relation = &r
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// ID returns the edge's identity within its graph.
func (e *Edge) ID() string { return e.id }

// Subject returns the identity of the subject node.
func (e *Edge) Subject() string { return e.subject }

// Object returns the identity of the object node.
func (e *Edge) Object() string { return e.object }

// Predicates returns a copy of the edge's predicates.
func (e *Edge) Predicates() []string { return slices.Clone(e.predicates) }

// Relation returns the edge relation, empty when unset.
func (e *Edge) Relation() string {
	if e.relation == nil {
		return ""
	}
	return *e.relation
}

// Constraints returns a copy of the edge's constraints.
func (e *Edge) Constraints() []Constraint { return slices.Clone(e.constraints) }

// Version returns the schema version the edge is pinned to.
func (e *Edge) Version() SchemaVersion { return e.version }

// Serialize returns the wire form of the edge.
func (e *Edge) Serialize() (map[string]any, error) {
	s, err := serializerFor(e.version)
	if err != nil {
		return nil, err
	}
	return s.edge(e), nil
}

// Validate checks the edge's wire form against its version's QEdge schema.
// A rejection is returned as an *InvalidComponentError.
func (e *Edge) Validate() error {
	doc, err := e.Serialize()
	if err != nil {
		return err
	}
	err = e.validator.Validate(string(e.version), schema.ComponentQEdge, doc)
	return asComponentError(e.version, schema.ComponentQEdge, e.id, err)
}

// AddConstraint appends a constraint. The edge is left unchanged when the
// result would fail validation. Under TRAPI 1.0 the name must not already
// be a key of the edge.
func (e *Edge) AddConstraint(c Constraint) error {
	if err := checkFlatName(e.version, e.id, v10EdgeKeys, e.constraints, c); err != nil {
		return err
	}
	staged := *e
	staged.constraints = append(slices.Clone(e.constraints), c.clone())
	if err := staged.Validate(); err != nil {
		return err
	}
	e.constraints = staged.constraints
	return nil
}
