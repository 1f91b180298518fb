package trapi

import (
	"slices"

	"github.com/di2ag/chp-sdk/schema"
)

// Node is a query graph node: one or more categories and zero or more
// curies. A node without curies is a wildcard whose binding the reasoner
// must infer.
//
// Nodes are created through QueryGraph.AddNode and stay pinned to the
// graph's schema version.
type Node struct {
	id          string
	categories  []string
	ids         []string
	constraints []Constraint

	// isSet asks the reasoner to bind all matches of the node together.
	isSet bool

	version   SchemaVersion
	validator schema.Validator
}

// NodeOption configures optional node fields.
type NodeOption func(*Node)

// AsSet marks the node as a set node (is_set on the wire).
func AsSet() NodeOption {
	return func(n *Node) {
		n.isSet = true
	}
}

func newNode(version SchemaVersion, validator schema.Validator, id string, ids, categories []string, opts ...NodeOption) (*Node, error) {
	// The version is checked before the validator is consulted.
	if err := version.Validate(); err != nil {
		return nil, err
	}
	n := &Node{
		id:         id,
		categories: slices.Clone(categories),
		ids:        slices.Clone(ids),
		version:    version,
		validator:  validator,
	}
	for _, opt := range opts {
		opt(n)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// ID returns the node's identity within its graph.
func (n *Node) ID() string { return n.id }

// Categories returns a copy of the node's categories.
func (n *Node) Categories() []string { return slices.Clone(n.categories) }

// IDs returns a copy of the node's curies.
func (n *Node) IDs() []string { return slices.Clone(n.ids) }

// Constraints returns a copy of the node's constraints.
func (n *Node) Constraints() []Constraint { return slices.Clone(n.constraints) }

// Version returns the schema version the node is pinned to.
func (n *Node) Version() SchemaVersion { return n.version }

// IsSet reports whether the node is a set node.
func (n *Node) IsSet() bool { return n.isSet }

// IsWildcard reports whether the node has no curies.
func (n *Node) IsWildcard() bool { return len(n.ids) == 0 }

// Serialize returns the wire form of the node.
func (n *Node) Serialize() (map[string]any, error) {
	s, err := serializerFor(n.version)
	if err != nil {
		return nil, err
	}
	return s.node(n), nil
}

// Validate checks the node's wire form against its version's QNode schema.
// A rejection is returned as an *InvalidComponentError.
func (n *Node) Validate() error {
	doc, err := n.Serialize()
	if err != nil {
		return err
	}
	err = n.validator.Validate(string(n.version), schema.ComponentQNode, doc)
	return asComponentError(n.version, schema.ComponentQNode, n.id, err)
}

// AddConstraint appends a constraint. The node is left unchanged when the
// result would fail validation. Under TRAPI 1.0 the name must not already
// be a key of the node.
func (n *Node) AddConstraint(c Constraint) error {
	if err := checkFlatName(n.version, n.id, v10NodeKeys, n.constraints, c); err != nil {
		return err
	}
	staged := *n
	staged.constraints = append(slices.Clone(n.constraints), c.clone())
	if err := staged.Validate(); err != nil {
		return err
	}
	n.constraints = staged.constraints
	return nil
}
