package trapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/di2ag/chp-sdk/schema"
)

// QueryGraph owns the nodes and edges of one query. Identities are
// generated from monotonically increasing counters ("n0", "n1", ... and
// "e0", "e1", ...) and are never reused.
type QueryGraph struct {
	version   SchemaVersion
	validator schema.Validator

	nodes     map[string]*Node
	edges     map[string]*Edge
	nodeOrder []string
	edgeOrder []string
	nextNode  int
	nextEdge  int
}

// GraphOption configures a QueryGraph.
type GraphOption func(*QueryGraph)

// WithValidator sets the schema validator used by the graph and all of its
// components. The default is schema.Default().
func WithValidator(v schema.Validator) GraphOption {
	return func(g *QueryGraph) {
		g.validator = v
	}
}

// NewQueryGraph creates an empty graph pinned to version.
func NewQueryGraph(version SchemaVersion, opts ...GraphOption) (*QueryGraph, error) {
	if err := version.Validate(); err != nil {
		return nil, err
	}
	g := &QueryGraph{
		version: version,
		nodes:   make(map[string]*Node),
		edges:   make(map[string]*Edge),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.validator == nil {
		g.validator = schema.Default()
	}
	return g, nil
}

// Version returns the graph's schema version.
func (g *QueryGraph) Version() SchemaVersion {
	return g.version
}

// AddNode adds a node and returns its identity. An empty ids makes the node
// a wildcard; categories must name at least one category.
func (g *QueryGraph) AddNode(ids, categories []string, opts ...NodeOption) (string, error) {
	id := fmt.Sprintf("n%d", g.nextNode)
	g.nextNode++
	return id, g.putNode(id, ids, categories, opts...)
}

func (g *QueryGraph) putNode(id string, ids, categories []string, opts ...NodeOption) error {
	n, err := newNode(g.version, g.validator, id, ids, categories, opts...)
	if err != nil {
		return err
	}
	g.nodes[id] = n
	g.nodeOrder = append(g.nodeOrder, id)
	return nil
}

// AddEdge adds an edge between two existing nodes and returns its identity.
// A subject or object that is not a node of this graph is rejected with
// ErrDanglingReference. relation may be nil.
func (g *QueryGraph) AddEdge(subject, object string, predicates []string, relation *string) (string, error) {
	for _, ref := range []string{subject, object} {
		if _, ok := g.nodes[ref]; !ok {
			return "", &GraphError{Op: "AddEdge", ID: ref, Err: ErrDanglingReference}
		}
	}
	id := fmt.Sprintf("e%d", g.nextEdge)
	g.nextEdge++
	return id, g.putEdge(id, subject, object, predicates, relation)
}

func (g *QueryGraph) putEdge(id, subject, object string, predicates []string, relation *string) error {
	e, err := newEdge(g.version, g.validator, id, subject, object, predicates, relation)
	if err != nil {
		return err
	}
	g.edges[id] = e
	g.edgeOrder = append(g.edgeOrder, id)
	return nil
}

// Target names the component a constraint is attached to. Exactly one of
// NodeID and EdgeID must be set.
type Target struct {
	NodeID string
	EdgeID string
}

// OnNode targets a node.
func OnNode(id string) Target { return Target{NodeID: id} }

// OnEdge targets an edge.
func OnEdge(id string) Target { return Target{EdgeID: id} }

// AddConstraint attaches c to the targeted node or edge.
func (g *QueryGraph) AddConstraint(c Constraint, target Target) error {
	switch {
	case (target.NodeID == "") == (target.EdgeID == ""):
		return &GraphError{Op: "AddConstraint", Err: ErrConstraintTarget}
	case target.EdgeID != "":
		e, ok := g.edges[target.EdgeID]
		if !ok {
			return &GraphError{Op: "AddConstraint", ID: target.EdgeID, Err: ErrUnknownComponent}
		}
		return e.AddConstraint(c)
	default:
		n, ok := g.nodes[target.NodeID]
		if !ok {
			return &GraphError{Op: "AddConstraint", ID: target.NodeID, Err: ErrUnknownComponent}
		}
		return n.AddConstraint(c)
	}
}

// Node returns the node with the given identity.
func (g *QueryGraph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the edge with the given identity.
func (g *QueryGraph) Edge(id string) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// NodeIDs returns node identities in insertion order.
func (g *QueryGraph) NodeIDs() []string {
	return slices.Clone(g.nodeOrder)
}

// EdgeIDs returns edge identities in insertion order.
func (g *QueryGraph) EdgeIDs() []string {
	return slices.Clone(g.edgeOrder)
}

// FindNodes returns, in insertion order, the identities of nodes whose
// categories and curies exactly match the given filters. A nil filter is
// ignored; both filters must match when both are given.
func (g *QueryGraph) FindNodes(categories, ids []string) []string {
	var found []string
	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		if categories != nil && !slices.Equal(n.categories, categories) {
			continue
		}
		if ids != nil && !slices.Equal(n.ids, ids) {
			continue
		}
		found = append(found, id)
	}
	return found
}

// Wildcards returns the identities of nodes that have no curies.
func (g *QueryGraph) Wildcards() []string {
	var found []string
	for _, id := range g.nodeOrder {
		if g.nodes[id].IsWildcard() {
			found = append(found, id)
		}
	}
	return found
}

// Serialize returns {"nodes": {...}, "edges": {...}} keyed by identity.
// Serializing an unchanged graph always yields equal output.
func (g *QueryGraph) Serialize() (map[string]any, error) {
	nodes := make(map[string]any, len(g.nodes))
	for id, n := range g.nodes {
		doc, err := n.Serialize()
		if err != nil {
			return nil, err
		}
		nodes[id] = doc
	}
	edges := make(map[string]any, len(g.edges))
	for id, e := range g.edges {
		doc, err := e.Serialize()
		if err != nil {
			return nil, err
		}
		edges[id] = doc
	}
	return map[string]any{
		"nodes": nodes,
		"edges": edges,
	}, nil
}

// Validate runs the validator for the graph's version over the whole graph
// and each of its components. A schema rejection is reported as
// (false, detail, nil); any other failure is returned as the error.
func (g *QueryGraph) Validate() (bool, string, error) {
	doc, err := g.Serialize()
	if err != nil {
		return false, "", err
	}

	type check struct {
		component string
		doc       any
	}
	nodes := doc["nodes"].(map[string]any)
	edges := doc["edges"].(map[string]any)

	checks := []check{{schema.ComponentQueryGraph, doc}}
	for _, id := range g.nodeOrder {
		checks = append(checks, check{schema.ComponentQNode, nodes[id]})
	}
	for _, id := range g.edgeOrder {
		checks = append(checks, check{schema.ComponentQEdge, edges[id]})
	}

	for _, c := range checks {
		err := g.validator.Validate(string(g.version), c.component, c.doc)
		if err == nil {
			continue
		}
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			return false, verr.Error(), nil
		}
		return false, "", err
	}
	return true, "", nil
}

// MarshalJSON encodes the graph's wire form.
func (g *QueryGraph) MarshalJSON() ([]byte, error) {
	doc, err := g.Serialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
