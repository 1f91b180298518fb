package trapi

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/di2ag/chp-sdk/schema"
)

var (
	v10NodeKeys = []string{"id", "category", "is_set"}
	v10EdgeKeys = []string{"predicate", "relation", "subject", "object"}
)

// DecodeQueryGraph rebuilds a graph from its wire form. The version is
// detected from the key shape of the nodes and edges, falling back to
// DefaultSchemaVersion for an empty graph; components of different shapes
// fail with ErrMixedVersions. Each raw component is checked against its
// version's schema before it is rebuilt, so unknown keys are rejected
// rather than dropped. Identities are kept as given.
func DecodeQueryGraph(doc map[string]any, opts ...GraphOption) (*QueryGraph, error) {
	version, err := detectVersion(doc)
	if err != nil {
		return nil, err
	}
	g, err := NewQueryGraph(version, opts...)
	if err != nil {
		return nil, err
	}

	nodes, _ := doc["nodes"].(map[string]any)
	for _, id := range sortedIDs(nodes) {
		raw, ok := nodes[id].(map[string]any)
		if !ok {
			return nil, &GraphError{Op: "Decode", ID: id, Err: fmt.Errorf("node is %T, want object", nodes[id])}
		}
		if err := g.validator.Validate(string(version), schema.ComponentQNode, raw); err != nil {
			return nil, asComponentError(version, schema.ComponentQNode, id, err)
		}
		ids, categories, constraints, err := decodeNode(version, raw)
		if err != nil {
			return nil, &GraphError{Op: "Decode", ID: id, Err: err}
		}
		var nodeOpts []NodeOption
		if set, _ := raw["is_set"].(bool); set {
			nodeOpts = append(nodeOpts, AsSet())
		}
		if err := g.putNode(id, ids, categories, nodeOpts...); err != nil {
			return nil, err
		}
		for _, c := range constraints {
			if err := g.nodes[id].AddConstraint(c); err != nil {
				return nil, err
			}
		}
		g.nextNode = max(g.nextNode, nextCounter(id, "n"))
	}

	edges, _ := doc["edges"].(map[string]any)
	for _, id := range sortedIDs(edges) {
		raw, ok := edges[id].(map[string]any)
		if !ok {
			return nil, &GraphError{Op: "Decode", ID: id, Err: fmt.Errorf("edge is %T, want object", edges[id])}
		}
		if err := g.validator.Validate(string(version), schema.ComponentQEdge, raw); err != nil {
			return nil, asComponentError(version, schema.ComponentQEdge, id, err)
		}
		e, err := decodeEdge(version, raw)
		if err != nil {
			return nil, &GraphError{Op: "Decode", ID: id, Err: err}
		}
		for _, ref := range []string{e.subject, e.object} {
			if _, ok := g.nodes[ref]; !ok {
				return nil, &GraphError{Op: "Decode", ID: ref, Err: ErrDanglingReference}
			}
		}
		if err := g.putEdge(id, e.subject, e.object, e.predicates, e.relation); err != nil {
			return nil, err
		}
		for _, c := range e.constraints {
			if err := g.edges[id].AddConstraint(c); err != nil {
				return nil, err
			}
		}
		g.nextEdge = max(g.nextEdge, nextCounter(id, "e"))
	}

	return g, nil
}

// detectVersion returns the version every shaped component agrees on.
// Components carrying none of the version specific keys, such as an edge
// with only subject and object, match either version.
func detectVersion(doc map[string]any) (SchemaVersion, error) {
	var found SchemaVersion
	for _, key := range []string{"nodes", "edges"} {
		comps, _ := doc[key].(map[string]any)
		for _, id := range sortedIDs(comps) {
			comp, _ := comps[id].(map[string]any)
			shape := componentShape(comp)
			switch {
			case shape == "":
			case found == "":
				found = shape
			case shape != found:
				return "", &GraphError{Op: "Decode", ID: id, Err: fmt.Errorf("%w: %s component after %s", ErrMixedVersions, shape, found)}
			}
		}
	}
	if found == "" {
		return DefaultSchemaVersion, nil
	}
	return found, nil
}

func componentShape(comp map[string]any) SchemaVersion {
	for _, k := range []string{"ids", "categories", "predicates", "constraints"} {
		if _, ok := comp[k]; ok {
			return V1_1
		}
	}
	for _, k := range []string{"id", "category", "predicate"} {
		if _, ok := comp[k]; ok {
			return V1_0
		}
	}
	return ""
}

func decodeNode(version SchemaVersion, raw map[string]any) (ids, categories []string, constraints []Constraint, err error) {
	if version == V1_0 {
		if ids, err = stringList(raw["id"]); err != nil {
			return nil, nil, nil, fmt.Errorf("id: %w", err)
		}
		if categories, err = stringList(raw["category"]); err != nil {
			return nil, nil, nil, fmt.Errorf("category: %w", err)
		}
		constraints, err = flatConstraints(raw, v10NodeKeys)
		return ids, categories, constraints, err
	}

	if ids, err = stringList(raw["ids"]); err != nil {
		return nil, nil, nil, fmt.Errorf("ids: %w", err)
	}
	if categories, err = stringList(raw["categories"]); err != nil {
		return nil, nil, nil, fmt.Errorf("categories: %w", err)
	}
	constraints, err = listConstraints(raw["constraints"])
	return ids, categories, constraints, err
}

func decodeEdge(version SchemaVersion, raw map[string]any) (*Edge, error) {
	e := &Edge{}
	e.subject, _ = raw["subject"].(string)
	e.object, _ = raw["object"].(string)
	if rel, ok := raw["relation"].(string); ok {
		e.relation = &rel
	}

	var err error
	if version == V1_0 {
		if e.predicates, err = stringList(raw["predicate"]); err != nil {
			return nil, fmt.Errorf("predicate: %w", err)
		}
		e.constraints, err = flatConstraints(raw, v10EdgeKeys)
		return e, err
	}

	if e.predicates, err = stringList(raw["predicates"]); err != nil {
		return nil, fmt.Errorf("predicates: %w", err)
	}
	e.constraints, err = listConstraints(raw["constraints"])
	return e, err
}

// flatConstraints reads TRAPI 1.0 constraints, which are every key of the
// owner that is not one of its reserved fields.
func flatConstraints(raw map[string]any, reserved []string) ([]Constraint, error) {
	var out []Constraint
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		if slices.Contains(reserved, name) {
			continue
		}
		body, ok := raw[name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("constraint %s is %T, want object", name, raw[name])
		}
		out = append(out, constraintFrom(name, body))
	}
	return out, nil
}

func listConstraints(v any) ([]Constraint, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("constraints is %T, want list", v)
	}
	out := make([]Constraint, 0, len(list))
	for i, item := range list {
		body, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("constraint %d is %T, want object", i, item)
		}
		name, _ := body["name"].(string)
		out = append(out, constraintFrom(name, body))
	}
	return out, nil
}

func constraintFrom(name string, body map[string]any) Constraint {
	c := Constraint{Name: name, Value: body["value"]}
	c.ID, _ = body["id"].(string)
	c.Operator, _ = body["operator"].(string)
	if s, ok := body["unit_id"].(string); ok {
		c.UnitID = &s
	}
	if s, ok := body["unit_name"].(string); ok {
		c.UnitName = &s
	}
	return c
}

func stringList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list item is %T, want string", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value is %T, want string or list", v)
	}
}

func sortedIDs(m map[string]any) []string {
	ids := slices.Collect(maps.Keys(m))
	slices.SortFunc(ids, CompareIDs)
	return ids
}

// CompareIDs orders component identities by prefix and then by numeric
// suffix, so "n2" sorts before "n10". It is suitable for slices.SortFunc.
func CompareIDs(a, b string) int {
	pa, na := splitID(a)
	pb, nb := splitID(b)
	if c := cmp.Compare(pa, pb); c != 0 {
		return c
	}
	if c := cmp.Compare(na, nb); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

func splitID(id string) (string, int) {
	i := strings.IndexFunc(id, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return id, -1
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return id, -1
	}
	return id[:i], n
}

// nextCounter returns the counter value that follows id when id has the
// generated form prefix<k>, and 0 otherwise.
func nextCounter(id, prefix string) int {
	p, n := splitID(id)
	if p != prefix || n < 0 {
		return 0
	}
	return n + 1
}
