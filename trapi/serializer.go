package trapi

import "maps"

// serializer renders components in the wire shape of one schema version.
// Adding a version means adding one implementation and registering it in
// serializers.
type serializer interface {
	constraint(c Constraint) map[string]any
	node(n *Node) map[string]any
	edge(e *Edge) map[string]any
}

var serializers = map[SchemaVersion]serializer{
	V1_0: v10Serializer{},
	V1_1: v11Serializer{},
}

func serializerFor(version SchemaVersion) (serializer, error) {
	s, ok := serializers[version]
	if !ok {
		return nil, &UnsupportedSchemaVersionError{Version: string(version)}
	}
	return s, nil
}

// v10Serializer emits singular keys and merges constraints into the owner
// keyed by constraint name.
type v10Serializer struct{}

func (v10Serializer) constraint(c Constraint) map[string]any {
	return map[string]any{
		c.Name: map[string]any{
			"id":        c.ID,
			"operator":  c.Operator,
			"value":     cloneValue(c.Value),
			"unit_id":   optional(c.UnitID),
			"unit_name": optional(c.UnitName),
		},
	}
}

func (s v10Serializer) node(n *Node) map[string]any {
	out := map[string]any{
		"id":       oneOrMany(n.ids),
		"category": oneOrMany(n.categories),
	}
	if n.isSet {
		out["is_set"] = true
	}
	for _, c := range n.constraints {
		maps.Copy(out, s.constraint(c))
	}
	return out
}

func (s v10Serializer) edge(e *Edge) map[string]any {
	out := map[string]any{
		"predicate": oneOrMany(e.predicates),
		"relation":  optional(e.relation),
		"subject":   e.subject,
		"object":    e.object,
	}
	for _, c := range e.constraints {
		maps.Copy(out, s.constraint(c))
	}
	return out
}

// v11Serializer emits plural list keys and a nested constraint list.
type v11Serializer struct{}

func (v11Serializer) constraint(c Constraint) map[string]any {
	return map[string]any{
		"name":      c.Name,
		"id":        c.ID,
		"operator":  c.Operator,
		"value":     cloneValue(c.Value),
		"unit_id":   optional(c.UnitID),
		"unit_name": optional(c.UnitName),
	}
}

func (s v11Serializer) node(n *Node) map[string]any {
	out := map[string]any{
		"ids":         listOrNil(n.ids),
		"categories":  listOrNil(n.categories),
		"constraints": s.constraints(n.constraints),
	}
	if n.isSet {
		out["is_set"] = true
	}
	return out
}

func (s v11Serializer) edge(e *Edge) map[string]any {
	return map[string]any{
		"predicates":  listOrNil(e.predicates),
		"relation":    optional(e.relation),
		"subject":     e.subject,
		"object":      e.object,
		"constraints": s.constraints(e.constraints),
	}
}

func (s v11Serializer) constraints(cs []Constraint) []any {
	out := make([]any, 0, len(cs))
	for _, c := range cs {
		out = append(out, s.constraint(c))
	}
	return out
}

// oneOrMany renders nothing as null, one value as a scalar and several as a list.
func oneOrMany(vals []string) any {
	switch len(vals) {
	case 0:
		return nil
	case 1:
		return vals[0]
	default:
		return append([]string(nil), vals...)
	}
}

func listOrNil(vals []string) any {
	if len(vals) == 0 {
		return nil
	}
	return append([]string(nil), vals...)
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
