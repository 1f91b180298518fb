// Package schema validates serialized TRAPI query graph components.
//
// Each supported TRAPI revision registers one JSON schema per component kind
// (QNode, QEdge, QueryConstraint, QueryGraph). Schemas describe the wire
// shape; CEL rules attached to a component express the checks that a shape
// cannot, such as "a node either names at least one curie or is a wildcard".
//
// # Basic Usage
//
//	v := schema.Default()
//	err := v.Validate(schema.TRAPI1_1, schema.ComponentQNode, map[string]any{
//		"ids":         []string{"MONDO:0007254"},
//		"categories":  []string{"biolink:Disease"},
//		"constraints": []any{},
//	})
//
//	var verr *schema.ValidationError
//	if errors.As(err, &verr) {
//		log.Printf("rejected by %s: %s", verr.Component, verr.Detail())
//	}
//
// # Building Schemas
//
// The JSON type is a small JSON Schema subset with builder helpers:
//
//	constraint := schema.Object(map[string]schema.JSON{
//		"id":       schema.NonEmptyString(),
//		"operator": schema.Enum(">", "<"),
//		"value":    schema.Any(),
//	}, "id", "operator", "value").Strict()
//
// # Extending
//
// A new TRAPI revision is added by registering its components:
//
//	v.Register("1.2", schema.ComponentQNode, schema.Component{Schema: node, Rules: rules})
package schema
