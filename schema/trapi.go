package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
)

// Supported TRAPI schema revisions.
const (
	TRAPI1_0 = "1.0"
	TRAPI1_1 = "1.1"
)

// Component kinds that can be validated.
const (
	ComponentQNode           = "QNode"
	ComponentQEdge           = "QEdge"
	ComponentQueryGraph      = "QueryGraph"
	ComponentQueryConstraint = "QueryConstraint"
)

// Operators accepted in query constraints.
var constraintOperators = []any{"==", "===", ">", ">=", "<", "<=", "matches"}

// Validator checks a serialized query graph component against the schema
// of a TRAPI version.
//
// Implementations return a *ValidationError when the document is rejected.
// Any other error means the document could not be checked at all.
type Validator interface {
	Validate(version, component string, document any) error
}

// Component is the schema registered for one (version, component) pair.
type Component struct {
	Schema JSON
	Rules  []Rule
}

type compiledComponent struct {
	schema JSON
	rules  []compiledRule
}

// TRAPIValidator validates documents against registered TRAPI component
// schemas. It is safe for concurrent use once constructed.
type TRAPIValidator struct {
	env *cel.Env

	mu          sync.RWMutex
	definitions map[string]map[string]JSON
	components  map[string]map[string]compiledComponent
}

var (
	defaultOnce      sync.Once
	defaultValidator *TRAPIValidator
)

// Default returns the shared validator loaded with the built-in TRAPI 1.0
// and 1.1 schemas. It panics if the built-in rules fail to compile.
func Default() *TRAPIValidator {
	defaultOnce.Do(func() {
		v, err := NewTRAPIValidator()
		if err != nil {
			panic(fmt.Sprintf("schema: built-in TRAPI schemas: %v", err))
		}
		defaultValidator = v
	})
	return defaultValidator
}

// NewTRAPIValidator creates a validator loaded with the built-in TRAPI 1.0
// and 1.1 schemas.
func NewTRAPIValidator() (*TRAPIValidator, error) {
	env, err := newRuleEnv()
	if err != nil {
		return nil, fmt.Errorf("create rule environment: %w", err)
	}
	v := &TRAPIValidator{
		env:         env,
		definitions: make(map[string]map[string]JSON),
		components:  make(map[string]map[string]compiledComponent),
	}
	for version, comps := range builtinSchemas() {
		for name, c := range comps {
			if err := v.Register(version, name, c); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

// Register adds or replaces the schema for a (version, component) pair.
// Registered components are also available to $ref lookups within the
// same version.
func (v *TRAPIValidator) Register(version, component string, c Component) error {
	rules, err := compileRules(v.env, c.Rules)
	if err != nil {
		return fmt.Errorf("%s %s: %w", component, version, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.definitions[version] == nil {
		v.definitions[version] = make(map[string]JSON)
		v.components[version] = make(map[string]compiledComponent)
	}
	v.definitions[version][component] = c.Schema
	v.components[version][component] = compiledComponent{schema: c.Schema, rules: rules}
	return nil
}

// Versions returns the registered schema versions in sorted order.
func (v *TRAPIValidator) Versions() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	versions := make([]string, 0, len(v.components))
	for version := range v.components {
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions
}

// Validate checks document against the schema registered for version and
// component. The document is first normalized to its JSON form so that the
// wire representation is what gets checked.
func (v *TRAPIValidator) Validate(version, component string, document any) error {
	v.mu.RLock()
	comp, ok := v.components[version][component]
	defs := v.definitions[version]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w for %s in TRAPI %s", ErrUnknownSchema, component, version)
	}

	doc, err := normalize(document)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", component, err)
	}

	if err := comp.schema.ValidateWithDefinitions(doc, defs); err != nil {
		return &ValidationError{Version: version, Component: component, Err: err}
	}

	obj, isObject := doc.(map[string]any)
	if !isObject {
		return nil
	}
	for _, rule := range comp.rules {
		if err := rule.eval(obj); err != nil {
			return &ValidationError{Version: version, Component: component, Rule: rule.Name, Err: err}
		}
	}
	return nil
}

func normalize(document any) (any, error) {
	data, err := json.Marshal(document)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func builtinSchemas() map[string]map[string]Component {
	curie := NonEmptyString()
	curies := OneOrMany(curie).OrNull()
	// Every node names at least one category.
	categories := JSON{AnyOf: []JSON{curie, NonEmptyArray(curie)}}

	// TRAPI 1.0 flattens constraints into the owning node or edge, keyed by
	// the constraint name.
	flatConstraint := Object(map[string]JSON{
		"id":        NonEmptyString(),
		"operator":  Enum(constraintOperators...),
		"value":     Any(),
		"unit_id":   String().OrNull(),
		"unit_name": String().OrNull(),
	}, "id", "operator", "value").Strict()

	v10Node := Object(map[string]JSON{
		"id":       curies,
		"category": categories,
		"is_set":   Bool(),
	}, "category").WithAdditional(Ref(ComponentQueryConstraint))

	v10Edge := Object(map[string]JSON{
		"predicate": curies,
		"relation":  String().OrNull(),
		"subject":   NonEmptyString(),
		"object":    NonEmptyString(),
	}, "subject", "object").WithAdditional(Ref(ComponentQueryConstraint))

	v11Constraint := Object(map[string]JSON{
		"name":      NonEmptyString(),
		"id":        NonEmptyString(),
		"not":       Bool(),
		"operator":  Enum(constraintOperators...),
		"value":     Any(),
		"unit_id":   String().OrNull(),
		"unit_name": String().OrNull(),
	}, "name", "id", "operator", "value").Strict()

	v11Node := Object(map[string]JSON{
		"ids":         Array(curie).OrNull(),
		"categories":  NonEmptyArray(curie),
		"is_set":      Bool(),
		"constraints": Array(Ref(ComponentQueryConstraint)),
	}, "categories").Strict()

	v11Edge := Object(map[string]JSON{
		"predicates":  NonEmptyArray(curie).OrNull(),
		"relation":    String().OrNull(),
		"subject":     NonEmptyString(),
		"object":      NonEmptyString(),
		"constraints": Array(Ref(ComponentQueryConstraint)),
	}, "subject", "object").Strict()

	graph := Object(map[string]JSON{
		"nodes": MapOf(Ref(ComponentQNode)),
		"edges": MapOf(Ref(ComponentQEdge)),
	}, "nodes", "edges").Strict()

	return map[string]map[string]Component{
		TRAPI1_0: {
			ComponentQueryConstraint: {Schema: flatConstraint},
			ComponentQNode: {Schema: v10Node, Rules: []Rule{{
				Name:    "wildcard_ids",
				Expr:    `!has(self.id) || self.id == null || size(self.id) > 0`,
				Message: "id must be null for a wildcard node or name at least one curie",
			}}},
			ComponentQEdge: {Schema: v10Edge, Rules: []Rule{{
				Name:    "matches_list",
				Expr:    `self.all(k, type(self[k]) != map || !has(self[k].operator) || self[k].operator != 'matches' || type(self[k].value) == list)`,
				Message: "a matches constraint must carry a list of values",
			}}},
			ComponentQueryGraph: {Schema: graph},
		},
		TRAPI1_1: {
			ComponentQueryConstraint: {Schema: v11Constraint},
			ComponentQNode: {Schema: v11Node, Rules: []Rule{{
				Name:    "wildcard_ids",
				Expr:    `!has(self.ids) || self.ids == null || size(self.ids) > 0`,
				Message: "ids must be null for a wildcard node or name at least one curie",
			}}},
			ComponentQEdge: {Schema: v11Edge, Rules: []Rule{{
				Name:    "matches_list",
				Expr:    `!has(self.constraints) || self.constraints.all(c, c.operator != 'matches' || type(c.value) == list)`,
				Message: "a matches constraint must carry a list of values",
			}}},
			ComponentQueryGraph: {Schema: graph},
		},
	}
}
