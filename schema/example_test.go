package schema_test

import (
	"errors"
	"fmt"

	"github.com/di2ag/chp-sdk/schema"
)

// Example validates a TRAPI 1.1 query node with the built-in schemas.
func Example() {
	v := schema.Default()

	node := map[string]any{
		"ids":         []string{"MONDO:0007254"},
		"categories":  []string{"biolink:Disease"},
		"constraints": []any{},
	}
	fmt.Println(v.Validate(schema.TRAPI1_1, schema.ComponentQNode, node) == nil)

	node["categories"] = []string{""}
	err := v.Validate(schema.TRAPI1_1, schema.ComponentQNode, node)
	fmt.Println(errors.Is(err, schema.ErrValidation))

	// Output:
	// true
	// true
}

// ExampleTRAPIValidator_Validate_unknownVersion shows that an unregistered
// version is not reported as a validation failure.
func ExampleTRAPIValidator_Validate_unknownVersion() {
	err := schema.Default().Validate("9.9", schema.ComponentQNode, map[string]any{})

	fmt.Println(errors.Is(err, schema.ErrUnknownSchema))
	fmt.Println(errors.Is(err, schema.ErrValidation))

	// Output:
	// true
	// false
}
