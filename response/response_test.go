package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundEdges_Order(t *testing.T) {
	result := map[string]any{
		"edge_bindings": map[string]any{
			"e10": []any{map[string]any{"id": "kg10"}},
			"e2":  []any{map[string]any{"id": "kg2"}, map[string]any{"id": "kg2b"}},
			"e1":  map[string]any{"kg_id": "kg1"},
		},
	}
	assert.Equal(t, []string{"kg1", "kg2", "kg2b", "kg10"}, boundEdges(result))
	assert.Empty(t, boundEdges(map[string]any{}))
}
