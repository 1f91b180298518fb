package response

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/di2ag/chp-sdk/trapi"
)

// Response is a decoded reasoner response.
type Response map[string]any

// Decode parses a JSON response body.
func Decode(data []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return r, nil
}

// Message returns the message envelope, nil when absent.
func (r Response) Message() map[string]any {
	m, _ := r["message"].(map[string]any)
	return m
}

// Results returns the results list.
func (r Response) Results() []any {
	res, _ := r.Message()["results"].([]any)
	return res
}

// QueryGraph returns the echoed query graph.
func (r Response) QueryGraph() map[string]any {
	qg, _ := r.Message()["query_graph"].(map[string]any)
	return qg
}

// KnowledgeGraph returns the knowledge graph.
func (r Response) KnowledgeGraph() map[string]any {
	kg, _ := r.Message()["knowledge_graph"].(map[string]any)
	return kg
}

func (r Response) kgEdges() map[string]any {
	edges, _ := r.KnowledgeGraph()["edges"].(map[string]any)
	return edges
}

func (r Response) kgNodes() map[string]any {
	nodes, _ := r.KnowledgeGraph()["nodes"].(map[string]any)
	return nodes
}

// boundEdges returns the knowledge graph edge ids bound in a result,
// ordered by query graph edge id.
func boundEdges(result map[string]any) []string {
	bindings, _ := result["edge_bindings"].(map[string]any)
	var ids []string
	qgIDs := slices.Collect(maps.Keys(bindings))
	slices.SortFunc(qgIDs, trapi.CompareIDs)
	for _, qgID := range qgIDs {
		switch b := bindings[qgID].(type) {
		case []any:
			for _, item := range b {
				if id := bindingID(item); id != "" {
					ids = append(ids, id)
				}
			}
		default:
			if id := bindingID(b); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func bindingID(v any) string {
	b, _ := v.(map[string]any)
	if id, ok := b["id"].(string); ok {
		return id
	}
	id, _ := b["kg_id"].(string)
	return id
}

func hasPredicate(edge map[string]any, predicate string) bool {
	return slices.Contains(stringSlice(edge["predicate"]), predicate) ||
		slices.Contains(stringSlice(edge["predicates"]), predicate)
}

// attributeValue returns the numeric value of the first attribute whose
// type matches one of types, tried in order. When no attribute is typed at
// all, the first attribute is used.
func attributeValue(edge map[string]any, types ...string) (float64, bool) {
	attrs, _ := edge["attributes"].([]any)
	typed := false
	for _, want := range types {
		for _, raw := range attrs {
			attr, _ := raw.(map[string]any)
			t := attributeType(attr)
			if t != "" {
				typed = true
			}
			if t == want {
				return number(attr["value"])
			}
		}
	}
	if !typed && len(attrs) > 0 {
		attr, _ := attrs[0].(map[string]any)
		return number(attr["value"])
	}
	return 0, false
}

func attributeType(attr map[string]any) string {
	if t, ok := attr["attribute_type_id"].(string); ok {
		return t
	}
	t, _ := attr["type"].(string)
	return t
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func stringSlice(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
