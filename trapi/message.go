package trapi

import (
	"encoding/json"
	"fmt"
)

// Message is the TRAPI message envelope: the query graph sent to the
// reasoner and, once answered, the knowledge graph and results it returned.
// KnowledgeGraph and Results are passed through as decoded JSON; the
// response package reads the few fields the client needs out of them.
type Message struct {
	QueryGraph     *QueryGraph
	KnowledgeGraph map[string]any
	Results        []any

	// ReasonerID routes the query to a reasoner handler. The client sets it
	// when sending.
	ReasonerID string
}

// Query is the top-level request document.
type Query struct {
	Message Message

	// MaxResults bounds the number of wildcard results. Zero omits the field.
	MaxResults int
}

// NewQuery wraps a query graph in a request envelope.
func NewQuery(g *QueryGraph) *Query {
	return &Query{Message: Message{QueryGraph: g}}
}

// Version returns the schema version of the wrapped query graph.
func (q *Query) Version() SchemaVersion {
	if q.Message.QueryGraph == nil {
		return ""
	}
	return q.Message.QueryGraph.Version()
}

// ToMap returns the wire form of the query:
//
//	{"message": {"query_graph": {...}, "knowledge_graph": null, "results": null}}
func (q *Query) ToMap() (map[string]any, error) {
	msg := map[string]any{
		"query_graph":     nil,
		"knowledge_graph": q.Message.KnowledgeGraph,
		"results":         q.Message.Results,
	}
	if q.Message.QueryGraph != nil {
		doc, err := q.Message.QueryGraph.Serialize()
		if err != nil {
			return nil, err
		}
		msg["query_graph"] = doc
	}
	if q.Message.ReasonerID != "" {
		msg["reasoner_id"] = q.Message.ReasonerID
	}

	out := map[string]any{"message": msg}
	if q.MaxResults > 0 {
		out["max_results"] = q.MaxResults
	}
	return out, nil
}

// MarshalJSON encodes the wire form of the query.
func (q *Query) MarshalJSON() ([]byte, error) {
	doc, err := q.ToMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a query document, rebuilding and validating its
// query graph with the default validator.
func (q *Query) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeQuery(data)
	if err != nil {
		return err
	}
	*q = *decoded
	return nil
}

type wireQuery struct {
	Message struct {
		QueryGraph     map[string]any `json:"query_graph"`
		KnowledgeGraph map[string]any `json:"knowledge_graph"`
		Results        []any          `json:"results"`
		ReasonerID     string         `json:"reasoner_id"`
	} `json:"message"`
	MaxResults int `json:"max_results"`
}

// DecodeQuery decodes a query document. The schema version of the query
// graph is detected from its key shape.
func DecodeQuery(data []byte, opts ...GraphOption) (*Query, error) {
	var raw wireQuery
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode query: %w", err)
	}
	q := &Query{
		Message: Message{
			KnowledgeGraph: raw.Message.KnowledgeGraph,
			Results:        raw.Message.Results,
			ReasonerID:     raw.Message.ReasonerID,
		},
		MaxResults: raw.MaxResults,
	}
	if raw.Message.QueryGraph != nil {
		g, err := DecodeQueryGraph(raw.Message.QueryGraph, opts...)
		if err != nil {
			return nil, err
		}
		q.Message.QueryGraph = g
	}
	return q, nil
}
