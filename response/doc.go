// Package response reads answers out of CHP reasoner responses.
//
// Responses are kept as decoded JSON. The readers only touch the query
// graph, the knowledge graph edges and nodes, and the edge bindings of each
// result, and they accept both TRAPI 1.0 and 1.1 key shapes.
package response
