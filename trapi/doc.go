// Package trapi models TRAPI query graphs for the CHP reasoner.
//
// A QueryGraph owns typed nodes and predicate edges, each carrying optional
// constraints. Every component is pinned to the graph's SchemaVersion and is
// validated against that version's schema when it is created or changed, so
// a graph that has been built without error always serializes to a
// schema-valid wire form.
//
// Two TRAPI revisions are supported. They differ in field pluralization and
// in how constraints are nested:
//
//	1.0: {"id": "MONDO:0007254", "category": "biolink:Disease", "<name>": {...constraint}}
//	1.1: {"ids": ["MONDO:0007254"], "categories": ["biolink:Disease"], "constraints": [...]}
//
// # Building a Graph
//
//	g, err := trapi.NewQueryGraph(trapi.V1_1)
//	disease, _ := g.AddNode([]string{"MONDO:0007254"}, []string{trapi.BiolinkDisease})
//	gene, _ := g.AddNode([]string{"ENSEMBL:ENSG00000132155"}, []string{trapi.BiolinkGene})
//	e, _ := g.AddEdge(gene, disease, []string{trapi.PredicateGeneToDisease}, nil)
//
// Graphs are not safe for concurrent mutation.
package trapi
