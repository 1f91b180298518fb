// Package query builds the CHP query shapes on top of trapi.QueryGraph.
//
// Three factories are provided:
//
//   - BuildStandard: genes and drugs linked to a disease, with an outcome
//     constraint on the disease to phenotype edge.
//   - BuildWildcard: a standard query plus one unbound gene or drug node for
//     the reasoner to rank.
//   - BuildOneHop: a single edge between two nodes, optionally annotated with
//     outcome and context constraints.
//
// The factories either return a fully valid query or an error; they never
// return a partially built graph.
package query
