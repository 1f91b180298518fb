package response

import (
	"fmt"

	"github.com/di2ag/chp-sdk/trapi"
)

// Ranked is one candidate binding of a wildcard node.
type Ranked struct {
	Weight float64 `json:"weight"`
	Curie  string  `json:"curie"`
	Name   string  `json:"name"`
}

// OutcomeProb returns the probability of the queried outcome. It is read
// from the confidence attribute of the disease to phenotype edge bound in
// the first result.
func OutcomeProb(r Response) (float64, error) {
	results := r.Results()
	if len(results) == 0 {
		return 0, ErrNoResults
	}
	first, _ := results[0].(map[string]any)
	edges := r.kgEdges()

	for _, id := range boundEdges(first) {
		edge, ok := edges[id].(map[string]any)
		if !ok || !hasPredicate(edge, trapi.PredicateDiseaseToPhenotype) {
			continue
		}
		prob, ok := attributeValue(edge, trapi.BiolinkProbability)
		if !ok {
			return 0, fmt.Errorf("%w: edge %s has no %s attribute", ErrMalformedQuery, id, trapi.BiolinkProbability)
		}
		return prob, nil
	}
	return 0, fmt.Errorf("%w: no %s edge bound in first result", ErrMalformedQuery, trapi.PredicateDiseaseToPhenotype)
}

// WildcardCategories counts the unbound query graph nodes per category.
func WildcardCategories(r Response) map[string]int {
	counts := make(map[string]int)
	nodes, _ := r.QueryGraph()["nodes"].(map[string]any)
	for _, raw := range nodes {
		node, _ := raw.(map[string]any)
		if len(stringSlice(node["ids"])) > 0 || len(stringSlice(node["id"])) > 0 || len(stringSlice(node["curie"])) > 0 {
			continue
		}
		categories := stringSlice(node["categories"])
		if categories == nil {
			categories = stringSlice(node["category"])
		}
		for _, c := range categories {
			counts[c]++
		}
	}
	return counts
}

// RankedWildcards returns the candidates for each wildcard category in the
// order the reasoner ranked them. Results after the first each bind one
// candidate edge; gene candidates are read from gene to disease edges and
// drug candidates from drug to disease edges. The weight is the evidence
// attribute, falling back to the confidence attribute.
func RankedWildcards(r Response) (map[string][]Ranked, error) {
	results := r.Results()
	if len(results) < 2 {
		return nil, fmt.Errorf("%w: got %d results", ErrNoWildcardResults, len(results))
	}

	wildcards := WildcardCategories(r)
	edges := r.kgEdges()
	nodes := r.kgNodes()

	ranks := make(map[string][]Ranked)
	for _, raw := range results[1:] {
		result, _ := raw.(map[string]any)
		for _, id := range boundEdges(result) {
			edge, ok := edges[id].(map[string]any)
			if !ok {
				continue
			}

			var category string
			switch {
			case wildcards[trapi.BiolinkGene] > 0 && hasPredicate(edge, trapi.PredicateGeneToDisease):
				category = trapi.BiolinkGene
			case wildcards[trapi.BiolinkDrug] > 0 && hasPredicate(edge, trapi.PredicateDrugToDisease):
				category = trapi.BiolinkDrug
			default:
				continue
			}

			weight, ok := attributeValue(edge, trapi.BiolinkContribution, trapi.BiolinkProbability)
			if !ok {
				return nil, fmt.Errorf("%w: edge %s has no weight attribute", ErrMalformedQuery, id)
			}
			curie, _ := edge["subject"].(string)
			node, _ := nodes[curie].(map[string]any)
			name, _ := node["name"].(string)

			ranks[category] = append(ranks[category], Ranked{Weight: weight, Curie: curie, Name: name})
		}
	}
	return ranks, nil
}
