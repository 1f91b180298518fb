package query

import (
	"slices"

	"github.com/di2ag/chp-sdk/trapi"
)

// BuildWildcard builds a standard query and adds one unbound node of
// category, linked to the disease node. category must be trapi.BiolinkGene
// or trapi.BiolinkDrug; the short names "gene" and "drug" are accepted too.
func BuildWildcard(category string, p Params) (*trapi.Query, error) {
	category = ParseCategory(category)
	if !slices.Contains(wildcardCategories, category) {
		return nil, &InvalidWildcardCategoryError{Category: category}
	}

	g, err := buildStandardGraph(p)
	if err != nil {
		return nil, err
	}
	diseases := g.FindNodes([]string{trapi.BiolinkDisease}, nil)
	if len(diseases) == 0 {
		return nil, &BuildError{Field: "disease", Reason: "standard query has no disease node"}
	}
	if err := link(g, nil, category, diseases[0], trapi.BiolinkDisease); err != nil {
		return nil, err
	}
	return trapi.NewQuery(g), nil
}
