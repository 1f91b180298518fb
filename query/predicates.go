package query

import (
	"strings"

	"github.com/di2ag/chp-sdk/trapi"
)

// predicates maps object category -> subject category -> predicate.
var predicates = map[string]map[string]string{
	trapi.BiolinkDisease: {
		trapi.BiolinkGene: trapi.PredicateGeneToDisease,
		trapi.BiolinkDrug: trapi.PredicateDrugToDisease,
	},
	trapi.BiolinkGene: {
		trapi.BiolinkDrug: trapi.PredicateDrugToGene,
	},
	trapi.BiolinkDrug: {
		trapi.BiolinkGene: trapi.PredicateGeneToDrug,
	},
	trapi.BiolinkPhenotypicFeature: {
		trapi.BiolinkDisease: trapi.PredicateDiseaseToPhenotype,
	},
}

var wildcardCategories = []string{trapi.BiolinkGene, trapi.BiolinkDrug}

// PredicateFor returns the predicate of an edge from a subject of one
// category to an object of another.
func PredicateFor(subject, object string) (string, bool) {
	p, ok := predicates[object][subject]
	return p, ok
}

var categoryAliases = map[string]string{
	"gene":               trapi.BiolinkGene,
	"drug":               trapi.BiolinkDrug,
	"chemical_substance": trapi.BiolinkDrug,
	"disease":            trapi.BiolinkDisease,
	"phenotype":          trapi.BiolinkPhenotypicFeature,
	"phenotypicfeature":  trapi.BiolinkPhenotypicFeature,
}

// ParseCategory accepts a biolink category curie or a short name such as
// "gene" and returns the curie. Unknown names are returned unchanged.
func ParseCategory(s string) string {
	if c, ok := categoryAliases[strings.ToLower(s)]; ok {
		return c
	}
	return s
}
