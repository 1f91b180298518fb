package trapi

// Biolink entity categories.
const (
	BiolinkGene              = "biolink:Gene"
	BiolinkDrug              = "biolink:Drug"
	BiolinkDisease           = "biolink:Disease"
	BiolinkPhenotypicFeature = "biolink:PhenotypicFeature"
)

// Edge attribute types reported by the reasoner.
const (
	BiolinkContribution = "biolink:has_evidence"
	BiolinkProbability  = "biolink:has_confidence_level"
)

// Biolink predicates.
const (
	PredicateGeneToDisease      = "biolink:gene_associated_with_condition"
	PredicateDrugToDisease      = "biolink:treats"
	PredicateDrugToGene         = "biolink:interacts_with"
	PredicateGeneToDrug         = "biolink:interacts_with"
	PredicateDiseaseToPhenotype = "biolink:has_phenotype"
)

// Constraint names and operators used by the query factories.
const (
	ConstraintPredicateProxy   = "predicate_proxy"
	ConstraintPredicateContext = "predicate_context"
	PredicateProxyID           = "CHP:PredicateProxy"
	PredicateContextID         = "CHP:PredicateContext"
	OperatorEquals             = "=="
	OperatorMatches            = "matches"
)
