package query

import (
	"github.com/di2ag/chp-sdk/trapi"
)

// Params are the inputs of the standard and wildcard factories.
type Params struct {
	// Genes and Drugs each add one node per curie.
	Genes []string
	Drugs []string

	// BatchGenes and BatchDrugs each add a single node carrying every curie.
	BatchGenes []string
	BatchDrugs []string

	// Exactly one of Disease and BatchDiseases must be set.
	Disease       string
	BatchDiseases []string

	// Outcome is the phenotype curie, e.g. "EFO:0000714" for survival time.
	Outcome string

	// OutcomeName names the outcome constraint. It defaults to Outcome.
	OutcomeName  string
	OutcomeOp    string
	OutcomeValue any

	// Version defaults to trapi.DefaultSchemaVersion.
	Version trapi.SchemaVersion
}

func (p Params) check() error {
	switch {
	case p.Outcome == "":
		return missing("outcome")
	case p.OutcomeOp == "":
		return missing("outcome_op")
	case p.OutcomeValue == nil:
		return missing("outcome_value")
	case p.Disease == "" && len(p.BatchDiseases) == 0:
		return &BuildError{Field: "disease", Reason: "one of disease or batch_diseases is required"}
	case p.Disease != "" && len(p.BatchDiseases) > 0:
		return &BuildError{Field: "disease", Reason: "disease and batch_diseases are mutually exclusive"}
	}
	return nil
}

func (p Params) version() trapi.SchemaVersion {
	if p.Version == "" {
		return trapi.DefaultSchemaVersion
	}
	return p.Version
}

func (p Params) outcomeName() string {
	if p.OutcomeName == "" {
		return p.Outcome
	}
	return p.OutcomeName
}

// BuildStandard builds a disease node, one node per gene and drug (plus one
// node per non-empty batch) each linked to the disease, and an outcome
// phenotype node whose edge from the disease carries the outcome
// constraint.
func BuildStandard(p Params) (*trapi.Query, error) {
	g, err := buildStandardGraph(p)
	if err != nil {
		return nil, err
	}
	return trapi.NewQuery(g), nil
}

func buildStandardGraph(p Params) (*trapi.QueryGraph, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	g, err := trapi.NewQueryGraph(p.version())
	if err != nil {
		return nil, err
	}

	diseases := p.BatchDiseases
	if p.Disease != "" {
		diseases = []string{p.Disease}
	}
	disease, err := g.AddNode(diseases, []string{trapi.BiolinkDisease})
	if err != nil {
		return nil, err
	}

	type evidence struct {
		category string
		ids      []string
	}
	var nodes []evidence
	for _, gene := range p.Genes {
		nodes = append(nodes, evidence{trapi.BiolinkGene, []string{gene}})
	}
	if len(p.BatchGenes) > 0 {
		nodes = append(nodes, evidence{trapi.BiolinkGene, p.BatchGenes})
	}
	for _, drug := range p.Drugs {
		nodes = append(nodes, evidence{trapi.BiolinkDrug, []string{drug}})
	}
	if len(p.BatchDrugs) > 0 {
		nodes = append(nodes, evidence{trapi.BiolinkDrug, p.BatchDrugs})
	}

	for _, n := range nodes {
		if err := link(g, n.ids, n.category, disease, trapi.BiolinkDisease); err != nil {
			return nil, err
		}
	}

	phenotype, err := g.AddNode([]string{p.Outcome}, []string{trapi.BiolinkPhenotypicFeature})
	if err != nil {
		return nil, err
	}
	edge, err := g.AddEdge(disease, phenotype, []string{trapi.PredicateDiseaseToPhenotype}, nil)
	if err != nil {
		return nil, err
	}
	outcome := trapi.NewConstraint(p.outcomeName(), p.Outcome, p.OutcomeOp, p.OutcomeValue)
	if err := g.AddConstraint(outcome, trapi.OnEdge(edge)); err != nil {
		return nil, err
	}
	return g, nil
}

// link adds a node of category and an edge from it to object.
func link(g *trapi.QueryGraph, ids []string, category, object, objectCategory string) error {
	predicate, ok := PredicateFor(category, objectCategory)
	if !ok {
		return &BuildError{Field: "category", Reason: "no predicate from " + category + " to " + objectCategory}
	}
	subject, err := g.AddNode(ids, []string{category})
	if err != nil {
		return err
	}
	_, err = g.AddEdge(subject, object, []string{predicate}, nil)
	return err
}
