package query

import (
	"slices"

	"github.com/di2ag/chp-sdk/trapi"
)

// OneHopParams are the inputs of BuildOneHop.
type OneHopParams struct {
	// SubjectCategories and ObjectCategories type the two nodes. Several
	// subject categories make a batch wildcard, e.g. genes and drugs
	// against one disease.
	SubjectCategories []string
	ObjectCategories  []string

	// Subject and Object bind the nodes. A nil slice leaves the node
	// unbound.
	Subject []string
	Object  []string

	// Genes, Drugs and Diseases are optional context carried as edge
	// constraints.
	Genes    []string
	Drugs    []string
	Diseases []string

	// Outcome is optional. When set, OutcomeOp and OutcomeValue are
	// required and OutcomeName defaults to Outcome.
	Outcome      string
	OutcomeName  string
	OutcomeOp    string
	OutcomeValue any

	Version trapi.SchemaVersion
}

func (p OneHopParams) check() error {
	switch {
	case len(p.SubjectCategories) == 0:
		return missing("subject_category")
	case len(p.ObjectCategories) == 0:
		return missing("object_category")
	case p.Outcome != "" && p.OutcomeOp == "":
		return missing("outcome_op")
	case p.Outcome != "" && p.OutcomeValue == nil:
		return missing("outcome_value")
	}
	return nil
}

// predicates returns the edge predicates for every subject category
// against the first object category, without duplicates.
func (p OneHopParams) predicates() ([]string, error) {
	object := p.ObjectCategories[0]
	var out []string
	for _, subject := range p.SubjectCategories {
		predicate, ok := PredicateFor(subject, object)
		if !ok {
			return nil, &BuildError{
				Field:  "subject_category",
				Reason: "no predicate from " + subject + " to " + object,
			}
		}
		if !slices.Contains(out, predicate) {
			out = append(out, predicate)
		}
	}
	return out, nil
}

// BuildOneHop builds a two node, one edge query. An outcome adds a
// predicate_proxy constraint naming the outcome and the outcome constraint
// itself. Any context adds a predicate_context constraint listing the
// present context categories plus one matches constraint per category.
func BuildOneHop(p OneHopParams) (*trapi.Query, error) {
	p.SubjectCategories = normalize(p.SubjectCategories)
	p.ObjectCategories = normalize(p.ObjectCategories)
	if err := p.check(); err != nil {
		return nil, err
	}
	predicates, err := p.predicates()
	if err != nil {
		return nil, err
	}

	version := p.Version
	if version == "" {
		version = trapi.DefaultSchemaVersion
	}
	g, err := trapi.NewQueryGraph(version)
	if err != nil {
		return nil, err
	}
	subject, err := g.AddNode(p.Subject, p.SubjectCategories)
	if err != nil {
		return nil, err
	}
	object, err := g.AddNode(p.Object, p.ObjectCategories)
	if err != nil {
		return nil, err
	}
	edge, err := g.AddEdge(subject, object, predicates, nil)
	if err != nil {
		return nil, err
	}

	for _, c := range p.constraints() {
		if err := g.AddConstraint(c, trapi.OnEdge(edge)); err != nil {
			return nil, err
		}
	}
	return trapi.NewQuery(g), nil
}

func (p OneHopParams) constraints() []trapi.Constraint {
	var out []trapi.Constraint
	if p.Outcome != "" {
		name := p.OutcomeName
		if name == "" {
			name = p.Outcome
		}
		out = append(out,
			trapi.NewConstraint(trapi.ConstraintPredicateProxy, trapi.PredicateProxyID, trapi.OperatorEquals, []string{name}),
			trapi.NewConstraint(name, p.Outcome, p.OutcomeOp, p.OutcomeValue),
		)
	}

	context := []struct {
		category string
		curies   []string
	}{
		{trapi.BiolinkGene, p.Genes},
		{trapi.BiolinkDrug, p.Drugs},
		{trapi.BiolinkDisease, p.Diseases},
	}
	var present []string
	var matches []trapi.Constraint
	for _, c := range context {
		if len(c.curies) == 0 {
			continue
		}
		present = append(present, c.category)
		matches = append(matches, trapi.NewConstraint(c.category, c.category, trapi.OperatorMatches, slices.Clone(c.curies)))
	}
	if len(present) > 0 {
		out = append(out, trapi.NewConstraint(trapi.ConstraintPredicateContext, trapi.PredicateContextID, trapi.OperatorEquals, present))
		out = append(out, matches...)
	}
	return out
}

func normalize(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, ParseCategory(c))
	}
	return out
}
