package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/di2ag/chp-sdk/query"
	"github.com/di2ag/chp-sdk/trapi"
	"github.com/spf13/cobra"
)

// outcomeFlags are shared by every build subcommand.
type outcomeFlags struct {
	outcome     string
	outcomeName string
	op          string
	value       string
	version     string
	output      string
}

func (f *outcomeFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.outcome, "outcome", "", "outcome phenotype curie, e.g. EFO:0000714")
	flags.StringVar(&f.outcomeName, "outcome-name", "", "outcome constraint name (default: the outcome curie)")
	flags.StringVar(&f.op, "op", "", "outcome operator, e.g. >")
	flags.StringVar(&f.value, "value", "", "outcome value; numbers are sent as numbers")
	flags.StringVar(&f.version, "trapi-version", "", "TRAPI schema version (default from config)")
	flags.StringVarP(&f.output, "output", "o", "", "write the query to this file instead of stdout")
}

// outcomeValue returns the value flag as a number when it parses as one.
func (f *outcomeFlags) outcomeValue() any {
	if f.value == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(f.value, 64); err == nil {
		return v
	}
	return f.value
}

func (f *outcomeFlags) schemaVersion(a *app) (trapi.SchemaVersion, error) {
	v := f.version
	if v == "" {
		v = a.cfg.TRAPIVersion
	}
	if v == "" {
		return trapi.DefaultSchemaVersion, nil
	}
	return trapi.ParseSchemaVersion(v)
}

type standardFlags struct {
	outcomeFlags
	genes, drugs           []string
	batchGenes, batchDrugs []string
	disease                string
	batchDiseases          []string
}

func (f *standardFlags) register(cmd *cobra.Command) {
	f.outcomeFlags.register(cmd)
	flags := cmd.Flags()
	flags.StringSliceVar(&f.genes, "genes", nil, "gene curies, one node each")
	flags.StringSliceVar(&f.drugs, "drugs", nil, "drug curies, one node each")
	flags.StringSliceVar(&f.batchGenes, "batch-genes", nil, "gene curies sharing a single node")
	flags.StringSliceVar(&f.batchDrugs, "batch-drugs", nil, "drug curies sharing a single node")
	flags.StringVar(&f.disease, "disease", "", "disease curie")
	flags.StringSliceVar(&f.batchDiseases, "batch-diseases", nil, "disease curies sharing a single node")
}

func (f *standardFlags) params(a *app) (query.Params, error) {
	version, err := f.schemaVersion(a)
	if err != nil {
		return query.Params{}, err
	}
	return query.Params{
		Genes:         f.genes,
		Drugs:         f.drugs,
		BatchGenes:    f.batchGenes,
		BatchDrugs:    f.batchDrugs,
		Disease:       f.disease,
		BatchDiseases: f.batchDiseases,
		Outcome:       f.outcome,
		OutcomeName:   f.outcomeName,
		OutcomeOp:     f.op,
		OutcomeValue:  f.outcomeValue(),
		Version:       version,
	}, nil
}

func newBuildCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a query file",
	}
	cmd.AddCommand(newBuildStandardCmd(a), newBuildWildcardCmd(a), newBuildOneHopCmd(a))
	return cmd
}

func newBuildStandardCmd(a *app) *cobra.Command {
	f := &standardFlags{}
	cmd := &cobra.Command{
		Use:   "standard",
		Short: "Build a standard probability query",
		Example: `  chp build standard --genes ENSEMBL:ENSG00000132155 --disease MONDO:0007254 \
    --outcome EFO:0000714 --op '>' --value 970 -o query.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := f.params(a)
			if err != nil {
				return err
			}
			q, err := query.BuildStandard(p)
			if err != nil {
				return err
			}
			return writeQuery(cmd.OutOrStdout(), q, f.output)
		},
	}
	f.register(cmd)
	return cmd
}

func newBuildWildcardCmd(a *app) *cobra.Command {
	f := &standardFlags{}
	var category string
	cmd := &cobra.Command{
		Use:   "wildcard",
		Short: "Build a standard query with a gene or drug wildcard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := f.params(a)
			if err != nil {
				return err
			}
			q, err := query.BuildWildcard(category, p)
			if err != nil {
				return err
			}
			return writeQuery(cmd.OutOrStdout(), q, f.output)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&category, "category", "", "wildcard category: gene or drug")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newBuildOneHopCmd(a *app) *cobra.Command {
	f := &outcomeFlags{}
	p := query.OneHopParams{}
	cmd := &cobra.Command{
		Use:   "onehop",
		Short: "Build a two node, one edge query",
		Example: `  chp build onehop --subject-category gene --object-category drug \
    --object CHEMBL:CHEMBL88 --diseases MONDO:0007254`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, err := f.schemaVersion(a)
			if err != nil {
				return err
			}
			p.Outcome = f.outcome
			p.OutcomeName = f.outcomeName
			p.OutcomeOp = f.op
			p.OutcomeValue = f.outcomeValue()
			p.Version = version

			q, err := query.BuildOneHop(p)
			if err != nil {
				return err
			}
			return writeQuery(cmd.OutOrStdout(), q, f.output)
		},
	}
	f.register(cmd)

	flags := cmd.Flags()
	flags.StringSliceVar(&p.SubjectCategories, "subject-category", nil, "subject categories; several make a batch wildcard")
	flags.StringSliceVar(&p.ObjectCategories, "object-category", nil, "object category")
	flags.StringSliceVar(&p.Subject, "subject", nil, "subject curies (empty leaves the subject unbound)")
	flags.StringSliceVar(&p.Object, "object", nil, "object curies (empty leaves the object unbound)")
	flags.StringSliceVar(&p.Genes, "genes", nil, "gene context curies")
	flags.StringSliceVar(&p.Drugs, "drugs", nil, "drug context curies")
	flags.StringSliceVar(&p.Diseases, "diseases", nil, "disease context curies")
	return cmd
}

func writeQuery(w io.Writer, q *trapi.Query, path string) error {
	if path != "" {
		if err := q.Save(path); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "wrote %s query to %s\n", q.Version(), path)
		return err
	}
	return printJSON(w, q)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
