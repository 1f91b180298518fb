package main

import (
	"fmt"

	sdk "github.com/di2ag/chp-sdk"
	"github.com/di2ag/chp-sdk/trapi"
	"github.com/spf13/cobra"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		maxResults  int
		outcomeProb bool
		ranked      bool
	)
	cmd := &cobra.Command{
		Use:   "query FILE",
		Short: "Send a query file to the reasoner",
		Long: `Send a query file to the reasoner and print the answer.

With --outcome-prob only the outcome probability of a standard query is
printed; with --ranked the ranked wildcard results of a wildcard query.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := trapi.LoadQuery(args[0])
			if err != nil {
				return err
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			defer sdk.CloseWithLog(c, a.logger, "chp client")

			var opts []sdk.QueryOption
			if cmd.Flags().Changed("max-results") {
				opts = append(opts, sdk.WithMaxResults(maxResults))
			}
			resp, err := c.Query(cmd.Context(), q, opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case outcomeProb:
				prob, err := c.GetOutcomeProb(resp)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, prob)
				return err
			case ranked:
				ranks, err := c.GetRankedWildcards(resp)
				if err != nil {
					return err
				}
				return printJSON(out, ranks)
			default:
				return printJSON(out, resp)
			}
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&maxResults, "max-results", 10, "maximum number of wildcard results")
	flags.BoolVar(&outcomeProb, "outcome-prob", false, "print only the outcome probability")
	flags.BoolVar(&ranked, "ranked", false, "print only the ranked wildcard results")
	cmd.MarkFlagsMutuallyExclusive("outcome-prob", "ranked")
	return cmd
}
