// Package sdk is a Go client for the Connections Hypothesis Provider (CHP),
// a biomedical reasoning service that answers probabilistic queries over
// TRAPI query graphs.
//
// Queries are built with the query package (or directly with trapi), sent
// with a Client and read with the response package:
//
//	client, err := sdk.NewClient(nil)
//	if err != nil {
//		return err
//	}
//	defer sdk.CloseWithLog(client, nil, "chp client")
//
//	q, err := query.BuildStandard(query.Params{
//		Genes:        []string{"ENSEMBL:ENSG00000132155"},
//		Disease:      "MONDO:0007254",
//		Outcome:      "EFO:0000714",
//		OutcomeOp:    ">",
//		OutcomeValue: 970,
//	})
//	if err != nil {
//		return err
//	}
//
//	resp, err := client.Query(ctx, q)
//	if err != nil {
//		return err
//	}
//	prob, err := client.GetOutcomeProb(resp)
//
// # Configuration
//
// NewClient takes a *config.Config, usually read from chp.yaml with
// config.Load. GetClient binds the configuration to one of its named
// reasoners first. CHP_URL and CHP_REASONER_ID override the file.
//
// # Caching
//
// SetCaching installs a read-through response cache, in memory or in
// Redis depending on the cache section. Answers served from the cache are
// logged as "result from cache". StopCaching and ClearCache undo it.
//
// # Errors
//
// Client methods return *SDKError values that categorize the failure by
// Kind and wrap the underlying error, so both of these work:
//
//	errors.Is(err, &sdk.SDKError{Kind: sdk.KindNetwork})
//	errors.Is(err, response.ErrNoResults)
package sdk
