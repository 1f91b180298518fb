package response

import "errors"

var (
	// ErrNoResults indicates a response with an empty results list.
	ErrNoResults = errors.New("response has no results")

	// ErrNoWildcardResults indicates fewer than two results; the first
	// result always holds the scalar answer.
	ErrNoWildcardResults = errors.New("could not find any wildcard results, possible ill-formed query")

	// ErrMalformedQuery indicates a result edge that lacks the expected
	// predicate or attribute.
	ErrMalformedQuery = errors.New("could not find associated probability of query, possible ill-formed query")
)
