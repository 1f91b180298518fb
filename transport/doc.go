// Package transport sends JSON requests to a CHP reasoner.
//
// A Client wraps net/http with an optional read-through response cache, a
// request rate limiter and a circuit breaker. Every request is traced and
// counted through OpenTelemetry. Responses are returned as raw bodies with a
// flag telling whether they came from the cache.
package transport
