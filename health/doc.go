// Package health checks the dependencies of a CHP client.
//
// Each check returns a Status describing whether the dependency is usable:
//
//   - EndpointCheck: the reasoner answers HTTP requests
//   - NetworkCheck: a host:port accepts TCP connections
//   - CacheCheck: the response cache backend is reachable
//   - DiscoveryCheck: the registry lists at least one reasoner instance
//   - Combine: aggregate several checks into one status
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//
//	overall := health.Combine(
//	    health.EndpointCheck(ctx, http.DefaultClient, "http://chp.thayer.dartmouth.edu/predicates/"),
//	    health.CacheCheck(ctx, store),
//	)
//	if overall.IsUnhealthy() {
//	    log.Println(overall.Message)
//	}
package health
