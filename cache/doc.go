// Package cache provides the read-through response cache used by the
// transport. Entries are raw response bodies keyed by a digest of the
// request method, URL and body.
//
// Two stores are available: an in-process Memory cache and a RedisCache
// that shares entries between processes.
package cache
