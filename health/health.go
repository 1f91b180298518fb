package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/di2ag/chp-sdk/cache"
	"github.com/di2ag/chp-sdk/registry"
)

const defaultTimeout = 5 * time.Second

// EndpointCheck sends a GET to url. A 2xx answer is healthy, a 4xx answer
// is degraded (the server is up but rejected the request) and anything else
// is unhealthy.
func EndpointCheck(ctx context.Context, client *http.Client, url string) Status {
	if url == "" {
		return Unhealthy("url cannot be empty", nil)
	}
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Unhealthy(fmt.Sprintf("invalid url %q", url), map[string]any{"error": err.Error()})
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Unhealthy(fmt.Sprintf("failed to reach %s", url), map[string]any{
			"url":   url,
			"error": err.Error(),
		})
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	details := map[string]any{
		"url":         url,
		"status_code": resp.StatusCode,
		"latency_ms":  time.Since(start).Milliseconds(),
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Status{Status: StatusHealthy, Message: fmt.Sprintf("%s answered %d", url, resp.StatusCode), Details: details}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Degraded(fmt.Sprintf("%s answered %d", url, resp.StatusCode), details)
	default:
		return Unhealthy(fmt.Sprintf("%s answered %d", url, resp.StatusCode), details)
	}
}

// NetworkCheck verifies TCP connectivity to host:port.
func NetworkCheck(ctx context.Context, host string, port int) Status {
	if host == "" {
		return Unhealthy("host cannot be empty", nil)
	}
	if port <= 0 || port > 65535 {
		return Unhealthy(fmt.Sprintf("invalid port number: %d", port), map[string]any{"port": port})
	}
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	address := net.JoinHostPort(host, strconv.Itoa(port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Unhealthy(fmt.Sprintf("failed to connect to %s", address), map[string]any{
			"host":  host,
			"port":  port,
			"error": err.Error(),
		})
	}
	conn.Close()

	return Healthy(fmt.Sprintf("successfully connected to %s", address))
}

// CacheCheck pings the response cache. A nil cache is healthy since caching
// is optional.
func CacheCheck(ctx context.Context, store cache.Cache) Status {
	if store == nil {
		return Healthy("caching disabled")
	}
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		if errors.Is(err, cache.ErrClosed) {
			return Unhealthy("cache is closed", nil)
		}
		return Unhealthy("cache unreachable", map[string]any{"error": err.Error()})
	}
	return Healthy("cache reachable")
}

// DiscoveryCheck asks the registry for instances of reasonerID. No
// instances is degraded: the client can still fall back to its configured
// URL.
func DiscoveryCheck(ctx context.Context, d registry.Discoverer, reasonerID string) Status {
	if d == nil {
		return Healthy("discovery disabled")
	}
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	instances, err := d.Discover(ctx, reasonerID)
	if err != nil {
		return Unhealthy("registry unreachable", map[string]any{
			"reasoner_id": reasonerID,
			"error":       err.Error(),
		})
	}
	if len(instances) == 0 {
		return Degraded(fmt.Sprintf("no instances of reasoner %q registered", reasonerID), map[string]any{
			"reasoner_id": reasonerID,
		})
	}
	return Healthy(fmt.Sprintf("%d instance(s) of reasoner %q registered", len(instances), reasonerID))
}

// Combine aggregates checks. The result is unhealthy if any check is
// unhealthy, degraded if any is degraded, and healthy otherwise.
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return Healthy("no checks provided")
	}

	var unhealthy, degraded []string
	var healthyCount int
	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch check.Status {
		case StatusUnhealthy:
			unhealthy = append(unhealthy, msg)
		case StatusDegraded:
			degraded = append(degraded, msg)
		case StatusHealthy:
			healthyCount++
		}
	}

	if len(unhealthy) > 0 {
		return Unhealthy(fmt.Sprintf("%d check(s) failed", len(unhealthy)), map[string]any{
			"total":         len(checks),
			"unhealthy":     len(unhealthy),
			"degraded":      len(degraded),
			"healthy":       healthyCount,
			"failed_checks": unhealthy,
		})
	}
	if len(degraded) > 0 {
		return Degraded(fmt.Sprintf("%d check(s) degraded", len(degraded)), map[string]any{
			"total":           len(checks),
			"degraded":        len(degraded),
			"healthy":         healthyCount,
			"degraded_checks": degraded,
		})
	}
	return Healthy(fmt.Sprintf("all %d check(s) passed", len(checks)))
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultTimeout)
}
