package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/di2ag/chp-sdk/cache"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Option configures a Client.
type Option func(*Client)

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	// Name labels state-change logs.
	Name string

	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval clears the counts while closed. Zero never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open.
	Timeout time.Duration

	// FailureThreshold is the failure ratio in [0, 1] that opens the breaker.
	FailureThreshold float64

	// MinRequests before the failure ratio is considered.
	MinRequests uint32
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCache installs a read-through response cache.
func WithCache(store cache.Cache) Option {
	return func(c *Client) {
		c.cache = store
	}
}

// WithRateLimit throttles outgoing requests to r per second with the given
// burst. A non-positive rate disables throttling.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		if r <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(r), max(burst, 1))
	}
}

// WithBreaker guards requests with a circuit breaker.
func WithBreaker(s BreakerSettings) Option {
	return func(c *Client) {
		c.breakerSettings = &s
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithMeterProvider sets the provider the request metrics are created from.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) {
		if mp != nil {
			c.meter = mp.Meter(instrumentationName)
		}
	}
}
