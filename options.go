package sdk

import (
	"log/slog"
	"net/http"

	"github.com/di2ag/chp-sdk/cache"
	"github.com/di2ag/chp-sdk/registry"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger        *slog.Logger
	tracer        trace.Tracer
	meterProvider metric.MeterProvider
	httpClient    *http.Client
	discoverer    registry.Discoverer
	cache         cache.Cache
}

// WithLogger sets a custom logger. If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for request spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *clientOptions) {
		o.tracer = tracer
	}
}

// WithMeterProvider sets the provider request metrics are recorded with.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *clientOptions) {
		o.meterProvider = mp
	}
}

// WithHTTPClient replaces the HTTP client. The configured timeout is not
// applied to it.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = hc
	}
}

// WithDiscoverer resolves the reasoner URL through d instead of the
// registry section of the configuration.
func WithDiscoverer(d registry.Discoverer) Option {
	return func(o *clientOptions) {
		o.discoverer = d
	}
}

// WithCache installs a response cache from the start. It takes precedence
// over SetCaching's configured backend until StopCaching is called.
func WithCache(store cache.Cache) Option {
	return func(o *clientOptions) {
		o.cache = store
	}
}

// QueryOption configures a single Query call.
type QueryOption func(*queryOptions)

type queryOptions struct {
	maxResults int
}

// WithMaxResults bounds the number of wildcard results returned.
func WithMaxResults(n int) QueryOption {
	return func(o *queryOptions) {
		o.maxResults = n
	}
}
