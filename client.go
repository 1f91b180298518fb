package sdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/di2ag/chp-sdk/cache"
	"github.com/di2ag/chp-sdk/config"
	"github.com/di2ag/chp-sdk/health"
	"github.com/di2ag/chp-sdk/registry"
	"github.com/di2ag/chp-sdk/response"
	"github.com/di2ag/chp-sdk/transport"
	"github.com/di2ag/chp-sdk/trapi"
)

// Curie is one entity the reasoner knows about.
type Curie struct {
	// Name is the reasoner's human readable label.
	Name  string `json:"name"`
	Curie string `json:"curie"`
}

// Client talks to one CHP reasoner. It is safe for concurrent use.
type Client struct {
	cfg       *config.Config
	version   trapi.SchemaVersion
	logger    *slog.Logger
	http      *http.Client
	transport *transport.Client

	discoverer registry.Discoverer
	registry   *registry.Client // owned, closed with the client
	follower   *registry.Follower

	mu     sync.Mutex
	closed bool
}

// NewClient creates a client for the reasoner cfg is bound to. A nil cfg
// uses config.Default().
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	const op = "NewClient"

	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	version := trapi.DefaultSchemaVersion
	if cfg.TRAPIVersion != "" {
		v, err := trapi.ParseSchemaVersion(cfg.TRAPIVersion)
		if err != nil {
			return nil, NewConfigurationError(op, err)
		}
		version = v
	}

	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.HTTP.GetTimeout()}
	}

	topts := []transport.Option{
		transport.WithHTTPClient(hc),
		transport.WithLogger(o.logger),
		transport.WithRateLimit(cfg.HTTP.GetRateLimit(), cfg.HTTP.GetBurst()),
		transport.WithBreaker(transport.BreakerSettings{
			Name:             "chp-" + cfg.ReasonerID,
			MaxRequests:      cfg.Breaker.GetMaxRequests(),
			Interval:         cfg.Breaker.GetInterval(),
			Timeout:          cfg.Breaker.GetTimeout(),
			FailureThreshold: cfg.Breaker.GetFailureThreshold(),
			MinRequests:      cfg.Breaker.GetMinRequests(),
		}),
		transport.WithCache(o.cache),
	}
	if o.tracer != nil {
		topts = append(topts, transport.WithTracer(o.tracer))
	}
	if o.meterProvider != nil {
		topts = append(topts, transport.WithMeterProvider(o.meterProvider))
	}
	tc, err := transport.New(topts...)
	if err != nil {
		return nil, NewInternalError(op, err)
	}

	c := &Client{
		cfg:        cfg,
		version:    version,
		logger:     o.logger.With("reasoner_id", cfg.ReasonerID),
		http:       hc,
		transport:  tc,
		discoverer: o.discoverer,
	}

	if c.discoverer == nil {
		rc, err := newRegistryClient(cfg.Registry, o.logger)
		if err != nil {
			return nil, NewNetworkError(op, err)
		}
		if rc != nil {
			c.discoverer = rc
			c.registry = rc
		}
	}
	if w, ok := c.discoverer.(registry.Watcher); ok {
		f, err := registry.Follow(context.Background(), w, cfg.ReasonerID, version.String(), c.logger)
		if err != nil {
			c.logger.Warn("reasoner watch failed, resolving per request", "error", err)
		} else {
			c.follower = f
		}
	}
	return c, nil
}

// newRegistryClient connects to the configured etcd cluster, or to the one
// named by registry.EnvEndpoints. It returns nil when neither is set.
func newRegistryClient(section *config.RegistryConfig, logger *slog.Logger) (*registry.Client, error) {
	if section == nil {
		return registry.NewClientFromEnv(registry.WithLogger(logger))
	}
	return registry.NewClient(registry.Config{
		Endpoints:   section.Endpoints,
		Namespace:   section.GetNamespace(),
		DialTimeout: section.GetDialTimeout(),
	}, registry.WithLogger(logger))
}

// GetClient creates a client for the named reasoner using its settings in
// cfg. An unknown id fails with ErrUnknownReasoner and the list of
// available ids.
func GetClient(cfg *config.Config, reasonerID string, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	rc, err := cfg.ForReasoner(reasonerID)
	if err != nil {
		return nil, NewNotFoundError("GetClient", err)
	}
	return NewClient(rc, opts...)
}

// ReasonerID returns the reasoner the client sends queries to.
func (c *Client) ReasonerID() string {
	return c.cfg.ReasonerID
}

// SchemaVersion returns the TRAPI version queries are built with.
func (c *Client) SchemaVersion() trapi.SchemaVersion {
	return c.version
}

// Query sends q to the reasoner and returns its answer. max_results is
// taken from the options, then q, then the configuration; the reasoner id
// is always the client's. q itself is not modified.
func (c *Client) Query(ctx context.Context, q *trapi.Query, opts ...QueryOption) (response.Response, error) {
	const op = "Client.Query"
	if err := c.checkOpen(op); err != nil {
		return nil, err
	}
	if q == nil || q.Message.QueryGraph == nil {
		return nil, NewValidationError(op, ErrNilQuery)
	}

	o := queryOptions{maxResults: c.cfg.MaxResults}
	if q.MaxResults > 0 {
		o.maxResults = q.MaxResults
	}
	for _, opt := range opts {
		opt(&o)
	}

	send := *q
	send.MaxResults = o.maxResults
	send.Message.ReasonerID = c.cfg.ReasonerID
	body, err := send.ToMap()
	if err != nil {
		return nil, NewValidationError(op, err)
	}

	url := c.endpoint(ctx, c.cfg.Endpoints.Query)
	res, err := c.transport.Post(ctx, url, body)
	if err != nil {
		return nil, requestError(op, url, err)
	}

	resp, err := response.Decode(res.Body)
	if err != nil {
		return nil, NewInternalError(op, err)
	}
	return resp, nil
}

// Predicates returns the query edge predicates the reasoner supports.
func (c *Client) Predicates(ctx context.Context) (map[string]any, error) {
	const op = "Client.Predicates"
	if err := c.checkOpen(op); err != nil {
		return nil, err
	}

	url := c.endpoint(ctx, c.cfg.Endpoints.Predicates)
	res, err := c.transport.Get(ctx, url, nil)
	if err != nil {
		return nil, requestError(op, url, err)
	}

	var out map[string]any
	if err := res.Decode(&out); err != nil {
		return nil, NewInternalError(op, err)
	}
	return out, nil
}

// Curies returns the entities the reasoner supports, keyed by biolink
// entity type:
//
//	{"gene": [{"name": "RAF1", "curie": "ENSEMBL:ENSG00000132155"}, ...], ...}
func (c *Client) Curies(ctx context.Context) (map[string][]Curie, error) {
	const op = "Client.Curies"
	if err := c.checkOpen(op); err != nil {
		return nil, err
	}

	url := c.endpoint(ctx, c.cfg.Endpoints.Curies)
	payload := map[string]string{"reasoner_id": c.cfg.ReasonerID}
	res, err := c.transport.Get(ctx, url, payload)
	if err != nil {
		return nil, requestError(op, url, err)
	}

	var out map[string][]Curie
	if err := res.Decode(&out); err != nil {
		return nil, NewInternalError(op, err)
	}
	return out, nil
}

// GetOutcomeProb extracts the outcome probability from a standard query
// answer.
func (c *Client) GetOutcomeProb(r response.Response) (float64, error) {
	p, err := response.OutcomeProb(r)
	if err != nil {
		return 0, NewValidationError("Client.GetOutcomeProb", err)
	}
	return p, nil
}

// GetRankedWildcards extracts the ranked wildcard results from a wildcard
// query answer.
func (c *Client) GetRankedWildcards(r response.Response) (map[string][]response.Ranked, error) {
	ranks, err := response.RankedWildcards(r)
	if err != nil {
		return nil, NewValidationError("Client.GetRankedWildcards", err)
	}
	return ranks, nil
}

// SetCaching installs the response cache configured in the cache section,
// in memory by default. A cache that was already installed is closed.
func (c *Client) SetCaching() error {
	const op = "Client.SetCaching"
	if err := c.checkOpen(op); err != nil {
		return err
	}

	section := c.cfg.Cache
	var store cache.Cache
	switch backend := section.GetBackend(); backend {
	case config.CacheMemory:
		m, err := cache.NewMemory(section.GetTTL())
		if err != nil {
			return NewInternalError(op, err)
		}
		store = m
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(cache.RedisOptions{
			URL:    section.RedisURL,
			Prefix: section.Prefix,
			TTL:    section.GetTTL(),
		})
		if err != nil {
			return NewNetworkError(op, err)
		}
		store = rc
	default:
		return NewConfigurationError(op, fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, backend))
	}

	if prev := c.transport.SetCache(store); prev != nil {
		CloseWithLog(prev, c.logger, "response cache")
	}
	c.logger.Info("future queries will be cached", "backend", section.GetBackend())
	return nil
}

// StopCaching uninstalls and closes the response cache.
func (c *Client) StopCaching() {
	if prev := c.transport.SetCache(nil); prev != nil {
		CloseWithLog(prev, c.logger, "response cache")
	}
}

// ClearCache empties the response cache.
func (c *Client) ClearCache(ctx context.Context) error {
	if c.transport.Cache() == nil {
		c.logger.InfoContext(ctx, "caching is not enabled, nothing to clear")
		return nil
	}
	if err := c.transport.ClearCache(ctx); err != nil {
		return NewNetworkError("Client.ClearCache", err)
	}
	return nil
}

// Health checks the reasoner endpoint, the response cache and, when
// configured, the Redis host and reasoner discovery.
func (c *Client) Health(ctx context.Context) health.Status {
	checks := []health.Status{
		health.EndpointCheck(ctx, c.http, c.endpoint(ctx, c.cfg.Endpoints.Predicates)),
		health.CacheCheck(ctx, c.transport.Cache()),
	}
	if section := c.cfg.Cache; section.GetBackend() == config.CacheRedis {
		host, port, err := cache.RedisAddr(section.RedisURL)
		if err != nil {
			checks = append(checks, health.Unhealthy("invalid redis url", map[string]any{"error": err.Error()}))
		} else {
			checks = append(checks, health.NetworkCheck(ctx, host, port))
		}
	}
	if c.discoverer != nil {
		checks = append(checks, health.DiscoveryCheck(ctx, c.discoverer, c.cfg.ReasonerID))
	}
	return health.Combine(checks...)
}

// Close releases the response cache and the registry connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.follower != nil {
		c.follower.Stop()
	}
	var errs []error
	if prev := c.transport.SetCache(nil); prev != nil {
		errs = append(errs, prev.Close())
	}
	if c.registry != nil {
		errs = append(errs, c.registry.Close())
	}
	return errors.Join(errs...)
}

func (c *Client) checkOpen(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return NewInternalError(op, ErrClientClosed)
	}
	return nil
}

// endpoint joins path to the reasoner base URL, resolving it through the
// registry when one is configured. A watched reasoner resolves from the
// follower's current view; other discoverers are asked per call. When no
// instance is found the configured URL is used.
func (c *Client) endpoint(ctx context.Context, path string) string {
	base := strings.TrimRight(c.cfg.URL, "/")
	switch {
	case c.follower != nil:
		if url, ok := c.follower.URL(); ok {
			base = url
		} else {
			c.logger.WarnContext(ctx, "no live reasoner instance, using configured url", "url", base)
		}
	case c.discoverer != nil:
		url, err := registry.Resolve(ctx, c.discoverer, c.cfg.ReasonerID, c.version.String())
		if err != nil {
			c.logger.WarnContext(ctx, "reasoner discovery failed, using configured url",
				"url", base,
				"error", err)
		} else {
			base = url
		}
	}
	return base + path
}
