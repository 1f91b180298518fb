package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EnvEndpoints holds a comma separated list of etcd endpoints for
// NewClientFromEnv.
const EnvEndpoints = "CHP_REGISTRY_ENDPOINTS"

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("registry client is closed")

// Client implements Registry on an etcd cluster.
//
//	reg, err := registry.NewClient(registry.Config{Endpoints: []string{"localhost:2379"}})
//	if err != nil {
//	    return err
//	}
//	defer reg.Close()
//	instances, err := reg.Discover(ctx, "default")
//
// All methods are safe for concurrent use.
type Client struct {
	etcd      *clientv3.Client
	namespace string
	ttl       time.Duration
	timeout   time.Duration // bounds the first listing of a Watch
	logger    *slog.Logger

	mu     sync.RWMutex
	owned  map[string]*lease // by instance ID
	wg     sync.WaitGroup
	closed bool
	done   chan struct{}
}

// lease is a registration this client keeps alive.
type lease struct {
	id   clientv3.LeaseID
	stop context.CancelFunc
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for lease and watch events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient connects to etcd and verifies connectivity.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("registry endpoints cannot be empty")
	}
	cfg = withDefaults(cfg)

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	}
	tlsConfig, err := cfg.TLS.clientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	clientCfg.TLS = tlsConfig

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if _, err := cli.Get(ctx, reasonersPrefix(cfg.Namespace), clientv3.WithCountOnly()); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		_ = cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	c := &Client{
		etcd:      cli,
		namespace: cfg.Namespace,
		ttl:       time.Duration(cfg.TTL) * time.Second,
		timeout:   cfg.DialTimeout,
		logger:    slog.Default(),
		owned:     make(map[string]*lease),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Namespace == "" {
		cfg.Namespace = "chp"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return cfg
}

// NewClientFromEnv connects using CHP_REGISTRY_ENDPOINTS. It returns
// (nil, nil) when the variable is unset, so callers fall back to static
// configuration.
func NewClientFromEnv(opts ...Option) (*Client, error) {
	endpoints := parseEndpoints(os.Getenv(EnvEndpoints))
	if len(endpoints) == 0 {
		return nil, nil
	}
	return NewClient(Config{Endpoints: endpoints}, opts...)
}

func parseEndpoints(s string) []string {
	var out []string
	for _, ep := range strings.Split(s, ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			out = append(out, ep)
		}
	}
	return out
}

// Register writes the instance under a fresh lease and renews it every
// TTL/3 until Deregister or Close. Re-registering an instance replaces its
// lease.
func (c *Client) Register(ctx context.Context, info ReasonerInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if info.ReasonerID == "" || info.InstanceID == "" {
		return errors.New("reasoner id and instance id are required")
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal reasoner info: %w", err)
	}
	if prev, ok := c.owned[info.InstanceID]; ok {
		prev.stop()
		delete(c.owned, info.InstanceID)
	}

	granted, err := c.etcd.Grant(ctx, int64(c.ttl/time.Second))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}
	key := instanceKey(c.namespace, info.ReasonerID, info.InstanceID)
	if _, err := c.etcd.Put(ctx, key, string(data), clientv3.WithLease(granted.ID)); err != nil {
		return fmt.Errorf("failed to register reasoner: %w", err)
	}

	renewCtx, stop := context.WithCancel(context.Background())
	l := &lease{id: granted.ID, stop: stop}
	c.owned[info.InstanceID] = l

	c.wg.Add(1)
	go c.keepalive(renewCtx, l, info.InstanceID)

	c.logger.Info("registered reasoner instance",
		"reasoner_id", info.ReasonerID, "instance_id", info.InstanceID, "url", info.URL)
	return nil
}

// Deregister revokes the instance lease, deleting its entry.
func (c *Client) Deregister(ctx context.Context, info ReasonerInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	l, ok := c.owned[info.InstanceID]
	if !ok {
		return nil
	}
	l.stop()
	delete(c.owned, info.InstanceID)
	if _, err := c.etcd.Revoke(ctx, l.id); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	return nil
}

// Discover returns the live instances of one reasoner.
func (c *Client) Discover(ctx context.Context, reasonerID string) ([]ReasonerInfo, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.list(ctx, reasonerPrefix(c.namespace, reasonerID))
}

// DiscoverAll returns the instances of every reasoner.
func (c *Client) DiscoverAll(ctx context.Context) ([]ReasonerInfo, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.list(ctx, reasonersPrefix(c.namespace))
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Client) list(ctx context.Context, prefix string) ([]ReasonerInfo, error) {
	resp, err := c.etcd.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover reasoners: %w", err)
	}
	values := make([][]byte, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		values = append(values, kv.Value)
	}
	return decodeInstances(values, c.logger), nil
}

// decodeInstances parses registry values, skipping invalid entries.
func decodeInstances(values [][]byte, logger *slog.Logger) []ReasonerInfo {
	instances := make([]ReasonerInfo, 0, len(values))
	for _, v := range values {
		var info ReasonerInfo
		if err := json.Unmarshal(v, &info); err != nil {
			logger.Warn("skipping invalid registry entry", "error", err)
			continue
		}
		instances = append(instances, info)
	}
	return instances
}

// Watch emits the current instances of a reasoner and again after every
// change under its prefix.
func (c *Client) Watch(ctx context.Context, reasonerID string) (<-chan []ReasonerInfo, error) {
	listCtx, cancel := context.WithTimeout(ctx, c.timeout)
	instances, err := c.Discover(listCtx, reasonerID)
	cancel()
	if err != nil {
		return nil, err
	}

	ch := make(chan []ReasonerInfo, 1)
	ch <- instances

	prefix := reasonerPrefix(c.namespace, reasonerID)
	events := c.etcd.Watch(ctx, prefix, clientv3.WithPrefix())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(ch)
		for {
			var resp clientv3.WatchResponse
			var ok bool
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case resp, ok = <-events:
			}
			if !ok {
				return
			}
			if err := resp.Err(); err != nil {
				c.logger.Warn("registry watch failed", "reasoner_id", reasonerID, "error", err)
				return
			}
			// A failed re-list is retried on the next change.
			current, err := c.list(ctx, prefix)
			if err != nil {
				continue
			}
			select {
			case ch <- current:
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}()
	return ch, nil
}

// Close stops keepalives and watches and closes the etcd connection.
// Registered instances expire with their leases.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, l := range c.owned {
		l.stop()
	}
	clear(c.owned)
	close(c.done)
	c.mu.Unlock()

	c.wg.Wait()
	return c.etcd.Close()
}

// keepalive renews l every TTL/3 until it is stopped or renewal fails. A
// lost lease is forgotten only if it is still the instance's current one.
func (c *Client) keepalive(ctx context.Context, l *lease, instanceID string) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
		}
		if _, err := c.etcd.KeepAliveOnce(ctx, l.id); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("reasoner lease lost", "instance_id", instanceID, "error", err)
			c.mu.Lock()
			if c.owned[instanceID] == l {
				delete(c.owned, instanceID)
			}
			c.mu.Unlock()
			l.stop()
			return
		}
	}
}

func reasonersPrefix(namespace string) string {
	return fmt.Sprintf("/%s/reasoners/", namespace)
}

func reasonerPrefix(namespace, reasonerID string) string {
	return fmt.Sprintf("/%s/reasoners/%s/", namespace, strings.ToLower(reasonerID))
}

// instanceKey is /namespace/reasoners/reasoner-id/instance-id.
func instanceKey(namespace, reasonerID, instanceID string) string {
	return reasonerPrefix(namespace, reasonerID) + instanceID
}
