// Package config provides loading and validation of chp.yaml client
// configuration files.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults of the public CHP service.
const (
	DefaultURL          = "http://chp.thayer.dartmouth.edu"
	DefaultReasonerID   = "default"
	DefaultMaxResults   = 10
	DefaultTRAPIVersion = "1.1"
)

// Environment overrides applied by Load.
const (
	EnvURL        = "CHP_URL"
	EnvReasonerID = "CHP_REASONER_ID"
)

// ErrUnknownReasoner is returned by ForReasoner for an id with no settings.
var ErrUnknownReasoner = errors.New("no reasoner with that id")

var validate = validator.New()

// Config represents a chp.yaml configuration file.
type Config struct {
	// URL is the base URL of the reasoner service.
	URL string `yaml:"url" validate:"required,url"`

	// ReasonerID routes queries to a reasoner handler.
	ReasonerID string `yaml:"reasoner_id" validate:"required"`

	Endpoints Endpoints `yaml:"endpoints"`

	// MaxResults bounds wildcard results. Default: 10
	MaxResults int `yaml:"max_results" validate:"gte=0"`

	// TRAPIVersion is the schema version queries are built with.
	// Default: "1.1"
	TRAPIVersion string `yaml:"trapi_version" validate:"omitempty,oneof=1 1.0 2 1.1"`

	// LogLevel is one of debug, info, warn or error. Default: info
	LogLevel string `yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`

	HTTP     *HTTPConfig     `yaml:"http,omitempty"`
	Breaker  *BreakerConfig  `yaml:"breaker,omitempty"`
	Cache    *CacheConfig    `yaml:"cache,omitempty"`
	Registry *RegistryConfig `yaml:"registry,omitempty"`

	// Reasoners holds per-reasoner overrides keyed by lower case id.
	Reasoners map[string]ReasonerConfig `yaml:"reasoners,omitempty" validate:"omitempty,dive"`
}

// Endpoints are the service paths appended to URL.
type Endpoints struct {
	Query      string `yaml:"query" validate:"required,startswith=/"`
	Predicates string `yaml:"predicates" validate:"required,startswith=/"`
	Curies     string `yaml:"curies" validate:"required,startswith=/"`
}

// DefaultEndpoints returns the endpoints of the public service.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Query:      "/query/",
		Predicates: "/predicates/",
		Curies:     "/curies/",
	}
}

// ReasonerConfig overrides the base settings for one reasoner.
type ReasonerConfig struct {
	URL        string     `yaml:"url,omitempty" validate:"omitempty,url"`
	Endpoints  *Endpoints `yaml:"endpoints,omitempty"`
	MaxResults int        `yaml:"max_results,omitempty" validate:"gte=0"`
}

// Default returns the configuration of the public service.
func Default() *Config {
	return &Config{
		URL:          DefaultURL,
		ReasonerID:   DefaultReasonerID,
		Endpoints:    DefaultEndpoints(),
		MaxResults:   DefaultMaxResults,
		TRAPIVersion: DefaultTRAPIVersion,
	}
}

// Load reads a configuration file over the defaults, applies environment
// overrides and validates the result. If path is a directory, chp.yaml or
// chp.yml inside it is used.
func Load(path string) (*Config, error) {
	configPath, err := resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML over the defaults, applies environment overrides and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolve(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}
	for _, name := range []string{"chp.yaml", "chp.yml"} {
		p := filepath.Join(path, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no chp.yaml or chp.yml found in %s", path)
}

// ApplyEnv overrides the URL and reasoner id from CHP_URL and
// CHP_REASONER_ID when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvURL); v != "" {
		c.URL = v
	}
	if v := os.Getenv(EnvReasonerID); v != "" {
		c.ReasonerID = strings.ToLower(v)
	}
}

// Validate checks the struct tags of the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ReasonerIDs returns the ids ForReasoner accepts, sorted.
func (c *Config) ReasonerIDs() []string {
	ids := slices.Collect(maps.Keys(c.Reasoners))
	if !slices.Contains(ids, DefaultReasonerID) {
		ids = append(ids, DefaultReasonerID)
	}
	slices.Sort(ids)
	return ids
}

// ForReasoner returns a copy of the configuration bound to reasoner id,
// with that reasoner's overrides applied. An empty id selects the
// configured ReasonerID. Ids are case insensitive.
func (c *Config) ForReasoner(id string) (*Config, error) {
	if id == "" {
		id = c.ReasonerID
	}
	id = strings.ToLower(id)

	out := *c
	out.ReasonerID = id

	r, ok := c.Reasoners[id]
	if !ok {
		if id != DefaultReasonerID && id != strings.ToLower(c.ReasonerID) {
			return nil, fmt.Errorf("%w %q, currently available reasoners are %v", ErrUnknownReasoner, id, c.ReasonerIDs())
		}
		return &out, nil
	}
	if r.URL != "" {
		out.URL = r.URL
	}
	if r.Endpoints != nil {
		out.Endpoints = *r.Endpoints
	}
	if r.MaxResults > 0 {
		out.MaxResults = r.MaxResults
	}
	return &out, nil
}

// HTTPConfig tunes the transport.
type HTTPConfig struct {
	// Timeout bounds each request.
	// Format: Go duration string (e.g., "30s", "1m")
	// Default: 60s
	Timeout string `yaml:"timeout,omitempty"`

	// RateLimit is the sustained requests per second. Zero disables
	// throttling.
	RateLimit float64 `yaml:"rate_limit,omitempty" validate:"gte=0"`

	// Burst is the limiter bucket size. Default: 1
	Burst int `yaml:"burst,omitempty" validate:"gte=0"`
}

// GetTimeout parses the timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (h *HTTPConfig) GetTimeout() time.Duration {
	return parseDuration(h, func(h *HTTPConfig) string { return h.Timeout }, 60*time.Second)
}

// GetRateLimit returns the configured rate or zero.
func (h *HTTPConfig) GetRateLimit() float64 {
	if h == nil {
		return 0
	}
	return h.RateLimit
}

// GetBurst returns the configured burst or the default value.
func (h *HTTPConfig) GetBurst() int {
	if h == nil || h.Burst <= 0 {
		return 1
	}
	return h.Burst
}

// BreakerConfig tunes the circuit breaker around the reasoner service.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open. Default: 1
	MaxRequests uint32 `yaml:"max_requests,omitempty"`

	// Interval clears the failure counts while closed. Default: 60s
	Interval string `yaml:"interval,omitempty"`

	// Timeout is how long the breaker stays open. Default: 30s
	Timeout string `yaml:"timeout,omitempty"`

	// FailureThreshold is the failure ratio, in percent, that opens the
	// breaker once MinRequests have been seen. Default: 60
	FailureThreshold uint32 `yaml:"failure_threshold,omitempty" validate:"lte=100"`

	// MinRequests before the failure ratio is considered. Default: 5
	MinRequests uint32 `yaml:"min_requests,omitempty"`
}

// GetMaxRequests returns the configured value or the default.
func (b *BreakerConfig) GetMaxRequests() uint32 {
	if b == nil || b.MaxRequests == 0 {
		return 1
	}
	return b.MaxRequests
}

// GetInterval parses the interval string and returns a duration.
func (b *BreakerConfig) GetInterval() time.Duration {
	return parseDuration(b, func(b *BreakerConfig) string { return b.Interval }, 60*time.Second)
}

// GetTimeout parses the open-state timeout and returns a duration.
func (b *BreakerConfig) GetTimeout() time.Duration {
	return parseDuration(b, func(b *BreakerConfig) string { return b.Timeout }, 30*time.Second)
}

// GetFailureThreshold returns the failure ratio in [0, 1].
func (b *BreakerConfig) GetFailureThreshold() float64 {
	if b == nil || b.FailureThreshold == 0 {
		return 0.6
	}
	return float64(b.FailureThreshold) / 100
}

// GetMinRequests returns the configured value or the default.
func (b *BreakerConfig) GetMinRequests() uint32 {
	if b == nil || b.MinRequests == 0 {
		return 5
	}
	return b.MinRequests
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig selects and tunes the response cache.
type CacheConfig struct {
	// Backend is memory or redis. Default: memory
	Backend string `yaml:"backend,omitempty" validate:"omitempty,oneof=memory redis"`

	// TTL expires entries. Empty keeps them until cleared.
	TTL string `yaml:"ttl,omitempty"`

	// RedisURL is required for the redis backend.
	RedisURL string `yaml:"redis_url,omitempty" validate:"required_if=Backend redis"`

	// Prefix namespaces keys in a shared Redis.
	Prefix string `yaml:"prefix,omitempty"`
}

// GetBackend returns the configured backend or the default.
func (c *CacheConfig) GetBackend() string {
	if c == nil || c.Backend == "" {
		return CacheMemory
	}
	return c.Backend
}

// GetTTL parses the ttl string. Zero means no expiry.
func (c *CacheConfig) GetTTL() time.Duration {
	return parseDuration(c, func(c *CacheConfig) string { return c.TTL }, 0)
}

// RegistryConfig points at the etcd cluster used to discover reasoners.
type RegistryConfig struct {
	Endpoints []string `yaml:"endpoints" validate:"required,min=1,dive,required"`

	// Namespace is the key prefix of reasoner registrations.
	// Default: "chp"
	Namespace string `yaml:"namespace,omitempty"`

	// DialTimeout bounds the initial connection. Default: 5s
	DialTimeout string `yaml:"dial_timeout,omitempty"`
}

// GetNamespace returns the configured namespace or the default.
func (r *RegistryConfig) GetNamespace() string {
	if r == nil || r.Namespace == "" {
		return "chp"
	}
	return r.Namespace
}

// GetDialTimeout parses the dial timeout string and returns a duration.
func (r *RegistryConfig) GetDialTimeout() time.Duration {
	return parseDuration(r, func(r *RegistryConfig) string { return r.DialTimeout }, 5*time.Second)
}

// parseDuration reads a duration field of a possibly nil section, falling
// back to def when the section or field is unset or invalid.
func parseDuration[T any](section *T, field func(*T) string, def time.Duration) time.Duration {
	if section == nil {
		return def
	}
	s := field(section)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
