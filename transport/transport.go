package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/di2ag/chp-sdk/cache"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

const (
	instrumentationName = "github.com/di2ag/chp-sdk/transport"

	// HeaderRequestID carries the per-request identifier.
	HeaderRequestID = "X-Request-ID"
)

// Result is a successful response.
type Result struct {
	Body       []byte
	StatusCode int

	// FromCache is true when the body was served by the response cache.
	FromCache bool
}

// Decode unmarshals the body into v.
func (r *Result) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Client sends JSON requests. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	logger  *slog.Logger
	limiter *rate.Limiter
	tracer  trace.Tracer
	meter   metric.Meter
	metrics *instruments

	breakerSettings *BreakerSettings
	breaker         *gobreaker.CircuitBreaker

	mu    sync.RWMutex
	cache cache.Cache
}

// New creates a Client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: slog.Default(),
		tracer: tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:  metricnoop.NewMeterProvider().Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}

	m, err := newInstruments(c.meter)
	if err != nil {
		return nil, err
	}
	c.metrics = m

	if s := c.breakerSettings; s != nil {
		c.breaker = newBreaker(*s, c.logger)
	}
	return c, nil
}

func newBreaker(s BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Client errors say nothing about the health of the reasoner.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return !se.Temporary()
			}
			return err == nil
		},
	})
}

// Cache returns the installed response cache, or nil.
func (c *Client) Cache() cache.Cache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

// SetCache installs store as the response cache and returns the previous
// one. A nil store disables caching.
func (c *Client) SetCache(store cache.Cache) cache.Cache {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.cache
	c.cache = store
	return prev
}

// ClearCache empties the response cache. It is a no-op without one.
func (c *Client) ClearCache(ctx context.Context) error {
	store := c.Cache()
	if store == nil {
		return nil
	}
	return store.Clear(ctx)
}

// Get sends payload as the JSON body of a GET request.
func (c *Client) Get(ctx context.Context, url string, payload any) (*Result, error) {
	return c.do(ctx, http.MethodGet, url, payload)
}

// Post sends payload as the JSON body of a POST request.
func (c *Client) Post(ctx context.Context, url string, payload any) (*Result, error) {
	return c.do(ctx, http.MethodPost, url, payload)
}

func (c *Client) do(ctx context.Context, method, url string, payload any) (*Result, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "chp.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", url),
		),
	)
	defer span.End()

	methodAttr := attribute.String("method", method)
	store := c.Cache()
	key := cache.Key(method, url, body)

	if store != nil {
		cached, ok, err := store.Get(ctx, key)
		switch {
		case err != nil:
			c.logger.WarnContext(ctx, "cache read failed", "url", url, "error", err)
		case ok:
			c.logger.DebugContext(ctx, "result from cache", "method", method, "url", url)
			c.metrics.cacheHits.Add(ctx, 1, metric.WithAttributes(methodAttr))
			span.SetAttributes(attribute.Bool("chp.cache_hit", true))
			span.SetStatus(codes.Ok, "")
			return &Result{Body: cached, StatusCode: http.StatusOK, FromCache: true}, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			err = fmt.Errorf("rate limit: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	start := time.Now()
	res, err := c.execute(ctx, method, url, body)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	status := 0
	var se *StatusError
	switch {
	case res != nil:
		status = res.StatusCode
	case errors.As(err, &se):
		status = se.StatusCode
	}
	attrs := metric.WithAttributes(methodAttr, attribute.Int("status", status))
	c.metrics.requests.Add(ctx, 1, attrs)
	c.metrics.latency.Record(ctx, elapsed, attrs)

	if err != nil {
		c.logger.DebugContext(ctx, "request failed", "method", method, "url", url, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	span.SetStatus(codes.Ok, "")

	if store != nil {
		if err := store.Set(ctx, key, res.Body); err != nil {
			c.logger.WarnContext(ctx, "cache write failed", "url", url, "error", err)
		}
	}
	return res, nil
}

func (c *Client) execute(ctx context.Context, method, url string, body []byte) (*Result, error) {
	if c.breaker == nil {
		return c.send(ctx, method, url, body)
	}
	out, err := c.breaker.Execute(func() (any, error) {
		return c.send(ctx, method, url, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return out.(*Result), nil
}

func (c *Client) send(ctx context.Context, method, url string, body []byte) (*Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderRequestID, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: data}
	}
	return &Result{Body: data, StatusCode: resp.StatusCode}, nil
}
