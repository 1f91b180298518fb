package transport

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// instruments holds the metric instruments of a Client. They are created
// once in New and reused for every request.
type instruments struct {
	// requests counts requests sent to the reasoner, by method and status
	requests metric.Int64Counter

	// cacheHits counts requests answered from the cache
	cacheHits metric.Int64Counter

	// latency records round-trip time in milliseconds
	latency metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	m := &instruments{}
	var err error

	m.requests, err = meter.Int64Counter(
		"chp.client.requests",
		metric.WithDescription("Requests sent to the reasoner"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}

	m.cacheHits, err = meter.Int64Counter(
		"chp.client.cache_hits",
		metric.WithDescription("Requests answered from the response cache"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache hit counter: %w", err)
	}

	m.latency, err = meter.Float64Histogram(
		"chp.client.duration",
		metric.WithDescription("Reasoner round-trip time in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return m, nil
}
