package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/di2ag/chp-sdk/cache"
	"github.com/di2ag/chp-sdk/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointCheck(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{name: "ok", status: http.StatusOK, want: StatusHealthy},
		{name: "client error", status: http.StatusMethodNotAllowed, want: StatusDegraded},
		{name: "server error", status: http.StatusServiceUnavailable, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			status := EndpointCheck(context.Background(), srv.Client(), srv.URL+"/predicates/")
			assert.Equal(t, tt.want, status.Status, status.Message)
			assert.Equal(t, tt.status, status.Details["status_code"])
		})
	}
}

func TestEndpointCheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	status := EndpointCheck(context.Background(), nil, url)
	assert.True(t, status.IsUnhealthy())
	assert.Contains(t, status.Details, "error")

	assert.True(t, EndpointCheck(context.Background(), nil, "").IsUnhealthy())
}

func TestNetworkCheck(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	tests := []struct {
		name        string
		host        string
		port        int
		wantHealthy bool
	}{
		{name: "listening", host: host, port: port, wantHealthy: true},
		{name: "empty host", host: "", port: port},
		{name: "port zero", host: host, port: 0},
		{name: "port too large", host: host, port: 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			status := NetworkCheck(ctx, tt.host, tt.port)
			assert.Equal(t, tt.wantHealthy, status.IsHealthy(), status.Message)
			assert.NotEmpty(t, status.Message)
		})
	}
}

func TestCacheCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		assert.True(t, CacheCheck(ctx, nil).IsHealthy())
	})

	t.Run("memory", func(t *testing.T) {
		store, err := cache.NewMemory(0)
		require.NoError(t, err)
		assert.True(t, CacheCheck(ctx, store).IsHealthy())

		require.NoError(t, store.Close())
		status := CacheCheck(ctx, store)
		assert.True(t, status.IsUnhealthy())
		assert.Equal(t, "cache is closed", status.Message)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := cache.NewRedisCache(cache.RedisOptions{URL: "redis://" + mr.Addr()})
		require.NoError(t, err)
		defer store.Close()

		assert.True(t, CacheCheck(ctx, store).IsHealthy())

		mr.Close()
		status := CacheCheck(ctx, store)
		assert.True(t, status.IsUnhealthy())
		assert.Equal(t, "cache unreachable", status.Message)
	})
}

type stubDiscoverer struct {
	instances []registry.ReasonerInfo
	err       error
}

func (s stubDiscoverer) Discover(context.Context, string) ([]registry.ReasonerInfo, error) {
	return s.instances, s.err
}

func TestDiscoveryCheck(t *testing.T) {
	tests := []struct {
		name string
		d    registry.Discoverer
		want string
	}{
		{name: "disabled", d: nil, want: StatusHealthy},
		{
			name: "registered",
			d:    stubDiscoverer{instances: []registry.ReasonerInfo{{ReasonerID: "gene", URL: "http://gene"}}},
			want: StatusHealthy,
		},
		{name: "none registered", d: stubDiscoverer{}, want: StatusDegraded},
		{name: "registry down", d: stubDiscoverer{err: errors.New("context deadline exceeded")}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := DiscoveryCheck(context.Background(), tt.d, "gene")
			assert.Equal(t, tt.want, status.Status, status.Message)
		})
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name   string
		checks []Status
		want   string
		msg    string
	}{
		{name: "no checks", want: StatusHealthy, msg: "no checks provided"},
		{
			name:   "all healthy",
			checks: []Status{Healthy("a"), Healthy("b")},
			want:   StatusHealthy,
			msg:    "all 2 check(s) passed",
		},
		{
			name:   "one degraded",
			checks: []Status{Healthy("a"), Degraded("b", nil)},
			want:   StatusDegraded,
			msg:    "1 check(s) degraded",
		},
		{
			name:   "unhealthy wins",
			checks: []Status{Degraded("a", nil), Unhealthy("b", nil), Unhealthy("", nil)},
			want:   StatusUnhealthy,
			msg:    "2 check(s) failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(tt.checks...)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.msg, got.Message)
		})
	}

	failed := Combine(Unhealthy("", nil)).Details["failed_checks"]
	assert.Equal(t, []string{"unnamed check"}, failed)
}
