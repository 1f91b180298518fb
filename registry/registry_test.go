package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscoverer struct {
	instances []ReasonerInfo
	err       error
	asked     string
}

func (f *fakeDiscoverer) Discover(_ context.Context, reasonerID string) ([]ReasonerInfo, error) {
	f.asked = reasonerID
	return f.instances, f.err
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "/chp/reasoners/", reasonersPrefix("chp"))
	assert.Equal(t, "/chp/reasoners/gene/", reasonerPrefix("chp", "Gene"))
	assert.Equal(t, "/chp/reasoners/gene/abc", instanceKey("chp", "gene", "abc"))
}

func TestWithDefaults(t *testing.T) {
	cfg := withDefaults(Config{Endpoints: []string{"localhost:2379"}})
	assert.Equal(t, "chp", cfg.Namespace)
	assert.Equal(t, 30, cfg.TTL)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)

	cfg = withDefaults(Config{Namespace: "x", TTL: 10, DialTimeout: time.Second})
	assert.Equal(t, "x", cfg.Namespace)
	assert.Equal(t, 10, cfg.TTL)
	assert.Equal(t, time.Second, cfg.DialTimeout)
}

func TestParseEndpoints(t *testing.T) {
	assert.Equal(t, []string{"a:2379", "b:2379"}, parseEndpoints(" a:2379, b:2379 ,"))
	assert.Empty(t, parseEndpoints(""))
}

func TestNewClient_NoEndpoints(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoints cannot be empty")
}

func TestNewClientFromEnv_Unset(t *testing.T) {
	t.Setenv(EnvEndpoints, "")
	c, err := NewClientFromEnv()
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeInstances(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	values := [][]byte{
		[]byte(`{"reasoner_id":"gene","instance_id":"a","url":"http://a"}`),
		[]byte(`not json`),
		[]byte(`{"reasoner_id":"gene","instance_id":"b","url":"http://b","trapi_versions":["1.1"]}`),
	}

	got := decodeInstances(values, logger)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].InstanceID)
	assert.Equal(t, []string{"1.1"}, got[1].TRAPIVersions)
}

func TestResolve(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	d := &fakeDiscoverer{instances: []ReasonerInfo{
		{InstanceID: "old", URL: "http://old", StartedAt: t0},
		{InstanceID: "new", URL: "http://new/", StartedAt: t0.Add(time.Hour), TRAPIVersions: []string{"1.1"}},
		{InstanceID: "nourl", StartedAt: t0.Add(2 * time.Hour)},
	}}

	url, err := Resolve(context.Background(), d, "gene", "")
	require.NoError(t, err)
	assert.Equal(t, "http://new", url)
	assert.Equal(t, "gene", d.asked)

	url, err = Resolve(context.Background(), d, "gene", "1.0")
	require.NoError(t, err)
	assert.Equal(t, "http://old", url, "instances without listed versions accept any")

	d.instances = d.instances[1:2]
	_, err = Resolve(context.Background(), d, "gene", "1.0")
	assert.ErrorIs(t, err, ErrNoInstances)
}

func TestResolve_DiscoverError(t *testing.T) {
	boom := errors.New("etcd down")
	_, err := Resolve(context.Background(), &fakeDiscoverer{err: boom}, "default", "")
	assert.ErrorIs(t, err, boom)
}

func TestTLSConfig(t *testing.T) {
	var disabled *TLSConfig
	cfg, err := disabled.clientConfig()
	assert.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = (&TLSConfig{Enabled: false, CertFile: "x"}).clientConfig()
	assert.NoError(t, err)
	assert.Nil(t, cfg)

	tests := []struct {
		name    string
		cfg     TLSConfig
		wantErr string
	}{
		{name: "no cert", cfg: TLSConfig{Enabled: true, KeyFile: "k", CAFile: "c"}, wantErr: "cert file is required"},
		{name: "no key", cfg: TLSConfig{Enabled: true, CertFile: "c", CAFile: "c"}, wantErr: "key file is required"},
		{name: "no ca", cfg: TLSConfig{Enabled: true, CertFile: "c", KeyFile: "k"}, wantErr: "CA file is required"},
		{
			name:    "missing files",
			cfg:     TLSConfig{Enabled: true, CertFile: "/nonexistent/c", KeyFile: "/nonexistent/k", CAFile: "/nonexistent/ca"},
			wantErr: "failed to load client certificate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.clientConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTLSConfig_BadCA(t *testing.T) {
	dir := t.TempDir()
	ca := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(ca, []byte("not a pem"), 0o600))

	_, err := (&TLSConfig{Enabled: true, CertFile: ca, KeyFile: ca, CAFile: ca}).clientConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load client certificate")
}

// fakeWatcher feeds Watch from a channel the test controls.
type fakeWatcher struct {
	updates chan []ReasonerInfo
	err     error
}

func newFakeWatcher(initial []ReasonerInfo) *fakeWatcher {
	w := &fakeWatcher{updates: make(chan []ReasonerInfo, 4)}
	w.updates <- initial
	return w
}

func (w *fakeWatcher) Watch(_ context.Context, _ string) (<-chan []ReasonerInfo, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.updates, nil
}

func TestFollow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := newFakeWatcher([]ReasonerInfo{
		{ReasonerID: "gene", InstanceID: "a", URL: "http://a:8000/", StartedAt: start},
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f, err := Follow(context.Background(), w, "gene", "1.1", logger)
	require.NoError(t, err)
	defer f.Stop()

	url, ok := f.URL()
	require.True(t, ok, "the first update is applied before Follow returns")
	assert.Equal(t, "http://a:8000", url)

	w.updates <- []ReasonerInfo{
		{ReasonerID: "gene", InstanceID: "a", URL: "http://a:8000", StartedAt: start},
		{ReasonerID: "gene", InstanceID: "b", URL: "http://b:8000", StartedAt: start.Add(time.Minute)},
	}
	assert.Eventually(t, func() bool {
		url, ok := f.URL()
		return ok && url == "http://b:8000"
	}, time.Second, 5*time.Millisecond)

	w.updates <- nil
	assert.Eventually(t, func() bool {
		_, ok := f.URL()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestFollow_Errors(t *testing.T) {
	t.Run("watch fails", func(t *testing.T) {
		w := &fakeWatcher{err: errors.New("etcd down")}
		_, err := Follow(context.Background(), w, "gene", "", nil)
		assert.EqualError(t, err, "etcd down")
	})

	t.Run("closed before first update", func(t *testing.T) {
		w := &fakeWatcher{updates: make(chan []ReasonerInfo)}
		close(w.updates)
		_, err := Follow(context.Background(), w, "gene", "", nil)
		assert.Error(t, err)
	})

	t.Run("canceled", func(t *testing.T) {
		w := &fakeWatcher{updates: make(chan []ReasonerInfo)}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Follow(ctx, w, "gene", "", nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFollower_StopEndsWatch(t *testing.T) {
	w := newFakeWatcher(nil)
	f, err := Follow(context.Background(), w, "gene", "", nil)
	require.NoError(t, err)

	_, ok := f.URL()
	assert.False(t, ok)

	done := make(chan struct{})
	go func() {
		f.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
