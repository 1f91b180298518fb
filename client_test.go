package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/di2ag/chp-sdk/config"
	"github.com/di2ag/chp-sdk/query"
	"github.com/di2ag/chp-sdk/registry"
	"github.com/di2ag/chp-sdk/response"
	"github.com/di2ag/chp-sdk/trapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outcomeAnswer = `{
  "message": {
    "query_graph": {"nodes": {}, "edges": {}},
    "knowledge_graph": {
      "nodes": {},
      "edges": {
        "kg1": {
          "predicate": "biolink:has_phenotype",
          "subject": "MONDO:0007254",
          "object": "EFO:0000714",
          "attributes": [{"attribute_type_id": "biolink:has_confidence_level", "value": 0.62}]
        }
      }
    },
    "results": [{"edge_bindings": {"e1": [{"id": "kg1"}]}}]
  }
}`

// fakeReasoner serves the three CHP endpoints and records the requests.
type fakeReasoner struct {
	mu       sync.Mutex
	hits     map[string]int
	lastBody map[string]map[string]any
}

func newFakeReasoner(t *testing.T) (*fakeReasoner, *httptest.Server) {
	t.Helper()
	f := &fakeReasoner{hits: map[string]int{}, lastBody: map[string]map[string]any{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/query/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		f.record(r)
		io.WriteString(w, outcomeAnswer)
	})
	mux.HandleFunc("/predicates/", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		io.WriteString(w, `{"biolink:Gene": {"biolink:Disease": ["biolink:gene_associated_with_condition"]}}`)
	})
	mux.HandleFunc("/curies/", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		io.WriteString(w, `{"gene": [{"name": "RAF1", "curie": "ENSEMBL:ENSG00000132155"}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeReasoner) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.URL.Path]++
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
		f.lastBody[r.URL.Path] = body
	}
}

func (f *fakeReasoner) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeReasoner) body(path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody[path]
}

func testConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.URL = url
	return cfg
}

func newTestClient(t *testing.T, cfg *config.Config, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func standardQuery(t *testing.T) *trapi.Query {
	t.Helper()
	q, err := query.BuildStandard(query.Params{
		Genes:        []string{"ENSEMBL:ENSG00000132155"},
		Disease:      "MONDO:0007254",
		Outcome:      "EFO:0000714",
		OutcomeOp:    ">",
		OutcomeValue: 970,
	})
	require.NoError(t, err)
	return q
}

func TestNewClient_Defaults(t *testing.T) {
	c := newTestClient(t, nil)
	assert.Equal(t, config.DefaultReasonerID, c.ReasonerID())
	assert.Equal(t, trapi.V1_1, c.SchemaVersion())
}

func TestNewClient_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "missing url", mutate: func(c *config.Config) { c.URL = "" }},
		{name: "bad endpoint", mutate: func(c *config.Config) { c.Endpoints.Query = "query" }},
		{name: "bad version", mutate: func(c *config.Config) { c.TRAPIVersion = "9.9" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			_, err := NewClient(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, &SDKError{Kind: KindConfiguration})
		})
	}
}

func TestNewClient_TRAPIVersion(t *testing.T) {
	cfg := config.Default()
	cfg.TRAPIVersion = "1"
	c := newTestClient(t, cfg)
	assert.Equal(t, trapi.V1_0, c.SchemaVersion())
}

func TestGetClient(t *testing.T) {
	cfg := config.Default()
	cfg.Reasoners = map[string]config.ReasonerConfig{
		"gene": {URL: "http://gene.example.org", MaxResults: 25},
	}

	c, err := GetClient(cfg, "GENE")
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "gene", c.ReasonerID())

	_, err = GetClient(cfg, "drug")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownReasoner)
	assert.ErrorIs(t, err, &SDKError{Kind: KindNotFound})
	assert.Contains(t, err.Error(), "[default gene]")

	_, err = GetClient(nil, "gene")
	assert.ErrorIs(t, err, ErrUnknownReasoner)
}

func TestClient_Query(t *testing.T) {
	f, srv := newFakeReasoner(t)
	c := newTestClient(t, testConfig(srv.URL))
	q := standardQuery(t)

	resp, err := c.Query(context.Background(), q)
	require.NoError(t, err)

	sent := f.body("/query/")
	require.NotNil(t, sent)
	assert.InDelta(t, config.DefaultMaxResults, sent["max_results"], 0)
	msg := sent["message"].(map[string]any)
	assert.Equal(t, config.DefaultReasonerID, msg["reasoner_id"])
	assert.Contains(t, msg, "query_graph")

	assert.Empty(t, q.Message.ReasonerID, "caller's query is not modified")
	assert.Zero(t, q.MaxResults)

	prob, err := c.GetOutcomeProb(resp)
	require.NoError(t, err)
	assert.InDelta(t, 0.62, prob, 1e-9)
}

func TestClient_QueryMaxResults(t *testing.T) {
	f, srv := newFakeReasoner(t)
	c := newTestClient(t, testConfig(srv.URL))
	ctx := context.Background()

	q := standardQuery(t)
	q.MaxResults = 4
	_, err := c.Query(ctx, q)
	require.NoError(t, err)
	assert.InDelta(t, 4, f.body("/query/")["max_results"], 0)

	_, err = c.Query(ctx, q, WithMaxResults(2))
	require.NoError(t, err)
	assert.InDelta(t, 2, f.body("/query/")["max_results"], 0)
}

func TestClient_QueryErrors(t *testing.T) {
	_, srv := newFakeReasoner(t)
	ctx := context.Background()

	t.Run("nil query", func(t *testing.T) {
		c := newTestClient(t, testConfig(srv.URL))
		_, err := c.Query(ctx, nil)
		assert.ErrorIs(t, err, ErrNilQuery)
		_, err = c.Query(ctx, &trapi.Query{})
		assert.ErrorIs(t, err, &SDKError{Kind: KindValidation})
	})

	t.Run("missing endpoint", func(t *testing.T) {
		cfg := testConfig(srv.URL)
		cfg.Endpoints.Query = "/nowhere/"
		c := newTestClient(t, cfg)
		_, err := c.Query(ctx, standardQuery(t))
		assert.ErrorIs(t, err, &SDKError{Kind: KindNotFound})
	})

	t.Run("unreachable", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		url := down.URL
		down.Close()

		c := newTestClient(t, testConfig(url))
		_, err := c.Query(ctx, standardQuery(t))
		assert.ErrorIs(t, err, &SDKError{Kind: KindNetwork})
	})
}

func TestClient_PredicatesAndCuries(t *testing.T) {
	f, srv := newFakeReasoner(t)
	cfg := testConfig(srv.URL)
	cfg.ReasonerID = "gene"
	c := newTestClient(t, cfg)
	ctx := context.Background()

	preds, err := c.Predicates(ctx)
	require.NoError(t, err)
	assert.Contains(t, preds, "biolink:Gene")

	curies, err := c.Curies(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]Curie{
		"gene": {{Name: "RAF1", Curie: "ENSEMBL:ENSG00000132155"}},
	}, curies)
	assert.Equal(t, map[string]any{"reasoner_id": "gene"}, f.body("/curies/"))
}

func TestClient_GetRankedWildcards(t *testing.T) {
	c := newTestClient(t, nil)

	r, err := response.Decode([]byte(outcomeAnswer))
	require.NoError(t, err)
	_, err = c.GetRankedWildcards(r)
	assert.ErrorIs(t, err, response.ErrNoWildcardResults)
	assert.ErrorIs(t, err, &SDKError{Kind: KindValidation})

	_, err = c.GetOutcomeProb(response.Response{})
	assert.ErrorIs(t, err, response.ErrNoResults)
}

func TestClient_MemoryCaching(t *testing.T) {
	f, srv := newFakeReasoner(t)
	c := newTestClient(t, testConfig(srv.URL))
	ctx := context.Background()
	q := standardQuery(t)

	require.NoError(t, c.ClearCache(ctx), "clearing without a cache is a no-op")
	require.NoError(t, c.SetCaching())

	for range 3 {
		_, err := c.Query(ctx, q)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.count("/query/"))

	require.NoError(t, c.ClearCache(ctx))
	_, err := c.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, f.count("/query/"))

	c.StopCaching()
	_, err = c.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 3, f.count("/query/"))
}

func TestClient_RedisCaching(t *testing.T) {
	f, srv := newFakeReasoner(t)
	mr := miniredis.RunT(t)

	cfg := testConfig(srv.URL)
	cfg.Cache = &config.CacheConfig{
		Backend:  config.CacheRedis,
		RedisURL: "redis://" + mr.Addr(),
		Prefix:   "test:",
		TTL:      "1h",
	}
	c := newTestClient(t, cfg)
	require.NoError(t, c.SetCaching())

	ctx := context.Background()
	_, err := c.Curies(ctx)
	require.NoError(t, err)
	_, err = c.Curies(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("/curies/"))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "test:"))
	assert.Equal(t, time.Hour, mr.TTL(keys[0]))
}

func TestClient_RedisCachingUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Cache = &config.CacheConfig{Backend: config.CacheRedis, RedisURL: "redis://127.0.0.1:1"}
	c := newTestClient(t, cfg)

	err := c.SetCaching()
	assert.ErrorIs(t, err, &SDKError{Kind: KindNetwork})
}

type stubDiscoverer struct {
	instances []registry.ReasonerInfo
	err       error
}

func (s stubDiscoverer) Discover(context.Context, string) ([]registry.ReasonerInfo, error) {
	return s.instances, s.err
}

func TestClient_Discovery(t *testing.T) {
	f, srv := newFakeReasoner(t)
	ctx := context.Background()

	t.Run("resolved", func(t *testing.T) {
		d := stubDiscoverer{instances: []registry.ReasonerInfo{
			{ReasonerID: "default", InstanceID: "a", URL: srv.URL + "/", StartedAt: time.Now()},
		}}
		c := newTestClient(t, testConfig("http://127.0.0.1:1"), WithDiscoverer(d))

		_, err := c.Predicates(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, f.count("/predicates/"))
	})

	t.Run("fallback to configured url", func(t *testing.T) {
		d := stubDiscoverer{err: errors.New("etcd unavailable")}
		c := newTestClient(t, testConfig(srv.URL), WithDiscoverer(d))

		_, err := c.Predicates(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, f.count("/predicates/"))
	})
}

// watchingDiscoverer streams instance updates and counts direct lookups.
type watchingDiscoverer struct {
	updates  chan []registry.ReasonerInfo
	mu       sync.Mutex
	lookups  int
	watching bool
}

func newWatchingDiscoverer(initial ...registry.ReasonerInfo) *watchingDiscoverer {
	d := &watchingDiscoverer{updates: make(chan []registry.ReasonerInfo, 4)}
	d.updates <- initial
	return d
}

func (d *watchingDiscoverer) Discover(context.Context, string) ([]registry.ReasonerInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	return nil, nil
}

func (d *watchingDiscoverer) Watch(ctx context.Context, _ string) (<-chan []registry.ReasonerInfo, error) {
	d.mu.Lock()
	d.watching = true
	d.mu.Unlock()
	out := make(chan []registry.ReasonerInfo)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-d.updates:
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func TestClient_WatchedDiscovery(t *testing.T) {
	first, firstSrv := newFakeReasoner(t)
	second, secondSrv := newFakeReasoner(t)
	ctx := context.Background()
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	d := newWatchingDiscoverer(registry.ReasonerInfo{
		ReasonerID: "default", InstanceID: "a", URL: firstSrv.URL, StartedAt: started,
	})
	c := newTestClient(t, testConfig("http://127.0.0.1:1"), WithDiscoverer(d))

	_, err := c.Predicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.count("/predicates/"))

	d.updates <- []registry.ReasonerInfo{
		{ReasonerID: "default", InstanceID: "a", URL: firstSrv.URL, StartedAt: started},
		{ReasonerID: "default", InstanceID: "b", URL: secondSrv.URL, StartedAt: started.Add(time.Minute)},
	}
	assert.Eventually(t, func() bool {
		_, err := c.Predicates(ctx)
		return err == nil && second.count("/predicates/") > 0
	}, time.Second, 10*time.Millisecond)

	d.mu.Lock()
	assert.True(t, d.watching)
	assert.Zero(t, d.lookups, "a watched reasoner is not looked up per request")
	d.mu.Unlock()

	require.NoError(t, c.Close())
}

func TestClient_WatchedDiscoveryNoInstances(t *testing.T) {
	f, srv := newFakeReasoner(t)
	d := newWatchingDiscoverer()
	c := newTestClient(t, testConfig(srv.URL), WithDiscoverer(d))

	_, err := c.Predicates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.count("/predicates/"), "falls back to the configured url")
}

func TestClient_RegistryFromEnvUnset(t *testing.T) {
	t.Setenv(registry.EnvEndpoints, "")
	c := newTestClient(t, testConfig("http://127.0.0.1:1"))
	assert.Nil(t, c.registry)
	assert.Nil(t, c.discoverer)
	assert.Nil(t, c.follower)
}

func TestClient_HealthRedisHost(t *testing.T) {
	_, srv := newFakeReasoner(t)
	mr := miniredis.RunT(t)

	cfg := testConfig(srv.URL)
	cfg.Cache = &config.CacheConfig{Backend: config.CacheRedis, RedisURL: "redis://" + mr.Addr()}
	c := newTestClient(t, cfg)

	status := c.Health(context.Background())
	assert.True(t, status.IsHealthy(), status.Message)

	mr.Close()
	status = c.Health(context.Background())
	assert.True(t, status.IsUnhealthy(), status.Message)

	cfg = testConfig(srv.URL)
	cfg.Cache = &config.CacheConfig{Backend: config.CacheRedis, RedisURL: "http://not-redis"}
	bad := newTestClient(t, cfg)
	status = bad.Health(context.Background())
	assert.True(t, status.IsUnhealthy(), status.Message)
}

func TestClient_Health(t *testing.T) {
	_, srv := newFakeReasoner(t)
	c := newTestClient(t, testConfig(srv.URL))
	require.NoError(t, c.SetCaching())

	status := c.Health(context.Background())
	assert.True(t, status.IsHealthy(), status.Message)

	down := newTestClient(t, testConfig("http://127.0.0.1:1"), WithDiscoverer(stubDiscoverer{}))
	status = down.Health(context.Background())
	assert.True(t, status.IsUnhealthy(), status.Message)
}

func TestClient_Close(t *testing.T) {
	_, srv := newFakeReasoner(t)
	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)
	require.NoError(t, c.SetCaching())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "close is idempotent")

	_, err = c.Query(context.Background(), standardQuery(t))
	assert.ErrorIs(t, err, ErrClientClosed)
	_, err = c.Predicates(context.Background())
	assert.ErrorIs(t, err, ErrClientClosed)
}
