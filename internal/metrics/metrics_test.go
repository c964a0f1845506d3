package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollector_DefaultNamespace(t *testing.T) {
	c := NewCollector("")
	if c.Registry() == nil {
		t.Fatal("registry should not be nil")
	}

	c.CacheHit("remote_app")
	if got := testutil.ToFloat64(c.cacheHits.WithLabelValues("remote_app")); got != 1 {
		t.Fatalf("cache hits = %v, want 1", got)
	}
}

func TestCollector_Records(t *testing.T) {
	c := NewCollector("test")

	c.EntryFetched("remote_app", nil, 20*time.Millisecond)
	c.EntryFetched("remote_app", errors.New("boom"), 5*time.Millisecond)
	c.LoadSettled("remote_app", "Header", nil, 30*time.Millisecond)
	c.SharedResolved("vdom", "host")
	c.RegionSettled("header", nil, 40*time.Millisecond)
	c.HTTPRequest("/regions/{id}", "GET", 200, 10*time.Millisecond)

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("/regions/{id}", "GET", "200")); got != 1 {
		t.Fatalf("http requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.entryFetches.WithLabelValues("remote_app", "success")); got != 1 {
		t.Fatalf("successful fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.entryFetches.WithLabelValues("remote_app", "error")); got != 1 {
		t.Fatalf("failed fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.loads.WithLabelValues("remote_app", "Header", "success")); got != 1 {
		t.Fatalf("loads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.sharedResolved.WithLabelValues("vdom", "host")); got != 1 {
		t.Fatalf("shared resolutions = %v, want 1", got)
	}
}

func TestCollector_NilIsNoOp(t *testing.T) {
	var c *Collector

	// Should not panic
	c.EntryFetched("r", nil, time.Millisecond)
	c.LoadSettled("r", "e", nil, time.Millisecond)
	c.CacheHit("r")
	c.SharedResolved("vdom", "host")
	c.RegionSettled("header", nil, time.Millisecond)
	c.HTTPRequest("/", "GET", 200, time.Millisecond)

	if c.Registry() != nil {
		t.Fatal("nil collector should have no registry")
	}
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil collector handler, got %d", rec.Code)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.CacheHit("remote_app")

	server := httptest.NewServer(c.Handler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `test_loader_cache_hits_total{remote="remote_app"} 1`) {
		t.Fatalf("metrics output missing cache hit series:\n%s", body)
	}
}
