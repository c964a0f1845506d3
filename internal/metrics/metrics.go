// Package metrics exposes Prometheus telemetry for remote loading and
// composition: entry fetches, load outcomes, cache hits, shared dependency
// resolution, region settlement and host HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry. A nil *Collector is valid and records
// nothing, so components can take one unconditionally.
type Collector struct {
	registry *prometheus.Registry

	entryFetches   *prometheus.CounterVec
	entryLatency   *prometheus.HistogramVec
	loads          *prometheus.CounterVec
	loadLatency    *prometheus.HistogramVec
	cacheHits      *prometheus.CounterVec
	sharedResolved *prometheus.CounterVec
	regions        *prometheus.CounterVec
	regionLatency  *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// NewCollector creates a collector. An empty namespace defaults to "fedhost".
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "fedhost"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.entryFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entry",
			Name:      "fetches_total",
			Help:      "Remote entry fetches that reached the network, by remote and result",
		},
		[]string{"remote", "result"},
	)

	c.entryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "entry",
			Name:      "fetch_duration_seconds",
			Help:      "Time taken to fetch a remote entry",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"remote"},
	)

	c.loads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "loads_total",
			Help:      "Component loads settled, by remote, export and result",
		},
		[]string{"remote", "export", "result"},
	)

	c.loadLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "load_duration_seconds",
			Help:      "Time from first reference to a settled load state",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"remote"},
	)

	c.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "cache_hits_total",
			Help:      "Loads served from an existing load state",
		},
		[]string{"remote"},
	)

	c.sharedResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shared",
			Name:      "resolutions_total",
			Help:      "Shared dependency negotiations, by dependency and outcome",
		},
		[]string{"dependency", "outcome"},
	)

	c.regions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compose",
			Name:      "regions_settled_total",
			Help:      "Composition regions settled, by result",
		},
		[]string{"result"},
	)

	c.regionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compose",
			Name:      "region_duration_seconds",
			Help:      "Time a region spent showing its fallback",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"region"},
	)

	c.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Host HTTP requests, by route template, method and status",
		},
		[]string{"route", "method", "status"},
	)

	c.httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Host HTTP request latency, including streamed pages",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	c.registry.MustRegister(
		c.entryFetches,
		c.entryLatency,
		c.loads,
		c.loadLatency,
		c.cacheHits,
		c.sharedResolved,
		c.regions,
		c.regionLatency,
		c.httpRequests,
		c.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// EntryFetched records one entry fetch that reached an entry source.
func (c *Collector) EntryFetched(remote string, err error, d time.Duration) {
	if c == nil {
		return
	}
	c.entryFetches.WithLabelValues(remote, result(err)).Inc()
	c.entryLatency.WithLabelValues(remote).Observe(d.Seconds())
}

// LoadSettled records a load state reaching Resolved or Failed.
func (c *Collector) LoadSettled(remote, export string, err error, d time.Duration) {
	if c == nil {
		return
	}
	c.loads.WithLabelValues(remote, export, result(err)).Inc()
	c.loadLatency.WithLabelValues(remote).Observe(d.Seconds())
}

func (c *Collector) CacheHit(remote string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(remote).Inc()
}

// SharedResolved records one negotiation outcome: "host", "mismatch",
// "incompatible" or "skipped".
func (c *Collector) SharedResolved(dependency, outcome string) {
	if c == nil {
		return
	}
	c.sharedResolved.WithLabelValues(dependency, outcome).Inc()
}

func (c *Collector) RegionSettled(region string, err error, d time.Duration) {
	if c == nil {
		return
	}
	c.regions.WithLabelValues(result(err)).Inc()
	c.regionLatency.WithLabelValues(region).Observe(d.Seconds())
}

func (c *Collector) HTTPRequest(route, method string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}
