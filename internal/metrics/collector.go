// Package metrics implements Prometheus instrumentation for the
// transaction wrapper, router, and schema cache: operation counts and
// durations, commit/rollback counts, mount-point injection counts, and
// cache hit/miss counts. Grounded on the teacher's
// internal/metrics/collector.go, narrowed from its object-storage
// metric set (cache tiers, object sizes, connection pools) to this
// system's own concerns.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collector, mirroring the teacher's Config shape.
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// Collector holds the Prometheus metrics this system emits.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	txCommitCounter   prometheus.Counter
	txRollbackCounter prometheus.Counter
	mountInjection    prometheus.Counter
	cacheRequests     *prometheus.CounterVec
	activeRequests    prometheus.Gauge

	server *http.Server
}

// NewCollector builds a Collector. A nil config uses defaults
// (enabled, port 9090, path /metrics, namespace vfsql).
func NewCollector(config *Config) (*Collector, error) {
	cfg := Config{Enabled: true, Port: 9090, Path: "/metrics", Namespace: "vfsql"}
	if config != nil {
		cfg = *config
	}
	if !cfg.Enabled {
		return &Collector{config: cfg}, nil
	}

	registry := prometheus.NewRegistry()
	c := &Collector{config: cfg, registry: registry}

	c.operationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "operations_total",
		Help:      "Total number of VFS operations, by operation and status.",
	}, []string{"operation", "status"})

	c.operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of VFS operations in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"operation"})

	c.txCommitCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "transaction_commits_total",
		Help:      "Total number of committed request transactions.",
	})

	c.txRollbackCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "transaction_rollbacks_total",
		Help:      "Total number of rolled-back request transactions.",
	})

	c.mountInjection = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "mount_point_injections_total",
		Help:      "Total number of synthetic mount-point entries injected into a readdir result.",
	})

	c.cacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Name:      "schema_cache_requests_total",
		Help:      "Total number of schema cache lookups, by result.",
	}, []string{"result"})

	c.activeRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Name:      "active_requests",
		Help:      "Number of requests currently holding an open transaction.",
	})

	collectors := []prometheus.Collector{
		c.operationCounter, c.operationDuration, c.txCommitCounter,
		c.txRollbackCounter, c.mountInjection, c.cacheRequests, c.activeRequests,
	}
	for _, col := range collectors {
		if err := registry.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return c, nil
}

// Start serves the registry at Config.Path until ctx is cancelled or
// Stop is called.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		_ = c.server.ListenAndServe()
	}()
	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop shuts down the metrics HTTP server.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}

// RecordOperation records one VFS operation's outcome and duration.
// Safe to call on a nil Collector or a disabled one.
func (c *Collector) RecordOperation(operation string, duration time.Duration, success bool) {
	if c == nil || !c.config.Enabled {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	c.operationCounter.WithLabelValues(operation, status).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCommit records a transaction commit.
func (c *Collector) RecordCommit() {
	if c == nil || !c.config.Enabled {
		return
	}
	c.txCommitCounter.Inc()
}

// RecordRollback records a transaction rollback.
func (c *Collector) RecordRollback() {
	if c == nil || !c.config.Enabled {
		return
	}
	c.txRollbackCounter.Inc()
}

// RecordMountInjection records one synthetic mount-point entry injected
// into a readdir result.
func (c *Collector) RecordMountInjection() {
	if c == nil || !c.config.Enabled {
		return
	}
	c.mountInjection.Inc()
}

// RecordCacheHit records a schema cache hit.
func (c *Collector) RecordCacheHit() {
	if c == nil || !c.config.Enabled {
		return
	}
	c.cacheRequests.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a schema cache miss.
func (c *Collector) RecordCacheMiss() {
	if c == nil || !c.config.Enabled {
		return
	}
	c.cacheRequests.WithLabelValues("miss").Inc()
}

// SetActiveRequests sets the current count of requests holding an open
// transaction.
func (c *Collector) SetActiveRequests(n int) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.activeRequests.Set(float64(n))
}
