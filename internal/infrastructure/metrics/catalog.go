package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avatarctic/catalog-service/internal/core/ports"
)

// CatalogMetrics records cache and publish outcomes as Prometheus counters.
type CatalogMetrics struct {
	cacheLookups *prometheus.CounterVec
	cacheErrors  *prometheus.CounterVec
	publishes    *prometheus.CounterVec
}

// NewCatalogMetrics creates the catalog counters and registers them with reg.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	m := &CatalogMetrics{
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_cache_lookups_total",
				Help: "Cache lookups by key family and result",
			},
			[]string{"family", "result"},
		),
		cacheErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_cache_errors_total",
				Help: "Cache operations that failed and were degraded to the store",
			},
			[]string{"op"},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_inventory_publishes_total",
				Help: "Inventory events handed to the broker by outcome",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.cacheLookups, m.cacheErrors, m.publishes)
	return m
}

func (m *CatalogMetrics) CacheHit(family string) {
	m.cacheLookups.WithLabelValues(family, "hit").Inc()
}

func (m *CatalogMetrics) CacheMiss(family string) {
	m.cacheLookups.WithLabelValues(family, "miss").Inc()
}

func (m *CatalogMetrics) CacheError(op string) {
	m.cacheErrors.WithLabelValues(op).Inc()
}

func (m *CatalogMetrics) PublishResult(accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.publishes.WithLabelValues(outcome).Inc()
}

// RegisterPoolStats exposes the connection pool snapshot as gauges read at scrape time.
func RegisterPoolStats(reg prometheus.Registerer, p ports.PoolStatsProvider) {
	gauge := func(name, help string, read func(ports.PoolStats) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: name, Help: help},
			func() float64 { return float64(read(p.PoolStats())) },
		)
	}
	reg.MustRegister(
		gauge("db_pool_connections_total", "Open connections", func(s ports.PoolStats) int { return s.Total }),
		gauge("db_pool_connections_idle", "Idle connections", func(s ports.PoolStats) int { return s.Idle }),
		gauge("db_pool_connections_in_use", "Connections in use", func(s ports.PoolStats) int { return s.InUse }),
		gauge("db_pool_waiting", "Callers waiting for a connection", func(s ports.PoolStats) int { return s.Waiting }),
	)
}

var _ ports.CatalogObserver = (*CatalogMetrics)(nil)
