package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/avatarctic/catalog-service/internal/core/ports"
)

func TestCatalogMetrics_Counters(t *testing.T) {
	m := NewCatalogMetrics(prometheus.NewRegistry())

	m.CacheHit("product")
	m.CacheHit("product")
	m.CacheMiss("all_products")
	m.CacheError("get")
	m.PublishResult(true)
	m.PublishResult(false)
	m.PublishResult(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("product", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("all_products", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheErrors.WithLabelValues("get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.publishes.WithLabelValues("rejected")))
}

type fixedPool ports.PoolStats

func (p fixedPool) PoolStats() ports.PoolStats { return ports.PoolStats(p) }

func TestRegisterPoolStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterPoolStats(reg, fixedPool{Total: 5, Idle: 3, InUse: 2, Waiting: 1})

	n, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestHTTPMetrics_ObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("GET", "/api/products/:id", 200, 15*time.Millisecond)
	m.ObserveRequest("GET", "/api/products/:id", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/products/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/products/:id", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}
