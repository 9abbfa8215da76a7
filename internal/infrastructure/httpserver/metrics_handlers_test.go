package httpserver

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/catalog-service/internal/core/domain/product"
	"github.com/avatarctic/catalog-service/internal/infrastructure/metrics"
	"github.com/avatarctic/catalog-service/test/mocks"
)

func newMeteredServer(t *testing.T) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	logger, _ := test.NewNullLogger()
	srv := NewServer(&ServerConfig{}, logger, ServerDeps{
		ProductService: &mocks.ProductServiceMock{FindOneFn: func(ctx context.Context, id string) (*product.Product, error) {
			return sampleProduct(), nil
		}},
		Requests: metrics.NewHTTPMetrics(reg),
		Gatherer: reg,
	})
	return srv, reg
}

func TestRequestsAreLabelledByRouteTemplate(t *testing.T) {
	srv, reg := newMeteredServer(t)

	require.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/products/a", "").Code)
	require.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/products/b", "").Code)

	expected := `
# HELP http_requests_total HTTP requests by method, route and status
# TYPE http_requests_total counter
http_requests_total{method="GET",route="/api/products/:id",status="200"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_requests_total"))
}

func TestMetricsEndpointServesInjectedRegistry(t *testing.T) {
	srv, reg := newMeteredServer(t)
	metrics.NewCatalogMetrics(reg).CacheHit("product")

	rec := do(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `catalog_cache_lookups_total{family="product",result="hit"} 1`)
}
