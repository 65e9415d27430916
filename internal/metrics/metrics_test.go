package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRemote(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	m.ObserveRemote("get_cart", time.Now(), nil)
	m.ObserveRemote("get_cart", time.Now(), errors.New("boom"))
	m.ObserveRemote("get_cart", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RemoteRequests.WithLabelValues("get_cart", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteRequests.WithLabelValues("get_cart", OutcomeError)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRemote("x", time.Now(), nil)
		m.StaleRefresh("cart")
		m.SetCatalogSize(3)
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)
	m.StaleRefresh("wishlist")
	m.SetCatalogSize(12)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/cart", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", echo.WrapHandler(Handler(reg)))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/cart", "200")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.CatalogGames))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `store_stale_refreshes_total{synchronizer="wishlist"} 1`)
}
