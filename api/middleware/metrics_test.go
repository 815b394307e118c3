package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

func TestMetricsLabelsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := chi.NewRouter()
	r.Use(Metrics(metrics.NewHTTPMetrics(reg)))
	r.Use(Tracing())
	r.Get("/api/orders/{orderId}", func(w http.ResponseWriter, _ *http.Request) {})

	for _, path := range []string{"/api/orders/a", "/api/orders/b", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	want := `
# HELP http_requests_total HTTP requests by method, route and status code.
# TYPE http_requests_total counter
http_requests_total{method="GET",route="/api/orders/{orderId}",status="200"} 2
http_requests_total{method="GET",route="unmatched",status="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "http_requests_total"))
}

func TestMetricsNilRecorderIsPassThrough(t *testing.T) {
	h := Metrics(nil)(okHandler())
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}
