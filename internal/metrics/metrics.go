// Package metrics provides observability for the board backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks request volume plus the outcomes of the three operations
// worth watching: share-token decodes, catalog reloads, and exports.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	ShareDecodes    *prometheus.CounterVec
	CatalogReloads  *prometheus.CounterVec
	Exports         *prometheus.CounterVec
}

// New registers and returns the metric set on the default registry.
func New() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flavorchart_http_requests_total",
			Help: "Total HTTP requests by method and path",
		}, []string{"method", "path"}),
		RequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "flavorchart_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ShareDecodes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flavorchart_share_decodes_total",
			Help: "Share token decode attempts by result (ok, bad_characters, decode_failed, parse_failed)",
		}, []string{"result"}),
		CatalogReloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flavorchart_catalog_reloads_total",
			Help: "Reference catalog load attempts by result (ok, failed, stale)",
		}, []string{"result"}),
		Exports: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flavorchart_exports_total",
			Help: "Generated exports by format",
		}, []string{"format"}),
	}
}

// ObserveRequest records one handled request.
func (m *Metrics) ObserveRequest(method, path string, start time.Time) {
	m.HTTPRequests.WithLabelValues(method, path).Inc()
	m.RequestDuration.Observe(time.Since(start).Seconds())
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware counts and times every request passing through.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		m.ObserveRequest(r.Method, r.URL.Path, start)
	})
}
